package gfx

import "math"

// ColorFromBytes builds a Color from 8-bit sRGB components.
func ColorFromBytes(r, g, b, a uint8) Color {
	return Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}
}

// SRGBToLinear converts one sRGB-encoded component in [0,1] to linear
// light.
func SRGBToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// LinearToSRGB converts one linear-light component in [0,1] to sRGB
// encoding.
func LinearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

// Linear returns the color with RGB converted from sRGB encoding to
// linear light. Alpha is unchanged.
func (c Color) Linear() Color {
	return Color{
		R: SRGBToLinear(c.R),
		G: SRGBToLinear(c.G),
		B: SRGBToLinear(c.B),
		A: c.A,
	}
}

// Premultiplied returns the color with RGB scaled by alpha.
func (c Color) Premultiplied() Color {
	return Color{R: c.R * c.A, G: c.G * c.A, B: c.B * c.A, A: c.A}
}

// F32 returns the color as a float32 vector for uniform upload.
func (c Color) F32() [4]float32 {
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}
