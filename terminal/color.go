package terminal

// ColorMode says how a Color value is to be resolved.
type ColorMode uint8

const (
	// ColorModeDefault resolves to the palette's default foreground or
	// background, depending on which side of the cell the color sits on.
	ColorModeDefault ColorMode = iota

	// ColorModePalette resolves through the 256-entry palette.
	ColorModePalette

	// ColorModeRGB is a direct 24-bit color.
	ColorModeRGB
)

// Color is one cell-level color: default, palette-indexed, or direct RGB.
// The zero value is the default color.
type Color struct {
	Mode  ColorMode
	Index uint8
	R     uint8
	G     uint8
	B     uint8
}

// PaletteColor returns a palette-indexed color.
func PaletteColor(idx uint8) Color {
	return Color{Mode: ColorModePalette, Index: idx}
}

// RGBColor returns a direct 24-bit color.
func RGBColor(r, g, b uint8) Color {
	return Color{Mode: ColorModeRGB, R: r, G: g, B: b}
}

// IsDefault reports whether c resolves to a palette default.
func (c Color) IsDefault() bool { return c.Mode == ColorModeDefault }

// RGB is a resolved 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Luminance returns the perceived brightness in [0,255] using the
// ITU-R BT.601 weights.
func (c RGB) Luminance() uint8 {
	l := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	return uint8(l + 0.5)
}

// Palette is the resolved color table for one terminal: the 256 indexed
// colors plus the defaults the renderer falls back to.
type Palette struct {
	Colors [256]RGB

	Foreground RGB
	Background RGB

	// CursorColor is the terminal-set cursor override. Valid only when
	// CursorColorSet is true; OSC 112 clears it.
	CursorColor    RGB
	CursorColorSet bool

	SelectionForeground RGB
	SelectionBackground RGB
	SelectionColorsSet  bool
}

// NewPalette builds a palette with the standard xterm 256-color table and
// white-on-black defaults.
func NewPalette() *Palette {
	p := &Palette{
		Foreground: RGB{R: 0xff, G: 0xff, B: 0xff},
		Background: RGB{},
	}

	// 0..15: the common ANSI colors.
	base := [16]RGB{
		{0x00, 0x00, 0x00}, {0xcc, 0x00, 0x00}, {0x00, 0xcc, 0x00}, {0xcc, 0xcc, 0x00},
		{0x00, 0x00, 0xcc}, {0xcc, 0x00, 0xcc}, {0x00, 0xcc, 0xcc}, {0xcc, 0xcc, 0xcc},
		{0x66, 0x66, 0x66}, {0xff, 0x00, 0x00}, {0x00, 0xff, 0x00}, {0xff, 0xff, 0x00},
		{0x00, 0x00, 0xff}, {0xff, 0x00, 0xff}, {0x00, 0xff, 0xff}, {0xff, 0xff, 0xff},
	}
	copy(p.Colors[:16], base[:])

	// 16..231: 6x6x6 color cube.
	levels := [6]uint8{0x00, 0x5f, 0x87, 0xaf, 0xd7, 0xff}
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				p.Colors[i] = RGB{R: levels[r], G: levels[g], B: levels[b]}
				i++
			}
		}
	}

	// 232..255: grayscale ramp.
	for j := 0; j < 24; j++ {
		v := uint8(8 + j*10)
		p.Colors[i] = RGB{R: v, G: v, B: v}
		i++
	}

	return p
}

// Resolve maps a cell color to a concrete RGB. def is the palette default
// used when c is in default mode.
func (p *Palette) Resolve(c Color, def RGB) RGB {
	switch c.Mode {
	case ColorModePalette:
		return p.Colors[c.Index]
	case ColorModeRGB:
		return RGB{R: c.R, G: c.G, B: c.B}
	default:
		return def
	}
}
