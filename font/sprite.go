package font

import (
	"fmt"
	"image"
	"math"
)

// Sprite enumerates the procedurally drawn cell decorations: underline
// variants, overline, strikethrough, and cursor shapes. Sprites are
// rasterized at cell size from the grid metrics and packed into the
// grayscale atlas like glyphs, so the renderer draws them with the same
// pipeline.
type Sprite uint8

const (
	SpriteUnderline Sprite = iota + 1
	SpriteUnderlineDouble
	SpriteUnderlineDotted
	SpriteUnderlineDashed
	SpriteUnderlineCurly
	SpriteOverline
	SpriteStrikethrough
	SpriteCursorBlock
	SpriteCursorHollow
	SpriteCursorBar
	SpriteCursorUnderline
)

func (s Sprite) String() string {
	switch s {
	case SpriteUnderline:
		return "underline"
	case SpriteUnderlineDouble:
		return "underline-double"
	case SpriteUnderlineDotted:
		return "underline-dotted"
	case SpriteUnderlineDashed:
		return "underline-dashed"
	case SpriteUnderlineCurly:
		return "underline-curly"
	case SpriteOverline:
		return "overline"
	case SpriteStrikethrough:
		return "strikethrough"
	case SpriteCursorBlock:
		return "cursor-block"
	case SpriteCursorHollow:
		return "cursor-hollow"
	case SpriteCursorBar:
		return "cursor-bar"
	case SpriteCursorUnderline:
		return "cursor-underline"
	default:
		return "unknown"
	}
}

// spriteFace is the glyph-map face slot reserved for sprites. Real face
// indexes stay well below it.
const spriteFace = 0xffff

// RenderSprite rasterizes a sprite spanning the given number of cells
// (clamped to 1..2) and returns its atlas placement. The returned glyph's
// offsets place the bitmap exactly over the cell box.
func (g *SharedGrid) RenderSprite(s Sprite, span int) (Glyph, error) {
	if s < SpriteUnderline || s > SpriteCursorUnderline {
		return Glyph{}, fmt.Errorf("font: unknown sprite %d", s)
	}
	if span < 1 {
		span = 1
	}
	if span > 2 {
		span = 2
	}

	g.mu.RLock()
	key := g.spriteKeyLocked(s, span)
	glyph, ok := g.glyphs[key]
	g.mu.RUnlock()
	if ok {
		return glyph, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key = g.spriteKeyLocked(s, span)
	if glyph, ok := g.glyphs[key]; ok {
		return glyph, nil
	}

	mask := drawSprite(s, g.metrics, span)
	b := mask.Bounds()
	region, err := g.pack(g.grayscale, mask.Pix, mask.Stride, b.Dx(), b.Dy())
	if err != nil {
		return Glyph{}, err
	}

	glyph = Glyph{
		X:      uint32(region.X),      //nolint:gosec // atlas coords are non-negative
		Y:      uint32(region.Y),      //nolint:gosec // atlas coords are non-negative
		Width:  uint32(region.Width),  //nolint:gosec // validated positive
		Height: uint32(region.Height), //nolint:gosec // validated positive

		// Top of the bitmap sits at the cell top: baseline-relative
		// offset equals the full ascent to the cell top.
		OffsetX: 0,
		OffsetY: int32(g.metrics.Baseline),
		Kind:    AtlasGrayscale,
	}
	g.glyphs[key] = glyph
	return glyph, nil
}

func (g *SharedGrid) spriteKeyLocked(s Sprite, span int) glyphKey {
	return glyphKey{
		face:   spriteFace,
		glyph:  GlyphID(uint16(s) | uint16(span)<<8), //nolint:gosec // sprite ids are tiny
		sizePx: uint16(g.sizePx + 0.5),
	}
}

// drawSprite renders one sprite as a full-cell coverage mask.
func drawSprite(s Sprite, m Metrics, span int) *image.Alpha {
	w := m.CellWidth * span
	h := m.CellHeight
	mask := image.NewAlpha(image.Rect(0, 0, w, h))

	switch s {
	case SpriteUnderline:
		fillRect(mask, 0, m.UnderlinePosition, w, m.UnderlineThickness)
	case SpriteUnderlineDouble:
		t := m.UnderlineThickness
		fillRect(mask, 0, m.UnderlinePosition, w, t)
		fillRect(mask, 0, m.UnderlinePosition+2*t, w, t)
	case SpriteUnderlineDotted:
		t := m.UnderlineThickness
		for x := 0; x < w; x += 2 * t {
			fillRect(mask, x, m.UnderlinePosition, t, t)
		}
	case SpriteUnderlineDashed:
		dash := max(w/3, 1)
		fillRect(mask, 0, m.UnderlinePosition, dash, m.UnderlineThickness)
		fillRect(mask, 2*dash, m.UnderlinePosition, w-2*dash, m.UnderlineThickness)
	case SpriteUnderlineCurly:
		drawCurly(mask, m, span)
	case SpriteOverline:
		fillRect(mask, 0, m.OverlinePosition, w, m.OverlineThickness)
	case SpriteStrikethrough:
		fillRect(mask, 0, m.StrikethroughPosition, w, m.StrikethroughThickness)
	case SpriteCursorBlock:
		fillRect(mask, 0, 0, w, h)
	case SpriteCursorHollow:
		t := m.CursorThickness
		fillRect(mask, 0, 0, w, t)
		fillRect(mask, 0, h-t, w, t)
		fillRect(mask, 0, 0, t, h)
		fillRect(mask, w-t, 0, t, h)
	case SpriteCursorBar:
		fillRect(mask, 0, 0, m.CursorThickness, h)
	case SpriteCursorUnderline:
		fillRect(mask, 0, h-m.CursorThickness, w, m.CursorThickness)
	}
	return mask
}

// fillRect sets a solid rectangle, clipped to the mask bounds.
func fillRect(mask *image.Alpha, x, y, w, h int) {
	b := mask.Bounds()
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := x+w, y+h
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if x1 <= x0 {
		return
	}
	for yy := y0; yy < y1; yy++ {
		row := mask.Pix[yy*mask.Stride+x0 : yy*mask.Stride+x1]
		for i := range row {
			row[i] = 0xff
		}
	}
}

// drawCurly draws one sine period per cell so runs of curly underline
// join seamlessly across cell boundaries.
func drawCurly(mask *image.Alpha, m Metrics, span int) {
	w := m.CellWidth * span
	h := m.CellHeight
	t := float64(m.UnderlineThickness)

	// The wave band runs from the underline position to the cell bottom.
	top := float64(m.UnderlinePosition)
	room := float64(h) - top - t
	amp := room / 2
	if amp < 1 {
		amp = 1
	}
	mid := top + amp

	half := t / 2
	for x := 0; x < w; x++ {
		phase := 2 * math.Pi * float64(x) / float64(m.CellWidth)
		center := mid + amp*math.Sin(phase)
		y0 := int(math.Floor(center - half))
		y1 := int(math.Ceil(center + half))
		for y := y0; y <= y1; y++ {
			if y < 0 || y >= h {
				continue
			}
			// Coverage falls off linearly past the stroke edges.
			d := math.Abs(float64(y)+0.5-center) - half
			v := 1.0
			if d > 0 {
				v = 1 - d
				if v < 0 {
					v = 0
				}
			}
			a := uint8(v*255 + 0.5)
			if a > mask.Pix[y*mask.Stride+x] {
				mask.Pix[y*mask.Stride+x] = a
			}
		}
	}
}
