package font

// AtlasKind selects which atlas texture a glyph was packed into.
type AtlasKind uint8

const (
	// AtlasGrayscale holds single-channel coverage masks.
	AtlasGrayscale AtlasKind = iota
	// AtlasColor holds premultiplied RGBA bitmap glyphs.
	AtlasColor
)

func (k AtlasKind) String() string {
	switch k {
	case AtlasGrayscale:
		return "grayscale"
	case AtlasColor:
		return "color"
	default:
		return "unknown"
	}
}

// Glyph locates one rasterized glyph inside an atlas, together with the
// placement data needed to position it relative to a cell.
type Glyph struct {
	// Atlas region in pixels.
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32

	// OffsetX is measured from the pen origin to the bitmap's left edge,
	// OffsetY from the baseline up to the bitmap's top.
	OffsetX int32
	OffsetY int32

	Advance float32
	Kind    AtlasKind
}

// glyphKey identifies one rasterization of a glyph. The effective thicken
// strength is part of the key because synthetic bold produces distinct
// bitmaps per strength; zero means no thickening.
type glyphKey struct {
	face    uint16
	glyph   GlyphID
	sizePx  uint16
	thicken uint8
}

// RenderOptions adjust how a glyph is rasterized before packing.
type RenderOptions struct {
	// Thicken applies synthetic bold by dilating the coverage mask.
	Thicken bool
	// ThickenStrength scales the dilation up to 255, a full extra pixel
	// on each side. Zero picks the full-strength default.
	ThickenStrength uint8
}
