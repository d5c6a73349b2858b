package font

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// SharedGrid bundles the font collection, cell metrics, shaper and glyph
// atlases behind one RWMutex so the render thread and any helpers see a
// consistent font state. Renderers for split surfaces can share a single
// grid and with it a single set of atlas textures.
type SharedGrid struct {
	mu sync.RWMutex

	collection *Collection
	overrides  MetricOverrides
	metrics    Metrics
	sizePx     float64

	shaper *Shaper

	grayscale *Atlas
	color     *Atlas

	glyphs map[glyphKey]Glyph
}

// NewSharedGrid builds a grid around a collection at the given pixel size.
// Metrics derive from the collection's regular face.
func NewSharedGrid(collection *Collection, sizePx float64, ov MetricOverrides) (*SharedGrid, error) {
	if collection == nil {
		return nil, ErrNoRegularFace
	}
	if sizePx <= 0 {
		return nil, fmt.Errorf("font: invalid size %v", sizePx)
	}

	metrics, err := CalcMetrics(collection.Styled(StyleRegular), sizePx, ov)
	if err != nil {
		return nil, err
	}
	grayscale, err := NewAtlas(DefaultAtlasSize, FormatGrayscale)
	if err != nil {
		return nil, err
	}
	color, err := NewAtlas(DefaultAtlasSize, FormatRGBA)
	if err != nil {
		return nil, err
	}

	return &SharedGrid{
		collection: collection,
		overrides:  ov,
		metrics:    metrics,
		sizePx:     sizePx,
		shaper:     NewShaper(),
		grayscale:  grayscale,
		color:      color,
		glyphs:     make(map[glyphKey]Glyph, 256),
	}, nil
}

// Metrics returns the current cell metrics.
func (g *SharedGrid) Metrics() Metrics {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.metrics
}

// SizePx returns the current font size in pixels per em.
func (g *SharedGrid) SizePx() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sizePx
}

// SetSize changes the font size, recomputing metrics and discarding all
// rasterized glyphs.
func (g *SharedGrid) SetSize(sizePx float64) error {
	if sizePx <= 0 {
		return fmt.Errorf("font: invalid size %v", sizePx)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	metrics, err := CalcMetrics(g.collection.Styled(StyleRegular), sizePx, g.overrides)
	if err != nil {
		return err
	}
	g.sizePx = sizePx
	g.metrics = metrics
	g.clearLocked()
	return nil
}

// Resolve picks the face for a rune in the given style. See
// Collection.Resolve for fallback order.
func (g *SharedGrid) Resolve(style FaceStyle, r rune) (int, *Face) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collection.Resolve(style, r)
}

// Shape shapes a segment of row text against the face at faceIndex.
func (g *SharedGrid) Shape(faceIndex int, runes []rune, seg Segment) []ShapedGlyph {
	g.mu.RLock()
	face, err := g.collection.FaceByIndex(faceIndex)
	size := g.sizePx
	g.mu.RUnlock()

	if err != nil {
		return nil
	}
	return g.shaper.Shape(face, size, runes, seg)
}

// Maintain advances per-frame eviction clocks. Call once per frame.
func (g *SharedGrid) Maintain() {
	g.shaper.Maintain()
}

// RenderGlyph rasterizes a glyph into the appropriate atlas and returns
// its placement, drawing from the glyph map when already present.
func (g *SharedGrid) RenderGlyph(faceIndex int, gid GlyphID, opts RenderOptions) (Glyph, error) {
	g.mu.RLock()
	key := g.glyphKeyLocked(faceIndex, gid, opts)
	glyph, ok := g.glyphs[key]
	g.mu.RUnlock()
	if ok {
		return glyph, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key = g.glyphKeyLocked(faceIndex, gid, opts)
	if glyph, ok := g.glyphs[key]; ok {
		return glyph, nil
	}

	face, err := g.collection.FaceByIndex(faceIndex)
	if err != nil {
		return Glyph{}, err
	}
	rendered, err := face.render(gid, floatToFixed(g.sizePx))
	if err != nil {
		return Glyph{}, err
	}

	if key.thicken != 0 && rendered.alpha != nil {
		rendered.alpha = thickenMask(rendered.alpha, key.thicken)
		rendered.bearingX--
		rendered.bearingY++
	}

	switch {
	case rendered.color != nil:
		b := rendered.color.Bounds()
		region, err := g.pack(g.color, rendered.color.Pix, rendered.color.Stride, b.Dx(), b.Dy())
		if err != nil {
			return Glyph{}, err
		}
		glyph = placeGlyph(region, rendered, AtlasColor)
	case rendered.alpha != nil:
		b := rendered.alpha.Bounds()
		region, err := g.pack(g.grayscale, rendered.alpha.Pix, rendered.alpha.Stride, b.Dx(), b.Dy())
		if err != nil {
			return Glyph{}, err
		}
		glyph = placeGlyph(region, rendered, AtlasGrayscale)
	default:
		glyph = Glyph{Advance: rendered.advance}
	}

	g.glyphs[key] = glyph
	return glyph, nil
}

func (g *SharedGrid) glyphKeyLocked(faceIndex int, gid GlyphID, opts RenderOptions) glyphKey {
	var thicken uint8
	if opts.Thicken {
		thicken = opts.ThickenStrength
		if thicken == 0 {
			thicken = 255
		}
	}
	return glyphKey{
		face:    uint16(faceIndex), //nolint:gosec // face indexes are small
		glyph:   gid,
		sizePx:  uint16(g.sizePx + 0.5),
		thicken: thicken,
	}
}

// WithAtlases runs fn with both atlases under the read lock, for uploads.
// fn must not retain the atlases past the call.
func (g *SharedGrid) WithAtlases(fn func(grayscale, color *Atlas) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.grayscale, g.color)
}

// ClearCache discards every rasterized glyph and resets both atlases.
func (g *SharedGrid) ClearCache() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
}

func (g *SharedGrid) clearLocked() {
	g.grayscale.Clear()
	g.color.Clear()
	clear(g.glyphs)
}

// pack reserves atlas space for width x height pixels, growing the atlas
// when full and clearing it as a last resort.
func (g *SharedGrid) pack(atlas *Atlas, pix []byte, stride, width, height int) (Region, error) {
	region, err := atlas.Reserve(width, height)
	if errors.Is(err, ErrAtlasFull) {
		if growErr := atlas.Grow(atlas.Size() * 2); growErr != nil {
			// At maximum size: start over and let glyphs re-render on demand.
			atlas.Clear()
			g.evictKind(atlas)
		}
		region, err = atlas.Reserve(width, height)
	}
	if err != nil {
		return Region{}, err
	}
	if err := atlas.Write(region, pix, stride); err != nil {
		return Region{}, err
	}
	return region, nil
}

// evictKind drops glyph entries that point into the given atlas.
func (g *SharedGrid) evictKind(atlas *Atlas) {
	kind := AtlasGrayscale
	if atlas.Format() == FormatRGBA {
		kind = AtlasColor
	}
	for key, glyph := range g.glyphs {
		if glyph.Kind == kind && (glyph.Width > 0 || glyph.Height > 0) {
			delete(g.glyphs, key)
		}
	}
}

func placeGlyph(region Region, rendered renderedGlyph, kind AtlasKind) Glyph {
	return Glyph{
		X:       uint32(region.X),      //nolint:gosec // atlas coords are non-negative
		Y:       uint32(region.Y),      //nolint:gosec // atlas coords are non-negative
		Width:   uint32(region.Width),  //nolint:gosec // validated positive
		Height:  uint32(region.Height), //nolint:gosec // validated positive
		OffsetX: int32(rendered.bearingX),
		OffsetY: int32(rendered.bearingY),
		Advance: rendered.advance,
		Kind:    kind,
	}
}

// thickenMask dilates a coverage mask by up to one pixel on each side,
// producing synthetic bold for faces without a true bold variant.
func thickenMask(src *image.Alpha, strength uint8) *image.Alpha {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewAlpha(image.Rect(0, 0, w+2, h+2))

	k := int(strength)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := src.Pix[y*src.Stride+x]
			if v == 0 {
				continue
			}
			spread := uint8(int(v) * k / 255) //nolint:gosec // bounded by v
			setMax(dst, x+1, y+1, v)
			setMax(dst, x, y+1, spread)
			setMax(dst, x+2, y+1, spread)
			setMax(dst, x+1, y, spread)
			setMax(dst, x+1, y+2, spread)
		}
	}
	return dst
}

func setMax(img *image.Alpha, x, y int, v uint8) {
	i := y*img.Stride + x
	if img.Pix[i] < v {
		img.Pix[i] = v
	}
}
