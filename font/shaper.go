package font

import (
	"sync"

	"github.com/go-text/typesetting/di"
	tsfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// ShapedGlyph is one positioned glyph in a shaped run. X and Y are offsets
// from the run's pen origin in pixels, y up. Cluster is the rune index
// within the shaped segment that produced this glyph; ligatures map several
// runes to one glyph, all sharing the first rune's cluster.
type ShapedGlyph struct {
	GID      GlyphID
	Cluster  int
	X        float64
	Y        float64
	XAdvance float64
}

// Shaper turns segments of row text into positioned glyphs using HarfBuzz
// shaping through go-text/typesetting. This gives terminal text ligatures,
// kerning and complex-script support.
//
// Shaper is safe for concurrent use. HarfbuzzShaper instances have internal
// mutable buffers and are NOT safe for concurrent use, so they are pooled;
// font.Face instances are created per call (font.Face is not concurrent-safe
// either, but font.NewFace is cheap and wraps the thread-safe *Font).
type Shaper struct {
	shaperPool sync.Pool
	cache      *RunCache
}

// NewShaper creates a Shaper backed by go-text/typesetting's HarfBuzz
// implementation and a fresh run cache.
func NewShaper() *Shaper {
	return &Shaper{
		shaperPool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
		cache: NewRunCache(),
	}
}

// Shape shapes runes[seg.Start:seg.End] against face at sizePx pixels per
// em. Cluster indices in the result are relative to the segment start.
// Results are cached per (face, size, direction, script, text).
func (s *Shaper) Shape(face *Face, sizePx float64, runes []rune, seg Segment) []ShapedGlyph {
	if face == nil || seg.End <= seg.Start || seg.End > len(runes) {
		return nil
	}
	key := runKey{
		face:   face.ID(),
		size:   floatToFixed(sizePx),
		script: seg.Script,
		rtl:    seg.RTL,
		text:   string(runes[seg.Start:seg.End]),
	}
	return s.cache.GetOrCreate(key, func() []ShapedGlyph {
		return s.shape(face, key)
	})
}

// Maintain advances the run cache's frame clock. Call once per frame.
func (s *Shaper) Maintain() {
	s.cache.Maintain()
}

// CacheStats reports run cache counters.
func (s *Shaper) CacheStats() (hits, misses, evictions, insertions uint64) {
	return s.cache.Stats()
}

func (s *Shaper) shape(face *Face, key runKey) []ShapedGlyph {
	runes := []rune(key.text)

	// font.Face is not safe for concurrent use, so each call gets its own.
	goTextFace := tsfont.NewFace(face.shape)

	dir := di.DirectionLTR
	if key.rtl {
		dir = di.DirectionRTL
	}

	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      goTextFace,
		Size:      key.size,
		Script:    key.script,
		Language:  language.NewLanguage("en"),
	}

	hb := s.shaperPool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.shaperPool.Put(hb)

	return convertGlyphs(output.Glyphs)
}

// convertGlyphs walks the shaper output advancing a pen position, producing
// pen-relative glyph placements. The result is never nil so empty runs
// still cache.
func convertGlyphs(glyphs []shaping.Glyph) []ShapedGlyph {
	result := make([]ShapedGlyph, len(glyphs))
	var x float64
	for i, g := range glyphs {
		xOff := fixedToFloat(g.XOffset)
		yOff := fixedToFloat(g.YOffset)

		result[i] = ShapedGlyph{
			GID:     GlyphID(uint16(g.GlyphID)), //nolint:gosec // TrueType glyph IDs fit in uint16
			Cluster: g.TextIndex(),
			X:       x + xOff,
			Y:       yOff,
		}

		adv := fixedToFloat(g.Advance)
		result[i].XAdvance = adv
		x += adv
	}
	return result
}

// floatToFixed converts a float64 pixel size to fixed.Int26_6.
func floatToFixed(size float64) fixed.Int26_6 {
	return fixed.Int26_6(size * 64)
}

// fixedToFloat converts a fixed.Int26_6 value to float64.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
