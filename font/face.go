package font

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	tsfont "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

var (
	// ErrNoRegularFace reports a collection built without a regular face.
	ErrNoRegularFace = errors.New("font: collection needs a regular face")

	// ErrFaceIndex reports a face index outside the collection.
	ErrFaceIndex = errors.New("font: face index out of range")
)

// GlyphID indexes a glyph within one face.
type GlyphID uint16

// faceIDs hands out process-unique face identifiers for cache keys.
var faceIDs atomic.Uint32

// Face is one parsed font file. The same bytes are parsed twice: the
// typesetting face drives HarfBuzz shaping, the sfnt tables drive outline
// loading and metrics. Both views are read-only after parse and safe to
// share across goroutines; per-call mutable state (sfnt.Buffer,
// typesetting font.Face) is created at the use site.
type Face struct {
	id    uint32
	shape *tsfont.Font
	sfnt  *opentype.Font
}

// ParseFace parses TTF or OTF font data.
func ParseFace(data []byte) (*Face, error) {
	ts, err := tsfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("font: parse for shaping: %w", err)
	}
	ot, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font: parse tables: %w", err)
	}
	return &Face{
		id:    faceIDs.Add(1),
		shape: ts.Font,
		sfnt:  ot,
	}, nil
}

// ID is a process-unique identifier for cache keys.
func (f *Face) ID() uint32 { return f.id }

// GlyphIndex returns the glyph for a rune, 0 (notdef) when unmapped.
func (f *Face) GlyphIndex(r rune) GlyphID {
	var buf sfnt.Buffer
	gi, err := f.sfnt.GlyphIndex(&buf, r)
	if err != nil {
		return 0
	}
	return GlyphID(gi)
}

// HasGlyph reports whether the face maps r to a real glyph.
func (f *Face) HasGlyph(r rune) bool { return f.GlyphIndex(r) != 0 }

// Name returns the font family name, empty when the table is missing.
func (f *Face) Name() string {
	name, err := f.sfnt.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		return ""
	}
	return name
}

// FaceStyle indexes the four style slots of a collection.
type FaceStyle uint8

const (
	StyleRegular FaceStyle = iota
	StyleBold
	StyleItalic
	StyleBoldItalic

	styleCount
)

func (s FaceStyle) String() string {
	switch s {
	case StyleRegular:
		return "regular"
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBoldItalic:
		return "bold-italic"
	default:
		return "unknown"
	}
}

// Collection is the face table for one grid: the four style slots plus any
// number of fallback faces. Missing style slots fall back to regular.
// A Collection is immutable once handed to a Grid.
type Collection struct {
	styles    [styleCount]*Face
	fallbacks []*Face
}

// NewCollection builds a collection around a required regular face.
func NewCollection(regular *Face) (*Collection, error) {
	if regular == nil {
		return nil, ErrNoRegularFace
	}
	c := &Collection{}
	c.styles[StyleRegular] = regular
	return c, nil
}

// SetStyle fills one of the bold/italic slots.
func (c *Collection) SetStyle(s FaceStyle, f *Face) {
	if s < styleCount && f != nil {
		c.styles[s] = f
	}
}

// AddFallback appends a fallback face consulted, in order, for runes the
// styled face does not cover.
func (c *Collection) AddFallback(f *Face) {
	if f != nil {
		c.fallbacks = append(c.fallbacks, f)
	}
}

// Styled returns the face for a style slot, falling back to regular.
func (c *Collection) Styled(s FaceStyle) *Face {
	if s < styleCount && c.styles[s] != nil {
		return c.styles[s]
	}
	return c.styles[StyleRegular]
}

// Len returns the number of addressable faces: the four style slots plus
// fallbacks.
func (c *Collection) Len() int { return int(styleCount) + len(c.fallbacks) }

// FaceByIndex resolves a flat face index: 0..3 are the style slots (with
// regular fallback), 4+ the fallback faces.
func (c *Collection) FaceByIndex(i int) (*Face, error) {
	if i < 0 || i >= c.Len() {
		return nil, fmt.Errorf("%w: %d", ErrFaceIndex, i)
	}
	if i < int(styleCount) {
		return c.Styled(FaceStyle(i)), nil
	}
	return c.fallbacks[i-int(styleCount)], nil
}

// Resolve picks the face for a rune in a style: the styled face when it
// covers the rune, else the first covering fallback, else the styled face
// so the notdef glyph renders. The returned index addresses FaceByIndex.
func (c *Collection) Resolve(s FaceStyle, r rune) (int, *Face) {
	styled := c.Styled(s)
	if styled.HasGlyph(r) {
		return int(s), styled
	}
	for i, fb := range c.fallbacks {
		if fb.HasGlyph(r) {
			return int(styleCount) + i, fb
		}
	}
	return int(s), styled
}
