package terminal

import (
	"github.com/mattn/go-runewidth"
)

// Attr is the SGR attribute bit set of a cell.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrFaint
	AttrItalic
	AttrBlink
	AttrInverse
	AttrInvisible
	AttrStrikethrough
	AttrOverline
)

// Has reports whether all bits in mask are set.
func (a Attr) Has(mask Attr) bool { return a&mask == mask }

// UnderlineStyle enumerates the SGR 4:x underline variants.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

func (u UnderlineStyle) String() string {
	switch u {
	case UnderlineNone:
		return "none"
	case UnderlineSingle:
		return "single"
	case UnderlineDouble:
		return "double"
	case UnderlineCurly:
		return "curly"
	case UnderlineDotted:
		return "dotted"
	case UnderlineDashed:
		return "dashed"
	default:
		return "unknown"
	}
}

// Style is the full visual style of one cell. Styles are compared for
// equality when batching shaping runs, so every field must be comparable.
type Style struct {
	FG Color
	BG Color

	// UnderlineColor applies when Underline != UnderlineNone and the color
	// is not default; default falls back to the foreground.
	UnderlineColor Color

	Attrs     Attr
	Underline UnderlineStyle

	// Hyperlink is an index into the terminal's hyperlink table, 0 meaning
	// no link.
	Hyperlink uint32
}

// FontStyle collapses the bold/italic attribute pair into the face index
// used for glyph lookup: 0 regular, 1 bold, 2 italic, 3 bold italic.
func (s Style) FontStyle() uint8 {
	var f uint8
	if s.Attrs.Has(AttrBold) {
		f |= 1
	}
	if s.Attrs.Has(AttrItalic) {
		f |= 2
	}
	return f
}

// Cell is one grid position.
type Cell struct {
	// Rune is the base codepoint, 0 for an empty cell.
	Rune rune

	// Width is the column span: 1, or 2 for a wide head. A wide tail cell
	// has Width 0 and is skipped during drawing.
	Width uint8

	Style Style
}

// IsEmpty reports whether the cell draws no glyph.
func (c Cell) IsEmpty() bool { return c.Rune == 0 || c.Rune == ' ' }

// RuneDisplayWidth returns the column span of r on the grid.
func RuneDisplayWidth(r rune) int {
	w := runewidth.RuneWidth(r)
	if w < 1 {
		// Combining marks and control runes occupy the previous cell;
		// callers place them there, the base cell keeps width 1.
		return 1
	}
	if w > 2 {
		w = 2
	}
	return w
}
