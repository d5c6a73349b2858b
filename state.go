package termgfx

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/gogpu/termgfx/terminal"
)

// stateResetInterval is the frame count after which the snapshot drops its
// backing arrays. Long-lived sessions would otherwise retain capacity from
// the largest grid ever seen.
const stateResetInterval = 100_000

// span is an inclusive column range within one row.
type span struct {
	lo, hi int
}

func (s span) contains(col int) bool { return col >= s.lo && col <= s.hi }

// currentMatch locates the selected search match, if any.
type currentMatch struct {
	row  int
	span span
	ok   bool
}

// renderState is the renderer's private copy of everything it needs from
// the terminal to build a frame. It is merged under the terminal lock and
// consumed on the render goroutine only, so the two goroutines never share
// backing memory.
type renderState struct {
	rows, cols int

	cells    [][]terminal.Cell
	rowDirty []bool
	dirty    terminal.Dirty

	cursor      terminal.Cursor
	cursorBlink bool
	selection   terminal.Selection
	scrollbar   terminal.Scrollbar
	preedit     terminal.Preedit
	search      terminal.Search
	palette     terminal.Palette
	hoveredLink uint32
	mouseCol    int
	mouseRow    int

	// searchRows holds the resolved match spans per row; current is the
	// one match drawn with the selected-match colors.
	searchRows [][]span
	current    currentMatch

	searchRE    *regexp.Regexp
	searchREKey string

	textBuf []rune
	colBuf  []int

	frames uint64
}

// mergeLocked copies terminal state into the snapshot and clears the
// terminal's dirty flags. t.Mu must be held, and nothing else, so the I/O
// goroutine is blocked as briefly as possible.
func (s *renderState) mergeLocked(t *terminal.Terminal) {
	rows, cols := t.SizeLocked()
	if rows != s.rows || cols != s.cols || s.cells == nil {
		s.alloc(rows, cols)
	}

	switch dirty := t.DirtyLocked(); {
	case s.dirty == terminal.DirtyFull || dirty == terminal.DirtyFull:
		s.dirty = terminal.DirtyFull
		for r := 0; r < rows; r++ {
			copy(s.cells[r], t.RowLocked(r))
			s.rowDirty[r] = true
		}
	case dirty == terminal.DirtyPartial:
		if s.dirty == terminal.DirtyNone {
			s.dirty = terminal.DirtyPartial
		}
		t.DirtyRowsLocked().ForEach(func(row int) {
			if row >= rows {
				return
			}
			copy(s.cells[row], t.RowLocked(row))
			s.rowDirty[row] = true
		})
	}

	s.cursor = t.Cursor
	s.selection = t.Selection
	s.scrollbar = t.Scrollbar
	s.preedit.Active = t.Preedit.Active
	s.preedit.Runes = append(s.preedit.Runes[:0], t.Preedit.Runes...)
	s.search = t.Search
	s.palette = *t.Palette
	s.hoveredLink = t.HoveredHyperlinkLocked()
	s.mouseCol, s.mouseRow = t.MouseCol, t.MouseRow

	t.ResetDirtyLocked()
}

func (s *renderState) alloc(rows, cols int) {
	backing := make([]terminal.Cell, rows*cols)
	s.cells = make([][]terminal.Cell, rows)
	for r := range s.cells {
		s.cells[r] = backing[r*cols : (r+1)*cols : (r+1)*cols]
	}
	s.rowDirty = make([]bool, rows)
	s.searchRows = make([][]span, rows)
	s.rows, s.cols = rows, cols
	s.dirty = terminal.DirtyFull
}

// clearDirty marks the snapshot consumed after a rebuild.
func (s *renderState) clearDirty() {
	s.dirty = terminal.DirtyNone
	for r := range s.rowDirty {
		s.rowDirty[r] = false
	}
}

// advanceFrame counts one completed update. At the reset interval the
// snapshot drops every backing array; the next merge reallocates and forces
// a full rebuild, which must reproduce identical output.
func (s *renderState) advanceFrame() {
	s.frames++
	if s.frames < stateResetInterval {
		return
	}
	s.frames = 0
	s.rows, s.cols = 0, 0
	s.cells = nil
	s.rowDirty = nil
	s.searchRows = nil
	s.textBuf = nil
	s.colBuf = nil
	s.preedit.Runes = nil
	s.current = currentMatch{}
	s.dirty = terminal.DirtyNone
}

// resolveHighlights recomputes the per-row search spans from the merged
// cells. It runs outside the terminal lock since matching allocates; a
// failing pattern degrades to no highlights.
func (s *renderState) resolveHighlights() {
	s.current = currentMatch{}
	for r := range s.searchRows {
		s.searchRows[r] = s.searchRows[r][:0]
	}
	if !s.search.Active || s.search.Needle == "" || s.rows == 0 {
		return
	}

	var re *regexp.Regexp
	if s.search.Regex {
		if re = s.compiledSearch(); re == nil {
			return
		}
	}

	needle := []rune(s.search.Needle)
	nth := 0
	for row := 0; row < s.rows; row++ {
		text, colOf := s.rowText(row)

		var matches []span
		if re != nil {
			matches = regexSpans(re, text)
		} else {
			matches = substringSpans(text, needle, s.search.CaseFold)
		}

		for _, m := range matches {
			lo, hi := colOf[m.lo], colOf[m.hi]
			// A wide rune at the end extends the span over its tail cell.
			if c := s.cells[row][hi]; c.Width == 2 && hi+1 < s.cols {
				hi++
			}
			sp := span{lo: lo, hi: hi}
			s.searchRows[row] = append(s.searchRows[row], sp)
			if nth == s.search.Selected {
				s.current = currentMatch{row: row, span: sp, ok: true}
			}
			nth++
		}
	}
}

// compiledSearch returns the cached compiled pattern, recompiling only when
// the needle changes. A pattern that fails to compile logs once and leaves
// highlights off until it changes again.
func (s *renderState) compiledSearch() *regexp.Regexp {
	key := s.search.Needle
	if s.search.CaseFold {
		key = "(?i)" + key
	}
	if key == s.searchREKey {
		return s.searchRE
	}
	s.searchREKey = key
	re, err := regexp.Compile(key)
	if err != nil {
		Logger().Warn("search pattern rejected", "pattern", s.search.Needle, "err", err)
		s.searchRE = nil
		return nil
	}
	s.searchRE = re
	return re
}

// rowText flattens one row into the rune sequence a match runs over, with
// the source column of each rune. Wide tails contribute nothing; empty
// cells read as spaces.
func (s *renderState) rowText(row int) ([]rune, []int) {
	text := s.textBuf[:0]
	colOf := s.colBuf[:0]
	for col := 0; col < s.cols; col++ {
		c := s.cells[row][col]
		if c.Width == 0 {
			continue
		}
		r := c.Rune
		if r == 0 {
			r = ' '
		}
		text = append(text, r)
		colOf = append(colOf, col)
	}
	s.textBuf, s.colBuf = text, colOf
	return text, colOf
}

// substringSpans finds non-overlapping literal matches, returned as
// inclusive rune-index ranges.
func substringSpans(text, needle []rune, fold bool) []span {
	if len(needle) == 0 || len(needle) > len(text) {
		return nil
	}
	var out []span
	for i := 0; i+len(needle) <= len(text); i++ {
		ok := true
		for j := range needle {
			if !runeEq(text[i+j], needle[j], fold) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, span{lo: i, hi: i + len(needle) - 1})
			i += len(needle) - 1
		}
	}
	return out
}

func runeEq(a, b rune, fold bool) bool {
	if a == b {
		return true
	}
	if !fold {
		return false
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// regexSpans maps the pattern's byte matches back to inclusive rune-index
// ranges. Empty matches are dropped.
func regexSpans(re *regexp.Regexp, text []rune) []span {
	var sb strings.Builder
	starts := make([]int, 0, len(text))
	for _, r := range text {
		starts = append(starts, sb.Len())
		sb.WriteRune(r)
	}
	var out []span
	for _, m := range re.FindAllStringIndex(sb.String(), -1) {
		if m[0] == m[1] {
			continue
		}
		lo := sort.SearchInts(starts, m[0])
		hi := sort.SearchInts(starts, m[1]) - 1
		out = append(out, span{lo: lo, hi: hi})
	}
	return out
}

// highlightAt ranks the highlight sources covering one cell. Selection
// beats the selected search match, which beats a plain match.
func (s *renderState) highlightAt(col, row int) terminal.HighlightKind {
	if s.selection.Contains(col, row) {
		return terminal.HighlightSelection
	}
	if s.current.ok && s.current.row == row && s.current.span.contains(col) {
		return terminal.HighlightSearchSelected
	}
	if row >= 0 && row < len(s.searchRows) {
		for _, sp := range s.searchRows[row] {
			if sp.contains(col) {
				return terminal.HighlightSearch
			}
		}
	}
	return terminal.HighlightNone
}
