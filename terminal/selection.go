package terminal

// Selection is an inclusive range of cells in viewport coordinates,
// ordered start-before-end in reading order. Rectangle selections cover
// the column span on every row instead of wrapping.
type Selection struct {
	StartCol, StartRow int
	EndCol, EndRow     int
	Rectangle          bool
	Active             bool
}

// Contains reports whether the cell at (col, row) falls inside the range.
func (s Selection) Contains(col, row int) bool {
	if !s.Active {
		return false
	}
	if row < s.StartRow || row > s.EndRow {
		return false
	}
	if s.Rectangle {
		lo, hi := s.StartCol, s.EndCol
		if lo > hi {
			lo, hi = hi, lo
		}
		return col >= lo && col <= hi
	}
	if s.StartRow == s.EndRow {
		return col >= s.StartCol && col <= s.EndCol
	}
	switch row {
	case s.StartRow:
		return col >= s.StartCol
	case s.EndRow:
		return col <= s.EndCol
	default:
		return true
	}
}

// HighlightKind ranks the overlapping highlight sources on a cell.
// Higher values win.
type HighlightKind uint8

const (
	HighlightNone HighlightKind = iota
	HighlightSearch
	HighlightSearchSelected
	HighlightSelection
)
