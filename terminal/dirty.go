package terminal

import (
	"math/bits"
	"sync/atomic"
)

// Dirty is the coarse change state of a terminal between frames.
type Dirty uint8

const (
	// DirtyNone means nothing changed; the renderer may re-present.
	DirtyNone Dirty = iota

	// DirtyPartial means only rows flagged in the row set changed.
	DirtyPartial

	// DirtyFull invalidates every row, e.g. after resize, palette change,
	// or scroll.
	DirtyFull
)

func (d Dirty) String() string {
	switch d {
	case DirtyNone:
		return "none"
	case DirtyPartial:
		return "partial"
	case DirtyFull:
		return "full"
	default:
		return "unknown"
	}
}

// RowSet is an atomic bitmap with one bit per viewport row. Marking is
// lock-free so parser code can flag rows while the renderer holds only the
// terminal lock briefly.
type RowSet struct {
	words []atomic.Uint64
	rows  int
}

// NewRowSet returns a clean set for n rows. Returns nil if n <= 0.
func NewRowSet(n int) *RowSet {
	if n <= 0 {
		return nil
	}
	return &RowSet{
		words: make([]atomic.Uint64, (n+63)/64),
		rows:  n,
	}
}

// Mark flags one row. Out-of-range rows are ignored.
func (s *RowSet) Mark(row int) {
	if row < 0 || row >= s.rows {
		return
	}
	s.words[row/64].Or(1 << (row & 63))
}

// MarkRange flags rows [lo, hi] inclusive, clamped to the set.
func (s *RowSet) MarkRange(lo, hi int) {
	if lo < 0 {
		lo = 0
	}
	if hi >= s.rows {
		hi = s.rows - 1
	}
	for r := lo; r <= hi; r++ {
		s.Mark(r)
	}
}

// IsSet reports whether row is flagged.
func (s *RowSet) IsSet(row int) bool {
	if row < 0 || row >= s.rows {
		return false
	}
	return s.words[row/64].Load()&(1<<(row&63)) != 0
}

// Clear unflags every row.
func (s *RowSet) Clear() {
	for i := range s.words {
		s.words[i].Store(0)
	}
}

// Count returns the number of flagged rows.
func (s *RowSet) Count() int {
	n := 0
	for i := range s.words {
		n += bits.OnesCount64(s.words[i].Load())
	}
	return n
}

// Len returns the number of rows the set covers.
func (s *RowSet) Len() int { return s.rows }

// ForEach visits flagged rows in ascending order without clearing them.
func (s *RowSet) ForEach(fn func(row int)) {
	for wi := range s.words {
		word := s.words[wi].Load()
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			row := wi*64 + bit
			if row >= s.rows {
				return
			}
			fn(row)
			word &^= 1 << bit
		}
	}
}

// CopyInto writes the flag of every row into dst[row]. dst rows beyond the
// set's length are left untouched.
func (s *RowSet) CopyInto(dst []bool) {
	n := len(dst)
	if n > s.rows {
		n = s.rows
	}
	for r := 0; r < n; r++ {
		dst[r] = s.IsSet(r)
	}
}
