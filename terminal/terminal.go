package terminal

import (
	"errors"
	"sync"
)

var (
	// ErrInvalidSize reports a non-positive grid dimension.
	ErrInvalidSize = errors.New("terminal: rows and cols must be positive")
)

// Hyperlink is one OSC 8 link target.
type Hyperlink struct {
	URI string
	// ID groups separately-written cells into one logical link. Empty IDs
	// never match each other.
	ID string
}

// Scrollbar describes the viewport's position within total history.
type Scrollbar struct {
	// Total is the row count of viewport plus scrollback.
	Total int
	// Offset is the index of the first viewport row within Total.
	Offset int
	// Viewport is the visible row count.
	Viewport int
}

// Preedit is in-progress IME composition text. It is drawn at the cursor,
// not stored in the grid.
type Preedit struct {
	Active bool
	Runes  []rune
}

// Search is the active search the renderer highlights. Matches are resolved
// against visible content each frame; Selected picks which match renders
// with the selected-match colors.
type Search struct {
	Active   bool
	Needle   string
	Regex    bool
	Selected int
	CaseFold bool
}

// Terminal is the authoritative grid state, owned by the I/O goroutine.
// Every exported method locks Mu itself unless its doc says otherwise;
// the renderer locks Mu once and uses the *Locked accessors while copying
// its snapshot.
type Terminal struct {
	Mu sync.Mutex

	rows, cols int
	cells      [][]Cell

	dirty     Dirty
	dirtyRows *RowSet

	Cursor    Cursor
	Selection Selection
	Scrollbar Scrollbar
	Preedit   Preedit
	Search    Search

	// MouseCol and MouseRow are the hovered viewport cell, -1 when the
	// pointer is outside the grid.
	MouseCol int
	MouseRow int

	Palette *Palette

	// Synchronized mirrors DEC mode 2026: while set, the renderer must not
	// produce partial frames.
	Synchronized bool

	links  map[uint32]Hyperlink
	nextID uint32
}

// New creates a terminal grid of the given size with an xterm palette.
func New(rows, cols int) (*Terminal, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidSize
	}
	t := &Terminal{
		rows:      rows,
		cols:      cols,
		cells:     makeGrid(rows, cols),
		dirty:     DirtyFull,
		dirtyRows: NewRowSet(rows),
		Palette:   NewPalette(),
		MouseCol:  -1,
		MouseRow:  -1,
		links:     make(map[uint32]Hyperlink),
	}
	t.Cursor.Visible = true
	return t, nil
}

func makeGrid(rows, cols int) [][]Cell {
	backing := make([]Cell, rows*cols)
	grid := make([][]Cell, rows)
	for r := range grid {
		grid[r] = backing[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return grid
}

// Size returns the grid dimensions.
func (t *Terminal) Size() (rows, cols int) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.rows, t.cols
}

// Resize reallocates the grid, keeping the overlapping region, and marks
// everything dirty.
func (t *Terminal) Resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return ErrInvalidSize
	}
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if rows == t.rows && cols == t.cols {
		return nil
	}
	next := makeGrid(rows, cols)
	for r := 0; r < rows && r < t.rows; r++ {
		copy(next[r], t.cells[r])
	}
	t.rows, t.cols = rows, cols
	t.cells = next
	t.dirtyRows = NewRowSet(rows)
	t.dirty = DirtyFull
	if t.Cursor.Row >= rows {
		t.Cursor.Row = rows - 1
	}
	if t.Cursor.Col > cols {
		t.Cursor.Col = cols
	}
	return nil
}

// SetCell writes one cell and flags its row. Wide runes occupy two columns;
// the tail cell is written with Width 0. Out-of-range positions are ignored.
func (t *Terminal) SetCell(row, col int, r rune, style Style) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.setCellLocked(row, col, r, style)
}

func (t *Terminal) setCellLocked(row, col int, r rune, style Style) {
	if row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		return
	}
	w := RuneDisplayWidth(r)
	if w == 2 && col == t.cols-1 {
		// A wide head cannot start in the last column.
		r, w = ' ', 1
	}
	t.cells[row][col] = Cell{Rune: r, Width: uint8(w), Style: style}
	if w == 2 {
		t.cells[row][col+1] = Cell{Width: 0, Style: style}
	}
	t.markRowLocked(row)
}

// WriteString writes s starting at (row, col), advancing by display width.
// It returns the column after the last written cell. No wrapping.
func (t *Terminal) WriteString(row, col int, s string, style Style) int {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	for _, r := range s {
		if col >= t.cols {
			break
		}
		t.setCellLocked(row, col, r, style)
		col += RuneDisplayWidth(r)
	}
	return col
}

// ClearRow blanks one row with the default style.
func (t *Terminal) ClearRow(row int) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if row < 0 || row >= t.rows {
		return
	}
	clear(t.cells[row])
	t.markRowLocked(row)
}

// RegisterHyperlink interns an OSC 8 target and returns a style id for it.
func (t *Terminal) RegisterHyperlink(uri, id string) uint32 {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.nextID++
	t.links[t.nextID] = Hyperlink{URI: uri, ID: id}
	return t.nextID
}

// HyperlinkLocked resolves a style's link id. Mu must be held.
func (t *Terminal) HyperlinkLocked(id uint32) (Hyperlink, bool) {
	l, ok := t.links[id]
	return l, ok
}

// MarkAllDirty forces a full rebuild on the next frame.
func (t *Terminal) MarkAllDirty() {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.dirty = DirtyFull
}

// MarkRowDirty flags one row as changed.
func (t *Terminal) MarkRowDirty(row int) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.markRowLocked(row)
}

func (t *Terminal) markRowLocked(row int) {
	t.dirtyRows.Mark(row)
	if t.dirty == DirtyNone {
		t.dirty = DirtyPartial
	}
}

// SetSynchronized toggles DEC mode 2026. Leaving synchronized mode marks
// the grid fully dirty so the held-back frames land at once.
func (t *Terminal) SetSynchronized(on bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Synchronized && !on {
		t.dirty = DirtyFull
	}
	t.Synchronized = on
}

// SizeLocked returns the grid dimensions. Mu must be held.
func (t *Terminal) SizeLocked() (rows, cols int) { return t.rows, t.cols }

// RowLocked returns the backing slice of one row. Mu must be held and the
// slice must not be retained past the unlock.
func (t *Terminal) RowLocked(row int) []Cell { return t.cells[row] }

// CellLocked returns one cell. Mu must be held.
func (t *Terminal) CellLocked(row, col int) Cell { return t.cells[row][col] }

// DirtyLocked returns the coarse dirty state. Mu must be held.
func (t *Terminal) DirtyLocked() Dirty { return t.dirty }

// DirtyRowsLocked returns the per-row flag set. Mu must be held.
func (t *Terminal) DirtyRowsLocked() *RowSet { return t.dirtyRows }

// ResetDirtyLocked clears both dirty levels after the renderer has copied
// its snapshot. Mu must be held.
func (t *Terminal) ResetDirtyLocked() {
	t.dirty = DirtyNone
	t.dirtyRows.Clear()
}

// HoveredHyperlinkLocked hit-tests the mouse position against the grid and
// returns the link id under it, 0 when there is none. Mu must be held.
func (t *Terminal) HoveredHyperlinkLocked() uint32 {
	if t.MouseRow < 0 || t.MouseRow >= t.rows || t.MouseCol < 0 || t.MouseCol >= t.cols {
		return 0
	}
	return t.cells[t.MouseRow][t.MouseCol].Style.Hyperlink
}
