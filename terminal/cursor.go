package terminal

// CursorStyle selects the cursor shape the renderer draws.
type CursorStyle uint8

const (
	CursorBlock CursorStyle = iota
	CursorBlockHollow
	CursorBar
	CursorUnderline
	CursorLock
)

func (s CursorStyle) String() string {
	switch s {
	case CursorBlock:
		return "block"
	case CursorBlockHollow:
		return "block-hollow"
	case CursorBar:
		return "bar"
	case CursorUnderline:
		return "underline"
	case CursorLock:
		return "lock"
	default:
		return "unknown"
	}
}

// Cursor is the visible cursor state within the viewport.
type Cursor struct {
	// Col and Row are viewport coordinates. Row is always in range;
	// Col may equal Cols when the cursor sits in the pending-wrap column.
	Col int
	Row int

	Style   CursorStyle
	Visible bool
}
