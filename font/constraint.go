package font

import "math"

// SizeRule says how a glyph is scaled into its cell span.
type SizeRule uint8

const (
	// SizeNone leaves the glyph at its natural size.
	SizeNone SizeRule = iota

	// SizeFit scales uniformly down, never up, so the glyph stays inside
	// the padded span.
	SizeFit

	// SizeCover scales uniformly so the glyph fills the padded span in at
	// least one axis; the other axis may overflow.
	SizeCover

	// SizeFitCoverSingle fits the glyph to the padded span but never lets
	// it shrink below the scale that would cover a single cell. Icons keep
	// their size when a neighboring blank opens a second cell.
	SizeFitCoverSingle

	// SizeStretch fills the padded span exactly with independent axis
	// scales. The result depends only on the cell grid, not the glyph, so
	// stretched segments join seamlessly across cell boundaries.
	SizeStretch
)

func (s SizeRule) String() string {
	switch s {
	case SizeNone:
		return "none"
	case SizeFit:
		return "fit"
	case SizeCover:
		return "cover"
	case SizeFitCoverSingle:
		return "fit-cover-single"
	case SizeStretch:
		return "stretch"
	default:
		return "unknown"
	}
}

// Align positions a glyph along one axis of its padded span.
// The vertical axis runs bottom-up: AlignStart is the cell bottom.
type Align uint8

const (
	// AlignNone keeps the glyph's own bearing, clamped so it cannot
	// protrude from its allotted cells.
	AlignNone Align = iota
	AlignStart
	AlignEnd
	AlignCenter

	// AlignCenterFirst centers within the first cell of a multi-cell
	// span. Horizontal only.
	AlignCenterFirst
)

// Box is a glyph placement: pixel size plus the offset of its lower-left
// corner from the cell origin (x right from the left edge, y up from the
// bottom edge).
type Box struct {
	Width, Height float64
	X, Y          float64
}

// Constraint is a pure sizing/alignment rule applied to symbol and icon
// glyphs during cell build. The zero value constrains nothing.
type Constraint struct {
	Size SizeRule

	AlignHorizontal Align
	AlignVertical   Align

	// Padding fractions of the target span per side. Negative values let
	// the glyph bleed outside the cell, except in stretch mode where they
	// clamp to zero.
	PadLeft, PadRight, PadTop, PadBottom float64

	// Group places the glyph inside a multi-glyph scale group: the box is
	// the glyph's fraction of the group's combined extent. Glyphs sharing
	// a group are sized as one and keep their relative offsets. The zero
	// value means the glyph is its own group.
	Group Box

	// MaxAspect caps width at MaxAspect*height after scaling. Zero means
	// no cap.
	MaxAspect float64

	// MaxSpan is the widest cell span the glyph may use, 1 or 2. Zero
	// means 1.
	MaxSpan int
}

// none reports whether the constraint is a no-op.
func (c Constraint) none() bool {
	return c.Size == SizeNone && c.AlignHorizontal == AlignNone && c.AlignVertical == AlignNone
}

// Apply computes the final placement of a glyph with natural box g inside
// span cells of cellW x cellH pixels. span is clamped to [1, MaxSpan].
// A zero constraint returns g unchanged.
func (c Constraint) Apply(g Box, cellW, cellH float64, span int) Box {
	if c.none() || g.Width <= 0 || g.Height <= 0 || cellW <= 0 || cellH <= 0 {
		return g
	}

	maxSpan := c.MaxSpan
	if maxSpan < 1 {
		maxSpan = 1
	}
	if span < 1 {
		span = 1
	}
	if span > maxSpan {
		span = maxSpan
	}
	targetW := cellW * float64(span)
	targetH := cellH

	padL, padR := c.PadLeft, c.PadRight
	padT, padB := c.PadTop, c.PadBottom
	if c.Size == SizeStretch {
		padL = math.Max(padL, 0)
		padR = math.Max(padR, 0)
		padT = math.Max(padT, 0)
		padB = math.Max(padB, 0)
	}
	availW := targetW * (1 - padL - padR)
	availH := targetH * (1 - padT - padB)
	originX := targetW * padL
	originY := targetH * padB

	// The size rules see the virtual group box, so grouped glyphs scale
	// together.
	grp := c.Group
	if grp.Width <= 0 || grp.Height <= 0 {
		grp = Box{Width: 1, Height: 1}
	}
	vw := g.Width / grp.Width
	vh := g.Height / grp.Height

	sx, sy := 1.0, 1.0
	switch c.Size {
	case SizeFit:
		sx = fitScale(vw, vh, availW, availH)
		sy = sx
	case SizeCover:
		sx = math.Max(availW/vw, availH/vh)
		sy = sx
	case SizeFitCoverSingle:
		fit := fitScale(vw, vh, availW, availH)
		floor := math.Max(cellW*(1-padL-padR)/vw, cellH*(1-padT-padB)/vh)
		sx = math.Max(fit, floor)
		sy = sx
	case SizeStretch:
		sx = availW / vw
		sy = availH / vh
	}

	width := g.Width * sx
	height := g.Height * sy
	vwS := vw * sx
	vhS := vh * sy

	if c.MaxAspect > 0 && width > height*c.MaxAspect {
		f := height * c.MaxAspect / width
		width *= f
		vwS *= f
		sx *= f
	}

	// Place the virtual box, then offset the glyph by its position inside
	// the group.
	var vx float64
	switch c.AlignHorizontal {
	case AlignStart:
		vx = originX
	case AlignEnd:
		vx = originX + availW - vwS
	case AlignCenter:
		vx = originX + (availW-vwS)/2
	case AlignCenterFirst:
		vx = cellW*padL + (cellW*(1-padL-padR)-vwS)/2
	default:
		vx = clampAxis(g.X*sx, vwS, targetW)
	}

	var vy float64
	switch c.AlignVertical {
	case AlignStart:
		vy = originY
	case AlignEnd:
		vy = originY + availH - vhS
	case AlignCenter:
		vy = originY + (availH-vhS)/2
	default:
		vy = clampAxis(g.Y*sy, vhS, targetH)
	}

	return Box{
		Width:  width,
		Height: height,
		X:      vx + grp.X*vw*sx,
		Y:      vy + grp.Y*vh*sy,
	}
}

// fitScale is the uniform scale-down factor, 1 when the box already fits.
func fitScale(w, h, availW, availH float64) float64 {
	if w <= availW && h <= availH {
		return 1
	}
	return math.Min(availW/w, availH/h)
}

// clampAxis keeps a bearing inside [0, target-size], preferring the start
// edge when the glyph cannot fit.
func clampAxis(pos, size, target float64) float64 {
	if pos+size > target {
		pos = target - size
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}
