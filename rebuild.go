package termgfx

import (
	"math"

	"github.com/gogpu/termgfx/font"
	"github.com/gogpu/termgfx/terminal"
)

// lockRune is the codepoint drawn for the lock cursor style.
const lockRune = '\U0001F512'

// rebuildCells converts the merged snapshot into GPU cell records and
// reports whether any record changed. Rows keep their prior records unless
// flagged dirty; cursor and preedit records are rebuilt every call because
// blink phase and composition state live outside the terminal grid.
func (r *Renderer) rebuildCells() bool {
	s := &r.state
	if s.rows == 0 || s.cols == 0 {
		return false
	}

	dimsChanged := r.cells.rows != s.rows || r.cells.cols != s.cols
	r.cells.resize(s.rows, s.cols)

	// Selection, search and link hover are renderer-side inputs: the grid
	// content is unchanged when they move, so the terminal never flags
	// rows for them.
	if s.selection != r.prevSelection {
		r.prevSelection = s.selection
		s.dirty = terminal.DirtyFull
	}
	if s.search != r.prevSearch {
		r.prevSearch = s.search
		s.dirty = terminal.DirtyFull
	}
	if s.hoveredLink != r.prevHovered {
		r.prevHovered = s.hoveredLink
		s.dirty = terminal.DirtyFull
	}
	if s.palette != r.prevPalette {
		r.prevPalette = s.palette
		s.dirty = terminal.DirtyFull
	}
	if s.current != r.prevCurrent {
		if r.prevCurrent.ok {
			s.markRow(r.prevCurrent.row)
		}
		if s.current.ok {
			s.markRow(s.current.row)
		}
		r.prevCurrent = s.current
	}

	// The preedit overlay obscures part of the cursor row, so that row is
	// rebuilt while composition is active and once more when it ends.
	if s.preedit.Active {
		s.markRow(s.cursor.Row)
		r.prevPreeditRow = s.cursor.Row
	} else if r.prevPreeditRow >= 0 {
		s.markRow(r.prevPreeditRow)
		r.prevPreeditRow = -1
	}

	full := dimsChanged || s.dirty == terminal.DirtyFull
	if full {
		r.cells.clearAll()
	}

	rowsChanged := false
	if full || s.dirty == terminal.DirtyPartial {
		for row := 0; row < s.rows; row++ {
			if !full && !s.rowDirty[row] {
				continue
			}
			r.rebuildRow(row)
			rowsChanged = true
		}
	}

	prevCursor := append(r.scratchFG[:0], r.cells.cursor...)
	prevPreedit := append(r.scratchFG2[:0], r.cells.preedit...)
	r.rebuildPreedit()
	r.rebuildCursor()
	r.scratchFG, r.scratchFG2 = prevCursor, prevPreedit

	changed := rowsChanged ||
		!fgEqual(prevCursor, r.cells.cursor) ||
		!fgEqual(prevPreedit, r.cells.preedit)

	if rowsChanged {
		r.cells.padExtend = r.computePadExtend()
	}
	s.clearDirty()
	return changed
}

func fgEqual(a, b []fgCell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// markRow flags one snapshot row for rebuild.
func (s *renderState) markRow(row int) {
	if row < 0 || row >= len(s.rowDirty) {
		return
	}
	s.rowDirty[row] = true
	if s.dirty == terminal.DirtyNone {
		s.dirty = terminal.DirtyPartial
	}
}

// preeditSpan returns the viewport columns the composition overlay covers,
// ok false when inactive.
func (r *Renderer) preeditSpan() (row, lo, hi int, ok bool) {
	s := &r.state
	if !s.preedit.Active || len(s.preedit.Runes) == 0 {
		return 0, 0, 0, false
	}
	row = clampInt(s.cursor.Row, 0, s.rows-1)
	lo = clampInt(s.cursor.Col, 0, s.cols-1)
	width := 0
	for _, pr := range s.preedit.Runes {
		width += terminal.RuneDisplayWidth(pr)
	}
	hi = lo + width - 1
	if hi >= s.cols {
		hi = s.cols - 1
	}
	return row, lo, hi, true
}

// rebuildRow regenerates the background and foreground records of one row.
// Glyph failures skip the glyph and keep going; the row never aborts.
func (r *Renderer) rebuildRow(row int) {
	s := &r.state
	cells := s.cells[row]
	bg := r.cells.bgRow(row)
	fg := r.cells.fgRows[row][:0]

	pRow, pLo, pHi, pActive := r.preeditSpan()
	inPreedit := func(col int) bool {
		return pActive && row == pRow && col >= pLo && col <= pHi
	}

	// First pass: backgrounds and decorations. Decorations go in front of
	// the glyph records so text draws over its own underline.
	for col := 0; col < s.cols; col++ {
		if inPreedit(col) {
			// The preedit overlay writes these columns itself.
			continue
		}
		c := cells[col]
		res := r.cellColors(c, col, row)

		bg[col] = res.bg

		if c.Width == 0 || !res.drawFg {
			continue
		}
		if res.covering {
			// The glyph fills the whole cell, so its color moves into
			// the background record and the glyph itself is dropped.
			continue
		}
		r.appendDecorations(&fg, c, col, row, res)
	}

	// Second pass: shaped glyph runs of adjacent same-style cells.
	r.runRunes = r.runRunes[:0]
	r.runCols = r.runCols[:0]
	var runStyle terminal.Style
	flush := func() {
		if len(r.runRunes) > 0 {
			r.shapeRun(&fg, row, runStyle)
		}
		r.runRunes = r.runRunes[:0]
		r.runCols = r.runCols[:0]
	}

	for col := 0; col < s.cols; col++ {
		c := cells[col]
		res := r.cellColors(c, col, row)
		drawable := !inPreedit(col) && c.Width != 0 && !c.IsEmpty() &&
			res.drawFg && !res.covering
		if !drawable {
			flush()
			continue
		}
		if len(r.runRunes) > 0 && c.Style != runStyle {
			flush()
		}
		runStyle = c.Style
		r.runRunes = append(r.runRunes, c.Rune)
		r.runCols = append(r.runCols, col)
	}
	flush()

	r.cells.fgRows[row] = fg
}

// cellColorResult is one cell's resolved drawing state.
type cellColorResult struct {
	fg    terminal.RGB
	bg    bgCell
	alpha uint8

	// drawFg is false for concealed cells.
	drawFg bool

	// covering means the glyph covers the cell and was folded into the
	// background record.
	covering bool
}

// cellColors resolves the final colors of one cell: style colors, SGR
// inverse/faint/invisible, highlight precedence, and the covering-glyph
// fold. Deterministic per snapshot, so cursor resolution can re-run it.
func (r *Renderer) cellColors(c terminal.Cell, col, row int) cellColorResult {
	s := &r.state
	pal := &s.palette

	fg := pal.Resolve(c.Style.FG, pal.Foreground)
	bgColor := pal.Resolve(c.Style.BG, pal.Background)
	bgExplicit := !c.Style.BG.IsDefault()

	if c.Style.Attrs.Has(terminal.AttrInverse) {
		fg, bgColor = bgColor, fg
		bgExplicit = true
	}

	kind := s.highlightAt(col, row)
	switch kind {
	case terminal.HighlightSelection:
		switch {
		case r.config.SelectionInvertFgBg:
			fg, bgColor = bgColor, fg
		case r.config.SelectionForeground != nil && r.config.SelectionBackground != nil:
			fg, bgColor = *r.config.SelectionForeground, *r.config.SelectionBackground
		case pal.SelectionColorsSet:
			fg, bgColor = pal.SelectionForeground, pal.SelectionBackground
		default:
			fg, bgColor = bgColor, fg
		}
		bgExplicit = true
	case terminal.HighlightSearchSelected:
		fg, bgColor = r.config.SearchSelectedForeground, r.config.SearchSelectedBackground
		bgExplicit = true
	case terminal.HighlightSearch:
		fg, bgColor = r.config.SearchForeground, r.config.SearchBackground
		bgExplicit = true
	}

	res := cellColorResult{fg: fg, alpha: 255, drawFg: true}
	if c.Style.Attrs.Has(terminal.AttrFaint) {
		res.alpha = 127
	}
	if c.Style.Attrs.Has(terminal.AttrInvisible) {
		res.drawFg = false
	}

	// Covering glyphs paint the cell with their foreground so padding
	// extension picks the color up seamlessly.
	if kind == terminal.HighlightNone && res.drawFg && c.Width != 0 &&
		isCoveringRune(c.Rune) {
		res.covering = true
		res.bg = premul(fg, res.alpha)
		res.fg = fg
		return res
	}

	if bgExplicit {
		res.bg = premul(bgColor, 255)
	}
	return res
}

// isCoveringRune reports runes whose glyph fills the entire cell.
func isCoveringRune(r rune) bool {
	return r == 0x2588 // full block
}

// appendDecorations emits the underline, overline and strikethrough
// records of one cell. A hovered hyperlink upgrades the underline: bare
// text gains a single underline, underlined text switches to double.
func (r *Renderer) appendDecorations(fg *[]fgCell, c terminal.Cell, col, row int, res cellColorResult) {
	span := 1
	if c.Width == 2 {
		span = 2
	}

	underline := c.Style.Underline
	if c.Style.Hyperlink != 0 && c.Style.Hyperlink == r.state.hoveredLink {
		if underline == terminal.UnderlineNone {
			underline = terminal.UnderlineSingle
		} else {
			underline = terminal.UnderlineDouble
		}
	}

	if underline != terminal.UnderlineNone {
		color := res.fg
		if !c.Style.UnderlineColor.IsDefault() {
			color = r.state.palette.Resolve(c.Style.UnderlineColor, res.fg)
		}
		r.appendSprite(fg, underlineSprite(underline), col, row, span, premul(color, res.alpha))
	}
	if c.Style.Attrs.Has(terminal.AttrOverline) {
		r.appendSprite(fg, font.SpriteOverline, col, row, span, premul(res.fg, res.alpha))
	}
	if c.Style.Attrs.Has(terminal.AttrStrikethrough) {
		r.appendSprite(fg, font.SpriteStrikethrough, col, row, span, premul(res.fg, res.alpha))
	}
}

func underlineSprite(u terminal.UnderlineStyle) font.Sprite {
	switch u {
	case terminal.UnderlineDouble:
		return font.SpriteUnderlineDouble
	case terminal.UnderlineCurly:
		return font.SpriteUnderlineCurly
	case terminal.UnderlineDotted:
		return font.SpriteUnderlineDotted
	case terminal.UnderlineDashed:
		return font.SpriteUnderlineDashed
	default:
		return font.SpriteUnderline
	}
}

// appendSprite emits one full-cell sprite record. Rasterization failures
// log and drop the record.
func (r *Renderer) appendSprite(fg *[]fgCell, s font.Sprite, col, row, span int, color [4]uint8) {
	g, err := r.grid.RenderSprite(s, span)
	if err != nil {
		Logger().Warn("sprite render failed", "sprite", s, "err", err)
		return
	}
	*fg = append(*fg, fgCell{
		GlyphPos:  [2]uint32{g.X, g.Y},
		GlyphSize: [2]uint32{g.Width, g.Height},
		DestSize:  [2]uint16{clampU16(int(g.Width)), clampU16(int(g.Height))},
		Bearings:  [2]int16{0, 0},
		GridPos:   gridPos(col, row),
		Color:     color,
		Mode:      modeGlyph,
		CellWidth: uint8(span), //nolint:gosec // span is 1 or 2
	})
}

// shapeRun shapes the gathered run and emits one glyph record per shaped
// glyph, anchored to the grid column of the rune that produced it. The run
// is split by resolved face first, then by script and direction.
func (r *Renderer) shapeRun(fg *[]fgCell, row int, style terminal.Style) {
	runes, cols := r.runRunes, r.runCols
	faceStyle := font.FaceStyle(style.FontStyle())

	start := 0
	var startFace int
	for i := 0; i <= len(runes); i++ {
		var fi int
		if i < len(runes) {
			fi, _ = r.grid.Resolve(faceStyle, runes[i])
			if i == 0 {
				startFace = fi
			}
			if fi == startFace {
				continue
			}
		}
		group, groupCols := runes[start:i], cols[start:i]
		for _, seg := range font.SegmentRunes(group) {
			shaped := r.grid.Shape(startFace, group, seg)
			r.emitShaped(fg, row, startFace, shaped, seg, groupCols)
		}
		start, startFace = i, fi
	}
}

// emitShaped turns one shaped segment into glyph records.
func (r *Renderer) emitShaped(fg *[]fgCell, row, faceIndex int, shaped []font.ShapedGlyph, seg font.Segment, cols []int) {
	s := &r.state
	m := r.metrics
	cellW := float64(m.CellWidth)
	opts := font.RenderOptions{
		Thicken:         r.config.ThickenFont,
		ThickenStrength: r.config.ThickenStrength,
	}

	for _, sg := range shaped {
		idx := seg.Start + sg.Cluster
		if idx < 0 || idx >= len(cols) {
			continue
		}
		col := cols[idx]
		cell := s.cells[row][col]
		res := r.cellColors(cell, col, row)

		glyph, err := r.grid.RenderGlyph(faceIndex, sg.GID, opts)
		if err != nil {
			Logger().Debug("glyph render failed", "rune", string(cell.Rune), "err", err)
			continue
		}
		if glyph.Width == 0 || glyph.Height == 0 {
			continue
		}

		span := 1
		if cell.Width == 2 {
			span = 2
		}

		// Pen position relative to the anchoring cell: the shaper works in
		// segment space, the grid pins each cluster to its column.
		penX := sg.X - float64(col-cols[seg.Start])*cellW
		penY := sg.Y

		var destW, destH uint32
		var bearingX, bearingY int
		if c, ok := constraintForRune(cell.Rune); ok {
			box := c.Apply(font.Box{
				Width:  float64(glyph.Width),
				Height: float64(glyph.Height),
				X:      float64(glyph.OffsetX) + penX,
				Y:      float64(m.CellHeight-m.Baseline) + float64(glyph.OffsetY) - float64(glyph.Height) + penY,
			}, cellW, float64(m.CellHeight), span)
			if box.Width < 1 || box.Height < 1 {
				continue
			}
			destW = uint32(math.Round(box.Width))  //nolint:gosec // solver output is bounded
			destH = uint32(math.Round(box.Height)) //nolint:gosec // solver output is bounded
			bearingX = int(math.Round(box.X))
			bearingY = int(math.Round(float64(m.CellHeight) - box.Y - box.Height))
		} else {
			destW, destH = glyph.Width, glyph.Height
			bearingX = int(glyph.OffsetX) + int(math.Round(penX))
			bearingY = m.Baseline - int(glyph.OffsetY) - int(math.Round(penY))
		}

		mode := modeGlyph
		color := premul(res.fg, res.alpha)
		if glyph.Kind == font.AtlasColor {
			mode = modeColorGlyph
			color = [4]uint8{res.alpha, res.alpha, res.alpha, res.alpha}
		}

		*fg = append(*fg, fgCell{
			GlyphPos:  [2]uint32{glyph.X, glyph.Y},
			GlyphSize: [2]uint32{glyph.Width, glyph.Height},
			DestSize:  [2]uint16{clampU16(int(destW)), clampU16(int(destH))},
			Bearings:  [2]int16{clampI16(bearingX), clampI16(bearingY)},
			GridPos:   gridPos(col, row),
			Color:     color,
			Mode:      mode,
			CellWidth: uint8(span), //nolint:gosec // span is 1 or 2
		})
	}
}

// rebuildCursor regenerates the cursor records. The block style fills the
// cell and redraws the covered glyphs in the cursor text color; the other
// styles draw a sprite. A cursor on a wide tail shifts back to the head.
func (r *Renderer) rebuildCursor() {
	s := &r.state
	out := r.cells.cursor[:0]
	defer func() { r.cells.cursor = out }()

	if !s.cursor.Visible || !s.cursorBlink || s.preedit.Active {
		return
	}
	row := clampInt(s.cursor.Row, 0, s.rows-1)
	col := clampInt(s.cursor.Col, 0, s.cols-1)
	if s.cells[row][col].Width == 0 && col > 0 {
		col--
	}
	cell := s.cells[row][col]
	span := 1
	if cell.Width == 2 {
		span = 2
	}

	res := r.cellColors(cell, col, row)
	cursorColor, textColor := r.cursorColors(res)
	alpha := uint8(clampInt(int(math.Round(r.config.CursorOpacity*255)), 0, 255)) //nolint:gosec // clamped

	switch s.cursor.Style {
	case terminal.CursorBlock:
		out = append(out, fgCell{
			DestSize:  [2]uint16{clampU16(r.metrics.CellWidth * span), clampU16(r.metrics.CellHeight)},
			GridPos:   gridPos(col, row),
			Color:     premul(cursorColor, alpha),
			Mode:      modeSolid,
			CellWidth: uint8(span), //nolint:gosec // span is 1 or 2
		})
		// Redraw the covered glyphs so text stays readable inside the
		// block.
		for _, rec := range r.cells.fgRows[row] {
			if rec.GridPos != gridPos(col, row) || rec.Mode == modeSolid {
				continue
			}
			rec.Color = premul(textColor, 255)
			if rec.Mode == modeColorGlyph {
				rec.Color = [4]uint8{255, 255, 255, 255}
			}
			out = append(out, rec)
		}
	case terminal.CursorBlockHollow:
		out = r.appendCursorSprite(out, font.SpriteCursorHollow, col, row, span, premul(cursorColor, alpha))
	case terminal.CursorBar:
		out = r.appendCursorSprite(out, font.SpriteCursorBar, col, row, span, premul(cursorColor, alpha))
	case terminal.CursorUnderline:
		out = r.appendCursorSprite(out, font.SpriteCursorUnderline, col, row, span, premul(cursorColor, alpha))
	case terminal.CursorLock:
		out = r.appendLockCursor(out, col, row, span, premul(cursorColor, alpha))
	}
}

// cursorColors picks the cursor fill and cursor text colors: the terminal
// OSC 12 override wins, then the configured rule, then the default
// foreground.
func (r *Renderer) cursorColors(cell cellColorResult) (cursor, text terminal.RGB) {
	s := &r.state
	cellBG := terminal.RGB{R: cell.bg[0], G: cell.bg[1], B: cell.bg[2]}
	if cell.bg[3] == 0 {
		cellBG = s.palette.Background
	}

	switch {
	case s.palette.CursorColorSet:
		cursor = s.palette.CursorColor
	case r.config.CursorInvertFgBg:
		cursor = cell.fg
	case r.config.CursorColor != nil:
		cursor = *r.config.CursorColor
	default:
		cursor = s.palette.Foreground
	}

	switch {
	case r.config.CursorText != nil:
		text = *r.config.CursorText
	default:
		text = cellBG
	}
	return cursor, text
}

func (r *Renderer) appendCursorSprite(out []fgCell, s font.Sprite, col, row, span int, color [4]uint8) []fgCell {
	g, err := r.grid.RenderSprite(s, span)
	if err != nil {
		Logger().Warn("cursor sprite failed", "sprite", s, "err", err)
		return out
	}
	return append(out, fgCell{
		GlyphPos:  [2]uint32{g.X, g.Y},
		GlyphSize: [2]uint32{g.Width, g.Height},
		DestSize:  [2]uint16{clampU16(int(g.Width)), clampU16(int(g.Height))},
		GridPos:   gridPos(col, row),
		Color:     color,
		Mode:      modeGlyph,
		CellWidth: uint8(span), //nolint:gosec // span is 1 or 2
	})
}

// appendLockCursor draws the lock codepoint instead of a sprite.
func (r *Renderer) appendLockCursor(out []fgCell, col, row, span int, color [4]uint8) []fgCell {
	fi, face := r.grid.Resolve(font.StyleRegular, lockRune)
	gid := face.GlyphIndex(lockRune)
	if gid == 0 {
		return r.appendCursorSprite(out, font.SpriteCursorHollow, col, row, span, color)
	}
	glyph, err := r.grid.RenderGlyph(fi, gid, font.RenderOptions{})
	if err != nil || glyph.Width == 0 || glyph.Height == 0 {
		return r.appendCursorSprite(out, font.SpriteCursorHollow, col, row, span, color)
	}

	m := r.metrics
	c := font.Constraint{
		Size:            font.SizeFitCoverSingle,
		AlignHorizontal: font.AlignCenter,
		AlignVertical:   font.AlignCenter,
		MaxSpan:         span,
	}
	box := c.Apply(font.Box{
		Width:  float64(glyph.Width),
		Height: float64(glyph.Height),
		X:      float64(glyph.OffsetX),
		Y:      float64(m.CellHeight-m.Baseline) + float64(glyph.OffsetY) - float64(glyph.Height),
	}, float64(m.CellWidth), float64(m.CellHeight), span)

	mode := modeGlyph
	if glyph.Kind == font.AtlasColor {
		mode = modeColorGlyph
		color = [4]uint8{255, 255, 255, 255}
	}
	return append(out, fgCell{
		GlyphPos:  [2]uint32{glyph.X, glyph.Y},
		GlyphSize: [2]uint32{glyph.Width, glyph.Height},
		DestSize:  [2]uint16{clampU16(int(math.Round(box.Width))), clampU16(int(math.Round(box.Height)))},
		Bearings: [2]int16{
			clampI16(int(math.Round(box.X))),
			clampI16(int(math.Round(float64(m.CellHeight) - box.Y - box.Height))),
		},
		GridPos:   gridPos(col, row),
		Color:     color,
		Mode:      mode,
		CellWidth: uint8(span), //nolint:gosec // span is 1 or 2
	})
}

// rebuildPreedit appends the composition overlay: inverted colors, a
// single underline per cell, anchored at the cursor column. The overlay
// also owns the background records of the columns it covers.
func (r *Renderer) rebuildPreedit() {
	s := &r.state
	out := r.cells.preedit[:0]
	defer func() { r.cells.preedit = out }()

	row, lo, _, ok := r.preeditSpan()
	if !ok {
		return
	}

	m := r.metrics
	fgColor := s.palette.Background
	bgColor := s.palette.Foreground
	bgRec := premul(bgColor, 255)
	bg := r.cells.bgRow(row)

	col := lo
	for _, pr := range s.preedit.Runes {
		w := terminal.RuneDisplayWidth(pr)
		if col+w > s.cols {
			break
		}
		for i := 0; i < w; i++ {
			bg[col+i] = bgRec
		}

		r.appendSprite(&out, font.SpriteUnderline, col, row, w, premul(fgColor, 255))

		fi, face := r.grid.Resolve(font.StyleRegular, pr)
		if gid := face.GlyphIndex(pr); gid != 0 {
			glyph, err := r.grid.RenderGlyph(fi, gid, font.RenderOptions{})
			if err != nil {
				Logger().Debug("preedit glyph failed", "rune", string(pr), "err", err)
			} else if glyph.Width > 0 && glyph.Height > 0 {
				mode := modeGlyph
				color := premul(fgColor, 255)
				if glyph.Kind == font.AtlasColor {
					mode = modeColorGlyph
					color = [4]uint8{255, 255, 255, 255}
				}
				out = append(out, fgCell{
					GlyphPos:  [2]uint32{glyph.X, glyph.Y},
					GlyphSize: [2]uint32{glyph.Width, glyph.Height},
					DestSize:  [2]uint16{clampU16(int(glyph.Width)), clampU16(int(glyph.Height))},
					Bearings: [2]int16{
						clampI16(int(glyph.OffsetX)),
						clampI16(m.Baseline - int(glyph.OffsetY)),
					},
					GridPos:   gridPos(col, row),
					Color:     color,
					Mode:      mode,
					CellWidth: uint8(w), //nolint:gosec // width is 1 or 2
				})
			}
		}
		col += w
	}
}

// computePadExtend decides which window padding sides take on the edge
// cells' background colors: a side extends when more than half its edge
// cells carry an explicit background.
func (r *Renderer) computePadExtend() uint32 {
	if !r.config.PaddingExtend {
		return 0
	}
	c := &r.cells
	if c.rows == 0 || c.cols == 0 {
		return 0
	}

	var mask uint32
	count := func(at func(i int) bgCell, n int) bool {
		set := 0
		for i := 0; i < n; i++ {
			if at(i)[3] != 0 {
				set++
			}
		}
		return set*2 > n
	}

	if count(func(i int) bgCell { return c.bg[i*c.cols] }, c.rows) {
		mask |= padExtendLeft
	}
	if count(func(i int) bgCell { return c.bg[i*c.cols+c.cols-1] }, c.rows) {
		mask |= padExtendRight
	}
	if count(func(i int) bgCell { return c.bg[i] }, c.cols) {
		mask |= padExtendUp
	}
	if count(func(i int) bgCell { return c.bg[(c.rows-1)*c.cols+i] }, c.cols) {
		mask |= padExtendDown
	}
	return mask
}

// constraintForRune returns the placement rule for symbol and icon
// codepoints. Text runes come back unconstrained.
func constraintForRune(r rune) (font.Constraint, bool) {
	switch {
	case r >= 0x2500 && r <= 0x259F:
		// Box drawing and block elements stretch so segments join across
		// cell boundaries.
		return font.Constraint{Size: font.SizeStretch, MaxSpan: 1}, true
	case r >= 0xE0B0 && r <= 0xE0D4:
		// Powerline separators.
		return font.Constraint{Size: font.SizeStretch, MaxSpan: 1}, true
	case r >= 0xE000 && r <= 0xF8FF:
		// Private use area: nerd font icons.
		return font.Constraint{
			Size:            font.SizeFitCoverSingle,
			AlignHorizontal: font.AlignCenterFirst,
			AlignVertical:   font.AlignCenter,
			MaxSpan:         2,
		}, true
	case r >= 0x1F300 && r <= 0x1FAFF, r >= 0x2600 && r <= 0x27BF:
		// Emoji and dingbats.
		return font.Constraint{
			Size:            font.SizeFitCoverSingle,
			AlignHorizontal: font.AlignCenter,
			AlignVertical:   font.AlignCenter,
			MaxSpan:         2,
		}, true
	default:
		return font.Constraint{}, false
	}
}

// premul converts a resolved color to a premultiplied RGBA record.
func premul(c terminal.RGB, alpha uint8) [4]uint8 {
	if alpha == 255 {
		return [4]uint8{c.R, c.G, c.B, 255}
	}
	a := uint32(alpha)
	return [4]uint8{
		uint8(uint32(c.R) * a / 255), //nolint:gosec // bounded by c.R
		uint8(uint32(c.G) * a / 255), //nolint:gosec // bounded by c.G
		uint8(uint32(c.B) * a / 255), //nolint:gosec // bounded by c.B
		alpha,
	}
}

func gridPos(col, row int) [2]uint16 {
	return [2]uint16{clampU16(col), clampU16(row)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

func clampI16(v int) int16 {
	if v < math.MinInt16 {
		return math.MinInt16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}
