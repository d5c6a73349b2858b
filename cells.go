package termgfx

// fgMode tells the cell shader how to color one foreground instance.
// Values are shared with the WGSL sources.
type fgMode uint8

const (
	// modeGlyph samples the grayscale atlas and tints with the instance
	// color.
	modeGlyph fgMode = 1

	// modeColorGlyph samples the color atlas and uses the texel color,
	// scaled by the instance alpha.
	modeColorGlyph fgMode = 2

	// modeSolid ignores the atlas and fills the instance rectangle with
	// the instance color. The block cursor uses this.
	modeSolid fgMode = 3
)

// bgCell is one cell's background color, premultiplied RGBA. The
// background grid carries exactly one record per cell.
type bgCell [4]uint8

// fgCell is one instanced foreground draw: a glyph, a decoration stroke,
// or a cursor. Layout matches the vertex declaration in the cell shader.
type fgCell struct {
	// GlyphPos is the atlas texel origin; unused in solid mode.
	GlyphPos [2]uint32

	// GlyphSize is the sampled atlas region in texels; unused in solid
	// mode.
	GlyphSize [2]uint32

	// DestSize is the on-screen quad size in pixels. It differs from
	// GlyphSize when a placement constraint rescaled the glyph.
	DestSize [2]uint16

	// Bearings offset the quad from the cell origin: x right from the
	// cell's left edge, y down from the cell's top edge.
	Bearings [2]int16

	// GridPos is the cell column and row.
	GridPos [2]uint16

	// Color is premultiplied RGBA.
	Color [4]uint8

	Mode fgMode

	// CellWidth is the column span the instance may cover, 1 or 2.
	CellWidth uint8

	_ [2]uint8
}

// fgCellStride is the byte size of one fgCell record in the instance
// buffer.
const fgCellStride = 36

// padSide bits name the surface sides whose padding takes on the
// neighboring cells' background colors.
const (
	padExtendLeft uint32 = 1 << iota
	padExtendRight
	padExtendUp
	padExtendDown
)

// cellContents is the CPU mirror of the GPU cell buffers: one background
// record per cell and per-row foreground record lists. Rebuilt row-wise;
// resized (and fully cleared) only when the grid dimensions change.
type cellContents struct {
	rows, cols int

	// bg holds rows*cols records in row-major order.
	bg []bgCell

	// fgRows holds the foreground records of each row. A row rebuild
	// replaces its slice contents; untouched rows keep their records.
	fgRows [][]fgCell

	// cursor and preedit are appended after row processing and drawn
	// last.
	cursor  []fgCell
	preedit []fgCell

	// padExtend is the current padding-extension side mask.
	padExtend uint32
}

// resize reallocates for a new grid size and clears everything. No-op
// when dimensions are unchanged.
func (c *cellContents) resize(rows, cols int) {
	if rows == c.rows && cols == c.cols && c.bg != nil {
		return
	}
	c.rows, c.cols = rows, cols
	c.bg = make([]bgCell, rows*cols)
	c.fgRows = make([][]fgCell, rows)
	c.cursor = nil
	c.preedit = nil
	c.padExtend = 0
}

// clearAll blanks every record without reallocating row capacity.
func (c *cellContents) clearAll() {
	clear(c.bg)
	for i := range c.fgRows {
		c.fgRows[i] = c.fgRows[i][:0]
	}
	c.cursor = c.cursor[:0]
	c.preedit = c.preedit[:0]
	c.padExtend = 0
}

// bgRow returns the background records of one row.
func (c *cellContents) bgRow(row int) []bgCell {
	return c.bg[row*c.cols : (row+1)*c.cols]
}

// fgCount returns the total foreground record count including cursor and
// preedit records.
func (c *cellContents) fgCount() int {
	n := len(c.cursor) + len(c.preedit)
	for _, row := range c.fgRows {
		n += len(row)
	}
	return n
}

// appendAll gathers every foreground record in draw order: rows top to
// bottom, then preedit, then cursor on top.
func (c *cellContents) appendAll(dst []fgCell) []fgCell {
	for _, row := range c.fgRows {
		dst = append(dst, row...)
	}
	dst = append(dst, c.preedit...)
	dst = append(dst, c.cursor...)
	return dst
}
