package font

import (
	"fmt"
	"math"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Metrics are the integer pixel measurements of one grid cell and the
// decoration strokes drawn into it. Vertical positions are y-down from the
// cell top.
type Metrics struct {
	CellWidth  int
	CellHeight int

	// Baseline is the distance from the cell top to the text baseline.
	Baseline int

	UnderlinePosition  int
	UnderlineThickness int

	StrikethroughPosition  int
	StrikethroughThickness int

	OverlinePosition  int
	OverlineThickness int

	// CursorThickness is the stroke width of bar and underline cursors.
	CursorThickness int
}

// MetricOverrides are optional user adjustments applied after derivation.
// Zero fields keep the derived value.
type MetricOverrides struct {
	CellWidthAdjust  int
	CellHeightAdjust int
	UnderlineOffset  int
}

// CalcMetrics derives cell metrics from a face at the given pixel size.
// The cell is wide enough for the widest common ASCII advance and tall
// enough for one line at the face's recommended spacing.
func CalcMetrics(f *Face, sizePx float64, ov MetricOverrides) (Metrics, error) {
	if f == nil {
		return Metrics{}, fmt.Errorf("font: metrics require a face")
	}
	if sizePx <= 0 {
		return Metrics{}, fmt.Errorf("font: size %v must be positive", sizePx)
	}
	ppem := fixed.Int26_6(math.Round(sizePx * 64))
	var buf sfnt.Buffer

	fm, err := f.sfnt.Metrics(&buf, ppem, xfont.HintingNone)
	if err != nil {
		return Metrics{}, fmt.Errorf("font: metrics: %w", err)
	}

	ascent := fm.Ascent.Ceil()
	descent := fm.Descent.Ceil()
	cellHeight := fm.Height.Ceil()
	if cellHeight < ascent+descent {
		cellHeight = ascent + descent
	}
	gap := cellHeight - ascent - descent
	baseline := ascent + gap/2

	cellWidth := 0
	for _, r := range "0MW@" {
		gi, err := f.sfnt.GlyphIndex(&buf, r)
		if err != nil || gi == 0 {
			continue
		}
		adv, err := f.sfnt.GlyphAdvance(&buf, gi, ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		if w := adv.Ceil(); w > cellWidth {
			cellWidth = w
		}
	}
	if cellWidth == 0 {
		cellWidth = int(math.Ceil(sizePx / 2))
	}

	scale := sizePx / float64(f.sfnt.UnitsPerEm())
	underPos := baseline + int(math.Round(0.1*sizePx))
	underThick := max(1, int(math.Round(0.07*sizePx)))
	if post := f.sfnt.PostTable(); post != nil {
		if post.UnderlineThickness != 0 {
			underThick = max(1, int(math.Round(float64(post.UnderlineThickness)*scale)))
		}
		if post.UnderlinePosition != 0 {
			// Post table positions are font units above the baseline,
			// negative below.
			underPos = baseline - int(math.Round(float64(post.UnderlinePosition)*scale))
		}
	}
	if underPos+underThick > cellHeight {
		underPos = cellHeight - underThick
	}

	strikePos := baseline - fm.XHeight.Ceil()/2
	if strikePos < 0 {
		strikePos = baseline / 2
	}

	m := Metrics{
		CellWidth:              cellWidth + ov.CellWidthAdjust,
		CellHeight:             cellHeight + ov.CellHeightAdjust,
		Baseline:               baseline,
		UnderlinePosition:      underPos + ov.UnderlineOffset,
		UnderlineThickness:     underThick,
		StrikethroughPosition:  strikePos,
		StrikethroughThickness: underThick,
		OverlinePosition:       0,
		OverlineThickness:      underThick,
		CursorThickness:        max(1, underThick),
	}
	if m.CellWidth < 1 {
		m.CellWidth = 1
	}
	if m.CellHeight < 1 {
		m.CellHeight = 1
	}
	return m, nil
}

