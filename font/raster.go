package font

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	tsfont "github.com/go-text/typesetting/font"
	xdraw "golang.org/x/image/draw"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// ErrGlyphFormat reports embedded glyph data in a format the rasterizer
// cannot decode.
var ErrGlyphFormat = errors.New("font: unsupported glyph data format")

// renderedGlyph is one rasterized glyph before atlas packing. Exactly one
// of alpha/color is set for ink-bearing glyphs; both nil means a blank
// glyph (space).
type renderedGlyph struct {
	alpha *image.Alpha
	color *image.RGBA

	// bearingX is the pixel offset from the pen origin to the bitmap's
	// left edge; bearingY runs from the baseline up to the bitmap's top.
	bearingX int
	bearingY int

	advance float32
}

// render rasterizes a glyph at the given pixel-per-em size. Outline glyphs
// go through the sfnt loader; fonts without outlines (bitmap emoji) fall
// back to their embedded PNG strikes.
func (f *Face) render(gid GlyphID, ppem fixed.Int26_6) (renderedGlyph, error) {
	g, err := f.renderOutline(gid, ppem)
	if err == nil {
		return g, nil
	}
	if bg, berr := f.renderBitmap(gid, ppem); berr == nil {
		return bg, nil
	}
	return renderedGlyph{}, err
}

func (f *Face) renderOutline(gid GlyphID, ppem fixed.Int26_6) (renderedGlyph, error) {
	var buf sfnt.Buffer
	segs, err := f.sfnt.LoadGlyph(&buf, sfnt.GlyphIndex(gid), ppem, nil)
	if err != nil {
		return renderedGlyph{}, fmt.Errorf("font: load glyph %d: %w", gid, err)
	}

	var advance float32
	if adv, err := f.sfnt.GlyphAdvance(&buf, sfnt.GlyphIndex(gid), ppem, xfont.HintingNone); err == nil {
		advance = fixedToFloat32(adv)
	}
	if len(segs) == 0 {
		return renderedGlyph{advance: advance}, nil
	}

	bounds, _, err := f.sfnt.GlyphBounds(&buf, sfnt.GlyphIndex(gid), ppem, xfont.HintingNone)
	if err != nil {
		return renderedGlyph{}, fmt.Errorf("font: glyph bounds %d: %w", gid, err)
	}
	minX := bounds.Min.X.Floor()
	minY := bounds.Min.Y.Floor()
	w := bounds.Max.X.Ceil() - minX
	h := bounds.Max.Y.Ceil() - minY
	if w <= 0 || h <= 0 {
		return renderedGlyph{advance: advance}, nil
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	at := func(pt fixed.Point26_6) (float32, float32) {
		return fixedToFloat32(pt.X - fixed.I(minX)), fixedToFloat32(pt.Y - fixed.I(minY))
	}
	started := false
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if started {
				z.ClosePath()
			}
			x, y := at(seg.Args[0])
			z.MoveTo(x, y)
			started = true
		case sfnt.SegmentOpLineTo:
			x, y := at(seg.Args[0])
			z.LineTo(x, y)
		case sfnt.SegmentOpQuadTo:
			cx, cy := at(seg.Args[0])
			x, y := at(seg.Args[1])
			z.QuadTo(cx, cy, x, y)
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := at(seg.Args[0])
			c2x, c2y := at(seg.Args[1])
			x, y := at(seg.Args[2])
			z.CubeTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
	if started {
		z.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	return renderedGlyph{
		alpha:    mask,
		bearingX: minX,
		bearingY: -minY,
		advance:  advance,
	}, nil
}

// renderBitmap decodes an embedded PNG strike (CBDT/sbix emoji fonts) and
// scales it to the requested em size.
func (f *Face) renderBitmap(gid GlyphID, ppem fixed.Int26_6) (renderedGlyph, error) {
	face := tsfont.NewFace(f.shape)
	data := face.GlyphData(tsfont.GID(gid))
	bm, ok := data.(tsfont.GlyphBitmap)
	if !ok || bm.Format != tsfont.PNG {
		return renderedGlyph{}, ErrGlyphFormat
	}
	src, err := png.Decode(bytes.NewReader(bm.Data))
	if err != nil {
		return renderedGlyph{}, fmt.Errorf("font: decode bitmap glyph %d: %w", gid, err)
	}

	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 {
		return renderedGlyph{}, ErrGlyphFormat
	}
	th := ppem.Ceil()
	if th < 1 {
		th = 1
	}
	tw := sb.Dx() * th / sb.Dy()
	if tw < 1 {
		tw = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)

	return renderedGlyph{
		color:    dst,
		bearingX: 0,
		bearingY: th,
		advance:  float32(tw),
	}, nil
}

func fixedToFloat32(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
