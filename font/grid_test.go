package font

import (
	"errors"
	"sync"
	"testing"
)

func testGrid(t *testing.T) *SharedGrid {
	t.Helper()
	grid, err := NewSharedGrid(testCollection(t), 16, MetricOverrides{})
	if err != nil {
		t.Fatalf("NewSharedGrid: %v", err)
	}
	return grid
}

func TestNewSharedGrid_Validation(t *testing.T) {
	if _, err := NewSharedGrid(nil, 16, MetricOverrides{}); err == nil {
		t.Error("NewSharedGrid(nil) should fail")
	}
	if _, err := NewSharedGrid(testCollection(t), 0, MetricOverrides{}); err == nil {
		t.Error("NewSharedGrid(size 0) should fail")
	}
}

func TestSharedGrid_Metrics(t *testing.T) {
	grid := testGrid(t)
	m := grid.Metrics()
	if m.CellWidth <= 0 || m.CellHeight <= 0 {
		t.Errorf("metrics = %+v, want positive cell size", m)
	}
	if got := grid.SizePx(); got != 16 {
		t.Errorf("SizePx = %f, want 16", got)
	}
}

func TestSharedGrid_RenderGlyph(t *testing.T) {
	grid := testGrid(t)
	gid := testFace(t).GlyphIndex('A')
	if gid == 0 {
		t.Fatal("no glyph for 'A'")
	}

	glyph, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatalf("RenderGlyph: %v", err)
	}
	if glyph.Width == 0 || glyph.Height == 0 {
		t.Errorf("glyph = %+v, want ink", glyph)
	}
	if glyph.Kind != AtlasGrayscale {
		t.Errorf("Kind = %v, want grayscale", glyph.Kind)
	}
	if glyph.Advance <= 0 {
		t.Errorf("Advance = %f, want > 0", glyph.Advance)
	}

	// The mask landed in the grayscale atlas.
	err = grid.WithAtlases(func(grayscale, color *Atlas) error {
		if grayscale.Modified() == 0 {
			t.Error("grayscale atlas unmodified after render")
		}
		if color.Modified() != 0 {
			t.Error("color atlas modified by an outline glyph")
		}
		ink := false
		for _, px := range grayscale.Data() {
			if px != 0 {
				ink = true
				break
			}
		}
		if !ink {
			t.Error("grayscale atlas has no ink")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithAtlases: %v", err)
	}
}

func TestSharedGrid_RenderGlyphCached(t *testing.T) {
	grid := testGrid(t)
	gid := testFace(t).GlyphIndex('B')

	first, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var mod uint64
	_ = grid.WithAtlases(func(grayscale, _ *Atlas) error {
		mod = grayscale.Modified()
		return nil
	})

	second, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("cached glyph differs: %+v vs %+v", first, second)
	}
	_ = grid.WithAtlases(func(grayscale, _ *Atlas) error {
		if grayscale.Modified() != mod {
			t.Error("second render wrote the atlas again")
		}
		return nil
	})
}

func TestSharedGrid_RenderBlankGlyph(t *testing.T) {
	grid := testGrid(t)
	gid := testFace(t).GlyphIndex(' ')
	if gid == 0 {
		t.Fatal("no glyph for space")
	}

	glyph, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatalf("RenderGlyph(space): %v", err)
	}
	if glyph.Width != 0 || glyph.Height != 0 {
		t.Errorf("space glyph = %+v, want no ink", glyph)
	}
	if glyph.Advance <= 0 {
		t.Errorf("space Advance = %f, want > 0", glyph.Advance)
	}
}

func TestSharedGrid_Thicken(t *testing.T) {
	grid := testGrid(t)
	gid := testFace(t).GlyphIndex('A')

	plain, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	thick, err := grid.RenderGlyph(0, gid, RenderOptions{Thicken: true})
	if err != nil {
		t.Fatal(err)
	}

	if thick.Width != plain.Width+2 || thick.Height != plain.Height+2 {
		t.Errorf("thickened glyph %dx%d, want %dx%d",
			thick.Width, thick.Height, plain.Width+2, plain.Height+2)
	}
	if thick.X == plain.X && thick.Y == plain.Y {
		t.Error("thickened glyph should occupy its own atlas region")
	}
}

func TestSharedGrid_RenderGlyphBadFace(t *testing.T) {
	grid := testGrid(t)
	if _, err := grid.RenderGlyph(99, 1, RenderOptions{}); !errors.Is(err, ErrFaceIndex) {
		t.Errorf("RenderGlyph(bad face) error = %v, want ErrFaceIndex", err)
	}
}

func TestSharedGrid_SetSize(t *testing.T) {
	grid := testGrid(t)
	gid := testFace(t).GlyphIndex('C')

	small, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if err := grid.SetSize(32); err != nil {
		t.Fatalf("SetSize: %v", err)
	}
	if got := grid.SizePx(); got != 32 {
		t.Errorf("SizePx = %f, want 32", got)
	}

	large, err := grid.RenderGlyph(0, gid, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if large.Width <= small.Width {
		t.Errorf("glyph width %d at 32px, want > %d from 16px", large.Width, small.Width)
	}

	if err := grid.SetSize(-1); err == nil {
		t.Error("SetSize(-1) should fail")
	}
}

func TestSharedGrid_Shape(t *testing.T) {
	grid := testGrid(t)

	runes := []rune("grid")
	glyphs := grid.Shape(0, runes, latinSegment(runes))
	if len(glyphs) != 4 {
		t.Fatalf("Shape = %d glyphs, want 4", len(glyphs))
	}
	if got := grid.Shape(99, runes, latinSegment(runes)); got != nil {
		t.Error("Shape(bad face) should return nil")
	}
}

func TestSharedGrid_Concurrent(t *testing.T) {
	grid := testGrid(t)
	face := testFace(t)

	runes := []rune("concurrent")
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 40; i++ {
				r := runes[i%len(runes)]
				gid := face.GlyphIndex(r)
				if _, err := grid.RenderGlyph(0, gid, RenderOptions{}); err != nil {
					t.Errorf("RenderGlyph(%q): %v", r, err)
					return
				}
				grid.Shape(0, runes, latinSegment(runes))
			}
		}()
	}
	wg.Wait()
}
