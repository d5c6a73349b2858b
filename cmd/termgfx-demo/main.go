// Command termgfx-demo renders a scripted terminal screen to a PNG file.
//
//	termgfx-demo -font /usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx"
	"github.com/gogpu/termgfx/backend/wgpu"
	"github.com/gogpu/termgfx/font"
	"github.com/gogpu/termgfx/terminal"
)

func main() {
	var (
		fontPath = flag.String("font", "", "path to a monospace font file (required)")
		sizePx   = flag.Float64("size", 14, "font size in pixels")
		rows     = flag.Int("rows", 24, "terminal rows")
		cols     = flag.Int("cols", 80, "terminal columns")
		output   = flag.String("output", "terminal.png", "output file")
		info     = flag.Bool("info", false, "print adapter info and exit")
	)
	flag.Parse()

	dev, err := wgpu.New()
	if err != nil {
		log.Fatalf("Failed to open GPU device: %v", err)
	}
	defer dev.Close()

	if *info {
		ai := dev.Info()
		fmt.Printf("adapter: %s (%s, %s)\n", ai.Name, ai.DeviceType, ai.Backend)
		fmt.Printf("max texture dimension: %d\n", ai.MaxTextureDim)
		return
	}
	if *fontPath == "" {
		log.Fatal("-font is required (any monospace TTF or OTF)")
	}

	data, err := os.ReadFile(*fontPath)
	if err != nil {
		log.Fatalf("Failed to read font: %v", err)
	}
	face, err := font.ParseFace(data)
	if err != nil {
		log.Fatalf("Failed to parse font: %v", err)
	}
	collection, err := font.NewCollection(face)
	if err != nil {
		log.Fatalf("Failed to build collection: %v", err)
	}
	grid, err := font.NewSharedGrid(collection, *sizePx, font.MetricOverrides{})
	if err != nil {
		log.Fatalf("Failed to size font: %v", err)
	}

	m := grid.Metrics()
	w := uint32(*cols * m.CellWidth)
	h := uint32(*rows * m.CellHeight)
	target, err := dev.CreateTarget(w, h, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		log.Fatalf("Failed to create render target: %v", err)
	}

	term, err := terminal.New(*rows, *cols)
	if err != nil {
		log.Fatalf("Failed to create terminal: %v", err)
	}
	fillHeader(term)
	fillSession(term)
	fillStyleShowcase(term)

	r, err := termgfx.New(dev, target, grid)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	if err := r.UpdateFrame(term, true); err != nil {
		log.Fatalf("Failed to update frame: %v", err)
	}
	if err := r.DrawFrame(true); err != nil {
		log.Fatalf("Failed to draw frame: %v", err)
	}
	// Close waits for the frame to finish on the GPU, so the drawable
	// holds the completed image before the readback below.
	if err := r.Close(); err != nil {
		log.Fatalf("Failed to close renderer: %v", err)
	}

	pix, err := target.ReadPixels()
	if err != nil {
		log.Fatalf("Failed to read pixels: %v", err)
	}
	img := &image.RGBA{Pix: pix, Stride: int(w) * 4, Rect: image.Rect(0, 0, int(w), int(h))}
	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode PNG: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	log.Printf("Demo saved to %s (%dx%d)\n", *output, w, h)
}

// fillHeader draws an inverse title bar across the top row.
func fillHeader(t *terminal.Terminal) {
	_, cols := t.Size()
	bar := terminal.Style{Attrs: terminal.AttrInverse | terminal.AttrBold}
	for col := 0; col < cols; col++ {
		t.SetCell(0, col, ' ', bar)
	}
	t.WriteString(0, 2, "termgfx", bar)
}

// fillSession scripts a short shell exchange and parks the cursor after
// the final prompt.
func fillSession(t *terminal.Terminal) {
	var (
		plain  = terminal.Style{}
		prompt = terminal.Style{FG: terminal.PaletteColor(10), Attrs: terminal.AttrBold}
		path   = terminal.Style{FG: terminal.PaletteColor(12), Attrs: terminal.AttrBold}
		dir    = terminal.Style{FG: terminal.PaletteColor(4), Attrs: terminal.AttrBold}
	)

	col := t.WriteString(2, 0, "user@host", prompt)
	col = t.WriteString(2, col, ":", plain)
	col = t.WriteString(2, col, "~/src/termgfx", path)
	col = t.WriteString(2, col, "$ ", plain)
	t.WriteString(2, col, "ls", plain)

	names := []string{"backend", "cmd", "font", "terminal"}
	col = 0
	for _, name := range names {
		col = t.WriteString(3, col, name, dir)
		col += 2
	}
	t.WriteString(3, col, "go.mod", plain)

	col = t.WriteString(5, 0, "user@host", prompt)
	col = t.WriteString(5, col, ":", plain)
	col = t.WriteString(5, col, "~/src/termgfx", path)
	col = t.WriteString(5, col, "$ ", plain)
	t.Cursor = terminal.Cursor{Row: 5, Col: col, Style: terminal.CursorBlock, Visible: true}
}

// fillStyleShowcase exercises the attribute, underline, wide-glyph, and
// highlight paths.
func fillStyleShowcase(t *terminal.Terminal) {
	_, cols := t.Size()

	t.WriteString(8, 0, "bold", terminal.Style{Attrs: terminal.AttrBold})
	t.WriteString(8, 6, "italic", terminal.Style{Attrs: terminal.AttrItalic})
	t.WriteString(8, 14, "faint", terminal.Style{Attrs: terminal.AttrFaint})
	t.WriteString(8, 21, "struck", terminal.Style{Attrs: terminal.AttrStrikethrough})
	t.WriteString(8, 29, "inverse", terminal.Style{Attrs: terminal.AttrInverse})

	underlines := []struct {
		name  string
		style terminal.UnderlineStyle
	}{
		{"single", terminal.UnderlineSingle},
		{"double", terminal.UnderlineDouble},
		{"curly", terminal.UnderlineCurly},
		{"dotted", terminal.UnderlineDotted},
		{"dashed", terminal.UnderlineDashed},
	}
	col := 0
	for _, u := range underlines {
		style := terminal.Style{Underline: u.style, UnderlineColor: terminal.PaletteColor(13)}
		col = t.WriteString(10, col, u.name, style)
		col += 2
	}

	t.WriteString(12, 0, "wide: ", terminal.Style{})
	t.WriteString(12, 6, "你好, 世界", terminal.Style{FG: terminal.PaletteColor(11)})

	// Truecolor band.
	for col := 0; col < cols; col++ {
		g := uint8(col * 255 / cols)
		t.SetCell(14, col, ' ', terminal.Style{BG: terminal.RGBColor(40, g, 200)})
	}

	t.WriteString(16, 0, "selected text renders with the selection colors", terminal.Style{})
	t.Selection = terminal.Selection{StartRow: 16, StartCol: 0, EndRow: 16, EndCol: 12, Active: true}
}
