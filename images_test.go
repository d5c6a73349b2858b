package termgfx

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/gfx"
	"github.com/gogpu/termgfx/gfx/gfxtest"
)

func writeTestPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	path := filepath.Join(t.TempDir(), "bg.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBackgroundPlacement(t *testing.T) {
	tests := []struct {
		name                   string
		mode                   ImageMode
		x0, y0, x1, y1, u1, v1 float64
	}{
		{"fit letterboxes", ImageFit, 0, 50, 200, 150, 1, 1},
		{"fill crops", ImageFill, -100, 0, 300, 200, 1, 1},
		{"stretch distorts", ImageStretch, 0, 0, 200, 200, 1, 1},
		{"tile repeats", ImageTile, 0, 0, 200, 200, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x0, y0, x1, y1, u1, v1 := backgroundPlacement(tt.mode, 100, 50, 200, 200)
			if x0 != tt.x0 || y0 != tt.y0 || x1 != tt.x1 || y1 != tt.y1 {
				t.Errorf("rect = (%v, %v)-(%v, %v), want (%v, %v)-(%v, %v)",
					x0, y0, x1, y1, tt.x0, tt.y0, tt.x1, tt.y1)
			}
			if u1 != tt.u1 || v1 != tt.v1 {
				t.Errorf("uv max = (%v, %v), want (%v, %v)", u1, v1, tt.u1, tt.v1)
			}
		})
	}
}

func TestAppendImageQuad(t *testing.T) {
	verts := appendImageQuad(nil, 100, 50, 0, 0, 100, 50, 0, 0, 1, 1, 0.8)
	if len(verts) != 6 {
		t.Fatalf("vertex count = %d, want 6", len(verts))
	}

	tl := imageVertex{Pos: [2]float32{-1, 1}, UV: [2]float32{0, 0}, Opacity: 0.8}
	tr := imageVertex{Pos: [2]float32{1, 1}, UV: [2]float32{1, 0}, Opacity: 0.8}
	bl := imageVertex{Pos: [2]float32{-1, -1}, UV: [2]float32{0, 1}, Opacity: 0.8}
	br := imageVertex{Pos: [2]float32{1, -1}, UV: [2]float32{1, 1}, Opacity: 0.8}
	want := []imageVertex{tl, tr, bl, tr, br, bl}
	for i := range want {
		if verts[i] != want[i] {
			t.Errorf("vertex %d = %+v, want %+v", i, verts[i], want[i])
		}
	}
}

func TestToRGBA(t *testing.T) {
	// A tightly packed origin image passes through without copying.
	tight := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if toRGBA(tight) != tight {
		t.Error("tight RGBA image was copied")
	}

	// Offset bounds are rebased to the origin.
	off := image.NewRGBA(image.Rect(5, 5, 9, 9))
	off.SetRGBA(5, 5, color.RGBA{R: 200, A: 255})
	got := toRGBA(off)
	if got.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds = %v, want origin", got.Bounds())
	}
	if got.RGBAAt(0, 0) != (color.RGBA{R: 200, A: 255}) {
		t.Errorf("pixel = %v, want the source corner", got.RGBAAt(0, 0))
	}

	// Other formats convert.
	n := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	n.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	got = toRGBA(n)
	if got.RGBAAt(1, 1) != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("converted pixel = %v", got.RGBAAt(1, 1))
	}
}

func TestOverlaySetRemove(t *testing.T) {
	var im imageSet
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	im.set(3, OverlayImage{Image: img, X: 5, Y: 6, Layer: OverlayBelowText})
	e := im.overlays[3]
	if e == nil {
		t.Fatal("overlay not stored")
	}
	if e.x != 5 || e.y != 6 || e.layer != OverlayBelowText {
		t.Errorf("entry = %+v", e)
	}
	if e.opacity != 1 {
		t.Errorf("zero opacity = %v, want opaque default", e.opacity)
	}

	im.set(3, OverlayImage{Image: img, Opacity: 0.5})
	if im.overlays[3].opacity != 0.5 {
		t.Errorf("opacity = %v, want 0.5", im.overlays[3].opacity)
	}

	// Pending overlays are not drawn yet.
	if keys := im.layerKeys(OverlayBelowText); len(keys) != 0 {
		t.Errorf("layer keys before upload = %v", keys)
	}

	im.remove(3)
	if _, ok := im.overlays[3]; ok {
		t.Error("overlay survived removal")
	}
	im.remove(99)
}

func TestOverlayUploadAndLayerKeys(t *testing.T) {
	dev := gfxtest.NewDevice()
	pipeline, err := dev.CreatePipeline(imagePipelineDescriptor(gputypes.TextureFormatRGBA8Unorm))
	if err != nil {
		t.Fatal(err)
	}
	clamp, err := dev.CreateSampler(gfx.SamplerDescriptor{Label: "clamp"})
	if err != nil {
		t.Fatal(err)
	}
	repeat, err := dev.CreateSampler(gfx.SamplerDescriptor{Label: "repeat"})
	if err != nil {
		t.Fatal(err)
	}

	var im imageSet
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for _, key := range []uint32{9, 2, 5} {
		im.set(key, OverlayImage{Image: img, Layer: OverlayAboveText})
	}
	im.convertPending()
	im.uploadAll(dev, pipeline, clamp, repeat, false)

	keys := im.layerKeys(OverlayAboveText)
	want := []uint32{2, 5, 9}
	if len(keys) != len(want) {
		t.Fatalf("layer keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("layer keys = %v, want ascending %v", keys, want)
		}
	}
	if dev.TextureByLabel("overlay-2") == nil {
		t.Error("overlay texture missing")
	}
	if keys := im.layerKeys(OverlayBelowText); len(keys) != 0 {
		t.Errorf("wrong layer reported keys %v", keys)
	}

	im.destroy()
	counts := dev.Counts()
	if counts.TexturesAlive != 0 || counts.GroupsAlive != 0 {
		t.Errorf("leaked image resources: %+v", counts)
	}
}

func TestRefreshBackground(t *testing.T) {
	var im imageSet
	cfg := DefaultConfig()
	if im.refreshBackground(cfg) {
		t.Error("empty path reported a change")
	}

	cfg.BackgroundImagePath = filepath.Join(t.TempDir(), "missing.png")
	if im.refreshBackground(cfg) {
		t.Error("failed load reported a change")
	}
	if im.refreshBackground(cfg) {
		t.Error("unchanged path retried a load")
	}

	cfg.BackgroundImagePath = writeTestPNG(t)
	if !im.refreshBackground(cfg) {
		t.Error("new image not staged")
	}
	if im.bg.src == nil {
		t.Error("no pending source after load")
	}
	if im.refreshBackground(cfg) {
		t.Error("unchanged path reloaded")
	}

	cfg.BackgroundImagePath = ""
	if !im.refreshBackground(cfg) {
		t.Error("clearing the path went unreported")
	}
	if im.bg.src != nil || im.bg.rgba != nil {
		t.Error("background image not dropped")
	}
}

func TestLoadImageFile(t *testing.T) {
	if _, err := loadImageFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("missing file did not error")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadImageFile(bad); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("corrupt file error = %v, want decode failure", err)
	}

	img, err := loadImageFile(writeTestPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Errorf("decoded bounds = %v, want 4x2", img.Bounds())
	}
}
