package termgfx

import (
	"errors"
	"image"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/termgfx/font"
	"github.com/gogpu/termgfx/gfx/gfxtest"
	"github.com/gogpu/termgfx/terminal"
)

// testGrid builds a shared font grid over Go Regular.
func testGrid(t *testing.T) *font.SharedGrid {
	t.Helper()
	face, err := font.ParseFace(goregular.TTF)
	if err != nil {
		t.Fatalf("ParseFace(goregular): %v", err)
	}
	coll, err := font.NewCollection(face)
	if err != nil {
		t.Fatalf("NewCollection: %v", err)
	}
	grid, err := font.NewSharedGrid(coll, 16, font.MetricOverrides{})
	if err != nil {
		t.Fatalf("NewSharedGrid: %v", err)
	}
	return grid
}

// recordingMailbox collects posted notifications for assertions.
type recordingMailbox struct {
	mu    sync.Mutex
	notes []Notification
}

func (m *recordingMailbox) Post(n Notification) {
	m.mu.Lock()
	m.notes = append(m.notes, n)
	m.mu.Unlock()
}

func (m *recordingMailbox) all() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.notes...)
}

func (m *recordingMailbox) healths() []Health {
	var out []Health
	for _, n := range m.all() {
		if hn, ok := n.(HealthNotification); ok {
			out = append(out, hn.Health)
		}
	}
	return out
}

// testRenderer bundles a renderer with its fake device, target, terminal
// and mailbox.
type testRenderer struct {
	r    *Renderer
	dev  *gfxtest.Device
	tgt  *gfxtest.Target
	term *terminal.Terminal
	mb   *recordingMailbox
}

func newTestRenderer(t *testing.T, rows, cols int, opts ...Option) *testRenderer {
	t.Helper()
	dev := gfxtest.NewDevice()
	tgt := gfxtest.NewTarget(640, 384)
	term, err := terminal.New(rows, cols)
	if err != nil {
		t.Fatalf("terminal.New: %v", err)
	}
	mb := &recordingMailbox{}
	opts = append([]Option{WithMailbox(mb)}, opts...)
	r, err := New(dev, tgt, testGrid(t), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return &testRenderer{r: r, dev: dev, tgt: tgt, term: term, mb: mb}
}

// updateDraw runs one render loop iteration.
func (tr *testRenderer) updateDraw(t *testing.T, sync bool) {
	t.Helper()
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatalf("UpdateFrame: %v", err)
	}
	if err := tr.r.DrawFrame(sync); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	dev := gfxtest.NewDevice()
	tgt := gfxtest.NewTarget(640, 384)
	grid := testGrid(t)

	if _, err := New(nil, tgt, grid); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil device) = %v, want ErrNilDevice", err)
	}
	if _, err := New(dev, nil, grid); !errors.Is(err, ErrNilTarget) {
		t.Errorf("New(nil target) = %v, want ErrNilTarget", err)
	}
	if _, err := New(dev, tgt, nil); !errors.Is(err, ErrNilGrid) {
		t.Errorf("New(nil grid) = %v, want ErrNilGrid", err)
	}

	cfg := DefaultConfig()
	cfg.BufferCount = 5
	if _, err := New(dev, tgt, grid, WithConfig(cfg)); !errors.Is(err, ErrBufferCount) {
		t.Errorf("New(5 buffers) = %v, want ErrBufferCount", err)
	}

	cfg = DefaultConfig()
	cfg.CustomShaders = []string{""}
	if _, err := New(dev, tgt, grid, WithConfig(cfg)); err == nil {
		t.Error("New(bad shader) succeeded")
	}
	if counts := dev.Counts(); counts.PipelinesAlive != 0 || counts.SamplersAlive != 0 {
		t.Errorf("failed construction leaked resources: %+v", counts)
	}
}

func TestNewAllocatesSlots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferCount = 2
	tr := newTestRenderer(t, 2, 8, WithConfig(cfg))

	if tr.dev.BufferByLabel("cell-uniforms-0") == nil || tr.dev.BufferByLabel("cell-uniforms-1") == nil {
		t.Error("per-slot uniform buffers missing")
	}
	if tr.dev.BufferByLabel("cell-uniforms-2") != nil {
		t.Error("double buffering allocated a third slot")
	}
}

func TestDrawSkipsWhenClean(t *testing.T) {
	tr := newTestRenderer(t, 2, 8)
	tr.term.WriteString(0, 0, "hi", terminal.Style{})

	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 1 {
		t.Fatalf("frames submitted = %d, want 1", got)
	}

	// Nothing changed; the previous frame stays on screen.
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 1 {
		t.Fatalf("clean iteration submitted a frame: %d", got)
	}

	// sync forces a present.
	tr.updateDraw(t, true)
	if got := tr.dev.Counts().FramesSubmitted; got != 2 {
		t.Fatalf("sync draw did not submit: %d", got)
	}

	// Content changes draw again.
	tr.term.WriteString(0, 0, "yo", terminal.Style{})
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 3 {
		t.Fatalf("dirty iteration did not submit: %d", got)
	}
}

func TestDrawAfterTargetResize(t *testing.T) {
	tr := newTestRenderer(t, 2, 8)
	tr.updateDraw(t, false)
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 1 {
		t.Fatalf("frames submitted = %d, want 1", got)
	}

	tr.tgt.Resize(800, 600)
	if err := tr.r.DrawFrame(false); err != nil {
		t.Fatal(err)
	}
	if got := tr.dev.Counts().FramesSubmitted; got != 2 {
		t.Errorf("resize did not force a draw: %d", got)
	}
}

func TestDrawZeroSizeTarget(t *testing.T) {
	tr := newTestRenderer(t, 1, 4)
	tr.term.WriteString(0, 0, "x", terminal.Style{})
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}

	tr.tgt.Resize(0, 0)
	if err := tr.r.DrawFrame(true); err != nil {
		t.Fatalf("DrawFrame on zero-size target: %v", err)
	}
	if got := tr.dev.Counts().FramesSubmitted; got != 0 {
		t.Errorf("zero-size target submitted %d frames", got)
	}
}

func TestSynchronizedWithholdsUpdates(t *testing.T) {
	tr := newTestRenderer(t, 2, 8)
	tr.updateDraw(t, false)

	tr.term.SetSynchronized(true)
	tr.term.WriteString(0, 0, "partial", terminal.Style{})
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 1 {
		t.Fatalf("synchronized update still drew: %d", got)
	}

	tr.term.SetSynchronized(false)
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 2 {
		t.Fatalf("leaving synchronized mode did not draw: %d", got)
	}
}

func TestFramePacingBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferCount = 2
	tr := newTestRenderer(t, 1, 4, WithConfig(cfg))
	tr.dev.SetAutoComplete(false)

	tr.term.WriteString(0, 0, "a", terminal.Style{})
	tr.updateDraw(t, false)
	tr.term.WriteString(0, 0, "b", terminal.Style{})
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 2 {
		t.Fatalf("frames submitted = %d, want 2", got)
	}

	// Both slots are in flight; the third draw must wait for the GPU.
	tr.term.WriteString(0, 0, "c", terminal.Style{})
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- tr.r.DrawFrame(false) }()

	select {
	case <-done:
		t.Fatal("draw finished with every slot in flight")
	case <-time.After(20 * time.Millisecond):
	}

	if !tr.dev.CompleteNext() {
		t.Fatal("no pending frame to complete")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("draw after completion: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("draw did not unblock after frame completion")
	}

	tr.dev.CompleteAll()
}

func TestHealthNotifications(t *testing.T) {
	tr := newTestRenderer(t, 1, 4)
	tr.term.WriteString(0, 0, "a", terminal.Style{})
	tr.updateDraw(t, false)
	if got := tr.r.Health(); got != HealthOK {
		t.Fatalf("health = %v, want ok", got)
	}
	if notes := tr.mb.healths(); len(notes) != 0 {
		t.Fatalf("healthy frames posted notifications: %v", notes)
	}

	tr.dev.FailNextSubmit(errors.New("device lost"))
	tr.term.WriteString(0, 0, "b", terminal.Style{})
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}
	if err := tr.r.DrawFrame(false); err == nil {
		t.Fatal("submit failure not surfaced")
	}
	if got := tr.r.Health(); got != HealthDegraded {
		t.Fatalf("health after failure = %v, want degraded", got)
	}

	// The next good frame restores health. Each transition posts once.
	tr.updateDraw(t, false)
	if got := tr.r.Health(); got != HealthOK {
		t.Fatalf("health after recovery = %v, want ok", got)
	}
	want := []Health{HealthDegraded, HealthOK}
	if got := tr.mb.healths(); !slices.Equal(got, want) {
		t.Errorf("health notifications = %v, want %v", got, want)
	}
}

func TestScrollbarNotification(t *testing.T) {
	tr := newTestRenderer(t, 2, 8)
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}
	if len(tr.mb.all()) != 0 {
		t.Fatalf("unchanged scrollbar posted: %v", tr.mb.all())
	}

	sb := terminal.Scrollbar{Total: 100, Offset: 40, Viewport: 20}
	tr.term.Scrollbar = sb
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}

	var got []terminal.Scrollbar
	for _, n := range tr.mb.all() {
		if sn, ok := n.(ScrollbarNotification); ok {
			got = append(got, sn.Scrollbar)
		}
	}
	if len(got) != 1 || got[0] != sb {
		t.Errorf("scrollbar notifications = %v, want one %v", got, sb)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	tr := newTestRenderer(t, 2, 8)
	tr.term.WriteString(0, 0, "hello", terminal.Style{})
	tr.updateDraw(t, false)

	if err := tr.r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	counts := tr.dev.Counts()
	if counts.BuffersAlive != 0 || counts.TexturesAlive != 0 || counts.SamplersAlive != 0 ||
		counts.PipelinesAlive != 0 || counts.GroupsAlive != 0 {
		t.Errorf("leaked resources after Close: %+v", counts)
	}

	if err := tr.r.UpdateFrame(tr.term, true); !errors.Is(err, ErrRendererClosed) {
		t.Errorf("UpdateFrame after Close = %v, want ErrRendererClosed", err)
	}
	if err := tr.r.DrawFrame(false); !errors.Is(err, ErrRendererClosed) {
		t.Errorf("DrawFrame after Close = %v, want ErrRendererClosed", err)
	}
	if err := tr.r.ChangeConfig(DefaultConfig()); !errors.Is(err, ErrRendererClosed) {
		t.Errorf("ChangeConfig after Close = %v, want ErrRendererClosed", err)
	}
	if err := tr.r.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestCloseWaitsForInflight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferCount = 2
	tr := newTestRenderer(t, 1, 4, WithConfig(cfg))
	tr.dev.SetAutoComplete(false)

	tr.term.WriteString(0, 0, "a", terminal.Style{})
	tr.updateDraw(t, false)

	done := make(chan struct{})
	go func() {
		_ = tr.r.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Close finished with a frame in flight")
	case <-time.After(20 * time.Millisecond):
	}

	tr.dev.CompleteAll()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not finish after frame completion")
	}
	if counts := tr.dev.Counts(); counts.BuffersAlive != 0 {
		t.Errorf("buffers alive after Close = %d", counts.BuffersAlive)
	}
}

func TestStateResetReproducesRecords(t *testing.T) {
	tr := newTestRenderer(t, 2, 10)
	style := terminal.Style{FG: terminal.RGBColor(200, 120, 40), Attrs: terminal.AttrBold}
	tr.term.WriteString(0, 0, "reset", style)
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}
	beforeBG := append([]bgCell(nil), tr.r.cells.bg...)
	beforeFG := tr.r.cells.appendAll(nil)

	// Drive the snapshot over the reset boundary; the rebuild after the
	// reallocation must reproduce byte-identical records.
	tr.r.state.frames = stateResetInterval - 1
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}
	if tr.r.state.cells != nil {
		t.Fatal("snapshot kept arrays past the reset interval")
	}
	if err := tr.r.UpdateFrame(tr.term, true); err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(beforeBG, tr.r.cells.bg) {
		t.Error("background records differ after state reset")
	}
	if !slices.Equal(beforeFG, tr.r.cells.appendAll(nil)) {
		t.Error("foreground records differ after state reset")
	}
}

func TestChangeConfig(t *testing.T) {
	tr := newTestRenderer(t, 1, 4)
	tr.term.WriteString(0, 0, "x", terminal.Style{})
	tr.updateDraw(t, false)

	bad := DefaultConfig()
	bad.BackgroundOpacity = 0
	if err := tr.r.ChangeConfig(bad); !errors.Is(err, ErrOpacity) {
		t.Fatalf("ChangeConfig(invalid) = %v, want ErrOpacity", err)
	}
	// The previous configuration stays; a clean iteration still skips.
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 1 {
		t.Fatalf("rejected config changed behavior: %d frames", got)
	}

	// A shader list that fails to compile is rejected up front, the
	// probe pipelines are freed, and the old shader list stays active.
	alive := tr.dev.Counts().PipelinesAlive
	bad = DefaultConfig()
	bad.CustomShaders = []string{testShaderWGSL, ""}
	if err := tr.r.ChangeConfig(bad); err == nil {
		t.Fatal("ChangeConfig(bad shader) succeeded")
	}
	if got := tr.r.config.CustomShaders; len(got) != 0 {
		t.Fatalf("rejected shaders installed: %v", got)
	}
	if got := tr.dev.Counts().PipelinesAlive; got != alive {
		t.Errorf("probe leaked pipelines: %d, want %d", got, alive)
	}
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 1 {
		t.Fatalf("rejected shader config changed behavior: %d frames", got)
	}

	cfg := DefaultConfig()
	cfg.MinContrast = 3
	if err := tr.r.ChangeConfig(cfg); err != nil {
		t.Fatal(err)
	}
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 2 {
		t.Errorf("config swap did not redraw: %d frames", got)
	}

	// BufferCount is fixed at construction.
	cfg = DefaultConfig()
	cfg.BufferCount = 2
	if err := tr.r.ChangeConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if tr.r.config.BufferCount != 3 {
		t.Errorf("buffer count changed to %d", tr.r.config.BufferCount)
	}
}

func TestCustomShaderPasses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomShaders = []string{testShaderWGSL, testShaderWGSL}
	tr := newTestRenderer(t, 1, 4, WithConfig(cfg))
	tr.term.WriteString(0, 0, "x", terminal.Style{})
	tr.updateDraw(t, false)

	frame := tr.dev.LastFrame()
	if frame == nil {
		t.Fatal("no frame recorded")
	}
	passes := frame.Passes()
	if len(passes) != 3 {
		t.Fatalf("pass count = %d, want cells + 2 shader stages", len(passes))
	}

	// Cells render into the slot's front texture, not the drawable.
	cells := passes[0]
	if cells.Label != "cells" {
		t.Fatalf("first pass = %q", cells.Label)
	}
	if !strings.HasPrefix(cells.Target, "shader-pingpong-") || !strings.HasSuffix(cells.Target, "-0") {
		t.Errorf("cell pass target = %q, want the front ping-pong texture", cells.Target)
	}

	// Stage 0 writes the back texture; the final stage writes the drawable.
	stage0 := passes[1]
	if stage0.Label != "custom-shader-0" || !strings.HasSuffix(stage0.Target, "-1") {
		t.Errorf("stage 0 = %q -> %q, want back texture", stage0.Label, stage0.Target)
	}
	stage1 := passes[2]
	if stage1.Label != "custom-shader-1" || stage1.Target != "" {
		t.Errorf("stage 1 = %q -> %q, want drawable", stage1.Label, stage1.Target)
	}
	for _, p := range []string{stage0.Label, stage1.Label} {
		pr := frame.Pass(p)
		if len(pr.Draws) != 1 || pr.Draws[0].Vertices != 3 || pr.Draws[0].Instances != 1 {
			t.Errorf("%s draws = %+v, want one fullscreen triangle", p, pr.Draws)
		}
	}
}

func TestShaderAnimationKeepsDrawing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomShaders = []string{testShaderWGSL}
	cfg.ShaderAnimation = true
	tr := newTestRenderer(t, 1, 4, WithConfig(cfg))

	tr.updateDraw(t, false)
	tr.updateDraw(t, false)
	tr.updateDraw(t, false)
	if got := tr.dev.Counts().FramesSubmitted; got != 3 {
		t.Errorf("animated frames submitted = %d, want every iteration", got)
	}
}

func TestOverlayDraws(t *testing.T) {
	tr := newTestRenderer(t, 1, 4)
	tr.term.WriteString(0, 0, "x", terminal.Style{})
	tr.updateDraw(t, false)

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	tr.r.SetOverlay(7, OverlayImage{Image: img, X: 10, Y: 20, Layer: OverlayAboveText})
	tr.updateDraw(t, false)

	if tr.dev.TextureByLabel("overlay-7") == nil {
		t.Fatal("overlay texture not uploaded")
	}
	pass := tr.dev.LastFrame().Pass("cells")
	if pass == nil {
		t.Fatal("no cell pass recorded")
	}
	found := false
	for _, d := range pass.Draws {
		if d.Pipeline == "image" {
			found = true
			if d.Vertices != 6 || d.Instances != 1 {
				t.Errorf("image draw = %+v, want one quad", d)
			}
		}
	}
	if !found {
		t.Fatal("no image draw in the cell pass")
	}

	tr.r.RemoveOverlay(7)
	tr.updateDraw(t, false)
	if tr.dev.TextureByLabel("overlay-7") != nil {
		t.Error("overlay texture survived removal")
	}
	for _, d := range tr.dev.LastFrame().Pass("cells").Draws {
		if d.Pipeline == "image" {
			t.Error("image draw survived overlay removal")
		}
	}
}

func TestOverlayReplaceWaitsForInflight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferCount = 2
	tr := newTestRenderer(t, 1, 4, WithConfig(cfg))
	tr.dev.SetAutoComplete(false)

	tr.term.WriteString(0, 0, "x", terminal.Style{})
	tr.r.SetOverlay(3, OverlayImage{Image: image.NewRGBA(image.Rect(0, 0, 8, 4))})
	tr.updateDraw(t, false)

	// Replace the overlay while the first frame still samples the old
	// texture. Its GPU objects must survive until that frame completes.
	tr.r.SetOverlay(3, OverlayImage{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))})
	tr.updateDraw(t, false)

	counts := tr.dev.Counts()
	tr.dev.CompleteAll()

	// Both frames are done, so the next draw frees exactly the replaced
	// texture and its bind group.
	tr.updateDraw(t, true)
	after := tr.dev.Counts()
	if after.TexturesAlive != counts.TexturesAlive-1 {
		t.Errorf("textures alive = %d, want %d", after.TexturesAlive, counts.TexturesAlive-1)
	}
	if after.GroupsAlive != counts.GroupsAlive-1 {
		t.Errorf("groups alive = %d, want %d", after.GroupsAlive, counts.GroupsAlive-1)
	}

	// Removal under an in-flight frame parks the texture instead of
	// destroying it; completion plus one draw reaps it.
	tr.r.RemoveOverlay(3)
	if tr.dev.TextureByLabel("overlay-3") == nil {
		t.Fatal("overlay texture destroyed while a frame was in flight")
	}
	tr.dev.CompleteAll()
	tr.updateDraw(t, false)
	if tr.dev.TextureByLabel("overlay-3") != nil {
		t.Error("removed overlay texture survived the reap")
	}
	tr.dev.CompleteAll()
}
