package termgfx

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/gfx"
)

// swapChain is a fixed pool of frameState slots gated by a counting
// semaphore. It bounds how many frames the render goroutine may submit
// ahead of GPU completion.
type swapChain struct {
	slots   []*frameState
	index   int
	permits chan struct{}
	defunct atomic.Bool
}

// newSwapChain eagerly allocates count slots. Partial failure rolls back
// every slot created so far.
func newSwapChain(dev gfx.Device, count int, shaders []string, target gfx.Target) (*swapChain, error) {
	sc := &swapChain{
		permits: make(chan struct{}, count),
	}
	for i := 0; i < count; i++ {
		fs, err := newFrameState(dev, i, shaders, target)
		if err != nil {
			for j := len(sc.slots) - 1; j >= 0; j-- {
				sc.slots[j].destroy()
			}
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		sc.slots = append(sc.slots, fs)
		sc.permits <- struct{}{}
	}
	return sc, nil
}

// acquire blocks until a slot is free, then rotates to it. The caller owns
// exactly one release, normally handed to the frame completion callback.
func (sc *swapChain) acquire() (*frameState, error) {
	if sc.defunct.Load() {
		return nil, ErrSwapChainDefunct
	}
	<-sc.permits
	if sc.defunct.Load() {
		// Hand the permit back so a concurrent deinit can finish draining.
		sc.permits <- struct{}{}
		return nil, ErrSwapChainDefunct
	}
	sc.index = (sc.index + 1) % len(sc.slots)
	return sc.slots[sc.index], nil
}

// release returns one permit. Called exactly once per successful acquire.
func (sc *swapChain) release() {
	sc.permits <- struct{}{}
}

// deinit marks the chain defunct, waits for every in-flight frame by
// draining all permits, then frees slot resources in reverse order.
func (sc *swapChain) deinit() {
	if !sc.defunct.CompareAndSwap(false, true) {
		return
	}
	for range sc.slots {
		<-sc.permits
	}
	for i := len(sc.slots) - 1; i >= 0; i-- {
		sc.slots[i].destroy()
	}
	sc.slots = nil
}

// frameState is one buffered slot's GPU resources. Each slot tracks the
// versions it last uploaded, so rotating slots re-upload a resource only
// when their stamp is behind the authoritative one.
type frameState struct {
	dev  gfx.Device
	slot int

	uniforms gfx.Buffer

	bg     gfx.Buffer
	bgCap  int
	fg     gfx.Buffer
	fgCap  int
	img    gfx.Buffer
	imgCap int

	grayscale    gfx.Texture
	color        gfx.Texture
	grayscaleGen uint64
	colorGen     uint64

	// Bind groups are rebuilt when any bound resource was recreated.
	bgGroup     gfx.BindGroup
	fgGroup     gfx.BindGroup
	groupsStale bool

	width, height uint32

	// shaderGen mirrors the renderer's custom-shader generation so a
	// config swap rebuilds each slot's shader state on its next use.
	shader    *customShaderState
	shaderGen uint64
}

func newFrameState(dev gfx.Device, slot int, shaders []string, target gfx.Target) (*frameState, error) {
	fs := &frameState{dev: dev, slot: slot}

	var u uniforms
	buf, err := dev.CreateBuffer(gfx.BufferDescriptor{
		Label: fmt.Sprintf("cell-uniforms-%d", slot),
		Size:  uint64(len(gfx.Bytes(&u))),
		Usage: gfx.BufferUsageUniform | gfx.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("uniform buffer: %w", err)
	}
	fs.uniforms = buf

	size := target.Size()
	fs.width, fs.height = size.Width, size.Height

	if len(shaders) > 0 {
		st, err := newCustomShaderState(dev, slot, shaders, size.Width, size.Height, target.Format())
		if err != nil {
			fs.uniforms.Destroy()
			return nil, err
		}
		fs.shader = st
	}
	return fs, nil
}

// ensureCellBuffers grows the background and foreground buffers to hold
// at least bgBytes and fgBytes. Growth doubles so steady output settles.
func (fs *frameState) ensureCellBuffers(bgBytes, fgBytes int) error {
	if bgBytes > fs.bgCap {
		if fs.bg != nil {
			fs.bg.Destroy()
			fs.bg = nil
		}
		want := max(bgBytes, fs.bgCap*2)
		buf, err := fs.dev.CreateBuffer(gfx.BufferDescriptor{
			Label: fmt.Sprintf("cell-bg-%d", fs.slot),
			Size:  uint64(want), //nolint:gosec // sizes are positive
			Usage: gfx.BufferUsageVertex | gfx.BufferUsageStorage | gfx.BufferUsageCopyDst,
		})
		if err != nil {
			fs.bgCap = 0
			return fmt.Errorf("bg cell buffer: %w", err)
		}
		fs.bg, fs.bgCap = buf, want
		fs.groupsStale = true
	}
	if fgBytes > fs.fgCap {
		if fs.fg != nil {
			fs.fg.Destroy()
			fs.fg = nil
		}
		want := max(fgBytes, fs.fgCap*2)
		buf, err := fs.dev.CreateBuffer(gfx.BufferDescriptor{
			Label: fmt.Sprintf("cell-fg-%d", fs.slot),
			Size:  uint64(want), //nolint:gosec // sizes are positive
			Usage: gfx.BufferUsageVertex | gfx.BufferUsageCopyDst,
		})
		if err != nil {
			fs.fgCap = 0
			return fmt.Errorf("fg cell buffer: %w", err)
		}
		fs.fg, fs.fgCap = buf, want
	}
	return nil
}

// ensureImageBuffer grows the image quad vertex buffer to hold at least
// size bytes.
func (fs *frameState) ensureImageBuffer(size int) error {
	if size <= fs.imgCap {
		return nil
	}
	if fs.img != nil {
		fs.img.Destroy()
		fs.img = nil
	}
	want := max(size, fs.imgCap*2)
	buf, err := fs.dev.CreateBuffer(gfx.BufferDescriptor{
		Label: fmt.Sprintf("image-verts-%d", fs.slot),
		Size:  uint64(want), //nolint:gosec // sizes are positive
		Usage: gfx.BufferUsageVertex | gfx.BufferUsageCopyDst,
	})
	if err != nil {
		fs.imgCap = 0
		return fmt.Errorf("image vertex buffer: %w", err)
	}
	fs.img, fs.imgCap = buf, want
	return nil
}

// resize replaces the slot's size-dependent resources, releasing each old
// resource before creating its replacement. A failed resize leaves the
// slot marked unsized so the next frame retries from scratch.
func (fs *frameState) resize(w, h uint32) error {
	if fs.width == w && fs.height == h {
		return nil
	}
	if fs.shader != nil {
		if err := fs.shader.resize(w, h); err != nil {
			fs.width, fs.height = 0, 0
			return err
		}
	}
	fs.width, fs.height = w, h
	return nil
}

// dropGroups destroys the cached bind groups; they are rebuilt on the
// next draw.
func (fs *frameState) dropGroups() {
	if fs.fgGroup != nil {
		fs.fgGroup.Destroy()
		fs.fgGroup = nil
	}
	if fs.bgGroup != nil {
		fs.bgGroup.Destroy()
		fs.bgGroup = nil
	}
}

// destroy frees the slot's resources in reverse creation order.
func (fs *frameState) destroy() {
	if fs.shader != nil {
		fs.shader.destroy()
		fs.shader = nil
	}
	fs.dropGroups()
	destroyTexture(&fs.color)
	destroyTexture(&fs.grayscale)
	destroyBuffer(&fs.img)
	destroyBuffer(&fs.fg)
	destroyBuffer(&fs.bg)
	destroyBuffer(&fs.uniforms)
	fs.bgCap, fs.fgCap, fs.imgCap = 0, 0, 0
}

func destroyTexture(t *gfx.Texture) {
	if *t != nil {
		(*t).Destroy()
		*t = nil
	}
}

func destroyBuffer(b *gfx.Buffer) {
	if *b != nil {
		(*b).Destroy()
		*b = nil
	}
}

// customShaderState is the ping-pong pair and per-stage pipelines for
// chained post-processing. Cells render into front; stage n samples the
// previous stage's output and writes the other texture, with the final
// stage writing the frame drawable.
type customShaderState struct {
	dev  gfx.Device
	slot int

	front gfx.Texture
	back  gfx.Texture

	uniforms gfx.Buffer
	sampler  gfx.Sampler

	pipelines []gfx.Pipeline

	// groups[stage][0] samples front, groups[stage][1] samples back.
	groups [][2]gfx.BindGroup

	width, height uint32
	format        gputypes.TextureFormat
}

// shaderStageBindings is the bind group layout every custom shader stage
// compiles against: the shadertoy-style uniform block, the previous
// stage's output, and a linear sampler.
func shaderStageBindings() []gfx.BindingLayout {
	return []gfx.BindingLayout{
		{Binding: 0, Kind: gfx.BindingUniform},
		{Binding: 1, Kind: gfx.BindingTexture, Visibility: gfx.StageFragment},
		{Binding: 2, Kind: gfx.BindingSampler, Visibility: gfx.StageFragment},
	}
}

// probeShaders compiles every stage once and discards the pipelines, so
// a broken source is rejected while the old configuration still stands.
func probeShaders(dev gfx.Device, sources []string, surface gputypes.TextureFormat) error {
	for i, src := range sources {
		p, err := dev.CreatePipeline(gfx.PipelineDescriptor{
			Label:         fmt.Sprintf("custom-shader-probe-%d", i),
			Shader:        src,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
			Bindings:      shaderStageBindings(),
			ColorFormat:   surface,
			Blend:         gfx.BlendNone,
		})
		if err != nil {
			return fmt.Errorf("custom shader stage %d: %w", i, err)
		}
		p.Destroy()
	}
	return nil
}

func newCustomShaderState(dev gfx.Device, slot int, sources []string, w, h uint32, surface gputypes.TextureFormat) (*customShaderState, error) {
	st := &customShaderState{
		dev:    dev,
		slot:   slot,
		format: surface,
	}

	fail := func(err error) (*customShaderState, error) {
		st.destroy()
		return nil, err
	}

	var su shaderUniforms
	buf, err := dev.CreateBuffer(gfx.BufferDescriptor{
		Label: fmt.Sprintf("shader-uniforms-%d", slot),
		Size:  uint64(len(gfx.Bytes(&su))),
		Usage: gfx.BufferUsageUniform | gfx.BufferUsageCopyDst,
	})
	if err != nil {
		return fail(fmt.Errorf("shader uniforms: %w", err))
	}
	st.uniforms = buf

	sampler, err := dev.CreateSampler(gfx.SamplerDescriptor{
		Label:     fmt.Sprintf("shader-sampler-%d", slot),
		MagFilter: gfx.FilterLinear,
		MinFilter: gfx.FilterLinear,
	})
	if err != nil {
		return fail(fmt.Errorf("shader sampler: %w", err))
	}
	st.sampler = sampler

	for i, src := range sources {
		p, err := dev.CreatePipeline(gfx.PipelineDescriptor{
			Label:         fmt.Sprintf("custom-shader-%d-%d", slot, i),
			Shader:        src,
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
			Bindings:      shaderStageBindings(),
			ColorFormat:   surface,
			Blend:         gfx.BlendNone,
		})
		if err != nil {
			return fail(fmt.Errorf("custom shader stage %d: %w", i, err))
		}
		st.pipelines = append(st.pipelines, p)
	}

	if err := st.createTargets(w, h); err != nil {
		return fail(err)
	}
	return st, nil
}

// createTargets builds the ping-pong textures and the per-stage bind
// groups that sample them. The textures share the drawable's format so
// the cell pipelines can render into front unchanged. The stored size
// is updated only once every resource exists.
func (st *customShaderState) createTargets(w, h uint32) error {
	for i, tex := range []*gfx.Texture{&st.front, &st.back} {
		t, err := st.dev.CreateTexture(gfx.TextureDescriptor{
			Label:  fmt.Sprintf("shader-pingpong-%d-%d", st.slot, i),
			Width:  w,
			Height: h,
			Format: st.format,
			Usage:  gfx.TextureUsageBinding | gfx.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("shader texture: %w", err)
		}
		*tex = t
	}

	st.groups = st.groups[:0]
	for i, p := range st.pipelines {
		var pair [2]gfx.BindGroup
		for j, tex := range []gfx.Texture{st.front, st.back} {
			g, err := st.dev.CreateBindGroup(gfx.BindGroupDescriptor{
				Label:    fmt.Sprintf("shader-group-%d-%d-%d", st.slot, i, j),
				Pipeline: p,
				Entries: []gfx.BindingResource{
					{Binding: 0, Buffer: st.uniforms},
					{Binding: 1, Texture: tex},
					{Binding: 2, Sampler: st.sampler},
				},
			})
			if err != nil {
				return fmt.Errorf("shader bind group: %w", err)
			}
			pair[j] = g
		}
		st.groups = append(st.groups, pair)
	}
	st.width, st.height = w, h
	return nil
}

// resize replaces the ping-pong textures, destroying the old pair first.
func (st *customShaderState) resize(w, h uint32) error {
	if st.width == w && st.height == h {
		return nil
	}
	st.dropTargets()
	st.width, st.height = 0, 0
	return st.createTargets(w, h)
}

func (st *customShaderState) dropTargets() {
	for i := range st.groups {
		for j := range st.groups[i] {
			if st.groups[i][j] != nil {
				st.groups[i][j].Destroy()
			}
		}
	}
	st.groups = st.groups[:0]
	destroyTexture(&st.back)
	destroyTexture(&st.front)
}

func (st *customShaderState) destroy() {
	st.dropTargets()
	for i := len(st.pipelines) - 1; i >= 0; i-- {
		st.pipelines[i].Destroy()
	}
	st.pipelines = nil
	if st.sampler != nil {
		st.sampler.Destroy()
		st.sampler = nil
	}
	destroyBuffer(&st.uniforms)
}
