package termgfx

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/font"
	"github.com/gogpu/termgfx/gfx"
	"github.com/gogpu/termgfx/terminal"
)

// Renderer turns terminal state into presented frames.
//
// The expected loop runs on one render goroutine: UpdateFrame to merge
// the terminal snapshot and rebuild cell records, then DrawFrame to
// upload and present. ChangeConfig, SetOverlay and RemoveOverlay may be
// called from other goroutines; the renderer serializes them internally.
//
// Frame pacing is bounded by the swap chain: at most Config.BufferCount
// frames are in flight, and DrawFrame blocks when every slot is waiting
// on the GPU.
type Renderer struct {
	dev     gfx.Device
	target  gfx.Target
	grid    *font.SharedGrid
	mailbox Mailbox

	mu     sync.Mutex
	closed bool

	config  Config
	metrics font.Metrics

	chain *swapChain

	bgPipeline    gfx.Pipeline
	fgPipeline    gfx.Pipeline
	imagePipeline gfx.Pipeline
	samplerClamp  gfx.Sampler
	samplerRepeat gfx.Sampler

	state  renderState
	cells  cellContents
	images imageSet

	// Image textures are shared by every frame slot, so replaced ones
	// wait in retired until the frames that could sample them complete.
	retired   []retiredImage
	submitted uint64
	completed atomic.Uint64

	// Deltas for inputs the terminal never flags rows for.
	prevSelection  terminal.Selection
	prevSearch     terminal.Search
	prevHovered    uint32
	prevCurrent    currentMatch
	prevPreeditRow int
	prevPalette    terminal.Palette
	prevScrollbar  terminal.Scrollbar

	// Atlas reallocation marks. A moved generation means packed glyph
	// coordinates in existing records are stale.
	prevGrayGen  uint64
	prevColorGen uint64

	// dirty is set when presented output would change; DrawFrame skips
	// entirely while it is clear.
	dirty    bool
	lastSize gfx.Extent

	// forceFull asks the next UpdateFrame for a full rebuild. Config and
	// metric changes set it; the snapshot is touched only on the render
	// goroutine.
	forceFull bool

	// shaderGen invalidates per-slot shader state on config swaps.
	shaderGen uint64

	health atomic.Uint32

	// Shadertoy-style time base for custom shader uniforms.
	shaderEpoch  time.Time
	lastDraw     time.Time
	frameOrdinal uint32
	smoothFPS    float32

	// Reusable scratch buffers.
	runRunes     []rune
	runCols      []int
	scratchFG    []fgCell
	scratchFG2   []fgCell
	fgScratch    []fgCell
	grayScratch  []byte
	colorScratch []byte
	imgVerts     []imageVertex
	imgDraws     [imagePhases][]imageDraw
}

// New creates a renderer drawing to target with the given device and
// shared font grid. Construction allocates every frame slot eagerly; any
// failure releases what was already created and returns the error.
func New(dev gfx.Device, target gfx.Target, grid *font.SharedGrid, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if target == nil {
		return nil, ErrNilTarget
	}
	if grid == nil {
		return nil, ErrNilGrid
	}

	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		dev:            dev,
		target:         target,
		grid:           grid,
		mailbox:        o.mailbox,
		config:         o.config,
		metrics:        grid.Metrics(),
		prevPreeditRow: -1,
		dirty:          true,
		shaderEpoch:    time.Now(),
	}
	r.images.retire = r.retireImage

	fail := func(err error) (*Renderer, error) {
		r.destroyPipelines()
		return nil, err
	}

	format := target.Format()
	var err error
	if r.bgPipeline, err = dev.CreatePipeline(bgPipelineDescriptor(format)); err != nil {
		return fail(fmt.Errorf("termgfx: bg pipeline: %w", err))
	}
	if r.fgPipeline, err = dev.CreatePipeline(fgPipelineDescriptor(format)); err != nil {
		return fail(fmt.Errorf("termgfx: fg pipeline: %w", err))
	}
	if r.imagePipeline, err = dev.CreatePipeline(imagePipelineDescriptor(format)); err != nil {
		return fail(fmt.Errorf("termgfx: image pipeline: %w", err))
	}
	if r.samplerClamp, err = dev.CreateSampler(gfx.SamplerDescriptor{
		Label:     "sampler-clamp",
		MagFilter: gfx.FilterLinear,
		MinFilter: gfx.FilterLinear,
	}); err != nil {
		return fail(fmt.Errorf("termgfx: sampler: %w", err))
	}
	if r.samplerRepeat, err = dev.CreateSampler(gfx.SamplerDescriptor{
		Label:        "sampler-repeat",
		MagFilter:    gfx.FilterLinear,
		MinFilter:    gfx.FilterLinear,
		AddressModeU: gfx.AddressRepeat,
		AddressModeV: gfx.AddressRepeat,
	}); err != nil {
		return fail(fmt.Errorf("termgfx: sampler: %w", err))
	}

	if err = probeShaders(dev, o.config.CustomShaders, format); err != nil {
		return fail(fmt.Errorf("termgfx: %w", err))
	}

	r.chain, err = newSwapChain(dev, o.config.BufferCount, o.config.CustomShaders, target)
	if err != nil {
		return fail(fmt.Errorf("termgfx: swap chain: %w", err))
	}

	Logger().Info("renderer created",
		"buffers", o.config.BufferCount,
		"backend", dev.Info().Backend,
		"adapter", dev.Info().Name)
	return r, nil
}

func (r *Renderer) destroyPipelines() {
	if r.samplerRepeat != nil {
		r.samplerRepeat.Destroy()
		r.samplerRepeat = nil
	}
	if r.samplerClamp != nil {
		r.samplerClamp.Destroy()
		r.samplerClamp = nil
	}
	if r.imagePipeline != nil {
		r.imagePipeline.Destroy()
		r.imagePipeline = nil
	}
	if r.fgPipeline != nil {
		r.fgPipeline.Destroy()
		r.fgPipeline = nil
	}
	if r.bgPipeline != nil {
		r.bgPipeline.Destroy()
		r.bgPipeline = nil
	}
}

// Close tears the renderer down: it waits for every in-flight frame,
// then frees GPU resources. Safe to call more than once.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	r.chain.deinit()
	r.images.destroy()
	r.reapRetired()
	r.destroyPipelines()
	Logger().Info("renderer closed")
	return nil
}

// Health returns the current frame health.
func (r *Renderer) Health() Health {
	return Health(r.health.Load())
}

// UpdateFrame merges the terminal's state into the renderer and rebuilds
// the cell records that changed. It holds t.Mu only while copying rows
// and scalars, never while shaping or rendering.
//
// cursorBlinkVisible is the blink phase: false hides the cursor.
//
// When synchronized output is active the call returns without touching
// the snapshot, so partially updated grids are never shown.
func (r *Renderer) UpdateFrame(t *terminal.Terminal, cursorBlinkVisible bool) error {
	t.Mu.Lock()
	if t.Synchronized {
		t.Mu.Unlock()
		return nil
	}
	r.state.mergeLocked(t)
	t.Mu.Unlock()

	// Outside every lock: resolve search spans for the copied rows.
	r.state.resolveHighlights()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}

	if m := r.grid.Metrics(); m != r.metrics {
		r.metrics = m
		r.forceFull = true
	}
	var grayGen, colorGen uint64
	_ = r.grid.WithAtlases(func(grayscale, color *font.Atlas) error {
		grayGen, colorGen = grayscale.Generation(), color.Generation()
		return nil
	})
	if grayGen != r.prevGrayGen || colorGen != r.prevColorGen {
		// An atlas was reallocated or cleared, so packed coordinates in
		// rows built before this frame no longer point at their glyphs.
		r.prevGrayGen, r.prevColorGen = grayGen, colorGen
		r.forceFull = true
	}
	if r.forceFull {
		r.forceFull = false
		r.state.dirty = terminal.DirtyFull
	}
	r.state.cursorBlink = cursorBlinkVisible

	if r.rebuildCells() {
		r.dirty = true
	}

	if r.state.scrollbar != r.prevScrollbar {
		r.prevScrollbar = r.state.scrollbar
		post(r.mailbox, ScrollbarNotification{Scrollbar: r.state.scrollbar})
	}

	if r.images.refreshBackground(r.config) {
		r.dirty = true
	}
	if r.images.refreshDebug(r.grid, r.config.DebugOverlay) {
		r.dirty = true
	}
	r.images.convertPending()

	r.state.advanceFrame()
	r.grid.Maintain()
	return nil
}

// DrawFrame uploads the prepared records and presents one frame. When
// nothing changed since the last presented frame (and sync is false and
// no shader animation runs), it returns without any GPU work and the
// previous frame stays on screen.
//
// DrawFrame blocks while all frame slots are in flight.
func (r *Renderer) DrawFrame(sync bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	r.reapRetired()

	size := r.target.Size()
	if size.IsZero() {
		Logger().Debug("draw skipped", "reason", "zero-size target")
		return nil
	}

	animating := len(r.config.CustomShaders) > 0 && r.config.ShaderAnimation
	if !sync && !r.dirty && size == r.lastSize && !animating {
		return nil
	}

	fs, err := r.chain.acquire()
	if err != nil {
		return err
	}
	released := false
	defer func() {
		if !released {
			r.chain.release()
		}
	}()

	if err := r.reconcileSlot(fs, size); err != nil {
		return err
	}
	if err := r.syncAtlases(fs); err != nil {
		return err
	}
	r.images.uploadAll(r.dev, r.imagePipeline, r.samplerClamp, r.samplerRepeat,
		r.config.BackgroundImageMode == ImageTile)

	if err := r.uploadFrameData(fs, size); err != nil {
		return err
	}

	frame, err := r.dev.BeginFrame(r.target)
	if err != nil {
		return fmt.Errorf("termgfx: begin frame: %w", err)
	}
	if err := r.encodeFrame(frame, fs, size); err != nil {
		return err
	}

	frame.OnComplete(r.frameDone)
	released = true
	r.submitted++
	if err := frame.Submit(); err != nil {
		return fmt.Errorf("termgfx: submit: %w", err)
	}

	r.dirty = false
	r.lastSize = size
	r.tickShaderClock()
	return nil
}

// frameDone runs when the GPU finishes a frame, possibly on a backend
// goroutine. It is the only place a slot permit is returned.
func (r *Renderer) frameDone(err error) {
	r.completed.Add(1)
	health := HealthOK
	if err != nil {
		health = HealthDegraded
	}
	if old := r.health.Swap(uint32(health)); old != uint32(health) {
		if err != nil {
			Logger().Warn("frame failed", "err", err)
		}
		post(r.mailbox, HealthNotification{Health: health})
	}
	r.chain.release()
}

// retiredImage holds a replaced image texture until every frame
// submitted before the replacement has completed.
type retiredImage struct {
	after uint64
	tex   gfx.Texture
	group gfx.BindGroup
}

// retireImage parks an image's GPU objects until in-flight frames are
// done with them. Runs under r.mu.
func (r *Renderer) retireImage(tex gfx.Texture, group gfx.BindGroup) {
	r.retired = append(r.retired, retiredImage{after: r.submitted, tex: tex, group: group})
}

// reapRetired destroys retired image objects once the frames that could
// sample them have completed. Runs under r.mu.
func (r *Renderer) reapRetired() {
	if len(r.retired) == 0 {
		return
	}
	done := r.completed.Load()
	kept := r.retired[:0]
	for _, old := range r.retired {
		if old.after > done {
			kept = append(kept, old)
			continue
		}
		if old.group != nil {
			old.group.Destroy()
		}
		if old.tex != nil {
			old.tex.Destroy()
		}
	}
	r.retired = kept
}

// reconcileSlot brings one slot's config-dependent state up to date:
// custom-shader pipelines and size-dependent textures.
func (r *Renderer) reconcileSlot(fs *frameState, size gfx.Extent) error {
	if fs.shaderGen != r.shaderGen {
		if fs.shader != nil {
			fs.shader.destroy()
			fs.shader = nil
		}
		if len(r.config.CustomShaders) > 0 {
			st, err := newCustomShaderState(r.dev, fs.slot, r.config.CustomShaders,
				size.Width, size.Height, r.target.Format())
			if err != nil {
				return fmt.Errorf("termgfx: custom shader state: %w", err)
			}
			fs.shader = st
		}
		fs.shaderGen = r.shaderGen
	}
	if err := fs.resize(size.Width, size.Height); err != nil {
		return fmt.Errorf("termgfx: slot resize: %w", err)
	}
	return nil
}

// syncAtlases mirrors stale atlas pixels into the slot's textures. Pixel
// data is copied under the grid's read lock; GPU calls happen after it
// is released.
func (r *Renderer) syncAtlases(fs *frameState) error {
	var (
		graySize, colorSize int
		grayMod, colorMod   uint64
		upGray, upColor     bool
	)
	_ = r.grid.WithAtlases(func(grayscale, color *font.Atlas) error {
		if fs.grayscale == nil || fs.grayscaleGen != grayscale.Modified() {
			graySize, grayMod = grayscale.Size(), grayscale.Modified()
			r.grayScratch = append(r.grayScratch[:0], grayscale.Data()...)
			upGray = true
		}
		if fs.color == nil || fs.colorGen != color.Modified() {
			colorSize, colorMod = color.Size(), color.Modified()
			r.colorScratch = append(r.colorScratch[:0], color.Data()...)
			upColor = true
		}
		return nil
	})

	if upGray {
		if err := r.uploadAtlas(fs, &fs.grayscale, graySize,
			gputypes.TextureFormatR8Unorm, r.grayScratch, "atlas-grayscale"); err != nil {
			return err
		}
		fs.grayscaleGen = grayMod
	}
	if upColor {
		if err := r.uploadAtlas(fs, &fs.color, colorSize,
			gputypes.TextureFormatRGBA8Unorm, r.colorScratch, "atlas-color"); err != nil {
			return err
		}
		fs.colorGen = colorMod
	}
	return nil
}

func (r *Renderer) uploadAtlas(fs *frameState, tex *gfx.Texture, size int, format gputypes.TextureFormat, data []byte, label string) error {
	dim := uint32(size) //nolint:gosec // atlas sizes are small powers of two
	if *tex == nil || (*tex).Width() != dim {
		destroyTexture(tex)
		t, err := r.dev.CreateTexture(gfx.TextureDescriptor{
			Label:  fmt.Sprintf("%s-%d", label, fs.slot),
			Width:  dim,
			Height: dim,
			Format: format,
			Usage:  gfx.TextureUsageBinding | gfx.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("termgfx: %s: %w", label, err)
		}
		*tex = t
		fs.groupsStale = true
	}
	if err := r.dev.WriteTexture(*tex, data); err != nil {
		return fmt.Errorf("termgfx: %s upload: %w", label, err)
	}
	return nil
}

// uploadFrameData sizes the slot's buffers, refreshes its bind groups
// and writes uniforms, cell records and image quads.
func (r *Renderer) uploadFrameData(fs *frameState, size gfx.Extent) error {
	rows, cols := r.cells.rows, r.cells.cols
	if rows > 0 && cols > 0 {
		r.fgScratch = r.cells.appendAll(r.fgScratch[:0])

		bgBytes := len(r.cells.bg) * 4
		fgBytes := len(r.fgScratch) * fgCellStride
		if err := fs.ensureCellBuffers(bgBytes, max(fgBytes, fgCellStride)); err != nil {
			return fmt.Errorf("termgfx: cell buffers: %w", err)
		}
		if err := r.ensureGroups(fs); err != nil {
			return err
		}

		if err := r.dev.WriteBuffer(fs.bg, 0, gfx.SliceBytes(r.cells.bg)); err != nil {
			return fmt.Errorf("termgfx: bg write: %w", err)
		}
		if len(r.fgScratch) > 0 {
			if err := r.dev.WriteBuffer(fs.fg, 0, gfx.SliceBytes(r.fgScratch)); err != nil {
				return fmt.Errorf("termgfx: fg write: %w", err)
			}
		}

		u := r.buildUniforms(size)
		if err := r.dev.WriteBuffer(fs.uniforms, 0, gfx.Bytes(&u)); err != nil {
			return fmt.Errorf("termgfx: uniform write: %w", err)
		}
	}

	r.buildImageDraws(size)
	if len(r.imgVerts) > 0 {
		if err := fs.ensureImageBuffer(len(r.imgVerts) * imageVertexStride); err != nil {
			return fmt.Errorf("termgfx: image buffer: %w", err)
		}
		if err := r.dev.WriteBuffer(fs.img, 0, gfx.SliceBytes(r.imgVerts)); err != nil {
			return fmt.Errorf("termgfx: image write: %w", err)
		}
	}

	if fs.shader != nil {
		su := r.buildShaderUniforms(size)
		if err := r.dev.WriteBuffer(fs.shader.uniforms, 0, gfx.Bytes(&su)); err != nil {
			return fmt.Errorf("termgfx: shader uniform write: %w", err)
		}
	}
	return nil
}

// ensureGroups rebuilds the slot's bind groups after any bound resource
// was recreated.
func (r *Renderer) ensureGroups(fs *frameState) error {
	if !fs.groupsStale && fs.bgGroup != nil && fs.fgGroup != nil {
		return nil
	}
	fs.dropGroups()

	var err error
	fs.bgGroup, err = r.dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    fmt.Sprintf("cell-bg-%d", fs.slot),
		Pipeline: r.bgPipeline,
		Entries: []gfx.BindingResource{
			{Binding: 0, Buffer: fs.uniforms},
		},
	})
	if err != nil {
		return fmt.Errorf("termgfx: bg bind group: %w", err)
	}
	fs.fgGroup, err = r.dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    fmt.Sprintf("cell-fg-%d", fs.slot),
		Pipeline: r.fgPipeline,
		Entries: []gfx.BindingResource{
			{Binding: 0, Buffer: fs.uniforms},
			{Binding: 1, Texture: fs.grayscale},
			{Binding: 2, Texture: fs.color},
			{Binding: 3, Sampler: r.samplerClamp},
			{Binding: 4, Buffer: fs.bg},
		},
	})
	if err != nil {
		return fmt.Errorf("termgfx: fg bind group: %w", err)
	}
	fs.groupsStale = false
	return nil
}

// encodeFrame records the cell pass and any custom shader passes.
func (r *Renderer) encodeFrame(frame gfx.Frame, fs *frameState, size gfx.Extent) error {
	var cellTarget gfx.Texture
	if fs.shader != nil {
		cellTarget = fs.shader.front
	}

	pass, err := frame.BeginPass(gfx.PassDescriptor{
		Label:  "cells",
		Target: cellTarget,
		Load:   gfx.LoadOpClear,
		Clear:  r.clearColor(),
	})
	if err != nil {
		return fmt.Errorf("termgfx: cell pass: %w", err)
	}

	r.encodeImagePhase(pass, fs, phaseBGImage)
	r.encodeImagePhase(pass, fs, phaseBelowBG)

	cellCount := uint32(r.cells.rows * r.cells.cols) //nolint:gosec // grid dims fit
	if cellCount > 0 {
		pass.SetPipeline(r.bgPipeline)
		pass.SetBindGroup(fs.bgGroup)
		pass.SetVertexBuffer(0, fs.bg, 0)
		pass.Draw(6, cellCount)
	}

	r.encodeImagePhase(pass, fs, phaseBelowText)

	if n := len(r.fgScratch); n > 0 {
		pass.SetPipeline(r.fgPipeline)
		pass.SetBindGroup(fs.fgGroup)
		pass.SetVertexBuffer(0, fs.fg, 0)
		pass.Draw(6, uint32(n)) //nolint:gosec // record counts fit
	}

	r.encodeImagePhase(pass, fs, phaseAboveText)
	r.encodeImagePhase(pass, fs, phaseDebug)
	pass.End()

	if fs.shader == nil {
		return nil
	}

	// Post-processing chain: stage 0 samples the cell output in front;
	// each stage alternates front/back and the last writes the drawable.
	st := fs.shader
	input := 0
	for i, p := range st.pipelines {
		var target gfx.Texture
		if i < len(st.pipelines)-1 {
			if input == 0 {
				target = st.back
			} else {
				target = st.front
			}
		}
		sp, err := frame.BeginPass(gfx.PassDescriptor{
			Label:  fmt.Sprintf("custom-shader-%d", i),
			Target: target,
			Load:   gfx.LoadOpClear,
		})
		if err != nil {
			return fmt.Errorf("termgfx: shader pass %d: %w", i, err)
		}
		sp.SetPipeline(p)
		sp.SetBindGroup(st.groups[i][input])
		sp.Draw(3, 1)
		sp.End()
		input = 1 - input
	}
	return nil
}

// imageDraw phases fix the compositing order of image quads.
const (
	phaseBGImage = iota
	phaseBelowBG
	phaseBelowText
	phaseAboveText
	phaseDebug
	imagePhases
)

// imageDraw is one quad ready to encode: a bind group and the byte
// offset of its six vertices.
type imageDraw struct {
	group  gfx.BindGroup
	offset uint64
}

// buildImageDraws rebuilds the image quad vertices and per-phase draw
// lists for the current frame.
func (r *Renderer) buildImageDraws(size gfx.Extent) {
	r.imgVerts = r.imgVerts[:0]
	for i := range r.imgDraws {
		r.imgDraws[i] = r.imgDraws[i][:0]
	}
	sw, sh := float64(size.Width), float64(size.Height)

	appendDraw := func(phase int, group gfx.BindGroup) {
		r.imgDraws[phase] = append(r.imgDraws[phase], imageDraw{
			group:  group,
			offset: uint64(len(r.imgVerts)-6) * imageVertexStride, //nolint:gosec // vertex counts fit
		})
	}

	if bg := &r.images.bg; bg.resident() {
		iw, ih := float64(bg.tex.Width()), float64(bg.tex.Height())
		x0, y0, x1, y1, u1, v1 := backgroundPlacement(r.config.BackgroundImageMode, iw, ih, sw, sh)
		r.imgVerts = appendImageQuad(r.imgVerts, sw, sh, x0, y0, x1, y1,
			0, 0, u1, v1, r.config.BackgroundImageOpacity)
		appendDraw(phaseBGImage, bg.group)
	}

	layerPhases := [...]struct {
		layer OverlayLayer
		phase int
	}{
		{OverlayBelowBackground, phaseBelowBG},
		{OverlayBelowText, phaseBelowText},
		{OverlayAboveText, phaseAboveText},
	}
	for _, lp := range layerPhases {
		layer, phase := lp.layer, lp.phase
		for _, key := range r.images.layerKeys(layer) {
			e := r.images.overlays[key]
			w, h := float64(e.width), float64(e.height)
			if e.width == 0 {
				w = float64(e.image.tex.Width())
			}
			if e.height == 0 {
				h = float64(e.image.tex.Height())
			}
			x0, y0 := float64(e.x), float64(e.y)
			r.imgVerts = appendImageQuad(r.imgVerts, sw, sh, x0, y0, x0+w, y0+h,
				0, 0, 1, 1, e.opacity)
			appendDraw(phase, e.image.group)
		}
	}

	if dbg := &r.images.debug; dbg.resident() && r.config.DebugOverlay {
		iw, ih := float64(dbg.tex.Width()), float64(dbg.tex.Height())
		scale := min(1, debugOverlaySize/max(iw, ih))
		w, h := iw*scale, ih*scale
		const margin = 8
		x1 := sw - margin
		r.imgVerts = appendImageQuad(r.imgVerts, sw, sh, x1-w, margin, x1, margin+h,
			0, 0, 1, 1, debugOverlayOpacity)
		appendDraw(phaseDebug, dbg.group)
	}
}

const (
	debugOverlaySize    = 256.0
	debugOverlayOpacity = 0.9
)

func (r *Renderer) encodeImagePhase(pass gfx.Pass, fs *frameState, phase int) {
	draws := r.imgDraws[phase]
	if len(draws) == 0 {
		return
	}
	pass.SetPipeline(r.imagePipeline)
	for _, d := range draws {
		pass.SetBindGroup(d.group)
		pass.SetVertexBuffer(0, fs.img, d.offset)
		pass.Draw(6, 1)
	}
}

// clearColor is the premultiplied default background scaled by the
// configured opacity.
func (r *Renderer) clearColor() gfx.Color {
	bg := r.state.palette.Background
	c := gfx.ColorFromBytes(bg.R, bg.G, bg.B, 255)
	c.A = r.config.BackgroundOpacity
	return c.Premultiplied()
}

// buildUniforms fills the shared cell uniform block for this frame.
func (r *Renderer) buildUniforms(size gfx.Extent) uniforms {
	m := r.metrics
	p := r.config.Padding

	u := uniforms{
		ScreenSize:      [2]float32{float32(size.Width), float32(size.Height)},
		CellSize:        [2]float32{float32(m.CellWidth), float32(m.CellHeight)},
		GridSize:        [2]uint32{uint32(r.cells.cols), uint32(r.cells.rows)}, //nolint:gosec // grid dims fit
		GridPaddingLT:   [2]float32{float32(p.Left), float32(p.Top)},
		GridPaddingRB:   [2]float32{float32(p.Right), float32(p.Bottom)},
		PadExtendMask:   r.cells.padExtend,
		MinContrast:     float32(r.config.MinContrast),
		BackgroundColor: r.clearColor().F32(),
	}

	// Publish the cursor cell only when a block fill covers it, so the
	// contrast floor judges the redrawn text against the fill rather
	// than the cell background underneath. Thin cursor shapes leave the
	// cell background visible and keep the sentinel.
	u.CursorPos = [2]uint32{^uint32(0), ^uint32(0)}
	if len(r.cells.cursor) > 0 && r.cells.cursor[0].Mode == modeSolid {
		c := r.cells.cursor[0]
		u.CursorPos = [2]uint32{uint32(c.GridPos[0]), uint32(c.GridPos[1])}
		if c.CellWidth > 1 {
			u.CursorWide = 1
		}
		u.CursorColor = gfx.ColorFromBytes(c.Color[0], c.Color[1], c.Color[2], c.Color[3]).F32()
	}
	return u
}

// buildShaderUniforms fills the shadertoy-style block for custom shader
// stages.
func (r *Renderer) buildShaderUniforms(size gfx.Extent) shaderUniforms {
	now := time.Now()
	w, h := float32(size.Width), float32(size.Height)

	var delta float32
	if !r.lastDraw.IsZero() {
		delta = float32(now.Sub(r.lastDraw).Seconds())
	}

	su := shaderUniforms{
		Resolution: [3]float32{w, h, 1},
		Time:       float32(now.Sub(r.shaderEpoch).Seconds()),
		TimeDelta:  delta,
		FrameRate:  r.smoothFPS,
		Frame:      r.frameOrdinal,
		SampleRate: 44100,
	}
	for i := range su.ChannelResolution {
		su.ChannelResolution[i] = [4]float32{w, h, 1, 0}
	}

	if r.state.mouseCol >= 0 && r.state.mouseRow >= 0 {
		mx := float32(r.config.Padding.Left) + (float32(r.state.mouseCol)+0.5)*float32(r.metrics.CellWidth)
		my := float32(r.config.Padding.Top) + (float32(r.state.mouseRow)+0.5)*float32(r.metrics.CellHeight)
		su.Mouse = [4]float32{mx, my, 0, 0}
	}

	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	su.Date = [4]float32{
		float32(year),
		float32(month - 1),
		float32(day),
		float32(now.Sub(midnight).Seconds()),
	}
	return su
}

// tickShaderClock advances the frame ordinal and smoothed frame rate
// after a successful submit.
func (r *Renderer) tickShaderClock() {
	now := time.Now()
	if !r.lastDraw.IsZero() {
		if dt := now.Sub(r.lastDraw).Seconds(); dt > 0 {
			fps := float32(1 / dt)
			if r.smoothFPS == 0 {
				r.smoothFPS = fps
			} else {
				r.smoothFPS = r.smoothFPS*0.9 + fps*0.1
			}
		}
	}
	r.lastDraw = now
	r.frameOrdinal++
}

// ChangeConfig swaps the configuration snapshot. Validation failure
// logs, keeps the previous configuration and returns the error.
//
// BufferCount is fixed at construction; a differing value is ignored.
func (r *Renderer) ChangeConfig(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}

	cfg.BufferCount = r.config.BufferCount
	if err := cfg.validate(); err != nil {
		Logger().Warn("config rejected", "err", err)
		return err
	}

	if !slices.Equal(cfg.CustomShaders, r.config.CustomShaders) {
		if err := probeShaders(r.dev, cfg.CustomShaders, r.target.Format()); err != nil {
			err = fmt.Errorf("termgfx: %w", err)
			Logger().Warn("config rejected", "err", err)
			return err
		}
		r.shaderGen++
	}
	r.config = cfg

	// Colors, contrast and glyph options may all have changed. The
	// snapshot itself belongs to the render goroutine, so only flag the
	// reset here; UpdateFrame applies it.
	r.forceFull = true
	r.dirty = true
	Logger().Info("config swapped")
	return nil
}

// SetOverlay installs or replaces a keyed overlay image. The image is
// converted and uploaded lazily on the render goroutine.
func (r *Renderer) SetOverlay(key uint32, img OverlayImage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.images.set(key, img)
	r.dirty = true
}

// RemoveOverlay drops a keyed overlay image.
func (r *Renderer) RemoveOverlay(key uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.images.remove(key)
	r.dirty = true
}
