// Package gfxtest provides an in-memory gfx.Device for tests.
//
// The device records every resource, upload, and draw instead of talking
// to a GPU. Frame completion is observable and controllable: by default
// submitted frames complete immediately, and tests that exercise frame
// pacing can switch to manual completion with SetAutoComplete(false) and
// CompleteNext.
package gfxtest

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgfx/gfx"
)

// Device is a recording implementation of gfx.Device.
//
// All methods are safe for concurrent use so tests can drive completion
// from a separate goroutine.
type Device struct {
	mu sync.Mutex

	auto      bool
	closed    bool
	beginErr  error
	submitErr error

	buffers   []*Buffer
	textures  []*Texture
	samplers  int
	pipelines []*Pipeline
	groups    int

	frames  []*Frame
	pending []*Frame

	counts Counts
}

// Counts is a snapshot of the device's resource and frame counters.
type Counts struct {
	BuffersAlive   int
	TexturesAlive  int
	SamplersAlive  int
	PipelinesAlive int
	GroupsAlive    int

	BufferWrites  int
	TextureWrites int

	FramesBegun     int
	FramesSubmitted int
	FramesCompleted int
}

// NewDevice returns a recording device with auto-completion enabled.
func NewDevice() *Device {
	return &Device{auto: true}
}

// SetAutoComplete switches between immediate completion on Submit (true)
// and manual completion via CompleteNext (false).
func (d *Device) SetAutoComplete(auto bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.auto = auto
}

// CompleteNext completes the oldest submitted-but-incomplete frame,
// firing its callbacks with a nil error. It reports whether a frame was
// pending.
func (d *Device) CompleteNext() bool {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return false
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	d.counts.FramesCompleted++
	callbacks := f.callbacks
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn(nil)
	}
	return true
}

// CompleteAll completes every pending frame in submission order.
func (d *Device) CompleteAll() {
	for d.CompleteNext() {
	}
}

// FailNextBeginFrame makes the next BeginFrame return err.
func (d *Device) FailNextBeginFrame(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.beginErr = err
}

// FailNextSubmit makes the next Submit return err and fire that frame's
// callbacks with it.
func (d *Device) FailNextSubmit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitErr = err
}

// Counts returns a snapshot of the device counters.
func (d *Device) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}

// Frames returns all submitted frames in submission order.
func (d *Device) Frames() []*Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Frame, len(d.frames))
	copy(out, d.frames)
	return out
}

// LastFrame returns the most recently submitted frame, or nil.
func (d *Device) LastFrame() *Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

// BufferByLabel returns the first live buffer with the given label, or
// nil.
func (d *Device) BufferByLabel(label string) *Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.buffers {
		if b.Label == label && !b.destroyed() {
			return b
		}
	}
	return nil
}

// TextureByLabel returns the first live texture with the given label, or
// nil.
func (d *Device) TextureByLabel(label string) *Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.textures {
		if t.Label == label && !t.destroyed() {
			return t
		}
	}
	return nil
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(desc gfx.BufferDescriptor) (gfx.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("gfxtest: device closed")
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("gfxtest: zero-size buffer %q", desc.Label)
	}
	b := &Buffer{dev: d, Label: desc.Label, Usage: desc.Usage, data: make([]byte, desc.Size)}
	d.buffers = append(d.buffers, b)
	d.counts.BuffersAlive++
	return b, nil
}

// CreateTexture implements gfx.Device.
func (d *Device) CreateTexture(desc gfx.TextureDescriptor) (gfx.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("gfxtest: device closed")
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("gfxtest: zero-size texture %q", desc.Label)
	}
	t := &Texture{dev: d, Label: desc.Label, Usage: desc.Usage, w: desc.Width, h: desc.Height, format: desc.Format}
	d.textures = append(d.textures, t)
	d.counts.TexturesAlive++
	return t, nil
}

// CreateSampler implements gfx.Device.
func (d *Device) CreateSampler(desc gfx.SamplerDescriptor) (gfx.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("gfxtest: device closed")
	}
	d.samplers++
	d.counts.SamplersAlive++
	return &Sampler{dev: d, Label: desc.Label}, nil
}

// CreatePipeline implements gfx.Device.
func (d *Device) CreatePipeline(desc gfx.PipelineDescriptor) (gfx.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("gfxtest: device closed")
	}
	if desc.Shader == "" {
		return nil, fmt.Errorf("gfxtest: pipeline %q has no shader source", desc.Label)
	}
	p := &Pipeline{dev: d, Label: desc.Label, Desc: desc}
	d.pipelines = append(d.pipelines, p)
	d.counts.PipelinesAlive++
	return p, nil
}

// CreateBindGroup implements gfx.Device.
func (d *Device) CreateBindGroup(desc gfx.BindGroupDescriptor) (gfx.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("gfxtest: device closed")
	}
	p, ok := desc.Pipeline.(*Pipeline)
	if !ok || p == nil {
		return nil, fmt.Errorf("gfxtest: bind group %q has no pipeline", desc.Label)
	}
	if len(desc.Entries) != len(p.Desc.Bindings) {
		return nil, fmt.Errorf("gfxtest: bind group %q has %d entries, pipeline %q declares %d",
			desc.Label, len(desc.Entries), p.Label, len(p.Desc.Bindings))
	}
	d.groups++
	d.counts.GroupsAlive++
	return &BindGroup{dev: d, Label: desc.Label, Pipeline: p}, nil
}

// WriteBuffer implements gfx.Device.
func (d *Device) WriteBuffer(buf gfx.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return fmt.Errorf("gfxtest: foreign buffer")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if b.dead {
		return fmt.Errorf("gfxtest: write to destroyed buffer %q", b.Label)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("gfxtest: write past end of buffer %q: offset %d + %d > %d",
			b.Label, offset, len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	b.writes++
	d.counts.BufferWrites++
	return nil
}

// WriteTexture implements gfx.Device.
func (d *Device) WriteTexture(tex gfx.Texture, data []byte) error {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return fmt.Errorf("gfxtest: foreign texture")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if t.dead {
		return fmt.Errorf("gfxtest: write to destroyed texture %q", t.Label)
	}
	want := uint64(t.w) * uint64(t.h) * uint64(gfx.BytesPerPixel(t.format))
	if uint64(len(data)) != want {
		return fmt.Errorf("gfxtest: texture %q upload is %d bytes, want %d", t.Label, len(data), want)
	}
	t.data = append(t.data[:0], data...)
	t.writes++
	d.counts.TextureWrites++
	return nil
}

// BeginFrame implements gfx.Device.
func (d *Device) BeginFrame(target gfx.Target) (gfx.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("gfxtest: device closed")
	}
	if err := d.beginErr; err != nil {
		d.beginErr = nil
		return nil, err
	}
	size := target.Size()
	if size.IsZero() {
		return nil, fmt.Errorf("gfxtest: zero-size target")
	}
	d.counts.FramesBegun++
	return &Frame{dev: d, size: size}, nil
}

// Info implements gfx.Device.
func (d *Device) Info() gfx.AdapterInfo {
	return gfx.AdapterInfo{
		Name:          "gfxtest",
		Vendor:        "gogpu",
		DeviceType:    "cpu",
		Backend:       "noop",
		MaxTextureDim: 8192,
	}
}

// Close implements gfx.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Target is a gfx.Target with a settable size.
type Target struct {
	mu     sync.Mutex
	size   gfx.Extent
	format gputypes.TextureFormat
}

// NewTarget returns a target with the given size and RGBA8 format.
func NewTarget(width, height uint32) *Target {
	return &Target{
		size:   gfx.Extent{Width: width, Height: height},
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

// Resize changes the target size reported to the device.
func (t *Target) Resize(width, height uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = gfx.Extent{Width: width, Height: height}
}

// Size implements gfx.Target.
func (t *Target) Size() gfx.Extent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Format implements gfx.Target.
func (t *Target) Format() gputypes.TextureFormat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.format
}

var _ gfx.Device = (*Device)(nil)
var _ gfx.Target = (*Target)(nil)
