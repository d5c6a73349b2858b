package gfxtest

import (
	"fmt"

	"github.com/gogpu/termgfx/gfx"
)

// Frame is a recording gfx.Frame.
type Frame struct {
	dev       *Device
	size      gfx.Extent
	passes    []*PassRecord
	open      *PassRecord
	callbacks []func(error)
	submitted bool
}

// PassRecord is one recorded render pass.
type PassRecord struct {
	Label string

	// Target is the label of the texture rendered into, or "" for the
	// frame's drawable.
	Target string

	Load  gfx.LoadOp
	Clear gfx.Color
	Draws []DrawRecord

	ended bool
}

// DrawRecord is one recorded draw call with the state bound at the time.
type DrawRecord struct {
	Pipeline  string
	BindGroup string
	Vertices  uint32
	Instances uint32
}

// Size implements gfx.Frame.
func (f *Frame) Size() gfx.Extent { return f.size }

// BeginPass implements gfx.Frame.
func (f *Frame) BeginPass(desc gfx.PassDescriptor) (gfx.Pass, error) {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	if f.submitted {
		return nil, fmt.Errorf("gfxtest: pass on submitted frame")
	}
	if f.open != nil && !f.open.ended {
		return nil, fmt.Errorf("gfxtest: pass %q begun before %q ended", desc.Label, f.open.Label)
	}

	rec := &PassRecord{
		Label: desc.Label,
		Load:  desc.Load,
		Clear: desc.Clear,
	}
	if desc.Target != nil {
		t, ok := desc.Target.(*Texture)
		if !ok {
			return nil, fmt.Errorf("gfxtest: pass %q targets a foreign texture", desc.Label)
		}
		if t.dead {
			return nil, fmt.Errorf("gfxtest: pass %q targets destroyed texture %q", desc.Label, t.Label)
		}
		rec.Target = t.Label
	}
	f.passes = append(f.passes, rec)
	f.open = rec
	return &pass{frame: f, rec: rec}, nil
}

// OnComplete implements gfx.Frame.
func (f *Frame) OnComplete(fn func(error)) {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	f.callbacks = append(f.callbacks, fn)
}

// Submit implements gfx.Frame.
func (f *Frame) Submit() error {
	d := f.dev

	d.mu.Lock()
	if f.submitted {
		d.mu.Unlock()
		return fmt.Errorf("gfxtest: frame submitted twice")
	}
	f.submitted = true
	d.frames = append(d.frames, f)

	if err := d.submitErr; err != nil {
		d.submitErr = nil
		callbacks := f.callbacks
		d.mu.Unlock()
		for _, fn := range callbacks {
			fn(err)
		}
		return err
	}

	d.counts.FramesSubmitted++
	d.pending = append(d.pending, f)
	auto := d.auto
	d.mu.Unlock()

	if auto {
		d.CompleteNext()
	}
	return nil
}

// Passes returns the recorded passes in encode order.
func (f *Frame) Passes() []*PassRecord {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	out := make([]*PassRecord, len(f.passes))
	copy(out, f.passes)
	return out
}

// Pass returns the recorded pass with the given label, or nil.
func (f *Frame) Pass(label string) *PassRecord {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	for _, p := range f.passes {
		if p.Label == label {
			return p
		}
	}
	return nil
}

// pass encodes draws into a PassRecord.
type pass struct {
	frame *Frame
	rec   *PassRecord

	pipeline  string
	bindGroup string
}

// SetPipeline implements gfx.Pass.
func (p *pass) SetPipeline(pl gfx.Pipeline) {
	if rp, ok := pl.(*Pipeline); ok {
		p.pipeline = rp.Label
	}
}

// SetBindGroup implements gfx.Pass.
func (p *pass) SetBindGroup(bg gfx.BindGroup) {
	if rg, ok := bg.(*BindGroup); ok {
		p.bindGroup = rg.Label
	}
}

// SetVertexBuffer implements gfx.Pass.
func (p *pass) SetVertexBuffer(slot uint32, buf gfx.Buffer, offset uint64) {
	_, _, _ = slot, buf, offset
}

// Draw implements gfx.Pass.
func (p *pass) Draw(vertexCount, instanceCount uint32) {
	p.frame.dev.mu.Lock()
	defer p.frame.dev.mu.Unlock()
	p.rec.Draws = append(p.rec.Draws, DrawRecord{
		Pipeline:  p.pipeline,
		BindGroup: p.bindGroup,
		Vertices:  vertexCount,
		Instances: instanceCount,
	})
}

// End implements gfx.Pass.
func (p *pass) End() {
	p.frame.dev.mu.Lock()
	defer p.frame.dev.mu.Unlock()
	p.rec.ended = true
}

var (
	_ gfx.Frame = (*Frame)(nil)
	_ gfx.Pass  = (*pass)(nil)
)
