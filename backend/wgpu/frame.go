package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termgfx/gfx"
)

// frameTimeout bounds how long the completion watcher waits for the
// GPU before reporting the frame as failed.
const frameTimeout = 5 * time.Second

// frame implements gfx.Frame over one command encoder.
type frame struct {
	dev      *Device
	target   *Target
	encoder  hal.CommandEncoder
	drawView hal.TextureView
	size     gfx.Extent

	callbacks []func(error)
	current   *pass
	submitted bool
}

// BeginFrame acquires the target's next drawable and opens a command
// encoder for the frame.
func (d *Device) BeginFrame(t gfx.Target) (gfx.Frame, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	tgt, ok := t.(*Target)
	if !ok {
		return nil, fmt.Errorf("wgpu: begin frame: %w", ErrForeignResource)
	}
	view, size, err := tgt.acquire()
	if err != nil {
		return nil, fmt.Errorf("wgpu: acquire drawable: %w", err)
	}
	if size.IsZero() {
		return nil, fmt.Errorf("wgpu: target has zero size")
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "termgfx-frame",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("termgfx-frame"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &frame{
		dev:      d,
		target:   tgt,
		encoder:  encoder,
		drawView: view,
		size:     size,
	}, nil
}

// Size returns the drawable size for this frame.
func (f *frame) Size() gfx.Extent { return f.size }

// BeginPass opens a render pass into the frame's drawable, or into the
// pass target texture when one is set.
func (f *frame) BeginPass(desc gfx.PassDescriptor) (gfx.Pass, error) {
	if f.submitted {
		return nil, fmt.Errorf("wgpu: pass %q: frame already submitted", desc.Label)
	}
	if f.current != nil && !f.current.ended {
		return nil, fmt.Errorf("wgpu: pass %q: previous pass still open", desc.Label)
	}
	view := f.drawView
	format := f.target.Format()
	if desc.Target != nil {
		t, ok := desc.Target.(*texture)
		if !ok || t.view == nil {
			return nil, fmt.Errorf("wgpu: pass %q: %w", desc.Label, ErrForeignResource)
		}
		view = t.view
		format = t.format
	}
	loadOp := gputypes.LoadOpClear
	if desc.Load == gfx.LoadOpLoad {
		loadOp = gputypes.LoadOpLoad
	}
	clear := desc.Clear
	if srgbEncoded(format) {
		clear = clear.Linear()
	}
	rp := f.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  loadOp,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: clear.R,
				G: clear.G,
				B: clear.B,
				A: clear.A,
			},
		}},
	})
	p := &pass{rp: rp}
	f.current = p
	return p, nil
}

// OnComplete registers fn to run once the GPU finishes this frame.
func (f *frame) OnComplete(fn func(error)) {
	if fn != nil {
		f.callbacks = append(f.callbacks, fn)
	}
}

// Submit closes encoding and hands the command buffer to the queue. A
// watcher goroutine waits on the frame fence, presents the drawable and
// fires completion callbacks. When submission itself fails, callbacks
// fire synchronously with the error.
func (f *frame) Submit() error {
	if f.submitted {
		return fmt.Errorf("wgpu: frame already submitted")
	}
	f.submitted = true
	if f.current != nil && !f.current.ended {
		f.current.End()
	}

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		err = fmt.Errorf("wgpu: end encoding: %w", err)
		f.fail(err)
		return err
	}
	fence, err := f.dev.device.CreateFence()
	if err != nil {
		f.dev.device.FreeCommandBuffer(cmdBuf)
		err = fmt.Errorf("wgpu: create fence: %w", err)
		f.fail(err)
		return err
	}
	if err := f.dev.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		f.dev.device.DestroyFence(fence)
		f.dev.device.FreeCommandBuffer(cmdBuf)
		err = fmt.Errorf("wgpu: submit: %w", err)
		f.fail(err)
		return err
	}
	f.watch(cmdBuf, fence)
	return nil
}

// fail fires completion callbacks synchronously with err.
func (f *frame) fail(err error) {
	for _, fn := range f.callbacks {
		fn(err)
	}
	f.callbacks = nil
}

// watch waits for the GPU on a separate goroutine, then frees the
// frame's transient resources, presents the drawable and fires the
// completion callbacks.
func (f *frame) watch(cmdBuf hal.CommandBuffer, fence hal.Fence) {
	d := f.dev
	d.frames.Add(1)
	go func() {
		defer d.frames.Done()
		signaled, err := d.device.Wait(fence, 1, frameTimeout)
		if err == nil && !signaled {
			err = ErrFrameTimeout
		}
		d.device.DestroyFence(fence)
		d.device.FreeCommandBuffer(cmdBuf)
		if err != nil {
			d.log().Warn("frame did not complete", "error", err)
		} else {
			f.target.present()
		}
		for _, fn := range f.callbacks {
			fn(err)
		}
	}()
}

// srgbEncoded reports formats whose stores convert linear values to
// sRGB. Clear values are given in the attachment's working space, so an
// sRGB-encoded clear color is linearized before the store re-encodes it.
func srgbEncoded(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return true
	default:
		return false
	}
}

// pass implements gfx.Pass over a hal render pass encoder. Calls after
// End are dropped.
type pass struct {
	rp    hal.RenderPassEncoder
	ended bool
}

func (p *pass) SetPipeline(pl gfx.Pipeline) {
	pp, ok := pl.(*pipeline)
	if !ok || pp.pipeline == nil || p.ended {
		return
	}
	p.rp.SetPipeline(pp.pipeline)
}

func (p *pass) SetBindGroup(bg gfx.BindGroup) {
	g, ok := bg.(*bindGroup)
	if !ok || g.bg == nil || p.ended {
		return
	}
	p.rp.SetBindGroup(0, g.bg, nil)
}

func (p *pass) SetVertexBuffer(slot uint32, buf gfx.Buffer, offset uint64) {
	b, ok := buf.(*buffer)
	if !ok || b.buf == nil || p.ended {
		return
	}
	p.rp.SetVertexBuffer(slot, b.buf, offset)
}

func (p *pass) Draw(vertexCount, instanceCount uint32) {
	if p.ended {
		return
	}
	p.rp.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *pass) End() {
	if p.ended {
		return
	}
	p.rp.End()
	p.ended = true
}
