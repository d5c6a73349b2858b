package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termgfx/gfx"
)

// chainDepth is the number of drawables an offscreen target cycles
// through, sized for triple-buffered rendering.
const chainDepth = 3

// SurfaceSource yields drawable views from a host-owned surface.
//
// AcquireView is called from the render thread at frame begin; Present
// is called from the frame's completion goroutine after the GPU
// finishes, so implementations must tolerate the two arriving on
// different goroutines.
type SurfaceSource interface {
	// AcquireView returns the next drawable view and its size.
	AcquireView() (hal.TextureView, gfx.Extent, error)

	// Present shows the most recently acquired drawable.
	Present()
}

// Target implements gfx.Target for this backend.
//
// An offscreen target owns a small chain of color textures the device
// cycles through and supports CPU readback. A surface target wraps a
// host-provided SurfaceSource and presents through it. Targets are not
// safe for concurrent use; the renderer drives them from one goroutine.
type Target struct {
	dev    *Device
	format gputypes.TextureFormat

	// Offscreen drawable chain. Empty for surface targets.
	chain []*texture
	next  int

	// Host surface, nil for offscreen targets.
	source SurfaceSource

	size gfx.Extent
}

var _ gfx.Target = (*Target)(nil)

// CreateTarget creates an offscreen render target of the given size.
func (d *Device) CreateTarget(width, height uint32, format gputypes.TextureFormat) (*Target, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	t := &Target{dev: d, format: format}
	if err := t.rebuild(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// NewSurfaceTarget wraps a host surface. The format must match the
// host's surface format; embedders holding a gfx.DeviceHandle pass its
// SurfaceFormat. The target reports the size of the most recently
// acquired drawable.
func (d *Device) NewSurfaceTarget(source SurfaceSource, format gputypes.TextureFormat) *Target {
	return &Target{dev: d, format: format, source: source}
}

// Size returns the current drawable size in pixels.
func (t *Target) Size() gfx.Extent { return t.size }

// Format returns the drawable pixel format.
func (t *Target) Format() gputypes.TextureFormat { return t.format }

// Resize recreates the offscreen chain at the new size. It must not be
// called while frames are in flight. Resizing a surface target is a
// no-op; the host controls its surface size.
func (t *Target) Resize(width, height uint32) error {
	if t.source != nil {
		return nil
	}
	if t.size.Width == width && t.size.Height == height && len(t.chain) > 0 {
		return nil
	}
	return t.rebuild(width, height)
}

// Destroy releases the offscreen chain.
func (t *Target) Destroy() {
	t.destroyChain()
}

func (t *Target) rebuild(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("wgpu: zero-size target")
	}
	t.destroyChain()
	for i := 0; i < chainDepth; i++ {
		tex, err := t.dev.CreateTexture(gfx.TextureDescriptor{
			Label:  fmt.Sprintf("drawable-%d", i),
			Width:  width,
			Height: height,
			Format: t.format,
			Usage:  gfx.TextureUsageRenderAttachment | gfx.TextureUsageCopySrc,
		})
		if err != nil {
			t.destroyChain()
			return fmt.Errorf("wgpu: build drawable chain: %w", err)
		}
		t.chain = append(t.chain, tex.(*texture))
	}
	t.next = 0
	t.size = gfx.Extent{Width: width, Height: height}
	return nil
}

func (t *Target) destroyChain() {
	for _, tex := range t.chain {
		tex.Destroy()
	}
	t.chain = nil
	t.size = gfx.Extent{}
}

// acquire returns the view to render the next frame into.
func (t *Target) acquire() (hal.TextureView, gfx.Extent, error) {
	if t.source != nil {
		view, size, err := t.source.AcquireView()
		if err != nil {
			return nil, gfx.Extent{}, err
		}
		t.size = size
		return view, size, nil
	}
	if len(t.chain) == 0 {
		return nil, gfx.Extent{}, fmt.Errorf("wgpu: target has no drawables")
	}
	tex := t.chain[t.next]
	t.next = (t.next + 1) % len(t.chain)
	return tex.view, t.size, nil
}

// present shows the finished drawable. Offscreen targets have nowhere
// to present to.
func (t *Target) present() {
	if t.source != nil {
		t.source.Present()
	}
}

// ReadPixels copies the most recently acquired drawable back to the CPU
// as tightly packed RGBA rows, blocking until the GPU copy completes.
func (t *Target) ReadPixels() ([]byte, error) {
	if t.source != nil {
		return nil, fmt.Errorf("wgpu: cannot read back a host surface")
	}
	if len(t.chain) == 0 {
		return nil, fmt.Errorf("wgpu: target has no drawables")
	}
	tex := t.chain[(t.next-1+len(t.chain))%len(t.chain)]
	return t.dev.readTexture(tex)
}

// readTexture copies tex into a staging buffer with the row alignment
// the copy requires, waits for the GPU and returns tight RGBA rows.
func (d *Device) readTexture(tex *texture) ([]byte, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	bpp := gfx.BytesPerPixel(tex.format)
	if bpp == 0 {
		return nil, fmt.Errorf("wgpu: no readback path for texture format %v", tex.format)
	}
	width, height := tex.width, tex.height
	unaligned := width * bpp
	// Buffer-texture copies require 256-byte row alignment.
	aligned := (unaligned + 255) &^ 255

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback-staging",
		Size:  uint64(aligned) * uint64(height),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "readback",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin readback encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(tex.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  aligned,
			RowsPerImage: height,
		},
		TextureBase: hal.ImageCopyTexture{Texture: tex.tex, MipLevel: 0},
		Size:        hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end readback encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback fence: %w", err)
	}
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		d.device.DestroyFence(fence)
		return nil, fmt.Errorf("wgpu: submit readback: %w", err)
	}
	signaled, err := d.device.Wait(fence, 1, frameTimeout)
	d.device.DestroyFence(fence)
	if err != nil {
		return nil, fmt.Errorf("wgpu: wait for readback: %w", err)
	}
	if !signaled {
		return nil, ErrFrameTimeout
	}

	padded := make([]byte, uint64(aligned)*uint64(height))
	if err := d.queue.ReadBuffer(staging, 0, padded); err != nil {
		return nil, fmt.Errorf("wgpu: read staging buffer: %w", err)
	}

	pix := make([]byte, uint64(unaligned)*uint64(height))
	tight, stride := int(unaligned), int(aligned)
	for row := 0; row < int(height); row++ {
		copy(pix[row*tight:(row+1)*tight], padded[row*stride:])
	}
	if tex.format == gputypes.TextureFormatBGRA8Unorm ||
		tex.format == gputypes.TextureFormatBGRA8UnormSrgb {
		swizzleBGRA(pix)
	}
	return pix, nil
}

// swizzleBGRA flips BGRA bytes to RGBA in place.
func swizzleBGRA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
