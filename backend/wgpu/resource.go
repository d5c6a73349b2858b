package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termgfx/gfx"
)

// buffer implements gfx.Buffer over a hal buffer.
type buffer struct {
	dev  *Device
	buf  hal.Buffer
	size uint64
}

// CreateBuffer allocates a GPU buffer.
func (d *Device) CreateBuffer(desc gfx.BufferDescriptor) (gfx.Buffer, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("wgpu: zero-size buffer %q", desc.Label)
	}
	halBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: bufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	return &buffer{dev: d, buf: halBuf, size: desc.Size}, nil
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) Destroy() {
	if b.buf == nil {
		return
	}
	b.dev.device.DestroyBuffer(b.buf)
	b.buf = nil
}

func bufferUsage(u gfx.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u.Has(gfx.BufferUsageVertex) {
		out |= gputypes.BufferUsageVertex
	}
	if u.Has(gfx.BufferUsageIndex) {
		out |= gputypes.BufferUsageIndex
	}
	if u.Has(gfx.BufferUsageUniform) {
		out |= gputypes.BufferUsageUniform
	}
	if u.Has(gfx.BufferUsageStorage) {
		out |= gputypes.BufferUsageStorage
	}
	if u.Has(gfx.BufferUsageCopyDst) {
		out |= gputypes.BufferUsageCopyDst
	}
	return out
}

// texture implements gfx.Texture over a hal texture and its view.
type texture struct {
	dev    *Device
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

// CreateTexture allocates a 2D texture and a full view of it.
func (d *Device) CreateTexture(desc gfx.TextureDescriptor) (gfx.Texture, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpu: zero-size texture %q", desc.Label)
	}
	if dim := d.limits.MaxTextureDimension2D; desc.Width > dim || desc.Height > dim {
		return nil, fmt.Errorf("wgpu: texture %q is %dx%d, device limit is %d",
			desc.Label, desc.Width, desc.Height, dim)
	}
	halTex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(halTex, &hal.TextureViewDescriptor{
		Label:         desc.Label,
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(halTex)
		return nil, fmt.Errorf("wgpu: create texture view %q: %w", desc.Label, err)
	}
	return &texture{
		dev:    d,
		tex:    halTex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

func (t *texture) Width() uint32                  { return t.width }
func (t *texture) Height() uint32                 { return t.height }
func (t *texture) Format() gputypes.TextureFormat { return t.format }

func (t *texture) Destroy() {
	if t.view != nil {
		t.dev.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.dev.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

func textureUsage(u gfx.TextureUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u.Has(gfx.TextureUsageCopySrc) {
		out |= gputypes.TextureUsageCopySrc
	}
	if u.Has(gfx.TextureUsageCopyDst) {
		out |= gputypes.TextureUsageCopyDst
	}
	if u.Has(gfx.TextureUsageBinding) {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u.Has(gfx.TextureUsageRenderAttachment) {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// sampler implements gfx.Sampler over a hal sampler.
type sampler struct {
	dev *Device
	smp hal.Sampler
}

// CreateSampler creates a texture sampler.
func (d *Device) CreateSampler(desc gfx.SamplerDescriptor) (gfx.Sampler, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	halSmp, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: addressMode(desc.AddressModeU),
		AddressModeV: addressMode(desc.AddressModeV),
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filterMode(desc.MagFilter),
		MinFilter:    filterMode(desc.MinFilter),
		MipmapFilter: filterMode(desc.MinFilter),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler %q: %w", desc.Label, err)
	}
	return &sampler{dev: d, smp: halSmp}, nil
}

func (s *sampler) Destroy() {
	if s.smp == nil {
		return
	}
	s.dev.device.DestroySampler(s.smp)
	s.smp = nil
}

func addressMode(m gfx.AddressMode) gputypes.AddressMode {
	if m == gfx.AddressRepeat {
		return gputypes.AddressModeRepeat
	}
	return gputypes.AddressModeClampToEdge
}

func filterMode(m gfx.FilterMode) gputypes.FilterMode {
	if m == gfx.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// WriteBuffer schedules a write of data into buf at offset.
func (d *Device) WriteBuffer(buf gfx.Buffer, offset uint64, data []byte) error {
	if d.isClosed() {
		return ErrDeviceClosed
	}
	b, ok := buf.(*buffer)
	if !ok {
		return ErrForeignResource
	}
	if b.buf == nil {
		return fmt.Errorf("wgpu: write to destroyed buffer")
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("wgpu: write past end of buffer: offset %d + %d > %d",
			offset, len(data), b.size)
	}
	d.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

// WriteTexture uploads tightly packed rows covering the whole texture.
func (d *Device) WriteTexture(tex gfx.Texture, data []byte) error {
	if d.isClosed() {
		return ErrDeviceClosed
	}
	t, ok := tex.(*texture)
	if !ok {
		return ErrForeignResource
	}
	if t.tex == nil {
		return fmt.Errorf("wgpu: write to destroyed texture")
	}
	bpp := gfx.BytesPerPixel(t.format)
	if bpp == 0 {
		return fmt.Errorf("wgpu: no upload path for texture format %v", t.format)
	}
	want := uint64(t.width) * uint64(t.height) * uint64(bpp)
	if uint64(len(data)) != want {
		return fmt.Errorf("wgpu: texture upload is %d bytes, want %d", len(data), want)
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.width * bpp,
			RowsPerImage: t.height,
		},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	return nil
}
