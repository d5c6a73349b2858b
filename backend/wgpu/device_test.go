package wgpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/termgfx/gfx"
)

const testShader = `
struct Uniforms {
	tint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
	return vec4<f32>(pos, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
	return uniforms.tint;
}
`

// newTestDevice opens a device on the noop hal backend so tests run
// without GPU hardware.
func newTestDevice(t *testing.T) *Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop backend exposed no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	dev, err := New(WithHALDevice(openDev.Device, openDev.Queue))
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		dev.Close()
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return dev
}

func testPipeline(t *testing.T, dev *Device) gfx.Pipeline {
	t.Helper()
	p, err := dev.CreatePipeline(gfx.PipelineDescriptor{
		Label:         "test-pipeline",
		Shader:        testShader,
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		VertexLayouts: []gfx.VertexLayout{{
			Stride: 8,
			Attributes: []gfx.VertexAttribute{
				{Location: 0, Offset: 0, Format: gfx.VertexFormatFloat32x2},
			},
		}},
		Bindings: []gfx.BindingLayout{
			{Binding: 0, Kind: gfx.BindingUniform},
		},
		ColorFormat: gputypes.TextureFormatRGBA8Unorm,
		Blend:       gfx.BlendPremultiplied,
	})
	if err != nil {
		t.Fatalf("CreatePipeline failed: %v", err)
	}
	return p
}

func TestNewRequiresBothHALHandles(t *testing.T) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer openDev.Device.Destroy()

	if _, err := New(WithHALDevice(openDev.Device, nil)); err == nil {
		t.Error("New should reject a device without a queue")
	}
	if _, err := New(WithHALDevice(nil, openDev.Queue)); err == nil {
		t.Error("New should reject a queue without a device")
	}
}

func TestExternalDeviceInfo(t *testing.T) {
	dev := newTestDevice(t)
	info := dev.Info()
	if info.Backend != "external" {
		t.Errorf("Backend = %q, want external", info.Backend)
	}
	if info.MaxTextureDim == 0 {
		t.Error("MaxTextureDim should be nonzero")
	}
}

type fakeHandle struct {
	dev   hal.Device
	queue hal.Queue
}

func (h fakeHandle) Device() gpucontext.Device   { return nil }
func (h fakeHandle) Queue() gpucontext.Queue     { return nil }
func (h fakeHandle) Adapter() gpucontext.Adapter { return nil }
func (h fakeHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}
func (h fakeHandle) HalDevice() any { return h.dev }
func (h fakeHandle) HalQueue() any  { return h.queue }

func TestDeviceHandleSharing(t *testing.T) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer openDev.Device.Destroy()

	dev, err := New(WithDeviceHandle(fakeHandle{dev: openDev.Device, queue: openDev.Queue}))
	if err != nil {
		t.Fatalf("New with handle failed: %v", err)
	}
	if dev.Info().Backend != "external" {
		t.Errorf("Backend = %q, want external", dev.Info().Backend)
	}

	// The host keeps ownership; Close must leave the hal device alive.
	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	fence, err := openDev.Device.CreateFence()
	if err != nil {
		t.Errorf("host device should survive Close: %v", err)
	} else {
		openDev.Device.DestroyFence(fence)
	}
}

func TestDeviceHandleRejectsEmptyHal(t *testing.T) {
	_, err := New(WithDeviceHandle(fakeHandle{}))
	if !errors.Is(err, ErrIncompatibleHandle) {
		t.Fatalf("New error = %v, want ErrIncompatibleHandle", err)
	}
}

func TestCreateBuffer(t *testing.T) {
	dev := newTestDevice(t)

	buf, err := dev.CreateBuffer(gfx.BufferDescriptor{
		Label: "cells",
		Size:  256,
		Usage: gfx.BufferUsageVertex | gfx.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if buf.Size() != 256 {
		t.Errorf("Size() = %d, want 256", buf.Size())
	}

	if err := dev.WriteBuffer(buf, 0, make([]byte, 256)); err != nil {
		t.Errorf("WriteBuffer failed: %v", err)
	}
	if err := dev.WriteBuffer(buf, 128, make([]byte, 256)); err == nil {
		t.Error("WriteBuffer past the end should fail")
	}

	buf.Destroy()
	buf.Destroy() // second destroy is a no-op
}

func TestCreateBufferZeroSize(t *testing.T) {
	dev := newTestDevice(t)
	if _, err := dev.CreateBuffer(gfx.BufferDescriptor{Label: "empty"}); err == nil {
		t.Error("zero-size buffer should fail")
	}
}

func TestWriteBufferForeign(t *testing.T) {
	dev := newTestDevice(t)
	err := dev.WriteBuffer(nil, 0, []byte{1})
	if !errors.Is(err, ErrForeignResource) {
		t.Fatalf("WriteBuffer error = %v, want ErrForeignResource", err)
	}
}

func TestCreateTexture(t *testing.T) {
	dev := newTestDevice(t)

	tex, err := dev.CreateTexture(gfx.TextureDescriptor{
		Label:  "atlas",
		Width:  64,
		Height: 32,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gfx.TextureUsageBinding | gfx.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if tex.Width() != 64 || tex.Height() != 32 {
		t.Errorf("size = %dx%d, want 64x32", tex.Width(), tex.Height())
	}
	if tex.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8", tex.Format())
	}

	if err := dev.WriteTexture(tex, make([]byte, 64*32*4)); err != nil {
		t.Errorf("WriteTexture failed: %v", err)
	}
	if err := dev.WriteTexture(tex, make([]byte, 16)); err == nil {
		t.Error("short upload should fail")
	}

	tex.Destroy()
}

func TestCreateTextureLimit(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.CreateTexture(gfx.TextureDescriptor{
		Label:  "huge",
		Width:  dev.limits.MaxTextureDimension2D + 1,
		Height: 16,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gfx.TextureUsageBinding,
	})
	if err == nil {
		t.Error("texture above the device limit should fail")
	}
}

func TestCreateSampler(t *testing.T) {
	dev := newTestDevice(t)
	smp, err := dev.CreateSampler(gfx.SamplerDescriptor{
		Label:        "linear",
		MagFilter:    gfx.FilterLinear,
		MinFilter:    gfx.FilterLinear,
		AddressModeU: gfx.AddressRepeat,
		AddressModeV: gfx.AddressClampToEdge,
	})
	if err != nil {
		t.Fatalf("CreateSampler failed: %v", err)
	}
	smp.Destroy()
}

func TestCreatePipeline(t *testing.T) {
	dev := newTestDevice(t)
	p := testPipeline(t, dev)
	p.Destroy()
}

func TestCreatePipelineBadShader(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.CreatePipeline(gfx.PipelineDescriptor{
		Label:         "broken",
		Shader:        "this is not wgsl",
		VertexEntry:   "vs_main",
		FragmentEntry: "fs_main",
		ColorFormat:   gputypes.TextureFormatRGBA8Unorm,
	})
	if err == nil {
		t.Fatal("malformed shader should fail to compile")
	}
	if !strings.Contains(err.Error(), "compile") {
		t.Errorf("error %q should mention compilation", err)
	}
}

func TestCreatePipelineMissingEntryPoint(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.CreatePipeline(gfx.PipelineDescriptor{
		Label:       "no-entries",
		Shader:      testShader,
		ColorFormat: gputypes.TextureFormatRGBA8Unorm,
	})
	if err == nil {
		t.Fatal("pipeline without entry points should fail")
	}
}

func TestCreateBindGroup(t *testing.T) {
	dev := newTestDevice(t)
	p := testPipeline(t, dev)
	defer p.Destroy()

	buf, err := dev.CreateBuffer(gfx.BufferDescriptor{
		Label: "uniforms",
		Size:  16,
		Usage: gfx.BufferUsageUniform | gfx.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	defer buf.Destroy()

	bg, err := dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    "uniform-group",
		Pipeline: p,
		Entries:  []gfx.BindingResource{{Binding: 0, Buffer: buf}},
	})
	if err != nil {
		t.Fatalf("CreateBindGroup failed: %v", err)
	}
	bg.Destroy()
}

func TestCreateBindGroupEntryMismatch(t *testing.T) {
	dev := newTestDevice(t)
	p := testPipeline(t, dev)
	defer p.Destroy()

	_, err := dev.CreateBindGroup(gfx.BindGroupDescriptor{
		Label:    "empty-group",
		Pipeline: p,
	})
	if err == nil {
		t.Fatal("bind group with missing entries should fail")
	}
}

func TestCreateBindGroupForeignPipeline(t *testing.T) {
	dev := newTestDevice(t)
	_, err := dev.CreateBindGroup(gfx.BindGroupDescriptor{Label: "orphan"})
	if !errors.Is(err, ErrForeignResource) {
		t.Fatalf("CreateBindGroup error = %v, want ErrForeignResource", err)
	}
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	dev := newTestDevice(t)
	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := dev.CreateBuffer(gfx.BufferDescriptor{Label: "late", Size: 4}); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("CreateBuffer error = %v, want ErrDeviceClosed", err)
	}
	if _, err := dev.CreateTarget(8, 8, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("CreateTarget error = %v, want ErrDeviceClosed", err)
	}
}

func TestVertexFormatMapping(t *testing.T) {
	formats := []gfx.VertexFormat{
		gfx.VertexFormatFloat32,
		gfx.VertexFormatFloat32x2,
		gfx.VertexFormatFloat32x4,
		gfx.VertexFormatUint32,
		gfx.VertexFormatUint32x2,
		gfx.VertexFormatUint32x4,
		gfx.VertexFormatUnorm8x4,
		gfx.VertexFormatSint32x2,
		gfx.VertexFormatUint16x2,
		gfx.VertexFormatSint16x2,
	}
	for _, f := range formats {
		if _, err := vertexFormat(f); err != nil {
			t.Errorf("vertexFormat(%d) error = %v", f, err)
		}
	}
	if _, err := vertexFormat(gfx.VertexFormat(255)); err == nil {
		t.Error("unknown vertex format should fail")
	}
}
