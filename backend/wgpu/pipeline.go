package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termgfx/gfx"
)

// pipeline implements gfx.Pipeline. It owns the shader module and both
// layouts so Destroy can release everything the descriptor created.
type pipeline struct {
	dev        *Device
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	// bindings is the declared group 0 layout, kept for bind group
	// validation.
	bindings []gfx.BindingLayout
}

// CreatePipeline compiles the shader and builds a render pipeline with
// the single bind group layout the descriptor declares.
func (d *Device) CreatePipeline(desc gfx.PipelineDescriptor) (gfx.Pipeline, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	if desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return nil, fmt.Errorf("wgpu: pipeline %q is missing an entry point", desc.Label)
	}

	module, err := d.createShaderModule(desc.Label, desc.Shader)
	if err != nil {
		return nil, err
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Bindings))
	for i, b := range desc.Bindings {
		entry := gputypes.BindGroupLayoutEntry{Binding: b.Binding}
		switch b.Visibility {
		case gfx.StageVertex:
			entry.Visibility = gputypes.ShaderStageVertex
		case gfx.StageFragment:
			entry.Visibility = gputypes.ShaderStageFragment
		default:
			entry.Visibility = gputypes.ShaderStageVertex | gputypes.ShaderStageFragment
		}
		switch b.Kind {
		case gfx.BindingUniform:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeUniform,
			}
		case gfx.BindingStorage:
			entry.Buffer = &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeReadOnlyStorage,
			}
		case gfx.BindingTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case gfx.BindingSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{
				Type: gputypes.SamplerBindingTypeFiltering,
			}
		default:
			d.device.DestroyShaderModule(module)
			return nil, fmt.Errorf("wgpu: pipeline %q binding %d: unknown kind %d",
				desc.Label, b.Binding, b.Kind)
		}
		entries[i] = entry
	}

	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create bind group layout %q: %w", desc.Label, err)
	}

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(bindLayout)
		d.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create pipeline layout %q: %w", desc.Label, err)
	}

	vertexBuffers := make([]gputypes.VertexBufferLayout, len(desc.VertexLayouts))
	for i, vl := range desc.VertexLayouts {
		attrs := make([]gputypes.VertexAttribute, len(vl.Attributes))
		for j, a := range vl.Attributes {
			format, err := vertexFormat(a.Format)
			if err != nil {
				d.device.DestroyPipelineLayout(pipeLayout)
				d.device.DestroyBindGroupLayout(bindLayout)
				d.device.DestroyShaderModule(module)
				return nil, fmt.Errorf("wgpu: pipeline %q: %w", desc.Label, err)
			}
			attrs[j] = gputypes.VertexAttribute{
				Format:         format,
				Offset:         uint64(a.Offset),
				ShaderLocation: a.Location,
			}
		}
		step := gputypes.VertexStepModeVertex
		if vl.PerInstance {
			step = gputypes.VertexStepModeInstance
		}
		vertexBuffers[i] = gputypes.VertexBufferLayout{
			ArrayStride: uint64(vl.Stride),
			StepMode:    step,
			Attributes:  attrs,
		}
	}

	targets := []gputypes.ColorTargetState{{
		Format:    desc.ColorFormat,
		WriteMask: gputypes.ColorWriteMaskAll,
	}}
	if desc.Blend == gfx.BlendPremultiplied {
		blend := gputypes.BlendStatePremultiplied()
		targets[0].Blend = &blend
	}

	halPipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    vertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(pipeLayout)
		d.device.DestroyBindGroupLayout(bindLayout)
		d.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create render pipeline %q: %w", desc.Label, err)
	}

	return &pipeline{
		dev:        d,
		shader:     module,
		bindLayout: bindLayout,
		pipeLayout: pipeLayout,
		pipeline:   halPipeline,
		bindings:   append([]gfx.BindingLayout(nil), desc.Bindings...),
	}, nil
}

// Destroy releases the pipeline and everything it owns, in reverse
// creation order.
func (p *pipeline) Destroy() {
	if p.pipeline != nil {
		p.dev.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.dev.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.dev.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.dev.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

func vertexFormat(f gfx.VertexFormat) (gputypes.VertexFormat, error) {
	switch f {
	case gfx.VertexFormatFloat32:
		return gputypes.VertexFormatFloat32, nil
	case gfx.VertexFormatFloat32x2:
		return gputypes.VertexFormatFloat32x2, nil
	case gfx.VertexFormatFloat32x4:
		return gputypes.VertexFormatFloat32x4, nil
	case gfx.VertexFormatUint32:
		return gputypes.VertexFormatUint32, nil
	case gfx.VertexFormatUint32x2:
		return gputypes.VertexFormatUint32x2, nil
	case gfx.VertexFormatUint32x4:
		return gputypes.VertexFormatUint32x4, nil
	case gfx.VertexFormatUnorm8x4:
		return gputypes.VertexFormatUnorm8x4, nil
	case gfx.VertexFormatSint32x2:
		return gputypes.VertexFormatSint32x2, nil
	case gfx.VertexFormatUint16x2:
		return gputypes.VertexFormatUint16x2, nil
	case gfx.VertexFormatSint16x2:
		return gputypes.VertexFormatSint16x2, nil
	default:
		return 0, fmt.Errorf("unknown vertex format %d", f)
	}
}

// bindGroup implements gfx.BindGroup.
type bindGroup struct {
	dev *Device
	bg  hal.BindGroup
}

// CreateBindGroup binds concrete resources against a pipeline's group 0
// layout. Entries must match the pipeline's declared bindings one to
// one.
func (d *Device) CreateBindGroup(desc gfx.BindGroupDescriptor) (gfx.BindGroup, error) {
	if d.isClosed() {
		return nil, ErrDeviceClosed
	}
	p, ok := desc.Pipeline.(*pipeline)
	if !ok || p.pipeline == nil {
		return nil, fmt.Errorf("wgpu: bind group %q: %w", desc.Label, ErrForeignResource)
	}
	if len(desc.Entries) != len(p.bindings) {
		return nil, fmt.Errorf("wgpu: bind group %q has %d entries, pipeline declares %d",
			desc.Label, len(desc.Entries), len(p.bindings))
	}

	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := gputypes.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			b, ok := e.Buffer.(*buffer)
			if !ok || b.buf == nil {
				return nil, fmt.Errorf("wgpu: bind group %q entry %d: %w",
					desc.Label, i, ErrForeignResource)
			}
			entry.Resource = gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Offset: 0,
				Size:   b.size,
			}
		case e.Texture != nil:
			t, ok := e.Texture.(*texture)
			if !ok || t.view == nil {
				return nil, fmt.Errorf("wgpu: bind group %q entry %d: %w",
					desc.Label, i, ErrForeignResource)
			}
			entry.Resource = gputypes.TextureViewBinding{
				TextureView: t.view.NativeHandle(),
			}
		case e.Sampler != nil:
			s, ok := e.Sampler.(*sampler)
			if !ok || s.smp == nil {
				return nil, fmt.Errorf("wgpu: bind group %q entry %d: %w",
					desc.Label, i, ErrForeignResource)
			}
			entry.Resource = gputypes.SamplerBinding{
				Sampler: s.smp.NativeHandle(),
			}
		default:
			return nil, fmt.Errorf("wgpu: bind group %q entry %d binds nothing", desc.Label, i)
		}
		entries[i] = entry
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group %q: %w", desc.Label, err)
	}
	return &bindGroup{dev: d, bg: bg}, nil
}

func (g *bindGroup) Destroy() {
	if g.bg == nil {
		return
	}
	g.dev.device.DestroyBindGroup(g.bg)
	g.bg = nil
}
