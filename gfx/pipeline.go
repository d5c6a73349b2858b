package gfx

import "github.com/gogpu/gputypes"

// VertexFormat is the data type of one vertex attribute.
type VertexFormat uint8

const (
	// VertexFormatFloat32 is one 32-bit float.
	VertexFormatFloat32 VertexFormat = iota
	// VertexFormatFloat32x2 is two 32-bit floats.
	VertexFormatFloat32x2
	// VertexFormatFloat32x4 is four 32-bit floats.
	VertexFormatFloat32x4
	// VertexFormatUint32 is one 32-bit unsigned integer.
	VertexFormatUint32
	// VertexFormatUint32x2 is two 32-bit unsigned integers.
	VertexFormatUint32x2
	// VertexFormatUint32x4 is four 32-bit unsigned integers.
	VertexFormatUint32x4
	// VertexFormatUnorm8x4 is four 8-bit normalized unsigned integers,
	// read as a vec4<f32> in [0,1].
	VertexFormatUnorm8x4
	// VertexFormatSint32x2 is two 32-bit signed integers.
	VertexFormatSint32x2
	// VertexFormatUint16x2 is two 16-bit unsigned integers, read as a
	// vec2<u32>.
	VertexFormatUint16x2
	// VertexFormatSint16x2 is two 16-bit signed integers, read as a
	// vec2<i32>.
	VertexFormatSint16x2
)

// Size returns the byte size of the format.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFormatFloat32x2, VertexFormatUint32x2, VertexFormatSint32x2:
		return 8
	case VertexFormatFloat32x4, VertexFormatUint32x4:
		return 16
	case VertexFormatFloat32, VertexFormatUint32, VertexFormatUnorm8x4,
		VertexFormatUint16x2, VertexFormatSint16x2:
		return 4
	default:
		return 0
	}
}

// VertexAttribute describes one attribute within a vertex layout.
type VertexAttribute struct {
	// Location is the shader location index.
	Location uint32

	// Offset is the byte offset within the vertex record.
	Offset uint32

	// Format is the attribute data type.
	Format VertexFormat
}

// VertexLayout describes one vertex buffer slot.
type VertexLayout struct {
	// Stride is the byte size of one record.
	Stride uint32

	// PerInstance advances the buffer once per instance instead of once
	// per vertex.
	PerInstance bool

	// Attributes are the attributes read from this slot.
	Attributes []VertexAttribute
}

// ShaderStage is a bitmask of pipeline stages a binding is visible to.
type ShaderStage uint8

const (
	// StageVertex makes a binding visible to the vertex stage.
	StageVertex ShaderStage = 1 << iota
	// StageFragment makes a binding visible to the fragment stage.
	StageFragment
)

// BindingKind is the resource class of one bind group entry.
type BindingKind uint8

const (
	// BindingUniform is a uniform buffer.
	BindingUniform BindingKind = iota
	// BindingStorage is a read-only storage buffer.
	BindingStorage
	// BindingTexture is a sampled 2D texture.
	BindingTexture
	// BindingSampler is a filtering sampler.
	BindingSampler
)

// BindingLayout declares one entry of a pipeline's bind group layout.
type BindingLayout struct {
	// Binding is the shader binding index within group 0.
	Binding uint32

	// Kind is the resource class expected at this binding.
	Kind BindingKind

	// Visibility is the stages that read the binding. Zero means
	// vertex and fragment.
	Visibility ShaderStage
}

// BlendMode selects the color blend applied by a pipeline.
type BlendMode uint8

const (
	// BlendNone overwrites the destination.
	BlendNone BlendMode = iota
	// BlendPremultiplied blends src over dst assuming premultiplied
	// alpha: out = src + dst*(1-src.a).
	BlendPremultiplied
)

// PipelineDescriptor describes a render pipeline to create.
//
// A pipeline owns exactly one bind group layout (group 0). The terminal
// renderer never needs more, and a single group keeps bind group churn
// off the per-frame path.
type PipelineDescriptor struct {
	// Label is attached to the resource for debugging.
	Label string

	// Shader is WGSL source containing both entry points.
	Shader string

	// VertexEntry and FragmentEntry name the entry points.
	VertexEntry   string
	FragmentEntry string

	// VertexLayouts describe the vertex buffer slots, in slot order.
	VertexLayouts []VertexLayout

	// Bindings declare the group 0 layout.
	Bindings []BindingLayout

	// ColorFormat is the render target format.
	ColorFormat gputypes.TextureFormat

	// Blend is the color blend mode.
	Blend BlendMode
}

// Pipeline is a compiled render pipeline.
type Pipeline interface {
	// Destroy releases the pipeline and its layouts.
	Destroy()
}

// BindingResource is one resource bound by a bind group entry. Exactly
// one field is set, matching the pipeline's BindingLayout kind.
type BindingResource struct {
	// Binding is the shader binding index within group 0.
	Binding uint32

	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// BindGroupDescriptor describes a bind group to create.
type BindGroupDescriptor struct {
	// Label is attached to the resource for debugging.
	Label string

	// Pipeline supplies the layout the entries bind against.
	Pipeline Pipeline

	// Entries are the bound resources, one per layout entry.
	Entries []BindingResource
}

// BindGroup is a set of resources bound to a pipeline layout.
type BindGroup interface {
	// Destroy releases the bind group.
	Destroy()
}
