package gfx

import "github.com/gogpu/gputypes"

// Target is a drawable surface a device opens frames against.
//
// Backends provide concrete targets (a window surface, an offscreen
// chain) and type-assert their own implementations in BeginFrame.
type Target interface {
	// Size returns the current drawable size in pixels.
	Size() Extent

	// Format returns the drawable pixel format.
	Format() gputypes.TextureFormat
}

// LoadOp selects what happens to a render target's contents at the start
// of a pass.
type LoadOp uint8

const (
	// LoadOpClear clears the target to the pass clear color.
	LoadOpClear LoadOp = iota
	// LoadOpLoad preserves the existing contents.
	LoadOpLoad
)

// Color is an RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// PassDescriptor describes one render pass within a frame.
type PassDescriptor struct {
	// Label is attached to the pass for debugging.
	Label string

	// Target is the texture to render into. Nil renders into the
	// frame's drawable.
	Target Texture

	// Load selects clear-or-preserve for the target contents.
	Load LoadOp

	// Clear is the clear color used when Load is LoadOpClear.
	Clear Color
}

// Frame is one frame of GPU work against a target's drawable.
//
// Passes are encoded in order, then Submit sends the frame to the GPU
// and presents the drawable. Completion callbacks fire asynchronously
// once the GPU finishes the frame; the renderer uses them to return
// frame slots to its pool.
type Frame interface {
	// Size returns the drawable size for this frame.
	Size() Extent

	// BeginPass opens a render pass. The previous pass must be ended.
	BeginPass(desc PassDescriptor) (Pass, error)

	// OnComplete registers fn to run when the GPU finishes this frame's
	// work. Callbacks must be registered before Submit and may fire on
	// any goroutine. A frame that fails to submit fires callbacks with
	// the submission error.
	OnComplete(fn func(error))

	// Submit sends all encoded passes to the GPU and presents the
	// drawable. The frame must not be used after Submit.
	Submit() error
}

// Pass encodes draws into one render target.
type Pass interface {
	// SetPipeline selects the pipeline for subsequent draws.
	SetPipeline(p Pipeline)

	// SetBindGroup binds resources to the current pipeline's group 0.
	SetBindGroup(bg BindGroup)

	// SetVertexBuffer binds buf to a vertex buffer slot, starting at
	// offset bytes.
	SetVertexBuffer(slot uint32, buf Buffer, offset uint64)

	// Draw draws instanceCount instances of vertexCount vertices.
	Draw(vertexCount, instanceCount uint32)

	// End closes the pass.
	End()
}
