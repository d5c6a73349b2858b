package gfx

// Device creates GPU resources and opens frames against a target.
//
// All methods are safe for use from the render thread that owns the
// device. Implementations are not required to be safe for concurrent use
// by multiple goroutines; the renderer serializes access.
type Device interface {
	// CreateBuffer allocates a GPU buffer.
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateTexture allocates a GPU texture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateSampler creates a texture sampler.
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreatePipeline compiles a shader and builds a render pipeline,
	// including the bind group layout declared in the descriptor.
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)

	// CreateBindGroup binds concrete resources to a pipeline's layout.
	// Entries must match the pipeline's binding declarations.
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// WriteBuffer schedules a write of data into buf at offset.
	// The write is visible to the next submitted frame.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// WriteTexture schedules a full upload of data into tex.
	// Data is tightly packed rows of width*BytesPerPixel(format).
	WriteTexture(tex Texture, data []byte) error

	// BeginFrame acquires the target's next drawable and opens a frame.
	// It fails if the target surface is lost or zero-sized.
	BeginFrame(target Target) (Frame, error)

	// Info reports the adapter backing this device.
	Info() AdapterInfo

	// Close releases the device and its queue. Resources created from
	// the device must be destroyed before Close.
	Close() error
}

// AdapterInfo describes the GPU adapter a device runs on.
type AdapterInfo struct {
	// Name is the adapter name, e.g. "Apple M2" or "llvmpipe".
	Name string

	// Vendor is the adapter vendor when known.
	Vendor string

	// DeviceType classifies the adapter, e.g. "discrete", "integrated",
	// "cpu".
	DeviceType string

	// Backend is the underlying API, e.g. "metal", "vulkan", "noop".
	Backend string

	// Driver reports driver details when available.
	Driver string

	// MaxTextureDim is the largest supported 2D texture dimension.
	MaxTextureDim uint32
}
