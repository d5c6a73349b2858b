package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Extent is a 2D size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// BufferUsage declares how a buffer may be used.
type BufferUsage uint32

const (
	// BufferUsageVertex allows binding as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << iota
	// BufferUsageIndex allows binding as an index buffer.
	BufferUsageIndex
	// BufferUsageUniform allows binding as a uniform buffer.
	BufferUsageUniform
	// BufferUsageStorage allows binding as a storage buffer.
	BufferUsageStorage
	// BufferUsageCopyDst allows the buffer to be written from the CPU.
	BufferUsageCopyDst
)

// Has reports whether u contains all flags in flag.
func (u BufferUsage) Has(flag BufferUsage) bool {
	return u&flag == flag
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is attached to the resource for debugging.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage declares the allowed uses.
	Usage BufferUsage
}

// Buffer is a GPU buffer.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// Destroy releases the buffer.
	Destroy()
}

// TextureUsage declares how a texture may be used.
type TextureUsage uint32

const (
	// TextureUsageCopySrc allows copying from the texture.
	TextureUsageCopySrc TextureUsage = 1 << iota
	// TextureUsageCopyDst allows the texture to be written from the CPU.
	TextureUsageCopyDst
	// TextureUsageBinding allows sampling the texture in shaders.
	TextureUsageBinding
	// TextureUsageRenderAttachment allows using the texture as a render
	// target.
	TextureUsageRenderAttachment
)

// Has reports whether u contains all flags in flag.
func (u TextureUsage) Has(flag TextureUsage) bool {
	return u&flag == flag
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	// Label is attached to the resource for debugging.
	Label string

	// Width and Height are the texture dimensions in pixels.
	Width  uint32
	Height uint32

	// Format is the pixel format.
	Format gputypes.TextureFormat

	// Usage declares the allowed uses.
	Usage TextureUsage
}

// Texture is a 2D GPU texture.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the pixel format.
	Format() gputypes.TextureFormat

	// Destroy releases the texture.
	Destroy()
}

// FilterMode selects how a sampler interpolates texels.
type FilterMode uint8

const (
	// FilterNearest samples the nearest texel.
	FilterNearest FilterMode = iota
	// FilterLinear interpolates between texels.
	FilterLinear
)

// AddressMode selects how a sampler treats coordinates outside [0,1].
type AddressMode uint8

const (
	// AddressClampToEdge clamps coordinates to the edge texel.
	AddressClampToEdge AddressMode = iota
	// AddressRepeat wraps coordinates.
	AddressRepeat
)

// SamplerDescriptor describes a sampler to create.
type SamplerDescriptor struct {
	// Label is attached to the resource for debugging.
	Label string

	// MagFilter and MinFilter select the interpolation modes.
	MagFilter FilterMode
	MinFilter FilterMode

	// AddressModeU and AddressModeV select coordinate wrapping.
	AddressModeU AddressMode
	AddressModeV AddressMode
}

// Sampler is a texture sampler.
type Sampler interface {
	// Destroy releases the sampler.
	Destroy()
}

// BytesPerPixel returns the byte size of one pixel of format, or 0 for
// formats the renderer does not upload to.
func BytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	default:
		return 0
	}
}
