package font

import (
	"errors"
	"fmt"
)

// Atlas-related errors.
var (
	// ErrAtlasFull is returned when the atlas cannot fit the requested region.
	ErrAtlasFull = errors.New("font: atlas is full")

	// ErrRegionBounds is returned when a region lies outside the atlas.
	ErrRegionBounds = errors.New("font: region is outside atlas bounds")

	// ErrAtlasSize is returned for invalid atlas dimensions.
	ErrAtlasSize = errors.New("font: invalid atlas size")
)

// Atlas sizing.
const (
	// DefaultAtlasSize is the initial atlas dimension.
	DefaultAtlasSize = 512

	// MinAtlasSize is the smallest allowed atlas dimension.
	MinAtlasSize = 64

	// MaxAtlasSize caps growth; beyond this the atlas is cleared instead.
	MaxAtlasSize = 8192

	// shelfPadding is the spacing between packed regions.
	shelfPadding = 1
)

// Format selects the pixel layout of an atlas.
type Format uint8

const (
	// FormatGrayscale stores one coverage byte per pixel.
	FormatGrayscale Format = iota
	// FormatRGBA stores four premultiplied bytes per pixel.
	FormatRGBA
)

// BytesPerPixel returns the pixel stride for the format.
func (f Format) BytesPerPixel() int {
	if f == FormatRGBA {
		return 4
	}
	return 1
}

func (f Format) String() string {
	switch f {
	case FormatGrayscale:
		return "grayscale"
	case FormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Region is a rectangular area inside an atlas.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsValid reports whether the region has positive dimensions.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is one horizontal strip in the shelf-packing allocator.
type shelf struct {
	y      int
	height int
	nextX  int
}

// Atlas is a CPU-side square pixel atlas packed with a shelf allocator.
// Glyph masks are written here and the whole atlas is uploaded to a GPU
// texture whenever the modified counter moves past the uploader's mark.
//
// Atlas is not safe for concurrent use; the owning grid serializes access.
type Atlas struct {
	format Format
	size   int
	data   []byte

	shelves []shelf

	// modified increments on every pixel write. generation increments when
	// the backing store is reallocated (grow or clear), which invalidates
	// GPU textures sized for the old store.
	modified   uint64
	generation uint64
}

// NewAtlas creates an empty atlas of the given square dimension.
func NewAtlas(size int, format Format) (*Atlas, error) {
	if size < MinAtlasSize || size > MaxAtlasSize {
		return nil, fmt.Errorf("%w: %d", ErrAtlasSize, size)
	}
	return &Atlas{
		format:  format,
		size:    size,
		data:    make([]byte, size*size*format.BytesPerPixel()),
		shelves: make([]shelf, 0, 16),
	}, nil
}

// Size returns the atlas dimension in pixels.
func (a *Atlas) Size() int { return a.size }

// Format returns the atlas pixel format.
func (a *Atlas) Format() Format { return a.format }

// Data returns the backing pixel store, tightly packed rows.
func (a *Atlas) Data() []byte { return a.data }

// Modified returns the write counter. Uploaders remember the last value
// they synced and re-upload when it changes.
func (a *Atlas) Modified() uint64 { return a.modified }

// Generation returns the reallocation counter.
func (a *Atlas) Generation() uint64 { return a.generation }

// Reserve finds space for a width x height region using shelf packing.
func (a *Atlas) Reserve(width, height int) (Region, error) {
	if width <= 0 || height <= 0 {
		return Region{}, fmt.Errorf("%w: %dx%d", ErrAtlasSize, width, height)
	}

	paddedWidth := width + shelfPadding
	paddedHeight := height + shelfPadding
	if paddedWidth > a.size || paddedHeight > a.size {
		return Region{}, ErrAtlasFull
	}

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.nextX+paddedWidth > a.size {
			continue
		}
		// A taller item cannot extend a shelf that already has items.
		if paddedHeight > s.height && s.nextX > 0 {
			continue
		}
		region := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
		s.nextX += paddedWidth
		if paddedHeight > s.height {
			s.height = paddedHeight
		}
		return region, nil
	}

	newY := 0
	if n := len(a.shelves); n > 0 {
		last := a.shelves[n-1]
		newY = last.y + last.height
	}
	if newY+paddedHeight > a.size {
		return Region{}, ErrAtlasFull
	}
	a.shelves = append(a.shelves, shelf{
		y:      newY,
		height: paddedHeight,
		nextX:  paddedWidth,
	})
	return Region{X: 0, Y: newY, Width: width, Height: height}, nil
}

// Write copies src pixels into the region. src holds region.Height rows of
// region.Width pixels each, stride bytes apart.
func (a *Atlas) Write(region Region, src []byte, stride int) error {
	if !region.IsValid() ||
		region.X < 0 || region.Y < 0 ||
		region.X+region.Width > a.size ||
		region.Y+region.Height > a.size {
		return ErrRegionBounds
	}
	bpp := a.format.BytesPerPixel()
	rowBytes := region.Width * bpp
	if stride < rowBytes || len(src) < (region.Height-1)*stride+rowBytes {
		return fmt.Errorf("%w: source too small for %s", ErrRegionBounds, region)
	}

	for row := 0; row < region.Height; row++ {
		dstOff := ((region.Y+row)*a.size + region.X) * bpp
		srcOff := row * stride
		copy(a.data[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
	a.modified++
	return nil
}

// Grow reallocates the atlas to newSize, preserving packed content in the
// top-left corner so existing regions stay valid.
func (a *Atlas) Grow(newSize int) error {
	if newSize <= a.size {
		return fmt.Errorf("%w: grow to %d from %d", ErrAtlasSize, newSize, a.size)
	}
	if newSize > MaxAtlasSize {
		return ErrAtlasFull
	}

	bpp := a.format.BytesPerPixel()
	data := make([]byte, newSize*newSize*bpp)
	oldRow := a.size * bpp
	for row := 0; row < a.size; row++ {
		copy(data[row*newSize*bpp:row*newSize*bpp+oldRow], a.data[row*oldRow:(row+1)*oldRow])
	}

	a.data = data
	a.size = newSize
	a.generation++
	a.modified++
	return nil
}

// Clear discards all packed content and allocations.
func (a *Atlas) Clear() {
	clear(a.data)
	a.shelves = a.shelves[:0]
	a.generation++
	a.modified++
}

// Utilization returns the fraction of shelf area consumed, 0 to 1.
func (a *Atlas) Utilization() float64 {
	if a.size == 0 {
		return 0
	}
	used := 0
	for _, s := range a.shelves {
		used += s.nextX * s.height
	}
	return float64(used) / float64(a.size*a.size)
}
