package gfx

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestExtent(t *testing.T) {
	tests := []struct {
		name string
		e    Extent
		zero bool
		str  string
	}{
		{"both set", Extent{Width: 800, Height: 600}, false, "800x600"},
		{"zero width", Extent{Width: 0, Height: 600}, true, "0x600"},
		{"zero height", Extent{Width: 800, Height: 0}, true, "800x0"},
		{"empty", Extent{}, true, "0x0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.IsZero(); got != tt.zero {
				t.Errorf("IsZero() = %v, want %v", got, tt.zero)
			}
			if got := tt.e.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestBufferUsageHas(t *testing.T) {
	u := BufferUsageVertex | BufferUsageCopyDst

	if !u.Has(BufferUsageVertex) {
		t.Error("expected vertex usage")
	}
	if !u.Has(BufferUsageCopyDst) {
		t.Error("expected copy-dst usage")
	}
	if !u.Has(BufferUsageVertex | BufferUsageCopyDst) {
		t.Error("expected combined usage")
	}
	if u.Has(BufferUsageUniform) {
		t.Error("unexpected uniform usage")
	}
}

func TestTextureUsageHas(t *testing.T) {
	u := TextureUsageBinding | TextureUsageCopyDst

	if !u.Has(TextureUsageBinding) {
		t.Error("expected binding usage")
	}
	if u.Has(TextureUsageRenderAttachment) {
		t.Error("unexpected render attachment usage")
	}
}

func TestVertexFormatSize(t *testing.T) {
	tests := []struct {
		format VertexFormat
		size   uint32
	}{
		{VertexFormatFloat32, 4},
		{VertexFormatFloat32x2, 8},
		{VertexFormatFloat32x4, 16},
		{VertexFormatUint32, 4},
		{VertexFormatUint32x2, 8},
		{VertexFormatUint32x4, 16},
		{VertexFormatUnorm8x4, 4},
		{VertexFormatSint32x2, 8},
		{VertexFormatUint16x2, 4},
		{VertexFormatSint16x2, 4},
	}

	for _, tt := range tests {
		if got := tt.format.Size(); got != tt.size {
			t.Errorf("VertexFormat(%d).Size() = %d, want %d", tt.format, got, tt.size)
		}
	}
}

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		format gputypes.TextureFormat
		bpp    uint32
	}{
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatBGRA8Unorm, 4},
		{gputypes.TextureFormatRGBA8UnormSrgb, 4},
		{gputypes.TextureFormatBGRA8UnormSrgb, 4},
		{gputypes.TextureFormatUndefined, 0},
	}

	for _, tt := range tests {
		if got := BytesPerPixel(tt.format); got != tt.bpp {
			t.Errorf("BytesPerPixel(%v) = %d, want %d", tt.format, got, tt.bpp)
		}
	}
}

func TestBytes(t *testing.T) {
	type uniform struct {
		A uint32
		B uint32
		C float32
		D float32
	}

	u := uniform{A: 1, B: 2, C: 3, D: 4}
	b := Bytes(&u)

	if len(b) != 16 {
		t.Fatalf("Bytes() len = %d, want 16", len(b))
	}

	// Mutating the bytes mutates the struct: same memory.
	b[0], b[1], b[2], b[3] = 0xFF, 0xFF, 0xFF, 0xFF
	if u.A != 0xFFFFFFFF {
		t.Error("Bytes() does not alias the struct memory")
	}
}

func TestSliceBytes(t *testing.T) {
	verts := []float32{0, 1, 2, 3}
	b := SliceBytes(verts)

	if len(b) != 16 {
		t.Fatalf("SliceBytes() len = %d, want 16", len(b))
	}
	if got := SliceBytes([]float32(nil)); got != nil {
		t.Errorf("SliceBytes(nil) = %v, want nil", got)
	}
	if got := SliceBytes([]float32{}); got != nil {
		t.Errorf("SliceBytes(empty) = %v, want nil", got)
	}
}
