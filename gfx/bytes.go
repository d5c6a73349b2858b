package gfx

import "unsafe"

// Bytes returns the raw bytes of *v for upload to a GPU buffer.
//
// T must be a fixed-size value type without pointers, laid out to match
// the shader's expectations.
func Bytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v)) //nolint:gosec // plain struct serialization
}

// SliceBytes returns the raw bytes of s for upload to a GPU buffer.
// Returns nil for an empty slice.
func SliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	size := uintptr(len(s)) * unsafe.Sizeof(s[0])
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), size) //nolint:gosec // plain slice serialization
}
