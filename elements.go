package gpubuf

import (
	"fmt"
	"reflect"
	"unsafe"
)

// elementSize returns the natural size of T in bytes.
//
// T must be a plain value type: its memory is copied to and from device
// memory byte for byte, so pointers, strings, slices, maps, channels,
// functions and interfaces are rejected. Zero-size types are rejected too.
func elementSize[T any]() (uint64, error) {
	t := reflect.TypeFor[T]()
	if t.Size() == 0 {
		return 0, fmt.Errorf("%w: element type %v has zero size", ErrInvalidArgument, t)
	}
	if hasPointers(t) {
		return 0, fmt.Errorf("%w: element type %v contains pointers", ErrInvalidArgument, t)
	}
	return uint64(t.Size()), nil
}

// hasPointers reports whether values of t hold Go pointers.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// asBytes reinterprets s as its underlying bytes. The result aliases s.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// pack copies src into dst placing element i at byte offset i*stride.
// Bytes between elements are zeroed.
func pack[T any](dst []byte, src []T, elemSize, stride uint64) {
	packBytes(dst, asBytes(src), elemSize, stride)
}

// unpack is the inverse of pack.
func unpack[T any](dst []T, src []byte, elemSize, stride uint64) {
	unpackBytes(asBytes(dst), src, elemSize, stride)
}

// packBytes spreads tightly packed elements of elemSize bytes in src
// to stride-byte slots in dst.
func packBytes(dst, src []byte, elemSize, stride uint64) {
	if stride == elemSize {
		copy(dst, src)
		return
	}
	clear(dst)
	n := uint64(len(src)) / elemSize
	for i := range n {
		copy(dst[i*stride:i*stride+elemSize], src[i*elemSize:(i+1)*elemSize])
	}
}

// unpackBytes gathers stride-byte slots in src into tightly packed dst.
func unpackBytes(dst, src []byte, elemSize, stride uint64) {
	if stride == elemSize {
		copy(dst, src)
		return
	}
	n := uint64(len(dst)) / elemSize
	for i := range n {
		copy(dst[i*elemSize:(i+1)*elemSize], src[i*stride:i*stride+elemSize])
	}
}
