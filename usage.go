package gpubuf

import (
	"fmt"

	"github.com/gogpu/gpubuf/gpucore"
)

// Usage specifies how a buffer is bound to shader stages.
type Usage int

const (
	// UsageConstant is a small fixed-size constant (uniform) binding.
	// Elements are padded to 16 bytes and the allocation is rounded up to
	// the device constant-buffer alignment.
	UsageConstant Usage = iota + 1

	// UsageReadOnly is a read-only structured buffer.
	UsageReadOnly

	// UsageReadWrite is a read-write structured buffer (no append counter).
	UsageReadWrite
)

// constantElementAlignment is the HLSL cbuffer array element packing.
const constantElementAlignment = 16

// String returns the string representation of Usage.
func (u Usage) String() string {
	switch u {
	case UsageConstant:
		return "Constant"
	case UsageReadOnly:
		return "ReadOnly"
	case UsageReadWrite:
		return "ReadWrite"
	default:
		return fmt.Sprintf("Unknown(%d)", int(u))
	}
}

// valid reports whether u is one of the defined usage kinds.
func (u Usage) valid() bool {
	return u >= UsageConstant && u <= UsageReadWrite
}

// viewKind returns the view kind created for this usage.
func (u Usage) viewKind() gpucore.ViewKind {
	switch u {
	case UsageConstant:
		return gpucore.ViewConstant
	case UsageReadOnly:
		return gpucore.ViewShaderResource
	case UsageReadWrite:
		return gpucore.ViewUnorderedAccess
	default:
		panic(fmt.Sprintf("gpubuf: unsupported usage %v", u))
	}
}

// stride returns the element stride in bytes for an element of the given
// natural size.
func (u Usage) stride(elemSize uint64) uint64 {
	if u == UsageConstant {
		return gpucore.AlignUp(elemSize, constantElementAlignment)
	}
	return elemSize
}
