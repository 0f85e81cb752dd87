package gpubuf

import (
	"fmt"

	"github.com/gogpu/gpubuf/gpucore"
)

// newViewDesc builds the view for a buffer of count elements of stride
// bytes whose allocation footprint is footprint bytes.
//
// An unsupported usage is a programmer error and panics.
func newViewDesc(usage Usage, count, stride, footprint uint64, limits gpucore.Limits) gpucore.ViewDesc {
	kind := usage.viewKind()
	switch kind {
	case gpucore.ViewConstant:
		return gpucore.ViewDesc{
			Kind:        kind,
			SizeInBytes: gpucore.AlignUp(footprint, limits.ConstantBufferAlignment),
		}
	case gpucore.ViewShaderResource, gpucore.ViewUnorderedAccess:
		return gpucore.ViewDesc{
			Kind:                kind,
			SizeInBytes:         count * stride,
			NumElements:         uint32(count),
			StructureByteStride: uint32(stride),
		}
	default:
		panic(fmt.Sprintf("gpubuf: no view for kind %v", kind))
	}
}
