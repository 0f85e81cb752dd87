package gpucore

import "fmt"

// Resource handles
//
// These opaque handles represent device resources. Each Device
// implementation maintains a mapping between handles and actual backend
// resources. Handles are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to device memory (a committed buffer resource).
type BufferID uint64

// CPUDescriptorHandle addresses the descriptor slot a view is written into.
type CPUDescriptorHandle uint64

// GPUDescriptorHandle is the shader-visible address of a descriptor slot.
// The dispatch layer binds buffers through this handle.
type GPUDescriptorHandle uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// HeapType selects the memory pool a buffer is allocated from.
type HeapType uint32

// Heap types.
const (
	// HeapDefault is device-local memory. It cannot be mapped by the host.
	HeapDefault HeapType = iota + 1

	// HeapUpload is host-visible memory used as a host-to-device copy source.
	HeapUpload

	// HeapReadback is host-visible memory used as a device-to-host copy destination.
	HeapReadback
)

// String returns the string representation of HeapType.
func (h HeapType) String() string {
	switch h {
	case HeapDefault:
		return "Default"
	case HeapUpload:
		return "Upload"
	case HeapReadback:
		return "Readback"
	default:
		return fmt.Sprintf("Unknown(%d)", int(h))
	}
}

// HostVisible reports whether buffers on this heap can be mapped.
func (h HeapType) HostVisible() bool {
	return h == HeapUpload || h == HeapReadback
}

// ViewKind specifies how a buffer is interpreted when bound to a shader.
type ViewKind uint32

// View kinds.
const (
	// ViewConstant is a constant (uniform) buffer view.
	ViewConstant ViewKind = iota + 1

	// ViewShaderResource is a read-only structured buffer view.
	ViewShaderResource

	// ViewUnorderedAccess is a read-write structured buffer view.
	ViewUnorderedAccess
)

// String returns the string representation of ViewKind.
func (k ViewKind) String() string {
	switch k {
	case ViewConstant:
		return "CBV"
	case ViewShaderResource:
		return "SRV"
	case ViewUnorderedAccess:
		return "UAV"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ViewDesc describes a buffer view.
type ViewDesc struct {
	// Kind is the view type.
	Kind ViewKind

	// SizeInBytes is the bound size. For constant views it is already
	// rounded up to Limits.ConstantBufferAlignment.
	SizeInBytes uint64

	// NumElements is the element count for structured views.
	// Zero for constant views.
	NumElements uint32

	// StructureByteStride is the element stride for structured views.
	// Zero for constant views.
	StructureByteStride uint32
}

// BufferCopy describes one buffer-to-buffer region copy.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// Limits describes the allocation and copy constraints of a device.
type Limits struct {
	// ConstantBufferAlignment is the size granularity of constant views.
	// D3D12 and most Vulkan drivers use 256 bytes.
	ConstantBufferAlignment uint64

	// CopyAlignment is the required alignment of copy offsets and sizes.
	// WebGPU requires 4; a software device can copy at any byte.
	CopyAlignment uint64

	// MaxBufferSize is the largest allocation the device accepts.
	// 0 means unlimited.
	MaxBufferSize uint64
}

// Default limits.
const (
	// DefaultConstantBufferAlignment matches D3D12_CONSTANT_BUFFER_DATA_PLACEMENT_ALIGNMENT.
	DefaultConstantBufferAlignment = 256

	// DefaultCopyAlignment matches the WebGPU COPY_BUFFER_ALIGNMENT.
	DefaultCopyAlignment = 4

	// DefaultMaxBufferSize is 256 MiB, the WebGPU default maxBufferSize.
	DefaultMaxBufferSize = 256 << 20
)

// DefaultLimits returns limits matching a baseline WebGPU/D3D12 device.
func DefaultLimits() Limits {
	return Limits{
		ConstantBufferAlignment: DefaultConstantBufferAlignment,
		CopyAlignment:           DefaultCopyAlignment,
		MaxBufferSize:           DefaultMaxBufferSize,
	}
}

// AlignUp rounds n up to a multiple of align. align must be a power of two.
// An align of 0 or 1 returns n unchanged.
func AlignUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// AlignDown rounds n down to a multiple of align. align must be a power of two.
func AlignDown(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return n &^ (align - 1)
}
