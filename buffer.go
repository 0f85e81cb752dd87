package gpubuf

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/gogpu/gpubuf/gpucore"
)

// Buffer is a typed array of T in device memory.
//
// A Buffer owns one default-heap allocation and one view, both created by
// Allocate and both released by Dispose. Host code reaches the contents only
// through the staged Get/Set methods, each of which blocks until the device
// has completed the transfer.
//
// Buffer is not safe for concurrent use. Sequential calls from one goroutine
// are applied in issue order.
type Buffer[T any] struct {
	res resource

	usage       Usage
	count       int
	elemSize    uint64
	stride      uint64
	sizeInBytes uint64
	footprint   uint64

	disposed bool
}

// Allocate creates a buffer of count zero-valued elements of T on device.
//
// The element stride is the natural size of T, except for UsageConstant
// where each element is padded to 16 bytes and the allocation is rounded up
// to the device constant-buffer alignment.
//
// Errors:
//   - ErrInvalidArgument: nil device, unknown usage, negative count, or an
//     element type that is zero-sized or contains pointers
//   - ErrDeviceDisposed: the device has been disposed
//   - ErrSizeOverflow: the size is not representable or exceeds the
//     device's maximum buffer size
//   - ErrAllocationFailed: the device refused memory, a descriptor or the view
func Allocate[T any](device gpucore.Device, count int, usage Usage, opts ...AllocateOption) (*Buffer[T], error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidArgument)
	}
	if !usage.valid() {
		return nil, fmt.Errorf("%w: usage %v", ErrInvalidArgument, usage)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrInvalidArgument, count)
	}
	elemSize, err := elementSize[T]()
	if err != nil {
		return nil, err
	}
	if device.IsDisposed() {
		return nil, ErrDeviceDisposed
	}

	o := defaultAllocateOptions()
	for _, opt := range opts {
		opt(&o)
	}

	limits := device.Limits()
	stride := usage.stride(elemSize)
	hi, size := bits.Mul64(uint64(count), stride)
	if hi != 0 || size > math.MaxInt {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", ErrSizeOverflow, count, stride)
	}
	if uint64(count) > math.MaxUint32 || stride > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d elements of %d bytes exceeds view range", ErrSizeOverflow, count, stride)
	}

	footprint := size
	if usage == UsageConstant {
		footprint = gpucore.AlignUp(size, limits.ConstantBufferAlignment)
	}
	allocSize := gpucore.AlignUp(footprint, limits.CopyAlignment)
	if allocSize < size || (limits.MaxBufferSize > 0 && allocSize > limits.MaxBufferSize) {
		return nil, fmt.Errorf("%w: %d bytes exceeds device maximum %d", ErrSizeOverflow, allocSize, limits.MaxBufferSize)
	}

	b := &Buffer[T]{
		res: resource{
			device:    device,
			allocSize: allocSize,
			copyAlign: limits.CopyAlignment,
			label:     o.label,
			pool:      o.pool,
		},
		usage:       usage,
		count:       count,
		elemSize:    elemSize,
		stride:      stride,
		sizeInBytes: size,
		footprint:   footprint,
	}
	if b.res.label == "" {
		b.res.label = fmt.Sprintf("gpubuf.Buffer[%d]", count)
	}

	b.res.id, err = device.CreateBuffer(gpucore.HeapDefault, allocSize, b.res.label)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrAllocationFailed, allocSize, err)
	}

	b.res.cpu, b.res.gpu, err = device.AllocateDescriptorHandles()
	if err != nil {
		device.DestroyBuffer(b.res.id)
		return nil, fmt.Errorf("%w: descriptor: %w", ErrAllocationFailed, err)
	}

	b.res.view = newViewDesc(usage, uint64(count), stride, footprint, limits)
	if err := device.CreateView(&b.res.view, b.res.id, b.res.cpu); err != nil {
		b.res.release()
		return nil, fmt.Errorf("%w: %v view: %w", ErrAllocationFailed, b.res.view.Kind, err)
	}

	Logger().Debug("gpubuf: allocated",
		"buffer", b.res.label, "usage", usage, "count", count,
		"stride", stride, "size", size, "footprint", footprint, "alloc", allocSize)
	return b, nil
}

// AllocateFrom creates a buffer holding a copy of data.
func AllocateFrom[T any](device gpucore.Device, usage Usage, data []T, opts ...AllocateOption) (*Buffer[T], error) {
	b, err := Allocate[T](device, len(data), usage, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.SetData(data); err != nil {
		b.Dispose()
		return nil, err
	}
	return b, nil
}

// Len returns the number of elements.
func (b *Buffer[T]) Len() int { return b.count }

// Stride returns the element stride in bytes, including padding.
func (b *Buffer[T]) Stride() uint64 { return b.stride }

// ElementSize returns the natural size of T in bytes.
func (b *Buffer[T]) ElementSize() uint64 { return b.elemSize }

// SizeInBytes returns Len() * Stride().
func (b *Buffer[T]) SizeInBytes() uint64 { return b.sizeInBytes }

// Footprint returns the logical allocation size in bytes. It differs from
// SizeInBytes only for constant buffers.
func (b *Buffer[T]) Footprint() uint64 { return b.footprint }

// Usage returns the usage the buffer was allocated with.
func (b *Buffer[T]) Usage() Usage { return b.usage }

// Device returns the owning device.
func (b *Buffer[T]) Device() gpucore.Device { return b.res.device }

// Handle returns the raw device memory handle for binding layers.
func (b *Buffer[T]) Handle() gpucore.BufferID { return b.res.id }

// Descriptor returns the shader-visible descriptor handle of the view.
func (b *Buffer[T]) Descriptor() gpucore.GPUDescriptorHandle { return b.res.gpu }

// CPUDescriptor returns the host-side descriptor handle of the view.
func (b *Buffer[T]) CPUDescriptor() gpucore.CPUDescriptorHandle { return b.res.cpu }

// ViewDesc returns the view created at allocation.
func (b *Buffer[T]) ViewDesc() gpucore.ViewDesc { return b.res.view }

// IsPaddingPresent reports whether the allocation holds bytes beyond the
// packed elements, either between elements or after the last one.
func (b *Buffer[T]) IsPaddingPresent() bool {
	return b.footprint > uint64(b.count)*b.elemSize
}

// IsDisposed reports whether Dispose has been called.
func (b *Buffer[T]) IsDisposed() bool { return b.disposed }

// AssertSameDevice returns a *MismatchError (matching ErrDeviceMismatch)
// unless device is the buffer's owning device.
func (b *Buffer[T]) AssertSameDevice(device gpucore.Device) error {
	if b.res.device != device {
		return &MismatchError{Buffer: b.res.label, Want: b.res.device, Got: device}
	}
	return nil
}

// Dispose releases the view slot and the device memory.
// This method is idempotent.
func (b *Buffer[T]) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.res.release()

	Logger().Debug("gpubuf: disposed", "buffer", b.res.label)
}

// String returns a short description of the buffer.
func (b *Buffer[T]) String() string {
	state := ""
	if b.disposed {
		state = ", disposed"
	}
	return fmt.Sprintf("Buffer[%T](%q, %v, len=%d, stride=%d%s)",
		*new(T), b.res.label, b.usage, b.count, b.stride, state)
}

// checkLive returns ErrBufferDisposed after Dispose.
func (b *Buffer[T]) checkLive() error {
	if b.disposed {
		return fmt.Errorf("%w: %s", ErrBufferDisposed, b.res.label)
	}
	return nil
}

// checkRange validates [offset, offset+n) against the element count.
func (b *Buffer[T]) checkRange(offset, n int) error {
	if offset < 0 || n < 0 || offset > b.count || n > b.count-offset {
		return fmt.Errorf("%w: range [%d, +%d) outside buffer of %d elements",
			ErrInvalidArgument, offset, n, b.count)
	}
	return nil
}
