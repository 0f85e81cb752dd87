// Package software provides an in-memory device backend.
//
// The software device keeps every allocation in host memory while still
// enforcing the rules of a real device: default-heap memory can only be
// reached through copies, staging memory must be mapped before host access,
// copies must respect the configured alignment, and allocations are bounded
// by a memory budget. It is the fallback backend and the test double used to
// verify transfer protocols (see Stats).
package software

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpubuf/backend"
	"github.com/gogpu/gpubuf/gpucore"
)

// Software device errors.
var (
	// ErrDisposed is returned when operating on a disposed device.
	ErrDisposed = errors.New("software: device disposed")

	// ErrMemoryBudgetExceeded is returned when allocation would exceed budget.
	ErrMemoryBudgetExceeded = errors.New("software: memory budget exceeded")

	// ErrBufferTooLarge is returned when one allocation exceeds MaxBufferSize.
	ErrBufferTooLarge = errors.New("software: buffer exceeds max buffer size")

	// ErrBufferNotFound is returned for unknown or released buffer handles.
	ErrBufferNotFound = errors.New("software: buffer not found")

	// ErrDescriptorNotFound is returned for unknown descriptor handles.
	ErrDescriptorNotFound = errors.New("software: descriptor not found")

	// ErrNotHostVisible is returned when mapping default-heap memory.
	ErrNotHostVisible = errors.New("software: buffer is not host visible")

	// ErrAlreadyMapped is returned when mapping a mapped buffer.
	ErrAlreadyMapped = errors.New("software: buffer is already mapped")

	// ErrBufferMapped is returned when a copy touches a mapped buffer.
	ErrBufferMapped = errors.New("software: buffer is mapped")

	// ErrCopyRangeOutOfBounds is returned when a copy exceeds buffer bounds.
	ErrCopyRangeOutOfBounds = errors.New("software: copy range out of bounds")

	// ErrCopyNotAligned is returned when a copy offset or size violates
	// the device copy alignment.
	ErrCopyNotAligned = errors.New("software: copy offset or size not aligned")

	// ErrEncoderConsumed is returned when an encoder is submitted twice.
	ErrEncoderConsumed = errors.New("software: encoder has been consumed")

	// ErrInvalidView is returned when a view description does not fit the buffer.
	ErrInvalidView = errors.New("software: invalid view")
)

// Descriptor handle layout. The GPU base mimics a shader-visible heap start
// so that handles are never confused with buffer IDs in logs.
const (
	cpuDescriptorBase = 0x1000
	gpuDescriptorBase = 0x8000_0000
	descriptorSize    = 32
)

// buffer is a device allocation.
type buffer struct {
	heap   gpucore.HeapType
	label  string
	data   []byte
	mapped bool
}

// descriptor is one descriptor slot.
type descriptor struct {
	gpu    gpucore.GPUDescriptorHandle
	view   *gpucore.ViewDesc
	buffer gpucore.BufferID
}

// Device is an in-memory gpucore.Device.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	limits      gpucore.Limits
	budgetBytes uint64
	usedBytes   uint64

	nextID      uint64
	buffers     map[gpucore.BufferID]*buffer
	descriptors map[gpucore.CPUDescriptorHandle]*descriptor
	nextSlot    uint64
	freeSlots   []uint64

	stats          Stats
	failNextSubmit error

	disposed bool
}

// Interface compliance check.
var _ gpucore.Device = (*Device)(nil)

func init() {
	backend.Register(backend.BackendSoftware, func() (gpucore.Device, error) {
		return New(), nil
	})
}

// New creates a software device.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{
		limits:      o.limits,
		budgetBytes: o.budgetBytes,
		nextID:      1,
		buffers:     make(map[gpucore.BufferID]*buffer),
		descriptors: make(map[gpucore.CPUDescriptorHandle]*descriptor),
	}
}

// IsDisposed reports whether Dispose has been called.
func (d *Device) IsDisposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose releases all allocations. Handles held by buffers become invalid.
// This method is idempotent.
func (d *Device) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return
	}
	d.disposed = true
	d.buffers = make(map[gpucore.BufferID]*buffer)
	d.descriptors = make(map[gpucore.CPUDescriptorHandle]*descriptor)
	d.usedBytes = 0
}

// Limits returns the configured limits.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// CreateBuffer allocates zero-initialized memory.
func (d *Device) CreateBuffer(heap gpucore.HeapType, size uint64, label string) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return gpucore.InvalidID, ErrDisposed
	}
	switch heap {
	case gpucore.HeapDefault, gpucore.HeapUpload, gpucore.HeapReadback:
	default:
		return gpucore.InvalidID, fmt.Errorf("software: unknown heap %v", heap)
	}
	if d.limits.MaxBufferSize > 0 && size > d.limits.MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes, limit %d",
			ErrBufferTooLarge, size, d.limits.MaxBufferSize)
	}
	if d.budgetBytes > 0 && d.usedBytes+size > d.budgetBytes {
		return gpucore.InvalidID, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrMemoryBudgetExceeded, size, d.usedBytes, d.budgetBytes)
	}

	id := gpucore.BufferID(d.nextID)
	d.nextID++
	d.buffers[id] = &buffer{heap: heap, label: label, data: make([]byte, size)}
	d.usedBytes += size

	d.stats.BuffersCreated++
	if heap.HostVisible() {
		d.stats.StagingBuffersCreated++
	}
	return id, nil
}

// DestroyBuffer releases memory. Unknown handles are ignored.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return
	}
	delete(d.buffers, id)
	d.usedBytes -= uint64(len(b.data))
	d.stats.BuffersDestroyed++
}

// MapBuffer returns the backing bytes of a host-visible buffer.
func (d *Device) MapBuffer(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBufferNotFound, id)
	}
	if !b.heap.HostVisible() {
		return nil, fmt.Errorf("%w: %q on %v heap", ErrNotHostVisible, b.label, b.heap)
	}
	if b.mapped {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyMapped, b.label)
	}
	b.mapped = true
	d.stats.Maps++
	return b.data, nil
}

// UnmapBuffer ends a mapping. Unmapping an unmapped buffer is a no-op.
func (d *Device) UnmapBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.buffers[id]; ok {
		b.mapped = false
	}
}

// AllocateDescriptorHandles reserves a descriptor slot.
func (d *Device) AllocateDescriptorHandles() (gpucore.CPUDescriptorHandle, gpucore.GPUDescriptorHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return 0, 0, ErrDisposed
	}

	var slot uint64
	if n := len(d.freeSlots); n > 0 {
		slot = d.freeSlots[n-1]
		d.freeSlots = d.freeSlots[:n-1]
	} else {
		slot = d.nextSlot
		d.nextSlot++
	}

	cpu := gpucore.CPUDescriptorHandle(cpuDescriptorBase + slot*descriptorSize)
	gpu := gpucore.GPUDescriptorHandle(gpuDescriptorBase + slot*descriptorSize)
	d.descriptors[cpu] = &descriptor{gpu: gpu}
	d.stats.DescriptorsAllocated++
	return cpu, gpu, nil
}

// FreeDescriptorHandles returns a descriptor slot.
func (d *Device) FreeDescriptorHandles(cpu gpucore.CPUDescriptorHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.descriptors[cpu]; !ok {
		return
	}
	delete(d.descriptors, cpu)
	d.freeSlots = append(d.freeSlots, (uint64(cpu)-cpuDescriptorBase)/descriptorSize)
	d.stats.DescriptorsFreed++
}

// CreateView writes a view into a descriptor slot.
func (d *Device) CreateView(desc *gpucore.ViewDesc, id gpucore.BufferID, cpu gpucore.CPUDescriptorHandle) error {
	if desc == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidView)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.descriptors[cpu]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrDescriptorNotFound, uint64(cpu))
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBufferNotFound, id)
	}
	if b.heap != gpucore.HeapDefault {
		return fmt.Errorf("%w: views require default-heap memory", ErrInvalidView)
	}

	switch desc.Kind {
	case gpucore.ViewConstant:
		if a := d.limits.ConstantBufferAlignment; a > 1 && desc.SizeInBytes%a != 0 {
			return fmt.Errorf("%w: constant view size %d not aligned to %d", ErrInvalidView, desc.SizeInBytes, a)
		}
		if desc.SizeInBytes > uint64(len(b.data)) {
			return fmt.Errorf("%w: constant view size %d exceeds buffer size %d",
				ErrInvalidView, desc.SizeInBytes, len(b.data))
		}
	case gpucore.ViewShaderResource, gpucore.ViewUnorderedAccess:
		span := uint64(desc.NumElements) * uint64(desc.StructureByteStride)
		if span > uint64(len(b.data)) {
			return fmt.Errorf("%w: %d elements of %d bytes exceed buffer size %d",
				ErrInvalidView, desc.NumElements, desc.StructureByteStride, len(b.data))
		}
	default:
		return fmt.Errorf("%w: unknown kind %v", ErrInvalidView, desc.Kind)
	}

	v := *desc
	slot.view = &v
	slot.buffer = id
	d.stats.ViewsCreated++
	return nil
}

// View returns the view written into a descriptor slot, for inspection.
func (d *Device) View(cpu gpucore.CPUDescriptorHandle) (gpucore.ViewDesc, gpucore.BufferID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.descriptors[cpu]
	if !ok || slot.view == nil {
		return gpucore.ViewDesc{}, gpucore.InvalidID, false
	}
	return *slot.view, slot.buffer, true
}

// Execute runs fn over the contents of a default-heap buffer, standing in
// for a compute dispatch that reads and writes the buffer in place.
func (d *Device) Execute(id gpucore.BufferID, fn func(mem []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return ErrDisposed
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBufferNotFound, id)
	}
	if b.heap != gpucore.HeapDefault {
		return fmt.Errorf("software: execute requires default-heap memory, got %v", b.heap)
	}
	fn(b.data)
	d.stats.Dispatches++
	return nil
}

// FailNextSubmit makes the next SubmitAndWait fail with err.
// Used to exercise transfer failure paths.
func (d *Device) FailNextSubmit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNextSubmit = err
}

// Stats returns a snapshot of the call counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.LiveBuffers = len(d.buffers)
	s.LiveDescriptors = len(d.descriptors)
	s.UsedBytes = d.usedBytes
	return s
}

// String returns a short description of the device.
func (d *Device) String() string {
	return fmt.Sprintf("software.Device(%p)", d)
}
