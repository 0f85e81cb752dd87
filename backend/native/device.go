// Package native provides a gpucore.Device on top of gogpu/wgpu/hal.
package native

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpubuf/backend"
	"github.com/gogpu/gpubuf/gpucore"
	"github.com/gogpu/gpubuf/internal/hostpool"
)

// CopyBufferAlignment is the WebGPU alignment of buffer copy offsets and sizes.
const CopyBufferAlignment = 4

// Buffer usages per heap. Staging maps are serviced through the queue, so
// both staging heaps carry CopyDst.
const (
	defaultHeapUsage  = gputypes.BufferUsageStorage | gputypes.BufferUsageUniform | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	uploadHeapUsage   = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	readbackHeapUsage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
)

// halBuffer tracks one HAL allocation.
type halBuffer struct {
	buf  hal.Buffer
	heap gpucore.HeapType
	size uint64 // requested size; buf may be larger

	// mapped is set from MapBuffer until UnmapBuffer completes.
	// shadow holds the host copy while mapped. Both are guarded by Device.mu.
	mapped bool
	shadow []byte
}

// halView is the bind group written into a descriptor slot.
type halView struct {
	gpu    gpucore.GPUDescriptorHandle
	layout hal.BindGroupLayout
	group  hal.BindGroup
}

// Device implements gpucore.Device using gogpu/wgpu/hal directly.
//
// Views are one-entry bind groups whose binding type follows the view kind.
// Staging maps are host shadows: readback buffers are filled with
// Queue.ReadBuffer on map, upload buffers are flushed with Queue.WriteBuffer
// on unmap.
//
// Thread Safety: Device is safe for concurrent use from multiple goroutines.
// All resource tables are protected by a mutex.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	limits       gpucore.Limits
	fenceTimeout time.Duration
	labelPrefix  string
	pool         *hostpool.Pool

	// ID generation; 0 is invalid.
	nextID atomic.Uint64

	buffers map[gpucore.BufferID]*halBuffer
	views   map[gpucore.CPUDescriptorHandle]*halView

	// release is set for standalone devices that own the HAL device.
	release  func()
	disposed atomic.Bool
}

// Interface compliance check.
var _ gpucore.Device = (*Device)(nil)

func init() {
	backend.Register(backend.BackendNative, func() (gpucore.Device, error) {
		dev, err := Open()
		if err != nil {
			return nil, err
		}
		return dev, nil
	})
}

// New creates a Device wrapping the given HAL device and queue.
// The limits parameter provides the adapter's capability limits.
// If limits is nil, default limits are used.
//
// The caller keeps ownership of device and queue; Dispose releases only the
// resources created through the returned Device.
func New(device hal.Device, queue hal.Queue, limits *gputypes.Limits, opts ...Option) (*Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}

	lim := gputypes.DefaultLimits()
	if limits != nil {
		lim = *limits
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		device: device,
		queue:  queue,
		limits: gpucore.Limits{
			ConstantBufferAlignment: gpucore.DefaultConstantBufferAlignment,
			CopyAlignment:           CopyBufferAlignment,
			MaxBufferSize:           lim.MaxBufferSize,
		},
		fenceTimeout: o.fenceTimeout,
		labelPrefix:  o.labelPrefix,
		pool:         o.pool,
		buffers:      make(map[gpucore.BufferID]*halBuffer),
		views:        make(map[gpucore.CPUDescriptorHandle]*halView),
	}
	d.nextID.Store(1)
	return d, nil
}

// newID generates a unique resource ID.
func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

func (d *Device) label(kind, name string) string {
	if name == "" {
		return d.labelPrefix + "_" + kind
	}
	return d.labelPrefix + "_" + kind + ":" + name
}

// HAL returns the wrapped HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) {
	return d.device, d.queue
}

// IsDisposed reports whether Dispose has been called.
func (d *Device) IsDisposed() bool {
	return d.disposed.Load()
}

// Limits returns the device limits.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// === Buffer Management ===

// CreateBuffer creates a HAL buffer on the given heap. The HAL allocation
// is rounded up to CopyBufferAlignment and is never empty.
func (d *Device) CreateBuffer(heap gpucore.HeapType, size uint64, label string) (gpucore.BufferID, error) {
	if d.disposed.Load() {
		return gpucore.InvalidID, ErrDisposed
	}

	var usage gputypes.BufferUsage
	switch heap {
	case gpucore.HeapDefault:
		usage = defaultHeapUsage
	case gpucore.HeapUpload:
		usage = uploadHeapUsage
	case gpucore.HeapReadback:
		usage = readbackHeapUsage
	default:
		return gpucore.InvalidID, fmt.Errorf("native: unknown heap %v", heap)
	}

	allocSize := max(gpucore.AlignUp(size, CopyBufferAlignment), CopyBufferAlignment)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.label(heap.String(), label),
		Size:  allocSize,
		Usage: usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create buffer: %w", err)
	}

	id := gpucore.BufferID(d.newID())

	d.mu.Lock()
	d.buffers[id] = &halBuffer{buf: buf, heap: heap, size: size}
	d.mu.Unlock()

	backend.Logger().Debug("native: buffer created", "id", id, "heap", heap, "size", size, "alloc", allocSize)
	return id, nil
}

// DestroyBuffer releases a HAL buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	var shadow []byte
	if ok {
		delete(d.buffers, id)
		shadow, b.shadow = b.shadow, nil
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	if shadow != nil {
		d.pool.Put(shadow)
	}
	d.device.DestroyBuffer(b.buf)
}

// Buffer returns the HAL buffer behind id, for binding layers.
func (d *Device) Buffer(id gpucore.BufferID) (hal.Buffer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, false
	}
	return b.buf, true
}

// MapBuffer returns the host shadow of a staging buffer. Readback buffers
// are read from the device before returning. The device lock is not held
// across the read.
func (d *Device) MapBuffer(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	if !ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrBufferNotFound, id)
	}
	if !b.heap.HostVisible() {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %d on %v heap", ErrNotHostVisible, id, b.heap)
	}
	if b.mapped {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrAlreadyMapped, id)
	}
	b.mapped = true
	d.mu.Unlock()

	shadow := d.pool.Get(int(b.size))
	switch b.heap {
	case gpucore.HeapReadback:
		if len(shadow) == 0 {
			break
		}
		if err := d.queue.ReadBuffer(b.buf, 0, shadow); err != nil {
			d.pool.Put(shadow)
			d.mu.Lock()
			b.mapped = false
			d.mu.Unlock()
			return nil, fmt.Errorf("readback: %w", err)
		}
	default:
		clear(shadow)
	}

	d.mu.Lock()
	b.shadow = shadow
	d.mu.Unlock()
	return shadow, nil
}

// UnmapBuffer ends a mapping. Upload buffers are written to the device.
func (d *Device) UnmapBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	if !ok || !b.mapped || b.shadow == nil {
		d.mu.Unlock()
		return
	}
	shadow := b.shadow
	b.shadow = nil
	d.mu.Unlock()

	if b.heap == gpucore.HeapUpload && len(shadow) > 0 {
		d.queue.WriteBuffer(b.buf, 0, shadow)
	}
	d.pool.Put(shadow)

	d.mu.Lock()
	b.mapped = false
	d.mu.Unlock()
}

// === Views ===

// AllocateDescriptorHandles reserves a descriptor slot. The GPU handle
// identifies the bind group written by CreateView.
func (d *Device) AllocateDescriptorHandles() (gpucore.CPUDescriptorHandle, gpucore.GPUDescriptorHandle, error) {
	if d.disposed.Load() {
		return 0, 0, ErrDisposed
	}
	id := d.newID()
	cpu := gpucore.CPUDescriptorHandle(id)
	gpu := gpucore.GPUDescriptorHandle(id)

	d.mu.Lock()
	d.views[cpu] = &halView{gpu: gpu}
	d.mu.Unlock()
	return cpu, gpu, nil
}

// FreeDescriptorHandles releases a descriptor slot and its bind group.
func (d *Device) FreeDescriptorHandles(cpu gpucore.CPUDescriptorHandle) {
	d.mu.Lock()
	v, ok := d.views[cpu]
	if ok {
		delete(d.views, cpu)
	}
	d.mu.Unlock()

	if ok {
		d.destroyView(v)
	}
}

func (d *Device) destroyView(v *halView) {
	if v.group != nil {
		d.device.DestroyBindGroup(v.group)
	}
	if v.layout != nil {
		d.device.DestroyBindGroupLayout(v.layout)
	}
}

// bindingType maps a view kind to its buffer binding type.
func bindingType(kind gpucore.ViewKind) (gputypes.BufferBindingType, error) {
	switch kind {
	case gpucore.ViewConstant:
		return gputypes.BufferBindingTypeUniform, nil
	case gpucore.ViewShaderResource:
		return gputypes.BufferBindingTypeReadOnlyStorage, nil
	case gpucore.ViewUnorderedAccess:
		return gputypes.BufferBindingTypeStorage, nil
	default:
		return 0, fmt.Errorf("%w: kind %v", ErrInvalidView, kind)
	}
}

// bindingSize returns the bound range for a view of viewSize bytes over a
// buffer of bufSize bytes. 0 binds the whole allocation. Buffer bindings are
// sized in multiples of 4; allocations are rounded the same way, so the
// result stays in bounds.
func bindingSize(viewSize, bufSize uint64) uint64 {
	if viewSize == 0 {
		viewSize = bufSize
	}
	return max(gpucore.AlignUp(viewSize, CopyBufferAlignment), CopyBufferAlignment)
}

// CreateView writes a one-entry bind group for buffer into slot cpu.
func (d *Device) CreateView(desc *gpucore.ViewDesc, id gpucore.BufferID, cpu gpucore.CPUDescriptorHandle) error {
	if desc == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidView)
	}
	bt, err := bindingType(desc.Kind)
	if err != nil {
		return err
	}

	d.mu.RLock()
	b, bufOK := d.buffers[id]
	v, viewOK := d.views[cpu]
	d.mu.RUnlock()
	if !bufOK {
		return fmt.Errorf("%w: %d", ErrBufferNotFound, id)
	}
	if !viewOK {
		return fmt.Errorf("%w: %d", ErrDescriptorNotFound, cpu)
	}

	size := bindingSize(desc.SizeInBytes, b.size)

	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: d.label(desc.Kind.String()+"_layout", ""),
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: bt}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  d.label(desc.Kind.String(), ""),
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(layout)
		return fmt.Errorf("create bind group: %w", err)
	}

	d.mu.Lock()
	old := *v
	v.layout, v.group = layout, group
	d.mu.Unlock()
	d.destroyView(&old)
	return nil
}

// BindGroup returns the bind group and layout written into slot cpu.
func (d *Device) BindGroup(cpu gpucore.CPUDescriptorHandle) (hal.BindGroup, hal.BindGroupLayout, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[cpu]
	if !ok || v.group == nil {
		return nil, nil, false
	}
	return v.group, v.layout, true
}

// === Lifecycle ===

// Dispose releases every buffer and bind group created through the device
// and, for devices returned by Open, the HAL device itself.
// This method is idempotent.
func (d *Device) Dispose() {
	if d.disposed.Swap(true) {
		return
	}

	d.mu.Lock()
	views := d.views
	buffers := d.buffers
	d.views = make(map[gpucore.CPUDescriptorHandle]*halView)
	d.buffers = make(map[gpucore.BufferID]*halBuffer)
	d.mu.Unlock()

	for _, v := range views {
		d.destroyView(v)
	}
	for _, b := range buffers {
		d.device.DestroyBuffer(b.buf)
	}
	if d.release != nil {
		d.release()
	}
	backend.Logger().Debug("native: device disposed", "buffers", len(buffers), "views", len(views))
}
