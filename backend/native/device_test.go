package native

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/gpubuf/backend"
	"github.com/gogpu/gpubuf/gpucore"
)

// createNoopDevice creates a noop HAL device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	require.NoError(t, err, "CreateInstance")
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		require.NoError(t, err, "Open")
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// countingDevice wraps a hal.Device and counts resource calls.
type countingDevice struct {
	hal.Device

	buffersCreated   int32
	buffersDestroyed int32
	groupsCreated    int32
	groupsDestroyed  int32
	layoutsDestroyed int32
	submitsWaited    int32

	// waitResult overrides the fence wait outcome when set.
	waitResult *bool
	waitErr    error
	lastUsage  gputypes.BufferUsage
	lastSize   uint64
}

func (d *countingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	atomic.AddInt32(&d.buffersCreated, 1)
	d.lastUsage = desc.Usage
	d.lastSize = desc.Size
	return d.Device.CreateBuffer(desc)
}

func (d *countingDevice) DestroyBuffer(b hal.Buffer) {
	atomic.AddInt32(&d.buffersDestroyed, 1)
	d.Device.DestroyBuffer(b)
}

func (d *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	atomic.AddInt32(&d.groupsCreated, 1)
	return d.Device.CreateBindGroup(desc)
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	atomic.AddInt32(&d.groupsDestroyed, 1)
	d.Device.DestroyBindGroup(g)
}

func (d *countingDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	atomic.AddInt32(&d.layoutsDestroyed, 1)
	d.Device.DestroyBindGroupLayout(l)
}

func (d *countingDevice) Wait(f hal.Fence, value uint64, timeout time.Duration) (bool, error) {
	atomic.AddInt32(&d.submitsWaited, 1)
	if d.waitErr != nil {
		return false, d.waitErr
	}
	if d.waitResult != nil {
		return *d.waitResult, nil
	}
	return d.Device.Wait(f, value, timeout)
}

// blockingQueue holds ReadBuffer until release is closed.
type blockingQueue struct {
	hal.Queue

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingQueue(q hal.Queue) *blockingQueue {
	return &blockingQueue{Queue: q, entered: make(chan struct{}), release: make(chan struct{})}
}

func (q *blockingQueue) ReadBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.once.Do(func() { close(q.entered) })
	<-q.release
	return q.Queue.ReadBuffer(buffer, offset, data)
}

func newTestDevice(t *testing.T, opts ...Option) (*Device, *countingDevice) {
	t.Helper()
	halDev, queue, cleanup := createNoopDevice(t)
	counting := &countingDevice{Device: halDev}
	d, err := New(counting, queue, nil, opts...)
	if err != nil {
		cleanup()
		require.NoError(t, err, "New")
	}
	t.Cleanup(func() {
		d.Dispose()
		cleanup()
	})
	return d, counting
}

func TestNew_NilArgs(t *testing.T) {
	halDev, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	_, err := New(nil, queue, nil)
	assert.ErrorIs(t, err, ErrNilDevice)
	_, err = New(halDev, nil, nil)
	assert.ErrorIs(t, err, ErrNilQueue)
}

func TestDevice_Limits(t *testing.T) {
	d, _ := newTestDevice(t)
	l := d.Limits()
	assert.Equal(t, uint64(CopyBufferAlignment), l.CopyAlignment)
	assert.Equal(t, uint64(gpucore.DefaultConstantBufferAlignment), l.ConstantBufferAlignment)
	assert.Equal(t, gputypes.DefaultLimits().MaxBufferSize, l.MaxBufferSize)
}

func TestDevice_CreateBuffer(t *testing.T) {
	d, counting := newTestDevice(t, WithLabelPrefix("test"))

	tests := []struct {
		heap      gpucore.HeapType
		size      uint64
		wantUsage gputypes.BufferUsage
		wantSize  uint64
	}{
		{gpucore.HeapDefault, 64, defaultHeapUsage, 64},
		{gpucore.HeapUpload, 13, uploadHeapUsage, 16},
		{gpucore.HeapReadback, 0, readbackHeapUsage, 4},
	}
	for _, tt := range tests {
		t.Run(tt.heap.String(), func(t *testing.T) {
			id, err := d.CreateBuffer(tt.heap, tt.size, "buf")
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsage, counting.lastUsage)
			assert.Equal(t, tt.wantSize, counting.lastSize, "HAL size")

			_, ok := d.Buffer(id)
			assert.True(t, ok, "Buffer(id) not found")
			d.DestroyBuffer(id)
			_, ok = d.Buffer(id)
			assert.False(t, ok, "Buffer(id) found after DestroyBuffer")
		})
	}

	_, err := d.CreateBuffer(gpucore.HeapType(42), 4, "bad")
	assert.Error(t, err, "unknown heap")
	assert.Equal(t, int32(3), atomic.LoadInt32(&counting.buffersDestroyed))
}

func TestDevice_MapBuffer(t *testing.T) {
	d, _ := newTestDevice(t)

	def, err := d.CreateBuffer(gpucore.HeapDefault, 16, "default")
	require.NoError(t, err)
	_, err = d.MapBuffer(def)
	assert.ErrorIs(t, err, ErrNotHostVisible)

	up, err := d.CreateBuffer(gpucore.HeapUpload, 24, "upload")
	require.NoError(t, err)
	mem, err := d.MapBuffer(up)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 24), mem, "upload shadow not cleared")

	_, err = d.MapBuffer(up)
	assert.ErrorIs(t, err, ErrAlreadyMapped)
	d.UnmapBuffer(up)
	d.UnmapBuffer(up)

	_, err = d.MapBuffer(up)
	assert.NoError(t, err, "remap after unmap")
	d.UnmapBuffer(up)

	rb, err := d.CreateBuffer(gpucore.HeapReadback, 8, "readback")
	require.NoError(t, err)
	_, err = d.MapBuffer(rb)
	assert.NoError(t, err)
	d.UnmapBuffer(rb)

	_, err = d.MapBuffer(12345)
	assert.ErrorIs(t, err, ErrBufferNotFound)
}

func TestDevice_MapBufferReadDoesNotHoldLock(t *testing.T) {
	halDev, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	q := newBlockingQueue(queue)
	d, err := New(halDev, q, nil)
	require.NoError(t, err)
	defer d.Dispose()

	rb, err := d.CreateBuffer(gpucore.HeapReadback, 16, "readback")
	require.NoError(t, err)

	mapped := make(chan error, 1)
	go func() {
		_, err := d.MapBuffer(rb)
		mapped <- err
	}()
	<-q.entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		id, err := d.CreateBuffer(gpucore.HeapDefault, 4, "other")
		assert.NoError(t, err)
		d.DestroyBuffer(id)
		_, err = d.MapBuffer(rb)
		assert.ErrorIs(t, err, ErrAlreadyMapped)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		close(q.release)
		t.Fatal("device blocked while a readback was in flight")
	}

	close(q.release)
	require.NoError(t, <-mapped)
	d.UnmapBuffer(rb)
}

func TestDevice_Views(t *testing.T) {
	d, counting := newTestDevice(t)

	buf, err := d.CreateBuffer(gpucore.HeapDefault, 256, "buf")
	require.NoError(t, err)

	descs := []gpucore.ViewDesc{
		{Kind: gpucore.ViewConstant, SizeInBytes: 256},
		{Kind: gpucore.ViewShaderResource, SizeInBytes: 256, NumElements: 64, StructureByteStride: 4},
		{Kind: gpucore.ViewUnorderedAccess, NumElements: 0, StructureByteStride: 4},
		{Kind: gpucore.ViewUnorderedAccess, SizeInBytes: 13, NumElements: 13, StructureByteStride: 1},
	}
	var cpus []gpucore.CPUDescriptorHandle
	for _, desc := range descs {
		cpu, gpu, err := d.AllocateDescriptorHandles()
		require.NoError(t, err)
		assert.NotZero(t, gpu, "GPU handle")
		require.NoError(t, d.CreateView(&desc, buf, cpu), "CreateView(%v)", desc.Kind)
		_, _, ok := d.BindGroup(cpu)
		assert.True(t, ok, "BindGroup(%v) not found", desc.Kind)
		cpus = append(cpus, cpu)
	}
	assert.Equal(t, int32(len(descs)), atomic.LoadInt32(&counting.groupsCreated))

	bad := gpucore.ViewDesc{Kind: gpucore.ViewKind(9)}
	assert.ErrorIs(t, d.CreateView(&bad, buf, cpus[0]), ErrInvalidView)
	assert.ErrorIs(t, d.CreateView(&descs[0], 999, cpus[0]), ErrBufferNotFound)
	assert.ErrorIs(t, d.CreateView(&descs[0], buf, 999), ErrDescriptorNotFound)

	d.FreeDescriptorHandles(cpus[0])
	_, _, ok := d.BindGroup(cpus[0])
	assert.False(t, ok, "BindGroup found after FreeDescriptorHandles")
	assert.Equal(t, int32(1), atomic.LoadInt32(&counting.groupsDestroyed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&counting.layoutsDestroyed))
}

func TestBindingSize(t *testing.T) {
	tests := []struct {
		viewSize, bufSize uint64
		want              uint64
	}{
		{256, 256, 256},
		{13, 16, 16},
		{1, 4, 4},
		{0, 13, 16},
		{0, 0, 4},
	}
	for _, tt := range tests {
		got := bindingSize(tt.viewSize, tt.bufSize)
		assert.Equal(t, tt.want, got, "bindingSize(%d, %d)", tt.viewSize, tt.bufSize)
		assert.Zero(t, got%CopyBufferAlignment)
	}
}

func TestBindingType(t *testing.T) {
	tests := []struct {
		kind gpucore.ViewKind
		want gputypes.BufferBindingType
	}{
		{gpucore.ViewConstant, gputypes.BufferBindingTypeUniform},
		{gpucore.ViewShaderResource, gputypes.BufferBindingTypeReadOnlyStorage},
		{gpucore.ViewUnorderedAccess, gputypes.BufferBindingTypeStorage},
	}
	for _, tt := range tests {
		got, err := bindingType(tt.kind)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCopyEncoder_Submit(t *testing.T) {
	d, counting := newTestDevice(t)

	src, err := d.CreateBuffer(gpucore.HeapUpload, 64, "src")
	require.NoError(t, err)
	dst, err := d.CreateBuffer(gpucore.HeapDefault, 64, "dst")
	require.NoError(t, err)

	enc, err := d.CreateCopyEncoder("copy")
	require.NoError(t, err)
	enc.CopyBufferRegion(src, dst, gpucore.BufferCopy{SrcOffset: 0, DstOffset: 16, Size: 48})
	require.NoError(t, enc.SubmitAndWait())
	assert.ErrorIs(t, enc.SubmitAndWait(), ErrEncoderConsumed)
	enc.Release()

	assert.Equal(t, int32(1), atomic.LoadInt32(&counting.submitsWaited))
}

func TestCopyEncoder_RecordingErrors(t *testing.T) {
	d, counting := newTestDevice(t)

	a, err := d.CreateBuffer(gpucore.HeapDefault, 16, "a")
	require.NoError(t, err)

	tests := []struct {
		name    string
		dst     gpucore.BufferID
		region  gpucore.BufferCopy
		wantErr error
	}{
		{"misaligned offset", a, gpucore.BufferCopy{SrcOffset: 2, Size: 4}, ErrCopyOffsetNotAligned},
		{"misaligned size", a, gpucore.BufferCopy{Size: 6}, ErrCopyOffsetNotAligned},
		{"unknown destination", 999, gpucore.BufferCopy{Size: 4}, ErrBufferNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := d.CreateCopyEncoder(tt.name)
			require.NoError(t, err)
			defer enc.Release()
			enc.CopyBufferRegion(a, tt.dst, tt.region)
			assert.ErrorIs(t, enc.SubmitAndWait(), tt.wantErr)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&counting.submitsWaited), "nothing submitted")
}

func TestCopyEncoder_FenceTimeout(t *testing.T) {
	d, counting := newTestDevice(t, WithFenceTimeout(10*time.Millisecond))
	notSignaled := false
	counting.waitResult = &notSignaled

	a, err := d.CreateBuffer(gpucore.HeapDefault, 4, "a")
	require.NoError(t, err)
	b, err := d.CreateBuffer(gpucore.HeapDefault, 4, "b")
	require.NoError(t, err)

	enc, err := d.CreateCopyEncoder("timeout")
	require.NoError(t, err)
	defer enc.Release()
	enc.CopyBufferRegion(a, b, gpucore.BufferCopy{Size: 4})
	assert.ErrorIs(t, enc.SubmitAndWait(), ErrFenceTimeout)

	counting.waitResult = nil
	counting.waitErr = errors.New("device lost")
	enc2, err := d.CreateCopyEncoder("lost")
	require.NoError(t, err)
	defer enc2.Release()
	enc2.CopyBufferRegion(a, b, gpucore.BufferCopy{Size: 4})
	assert.ErrorIs(t, enc2.SubmitAndWait(), counting.waitErr)
}

func TestDevice_Dispose(t *testing.T) {
	halDev, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	counting := &countingDevice{Device: halDev}

	d, err := New(counting, queue, nil)
	require.NoError(t, err)
	buf, err := d.CreateBuffer(gpucore.HeapDefault, 16, "a")
	require.NoError(t, err)
	_, err = d.CreateBuffer(gpucore.HeapUpload, 16, "b")
	require.NoError(t, err)
	cpu, _, err := d.AllocateDescriptorHandles()
	require.NoError(t, err)
	desc := gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, NumElements: 4, StructureByteStride: 4}
	require.NoError(t, d.CreateView(&desc, buf, cpu))

	d.Dispose()
	d.Dispose()

	assert.True(t, d.IsDisposed())
	assert.Equal(t, int32(2), atomic.LoadInt32(&counting.buffersDestroyed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&counting.groupsDestroyed))

	_, err = d.CreateBuffer(gpucore.HeapDefault, 4, "late")
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = d.CreateCopyEncoder("late")
	assert.ErrorIs(t, err, ErrDisposed)
}

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device             { return nil }
func (m *mockProvider) Queue() gpucontext.Queue               { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// mockHALProvider additionally exposes HAL objects the way gogpu's App does.
type mockHALProvider struct {
	mockProvider
	device any
	queue  any
}

func (m *mockHALProvider) HalDevice() any { return m.device }
func (m *mockHALProvider) HalQueue() any  { return m.queue }

func TestNewFromProvider(t *testing.T) {
	halDev, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := NewFromProvider(&mockHALProvider{device: halDev, queue: queue})
	require.NoError(t, err)
	defer d.Dispose()

	gotDev, gotQueue := d.HAL()
	assert.Equal(t, halDev, gotDev)
	assert.Equal(t, queue, gotQueue)
}

func TestNewFromProvider_Errors(t *testing.T) {
	halDev, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"no HAL methods", &mockProvider{}},
		{"wrong device type", &mockHALProvider{device: "device", queue: queue}},
		{"nil queue", &mockHALProvider{device: halDev}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromProvider(tt.provider)
			assert.ErrorIs(t, err, ErrNotHALProvider)
		})
	}
}

func TestRegistered(t *testing.T) {
	assert.True(t, backend.IsRegistered(backend.BackendNative))
}
