package gpucore

// Device abstracts over the compute device a typed buffer lives on.
//
// This interface is the contract between the buffer core and a backend
// (in-memory software device, gogpu/wgpu HAL device, ...). The buffer core
// never touches backend objects directly; it only exchanges the opaque
// handles defined in this package.
//
// Implementations must be safe for concurrent use.
//
// Identity matters: two buffers are compatible only if they were allocated
// through the same Device value. Implementations should therefore be
// pointer types so that interface comparison is identity comparison.
//
// Resource lifecycle:
//   - Resources are created via Create*/Allocate* methods
//   - Resources must be explicitly released via Destroy*/Free* methods
//   - Releasing a resource while a copy is in flight is undefined behavior
//   - Handles become invalid after release and must not be reused
type Device interface {
	// IsDisposed reports whether the device has been released.
	// Allocating against a disposed device is an error.
	IsDisposed() bool

	// Limits returns the allocation and copy constraints of the device.
	Limits() Limits

	// === Memory ===

	// CreateBuffer allocates committed device memory of size bytes on the
	// given heap. Memory is zero-initialized.
	//
	// Returns the buffer handle or an error if allocation fails.
	CreateBuffer(heap HeapType, size uint64, label string) (BufferID, error)

	// DestroyBuffer releases device memory. Unknown handles are ignored.
	DestroyBuffer(id BufferID)

	// MapBuffer returns a host-addressable view of a host-visible buffer.
	// For readback buffers the slice holds the buffer contents; for upload
	// buffers the bytes written into the slice become the buffer contents
	// when UnmapBuffer is called.
	//
	// The device does not execute against the buffer while it is mapped.
	MapBuffer(id BufferID) ([]byte, error)

	// UnmapBuffer ends a mapping started with MapBuffer. The slice returned
	// by MapBuffer must not be used afterwards.
	UnmapBuffer(id BufferID)

	// === Descriptors and views ===

	// AllocateDescriptorHandles reserves one descriptor slot and returns
	// its CPU (write) and GPU (bind) handles.
	AllocateDescriptorHandles() (CPUDescriptorHandle, GPUDescriptorHandle, error)

	// FreeDescriptorHandles returns a descriptor slot and drops any view
	// written into it.
	FreeDescriptorHandles(cpu CPUDescriptorHandle)

	// CreateView writes a view of buffer described by desc into the
	// descriptor slot addressed by cpu.
	CreateView(desc *ViewDesc, buffer BufferID, cpu CPUDescriptorHandle) error

	// === Commands ===

	// CreateCopyEncoder opens a command recording scope restricted to
	// copy operations.
	CreateCopyEncoder(label string) (CopyEncoder, error)
}

// CopyEncoder records copy commands and executes them synchronously.
//
// Usage:
//  1. Obtain an encoder from Device.CreateCopyEncoder()
//  2. Record copies with CopyBufferRegion
//  3. Call SubmitAndWait() to execute and block until completion
//  4. Call Release() to free the encoder
//
// The encoder is single-use and cannot be submitted twice.
type CopyEncoder interface {
	// CopyBufferRegion records a copy of region.Size bytes from src at
	// region.SrcOffset to dst at region.DstOffset.
	CopyBufferRegion(src, dst BufferID, region BufferCopy)

	// SubmitAndWait submits the recorded commands and blocks until the
	// device signals completion of this submission.
	SubmitAndWait() error

	// Release frees the encoder. Safe to call more than once.
	Release()
}
