// Package gpucore defines the device contract consumed by typed GPU buffers.
//
// This package defines the [Device] interface, which abstracts over different
// device implementations, allowing the same buffer and transfer code to work with:
//   - an in-memory software device (backend/software)
//   - gogpu/wgpu HAL devices (backend/native), including devices shared by a
//     host application through gpucontext
//
// # Architecture
//
// The buffer core lives in package gpubuf and only exchanges opaque handles
// with a device. Thin backends translate between the [Device] interface and
// a specific device API.
//
//	               +-----------------+
//	               |     gpubuf      |
//	               |   (Buffer[T])   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|    software     |          |     native      |
//	|   (in-memory)   |          |  (hal.Device)   |
//	+-----------------+          +--------+--------+
//	                                      |
//	                             +--------v--------+
//	                             |   gogpu/wgpu    |
//	                             |   (Pure Go)     |
//	                             +-----------------+
//
// # Resource Management
//
// Device memory is addressed via [BufferID]; descriptor slots via the
// [CPUDescriptorHandle]/[GPUDescriptorHandle] pair. Every resource must be
// released explicitly. Device memory is scarce and is never reclaimed by
// the garbage collector.
//
// # Heaps
//
// Buffers are allocated on one of three heaps ([HeapType]): device-local
// default memory, which the host cannot touch, and two host-visible heaps
// used for staging (upload and readback). All host access to default-heap
// memory goes through a staging buffer and a [CopyEncoder].
package gpucore
