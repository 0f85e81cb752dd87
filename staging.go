package gpubuf

import (
	"fmt"

	"github.com/gogpu/gpubuf/gpucore"
)

// stagingBuffer is a host-visible allocation used as the intermediate hop of
// one transfer. It has no view and never outlives the call that created it.
type stagingBuffer struct {
	device   gpucore.Device
	id       gpucore.BufferID
	heap     gpucore.HeapType
	size     uint64
	released bool
}

// newStagingBuffer allocates size bytes on an upload or readback heap.
func newStagingBuffer(device gpucore.Device, heap gpucore.HeapType, size uint64, label string) (*stagingBuffer, error) {
	if !heap.HostVisible() {
		panic(fmt.Sprintf("gpubuf: staging on %v heap", heap))
	}
	id, err := device.CreateBuffer(heap, size, label)
	if err != nil {
		return nil, fmt.Errorf("%w: %s staging of %d bytes: %w", ErrAllocationFailed, heap, size, err)
	}
	return &stagingBuffer{device: device, id: id, heap: heap, size: size}, nil
}

// mapped maps the staging memory for the duration of fn.
// The slice passed to fn is exactly size bytes and must not be retained.
func (s *stagingBuffer) mapped(fn func(mem []byte) error) error {
	mem, err := s.device.MapBuffer(s.id)
	if err != nil {
		return fmt.Errorf("map %s staging: %w", s.heap, err)
	}
	defer s.device.UnmapBuffer(s.id)

	if uint64(len(mem)) < s.size {
		return fmt.Errorf("map %s staging: mapped %d bytes, want %d", s.heap, len(mem), s.size)
	}
	return fn(mem[:s.size])
}

// release destroys the staging memory. Idempotent.
func (s *stagingBuffer) release() {
	if s.released {
		return
	}
	s.released = true
	s.device.DestroyBuffer(s.id)
}
