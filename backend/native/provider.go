package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by device providers that expose their HAL
// device and queue (gogpu's App does).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewFromProvider creates a Device sharing the GPU device of a host
// application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
//
// The provider keeps ownership of the HAL device.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNotHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNotHALProvider)
	}
	return New(device, queue, nil, opts...)
}
