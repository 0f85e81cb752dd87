package native

import "errors"

// Package errors for the HAL device.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNilDevice is returned when constructing a Device without a hal.Device.
	ErrNilDevice = errors.New("native: nil hal device")

	// ErrNilQueue is returned when constructing a Device without a hal.Queue.
	ErrNilQueue = errors.New("native: nil hal queue")

	// ErrNotHALProvider is returned when a device provider does not expose
	// its HAL device and queue.
	ErrNotHALProvider = errors.New("native: provider does not expose HAL types")

	// ErrDisposed is returned when operating on a disposed device.
	ErrDisposed = errors.New("native: device disposed")

	// ErrBufferNotFound is returned for unknown or released buffer handles.
	ErrBufferNotFound = errors.New("native: buffer not found")

	// ErrDescriptorNotFound is returned for unknown descriptor handles.
	ErrDescriptorNotFound = errors.New("native: descriptor not found")

	// ErrNotHostVisible is returned when mapping default-heap memory.
	ErrNotHostVisible = errors.New("native: buffer is not host visible")

	// ErrAlreadyMapped is returned when mapping a mapped buffer.
	ErrAlreadyMapped = errors.New("native: buffer is already mapped")

	// ErrCopyOffsetNotAligned is returned when a copy offset or size is not
	// a multiple of CopyBufferAlignment.
	ErrCopyOffsetNotAligned = errors.New("native: copy offset or size not aligned")

	// ErrEncoderConsumed is returned when an encoder is submitted twice.
	ErrEncoderConsumed = errors.New("native: encoder has been consumed")

	// ErrFenceTimeout is returned when a submission does not complete
	// within the fence timeout.
	ErrFenceTimeout = errors.New("native: fence wait timed out")

	// ErrInvalidView is returned for an unsupported view kind.
	ErrInvalidView = errors.New("native: invalid view")
)
