package gpubuf

import (
	"errors"
	"fmt"
)

// Buffer errors.
var (
	// ErrInvalidArgument is returned for negative lengths and out-of-range
	// offset/count combinations. It is detected before any device call.
	ErrInvalidArgument = errors.New("gpubuf: invalid argument")

	// ErrSizeOverflow is returned when count * stride exceeds the
	// addressable range or the device's maximum buffer size.
	ErrSizeOverflow = errors.New("gpubuf: buffer size overflow")

	// ErrDeviceDisposed is returned when allocating or transferring against a
	// released device.
	ErrDeviceDisposed = errors.New("gpubuf: device has been disposed")

	// ErrDeviceMismatch is returned when a cross-buffer operation mixes
	// buffers owned by different devices.
	ErrDeviceMismatch = errors.New("gpubuf: device mismatch")

	// ErrAllocationFailed is returned when the device refuses a memory,
	// descriptor, or view request.
	ErrAllocationFailed = errors.New("gpubuf: allocation failed")

	// ErrTransferFailed is returned when a copy submission or the wait for
	// its completion fails. The concrete error is a *TransferError.
	ErrTransferFailed = errors.New("gpubuf: transfer failed")

	// ErrBufferDisposed is returned when operating on a disposed buffer.
	ErrBufferDisposed = errors.New("gpubuf: buffer has been disposed")
)

// TransferError reports a failed staged or direct copy together with the
// byte range that was requested.
type TransferError struct {
	// Op is the operation that failed ("read", "write", "copy").
	Op string

	// Offset is the byte offset of the requested range in the typed buffer.
	Offset uint64

	// Length is the byte length of the requested range.
	Length uint64

	// Err is the underlying device error.
	Err error
}

// Error implements error.
func (e *TransferError) Error() string {
	return fmt.Sprintf("gpubuf: transfer failed: %s [%d, %d): %v",
		e.Op, e.Offset, e.Offset+e.Length, e.Err)
}

// Unwrap returns both ErrTransferFailed and the device error, so that
// errors.Is matches either.
func (e *TransferError) Unwrap() []error {
	return []error{ErrTransferFailed, e.Err}
}

// MismatchError reports the two devices involved in a device mismatch.
type MismatchError struct {
	// Buffer describes the buffer whose device was checked.
	Buffer string

	// Want is the buffer's owning device; Got is the device it was used with.
	Want, Got any
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("gpubuf: device mismatch: %s belongs to %p, used with %p",
		e.Buffer, e.Want, e.Got)
}

// Unwrap returns ErrDeviceMismatch.
func (e *MismatchError) Unwrap() error { return ErrDeviceMismatch }
