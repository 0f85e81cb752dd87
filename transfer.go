package gpubuf

import (
	"fmt"

	"github.com/gogpu/gpubuf/gpucore"
	"github.com/gogpu/gpubuf/internal/hostpool"
)

// resource is the untyped device side of a Buffer: the allocation, its view,
// and the staged transfer protocol over raw byte ranges.
type resource struct {
	device    gpucore.Device
	id        gpucore.BufferID
	cpu       gpucore.CPUDescriptorHandle
	gpu       gpucore.GPUDescriptorHandle
	view      gpucore.ViewDesc
	allocSize uint64
	copyAlign uint64
	label     string
	pool      *hostpool.Pool
}

// window widens [offset, offset+length) to the device copy alignment.
func (r *resource) window(offset, length uint64) (start, end uint64) {
	return gpucore.AlignDown(offset, r.copyAlign), gpucore.AlignUp(offset+length, r.copyAlign)
}

// submitCopy runs one copy session. Failures are reported against the
// requested range [offset, offset+length) of this buffer.
func (r *resource) submitCopy(op string, offset, length uint64, src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset, size uint64) error {
	if err := r.checkDevice(); err != nil {
		return err
	}
	session, err := beginCopy(r.device, r.label+" "+op)
	if err != nil {
		return &TransferError{Op: op, Offset: offset, Length: length, Err: err}
	}
	defer session.release()

	session.copyRegion(src, srcOffset, dst, dstOffset, size)
	if err := session.submitAndWait(); err != nil {
		return &TransferError{Op: op, Offset: offset, Length: length, Err: err}
	}
	return nil
}

// checkDevice fails with ErrDeviceDisposed once the device is released,
// before any staging allocation is attempted.
func (r *resource) checkDevice() error {
	if r.device.IsDisposed() {
		return fmt.Errorf("%w: %s", ErrDeviceDisposed, r.label)
	}
	return nil
}

// download stages [offset, offset+length) into readback memory and hands the
// requested bytes to fn once the copy has completed. fn is not called on
// failure.
func (r *resource) download(op string, offset, length uint64, fn func(data []byte)) error {
	if length == 0 {
		return nil
	}
	if err := r.checkDevice(); err != nil {
		return err
	}
	start, end := r.window(offset, length)
	return r.readWindow(op, offset, length, start, end, func(window []byte) {
		fn(window[offset-start : offset-start+length])
	})
}

// readWindow copies the aligned window [start, end) into readback memory and
// hands all of it to fn. Failures are reported against the requested range
// [offset, offset+length).
func (r *resource) readWindow(op string, offset, length, start, end uint64, fn func(window []byte)) error {
	staging, err := newStagingBuffer(r.device, gpucore.HeapReadback, end-start, r.label+" readback")
	if err != nil {
		return err
	}
	defer staging.release()

	if err := r.submitCopy(op, offset, length, r.id, start, staging.id, 0, end-start); err != nil {
		return err
	}
	err = staging.mapped(func(mem []byte) error {
		fn(mem)
		return nil
	})
	if err != nil {
		return &TransferError{Op: op, Offset: offset, Length: length, Err: err}
	}

	Logger().Debug("gpubuf: download",
		"buffer", r.label, "offset", offset, "length", length, "window", end-start)
	return nil
}

// upload writes length bytes produced by fill at offset. fill receives a
// slice of exactly length bytes and must overwrite all of it.
//
// When the range is not aligned to the device copy alignment, the aligned
// window is read back first so the bytes around the range are preserved.
func (r *resource) upload(op string, offset, length uint64, fill func(dst []byte)) error {
	if length == 0 {
		return nil
	}
	if err := r.checkDevice(); err != nil {
		return err
	}
	start, end := r.window(offset, length)
	size := end - start

	var patched []byte
	if start != offset || end != offset+length {
		patched = r.pool.Get(int(size))
		defer r.pool.Put(patched)

		err := r.readWindow(op, offset, length, start, end, func(window []byte) { copy(patched, window) })
		if err != nil {
			return err
		}
		fill(patched[offset-start : offset-start+length])
	}

	staging, err := newStagingBuffer(r.device, gpucore.HeapUpload, size, r.label+" upload")
	if err != nil {
		return err
	}
	defer staging.release()

	err = staging.mapped(func(mem []byte) error {
		if patched != nil {
			copy(mem, patched)
		} else {
			fill(mem)
		}
		return nil
	})
	if err != nil {
		return &TransferError{Op: op, Offset: offset, Length: length, Err: err}
	}
	if err := r.submitCopy(op, offset, length, staging.id, 0, r.id, start, size); err != nil {
		return err
	}

	Logger().Debug("gpubuf: upload",
		"buffer", r.label, "offset", offset, "length", length, "window", size,
		"read_modify_write", patched != nil)
	return nil
}

// release frees the view slot and the allocation.
func (r *resource) release() {
	r.device.FreeDescriptorHandles(r.cpu)
	r.device.DestroyBuffer(r.id)
}
