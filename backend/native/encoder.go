package native

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpubuf/gpucore"
)

// copyEncoder records buffer copies into a HAL command encoder.
//
// State machine:
//
//	Recording -> SubmitAndWait() -> Consumed
//	Recording -> Release()       -> Consumed (encoding discarded)
//
// copyEncoder is NOT safe for concurrent use.
type copyEncoder struct {
	device  *Device
	encoder hal.CommandEncoder
	label   string

	// err is the first recording error; it fails the submission.
	err      error
	consumed bool
}

// CreateCopyEncoder opens a HAL command encoder for copy commands.
func (d *Device) CreateCopyEncoder(label string) (gpucore.CopyEncoder, error) {
	if d.disposed.Load() {
		return nil, ErrDisposed
	}
	label = d.label("copy", label)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &copyEncoder{device: d, encoder: encoder, label: label}, nil
}

// CopyBufferRegion records a copy. Unknown handles and misaligned regions
// are reported by SubmitAndWait.
func (e *copyEncoder) CopyBufferRegion(src, dst gpucore.BufferID, region gpucore.BufferCopy) {
	if e.consumed || e.err != nil {
		return
	}
	if region.SrcOffset%CopyBufferAlignment != 0 ||
		region.DstOffset%CopyBufferAlignment != 0 ||
		region.Size%CopyBufferAlignment != 0 {
		e.err = fmt.Errorf("%w: src %d dst %d size %d",
			ErrCopyOffsetNotAligned, region.SrcOffset, region.DstOffset, region.Size)
		return
	}

	srcBuf, ok := e.device.Buffer(src)
	if !ok {
		e.err = fmt.Errorf("%w: source %d", ErrBufferNotFound, src)
		return
	}
	dstBuf, ok := e.device.Buffer(dst)
	if !ok {
		e.err = fmt.Errorf("%w: destination %d", ErrBufferNotFound, dst)
		return
	}

	e.encoder.CopyBufferToBuffer(srcBuf, dstBuf, []hal.BufferCopy{
		{SrcOffset: region.SrcOffset, DstOffset: region.DstOffset, Size: region.Size},
	})
}

// SubmitAndWait ends encoding, submits the command buffer, and blocks until
// its fence signals or the fence timeout expires.
func (e *copyEncoder) SubmitAndWait() error {
	if e.consumed {
		return ErrEncoderConsumed
	}
	e.consumed = true

	if e.err != nil {
		e.encoder.DiscardEncoding()
		return e.err
	}

	d := e.device
	cmdBuf, err := e.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, d.fenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("%w after %v (%s)", ErrFenceTimeout, d.fenceTimeout, e.label)
	}
	return nil
}

// Release discards an encoder that was never submitted.
func (e *copyEncoder) Release() {
	if e.consumed {
		return
	}
	e.consumed = true
	e.encoder.DiscardEncoding()
}
