package software

import (
	"fmt"

	"github.com/gogpu/gpubuf/gpucore"
)

// copyCommand is a recorded buffer-to-buffer copy.
type copyCommand struct {
	src, dst gpucore.BufferID
	region   gpucore.BufferCopy
}

// encoder records copies and executes them on submit.
type encoder struct {
	device   *Device
	label    string
	commands []copyCommand
	consumed bool
}

// CreateCopyEncoder opens a copy encoder.
func (d *Device) CreateCopyEncoder(label string) (gpucore.CopyEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil, ErrDisposed
	}
	d.stats.CopySessions++
	return &encoder{device: d, label: label}, nil
}

// CopyBufferRegion records a copy. Validation happens at submit time.
func (e *encoder) CopyBufferRegion(src, dst gpucore.BufferID, region gpucore.BufferCopy) {
	if e.consumed {
		return
	}
	e.commands = append(e.commands, copyCommand{src: src, dst: dst, region: region})

	e.device.mu.Lock()
	e.device.stats.CopyRegions++
	e.device.mu.Unlock()
}

// SubmitAndWait executes the recorded copies in order.
// Either every copy is applied or, on validation failure, none is.
func (e *encoder) SubmitAndWait() error {
	if e.consumed {
		return ErrEncoderConsumed
	}
	e.consumed = true

	d := e.device
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return ErrDisposed
	}
	if err := d.failNextSubmit; err != nil {
		d.failNextSubmit = nil
		return fmt.Errorf("software: submit %q: %w", e.label, err)
	}

	for i := range e.commands {
		if err := d.validateCopy(&e.commands[i]); err != nil {
			return fmt.Errorf("software: submit %q: %w", e.label, err)
		}
	}
	for i := range e.commands {
		c := &e.commands[i]
		src := d.buffers[c.src].data[c.region.SrcOffset : c.region.SrcOffset+c.region.Size]
		dst := d.buffers[c.dst].data[c.region.DstOffset : c.region.DstOffset+c.region.Size]
		copy(dst, src)
	}
	d.stats.Submissions++
	return nil
}

// Release drops the recorded commands.
func (e *encoder) Release() {
	e.consumed = true
	e.commands = nil
}

// validateCopy checks a copy against the device state. Caller holds d.mu.
func (d *Device) validateCopy(c *copyCommand) error {
	src, ok := d.buffers[c.src]
	if !ok {
		return fmt.Errorf("%w: source %d", ErrBufferNotFound, c.src)
	}
	dst, ok := d.buffers[c.dst]
	if !ok {
		return fmt.Errorf("%w: destination %d", ErrBufferNotFound, c.dst)
	}
	if src.mapped || dst.mapped {
		return ErrBufferMapped
	}

	r := c.region
	if a := d.limits.CopyAlignment; a > 1 {
		if r.SrcOffset%a != 0 || r.DstOffset%a != 0 || r.Size%a != 0 {
			return fmt.Errorf("%w: src %d dst %d size %d (alignment %d)",
				ErrCopyNotAligned, r.SrcOffset, r.DstOffset, r.Size, a)
		}
	}
	if !inBounds(r.SrcOffset, r.Size, uint64(len(src.data))) {
		return fmt.Errorf("%w: source [%d, +%d) of %d bytes",
			ErrCopyRangeOutOfBounds, r.SrcOffset, r.Size, len(src.data))
	}
	if !inBounds(r.DstOffset, r.Size, uint64(len(dst.data))) {
		return fmt.Errorf("%w: destination [%d, +%d) of %d bytes",
			ErrCopyRangeOutOfBounds, r.DstOffset, r.Size, len(dst.data))
	}
	return nil
}

func inBounds(offset, size, limit uint64) bool {
	return offset <= limit && size <= limit-offset
}
