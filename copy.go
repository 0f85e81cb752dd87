package gpubuf

import (
	"errors"

	"github.com/gogpu/gpubuf/gpucore"
)

// errNoRegion is returned when a session is submitted before recording.
var errNoRegion = errors.New("gpubuf: copy session has no region")

// copySession records and submits exactly one buffer region copy.
//
// Source and destination ranges must not overlap when src == dst; this is
// not checked.
type copySession struct {
	encoder  gpucore.CopyEncoder
	recorded bool
	released bool
}

// beginCopy opens a copy-only command scope.
func beginCopy(device gpucore.Device, label string) (*copySession, error) {
	enc, err := device.CreateCopyEncoder(label)
	if err != nil {
		return nil, err
	}
	return &copySession{encoder: enc}, nil
}

// copyRegion records the copy. A second call, or a zero length, panics.
func (s *copySession) copyRegion(src gpucore.BufferID, srcOffset uint64, dst gpucore.BufferID, dstOffset, length uint64) {
	if s.recorded {
		panic("gpubuf: copy session already holds a region")
	}
	if length == 0 {
		panic("gpubuf: zero-length copy region")
	}
	s.recorded = true
	s.encoder.CopyBufferRegion(src, dst, gpucore.BufferCopy{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      length,
	})
}

// submitAndWait submits the recorded copy and blocks until it completes.
func (s *copySession) submitAndWait() error {
	if !s.recorded {
		return errNoRegion
	}
	return s.encoder.SubmitAndWait()
}

// release frees the encoder. Idempotent.
func (s *copySession) release() {
	if s.released {
		return
	}
	s.released = true
	s.encoder.Release()
}
