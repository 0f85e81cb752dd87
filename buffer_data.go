package gpubuf

import "fmt"

// GetData reads the whole buffer into a new slice.
func (b *Buffer[T]) GetData() ([]T, error) {
	return b.GetDataRange(0, b.count)
}

// GetDataRange reads count elements starting at offset into a new slice.
// GetDataRange(Len(), 0) returns an empty slice.
func (b *Buffer[T]) GetDataRange(offset, count int) ([]T, error) {
	if err := b.checkLive(); err != nil {
		return nil, err
	}
	if err := b.checkRange(offset, count); err != nil {
		return nil, err
	}
	dst := make([]T, count)
	if err := b.GetDataInto(dst, offset); err != nil {
		return nil, err
	}
	return dst, nil
}

// GetDataInto reads len(dst) elements starting at offset into dst.
//
// dst is written only after the device copy has completed, so on error it
// is left untouched.
func (b *Buffer[T]) GetDataInto(dst []T, offset int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if err := b.checkRange(offset, len(dst)); err != nil {
		return err
	}
	return b.res.download("read", uint64(offset)*b.stride, uint64(len(dst))*b.stride, func(data []byte) {
		unpack(dst, data, b.elemSize, b.stride)
	})
}

// GetDataIntoAt reads count elements starting at bufferOffset into
// dst[dstOffset:dstOffset+count].
func (b *Buffer[T]) GetDataIntoAt(dst []T, dstOffset, bufferOffset, count int) error {
	if dstOffset < 0 || count < 0 || dstOffset > len(dst) || count > len(dst)-dstOffset {
		return fmt.Errorf("%w: destination range [%d, +%d) outside slice of %d elements",
			ErrInvalidArgument, dstOffset, count, len(dst))
	}
	return b.GetDataInto(dst[dstOffset:dstOffset+count], bufferOffset)
}

// SetData writes src to the start of the buffer.
// len(src) must not exceed Len().
func (b *Buffer[T]) SetData(src []T) error {
	return b.SetDataAt(src, 0)
}

// SetDataAt writes src starting at element offset.
//
// Unpadded elements are staged as one contiguous block; padded elements
// are placed one by one at the buffer stride.
func (b *Buffer[T]) SetDataAt(src []T, offset int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if err := b.checkRange(offset, len(src)); err != nil {
		return err
	}
	return b.res.upload("write", uint64(offset)*b.stride, uint64(len(src))*b.stride, func(dst []byte) {
		pack(dst, src, b.elemSize, b.stride)
	})
}

// SetDataRange writes src[srcOffset:srcOffset+count] starting at element
// dstOffset of the buffer.
func (b *Buffer[T]) SetDataRange(src []T, srcOffset, dstOffset, count int) error {
	if srcOffset < 0 || count < 0 || srcOffset > len(src) || count > len(src)-srcOffset {
		return fmt.Errorf("%w: source range [%d, +%d) outside slice of %d elements",
			ErrInvalidArgument, srcOffset, count, len(src))
	}
	return b.SetDataAt(src[srcOffset:srcOffset+count], dstOffset)
}

// CopyFrom copies the contents of other into the start of b.
// other must live on the same device and must not be longer than b.
//
// When neither buffer is padded the copy runs device to device without
// staging. Otherwise other is read into host memory and written into b.
func (b *Buffer[T]) CopyFrom(other *Buffer[T]) error {
	if other == nil {
		return fmt.Errorf("%w: nil source buffer", ErrInvalidArgument)
	}
	if err := b.AssertSameDevice(other.res.device); err != nil {
		return err
	}
	if err := b.checkLive(); err != nil {
		return err
	}
	if err := other.checkLive(); err != nil {
		return err
	}
	if other.count > b.count {
		return fmt.Errorf("%w: source has %d elements, destination %d",
			ErrInvalidArgument, other.count, b.count)
	}
	if other == b || other.count == 0 {
		return nil
	}

	size := other.sizeInBytes
	if !b.IsPaddingPresent() && !other.IsPaddingPresent() && size%max(b.res.copyAlign, 1) == 0 {
		Logger().Debug("gpubuf: direct copy", "src", other.res.label, "dst", b.res.label, "size", size)
		return b.res.submitCopy("copy", 0, size, other.res.id, 0, b.res.id, 0, size)
	}

	Logger().Debug("gpubuf: host round trip copy", "src", other.res.label, "dst", b.res.label, "count", other.count)

	tmp := b.res.pool.Get(int(uint64(other.count) * other.elemSize))
	defer b.res.pool.Put(tmp)

	err := other.res.download("copy", 0, size, func(data []byte) {
		unpackBytes(tmp, data, other.elemSize, other.stride)
	})
	if err != nil {
		return err
	}
	return b.res.upload("copy", 0, uint64(other.count)*b.stride, func(dst []byte) {
		packBytes(dst, tmp, b.elemSize, b.stride)
	})
}
