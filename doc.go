// Package gpubuf provides typed GPU buffers with staged host-device transfer.
//
// # Overview
//
// A [Buffer] is a typed array in device memory. Device memory is opaque to
// host code, so every read and write goes through a short-lived staging
// allocation on a host-visible heap and one synchronous copy submission:
//
//	read:  device buffer --copy--> readback staging --map--> host slice
//	write: host slice --map--> upload staging --copy--> device buffer
//
// Each call blocks until the device has completed its copy, so calls made
// in sequence from one goroutine observe each other's effects.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gpubuf"
//	    "github.com/gogpu/gpubuf/backend/software"
//	)
//
//	dev := software.New()
//	defer dev.Dispose()
//
//	buf, err := gpubuf.AllocateFrom(dev, gpubuf.UsageReadWrite, []int32{1, 2, 3})
//	if err != nil {
//	    return err
//	}
//	defer buf.Dispose()
//
//	data, err := buf.GetData()
//
// # Usage Kinds
//
// The [Usage] chosen at allocation fixes the view and the element layout:
//
//   - [UsageConstant]: constant (uniform) view. Elements are padded to
//     16 bytes and the allocation is rounded up to the device constant-buffer
//     alignment (256 bytes by default).
//   - [UsageReadOnly]: read-only structured view of Len() elements.
//   - [UsageReadWrite]: read-write structured view of Len() elements.
//
// # Devices
//
// Buffers are allocated against a [gpucore.Device]. Two implementations
// ship with the module: backend/software keeps memory on the host and is
// always available; backend/native runs on gogpu/wgpu. Package backend
// selects one by name or by priority.
//
// A buffer belongs to the device it was allocated on. Operations that mix
// buffers of different devices fail with [ErrDeviceMismatch] before any
// device call is made.
//
// # Element Types
//
// T must be a fixed-size value type without pointers: numbers, arrays and
// structs of those. Its bytes are copied as laid out in Go memory.
//
// # Logging
//
// gpubuf is silent by default. Use [SetLogger] to enable structured
// diagnostics through log/slog.
package gpubuf
