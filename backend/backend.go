package backend

import "errors"

// Backend names.
const (
	// BackendNative is the gogpu/wgpu HAL device (backend/native).
	BackendNative = "native"

	// BackendSoftware is the in-memory device (backend/software).
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)
