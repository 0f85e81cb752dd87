// Package backend provides a pluggable device backend registry.
//
// The backend package allows gpubuf to run against multiple device
// implementations. Each backend package registers a factory from its
// init() function and is selected at runtime.
//
// # Backend Registration
//
// Import a backend for its side effect to make it available:
//
//	import _ "github.com/gogpu/gpubuf/backend/software"
//	import _ "github.com/gogpu/gpubuf/backend/native"
//
// # Backend Selection
//
// Use Default() to open the best available device, or Open() to request
// a specific backend by name:
//
//	// Open the default (best available) device
//	dev, name, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Open(backend.BackendSoftware)
//
// # Available Backends
//
//   - "native": gogpu/wgpu HAL device (Vulkan, or a device shared by the host)
//   - "software": in-memory device (always available)
//
// # Logging
//
// Backends log through Logger(), which follows gpubuf.SetLogger.
package backend
