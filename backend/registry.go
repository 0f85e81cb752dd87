package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gpubuf/gpucore"
)

// DeviceFactory opens a new device instance.
type DeviceFactory func() (gpucore.Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]DeviceFactory)
	// Priority order for backend selection (first available wins).
	// Native > Software (Software is the fallback).
	backendPriority = []string{BackendNative, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens a device from the named backend.
func Open(name string) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// Default opens a device from the best available backend based on priority.
// Backends whose factory fails are skipped; the last failure is returned
// if none succeeds.
func Default() (gpucore.Device, string, error) {
	registryMu.RLock()
	type candidate struct {
		name    string
		factory DeviceFactory
	}
	var candidates []candidate
	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			candidates = append(candidates, candidate{name, factory})
		}
	}
	// Fallback: any other registered backend, in name order.
	var rest []string
	for name := range backends {
		if name != BackendNative && name != BackendSoftware {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		candidates = append(candidates, candidate{name, backends[name]})
	}
	registryMu.RUnlock()

	lastErr := ErrBackendNotAvailable
	for _, c := range candidates {
		dev, err := c.factory()
		if err != nil {
			Logger().Debug("backend: open failed, trying next", "backend", c.name, "error", err)
			lastErr = fmt.Errorf("backend %s: %w", c.name, err)
			continue
		}
		Logger().Info("backend: device selected", "backend", c.name)
		return dev, c.name, nil
	}
	return nil, "", lastErr
}
