package gpubuf

import "github.com/gogpu/gpubuf/internal/hostpool"

// AllocateOption configures a Buffer during allocation.
// Use functional options to customize buffer behavior.
//
// Example:
//
//	// Default buffer
//	buf, err := gpubuf.Allocate[float32](device, 1024, gpubuf.UsageReadWrite)
//
//	// Labeled buffer (shows up in device debug names and logs)
//	buf, err := gpubuf.Allocate[float32](device, 1024, gpubuf.UsageReadWrite,
//	    gpubuf.WithLabel("particles"))
type AllocateOption func(*allocateOptions)

// allocateOptions holds optional configuration for buffer allocation.
type allocateOptions struct {
	label string
	pool  *hostpool.Pool
}

// defaultAllocateOptions returns the default allocation options.
func defaultAllocateOptions() allocateOptions {
	return allocateOptions{
		pool: hostpool.Default(),
	}
}

// WithLabel sets a debug label for the buffer. The label is passed to the
// device for its own allocations and prefixed to staging buffer labels.
func WithLabel(label string) AllocateOption {
	return func(o *allocateOptions) {
		o.label = label
	}
}

// WithHostPool sets the pool that supplies host-side temporaries for
// transfers that cannot be staged directly (host round trips and
// read-modify-write of unaligned ranges). A nil pool restores the
// package default.
func WithHostPool(p *hostpool.Pool) AllocateOption {
	return func(o *allocateOptions) {
		if p == nil {
			p = hostpool.Default()
		}
		o.pool = p
	}
}
