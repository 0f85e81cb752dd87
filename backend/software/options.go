package software

import "github.com/gogpu/gpubuf/gpucore"

// DefaultMemoryBudget is the default total allocation budget (1 GiB).
const DefaultMemoryBudget = 1 << 30

type options struct {
	limits      gpucore.Limits
	budgetBytes uint64
}

func defaultOptions() options {
	return options{
		limits:      gpucore.DefaultLimits(),
		budgetBytes: DefaultMemoryBudget,
	}
}

// Option configures a software Device.
type Option func(*options)

// WithMemoryBudget sets the total number of bytes the device may allocate
// across all heaps. Zero disables the budget.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) {
		o.budgetBytes = bytes
	}
}

// WithCopyAlignment sets the required alignment of copy offsets and sizes.
// Values below 1 are treated as 1 (byte-granular copies).
func WithCopyAlignment(align uint64) Option {
	return func(o *options) {
		if align < 1 {
			align = 1
		}
		o.limits.CopyAlignment = align
	}
}

// WithConstantAlignment sets the required size alignment of
// constant views.
func WithConstantAlignment(align uint64) Option {
	return func(o *options) {
		if align < 1 {
			align = 1
		}
		o.limits.ConstantBufferAlignment = align
	}
}

// WithMaxBufferSize sets the largest single allocation. 0 means unlimited.
func WithMaxBufferSize(size uint64) Option {
	return func(o *options) {
		o.limits.MaxBufferSize = size
	}
}
