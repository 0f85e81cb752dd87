package native

import (
	"time"

	"github.com/gogpu/gpubuf/internal/hostpool"
)

// DefaultFenceTimeout bounds each wait for a copy submission.
const DefaultFenceTimeout = 5 * time.Second

type options struct {
	fenceTimeout time.Duration
	labelPrefix  string
	pool         *hostpool.Pool
}

func defaultOptions() options {
	return options{
		fenceTimeout: DefaultFenceTimeout,
		labelPrefix:  "gpubuf",
		pool:         hostpool.Default(),
	}
}

// Option configures a native Device.
type Option func(*options)

// WithFenceTimeout sets how long SubmitAndWait waits for the device.
// Non-positive values restore DefaultFenceTimeout.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			d = DefaultFenceTimeout
		}
		o.fenceTimeout = d
	}
}

// WithLabelPrefix sets the prefix of every HAL object label.
func WithLabelPrefix(prefix string) Option {
	return func(o *options) {
		o.labelPrefix = prefix
	}
}

// WithHostPool sets the pool backing staging map shadows.
func WithHostPool(p *hostpool.Pool) Option {
	return func(o *options) {
		if p != nil {
			o.pool = p
		}
	}
}
