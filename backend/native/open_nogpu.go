//go:build nogpu

package native

// Open is unavailable in nogpu builds.
func Open(...Option) (*Device, error) {
	return nil, ErrNoGPU
}
