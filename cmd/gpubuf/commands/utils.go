package commands

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/gogpu/gpubuf/backend"
	"github.com/gogpu/gpubuf/gpucore"

	// Register backends.
	_ "github.com/gogpu/gpubuf/backend/native"
	_ "github.com/gogpu/gpubuf/backend/software"
)

// disposer is implemented by devices that own resources.
type disposer interface {
	Dispose()
}

// openDevice opens the device named by the backend flag. "auto" picks the
// highest priority backend that opens.
func openDevice() (gpucore.Device, string, func(), error) {
	name := viper.GetString("backend")

	var (
		dev gpucore.Device
		err error
	)
	switch name {
	case "", "auto":
		dev, name, err = backend.Default()
	default:
		dev, err = backend.Open(name)
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("open %s device: %w", name, err)
	}
	return dev, name, func() { closeDevice(dev) }, nil
}

func closeDevice(dev gpucore.Device) {
	if d, ok := dev.(disposer); ok {
		d.Dispose()
	}
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
