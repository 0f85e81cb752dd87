package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/gpubuf/backend"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List registered backends and their limits",
	Long: `List every registered backend, try to open a device on it and
print the device limits. Backends that fail to open are reported with
the error.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	names := backend.Available()
	if len(names) == 0 {
		return backend.ErrBackendNotAvailable
	}
	for _, name := range names {
		dev, err := backend.Open(name)
		if err != nil {
			fmt.Fprintf(out, "%-10s unavailable: %v\n", name, err)
			continue
		}
		l := dev.Limits()
		fmt.Fprintf(out, "%-10s %v\n", name, dev)
		fmt.Fprintf(out, "%-10s   constant alignment: %d\n", "", l.ConstantBufferAlignment)
		fmt.Fprintf(out, "%-10s   copy alignment:     %d\n", "", l.CopyAlignment)
		fmt.Fprintf(out, "%-10s   max buffer size:    %s\n", "", formatBytes(l.MaxBufferSize))
		closeDevice(dev)
	}
	return nil
}
