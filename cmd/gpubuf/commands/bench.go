package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/gpubuf"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure upload, readback and copy throughput",
	Long: `Repeatedly write, read and copy a float32 buffer and report the
average transfer time and throughput of each operation.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().Int("size", 1<<20, "number of float32 elements")
	benchCmd.Flags().Int("iterations", 10, "transfers per direction")
	_ = viper.BindPFlag("bench.size", benchCmd.Flags().Lookup("size"))
	_ = viper.BindPFlag("bench.iterations", benchCmd.Flags().Lookup("iterations"))
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	size := viper.GetInt("bench.size")
	iterations := viper.GetInt("bench.iterations")
	if size <= 0 || iterations <= 0 {
		return fmt.Errorf("size and iterations must be positive")
	}

	dev, name, closeFn, err := openDevice()
	if err != nil {
		return err
	}
	defer closeFn()

	buf, err := gpubuf.Allocate[float32](dev, size, gpubuf.UsageReadWrite, gpubuf.WithLabel("bench"))
	if err != nil {
		return err
	}
	defer buf.Dispose()

	dst, err := gpubuf.Allocate[float32](dev, size, gpubuf.UsageReadWrite, gpubuf.WithLabel("bench copy"))
	if err != nil {
		return err
	}
	defer dst.Dispose()

	host := make([]float32, size)
	for i := range host {
		host[i] = float32(i)
	}

	var upload, readback, copying time.Duration
	for range iterations {
		start := time.Now()
		if err := buf.SetData(host); err != nil {
			return err
		}
		upload += time.Since(start)

		start = time.Now()
		if err := buf.GetDataInto(host, 0); err != nil {
			return err
		}
		readback += time.Since(start)

		start = time.Now()
		if err := dst.CopyFrom(buf); err != nil {
			return err
		}
		copying += time.Since(start)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend:  %s\n", name)
	fmt.Fprintf(out, "buffer:   %d elements (%s)\n", size, formatBytes(buf.SizeInBytes()))
	report := func(dir string, total time.Duration) {
		avg := total / time.Duration(iterations)
		rate := float64(buf.SizeInBytes()) / avg.Seconds() / (1 << 20)
		fmt.Fprintf(out, "%-9s %v avg, %.1f MiB/s\n", dir+":", avg, rate)
	}
	report("upload", upload)
	report("readback", readback)
	report("copy", copying)
	return nil
}
