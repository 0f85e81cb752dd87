package commands

import (
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/gpubuf"
	"github.com/gogpu/gpubuf/gpucore"
)

// executor is implemented by devices that can run a host kernel over a
// buffer (the software device).
type executor interface {
	Execute(id gpucore.BufferID, fn func(mem []byte)) error
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Double an array of integers on the device",
	Long: `Upload 0..n-1 into a read-write buffer, double every element on the
device and read the result back.

Devices without a host kernel hook copy the buffer device-to-device and
verify the copy instead.`,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().IntP("count", "n", 512, "number of int32 elements")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")

	dev, name, closeFn, err := openDevice()
	if err != nil {
		return err
	}
	defer closeFn()

	input := make([]int32, count)
	for i := range input {
		input[i] = int32(i)
	}

	buf, err := gpubuf.AllocateFrom(dev, gpubuf.UsageReadWrite, input, gpubuf.WithLabel("sample"))
	if err != nil {
		return err
	}
	defer buf.Dispose()

	want := make([]int32, count)
	if ex, ok := dev.(executor); ok {
		err = ex.Execute(buf.Handle(), func(mem []byte) {
			for i := 0; i+4 <= len(mem); i += 4 {
				v := int32(binary.NativeEndian.Uint32(mem[i:]))
				binary.NativeEndian.PutUint32(mem[i:], uint32(v*2))
			}
		})
		if err != nil {
			return err
		}
		for i, v := range input {
			want[i] = v * 2
		}
	} else {
		dst, err := gpubuf.Allocate[int32](dev, count, gpubuf.UsageReadWrite, gpubuf.WithLabel("sample copy"))
		if err != nil {
			return err
		}
		defer dst.Dispose()
		if err := dst.CopyFrom(buf); err != nil {
			return err
		}
		buf = dst
		copy(want, input)
	}

	got, err := buf.GetData()
	if err != nil {
		return err
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("element %d = %d, want %d", i, got[i], want[i])
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d elements verified (%v)\n", name, count, buf)
	return nil
}
