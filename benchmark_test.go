package gpubuf

import (
	"testing"

	"github.com/gogpu/gpubuf/backend/software"
)

var benchSizes = []struct {
	name  string
	count int
}{
	{"1K", 1 << 10},
	{"64K", 1 << 16},
	{"1M", 1 << 20},
}

// BenchmarkBuffer_SetData benchmarks full-buffer uploads.
func BenchmarkBuffer_SetData(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(size.name, func(b *testing.B) {
			dev := software.New()
			defer dev.Dispose()
			buf, err := Allocate[float32](dev, size.count, UsageReadWrite)
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Dispose()
			src := make([]float32, size.count)

			b.SetBytes(int64(buf.SizeInBytes()))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := buf.SetData(src); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBuffer_GetDataInto benchmarks full-buffer readbacks into a reused slice.
func BenchmarkBuffer_GetDataInto(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(size.name, func(b *testing.B) {
			dev := software.New()
			defer dev.Dispose()
			buf, err := Allocate[float32](dev, size.count, UsageReadWrite)
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Dispose()
			dst := make([]float32, size.count)

			b.SetBytes(int64(buf.SizeInBytes()))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := buf.GetDataInto(dst, 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBuffer_SetDataAtUnaligned measures the read-modify-write path.
func BenchmarkBuffer_SetDataAtUnaligned(b *testing.B) {
	dev := software.New(software.WithCopyAlignment(16))
	defer dev.Dispose()
	buf, err := Allocate[uint8](dev, 4096, UsageReadWrite)
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Dispose()
	src := make([]uint8, 1021)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := buf.SetDataAt(src, 3); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuffer_CopyFrom compares the direct and host round-trip paths.
func BenchmarkBuffer_CopyFrom(b *testing.B) {
	usages := []Usage{UsageReadWrite, UsageConstant}
	for _, usage := range usages {
		b.Run(usage.String(), func(b *testing.B) {
			dev := software.New()
			defer dev.Dispose()
			src, err := Allocate[[3]float32](dev, 1024, usage)
			if err != nil {
				b.Fatal(err)
			}
			defer src.Dispose()
			dst, err := Allocate[[3]float32](dev, 1024, usage)
			if err != nil {
				b.Fatal(err)
			}
			defer dst.Dispose()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := dst.CopyFrom(src); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPackBytes benchmarks stride expansion for constant buffers.
func BenchmarkPackBytes(b *testing.B) {
	const count = 4096
	src := make([]byte, count*12)
	dst := make([]byte, count*16)
	b.SetBytes(int64(len(src)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		packBytes(dst, src, 12, 16)
	}
}
