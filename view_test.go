package gpubuf

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gogpu/gpubuf/gpucore"
)

func TestNewViewDesc(t *testing.T) {
	limits := gpucore.DefaultLimits()

	tests := []struct {
		name      string
		usage     Usage
		count     uint64
		stride    uint64
		footprint uint64
		want      gpucore.ViewDesc
	}{
		{
			name: "constant rounds to alignment", usage: UsageConstant,
			count: 3, stride: 16, footprint: 256,
			want: gpucore.ViewDesc{Kind: gpucore.ViewConstant, SizeInBytes: 256},
		},
		{
			name: "constant empty", usage: UsageConstant,
			want: gpucore.ViewDesc{Kind: gpucore.ViewConstant},
		},
		{
			name: "read-only", usage: UsageReadOnly,
			count: 100, stride: 12, footprint: 1200,
			want: gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, SizeInBytes: 1200, NumElements: 100, StructureByteStride: 12},
		},
		{
			name: "read-write", usage: UsageReadWrite,
			count: 7, stride: 8, footprint: 56,
			want: gpucore.ViewDesc{Kind: gpucore.ViewUnorderedAccess, SizeInBytes: 56, NumElements: 7, StructureByteStride: 8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newViewDesc(tt.usage, tt.count, tt.stride, tt.footprint, limits))
		})
	}
}

func TestNewViewDesc_UnknownUsagePanics(t *testing.T) {
	assert.Panics(t, func() {
		newViewDesc(Usage(0), 1, 4, 4, gpucore.DefaultLimits())
	})
}

func TestUsage(t *testing.T) {
	tests := []struct {
		usage  Usage
		str    string
		kind   gpucore.ViewKind
		stride uint64
	}{
		{UsageConstant, "Constant", gpucore.ViewConstant, 16},
		{UsageReadOnly, "ReadOnly", gpucore.ViewShaderResource, 12},
		{UsageReadWrite, "ReadWrite", gpucore.ViewUnorderedAccess, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.str, tt.usage.String())
		assert.True(t, tt.usage.valid(), "%v.valid()", tt.usage)
		assert.Equal(t, tt.kind, tt.usage.viewKind())
		assert.Equal(t, tt.stride, tt.usage.stride(12), "%v.stride(12)", tt.usage)
	}

	assert.False(t, Usage(0).valid())
	assert.False(t, Usage(4).valid())
	assert.Equal(t, "Unknown(9)", Usage(9).String())
	assert.Equal(t, uint64(32), UsageConstant.stride(20))
}
