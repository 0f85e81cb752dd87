package hostpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 0},
		{256, 0},
		{257, 1},
		{512, 1},
		{513, 2},
		{1 << maxClassShift, numClasses - 1},
		{1<<maxClassShift + 1, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classOf(tt.n), "classOf(%d)", tt.n)
	}
}

func TestPoolGetPut(t *testing.T) {
	p := New(2)

	buf := p.Get(300)
	require.Len(t, buf, 300)
	assert.Equal(t, 512, cap(buf))

	p.Put(buf)
	assert.Equal(t, 1, p.Stats().Idle)

	// Same class is reused.
	again := p.Get(400)
	assert.Len(t, again, 400)
	assert.Equal(t, &buf[:1][0], &again[:1][0], "expected the pooled slice to be reused")

	s := p.Stats()
	assert.Equal(t, uint64(2), s.Gets)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 0, s.Idle)
}

func TestPoolClassCapacity(t *testing.T) {
	p := New(1)
	a := p.Get(10)
	b := p.Get(10)
	p.Put(a)
	p.Put(b)
	assert.Equal(t, 1, p.Stats().Idle, "class should retain at most one slice")
}

func TestPoolDiscardsForeignSlices(t *testing.T) {
	p := New(0)
	p.Put(nil)
	p.Put(make([]byte, 300)) // cap 300 is not a class size
	assert.Equal(t, 0, p.Stats().Idle)
}

func TestPoolOversized(t *testing.T) {
	p := New(0)
	n := 1<<maxClassShift + 1
	buf := p.Get(n)
	assert.Len(t, buf, n)
	p.Put(buf)
	assert.Equal(t, 0, p.Stats().Idle)
}

func TestPoolNegativePanics(t *testing.T) {
	assert.Panics(t, func() { New(0).Get(-1) })
}

func TestPoolConcurrent(t *testing.T) {
	p := New(DefaultMaxPerClass)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				buf := p.Get(64 * (i + j))
				buf = buf[:cap(buf)]
				buf[0] = byte(i)
				p.Put(buf)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, p.Stats().Idle, numClasses*DefaultMaxPerClass)
}
