// Package hostpool provides reusable host memory for staged transfers.
package hostpool

import (
	"math/bits"
	"sync"
)

// Size class bounds. Requests above maxClass bytes bypass the pool.
const (
	minClassShift = 8  // 256 B
	maxClassShift = 28 // 256 MiB
	numClasses    = maxClassShift - minClassShift + 1
)

// DefaultMaxPerClass is the number of idle slices retained per size class.
const DefaultMaxPerClass = 4

// Pool is a thread-safe pool for reusing host byte slices.
//
// Pool groups slices by power-of-two capacity class, so a request for
// n bytes is served by any retained slice whose class covers n. This keeps
// host-side temporaries of repeated transfers from churning the GC.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	classes [numClasses][][]byte
	maxSize int // max slices per class

	gets   uint64
	misses uint64
}

// Stats reports pool usage counters.
type Stats struct {
	// Gets is the number of Get calls.
	Gets uint64

	// Misses is the number of Get calls that allocated.
	Misses uint64

	// Idle is the number of slices currently retained.
	Idle int
}

// New creates a new pool with the given maximum idle slices per size class.
// A maxPerClass of 0 means unlimited (use with caution).
func New(maxPerClass int) *Pool {
	return &Pool{maxSize: maxPerClass}
}

// classOf returns the size class index for n bytes, or -1 if n is too large.
func classOf(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// Get returns a slice of length n. Its contents are unspecified; callers
// overwrite it completely before reading.
func (p *Pool) Get(n int) []byte {
	if n < 0 {
		panic("hostpool: negative size")
	}
	class := classOf(n)

	p.mu.Lock()
	p.gets++
	if class >= 0 {
		bucket := p.classes[class]
		if len(bucket) > 0 {
			buf := bucket[len(bucket)-1]
			bucket[len(bucket)-1] = nil
			p.classes[class] = bucket[:len(bucket)-1]
			p.mu.Unlock()
			return buf[:n]
		}
	}
	p.misses++
	p.mu.Unlock()

	if class < 0 {
		return make([]byte, n)
	}
	return make([]byte, n, 1<<(class+minClassShift))
}

// Put returns a slice obtained from Get to the pool.
// If buf is nil, foreign-sized, or its class is full, it is discarded.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}
	class := classOf(c)
	if class < 0 || c != 1<<(class+minClassShift) {
		// Not allocated by Get; let the GC reclaim it.
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.classes[class]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.classes[class] = append(bucket, buf[:0])
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	idle := 0
	for _, bucket := range p.classes {
		idle += len(bucket)
	}
	return Stats{Gets: p.gets, Misses: p.misses, Idle: idle}
}

// defaultPool is the package-level pool for convenient usage.
var defaultPool = New(DefaultMaxPerClass)

// Default returns the package-level pool.
func Default() *Pool { return defaultPool }

// Get retrieves a slice from the default pool.
func Get(n int) []byte { return defaultPool.Get(n) }

// Put returns a slice to the default pool.
func Put(buf []byte) { defaultPool.Put(buf) }
