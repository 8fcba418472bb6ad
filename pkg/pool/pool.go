// Package pool provides typed object pooling for hot encoding paths.
//
// The package provides:
//   - Generic type-safe object pooling with Pool[T]
//   - A pre-configured pool of float64 scratch buffers used while encoding
//     sparse vectors
//   - Allocation and hit statistics for monitoring
//
// Example usage:
//
//	buf := pool.GetFloats(width)
//	defer pool.PutFloats(buf)
//	fill(*buf)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool wraps sync.Pool with type safety, an optional reset hook and usage
// statistics. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. newFn builds an object when the pool is empty; reset,
// when non-nil, runs on every object handed back through Put.
//
//	p := pool.New(
//	    func() *bytes.Buffer { return new(bytes.Buffer) },
//	    func(b *bytes.Buffer) { b.Reset() },
//	)
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object, allocating one when the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects created, currently checked out,
// served from the pool without allocating, and allocated on a miss.
func (p *Pool[T]) Stats() (allocated, inUse, hits, misses int64) {
	allocated = atomic.LoadInt64(&p.stats.allocated)
	gets := atomic.LoadInt64(&p.stats.gets)
	return allocated, atomic.LoadInt64(&p.stats.inUse), max(gets-allocated, 0), allocated
}

// Floats pools float64 scratch buffers.
var Floats = New(
	func() *[]float64 {
		s := make([]float64, 0, 64)
		return &s
	},
	func(s *[]float64) { *s = (*s)[:0] },
)

// GetFloats returns a zeroed buffer of length n from Floats. The buffer
// must not be retained after PutFloats.
func GetFloats(n int) *[]float64 {
	p := Floats.Get()
	if cap(*p) < n {
		*p = make([]float64, n)
		return p
	}
	*p = (*p)[:n]
	clear(*p)
	return p
}

// PutFloats returns a buffer obtained from GetFloats.
func PutFloats(p *[]float64) {
	Floats.Put(p)
}
