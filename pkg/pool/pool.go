// Package pool provides high-performance object pooling for seqweave.
// It offers zero-allocation memory management with automatic object
// recycling, reducing garbage collection pressure on the record hot path.
//
// The package provides:
//   - Generic type-safe object pooling with Pool[T]
//   - Byte buffer pooling with size-based buckets
//   - Pool statistics for monitoring and tuning
//
// Example usage:
//
//	myPool := pool.New(
//	    func() *MyType { return &MyType{} },
//	    func(obj *MyType) { obj.Reset() },
//	)
//	obj := myPool.Get()
//	defer myPool.Put(obj)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset
// functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is
// needed. The reset function, if non-nil, is called before returning an
// object to the pool.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFn,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
// The returned object should be returned with Put when no longer needed.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse. If a reset function was
// provided during pool creation, it is called before the object is stored.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics: total objects created, objects
// currently checked out, and successful Get operations.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}
