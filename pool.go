// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"github.com/prometheus/prometheus/util/pool"
	"go.uber.org/atomic"
)

// PoolAllocator recycles buffers through a set of size-bucketed pools, so that
// repeatedly parsing and freeing similar documents reuses the same memory.
// It is safe for concurrent use by multiple parses.
type PoolAllocator struct {
	pool *pool.Pool
}

// NewPoolAllocator constructs a PoolAllocator whose buckets start at minSize
// bytes and grow by factor up to maxSize bytes. Requests larger than maxSize
// are allocated directly and are not retained when freed.
func NewPoolAllocator(minSize, maxSize int, factor float64) *PoolAllocator {
	return &PoolAllocator{
		pool: pool.New(minSize, maxSize, factor, func(size int) any {
			return make([]byte, 0, size)
		}),
	}
}

// Alloc implements Allocator.
func (p *PoolAllocator) Alloc(size int) ([]byte, error) {
	return p.pool.Get(size).([]byte)[:size], nil
}

// Free implements Allocator.
func (p *PoolAllocator) Free(buf []byte) { p.pool.Put(buf[:0]) }

// CountingAllocator wraps another Allocator and keeps a running account of the
// buffers and bytes it has granted and not yet had returned. It is safe for
// concurrent use.
type CountingAllocator struct {
	base Allocator // nil means HeapAllocator

	bytes   atomic.Int64
	buffers atomic.Int64
	total   atomic.Int64
}

// NewCountingAllocator returns a CountingAllocator delegating to base. If base
// is nil, HeapAllocator is used.
func NewCountingAllocator(base Allocator) *CountingAllocator {
	return &CountingAllocator{base: base}
}

func (c *CountingAllocator) allocator() Allocator {
	if c.base == nil {
		return defaultAllocator
	}
	return c.base
}

// Alloc implements Allocator.
func (c *CountingAllocator) Alloc(size int) ([]byte, error) {
	buf, err := c.allocator().Alloc(size)
	if err != nil {
		return nil, err
	}
	c.bytes.Add(int64(len(buf)))
	c.buffers.Inc()
	c.total.Add(int64(len(buf)))
	return buf, nil
}

// Free implements Allocator.
func (c *CountingAllocator) Free(buf []byte) {
	c.bytes.Sub(int64(len(buf)))
	c.buffers.Dec()
	c.allocator().Free(buf)
}

// Outstanding reports the number of bytes and buffers granted by c and not
// yet freed.
func (c *CountingAllocator) Outstanding() (bytes, buffers int64) {
	return c.bytes.Load(), c.buffers.Load()
}

// Total reports the number of bytes granted by c over its lifetime.
func (c *CountingAllocator) Total() int64 { return c.total.Load() }
