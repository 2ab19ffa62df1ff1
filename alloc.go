// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// An Allocator supplies the byte buffers owned by a parsed tree: the contents
// of strings, the packed member names of objects, and the host metadata
// reserved by ValueExtra.
//
// Alloc returns a buffer of exactly size bytes, or an error. The contents of
// the buffer need not be zeroed. Free returns a buffer obtained from Alloc;
// each buffer is freed exactly once.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// HeapAllocator allocates a new byte slice every time and leaves reclamation
// to the garbage collector. It is the default Allocator.
type HeapAllocator struct{}

// Alloc implements Allocator.
func (HeapAllocator) Alloc(size int) ([]byte, error) { return make([]byte, size), nil }

// Free implements Allocator. It does nothing.
func (HeapAllocator) Free([]byte) {}

var defaultAllocator Allocator = HeapAllocator{}

var (
	// ErrMemoryLimit is reported when a parse would exceed Settings.MaxMemory.
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrAllocFailed is reported when the Allocator refuses a request.
	ErrAllocFailed = errors.New("memory allocation failure")

	// ErrTooLong is reported when a length or size counter would overflow.
	ErrTooLong = errors.New("too long (caught overflow)")
)

// Limits on the counters kept during a parse, leaving a margin below the
// largest representable value.
var (
	maxCount = math.MaxInt32 - 8
	maxBytes = uint64(math.MaxUint64 - 8)
)

// A quota tracks the memory granted during one parse. Every request is checked
// against the running total and the ceiling before anything is allocated.
type quota struct {
	alloc Allocator
	limit uint64 // 0 means unlimited
	used  uint64
}

// reserve charges n bytes to q without allocating them. It is used for storage
// owned by the Go runtime rather than the Allocator.
func (q *quota) reserve(n int) error {
	if n < 0 || uint64(n) > maxBytes-q.used {
		return ErrTooLong
	}
	if q.limit != 0 && q.used+uint64(n) > q.limit {
		return fmt.Errorf("%w (limit %s)", ErrMemoryLimit, humanize.Bytes(q.limit))
	}
	q.used += uint64(n)
	return nil
}

// get reserves n bytes and obtains them from the Allocator.
func (q *quota) get(n int) ([]byte, error) {
	if err := q.reserve(n); err != nil {
		return nil, err
	}
	buf, err := q.alloc.Alloc(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocFailed, err)
	} else if len(buf) != n {
		if buf != nil {
			q.alloc.Free(buf)
		}
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrAllocFailed, len(buf), n)
	}
	return buf, nil
}

// put returns buf to the Allocator. A nil buf is ignored.
func (q *quota) put(buf []byte) {
	if buf != nil {
		q.alloc.Free(buf)
	}
}
