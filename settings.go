// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"errors"

	"github.com/go-kit/log"
)

// Settings control the behaviour of a parse. The zero value is ready for use
// and gives strict JSON with no memory limit and the default allocator.
// Settings are not modified by the parser and may be shared among concurrent
// calls, provided the Allocator and Logger are themselves safe for that.
type Settings struct {
	// MaxMemory, if nonzero, is the maximum number of bytes a single parse
	// may allocate, counting both the value nodes and their payloads. A
	// parse that would exceed it fails with ErrMemoryLimit.
	MaxMemory uint64

	// AllowComments enables C++ style block comments (/* ... */) and line
	// comments (// ...) between tokens. Comments are a non-standard extension
	// of the JSON spec.
	AllowComments bool

	// AllowTrailingCommas permits a comma after the last element of an array
	// or the last member of an object.
	AllowTrailingCommas bool

	// Allocator supplies the byte buffers of the tree. If nil, HeapAllocator
	// is used. A tree must be freed with the same Allocator that built it.
	Allocator Allocator

	// ValueExtra is the number of zeroed bytes reserved at each value for use
	// by the host; see Value.Extra.
	ValueExtra int

	// TrackSource records the line and column of each value; see
	// Value.Location.
	TrackSource bool

	// Logger, if set, receives debug diagnostics about each parse.
	Logger log.Logger
}

var defaultSettings Settings

func (s *Settings) allocator() Allocator {
	if s == nil || s.Allocator == nil {
		return defaultAllocator
	}
	return s.Allocator
}

func (s *Settings) logger() log.Logger {
	if s == nil || s.Logger == nil {
		return log.NewNopLogger()
	}
	return s.Logger
}

func (s *Settings) check() error {
	if s.ValueExtra < 0 {
		return errors.New("negative ValueExtra")
	}
	return nil
}
