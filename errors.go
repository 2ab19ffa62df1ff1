// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"errors"
	"fmt"

	"github.com/creachadair/mds/mstr"
)

// ErrorMax is the minimum size of the error buffer passed to ParseInto.
const ErrorMax = 128

// SyntaxError is the concrete type of errors reported for malformed input.
type SyntaxError struct {
	Location LineCol
	Message  string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: %s", s.Location, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// ResourceError is the concrete type of errors reported when a parse runs out
// of memory or a counter would overflow. It wraps one of ErrMemoryLimit,
// ErrAllocFailed, or ErrTooLong.
type ResourceError struct {
	Location LineCol

	err error
}

// Error satisfies the error interface.
func (r *ResourceError) Error() string {
	return fmt.Sprintf("at %s: %v", r.Location, r.err)
}

// Unwrap supports error wrapping.
func (r *ResourceError) Unwrap() error { return r.err }

// errPassMismatch reports that the building pass disagreed with the sizes
// recorded by the counting pass. It indicates a bug in the parser.
var errPassMismatch = errors.New("internal error: building pass disagrees with counting pass")

// writeError copies the message of err into buf, truncated to fit on a UTF-8
// boundary and terminated by a 0 byte.
func writeError(buf []byte, err error) {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	msg = mstr.Trunc(msg, len(buf)-1)
	n := copy(buf, msg)
	buf[n] = 0
}
