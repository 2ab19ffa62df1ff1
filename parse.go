// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"fmt"

	"github.com/go-kit/log/level"
	"go4.org/mem"
)

var bom = mem.S("\xEF\xBB\xBF")

// Parse parses data as a single JSON value using the default settings. On
// success it returns the root of the tree; in case of error, nothing remains
// allocated and the error has concrete type *SyntaxError or *ResourceError.
func Parse(data []byte) (*Value, error) { return defaultSettings.Parse(data) }

// Parse parses data as a single JSON value using the settings in s. A nil s
// uses the default settings. A leading UTF-8 byte-order mark is skipped.
//
// The input is scanned twice: first to validate it and to compute the exact
// size of every value, then to allocate and fill the tree. Nesting depth does
// not consume stack, so deeply nested input is limited only by MaxMemory.
func (s *Settings) Parse(data []byte) (*Value, error) {
	if s == nil {
		s = &defaultSettings
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	src := mem.B(data)
	if mem.HasPrefix(src, bom) {
		src = src.SliceFrom(bom.Len())
	}

	p := &parser{
		set: s,
		src: src,
		q:   quota{alloc: s.allocator(), limit: s.MaxMemory},
	}
	logger := s.logger()
	for _, ps := range []pass{counting, building} {
		if err := p.run(ps); err != nil {
			p.rollback()
			level.Debug(logger).Log("msg", "parse failed", "pass", ps, "err", err)
			return nil, err
		}
	}
	level.Debug(logger).Log("msg", "parse complete",
		"bytes", src.Len(), "values", len(p.nodes), "allocated", p.q.used)
	return &p.nodes[0], nil
}

// ParseInto parses data using the settings in s, as Parse does, but reports
// failure by writing a 0-terminated message into errbuf and returning nil.
// The message is truncated if necessary to fit. On success the contents of
// errbuf are unspecified. ParseInto panics if len(errbuf) < ErrorMax.
func ParseInto(s *Settings, data []byte, errbuf []byte) *Value {
	if len(errbuf) < ErrorMax {
		panic(fmt.Sprintf("jalloc: error buffer has %d bytes, want at least %d", len(errbuf), ErrorMax))
	}
	v, err := s.Parse(data)
	if err != nil {
		writeError(errbuf, err)
		return nil
	}
	return v
}
