// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package jalloc implements a JSON parser that builds an exactly-sized,
// read-only tree of values.
//
// # Parsing
//
// Call Parse with a byte slice containing a single JSON value. Parse returns
// the root of the tree, or an error describing the first problem found:
//
//	root, err := jalloc.Parse(input)
//	if err != nil {
//	   log.Fatalf("Parse failed: %v", err)
//	}
//	defer jalloc.Free(root)
//
// Malformed input is reported with an error of concrete type *SyntaxError,
// carrying the line and column of the offending byte. Running out of memory is
// reported with an error of concrete type *ResourceError, which wraps one of
// ErrMemoryLimit, ErrAllocFailed, or ErrTooLong. Either way, nothing allocated
// by the failed parse remains live.
//
// # Allocation
//
// The parser reads its input twice. The first pass validates the input and
// records the kind of each value together with the exact number of elements,
// members, and decoded string bytes it will need. The second pass allocates
// every payload at exactly that size and fills it. No buffer is ever grown or
// copied, and the nesting depth of the input does not consume stack.
//
// The byte buffers of the tree (string contents, packed member names, and host
// metadata) come from an Allocator. The default allocates from the heap; a
// PoolAllocator recycles buffers between parses, and a CountingAllocator keeps
// track of what is outstanding. All memory used by a parse, including the
// value nodes themselves, counts toward Settings.MaxMemory:
//
//	s := &jalloc.Settings{
//	   MaxMemory: 1 << 20,
//	   Allocator: jalloc.NewPoolAllocator(16, 1<<16, 2),
//	}
//	root, err := s.Parse(input)
//	if errors.Is(err, jalloc.ErrMemoryLimit) {
//	   log.Print("Input is too large")
//	}
//	...
//	s.Free(root)
//
// A tree must be released with the Settings (or at least the Allocator) that
// built it.
//
// # Values
//
// Each node of the tree is a *Value. The methods of a Value correspond to the
// JSON types:
//
//	Kind     | Methods
//	-------- | ----------------------------------------
//	Null     | --
//	Boolean  | Bool
//	Integer  | Int, Float
//	Double   | Float
//	String   | Len, Bytes, Text
//	Array    | Len, Index, Values
//	Object   | Len, Entries, Find, FindAll
//
// Object members keep their source order, and members with duplicate names
// are all retained; Find reports the first.
//
// # Extensions
//
// Settings.AllowComments enables C++ style comments between tokens, and
// Settings.AllowTrailingCommas permits a comma after the last element of an
// array or object. Settings.TrackSource records the location of every value,
// and Settings.ValueExtra reserves zeroed bytes at each value for the host.
package jalloc
