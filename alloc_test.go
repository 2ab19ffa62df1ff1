// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/creachadair/jalloc"
	"github.com/creachadair/jalloc/internal/testutil"
	"github.com/go-kit/log"
)

// leakInputs are parsed with every allocator configuration. They include
// inputs that fail in each phase of the parse.
var leakInputs = []string{
	`null`,
	`"x"`,
	`""`,
	`[1, "two", [3], {"four": 4.0}]`,
	`{"a": {"b": {"c": ["d", "e", {"f": ""}]}}, "g": "h"}`,
	`{"a":1,"a":"again"}`,
	`[[[[[]]]]]`,
	`{"a": [1, 2, "three"`,
	`{"a": "b", "c": tru}`,
	`["ok", "\uD800"]`,
	`[1, 2] x`,
	`{"k": {"l": "m"}, "n": 01}`,
}

func TestNoLeaks(t *testing.T) {
	for _, extra := range []int{0, 1, 16} {
		for _, input := range leakInputs {
			name := fmt.Sprintf("extra=%d/%s", extra, input)
			t.Run(name, func(t *testing.T) {
				ca := jalloc.NewCountingAllocator(nil)
				s := &jalloc.Settings{Allocator: ca, ValueExtra: extra}
				v, err := s.Parse([]byte(input))
				if err == nil {
					s.Free(v)
				}
				if n, b := ca.Outstanding(); n != 0 || b != 0 {
					t.Errorf("Outstanding after parse (err=%v): %d bytes in %d buffers", err, n, b)
				}
			})
		}
	}
}

type failAllocator struct {
	jalloc.Allocator
	n int // number of requests to grant before failing
}

var errNoMemory = errors.New("out of memory")

func (f *failAllocator) Alloc(size int) ([]byte, error) {
	if f.n == 0 {
		return nil, errNoMemory
	}
	f.n--
	return f.Allocator.Alloc(size)
}

func TestAllocFailure(t *testing.T) {
	const input = `{"a": "xyz", "b": [true, "", {"c": "d"}], "e": {}}`
	for n := 0; ; n++ {
		ca := jalloc.NewCountingAllocator(nil)
		s := &jalloc.Settings{
			Allocator:  &failAllocator{Allocator: ca, n: n},
			ValueExtra: 2,
		}
		v, err := s.Parse([]byte(input))
		if err == nil {
			if n == 0 {
				t.Fatal("Parse succeeded without allocating")
			}
			s.Free(v)
			if got, _ := ca.Outstanding(); got != 0 {
				t.Errorf("Outstanding after Free: %d bytes", got)
			}
			t.Logf("Parse succeeded after %d allocations", n)
			return
		}
		if !errors.Is(err, jalloc.ErrAllocFailed) || !errors.Is(err, errNoMemory) {
			t.Errorf("Parse with %d allocations: got %v, want %v", n, err, jalloc.ErrAllocFailed)
		}
		var rerr *jalloc.ResourceError
		if !errors.As(err, &rerr) {
			t.Errorf("Parse with %d allocations: got %T, want *ResourceError", n, err)
		}
		if got, nb := ca.Outstanding(); got != 0 || nb != 0 {
			t.Errorf("Outstanding after failure %d: %d bytes in %d buffers", n, got, nb)
		}
		if n > 100 {
			t.Fatalf("Parse still failing after %d allocations", n)
		}
	}
}

// allocated returns the number of bytes charged to the quota by a successful
// parse of input with s, as reported in its debug log.
func allocated(t *testing.T, s jalloc.Settings, input string) uint64 {
	t.Helper()
	var used uint64
	var found bool
	s.Logger = log.LoggerFunc(func(kvs ...any) error {
		for i := 0; i+1 < len(kvs); i += 2 {
			if kvs[i] == "allocated" {
				used, found = kvs[i+1].(uint64), true
			}
		}
		return nil
	})
	v := testutil.MustParse(t, &s, input)
	defer s.Free(v)
	if !found {
		t.Fatal("Parse did not log its allocation")
	}
	return used
}

func TestMemoryLimit(t *testing.T) {
	inputs := []string{
		`1`,
		`"a somewhat longer string value"`,
		`[1, 2, 3, [4, 5], {"six": 6}]`,
		`{"alpha": "beta", "gamma": ["delta", {"epsilon": null}]}`,
	}
	for _, input := range inputs {
		ca := jalloc.NewCountingAllocator(nil)
		base := jalloc.Settings{Allocator: ca, ValueExtra: 3}
		need := allocated(t, base, input)
		if need == 0 {
			t.Fatalf("Parse %#q: no allocation reported", input)
		}

		// Exactly enough memory succeeds.
		s := base
		s.MaxMemory = need
		v, err := s.Parse([]byte(input))
		if err != nil {
			t.Errorf("Parse %#q with limit %d: unexpected error: %v", input, need, err)
		} else {
			s.Free(v)
		}

		// Any less fails, without leaking.
		for limit := need - 1; limit > 0; limit /= 2 {
			s.MaxMemory = limit
			v, err := s.Parse([]byte(input))
			if err == nil {
				t.Errorf("Parse %#q with limit %d: got %s, want error", input, limit, testutil.Dump(v))
				s.Free(v)
				continue
			}
			if !errors.Is(err, jalloc.ErrMemoryLimit) {
				t.Errorf("Parse %#q with limit %d: got %v, want %v", input, limit, err, jalloc.ErrMemoryLimit)
			}
		}
		if n, b := ca.Outstanding(); n != 0 || b != 0 {
			t.Errorf("Parse %#q: outstanding %d bytes in %d buffers", input, n, b)
		}
	}
}

func TestQuotaCountsScratch(t *testing.T) {
	per := uint64(jalloc.ValueSize + jalloc.ShellSize)
	if got := allocated(t, jalloc.Settings{}, `1`); got != per {
		t.Errorf("Scalar: got %d bytes charged, want %d", got, per)
	}
	if got := allocated(t, jalloc.Settings{}, `[null, true, 1]`); got < 4*per {
		t.Errorf("Array: got %d bytes charged, want at least %d", got, 4*per)
	}

	// A limit that covers the values but not their shells is exceeded.
	s := &jalloc.Settings{MaxMemory: 4 * uint64(jalloc.ValueSize)}
	if v, err := s.Parse([]byte(`[null, true, 1]`)); !errors.Is(err, jalloc.ErrMemoryLimit) {
		t.Errorf("Parse: got %v, want %v", err, jalloc.ErrMemoryLimit)
		s.Free(v)
	}
}

func TestMemoryLimitChecksBeforeSyntax(t *testing.T) {
	// The value budget is exhausted before the parser reaches the error.
	s := &jalloc.Settings{MaxMemory: 1}
	_, err := s.Parse([]byte(`[1, 2, x]`))
	if !errors.Is(err, jalloc.ErrMemoryLimit) {
		t.Errorf("Parse: got %v, want %v", err, jalloc.ErrMemoryLimit)
	}
	var rerr *jalloc.ResourceError
	if !errors.As(err, &rerr) {
		t.Fatalf("Parse: got %T, want *ResourceError", err)
	}
	if want := (jalloc.LineCol{Line: 1, Column: 1}); rerr.Location != want {
		t.Errorf("Location: got %v, want %v", rerr.Location, want)
	}
}

func TestTooLong(t *testing.T) {
	defer jalloc.SetMaxCount(4)()

	tests := []struct {
		input string
		ok    bool
	}{
		{`"abcd"`, true},
		{`"abcde"`, false},
		{`"abé"`, true},
		{`"abcé"`, false},
		{`[1, 2, 3]`, true},
		{`[1, 2, 3, 4, 5]`, false},
		{`{"a": 1}`, true},
		{`{"ab": 1, "cd": 2}`, false},
	}
	for _, test := range tests {
		ca := jalloc.NewCountingAllocator(nil)
		s := &jalloc.Settings{Allocator: ca}
		v, err := s.Parse([]byte(test.input))
		if test.ok {
			if err != nil {
				t.Errorf("Parse %#q: unexpected error: %v", test.input, err)
			} else {
				s.Free(v)
			}
		} else if !errors.Is(err, jalloc.ErrTooLong) {
			t.Errorf("Parse %#q: got %v, want %v", test.input, err, jalloc.ErrTooLong)
		}
		if n, _ := ca.Outstanding(); n != 0 {
			t.Errorf("Parse %#q: outstanding %d bytes", test.input, n)
		}
	}
}

func TestPoolAllocator(t *testing.T) {
	pa := jalloc.NewPoolAllocator(8, 1024, 2)
	for _, size := range []int{0, 1, 7, 8, 100, 1024, 5000} {
		buf, err := pa.Alloc(size)
		if err != nil {
			t.Fatalf("Alloc(%d): unexpected error: %v", size, err)
		}
		if len(buf) != size {
			t.Errorf("Alloc(%d): got %d bytes", size, len(buf))
		}
		pa.Free(buf)
	}

	ca := jalloc.NewCountingAllocator(pa)
	s := &jalloc.Settings{Allocator: ca, ValueExtra: 4}
	const input = `{"name": "pool", "tags": ["a", "bb", "ccc"], "meta": {"x": "yz"}}`
	want := testutil.Dump(testutil.MustParse(t, nil, input))
	for range 5 {
		v := testutil.MustParse(t, s, input)
		if got := testutil.Dump(v); got != want {
			t.Errorf("Pooled parse: got %s, want %s", got, want)
		}
		for _, e := range v.Entries() {
			for _, b := range e.Value().Extra() {
				if b != 0 {
					t.Fatalf("Extra for %q is not zeroed: %v", e.Name(), e.Value().Extra())
				}
			}
			copy(e.Value().Extra(), "dirt")
		}
		s.Free(v)
	}
	if n, b := ca.Outstanding(); n != 0 || b != 0 {
		t.Errorf("Outstanding: %d bytes in %d buffers", n, b)
	}
	if ca.Total() == 0 {
		t.Error("Total: no bytes were allocated")
	}
}

func TestDeepNesting(t *testing.T) {
	const depth = 50000

	t.Run("Array", func(t *testing.T) {
		ca := jalloc.NewCountingAllocator(nil)
		s := &jalloc.Settings{Allocator: ca, ValueExtra: 1}
		input := strings.Repeat("[", depth) + strings.Repeat("]", depth)
		v := testutil.MustParse(t, s, input)
		cur, n := v, 1
		for cur.Len() == 1 {
			cur = cur.Index(0)
			n++
		}
		if n != depth || cur.Kind() != jalloc.Array || cur.Len() != 0 {
			t.Errorf("Innermost: depth %d kind %v len %d, want depth %d empty array",
				n, cur.Kind(), cur.Len(), depth)
		}
		for up := cur; up != v; up = up.Parent() {
			if up.Parent() == nil {
				t.Fatal("Parent chain ends before the root")
			}
		}
		s.Free(v)
		if got, _ := ca.Outstanding(); got != 0 {
			t.Errorf("Outstanding after Free: %d bytes", got)
		}
	})

	t.Run("Object", func(t *testing.T) {
		input := strings.Repeat(`{"k":`, depth) + `"leaf"` + strings.Repeat("}", depth)
		v := testutil.MustParse(t, nil, input)
		cur := v
		for cur.Kind() == jalloc.Object {
			cur = cur.Find("k")
		}
		if got := cur.Text(); got != "leaf" {
			t.Errorf("Leaf: got %q, want leaf", got)
		}
		jalloc.Free(v)
	})

	t.Run("Limited", func(t *testing.T) {
		s := &jalloc.Settings{MaxMemory: 1 << 16}
		input := strings.Repeat("[", depth) + strings.Repeat("]", depth)
		if _, err := s.Parse([]byte(input)); !errors.Is(err, jalloc.ErrMemoryLimit) {
			t.Errorf("Parse: got %v, want %v", err, jalloc.ErrMemoryLimit)
		}
	})

	t.Run("Unclosed", func(t *testing.T) {
		ca := jalloc.NewCountingAllocator(nil)
		s := &jalloc.Settings{Allocator: ca, ValueExtra: 8}
		input := strings.Repeat(`[{"a":`, depth)
		if _, err := s.Parse([]byte(input)); err == nil {
			t.Fatal("Parse: got nil, want error")
		}
		if got, _ := ca.Outstanding(); got != 0 {
			t.Errorf("Outstanding after failure: %d bytes", got)
		}
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err  error
		size int
		want string
	}{
		{nil, 16, "unknown error"},
		{errors.New(""), 16, "unknown error"},
		{errors.New("short"), 16, "short"},
		{errors.New("0123456789"), 6, "01234"},
		{errors.New("abcdé"), 6, "abcd"}, // no split within é
	}
	for _, test := range tests {
		buf := make([]byte, test.size)
		for i := range buf {
			buf[i] = '*'
		}
		jalloc.WriteError(buf, test.err)
		got, _, ok := strings.Cut(string(buf), "\x00")
		if !ok {
			t.Errorf("WriteError(%v): message is not terminated: %q", test.err, buf)
		} else if got != test.want {
			t.Errorf("WriteError(%v): got %q, want %q", test.err, got, test.want)
		}
	}
}
