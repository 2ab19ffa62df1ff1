// Package testutil defines support code for unit tests.
package testutil

import (
	"strconv"
	"testing"

	"github.com/creachadair/jalloc"
	"github.com/creachadair/jalloc/internal/escape"

	"go4.org/mem"
)

// Dump renders v as a compact string that records the kind of every value,
// for comparing trees in tests. Integers and doubles are distinguished as
// int(N) and double(N); strings and member names are quoted.
func Dump(v *jalloc.Value) string { return string(appendValue(nil, v)) }

func appendValue(buf []byte, v *jalloc.Value) []byte {
	switch v.Kind() {
	case jalloc.Null:
		return append(buf, "null"...)
	case jalloc.Boolean:
		return strconv.AppendBool(buf, v.Bool())
	case jalloc.Integer:
		buf = append(buf, "int("...)
		buf = strconv.AppendInt(buf, v.Int(), 10)
		return append(buf, ')')
	case jalloc.Double:
		buf = append(buf, "double("...)
		buf = strconv.AppendFloat(buf, v.Float(), 'g', -1, 64)
		return append(buf, ')')
	case jalloc.String:
		return escape.AppendQuote(buf, mem.B(v.Bytes()))
	case jalloc.Array:
		buf = append(buf, '[')
		for i, elt := range v.Values() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = appendValue(buf, elt)
		}
		return append(buf, ']')
	case jalloc.Object:
		buf = append(buf, '{')
		for i, e := range v.Entries() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = escape.AppendQuote(buf, mem.B(e.NameBytes()))
			buf = append(buf, ':')
			buf = appendValue(buf, e.Value())
		}
		return append(buf, '}')
	}
	return append(buf, "<invalid>"...)
}

// MustParse parses input with s and fails the test if that is not possible.
func MustParse(t testing.TB, s *jalloc.Settings, input string) *jalloc.Value {
	t.Helper()
	v, err := s.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse %#q: unexpected error: %v", input, err)
	}
	return v
}
