// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting and unquoting of JSON strings.
package escape

import (
	"fmt"
	"unicode/utf8"

	"go4.org/mem"
)

// An Error reports a malformed escape sequence. Offset is the position of the
// offending byte relative to the start of the input that was being decoded.
type Error struct {
	Offset  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func errorf(off int, msg string, args ...any) *Error {
	return &Error{Offset: off, Message: fmt.Sprintf(msg, args...)}
}

// Simple maps the byte following a backslash to its decoded value, for all
// escapes other than \u. It reports false for an unrecognized escape.
func Simple(b byte) (byte, bool) {
	switch b {
	case '"', '\\', '/':
		return b, true
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	}
	return 0, false
}

// DecodeUnicode decodes the hexadecimal part of a \u escape at the front of
// src, which begins just after the "\u". A high surrogate must be followed
// immediately by a \u escape for a low surrogate, and the pair is combined.
// It returns the decoded code point and the number of bytes of src consumed
// (4, or 10 for a surrogate pair).
func DecodeUnicode(src mem.RO) (rune, int, error) {
	hi, err := hex4(src, 0)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case isLowSurrogate(hi):
		return 0, 0, errorf(0, "unpaired low surrogate \\u%04X", hi)
	case !isHighSurrogate(hi):
		return hi, 4, nil
	}

	// A high surrogate requires a following low surrogate.
	if src.Len() < 6 || src.At(4) != '\\' || src.At(5) != 'u' {
		return 0, 0, errorf(min(4, src.Len()), "unpaired high surrogate \\u%04X", hi)
	}
	lo, err := hex4(src, 6)
	if err != nil {
		return 0, 0, err
	} else if !isLowSurrogate(lo) {
		return 0, 0, errorf(6, "invalid surrogate pair \\u%04X\\u%04X", hi, lo)
	}
	return 0x10000 + (hi-0xD800)<<10 + (lo - 0xDC00), 10, nil
}

func isHighSurrogate(r rune) bool { return r >= 0xD800 && r < 0xDC00 }
func isLowSurrogate(r rune) bool  { return r >= 0xDC00 && r < 0xE000 }

// hex4 parses exactly four hexadecimal digits of src starting at offset.
func hex4(src mem.RO, offset int) (rune, error) {
	var v rune
	for i := offset; i < offset+4; i++ {
		if i >= src.Len() {
			return 0, errorf(i, "incomplete Unicode escape")
		}
		d, ok := hexValue(src.At(i))
		if !ok {
			return 0, errorf(i, "invalid hex digit %q in Unicode escape", src.At(i))
		}
		v = v<<4 | rune(d)
	}
	return v, nil
}

func hexValue(b byte) (byte, bool) {
	switch {
	case '0' <= b && b <= '9':
		return b - '0', true
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10, true
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// Unquote decodes a byte slice containing the JSON encoding of a string. The
// input must have the enclosing double quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents. Unquote
// reports an error for an invalid or incomplete escape sequence, including an
// unpaired surrogate.
func Unquote(src mem.RO) ([]byte, error) {
	dec := make([]byte, 0, src.Len())
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(dec, src), nil
	}

	pos := 0 // offset of src in the original input, for errors
	for i >= 0 {
		dec = mem.Append(dec, src.SliceTo(i))
		src, pos = src.SliceFrom(i+1), pos+i+1
		if src.Len() == 0 {
			return nil, errorf(pos, "incomplete escape sequence")
		}
		if b, ok := Simple(src.At(0)); ok {
			dec = append(dec, b)
			src, pos = src.SliceFrom(1), pos+1
		} else if src.At(0) == 'u' {
			r, n, err := DecodeUnicode(src.SliceFrom(1))
			if err != nil {
				err.(*Error).Offset += pos + 1
				return nil, err
			}
			dec = utf8.AppendRune(dec, r)
			src, pos = src.SliceFrom(n+1), pos+n+1
		} else {
			return nil, errorf(pos, "invalid %q after escape", src.At(0))
		}

		// Look for the next escape sequence, and if one is not found we can blit
		// the rest of the input and go home.
		i = mem.IndexByte(src, '\\')
	}
	return mem.Append(dec, src), nil
}
