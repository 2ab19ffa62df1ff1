// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package escape

import (
	"unicode/utf8"

	"go4.org/mem"
)

var controlEsc = [...]byte{
	'\b': 'b',
	'\f': 'f',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	' ':  ' ', // sentinel
}

var hexDigit = []byte("0123456789abcdef")

// AppendQuote appends the JSON encoding of src to dst, including the enclosing
// double quotation marks, and returns the extended slice. Bytes that are not
// valid UTF-8 are written as \u escapes of their byte values, so that the
// result is always printable and distinguishes every input.
func AppendQuote(dst []byte, src mem.RO) []byte {
	dst = append(dst, '"')
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		switch {
		case r == utf8.RuneError && n <= 1:
			dst = appendHex(dst, src.At(0))
			n = 1
		case r < ' ':
			if b := controlEsc[r]; b != 0 {
				dst = append(dst, '\\', b)
			} else {
				dst = appendHex(dst, byte(r))
			}
		case r == '\\' || r == '"':
			dst = append(dst, '\\', byte(r))
		case r == '\u2028' || r == '\u2029':
			dst = append(dst, `\u202`...)
			dst = append(dst, hexDigit[r&15])
		default:
			dst = utf8.AppendRune(dst, r)
		}
		src = src.SliceFrom(n)
	}
	return append(dst, '"')
}

func appendHex(dst []byte, b byte) []byte {
	return append(dst, '\\', 'u', '0', '0', hexDigit[b>>4], hexDigit[b&15])
}
