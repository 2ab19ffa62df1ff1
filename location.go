// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import "fmt"

// A LineCol describes the line number and column of a location in source
// text. Both are 1-based; the column counts bytes, not runes. The zero LineCol
// means "no location".
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 1-based
}

// IsZero reports whether lc is the zero location.
func (lc LineCol) IsZero() bool { return lc.Line == 0 && lc.Column == 0 }

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }
