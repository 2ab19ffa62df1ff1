// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package jalloc

import "fmt"

// Path traverses a sequential path through the structure of a value starting
// at v, where path elements are either strings (denoting object keys) or
// integers (denoting offsets into arrays).  If the path is valid, the element
// reached is returned. In case of error, the input v is returned along with
// the error.
//
// If a path element is a string, the corresponding value must be an object,
// and the string resolves to the first member with that name.
//
// If a path element is an integer, the corresponding value must be an array,
// and the integer resolves to an index in the array. Negative indices count
// backward from the end of the array (-1 is last, -2 second last, etc.).
func Path(v *Value, path ...any) (*Value, error) {
	cur := v
	for _, elt := range path {
		switch t := elt.(type) {
		case string:
			if cur.Kind() != Object {
				return v, fmt.Errorf("cannot traverse %v with %q", cur.Kind(), t)
			}
			next := cur.Find(t)
			if next == nil {
				return v, fmt.Errorf("key %q not found", t)
			}
			cur = next
		case int:
			if cur.Kind() != Array {
				return v, fmt.Errorf("cannot traverse %v with %v", cur.Kind(), t)
			}
			i, ok := fixArrayBound(cur.Len(), t)
			if !ok {
				return v, fmt.Errorf("array index %d out of bounds (n=%d)", t, cur.Len())
			}
			cur = cur.Index(i)
		default:
			return v, fmt.Errorf("invalid path element %T", elt)
		}
	}
	return cur, nil
}

func fixArrayBound(n, i int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}
