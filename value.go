// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import "unsafe"

// Kind is the type of a JSON value.
type Kind byte

// Constants defining the valid Kind values.
const (
	Invalid Kind = iota // not a value
	Null                // constant: null
	Boolean             // constant: true or false
	Integer             // number that fits an int64, no fraction or exponent
	Double              // number with fraction and/or exponent, or too big for int64
	String              // quoted string
	Array               // [ ... ]
	Object              // { ... }
)

var kindStr = [...]string{
	Invalid: "invalid",
	Null:    "null",
	Boolean: "boolean",
	Integer: "integer",
	Double:  "double",
	String:  "string",
	Array:   "array",
	Object:  "object",
}

func (k Kind) String() string {
	v := int(k)
	if v >= len(kindStr) {
		return kindStr[Invalid]
	}
	return kindStr[v]
}

// A Value is a single node of a parsed JSON tree. Values are produced by Parse
// and are read-only; the accessors for a kind other than the value's own
// return a zero result. A nil *Value has kind Invalid, so the result of a
// failed Find may be queried without checking.
//
// Every buffer owned by a Value is exactly the size of its content. Strings
// carry one additional 0 byte after their content, which is not reported by
// Len, Bytes, or Text.
type Value struct {
	kind   Kind
	parent *Value
	loc    LineCol

	b   bool
	i   int64
	f   float64
	str []byte   // length+1 bytes, 0-terminated
	arr []*Value // len == cap == number of elements
	obj []Entry  // len == cap == number of members

	// All member names of an object, each followed by a 0 byte. The names of
	// obj are views of this buffer.
	names []byte

	extra []byte
}

// Fixed sizes charged to the memory quota for runtime-owned storage.
const (
	valueSize = int(unsafe.Sizeof(Value{}))
	refSize   = int(unsafe.Sizeof((*Value)(nil)))
	entrySize = int(unsafe.Sizeof(Entry{}))
)

// Kind reports the kind of v. A nil *Value has kind Invalid.
func (v *Value) Kind() Kind {
	if v == nil {
		return Invalid
	}
	return v.kind
}

// Parent returns the array or object containing v, or nil if v is a root.
func (v *Value) Parent() *Value {
	if v == nil {
		return nil
	}
	return v.parent
}

// Location returns the location of the first byte of v in the source text.
// It returns the zero LineCol unless the tree was parsed with TrackSource.
func (v *Value) Location() LineCol {
	if v == nil {
		return LineCol{}
	}
	return v.loc
}

// Extra returns the metadata bytes reserved for v by the ValueExtra setting.
// The host may read and write them freely; they are zero after parsing.
func (v *Value) Extra() []byte {
	if v == nil {
		return nil
	}
	return v.extra
}

// Bool returns the value of a Boolean.
func (v *Value) Bool() bool { return v.Kind() == Boolean && v.b }

// Int returns the value of an Integer.
func (v *Value) Int() int64 {
	if v.Kind() != Integer {
		return 0
	}
	return v.i
}

// Float returns the value of a Double, or an Integer converted to float64.
func (v *Value) Float() float64 {
	switch v.Kind() {
	case Double:
		return v.f
	case Integer:
		return float64(v.i)
	}
	return 0
}

// Len reports the number of decoded bytes of a String, the number of elements
// of an Array, or the number of members of an Object. Other kinds have length 0.
func (v *Value) Len() int {
	switch v.Kind() {
	case String:
		return len(v.str) - 1
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	}
	return 0
}

// Bytes returns the decoded contents of a String. The result is a view of the
// tree's storage and must not be modified.
func (v *Value) Bytes() []byte {
	if v.Kind() != String {
		return nil
	}
	return v.str[:len(v.str)-1 : len(v.str)-1]
}

// Text returns a copy of the decoded contents of a String.
func (v *Value) Text() string { return string(v.Bytes()) }

// Index returns the ith element of an Array. It panics if i is out of range,
// which includes any i for a value that is not an Array.
func (v *Value) Index(i int) *Value { return v.arr[i] }

// Values returns the elements of an Array in source order. The result is a
// view of the tree's storage and must not be modified.
func (v *Value) Values() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.arr
}

// Entries returns the members of an Object in source order, including
// members with duplicate names. The result must not be modified.
func (v *Value) Entries() []Entry {
	if v.Kind() != Object {
		return nil
	}
	return v.obj
}

// Find returns the value of the first member of an Object whose name equals
// key, or nil if there is none.
func (v *Value) Find(key string) *Value {
	for _, e := range v.Entries() {
		if string(e.name) == key {
			return e.value
		}
	}
	return nil
}

// FindAll returns the values of all members of an Object whose name equals
// key, in source order.
func (v *Value) FindAll(key string) []*Value {
	var out []*Value
	for _, e := range v.Entries() {
		if string(e.name) == key {
			out = append(out, e.value)
		}
	}
	return out
}

// An Entry is a single member of an Object.
type Entry struct {
	name  []byte // view into the object's name buffer, without terminator
	value *Value
}

// Name returns the decoded name of the member.
func (e Entry) Name() string { return string(e.name) }

// NameBytes returns the decoded name of the member as a view of the tree's
// storage. It must not be modified.
func (e Entry) NameBytes() []byte { return e.name }

// Value returns the value of the member.
func (e Entry) Value() *Value { return e.value }
