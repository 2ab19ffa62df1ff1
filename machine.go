// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"fmt"
	"unsafe"

	"go4.org/mem"
)

// A pass identifies which traversal of the input the parser is making.
type pass byte

const (
	counting pass = iota // validate the input and size every value
	building             // allocate exact payloads and fill them
)

func (ps pass) String() string {
	if ps == counting {
		return "counting"
	}
	return "building"
}

// state is the structural position of the parser between tokens.
type state byte

const (
	stValue       state = iota // a value is required
	stArrayFirst               // after "[": a value or "]"
	stArrayElem                // after "," in an array: a value
	stArrayNext                // after an element: "," or "]"
	stMemberFirst              // after "{": a key or "}"
	stMemberKey                // after "," in an object: a key
	stColon                    // after a key: ":"
	stMemberNext               // after a member value: "," or "}"
	stDone                     // the root value is complete
)

// token is the multi-byte token being scanned, if any.
type token byte

const (
	tokNone         token = iota
	tokString             // string value
	tokKey                // member name
	tokNumber             // number; see numScan
	tokLineComment        // "// ..."
	tokBlockComment       // "/* ... */"
)

// A shell records what the counting pass learned about one value. Shells are
// kept in construction order, which is the same in both passes.
type shell struct {
	kind   Kind
	parent int     // index of the containing shell, or -1 for the root
	length int     // decoded bytes of a string, elements of an array, or members of an object
	loc    LineCol // set only if TrackSource is enabled
	extra  []byte  // host metadata, until it is handed to the value

	names    int // total bytes of packed member names, counted in the counting pass
	nameFill int // bytes of packed member names written so far in the building pass
}

// shellSize is charged to the quota for each shell, along with the value it
// becomes.
const shellSize = int(unsafe.Sizeof(shell{}))

// strScan is the state of a string or member name being scanned.
type strScan struct {
	n   int    // decoded bytes so far
	buf []byte // destination in the building pass, with room for a terminator
}

// A parser holds the state of one call to Parse. It runs the same state
// machine once per pass; the only differences between passes are in
// newValue, next, endString, endNumber, and the put methods.
type parser struct {
	set  *Settings
	q    quota
	src  mem.RO
	pass pass

	pos       int // offset of the current byte
	line      int // current line, 1-based
	lineStart int // offset of the first byte of the current line

	shells []shell
	nodes  []Value // building pass only, parallel to shells
	built  int     // number of shells resolved to nodes
	top    int     // index of the innermost incomplete value, or -1

	state state
	tok   token
	str   strScan
	num   numScan
}

// run makes one complete pass over the input.
func (p *parser) run(ps pass) error {
	p.pass = ps
	p.pos, p.line, p.lineStart = 0, 1, 0
	p.top = -1
	p.state, p.tok = stValue, tokNone
	if ps == building {
		p.nodes = make([]Value, len(p.shells)) // charged in the counting pass
		p.built = 0
	}

	for p.pos < p.src.Len() {
		n, err := p.step(p.src.At(p.pos))
		if err != nil {
			return err
		}
		p.advance(n)
	}
	if err := p.atEOF(); err != nil {
		return err
	}
	if ps == building && p.built != len(p.shells) {
		return p.mismatch()
	}
	return nil
}

// advance moves past n bytes of input, keeping track of line boundaries.
func (p *parser) advance(n int) {
	for end := p.pos + n; p.pos < end; p.pos++ {
		if p.src.At(p.pos) == '\n' {
			p.line++
			p.lineStart = p.pos + 1
		}
	}
}

// peek returns the byte k positions past the current one, or -1 at the end of
// the input.
func (p *parser) peek(k int) int {
	if i := p.pos + k; i < p.src.Len() {
		return int(p.src.At(i))
	}
	return -1
}

// step processes the byte b at the current position. It reports how many
// bytes to advance: 0 means b must be examined again in the new state.
func (p *parser) step(b byte) (int, error) {
	switch p.tok {
	case tokString, tokKey:
		return p.scanString(b)
	case tokNumber:
		return p.scanNumber(b)
	case tokLineComment:
		if b == '\n' || b == '\r' {
			p.tok = tokNone
			return 0, nil
		}
		return 1, nil
	case tokBlockComment:
		if b == '*' && p.peek(1) == '/' {
			p.tok = tokNone
			return 2, nil
		}
		return 1, nil
	}
	return p.structural(b)
}

// structural handles a byte between tokens.
func (p *parser) structural(b byte) (int, error) {
	if isSpace(b) {
		return 1, nil
	} else if b == '/' && p.set.AllowComments {
		return p.openComment()
	}

	switch p.state {
	case stDone:
		return 0, p.syntaxf("trailing garbage %q", b)

	case stValue:
		return p.beginValue(b)

	case stArrayFirst:
		if b == ']' {
			return 1, p.endContainer()
		}
		return p.beginValue(b)

	case stArrayElem:
		if b == ']' && p.set.AllowTrailingCommas {
			return 1, p.endContainer()
		}
		return p.beginValue(b)

	case stArrayNext:
		switch b {
		case ',':
			p.state = stArrayElem
			return 1, nil
		case ']':
			return 1, p.endContainer()
		}
		return 0, p.syntaxf("expected , or ] before %q", b)

	case stMemberFirst, stMemberKey:
		if b == '"' {
			p.beginKey()
			return 1, nil
		} else if b == '}' && (p.state == stMemberFirst || p.set.AllowTrailingCommas) {
			return 1, p.endContainer()
		}
		return 0, p.syntaxf("unexpected %q in object", b)

	case stColon:
		if b == ':' {
			p.state = stValue
			return 1, nil
		}
		return 0, p.syntaxf("expected : before %q", b)

	case stMemberNext:
		switch b {
		case ',':
			p.state = stMemberKey
			return 1, nil
		case '}':
			return 1, p.endContainer()
		}
		return 0, p.syntaxf("expected , or } before %q", b)
	}
	panic(fmt.Sprintf("invalid parser state %d", p.state))
}

// openComment handles a "/" between tokens when comments are enabled.
func (p *parser) openComment() (int, error) {
	switch c := p.peek(1); c {
	case '/':
		p.tok = tokLineComment
		return 2, nil
	case '*':
		p.tok = tokBlockComment
		return 2, nil
	case -1:
		return 0, p.syntaxAt(p.pos+1, "unexpected EOF in comment opening sequence")
	default:
		return 0, p.syntaxAt(p.pos+1, "unexpected %q in comment opening sequence", byte(c))
	}
}

// beginValue handles the first byte of a value.
func (p *parser) beginValue(b byte) (int, error) {
	switch b {
	case '{':
		p.state = stMemberFirst
		return 1, p.newValue(Object)
	case '[':
		p.state = stArrayFirst
		return 1, p.newValue(Array)
	case '"':
		if err := p.newValue(String); err != nil {
			return 0, err
		}
		p.tok = tokString
		p.str = strScan{}
		if p.pass == building {
			p.str.buf = p.nodes[p.top].str
		}
		return 1, nil
	case 't':
		return p.literal("true", Boolean, true)
	case 'f':
		return p.literal("false", Boolean, false)
	case 'n':
		return p.literal("null", Null, false)
	}
	if b == '-' || isDigit(b) {
		if err := p.newValue(Integer); err != nil {
			return 0, err
		}
		p.tok = tokNumber
		p.num = numScan{start: p.pos}
		return 0, nil // the number scanner consumes b
	}
	return 0, p.syntaxf("unexpected %q when seeking value", b)
}

// literal handles one of the constants true, false, and null.
func (p *parser) literal(word string, kind Kind, val bool) (int, error) {
	rest := p.src.SliceFrom(p.pos)
	if !mem.HasPrefix(rest, mem.S(word)) {
		n := 0
		for n < rest.Len() && isNameByte(rest.At(n)) {
			n++
		}
		return 0, p.syntaxf("unknown value %q", rest.SliceTo(max(n, 1)).StringCopy())
	}
	if err := p.newValue(kind); err != nil {
		return 0, err
	}
	if p.pass == building {
		p.nodes[p.top].b = val
	}
	return len(word), p.next()
}

// newValue begins a value of the given kind at the current position. In the
// counting pass it records a new shell and charges the value to the quota. In
// the building pass it resolves the next shell to its node and allocates the
// node's payload at the size the counting pass recorded.
func (p *parser) newValue(kind Kind) error {
	if p.pass == counting {
		if len(p.shells) >= maxCount {
			return p.resourceErr(ErrTooLong)
		}
		if err := p.q.reserve(valueSize + shellSize); err != nil {
			return p.resourceErr(err)
		}
		sh := shell{kind: kind, parent: p.top}
		if p.set.TrackSource {
			sh.loc = p.here()
		}
		if p.set.ValueExtra > 0 {
			buf, err := p.q.get(p.set.ValueExtra)
			if err != nil {
				return p.resourceErr(err)
			}
			clear(buf)
			sh.extra = buf
		}
		p.shells = append(p.shells, sh)
		p.top = len(p.shells) - 1
		return nil
	}

	if p.built >= len(p.shells) {
		return p.mismatch()
	}
	idx := p.built
	sh := &p.shells[idx]
	if sh.parent != p.top || (sh.kind != kind && !(kind == Integer && sh.kind == Double)) {
		return p.mismatch()
	}
	p.built++
	p.top = idx

	v := &p.nodes[idx]
	v.kind, v.loc = sh.kind, sh.loc
	v.extra, sh.extra = sh.extra, nil
	if sh.parent >= 0 {
		v.parent = &p.nodes[sh.parent]
	}

	switch sh.kind {
	case String:
		buf, err := p.q.get(sh.length + 1)
		if err != nil {
			return p.resourceErr(err)
		}
		v.str = buf
	case Array:
		if sh.length == 0 {
			break
		}
		if err := p.q.reserve(sh.length * refSize); err != nil {
			return p.resourceErr(err)
		}
		v.arr = make([]*Value, 0, sh.length)
	case Object:
		if sh.length == 0 {
			break
		}
		if err := p.q.reserve(sh.length * entrySize); err != nil {
			return p.resourceErr(err)
		}
		v.obj = make([]Entry, 0, sh.length)
		names, err := p.q.get(sh.names)
		if err != nil {
			return p.resourceErr(err)
		}
		v.names = names
	}
	return nil
}

// next completes the value at the top: it is linked into (or counted by) its
// container, and the container becomes the top. Completing the root ends the
// parse, apart from trailing whitespace and comments.
func (p *parser) next() error {
	cur := p.top
	par := p.shells[cur].parent
	if par < 0 {
		p.state = stDone
		return nil
	}

	sh := &p.shells[par]
	switch sh.kind {
	case Array:
		if p.pass == counting {
			if sh.length >= maxCount {
				return p.resourceErr(ErrTooLong)
			}
			sh.length++
		} else {
			pv := &p.nodes[par]
			if len(pv.arr) == cap(pv.arr) {
				return p.mismatch()
			}
			pv.arr = append(pv.arr, &p.nodes[cur])
		}
		p.state = stArrayNext

	case Object:
		// The member was counted (and its entry added) when its name ended.
		if p.pass == building {
			pv := &p.nodes[par]
			if len(pv.obj) == 0 {
				return p.mismatch()
			}
			pv.obj[len(pv.obj)-1].value = &p.nodes[cur]
		}
		p.state = stMemberNext

	default:
		return p.mismatch()
	}
	p.top = par
	return nil
}

// endContainer handles the close bracket of the array or object at the top.
func (p *parser) endContainer() error {
	if p.pass == building {
		v := &p.nodes[p.top]
		sh := &p.shells[p.top]
		if len(v.arr) != cap(v.arr) || len(v.obj) != cap(v.obj) || sh.nameFill != len(v.names) {
			return p.mismatch()
		}
	}
	return p.next()
}

// atEOF finishes a pass at the end of the input.
func (p *parser) atEOF() error {
	switch p.tok {
	case tokString, tokKey:
		return p.syntaxf("unexpected EOF in string")
	case tokBlockComment:
		return p.syntaxf("unexpected EOF in block comment")
	case tokLineComment:
		p.tok = tokNone
	case tokNumber:
		if !p.num.complete() {
			return p.syntaxf("unexpected EOF in number")
		} else if err := p.endNumber(); err != nil {
			return err
		}
	}
	if p.state != stDone {
		return p.syntaxf("unexpected end of input")
	}
	return nil
}

// here returns the location of the current byte.
func (p *parser) here() LineCol { return p.locAt(p.pos) }

// locAt returns the location of the byte at offset pos, which must not be
// separated from the current byte by a line break.
func (p *parser) locAt(pos int) LineCol {
	return LineCol{Line: p.line, Column: pos - p.lineStart + 1}
}

func (p *parser) syntaxf(msg string, args ...any) error {
	return p.syntaxAt(p.pos, msg, args...)
}

func (p *parser) syntaxAt(pos int, msg string, args ...any) error {
	return &SyntaxError{Location: p.locAt(pos), Message: fmt.Sprintf(msg, args...)}
}

func (p *parser) resourceErr(err error) error {
	return &ResourceError{Location: p.here(), err: err}
}

func (p *parser) mismatch() error {
	return fmt.Errorf("at %s: %w", p.here(), errPassMismatch)
}

func isSpace(b byte) bool    { return b == ' ' || b == '\r' || b == '\n' || b == '\t' }
func isDigit(b byte) bool    { return '0' <= b && b <= '9' }
func isNameByte(b byte) bool { return b >= 'a' && b <= 'z' }
