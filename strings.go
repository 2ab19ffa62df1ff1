// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"errors"
	"unicode/utf8"

	"github.com/creachadair/jalloc/internal/escape"
)

// beginKey starts scanning a member name of the object at the top. In the
// building pass the name is written into the object's packed name buffer,
// just after the names already written.
func (p *parser) beginKey() {
	p.tok = tokKey
	p.str = strScan{}
	if p.pass == building {
		v := &p.nodes[p.top]
		p.str.buf = v.names[p.shells[p.top].nameFill:]
	}
}

// scanString handles one byte inside a string or member name.
func (p *parser) scanString(b byte) (int, error) {
	switch {
	case b == '"':
		return 1, p.endString()
	case b == '\\':
		return p.scanEscape()
	case b < ' ':
		return 0, p.syntaxf("unescaped control %q in string", b)
	}
	return 1, p.putByte(b)
}

// scanEscape handles a complete escape sequence beginning at the current
// backslash, and reports its length in bytes.
func (p *parser) scanEscape() (int, error) {
	e := p.peek(1)
	if e < 0 {
		return 0, p.syntaxAt(p.pos+1, "unexpected EOF in string")
	}
	if c, ok := escape.Simple(byte(e)); ok {
		return 2, p.putByte(c)
	} else if e != 'u' {
		return 0, p.syntaxAt(p.pos+1, "invalid %q after escape", byte(e))
	}

	r, n, err := escape.DecodeUnicode(p.src.SliceFrom(p.pos + 2))
	if err != nil {
		var eerr *escape.Error
		if !errors.As(err, &eerr) {
			return 0, err
		}
		pos := p.pos + 2 + eerr.Offset
		if pos >= p.src.Len() {
			return 0, p.syntaxAt(pos, "unexpected EOF in string")
		}
		serr := p.syntaxAt(pos, "%s", eerr.Message).(*SyntaxError)
		serr.err = err
		return 0, serr
	}
	return 2 + n, p.putRune(r)
}

// endString handles the closing quotation mark of a string or member name.
func (p *parser) endString() error {
	isKey := p.tok == tokKey
	p.tok = tokNone
	n := p.str.n
	sh := &p.shells[p.top]

	if isKey {
		if p.pass == counting {
			if sh.length >= maxCount || sh.names > maxCount-(n+1) {
				return p.resourceErr(ErrTooLong)
			}
			sh.names += n + 1
			sh.length++
		} else {
			v := &p.nodes[p.top]
			if len(v.obj) == cap(v.obj) || n >= len(p.str.buf) {
				return p.mismatch()
			}
			p.str.buf[n] = 0
			v.obj = append(v.obj, Entry{name: p.str.buf[:n:n]})
			sh.nameFill += n + 1
		}
		p.state = stColon
		return nil
	}

	if p.pass == counting {
		sh.length = n
	} else {
		if n != sh.length {
			return p.mismatch()
		}
		p.str.buf[n] = 0
	}
	return p.next()
}

// putByte adds one decoded byte to the current string. The counting pass
// only counts it.
func (p *parser) putByte(b byte) error {
	if p.pass == counting {
		if p.str.n >= maxCount {
			return p.resourceErr(ErrTooLong)
		}
		p.str.n++
		return nil
	}
	if p.str.n >= len(p.str.buf)-1 {
		return p.mismatch()
	}
	p.str.buf[p.str.n] = b
	p.str.n++
	return nil
}

// putRune adds the UTF-8 encoding of r to the current string. The counting
// pass only counts its length.
func (p *parser) putRune(r rune) error {
	if r < utf8.RuneSelf {
		return p.putByte(byte(r))
	}
	w := utf8.RuneLen(r)
	if p.pass == counting {
		if p.str.n > maxCount-w {
			return p.resourceErr(ErrTooLong)
		}
		p.str.n += w
		return nil
	}
	if p.str.n+w > len(p.str.buf)-1 {
		return p.mismatch()
	}
	utf8.EncodeRune(p.str.buf[p.str.n:], r)
	p.str.n += w
	return nil
}
