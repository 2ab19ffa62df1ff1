// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

import (
	"math"
	"strconv"
)

// numPhase is the position of the number scanner within a numeric literal:
//
//	-? (0 | [1-9][0-9]*) (. [0-9]+)? ([eE] [+-]? [0-9]+)?
type numPhase byte

const (
	numSign      numPhase = iota // at the first byte: "-" or a digit
	numIntFirst                  // a digit of the integer part is required
	numInt                       // in the integer part
	numFracFirst                 // after ".": a digit is required
	numFrac                      // in the fraction
	numExpSign                   // after "e": a sign or a digit
	numExpFirst                  // after the exponent sign: a digit is required
	numExp                       // in the exponent
)

// numScan is the state of a number being scanned.
type numScan struct {
	phase numPhase
	start int    // offset of the first byte of the literal
	neg   bool   // a leading "-" was seen; applied to the final magnitude
	zero  bool   // the integer part begins with "0"
	float bool   // a fraction or exponent was seen
	mag   uint64 // magnitude of the integer part
	big   bool   // the integer part does not fit in mag
}

// complete reports whether the literal scanned so far is a valid number.
func (ns *numScan) complete() bool {
	return ns.phase == numInt || ns.phase == numFrac || ns.phase == numExp
}

func (ns *numScan) addDigit(b byte) {
	d := uint64(b - '0')
	if ns.big || ns.mag > (math.MaxUint64-d)/10 {
		ns.big = true
		return
	}
	ns.mag = ns.mag*10 + d
}

// kind reports the kind of the completed literal. An integer whose value does
// not fit in an int64 is promoted to Double.
func (ns *numScan) kind() Kind {
	if ns.float || ns.big {
		return Double
	} else if ns.neg && ns.mag <= 1<<63 {
		return Integer
	} else if !ns.neg && ns.mag <= math.MaxInt64 {
		return Integer
	}
	return Double
}

// int returns the value of a literal of kind Integer.
func (ns *numScan) int() int64 {
	if ns.neg {
		return -int64(ns.mag) // also correct for -1<<63
	}
	return int64(ns.mag)
}

// scanNumber handles one byte of a numeric literal. The first byte that
// cannot continue the literal ends it, and is examined again afterward.
func (p *parser) scanNumber(b byte) (int, error) {
	ns := &p.num
	switch ns.phase {
	case numSign:
		ns.phase = numIntFirst
		if b == '-' {
			ns.neg = true
			return 1, nil
		}
		return 0, nil

	case numIntFirst:
		if !isDigit(b) {
			return 0, p.syntaxf("expected digit after %q, got %q", '-', b)
		}
		ns.zero = b == '0'
		ns.addDigit(b)
		ns.phase = numInt
		return 1, nil

	case numInt:
		if isDigit(b) {
			if ns.zero {
				return 0, p.syntaxf("unexpected %q after leading 0", b)
			}
			ns.addDigit(b)
			return 1, nil
		}
		switch b {
		case '.':
			ns.float = true
			ns.phase = numFracFirst
			return 1, nil
		case 'e', 'E':
			ns.float = true
			ns.phase = numExpSign
			return 1, nil
		}

	case numFracFirst:
		if !isDigit(b) {
			return 0, p.syntaxf("expected digit after decimal point, got %q", b)
		}
		ns.phase = numFrac
		return 1, nil

	case numFrac:
		if isDigit(b) {
			return 1, nil
		} else if b == 'e' || b == 'E' {
			ns.phase = numExpSign
			return 1, nil
		}

	case numExpSign:
		if b == '+' || b == '-' {
			ns.phase = numExpFirst
			return 1, nil
		}
		fallthrough

	case numExpFirst:
		if !isDigit(b) {
			return 0, p.syntaxf("expected digit in exponent, got %q", b)
		}
		ns.phase = numExp
		return 1, nil

	case numExp:
		if isDigit(b) {
			return 1, nil
		}
	}
	return 0, p.endNumber()
}

// endNumber completes the numeric literal ending at the current position.
func (p *parser) endNumber() error {
	p.tok = tokNone
	ns := &p.num
	kind := ns.kind()
	if p.pass == counting {
		p.shells[p.top].kind = kind
		return p.next()
	}

	v := &p.nodes[p.top]
	if kind != p.shells[p.top].kind {
		return p.mismatch()
	}
	v.kind = kind
	if kind == Integer {
		v.i = ns.int()
	} else {
		// The literal is known to be well-formed; a range error yields ±Inf,
		// which is kept.
		v.f, _ = strconv.ParseFloat(p.src.SliceTo(p.pos).SliceFrom(ns.start).StringCopy(), 64)
	}
	return p.next()
}
