// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

// Free releases a tree returned by Parse with the default settings.
func Free(v *Value) { defaultSettings.Free(v) }

// Free releases a tree returned by Parse, returning its buffers to the
// Allocator of s, which must be the one that built the tree. The root v and
// all values reachable from it must not be used afterward. Freeing nil does
// nothing.
//
// The tree is walked depth-first without recursion: each container gives up
// its last remaining child until it is empty, and a value whose buffers have
// been released hands control back to its parent.
func (s *Settings) Free(v *Value) {
	if v == nil {
		return
	}
	a := s.allocator()
	root := v
	for {
		switch v.kind {
		case Array:
			if n := len(v.arr); n > 0 {
				child := v.arr[n-1]
				v.arr = v.arr[:n-1]
				if child != nil {
					v = child
				}
				continue
			}
			v.arr = nil

		case Object:
			if n := len(v.obj); n > 0 {
				child := v.obj[n-1].value
				v.obj = v.obj[:n-1]
				if child != nil {
					v = child
				}
				continue
			}
			v.obj = nil
			release(a, &v.names)

		case String:
			release(a, &v.str)
		}
		release(a, &v.extra)
		v.kind = Invalid

		if v == root {
			return
		}
		v = v.parent
	}
}

func release(a Allocator, buf *[]byte) {
	if *buf != nil {
		a.Free(*buf)
		*buf = nil
	}
}

// rollback releases everything granted during a failed parse. Shells are
// visited in allocation order; those already resolved to values in the
// building pass own their payloads, the others own at most their host
// metadata.
func (p *parser) rollback() {
	for i := range p.shells {
		p.q.put(p.shells[i].extra)
		p.shells[i].extra = nil
		if i < p.built {
			v := &p.nodes[i]
			p.q.put(v.str)
			p.q.put(v.names)
			p.q.put(v.extra)
			*v = Value{}
		}
	}
	p.shells, p.nodes, p.built = nil, nil, 0
}
