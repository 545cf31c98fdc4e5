package label

import "math"

// Union returns the label of the union of the sets named by a and b. The
// result is extended when either input is.
//
// The two chains are climbed together until they meet at their nearest
// common tagged run. Runs seen on the way are collected and then replayed
// in ascending order on top of the common run, coalescing runs that overlap
// or abut the current tail so that existing nodes are extended rather than
// duplicated.
//
// Union returns Empty if the arena fills up during the replay. Nodes built
// before that point remain in the arena.
func (t *Tree) Union(a, b Label) Label {
	if a == Empty {
		return b
	}
	if b == Empty || a == b {
		return a
	}

	extended := a.Extended() || b.Extended()
	l1, l2 := a.ID(), b.ID()
	if !t.known(l1) {
		return b
	}
	if !t.known(l2) {
		return a
	}
	if l1 > l2 {
		l1, l2 = l2, l1
	}

	pending := t.divergentRuns(&l1, &l2)

	tail := l2
	if l1 != root {
		tail = l1
	}

	tail, ok := t.replay(tail, pending)
	if !ok {
		return Empty
	}

	out := Label(tail)
	if extended {
		out = out.WithExtended()
	}
	return out
}

// divergentRuns climbs ChainParent from both l1 and l2 until they are equal
// or l1 reaches the root. Begins never increase toward the root, so the side
// with the greater begin cannot be an ancestor of the other and is the one
// that advances.
//
// The returned stack holds copies of every run passed on the way, with
// strictly decreasing begins. A run whose begin equals the previously
// collected one is folded into it.
func (t *Tree) divergentRuns(l1, l2 *uint32) []Segment {
	var stack []Segment
	lastBegin := uint32(math.MaxUint32)

	collect := func(seg Segment) {
		if seg.Begin < lastBegin {
			stack = append(stack, seg)
			lastBegin = seg.Begin
			return
		}
		top := &stack[len(stack)-1]
		top.End = max(top.End, seg.End)
		top.Mark = top.Mark || seg.Mark
	}

	for *l1 != root && *l1 != *l2 {
		n1, n2 := t.nodes[*l1], t.nodes[*l2]
		if n1.Seg.Begin < n2.Seg.Begin {
			collect(n2.Seg)
			*l2 = n2.ChainParent
		} else {
			collect(n1.Seg)
			*l1 = n1.ChainParent
		}
	}
	return stack
}

// replay pops runs off pending (ascending begin order) and appends them to
// tail. A run that reaches back to the tail's end extends the tail's tagged
// run; otherwise the gap is consumed as an untagged run first and the new
// tagged run is chained to the previous tail.
func (t *Tree) replay(tail uint32, pending []Segment) (uint32, bool) {
	ok := true
	for i := len(pending) - 1; i >= 0; i-- {
		seg := pending[i]
		cur := t.nodes[tail].Seg

		if cur.End >= seg.Begin {
			if seg.End > cur.End {
				tail, ok = t.extendTagged(tail, seg.End-cur.End, tail)
			}
		} else {
			prev := tail
			tail, ok = t.extendUntagged(tail, seg.Begin-cur.End, prev)
			if ok {
				tail, ok = t.extendTagged(tail, seg.Len(), prev)
			}
		}
		if !ok {
			return root, false
		}

		if seg.Mark {
			t.nodes[tail].Seg.Mark = true
		}
	}
	return tail, true
}
