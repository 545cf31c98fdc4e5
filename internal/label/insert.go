package label

import "math"

// Intern returns the label of the singleton set {pos}.
//
// The set is built from the root as an untagged run of length pos followed
// by a tagged run of length one. Interning the same position again reuses
// the existing nodes unless an intervening shorter untagged run has split
// the path.
//
// Intern returns Empty when the arena is full and for math.MaxUint32, whose
// run end cannot be represented.
func (t *Tree) Intern(pos uint32) Label {
	if pos == math.MaxUint32 {
		return Empty
	}
	cur, ok := t.extendUntagged(root, pos, root)
	if !ok {
		return Empty
	}
	cur, ok = t.extendTagged(cur, 1, root)
	if !ok {
		return Empty
	}
	return Label(cur)
}

// extendUntagged consumes count positions of gap starting at cur by walking
// Left edges. New nodes are chained to anchor, the last real tagged run.
//
// When an existing child is longer than what remains, a shorter node
// replaces it as cur.Left and the old child's Begin is advanced. The old
// child is not re-attached below the new node; its subtree stays valid for
// the labels that already reference it but is no longer reachable for
// reuse.
func (t *Tree) extendUntagged(cur uint32, count uint32, anchor uint32) (uint32, bool) {
	for count != 0 {
		next := t.nodes[cur].Left
		off := t.nodes[cur].Seg.End

		if next == root {
			id, ok := t.allocate(anchor, off, off+count)
			if !ok {
				return root, false
			}
			t.nodes[cur].Left = id
			return id, true
		}

		size := t.nodes[next].Seg.Len()
		if size > count {
			id, ok := t.allocate(anchor, off, off+count)
			if !ok {
				return root, false
			}
			t.nodes[cur].Left = id
			t.nodes[next].Seg.Begin = off + count
			return id, true
		}

		cur = next
		count -= size
	}
	return cur, true
}

// extendTagged consumes count positions of member run starting at cur by
// walking Right edges.
//
// A longer existing child is split: the new shorter node takes its place as
// cur.Right and adopts the old child as its own Right, and the old child is
// re-chained below the new node so every label through it still decodes to
// the same set.
//
// Once the walk has entered an existing tagged node, that node is the
// nearest tagged ancestor of anything created further down, so it replaces
// anchor.
func (t *Tree) extendTagged(cur uint32, count uint32, anchor uint32) (uint32, bool) {
	for count != 0 {
		next := t.nodes[cur].Right
		off := t.nodes[cur].Seg.End

		if next == root {
			id, ok := t.allocate(anchor, off, off+count)
			if !ok {
				return root, false
			}
			t.nodes[cur].Right = id
			return id, true
		}

		size := t.nodes[next].Seg.End - off
		if size > count {
			id, ok := t.allocate(anchor, off, off+count)
			if !ok {
				return root, false
			}
			t.nodes[cur].Right = id
			t.nodes[id].Right = next
			t.nodes[next].ChainParent = id
			t.nodes[next].Seg.Begin = off + count
			return id, true
		}

		cur = next
		anchor = next
		count -= size
	}
	return cur, true
}
