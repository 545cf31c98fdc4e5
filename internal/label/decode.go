package label

import (
	"fmt"
	"slices"
)

// Range is a decoded run of member positions [Begin, End).
type Range struct {
	Begin  uint32 `json:"begin"`
	End    uint32 `json:"end"`
	Marked bool   `json:"marked,omitempty"`
}

func (r Range) String() string {
	if r.Marked {
		return fmt.Sprintf("[%d,%d)*", r.Begin, r.End)
	}
	return fmt.Sprintf("[%d,%d)", r.Begin, r.End)
}

// Decode returns the set named by l as ascending, non-overlapping ranges.
// Runs that abut are merged into one range whose Marked flag is the OR of
// its parts. Empty and unknown labels decode to nil.
func (t *Tree) Decode(l Label) []Range {
	var runs []Range
	for _, id := range t.Chain(l) {
		seg := t.nodes[id].Seg
		runs = append(runs, Range{Begin: seg.Begin, End: seg.End, Marked: seg.Mark})
	}
	slices.Reverse(runs)

	var out []Range
	for _, r := range runs {
		if n := len(out); n > 0 && r.Begin <= out[n-1].End {
			last := &out[n-1]
			last.End = max(last.End, r.End)
			last.Marked = last.Marked || r.Marked
			continue
		}
		out = append(out, r)
	}
	return out
}

// Chain returns the node ids on the tagged-run chain of l, from the label's
// own node up to but excluding the root.
func (t *Tree) Chain(l Label) []uint32 {
	id := l.ID()
	if !t.known(id) {
		return nil
	}
	var ids []uint32
	for id != root {
		ids = append(ids, id)
		id = t.nodes[id].ChainParent
	}
	return ids
}

// Contains reports whether pos is a member of the set named by l.
func (t *Tree) Contains(l Label, pos uint32) bool {
	for _, id := range t.Chain(l) {
		seg := t.nodes[id].Seg
		if pos >= seg.End {
			return false
		}
		if pos >= seg.Begin {
			return true
		}
	}
	return false
}

// Mark promotes the mark of the run l ends in. Unions that later absorb
// this run carry the mark over to their own tail. It returns false for
// empty and unknown labels.
func (t *Tree) Mark(l Label) bool {
	id := l.ID()
	if id == root || !t.known(id) {
		return false
	}
	t.nodes[id].Seg.Mark = true
	return true
}
