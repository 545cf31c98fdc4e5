package label

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnion_Absorption(t *testing.T) {
	tr := New()
	l := tr.Intern(9)
	ext := l.WithExtended()

	assert.Equal(t, l, tr.Union(l, Empty))
	assert.Equal(t, l, tr.Union(Empty, l))
	assert.Equal(t, ext, tr.Union(ext, Empty))
	assert.Equal(t, ext, tr.Union(Empty, ext))
	assert.Equal(t, Empty, tr.Union(Empty, Empty))
}

func TestUnion_Idempotent(t *testing.T) {
	tr := New()
	l := tr.Union(tr.Intern(2), tr.Intern(6))
	size := tr.Len()

	assert.Equal(t, l, tr.Union(l, l))
	assert.Equal(t, size, tr.Len())
}

func TestUnion_Coalescing(t *testing.T) {
	tr := New()
	l := tr.Union(tr.Intern(3), tr.Intern(4))
	assert.Equal(t, []Range{{Begin: 3, End: 5}}, tr.Decode(l))
}

func TestUnion_GapPreservation(t *testing.T) {
	tr := New()
	l := tr.Union(tr.Intern(3), tr.Intern(10))
	assert.Equal(t, []Range{{Begin: 3, End: 4}, {Begin: 10, End: 11}}, tr.Decode(l))
}

func TestUnion_StructuralSharing(t *testing.T) {
	tr := New()
	l1 := tr.Intern(0)
	l2 := tr.Union(l1, tr.Intern(1))

	assert.Equal(t, []Range{{Begin: 0, End: 2}}, tr.Decode(l2))
	assert.Contains(t, tr.Chain(l2), l1.ID(), "[0,1) must be shared, not rebuilt")
}

func TestUnion_Subset(t *testing.T) {
	tr := New()
	three := tr.Intern(3)
	both := tr.Union(three, tr.Intern(10))
	size := tr.Len()

	assert.Equal(t, both, tr.Union(three, both))
	assert.Equal(t, both, tr.Union(both, three))
	assert.Equal(t, size, tr.Len(), "absorbing a subset must not allocate")
}

func TestUnion_ReusesExistingUnion(t *testing.T) {
	tr := New()
	a, b := tr.Intern(3), tr.Intern(10)
	first := tr.Union(a, b)
	size := tr.Len()

	assert.Equal(t, first, tr.Union(b, a))
	assert.Equal(t, size, tr.Len())
}

func TestUnion_Commutative(t *testing.T) {
	pairs := [][2]uint32{{0, 1}, {1, 0}, {3, 4}, {3, 10}, {10, 3}, {0, 63}, {5, 6}, {1000, 2}}
	for _, p := range pairs {
		tr := New()
		a, b := tr.Intern(p[0]), tr.Intern(p[1])
		assert.Equal(t, tr.Decode(tr.Union(a, b)), tr.Decode(tr.Union(b, a)), "pair %v", p)
	}
}

func TestUnion_AttributePropagation(t *testing.T) {
	tr := New()
	a := tr.Intern(1)
	b := tr.Intern(5)

	plain := tr.Union(a, b)
	assert.False(t, plain.Extended())

	flagged := tr.Union(a.WithExtended(), b)
	assert.True(t, flagged.Extended())
	assert.Equal(t, plain.ID(), flagged.ID())
	assert.True(t, tr.Union(a, b.WithExtended()).Extended())
	assert.True(t, tr.Union(a.WithExtended(), b.WithExtended()).Extended())
}

func TestUnion_ExtendedEmpty(t *testing.T) {
	tr := New()
	a := tr.Intern(4)

	got := tr.Union(Empty.WithExtended(), a)
	assert.Equal(t, a.WithExtended(), got)
	assert.Equal(t, tr.Decode(a), tr.Decode(got))
}

func TestUnion_SameNodeDifferentAttribute(t *testing.T) {
	tr := New()
	a := tr.Intern(4)
	assert.Equal(t, a.WithExtended(), tr.Union(a, a.WithExtended()))
}

func TestUnion_UnknownLabelIsEmpty(t *testing.T) {
	tr := New()
	a := tr.Intern(4)
	assert.Equal(t, a, tr.Union(a, Label(1000)))
	assert.Equal(t, a, tr.Union(Label(1000), a))
}

func TestUnion_MarkPropagates(t *testing.T) {
	tr := New()
	a := tr.Intern(3)
	b := tr.Intern(10)
	require.True(t, tr.Mark(b))

	l := tr.Union(a, b)
	assert.Equal(t, []Range{{Begin: 3, End: 4}, {Begin: 10, End: 11, Marked: true}}, tr.Decode(l))

	n, _ := tr.Node(l.ID())
	assert.True(t, n.Seg.Mark)
}

func TestUnion_MarkSurvivesCoalescing(t *testing.T) {
	tr := New()
	a := tr.Intern(3)
	b := tr.Intern(4)
	require.True(t, tr.Mark(a))

	l := tr.Union(a, b)
	assert.Equal(t, []Range{{Begin: 3, End: 5, Marked: true}}, tr.Decode(l))
}

func TestUnion_Saturation(t *testing.T) {
	tr := New(WithCapacity(4))
	zero := tr.Intern(0)
	one := tr.Intern(1)
	require.True(t, tr.Saturated())

	assert.Equal(t, Empty, tr.Union(zero, one))
	assert.Equal(t, 4, tr.Len())

	// Fast paths need no allocation.
	assert.Equal(t, zero, tr.Union(zero, zero))
	assert.Equal(t, one, tr.Union(Empty, one))

	assert.Equal(t, []Range{{Begin: 0, End: 1}}, tr.Decode(zero))
	assert.Equal(t, []Range{{Begin: 1, End: 2}}, tr.Decode(one))
}

func TestUnion_FailedReplayKeepsExistingSets(t *testing.T) {
	tr := New(WithCapacity(6))
	three := tr.Intern(3)
	ten := tr.Intern(10)
	require.Equal(t, 5, tr.Len())

	// The gap [4,10) fits in the last free slot; the run [10,11) after it
	// does not.
	assert.Equal(t, Empty, tr.Union(three, ten))
	assert.Equal(t, 6, tr.Len())

	n, ok := tr.Node(three.ID())
	require.True(t, ok)
	assert.Equal(t, uint32(5), n.Left, "the new gap stays linked below {3}")

	assert.Equal(t, []Range{{Begin: 3, End: 4}}, tr.Decode(three))
	assert.Equal(t, []Range{{Begin: 10, End: 11}}, tr.Decode(ten))
	assert.Equal(t, three, tr.Intern(3))
	assert.Equal(t, ten, tr.Intern(10))
}

func TestUnion_Associative(t *testing.T) {
	tr := New()
	a, b, c := tr.Intern(2), tr.Intern(9), tr.Intern(3)

	left := tr.Union(tr.Union(a, b), c)
	right := tr.Union(a, tr.Union(b, c))
	assert.Equal(t, tr.Decode(left), tr.Decode(right))
	assert.Equal(t, []Range{{Begin: 2, End: 4}, {Begin: 9, End: 10}}, tr.Decode(left))
}

// TestUnion_MatchesSetModel folds random position sets through Intern and
// Union and compares every result against a plain sorted-set model.
func TestUnion_MatchesSetModel(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tr := New()

	type built struct {
		label Label
		set   map[uint32]bool
	}
	var pool []built

	for i := 0; i < 300; i++ {
		set := map[uint32]bool{}
		acc := Empty
		for n := rng.Intn(8); n > 0; n-- {
			p := uint32(rng.Intn(48))
			set[p] = true
			acc = tr.Union(acc, tr.Intern(p))
		}
		require.Equal(t, expectedRanges(set), tr.Decode(acc), "iteration %d", i)
		pool = append(pool, built{label: acc, set: set})
	}

	for i := 0; i < 300; i++ {
		x := pool[rng.Intn(len(pool))]
		y := pool[rng.Intn(len(pool))]

		merged := map[uint32]bool{}
		for p := range x.set {
			merged[p] = true
		}
		for p := range y.set {
			merged[p] = true
		}

		got := tr.Union(x.label, y.label)
		require.Equal(t, expectedRanges(merged), tr.Decode(got), "union %d", i)
		require.Equal(t, tr.Decode(got), tr.Decode(tr.Union(y.label, x.label)), "commuted union %d", i)

		for p := uint32(0); p < 48; p++ {
			require.Equal(t, merged[p], tr.Contains(got, p), "union %d contains %d", i, p)
		}
	}

	// Earlier labels are unaffected by everything built since.
	for i, b := range pool {
		require.Equal(t, expectedRanges(b.set), tr.Decode(b.label), "pool %d", i)
	}
}

func expectedRanges(set map[uint32]bool) []Range {
	if len(set) == 0 {
		return nil
	}
	var ps []uint32
	for p := range set {
		ps = append(ps, p)
	}
	slices.Sort(ps)

	var out []Range
	for _, p := range ps {
		if n := len(out); n > 0 && out[n-1].End == p {
			out[n-1].End++
			continue
		}
		out = append(out, Range{Begin: p, End: p + 1})
	}
	return out
}
