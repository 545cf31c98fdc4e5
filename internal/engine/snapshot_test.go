package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagtree/internal/ir"
	"github.com/roach88/tagtree/internal/label"
)

func TestSnapshotOf_RoundTrip(t *testing.T) {
	tree := label.New(label.WithCapacity(100))
	a := tree.Intern(3)
	b := tree.Intern(9)
	u := tree.Union(a, b)
	tree.Mark(u)

	snap, err := SnapshotOf(tree, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), snap.Seq)
	assert.Equal(t, 100, snap.Capacity)
	assert.Len(t, snap.Nodes, tree.Len())
	assert.Len(t, snap.ID, 64)

	restored, err := TreeFromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, tree.Nodes(), restored.Nodes())
	assert.Equal(t, 100, restored.Capacity())
	assert.Equal(t, tree.Decode(u), restored.Decode(u))
}

func TestTreeFromSnapshot_Rejects(t *testing.T) {
	tree := label.New()
	tree.Intern(2)

	tests := []struct {
		name   string
		mutate func(*ir.Snapshot)
		rehash bool
	}{
		{"id mismatch", func(s *ir.Snapshot) { s.ID = "deadbeef" }, false},
		{"misplaced node", func(s *ir.Snapshot) { s.Nodes[1].ID = 2 }, true},
		{"invalid arena", func(s *ir.Snapshot) { s.Nodes[2].End = s.Nodes[2].Begin }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := SnapshotOf(tree, 1)
			require.NoError(t, err)
			tt.mutate(&snap)
			if tt.rehash {
				snap.ID, err = ir.SnapshotID(snap)
				require.NoError(t, err)
			}

			_, err = TreeFromSnapshot(snap)
			assert.Error(t, err)
		})
	}
}
