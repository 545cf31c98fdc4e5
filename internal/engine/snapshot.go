package engine

import (
	"context"
	"fmt"

	"github.com/roach88/tagtree/internal/ir"
	"github.com/roach88/tagtree/internal/label"
)

// snapshot copies the arena at the current seq and persists it when a
// store is attached.
// CRITICAL: Called only from Run() goroutine.
func (e *Engine) snapshot(ctx context.Context) (*ir.Snapshot, error) {
	snap, err := SnapshotOf(e.tree, e.clock.Current())
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeSnapshot, Message: "build snapshot", Err: err}
	}

	if e.store != nil {
		if err := e.store.WriteSnapshot(ctx, snap); err != nil {
			return nil, &RuntimeError{Code: ErrCodeSnapshot, Message: "store snapshot", Seq: snap.Seq, Err: err}
		}
	}

	e.logger.Info("snapshot taken",
		"snapshot_id", snap.ID,
		"seq", snap.Seq,
		"nodes", len(snap.Nodes),
	)
	return &snap, nil
}

// SnapshotOf copies tree into a content-addressed snapshot taken at seq.
func SnapshotOf(tree *label.Tree, seq int64) (ir.Snapshot, error) {
	nodes := tree.Nodes()
	snap := ir.Snapshot{
		Seq:      seq,
		Capacity: tree.Capacity(),
		Nodes:    make([]ir.SnapshotNode, len(nodes)),
	}
	for i, n := range nodes {
		snap.Nodes[i] = ir.SnapshotNode{
			ID:          uint32(i),
			Left:        n.Left,
			Right:       n.Right,
			ChainParent: n.ChainParent,
			Begin:       n.Seg.Begin,
			End:         n.Seg.End,
			Mark:        n.Seg.Mark,
		}
	}

	id, err := ir.SnapshotID(snap)
	if err != nil {
		return ir.Snapshot{}, err
	}
	snap.ID = id
	return snap, nil
}

// TreeFromSnapshot verifies snap's content address and rebuilds the arena.
func TreeFromSnapshot(snap ir.Snapshot) (*label.Tree, error) {
	want, err := ir.SnapshotID(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}
	if want != snap.ID {
		return nil, fmt.Errorf("snapshot %s: content does not match id (computed %s)", snap.ID, want)
	}

	nodes := make([]label.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		if n.ID != uint32(i) {
			return nil, fmt.Errorf("snapshot %s: node %d stored at position %d", snap.ID, n.ID, i)
		}
		nodes[i] = label.Node{
			Left:        n.Left,
			Right:       n.Right,
			ChainParent: n.ChainParent,
			Seg:         label.Segment{Begin: n.Begin, End: n.End, Mark: n.Mark},
		}
	}

	tree, err := label.Restore(nodes, label.WithCapacity(snap.Capacity))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
	}
	return tree, nil
}
