package engine

import (
	"context"
	"fmt"

	"github.com/roach88/tagtree/internal/ir"
	"github.com/roach88/tagtree/internal/label"
	"github.com/roach88/tagtree/internal/store"
)

// ReplayOptions configures Replay.
type ReplayOptions struct {
	// Capacity is used when the log has no snapshot. A snapshot always
	// carries its own capacity.
	Capacity int

	// FromScratch ignores snapshot contents and re-applies the whole log.
	// The latest snapshot still supplies the capacity.
	FromScratch bool
}

// Mismatch is an op whose recorded result was not reproduced.
type Mismatch struct {
	Op  ir.Op  `json:"op"`
	Got uint32 `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: replay produced %d", m.Op, m.Got)
}

// ReplayResult is the outcome of rebuilding an arena from a store.
type ReplayResult struct {
	Tree       *label.Tree
	SnapshotID string     // empty when replay started from an empty arena
	Ops        int        // ops applied on top of the snapshot
	Mismatches []Mismatch // ops whose recorded result differs
	LastSeq    int64
}

// Deterministic reports whether every recorded result was reproduced.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Replay rebuilds the arena recorded in st: it restores the latest
// snapshot, if any, then re-applies every later op in seq order.
//
// Allocation order is a pure function of the op sequence, so replay
// reproduces every recorded label. Each op whose result differs is reported
// as a Mismatch. This is what happens when the log was written with a
// different capacity, or edited by hand.
func Replay(ctx context.Context, st *store.Store, opts ReplayOptions) (ReplayResult, error) {
	var res ReplayResult

	snap, err := st.LatestSnapshot(ctx)
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}

	var afterSeq int64
	if snap != nil && opts.FromScratch {
		opts.Capacity = snap.Capacity
		snap = nil
	}
	if snap != nil {
		res.Tree, err = TreeFromSnapshot(*snap)
		if err != nil {
			return res, fmt.Errorf("replay: %w", err)
		}
		res.SnapshotID = snap.ID
		afterSeq = snap.Seq
	} else {
		capacity := opts.Capacity
		if capacity == 0 {
			capacity = label.MaxCapacity
		}
		res.Tree = label.New(label.WithCapacity(capacity))
	}
	res.LastSeq = afterSeq

	ops, err := st.ReadOps(ctx, afterSeq)
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		got, err := applyOp(res.Tree, op)
		if err != nil {
			return res, fmt.Errorf("replay: %w", err)
		}
		if got != op.Result {
			res.Mismatches = append(res.Mismatches, Mismatch{Op: op, Got: got})
		}
		res.Ops++
		res.LastSeq = op.Seq
	}

	return res, nil
}

// applyOp re-executes a recorded op and returns its result in log form.
func applyOp(tree *label.Tree, op ir.Op) (uint32, error) {
	switch op.Kind {
	case ir.OpIntern:
		return uint32(tree.Intern(op.Position)), nil
	case ir.OpUnion:
		return uint32(tree.Union(label.Label(op.Left), label.Label(op.Right))), nil
	case ir.OpMark:
		if tree.Mark(label.Label(op.Left)) {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("op %s: unknown kind %q", op.ID, op.Kind)
	}
}
