package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tagtree/internal/ir"
)

// LatestSnapshot returns the snapshot with the highest seq, or nil if none
// has been written.
func (s *Store) LatestSnapshot(ctx context.Context) (*ir.Snapshot, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM snapshots
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	snap, err := s.ReadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReadSnapshot loads a snapshot and its nodes, ordered by node id.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (ir.Snapshot, error) {
	snap := ir.Snapshot{ID: id}
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, capacity, node_count FROM snapshots WHERE id = ?
	`, id).Scan(&snap.Seq, &snap.Capacity, &count)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, left_child, right_child, chain_parent, begin_pos, end_pos, mark
		FROM snapshot_nodes
		WHERE snapshot_id = ?
		ORDER BY node_id ASC
	`, id)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s nodes: %w", id, err)
	}
	defer rows.Close()

	snap.Nodes = make([]ir.SnapshotNode, 0, count)
	for rows.Next() {
		var n ir.SnapshotNode
		if err := rows.Scan(&n.ID, &n.Left, &n.Right, &n.ChainParent, &n.Begin, &n.End, &n.Mark); err != nil {
			return ir.Snapshot{}, fmt.Errorf("scan snapshot node: %w", err)
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return ir.Snapshot{}, fmt.Errorf("iterate snapshot nodes: %w", err)
	}

	if len(snap.Nodes) != count {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s: expected %d nodes, found %d", id, count, len(snap.Nodes))
	}

	return snap, nil
}
