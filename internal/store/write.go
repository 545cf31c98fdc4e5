package store

import (
	"context"
	"fmt"

	"github.com/roach88/tagtree/internal/ir"
)

// WriteOp appends an op to the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting the same op is
// silently ignored. A different op reusing an existing seq violates the
// UNIQUE constraint and returns an error.
func (s *Store) WriteOp(ctx context.Context, op ir.Op) error {
	if !op.Kind.Valid() {
		return fmt.Errorf("write op: invalid kind %q", op.Kind)
	}
	if op.ID == "" {
		return fmt.Errorf("write op: missing id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ops
		(id, session, seq, kind, position, left_label, right_label, result, format_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		op.ID,
		op.Session,
		op.Seq,
		string(op.Kind),
		op.Position,
		op.Left,
		op.Right,
		op.Result,
		op.FormatVersion,
	)
	if err != nil {
		return fmt.Errorf("write op: %w", err)
	}

	return nil
}

// WriteSnapshot stores a snapshot and all of its nodes in one transaction.
// Writing a snapshot whose ID already exists is a no-op.
func (s *Store) WriteSnapshot(ctx context.Context, snap ir.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("write snapshot: missing id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, seq, capacity, node_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, snap.ID, snap.Seq, snap.Capacity, len(snap.Nodes))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write snapshot: rows affected: %w", err)
	}
	if affected == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_nodes
		(snapshot_id, node_id, left_child, right_child, chain_parent, begin_pos, end_pos, mark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write snapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, n := range snap.Nodes {
		if _, err := stmt.ExecContext(ctx,
			snap.ID, n.ID, n.Left, n.Right, n.ChainParent, n.Begin, n.End, n.Mark,
		); err != nil {
			return fmt.Errorf("write snapshot: node %d: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: commit: %w", err)
	}

	return nil
}
