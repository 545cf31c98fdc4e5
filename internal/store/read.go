package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tagtree/internal/ir"
)

const opColumns = `id, session, seq, kind, position, left_label, right_label, result, format_version`

// ReadOps returns every op with seq greater than afterSeq.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if there are no such ops.
func (s *Store) ReadOps(ctx context.Context, afterSeq int64) ([]ir.Op, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+opColumns+`
		FROM ops
		WHERE seq > ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	return collectOps(rows)
}

// ReadSessionOps returns the ops recorded under one session token.
func (s *Store) ReadSessionOps(ctx context.Context, session string) ([]ir.Op, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+opColumns+`
		FROM ops
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query session ops: %w", err)
	}
	return collectOps(rows)
}

// ReadOp retrieves a single op by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadOp(ctx context.Context, id string) (ir.Op, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+opColumns+`
		FROM ops
		WHERE id = ?
	`, id)
	return scanOp(row)
}

// LastSeq returns the highest seq in the op log, or 0 if it is empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ops`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOp(row rowScanner) (ir.Op, error) {
	var op ir.Op
	var kind string
	err := row.Scan(
		&op.ID,
		&op.Session,
		&op.Seq,
		&kind,
		&op.Position,
		&op.Left,
		&op.Right,
		&op.Result,
		&op.FormatVersion,
	)
	if err != nil {
		return ir.Op{}, err
	}
	op.Kind = ir.OpKind(kind)
	return op, nil
}

func collectOps(rows *sql.Rows) ([]ir.Op, error) {
	defer rows.Close()

	ops := []ir.Op{}
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan op: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ops: %w", err)
	}

	return ops, nil
}
