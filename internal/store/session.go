package store

import (
	"context"
	"fmt"
)

// SessionSummary describes the ops recorded under one session token.
type SessionSummary struct {
	Session  string `json:"session"`
	Ops      int    `json:"ops"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
}

// ListSessions returns one summary per session, ordered by the seq of the
// session's first op.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, COUNT(*), MIN(seq), MAX(seq)
		FROM ops
		GROUP BY session
		ORDER BY MIN(seq) ASC, session COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.Session, &sum.Ops, &sum.FirstSeq, &sum.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
