package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tagtree/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestOp creates an op with a content-addressed ID.
func createTestOp(session string, seq int64, kind ir.OpKind, result uint32) ir.Op {
	op := ir.Op{
		Session:       session,
		Seq:           seq,
		Kind:          kind,
		Position:      uint32(seq),
		Result:        result,
		FormatVersion: ir.FormatVersion,
	}
	op.ID = ir.MustOpID(op)
	return op
}
