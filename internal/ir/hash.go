package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOp       = "tagtree/op/v1"
	DomainSnapshot = "tagtree/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OpID computes the content-addressed ID of an op. The ID field itself is
// not part of the hash.
func OpID(op Op) (string, error) {
	obj := map[string]any{
		"session":  op.Session,
		"seq":      op.Seq,
		"kind":     string(op.Kind),
		"position": op.Position,
		"left":     op.Left,
		"right":    op.Right,
		"result":   op.Result,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("OpID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOp, canonical), nil
}

// SnapshotID computes the content-addressed ID of a snapshot from its
// capacity, seq and nodes.
func SnapshotID(s Snapshot) (string, error) {
	nodes := make([]any, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = []any{n.ID, n.Left, n.Right, n.ChainParent, n.Begin, n.End, n.Mark}
	}
	obj := map[string]any{
		"seq":      s.Seq,
		"capacity": s.Capacity,
		"nodes":    nodes,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SnapshotID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustOpID is like OpID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOpID(op Op) string {
	id, err := OpID(op)
	if err != nil {
		panic(err)
	}
	return id
}
