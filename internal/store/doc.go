// Package store provides SQLite-backed durable storage for tagtree arenas.
//
// The store holds two things:
//   - Ops: an append-only log of every mutating label operation (intern,
//     union, mark) together with the label it produced
//   - Snapshots: complete copies of an arena taken at a given seq
//
// Replaying the ops after the latest snapshot on top of that snapshot
// rebuilds the arena exactly, because allocation order is a pure function of
// the operation sequence.
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Every
// query that returns several rows includes ORDER BY seq ASC, id ASC COLLATE
// BINARY so results are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Op and snapshot IDs are computed by internal/ir using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
