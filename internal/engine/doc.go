// Package engine serializes access to a label arena.
//
// A label.Tree is not safe for concurrent use. The engine owns one tree and
// applies every request from a single goroutine, so callers on any
// goroutine see a linear history of intern, union and mark operations.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
//  1. Callers submit requests to a FIFO queue and wait on a reply channel
//  2. Engine.Run() dequeues requests one at a time
//  3. apply() runs the request against the tree
//  4. Mutations are stamped with Clock.Next() and appended to the op log
//
// Replay:
// Allocation in the arena is a pure function of the operation sequence.
// Replay restores the latest snapshot and re-applies the later ops in seq
// order, then checks that every recorded label came out the same.
//
// Logical Clock:
// All ops are ordered by a monotonic seq counter. Wall-clock time is never
// used for ordering.
package engine
