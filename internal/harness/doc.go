// Package harness provides conformance testing for the label arena.
//
// The harness loads YAML scenarios, runs their steps through a live
// engine.Engine backed by an in-memory op log, and evaluates assertions
// against the labels the steps produced.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: coalescing_union
//	description: "Adjacent singletons coalesce into one run"
//	capacity: 64            # optional, defaults to label.MaxCapacity
//	session: golden-session # optional
//	steps:
//	  - intern: 3
//	    as: a
//	  - intern: 4
//	    as: b
//	  - union: [a, b]
//	    as: ab
//	  - extend: ab
//	    as: abx
//	  - mark: ab
//	assertions:
//	  - type: decodes_to
//	    label: ab
//	    ranges: [[3, 5]]
//	  - type: contains
//	    label: ab
//	    position: 7
//	    value: false
//
// The name "empty" is predeclared and bound to the empty label.
//
// # Assertion Types
//
//   - decodes_to: the label decodes to exactly the given ranges
//   - same_label, distinct_label: two bindings hold equal or different labels
//   - empty: the label is the empty set
//   - extended: the extended attribute is set (or not, with value: false)
//   - contains: the label's set holds a position
//   - marked: the range holding a position is marked
//   - chain_includes: one label's node is shared by another label's chain
//   - arena_size: the arena holds exactly count nodes
//   - op_count: the op log holds count ops of a kind
//
// # Deterministic Testing
//
// Every scenario runs with a deterministic clock and a fixed session token
// in a fresh in-memory SQLite database. After the assertions the op log is
// replayed into a new arena, which must match the engine's node for node.
// Traces are therefore identical across runs and can be compared against
// golden files with RunWithGolden.
package harness
