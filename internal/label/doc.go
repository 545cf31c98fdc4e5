// Package label implements a canonical, structurally shared encoding of
// finite sets of non-negative integer positions.
//
// Each set is identified by a Label. Labels are minted by Intern, which
// builds the singleton {pos}, and by Union, which merges two existing
// labels. Nodes live in an append-only arena and are reused whenever an
// equal or overlapping run of positions has been built before, so memory
// grows with the number of distinct runs observed rather than with the
// number of sets created.
//
// # Node Model
//
// Every node carries two independent sets of links:
//
//   - Left/Right form the sharing tree. Left extends an untagged run (a
//     gap), Right extends a tagged run (members). Along any root-to-node
//     path each child begins where its parent ends.
//   - ChainParent points at the nearest tagged-run ancestor. Walking it
//     from a label to the root enumerates exactly the tagged runs of the
//     set, in descending offset order.
//
// Union only ever walks ChainParent; insertion only ever walks Left/Right.
//
// # Saturation
//
// The arena has a hard capacity. When it is full, operations that would
// need a new node return Empty instead of failing. A request that cannot be
// completed may still have appended nodes and linked them into the sharing
// tree, but it never changes what any existing label decodes to, and every
// previously returned label stays valid.
//
// # Concurrency
//
// A Tree performs unguarded mutation. Callers that share one Tree across
// goroutines must serialize all calls; internal/engine does this with a
// single-writer loop.
package label
