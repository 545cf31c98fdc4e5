package label

import "fmt"

// RestoreError reports why a persisted arena was rejected.
type RestoreError struct {
	Node   uint32
	Reason string
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore: node %d: %s", e.Node, e.Reason)
}

// Restore rebuilds a Tree from an arena previously obtained from Nodes.
// The nodes are checked before they are adopted:
//
//   - node 0 spans [0,0) and chains to itself
//   - the arena fits within the configured capacity
//   - every other node spans a non-empty run
//   - every link names a node in the arena
//   - each ChainParent begins strictly before its child
//
// The last rule guarantees that every chain walk terminates.
func Restore(nodes []Node, opts ...Option) (*Tree, error) {
	t := New(opts...)
	if len(nodes) == 0 {
		return nil, &RestoreError{Node: root, Reason: "arena is empty"}
	}
	if len(nodes) > t.capacity {
		return nil, &RestoreError{
			Node:   uint32(t.capacity),
			Reason: fmt.Sprintf("arena holds %d nodes, capacity is %d", len(nodes), t.capacity),
		}
	}
	if nodes[0].ChainParent != root || nodes[0].Seg != (Segment{}) {
		return nil, &RestoreError{Node: root, Reason: "root must span [0,0) and chain to itself"}
	}

	n := uint32(len(nodes))
	for i := uint32(1); i < n; i++ {
		nd := nodes[i]
		switch {
		case nd.Seg.End <= nd.Seg.Begin:
			return nil, &RestoreError{Node: i, Reason: fmt.Sprintf("empty segment [%d,%d)", nd.Seg.Begin, nd.Seg.End)}
		case nd.Left >= n || nd.Right >= n:
			return nil, &RestoreError{Node: i, Reason: "child out of range"}
		case nd.ChainParent >= n:
			return nil, &RestoreError{Node: i, Reason: "chain parent out of range"}
		case nd.ChainParent != root && nodes[nd.ChainParent].Seg.Begin >= nd.Seg.Begin:
			return nil, &RestoreError{Node: i, Reason: "chain parent does not precede node"}
		}
	}

	t.nodes = make([]Node, n, max(int(n), min(t.capacity, initialReserve)))
	copy(t.nodes, nodes)
	return t, nil
}
