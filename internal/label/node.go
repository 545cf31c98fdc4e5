package label

// root is the sentinel node. It represents the empty set, spans [0,0) and is
// its own chain ancestor.
const root uint32 = 0

// initialReserve bounds the up-front allocation of the node slice.
const initialReserve = 1 << 16

// Segment is the half-open run [Begin, End) covered by a node.
type Segment struct {
	Begin uint32
	End   uint32

	// Mark is sticky: once set it is never cleared.
	Mark bool
}

// Len returns the number of positions in the run.
func (s Segment) Len() uint32 {
	return s.End - s.Begin
}

// Node is one arena entry. Its id is its index in the arena.
type Node struct {
	// Left extends an untagged run; 0 when absent.
	Left uint32
	// Right extends a tagged run; 0 when absent.
	Right uint32
	// ChainParent is the nearest ancestor representing a tagged run, or
	// the root.
	ChainParent uint32

	Seg Segment
}

// Tree is the append-only node arena together with the insertion and union
// algorithms that operate on it.
type Tree struct {
	nodes    []Node
	capacity int
}

// Option configures a Tree.
type Option func(*Tree)

// WithCapacity sets the maximum number of nodes, the root included. Values
// are clamped to [1, MaxCapacity].
func WithCapacity(n int) Option {
	return func(t *Tree) {
		t.capacity = clampCapacity(n)
	}
}

func clampCapacity(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxCapacity {
		return MaxCapacity
	}
	return n
}

// New creates a Tree holding only the root sentinel.
func New(opts ...Option) *Tree {
	t := &Tree{capacity: MaxCapacity}
	for _, opt := range opts {
		opt(t)
	}
	t.nodes = make([]Node, 1, min(t.capacity, initialReserve))
	return t
}

// allocate appends a node spanning [begin, end) chained to chainParent.
// It returns false, without touching the arena, when the arena is full.
func (t *Tree) allocate(chainParent, begin, end uint32) (uint32, bool) {
	if len(t.nodes) >= t.capacity {
		return root, false
	}
	id := uint32(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		ChainParent: chainParent,
		Seg:         Segment{Begin: begin, End: end},
	})
	return id, true
}

// Len returns the number of nodes in the arena, the root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Capacity returns the arena ceiling.
func (t *Tree) Capacity() int {
	return t.capacity
}

// Saturated reports whether no further node can be allocated.
func (t *Tree) Saturated() bool {
	return len(t.nodes) >= t.capacity
}

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id uint32) (Node, bool) {
	if !t.known(id) {
		return Node{}, false
	}
	return t.nodes[id], true
}

// Nodes returns a copy of the whole arena, indexed by node id.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

func (t *Tree) known(id uint32) bool {
	return int(id) < len(t.nodes)
}
