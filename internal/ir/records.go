package ir

import "fmt"

// OpKind names a mutating label operation.
type OpKind string

const (
	OpIntern OpKind = "intern"
	OpUnion  OpKind = "union"
	OpMark   OpKind = "mark"
)

// Valid reports whether k is a known kind.
func (k OpKind) Valid() bool {
	switch k {
	case OpIntern, OpUnion, OpMark:
		return true
	}
	return false
}

// Op is one entry of the append-only op log. Replaying every op in seq
// order against an empty arena rebuilds the arena exactly.
type Op struct {
	ID      string `json:"id"`
	Session string `json:"session"`
	Seq     int64  `json:"seq"`
	Kind    OpKind `json:"kind"`

	// Position is set for OpIntern.
	Position uint32 `json:"position,omitempty"`
	// Left and Right are the operand labels for OpUnion; Left alone is the
	// operand for OpMark.
	Left  uint32 `json:"left,omitempty"`
	Right uint32 `json:"right,omitempty"`

	// Result is the label the operation produced (for OpMark, 1 if the
	// mark was applied and 0 otherwise).
	Result uint32 `json:"result"`

	FormatVersion string `json:"format_version"`
}

func (op Op) String() string {
	switch op.Kind {
	case OpIntern:
		return fmt.Sprintf("#%d intern(%d) = %d", op.Seq, op.Position, op.Result)
	case OpUnion:
		return fmt.Sprintf("#%d union(%d, %d) = %d", op.Seq, op.Left, op.Right, op.Result)
	case OpMark:
		return fmt.Sprintf("#%d mark(%d) = %d", op.Seq, op.Left, op.Result)
	default:
		return fmt.Sprintf("#%d %s", op.Seq, op.Kind)
	}
}

// SnapshotNode is the persisted form of one arena node.
type SnapshotNode struct {
	ID          uint32 `json:"id"`
	Left        uint32 `json:"left"`
	Right       uint32 `json:"right"`
	ChainParent uint32 `json:"chain_parent"`
	Begin       uint32 `json:"begin"`
	End         uint32 `json:"end"`
	Mark        bool   `json:"mark"`
}

// Snapshot is a complete copy of an arena taken after the op with sequence
// number Seq was applied.
type Snapshot struct {
	ID       string         `json:"id"`
	Seq      int64          `json:"seq"`
	Capacity int            `json:"capacity"`
	Nodes    []SnapshotNode `json:"nodes"`
}
