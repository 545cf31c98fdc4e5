package harness

import (
	"github.com/roach88/tagtree/internal/engine"
	"github.com/roach88/tagtree/internal/label"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int      `json:"step"` // 1-based index into the scenario's steps
	Op       string   `json:"op"`   // "intern", "union", "extend" or "mark"
	Seq      int64    `json:"seq,omitempty"`
	Position uint32   `json:"position,omitempty"`
	Operands []string `json:"operands,omitempty"`
	As       string   `json:"as,omitempty"`
	Result   string   `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held and replay reproduced the arena.
	Pass bool `json:"pass"`

	// Session is the token every op was recorded under.
	Session string `json:"session"`

	// Trace contains every step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Bindings maps every `as` name to the label it was bound to.
	Bindings map[string]label.Label `json:"bindings"`

	// Decoded holds the final decoding of every binding.
	Decoded map[string][]label.Range `json:"decoded"`

	// Stats describes the arena after the last step.
	Stats engine.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Bindings: make(map[string]label.Label),
		Decoded:  make(map[string][]label.Range),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
