package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/tagtree/internal/engine"
	"github.com/roach88/tagtree/internal/label"
	"github.com/roach88/tagtree/internal/store"
	"github.com/roach88/tagtree/internal/testutil"
)

// Harness runs one scenario against a live engine.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	tree     *label.Tree
	clock    *testutil.DeterministicClock
	session  string
	logger   *slog.Logger
	bindings map[string]label.Label
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock and session token, so two runs produce identical traces and op logs.
//
// Execution flow:
//  1. Create fresh in-memory database and arena
//  2. Start the engine loop
//  3. Execute steps in order, binding results
//  4. Evaluate assertions
//  5. Stop the engine and replay the op log, checking it rebuilds the arena
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	capacity := scenario.Capacity
	if capacity == 0 {
		capacity = label.MaxCapacity
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewDeterministicClock()
	tree := label.New(label.WithCapacity(capacity))
	eng := engine.New(tree, st, testutil.NewFixedSessionGenerator(scenario.Session),
		engine.WithClock(clock),
		engine.WithLogger(logger),
	)

	h := &Harness{
		store:    st,
		engine:   eng,
		tree:     tree,
		clock:    clock,
		session:  eng.NewSession(),
		logger:   logger,
		bindings: map[string]label.Label{EmptyName: label.Empty},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	result := NewResult()
	result.Session = h.session
	result, err = h.execute(ctx, scenario, result)

	eng.Stop()
	if runErr := <-done; runErr != nil && err == nil {
		err = fmt.Errorf("engine: %w", runErr)
	}
	if err != nil {
		return nil, err
	}

	if err := h.checkReplay(ctx, capacity, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) (*Result, error) {
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	for name, l := range h.bindings {
		if name == EmptyName {
			continue
		}
		d, err := h.engine.Decode(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		result.Bindings[name] = l
		result.Decoded[name] = d.Ranges
	}

	stats, err := h.engine.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	result.Stats = stats

	actx := &AssertionContext{
		Ctx:      ctx,
		Engine:   h.engine,
		Store:    h.store,
		Bindings: h.bindings,
		Stats:    stats,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeSteps runs every step through the engine.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		ev := TraceEvent{
			Step:     i + 1,
			Op:       step.Op(),
			Operands: step.Operands(),
			As:       step.As,
		}

		operands := make([]label.Label, len(ev.Operands))
		for j, name := range ev.Operands {
			l, ok := h.bindings[name]
			if !ok {
				return fmt.Errorf("step %d: %q is not bound", i+1, name)
			}
			operands[j] = l
		}

		var out label.Label
		switch ev.Op {
		case "intern":
			ev.Position = *step.Intern
			l, err := h.engine.Intern(ctx, h.session, ev.Position)
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			out = l
			ev.Result = l.String()

		case "union":
			l, err := h.engine.Union(ctx, h.session, operands[0], operands[1])
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			out = l
			ev.Result = l.String()

		case "extend":
			out = operands[0].WithExtended()
			ev.Result = out.String()

		case "mark":
			ok, err := h.engine.Mark(ctx, h.session, operands[0])
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			ev.Result = fmt.Sprintf("%t", ok)

		default:
			return fmt.Errorf("step %d: no operation", i+1)
		}

		if ev.Op != "extend" {
			ev.Seq = h.clock.Current()
		}
		if step.As != "" {
			h.bindings[step.As] = out
		}
		result.AddTrace(ev)

		h.logger.Info("step completed",
			"step", ev.Step,
			"op", ev.Op,
			"seq", ev.Seq,
			"result", ev.Result,
		)
	}
	return nil
}

// checkReplay rebuilds the arena from the op log and compares it with the
// arena the engine built.
func (h *Harness) checkReplay(ctx context.Context, capacity int, result *Result) error {
	replayed, err := engine.Replay(ctx, h.store, engine.ReplayOptions{Capacity: capacity})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	for _, m := range replayed.Mismatches {
		result.AddError("replay diverged: " + m.String())
	}
	if !slices.Equal(replayed.Tree.Nodes(), h.tree.Nodes()) {
		result.AddError(fmt.Sprintf("replay rebuilt %d nodes, engine holds %d with different contents",
			replayed.Tree.Len(), h.tree.Len()))
	}
	return nil
}
