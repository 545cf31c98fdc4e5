package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tagtree/internal/engine"
	"github.com/roach88/tagtree/internal/label"
	"github.com/roach88/tagtree/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", ev.Step, ev.Op, strings.Join(ev.Operands, ", "))
			if ev.Op == "intern" {
				fmt.Fprintf(&buf, "%d", ev.Position)
			}
			fmt.Fprintf(&buf, " = %s\n", ev.Result)
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions are evaluated against.
type AssertionContext struct {
	Ctx      context.Context
	Engine   *engine.Engine
	Store    *store.Store
	Bindings map[string]label.Label
	Stats    engine.Stats
}

func (actx *AssertionContext) decode(name string) (engine.Decoded, error) {
	l, ok := actx.Bindings[name]
	if !ok {
		return engine.Decoded{}, fmt.Errorf("%q is not bound", name)
	}
	return actx.Engine.Decode(actx.Ctx, l)
}

func formatRanges(rs []label.Range) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// assertDecodesTo compares the binding's ranges with the expected pairs.
// Marks are ignored.
func assertDecodesTo(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	d, err := actx.decode(a.Label)
	if err != nil {
		return err
	}

	want := make([]label.Range, len(a.Ranges))
	for i, r := range a.Ranges {
		want[i] = label.Range{Begin: r[0], End: r[1]}
	}
	got := make([]label.Range, len(d.Ranges))
	for i, r := range d.Ranges {
		got[i] = label.Range{Begin: r.Begin, End: r.End}
	}

	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDecodesTo,
		Expected: fmt.Sprintf("%s decodes to %s", a.Label, formatRanges(want)),
		Actual:   formatRanges(got),
		Trace:    trace,
	}
}

func assertSameLabel(actx *AssertionContext, a Assertion, same bool, trace []TraceEvent) error {
	l1, l2 := actx.Bindings[a.Label], actx.Bindings[a.Other]
	if (l1 == l2) == same {
		return nil
	}

	typ, relation := AssertSameLabel, "=="
	if !same {
		typ, relation = AssertDistinctLabel, "!="
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %s %s", a.Label, relation, a.Other),
		Actual:   fmt.Sprintf("%s=%s, %s=%s", a.Label, l1, a.Other, l2),
		Trace:    trace,
	}
}

func assertEmpty(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	l := actx.Bindings[a.Label]
	if l.IsEmpty() {
		return nil
	}
	return &AssertionError{
		Type:     AssertEmpty,
		Expected: fmt.Sprintf("%s is empty", a.Label),
		Actual:   fmt.Sprintf("%s=%s", a.Label, l),
		Trace:    trace,
	}
}

func assertExtended(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	l := actx.Bindings[a.Label]
	if l.Extended() == a.expect() {
		return nil
	}
	return &AssertionError{
		Type:     AssertExtended,
		Expected: fmt.Sprintf("%s extended=%t", a.Label, a.expect()),
		Actual:   fmt.Sprintf("%s=%s", a.Label, l),
		Trace:    trace,
	}
}

func assertContains(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	d, err := actx.decode(a.Label)
	if err != nil {
		return err
	}
	if d.Contains(*a.Position) == a.expect() {
		return nil
	}
	return &AssertionError{
		Type:     AssertContains,
		Expected: fmt.Sprintf("%d in %s is %t", *a.Position, a.Label, a.expect()),
		Actual:   formatRanges(d.Ranges),
		Trace:    trace,
	}
}

func assertMarked(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	d, err := actx.decode(a.Label)
	if err != nil {
		return err
	}
	pos := *a.Position
	for _, r := range d.Ranges {
		if pos >= r.Begin && pos < r.End && r.Marked {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertMarked,
		Expected: fmt.Sprintf("range of %s containing %d is marked", a.Label, pos),
		Actual:   formatRanges(d.Ranges),
		Trace:    trace,
	}
}

func assertChainIncludes(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	d, err := actx.decode(a.Label)
	if err != nil {
		return err
	}
	other := actx.Bindings[a.Other]
	if slices.Contains(d.Chain, other.ID()) {
		return nil
	}
	return &AssertionError{
		Type:     AssertChainIncludes,
		Expected: fmt.Sprintf("node %d (%s) on the chain of %s", other.ID(), a.Other, a.Label),
		Actual:   fmt.Sprintf("chain %v", d.Chain),
		Trace:    trace,
	}
}

func assertArenaSize(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	if actx.Stats.Nodes == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertArenaSize,
		Expected: fmt.Sprintf("%d nodes", *a.Count),
		Actual:   fmt.Sprintf("%d nodes (capacity %d)", actx.Stats.Nodes, actx.Stats.Capacity),
		Trace:    trace,
	}
}

// assertOpCount counts ops of one kind in the op log.
func assertOpCount(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	rows, err := actx.Store.Query(actx.Ctx,
		`SELECT COUNT(*), COALESCE(SUM(kind = ?), 0) FROM ops`, a.Kind)
	if err != nil {
		return fmt.Errorf("op_count: %w", err)
	}
	defer rows.Close()

	var total, n int
	if rows.Next() {
		if err := rows.Scan(&total, &n); err != nil {
			return fmt.Errorf("op_count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("op_count: %w", err)
	}

	if n == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOpCount,
		Expected: fmt.Sprintf("%d %s ops", *a.Count, a.Kind),
		Actual:   fmt.Sprintf("%d %s ops of %d total", n, a.Kind, total),
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		if actx == nil || actx.Engine == nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %s requires an engine context", i, a.Type))
			continue
		}

		switch a.Type {
		case AssertDecodesTo:
			err = assertDecodesTo(actx, a, result.Trace)
		case AssertSameLabel:
			err = assertSameLabel(actx, a, true, result.Trace)
		case AssertDistinctLabel:
			err = assertSameLabel(actx, a, false, result.Trace)
		case AssertEmpty:
			err = assertEmpty(actx, a, result.Trace)
		case AssertExtended:
			err = assertExtended(actx, a, result.Trace)
		case AssertContains:
			err = assertContains(actx, a, result.Trace)
		case AssertMarked:
			err = assertMarked(actx, a, result.Trace)
		case AssertChainIncludes:
			err = assertChainIncludes(actx, a, result.Trace)
		case AssertArenaSize:
			err = assertArenaSize(actx, a, result.Trace)
		case AssertOpCount:
			if actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: op_count requires a store", i)
			} else {
				err = assertOpCount(actx, a, result.Trace)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
