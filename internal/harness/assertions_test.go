package harness

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagtree/internal/engine"
	"github.com/roach88/tagtree/internal/label"
	"github.com/roach88/tagtree/internal/store"
	"github.com/roach88/tagtree/internal/testutil"
)

func u32(v uint32) *uint32 { return &v }
func intp(v int) *int { return &v }
func boolp(v bool) *bool { return &v }

// newAssertionContext builds a running engine holding
//
//	a = {3}, b = {4}, ab = {3,4}, c = {10}, abc = {3,4,10} with 10 marked
func newAssertionContext(t *testing.T) *AssertionContext {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng := engine.New(label.New(), st, testutil.NewFixedSessionGenerator(""),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	t.Cleanup(func() {
		eng.Stop()
		cancel()
		<-done
	})

	session := eng.NewSession()
	bindings := map[string]label.Label{EmptyName: label.Empty}

	intern := func(name string, pos uint32) {
		l, err := eng.Intern(ctx, session, pos)
		require.NoError(t, err)
		bindings[name] = l
	}
	union := func(name, x, y string) {
		l, err := eng.Union(ctx, session, bindings[x], bindings[y])
		require.NoError(t, err)
		bindings[name] = l
	}

	intern("a", 3)
	intern("b", 4)
	union("ab", "a", "b")
	intern("c", 10)
	union("abc", "ab", "c")
	ok, err := eng.Mark(ctx, session, bindings["abc"])
	require.NoError(t, err)
	require.True(t, ok)
	bindings["ax"] = bindings["a"].WithExtended()

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)

	return &AssertionContext{
		Ctx:      ctx,
		Engine:   eng,
		Store:    st,
		Bindings: bindings,
		Stats:    stats,
	}
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	actx := newAssertionContext(t)
	result := NewResult()

	assertions := []Assertion{
		{Type: AssertDecodesTo, Label: "ab", Ranges: [][]uint32{{3, 5}}},
		{Type: AssertDecodesTo, Label: "abc", Ranges: [][]uint32{{3, 5}, {10, 11}}},
		{Type: AssertDecodesTo, Label: EmptyName},
		{Type: AssertSameLabel, Label: "a", Other: "a"},
		{Type: AssertDistinctLabel, Label: "ab", Other: "abc"},
		{Type: AssertEmpty, Label: EmptyName},
		{Type: AssertExtended, Label: "ax"},
		{Type: AssertExtended, Label: "a", Value: boolp(false)},
		{Type: AssertContains, Label: "abc", Position: u32(10)},
		{Type: AssertContains, Label: "abc", Position: u32(7), Value: boolp(false)},
		{Type: AssertMarked, Label: "abc", Position: u32(10)},
		{Type: AssertChainIncludes, Label: "abc", Other: "ab"},
		{Type: AssertArenaSize, Count: intp(actx.Stats.Nodes)},
		{Type: AssertOpCount, Kind: "intern", Count: intp(3)},
		{Type: AssertOpCount, Kind: "union", Count: intp(2)},
		{Type: AssertOpCount, Kind: "mark", Count: intp(1)},
	}

	errors := EvaluateAssertions(result, assertions, actx)
	assert.Empty(t, errors)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	actx := newAssertionContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "decodes_to",
			assertion: Assertion{Type: AssertDecodesTo, Label: "abc", Ranges: [][]uint32{{3, 11}}},
			wantErr:   "abc decodes to {[3,11)}",
		},
		{
			name:      "same_label",
			assertion: Assertion{Type: AssertSameLabel, Label: "a", Other: "b"},
			wantErr:   "a == b",
		},
		{
			name:      "distinct_label",
			assertion: Assertion{Type: AssertDistinctLabel, Label: "ab", Other: "ab"},
			wantErr:   "ab != ab",
		},
		{
			name:      "empty",
			assertion: Assertion{Type: AssertEmpty, Label: "a"},
			wantErr:   "a is empty",
		},
		{
			name:      "extended",
			assertion: Assertion{Type: AssertExtended, Label: "ab"},
			wantErr:   "ab extended=true",
		},
		{
			name:      "contains",
			assertion: Assertion{Type: AssertContains, Label: "ab", Position: u32(10)},
			wantErr:   "10 in ab is true",
		},
		{
			name:      "marked",
			assertion: Assertion{Type: AssertMarked, Label: "abc", Position: u32(3)},
			wantErr:   "containing 3 is marked",
		},
		{
			name:      "chain_includes",
			assertion: Assertion{Type: AssertChainIncludes, Label: "a", Other: "c"},
			wantErr:   "on the chain of a",
		},
		{
			name:      "arena_size",
			assertion: Assertion{Type: AssertArenaSize, Count: intp(actx.Stats.Nodes + 1)},
			wantErr:   "Assertion failed: arena_size",
		},
		{
			name:      "op_count",
			assertion: Assertion{Type: AssertOpCount, Kind: "union", Count: intp(5)},
			wantErr:   "2 union ops of 6 total",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := EvaluateAssertions(NewResult(), []Assertion{tt.assertion}, actx)
			require.Len(t, errors, 1)
			assert.Contains(t, errors[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	actx := newAssertionContext(t)

	assertions := []Assertion{
		{Type: AssertContains, Label: "a", Position: u32(3)}, // Should pass
		{Type: AssertContains, Label: "a", Position: u32(4)}, // Should fail - 4 is in b
		{Type: AssertOpCount, Kind: "mark", Count: intp(0)},  // Should fail - abc was marked
	}

	errors := EvaluateAssertions(NewResult(), assertions, actx)
	require.Len(t, errors, 2)
	assert.Contains(t, errors[0], "4 in a")
	assert.Contains(t, errors[1], "1 mark ops")
}

func TestEvaluateAssertions_CountFailuresIncludeTrace(t *testing.T) {
	actx := newAssertionContext(t)

	result := NewResult()
	result.AddTrace(TraceEvent{Step: 1, Op: "intern", Position: 3, As: "a", Result: "2", Seq: 1})

	errors := EvaluateAssertions(result, []Assertion{
		{Type: AssertArenaSize, Count: intp(1)},
		{Type: AssertOpCount, Kind: "intern", Count: intp(0)},
	}, actx)
	require.Len(t, errors, 2)
	for _, msg := range errors {
		assert.Contains(t, msg, "Full trace:")
		assert.Contains(t, msg, "[1] intern 3 = 2")
	}
	assert.Contains(t, errors[1], "3 intern ops of 6 total")
}

func TestEvaluateAssertions_OpCountEmptyLog(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	actx := newAssertionContext(t)
	actx.Store = st

	errors := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertOpCount, Kind: "union", Count: intp(0)}}, actx)
	assert.Empty(t, errors)

	errors = EvaluateAssertions(NewResult(), []Assertion{{Type: AssertOpCount, Kind: "union", Count: intp(1)}}, actx)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "0 union ops of 0 total")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	actx := newAssertionContext(t)

	assertions := []Assertion{
		{Type: "unknown_assertion_type"},
	}

	errors := EvaluateAssertions(NewResult(), assertions, actx)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "unknown assertion type")
}

func TestEvaluateAssertions_WithoutContext_Fail(t *testing.T) {
	errors := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertEmpty, Label: "a"}}, nil)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "requires an engine context")
}

func TestEvaluateAssertions_OpCountWithoutStore_Fail(t *testing.T) {
	actx := newAssertionContext(t)
	actx.Store = nil

	errors := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertOpCount, Kind: "intern", Count: intp(3)}}, actx)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "op_count requires a store")
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	trace := []TraceEvent{
		{Step: 1, Op: "intern", Position: 3, As: "a", Result: "2", Seq: 1},
		{Step: 2, Op: "union", Operands: []string{"a", "b"}, As: "ab", Result: "5", Seq: 2},
	}

	err := &AssertionError{
		Type:     "decodes_to",
		Expected: "ab decodes to {[3,5)}",
		Actual:   "{[3,4)}",
		Trace:    trace,
	}

	errorStr := err.Error()
	assert.Contains(t, errorStr, "Assertion failed: decodes_to")
	assert.Contains(t, errorStr, "Expected: ab decodes to {[3,5)}")
	assert.Contains(t, errorStr, "Actual: {[3,4)}")
	assert.Contains(t, errorStr, "Full trace:")
	assert.Contains(t, errorStr, "[1] intern 3 = 2")
	assert.Contains(t, errorStr, "[2] union a, b = 5")
}

func TestFormatRanges(t *testing.T) {
	assert.Equal(t, "{}", formatRanges(nil))
	assert.Equal(t, "{[3,5) [10,11)*}", formatRanges([]label.Range{
		{Begin: 3, End: 5},
		{Begin: 10, End: 11, Marked: true},
	}))
}
