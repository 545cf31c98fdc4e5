package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tagtree/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario execution:
// the step trace, the final decoding of every binding and the arena size.
type TraceSnapshot struct {
	ScenarioName string
	Session      string
	Result       *Result
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, maps and slices.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Result.Trace))
	for i, event := range s.Result.Trace {
		eventMap := map[string]any{
			"step":   event.Step,
			"op":     event.Op,
			"result": event.Result,
		}
		if event.Seq > 0 {
			eventMap["seq"] = event.Seq
		}
		if event.Op == "intern" {
			eventMap["position"] = event.Position
		}
		if len(event.Operands) > 0 {
			eventMap["operands"] = event.Operands
		}
		if event.As != "" {
			eventMap["as"] = event.As
		}
		traceList[i] = eventMap
	}

	bindings := make(map[string]any, len(s.Result.Bindings))
	for name, l := range s.Result.Bindings {
		ranges := make([]string, 0, len(s.Result.Decoded[name]))
		for _, r := range s.Result.Decoded[name] {
			ranges = append(ranges, r.String())
		}
		bindings[name] = map[string]any{
			"label":  l.String(),
			"ranges": ranges,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"session":       s.Session,
		"trace":         traceList,
		"bindings":      bindings,
		"arena": map[string]any{
			"nodes":     s.Result.Stats.Nodes,
			"saturated": s.Result.Stats.Saturated,
		},
	}
}

// GoldenTrace renders a result as the canonical JSON stored in golden files.
func GoldenTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Session:      result.Session,
		Result:       result,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := GoldenTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
