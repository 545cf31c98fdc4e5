package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tagtree/internal/label"
)

// EmptyName is the predeclared binding for the empty set.
const EmptyName = "empty"

// Scenario defines a conformance scenario: a sequence of label operations
// and assertions about the labels they produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Capacity bounds the arena. Zero means label.MaxCapacity.
	Capacity int `yaml:"capacity,omitempty"`

	// Session is an optional fixed session token for deterministic logs.
	// If empty, defaults to testutil.DefaultSession.
	Session string `yaml:"session,omitempty"`

	// Steps are executed in order through the engine.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation. Exactly one of Intern, Union, Extend and Mark is
// set.
//
//	- intern: 3
//	  as: a
//	- union: [a, b]
//	  as: ab
//	- extend: ab
//	  as: abx
//	- mark: ab
type Step struct {
	// Intern is the position of a singleton set.
	Intern *uint32 `yaml:"intern,omitempty"`

	// Union names the two operands.
	Union []string `yaml:"union,omitempty"`

	// Extend names a label whose extended form is bound to As. It does not
	// touch the arena.
	Extend string `yaml:"extend,omitempty"`

	// Mark names a label whose last run is marked.
	Mark string `yaml:"mark,omitempty"`

	// As binds the step's result label to a name.
	As string `yaml:"as,omitempty"`
}

// Op returns the step's operation name.
func (s Step) Op() string {
	switch {
	case s.Intern != nil:
		return "intern"
	case s.Union != nil:
		return "union"
	case s.Extend != "":
		return "extend"
	case s.Mark != "":
		return "mark"
	default:
		return ""
	}
}

// Operands returns the binding names the step reads.
func (s Step) Operands() []string {
	switch s.Op() {
	case "union":
		return s.Union
	case "extend":
		return []string{s.Extend}
	case "mark":
		return []string{s.Mark}
	default:
		return nil
	}
}

// Assertion validates the final bindings and arena.
type Assertion struct {
	// Type specifies the assertion type:
	// - "decodes_to": Label decodes to exactly Ranges
	// - "same_label": Label and Other are bound to the same label
	// - "distinct_label": Label and Other are bound to different labels
	// - "empty": Label is the empty set
	// - "extended": Label's extended attribute equals Value (default true)
	// - "contains": Label contains Position iff Value (default true)
	// - "marked": the range of Label containing Position is marked
	// - "chain_includes": Other's node is on Label's chain
	// - "arena_size": the arena holds Count nodes
	// - "op_count": the op log holds Count ops of Kind
	Type string `yaml:"type"`

	// Label is the binding under test.
	Label string `yaml:"label,omitempty"`

	// Other is the second binding (same_label, distinct_label, chain_includes).
	Other string `yaml:"other,omitempty"`

	// Ranges are [begin, end) pairs (decodes_to).
	Ranges [][]uint32 `yaml:"ranges,omitempty"`

	// Position is the probe position (contains, marked).
	Position *uint32 `yaml:"position,omitempty"`

	// Value is the expected truth value (extended, contains).
	Value *bool `yaml:"value,omitempty"`

	// Count is the expected number (arena_size, op_count).
	Count *int `yaml:"count,omitempty"`

	// Kind is the op kind (op_count).
	Kind string `yaml:"kind,omitempty"`
}

// expect returns the assertion's Value, defaulting to true.
func (a Assertion) expect() bool {
	return a.Value == nil || *a.Value
}

// Assertion type constants.
const (
	AssertDecodesTo     = "decodes_to"
	AssertSameLabel     = "same_label"
	AssertDistinctLabel = "distinct_label"
	AssertEmpty         = "empty"
	AssertExtended      = "extended"
	AssertContains      = "contains"
	AssertMarked        = "marked"
	AssertChainIncludes = "chain_includes"
	AssertArenaSize     = "arena_size"
	AssertOpCount       = "op_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and that every name is bound
// before it is used.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Capacity < 0 || s.Capacity > label.MaxCapacity {
		return fmt.Errorf("capacity must be between 1 and %d (0 for the default)", label.MaxCapacity)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	bound := map[string]bool{EmptyName: true}
	for i, step := range s.Steps {
		if err := validateStep(i, step, bound); err != nil {
			return err
		}
		if step.As != "" {
			bound[step.As] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, bound); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step, bound map[string]bool) error {
	set := 0
	if step.Intern != nil {
		set++
	}
	if step.Union != nil {
		set++
	}
	if step.Extend != "" {
		set++
	}
	if step.Mark != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of intern, union, extend, mark is required", index)
	}

	if step.Union != nil && len(step.Union) != 2 {
		return fmt.Errorf("steps[%d]: union takes exactly two operands, got %d", index, len(step.Union))
	}

	switch step.Op() {
	case "extend":
		if step.As == "" {
			return fmt.Errorf("steps[%d]: extend requires as", index)
		}
	case "mark":
		if step.As != "" {
			return fmt.Errorf("steps[%d]: mark does not produce a label, remove as", index)
		}
	}

	if step.As == EmptyName {
		return fmt.Errorf("steps[%d]: %q is reserved", index, EmptyName)
	}

	for _, name := range step.Operands() {
		if !bound[name] {
			return fmt.Errorf("steps[%d]: %q is not bound by an earlier step", index, name)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, bound map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needLabel := func() error {
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for %s", index, a.Type)
		}
		if !bound[a.Label] {
			return fmt.Errorf("assertions[%d]: %q is not bound", index, a.Label)
		}
		return nil
	}
	needOther := func() error {
		if a.Other == "" {
			return fmt.Errorf("assertions[%d]: other is required for %s", index, a.Type)
		}
		if !bound[a.Other] {
			return fmt.Errorf("assertions[%d]: %q is not bound", index, a.Other)
		}
		return nil
	}
	needPosition := func() error {
		if a.Position == nil {
			return fmt.Errorf("assertions[%d]: position is required for %s", index, a.Type)
		}
		return nil
	}
	needCount := func() error {
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertDecodesTo:
		if err := needLabel(); err != nil {
			return err
		}
		for j, r := range a.Ranges {
			if len(r) != 2 || r[1] <= r[0] {
				return fmt.Errorf("assertions[%d]: ranges[%d] must be [begin, end] with end > begin", index, j)
			}
		}
	case AssertSameLabel, AssertDistinctLabel, AssertChainIncludes:
		if err := needLabel(); err != nil {
			return err
		}
		return needOther()
	case AssertEmpty, AssertExtended:
		return needLabel()
	case AssertContains, AssertMarked:
		if err := needLabel(); err != nil {
			return err
		}
		return needPosition()
	case AssertArenaSize:
		return needCount()
	case AssertOpCount:
		switch a.Kind {
		case "intern", "union", "mark":
		default:
			return fmt.Errorf("assertions[%d]: kind must be intern, union or mark for op_count", index)
		}
		return needCount()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
