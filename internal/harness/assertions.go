package harness

import (
	"fmt"
	"slices"
	"strings"
)

// Assertion validates one step outcome. Step indexes into the
// scenario's steps list.
type Assertion struct {
	// Type selects the assertion. See the Assert* constants.
	Type string `yaml:"type"`

	// Step is the index of the step whose outcome is checked.
	Step int `yaml:"step"`

	// Passed is the expected success flag (step_passed). Defaults true.
	Passed *bool `yaml:"passed,omitempty"`

	// Entities is the exact ranked order (ranked_order) or the required
	// members in any position (result_contains).
	Entities []string `yaml:"entities,omitempty"`

	// Nodes is the exact hop sequence expected from a path search.
	Nodes []string `yaml:"nodes,omitempty"`

	// Members must all appear together in one detected cycle.
	Members []string `yaml:"members,omitempty"`

	// Available is the expected availability flag.
	Available *bool `yaml:"available,omitempty"`

	// MinConfidence is an optional floor on availability confidence.
	MinConfidence float64 `yaml:"min_confidence,omitempty"`

	// Level is the expected impact level.
	Level string `yaml:"level,omitempty"`
}

// Assertion type constants.
const (
	AssertStepPassed     = "step_passed"
	AssertRankedOrder    = "ranked_order"
	AssertResultContains = "result_contains"
	AssertPathNodes      = "path_nodes"
	AssertNoPath         = "no_path"
	AssertCycleMembers   = "cycle_members"
	AssertAvailability   = "availability"
	AssertImpactLevel    = "impact_level"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Step     int
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s on step %d failed: expected %s, got %s",
		e.Type, e.Step, e.Expected, e.Actual)
}

func validateAssertion(index int, a *Assertion, stepCount int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step < 0 || a.Step >= stepCount {
		return fmt.Errorf("assertions[%d]: step %d out of range (have %d steps)", index, a.Step, stepCount)
	}

	switch a.Type {
	case AssertStepPassed, AssertNoPath:
		// No extra fields required.
	case AssertRankedOrder, AssertResultContains:
		if len(a.Entities) == 0 {
			return fmt.Errorf("assertions[%d]: entities list is required for %s", index, a.Type)
		}
	case AssertPathNodes:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for path_nodes", index)
		}
	case AssertCycleMembers:
		if len(a.Members) == 0 {
			return fmt.Errorf("assertions[%d]: members list is required for cycle_members", index)
		}
	case AssertAvailability:
		if a.Available == nil {
			return fmt.Errorf("assertions[%d]: available is required for availability", index)
		}
	case AssertImpactLevel:
		if a.Level == "" {
			return fmt.Errorf("assertions[%d]: level is required for impact_level", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// EvaluateAssertions checks every assertion against the step outcomes.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for i, assertion := range assertions {
		if assertion.Step < 0 || assertion.Step >= len(result.Outcomes) {
			errors = append(errors, fmt.Sprintf("assertions[%d]: step %d has no outcome", i, assertion.Step))
			continue
		}
		outcome := &result.Outcomes[assertion.Step]

		var err error
		switch assertion.Type {
		case AssertStepPassed:
			err = assertStepPassed(outcome, assertion)
		case AssertRankedOrder:
			err = assertRankedOrder(outcome, assertion)
		case AssertResultContains:
			err = assertResultContains(outcome, assertion)
		case AssertPathNodes:
			err = assertPathNodes(outcome, assertion)
		case AssertNoPath:
			err = assertNoPath(outcome, assertion)
		case AssertCycleMembers:
			err = assertCycleMembers(outcome, assertion)
		case AssertAvailability:
			err = assertAvailability(outcome, assertion)
		case AssertImpactLevel:
			err = assertImpactLevel(outcome, assertion)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func assertStepPassed(outcome *StepOutcome, a Assertion) error {
	if outcome.Eval == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "an evaluate outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	want := true
	if a.Passed != nil {
		want = *a.Passed
	}
	if outcome.Eval.Success != want {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("success=%v", want),
			Actual: fmt.Sprintf("success=%v (%d of %d passed)",
				outcome.Eval.Success, outcome.Eval.Report.Passed, outcome.Eval.Report.Evaluated)}
	}
	return nil
}

func assertRankedOrder(outcome *StepOutcome, a Assertion) error {
	if outcome.Query == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "a query outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	actual := matchedIDs(outcome.Query)
	if !slices.Equal(actual, a.Entities) {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("ranked order [%s]", strings.Join(a.Entities, " ")),
			Actual:   fmt.Sprintf("[%s]", strings.Join(actual, " "))}
	}
	return nil
}

func assertResultContains(outcome *StepOutcome, a Assertion) error {
	if outcome.Query == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "a query outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	actual := matchedIDs(outcome.Query)
	for _, want := range a.Entities {
		if !slices.Contains(actual, want) {
			return &AssertionError{Type: a.Type, Step: a.Step,
				Expected: fmt.Sprintf("result containing %s", want),
				Actual:   fmt.Sprintf("[%s]", strings.Join(actual, " "))}
		}
	}
	return nil
}

func assertPathNodes(outcome *StepOutcome, a Assertion) error {
	if !outcome.PathSearched {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "a find_path outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	if outcome.Path == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("path [%s]", strings.Join(a.Nodes, " -> ")),
			Actual:   "no path found"}
	}
	if !slices.Equal(outcome.Path.Nodes, a.Nodes) {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("path [%s]", strings.Join(a.Nodes, " -> ")),
			Actual:   fmt.Sprintf("path [%s]", strings.Join(outcome.Path.Nodes, " -> "))}
	}
	return nil
}

func assertNoPath(outcome *StepOutcome, a Assertion) error {
	if !outcome.PathSearched {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "a find_path outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	if outcome.Path != nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "no path",
			Actual:   fmt.Sprintf("path [%s]", strings.Join(outcome.Path.Nodes, " -> "))}
	}
	return nil
}

func assertCycleMembers(outcome *StepOutcome, a Assertion) error {
	if outcome.Analysis == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "an analyze outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	for _, cycle := range outcome.Analysis.Cycles {
		all := true
		for _, member := range a.Members {
			if !slices.Contains(cycle, member) {
				all = false
				break
			}
		}
		if all {
			return nil
		}
	}
	return &AssertionError{Type: a.Type, Step: a.Step,
		Expected: fmt.Sprintf("a cycle containing [%s]", strings.Join(a.Members, " ")),
		Actual:   fmt.Sprintf("%d cycle(s), none matching", len(outcome.Analysis.Cycles))}
}

func assertAvailability(outcome *StepOutcome, a Assertion) error {
	if outcome.Availability == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "a check_availability outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	if outcome.Availability.Available != *a.Available {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("available=%v", *a.Available),
			Actual:   fmt.Sprintf("available=%v (%s)", outcome.Availability.Available, outcome.Availability.Reason)}
	}
	if a.MinConfidence > 0 && outcome.Availability.Confidence < a.MinConfidence {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("confidence >= %.2f", a.MinConfidence),
			Actual:   fmt.Sprintf("confidence %.2f", outcome.Availability.Confidence)}
	}
	return nil
}

func assertImpactLevel(outcome *StepOutcome, a Assertion) error {
	if outcome.Analysis == nil {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: "an analyze outcome", Actual: fmt.Sprintf("%s outcome", outcome.Op)}
	}
	if string(outcome.Analysis.ImpactLevel) != a.Level {
		return &AssertionError{Type: a.Type, Step: a.Step,
			Expected: fmt.Sprintf("impact level %s", a.Level),
			Actual:   string(outcome.Analysis.ImpactLevel)}
	}
	return nil
}
