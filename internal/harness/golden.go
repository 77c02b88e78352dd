package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/lore/internal/ir"
)

// TraceSnapshot is the canonical-JSON view of a scenario run used for
// golden file comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Seed         uint64       `json:"seed,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot to plain maps so it can pass
// through the canonical JSON serializer. Unset optional fields are
// omitted to keep golden files stable across zero values.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"op":  event.Op,
			"seq": event.Seq,
		}
		if event.EntityID != "" {
			eventMap["entity_id"] = event.EntityID
		}
		if event.Passed != nil {
			eventMap["passed"] = *event.Passed
		}
		if event.Available != nil {
			eventMap["available"] = *event.Available
		}
		if event.Matched != nil {
			eventMap["matched"] = event.Matched
		}
		if event.PathNodes != nil {
			eventMap["path_nodes"] = event.PathNodes
		}
		if event.Hops != nil {
			eventMap["hops"] = *event.Hops
		}
		if event.Impact != "" {
			eventMap["impact"] = event.Impact
		}
		if event.Cycles != nil {
			eventMap["cycles"] = *event.Cycles
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.Seed != 0 {
		result["seed"] = int64(s.Seed)
	}
	return result
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.Seed, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result's trace against the
// golden file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, seed uint64, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Seed:         seed,
		Trace:        result.Trace,
	}
	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
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
