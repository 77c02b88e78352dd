// Package harness executes YAML scenarios against the real engine and
// compares the resulting traces to golden files.
//
// A scenario declares a world (game state, candidate pool, relationship
// seeds), a sequence of engine operations, and assertions on the
// outcomes. Each run builds a fresh engine over a static candidate
// source with a seeded random source, so the same scenario always
// produces the same trace.
package harness

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lore/internal/engine"
	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/ir"
	"github.com/roach88/lore/internal/query"
)

// Run executes a scenario and returns the result. The engine is built
// fresh for each run; nothing leaks between scenarios.
func Run(scenario *Scenario) (*Result, error) {
	candidates, err := decodeCandidates(scenario.Candidates)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	eng, err := engine.New(query.NewStaticSource(candidates...),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithRandomSource(eval.NewSeededSource(scenario.Seed)),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: building engine: %w", scenario.Name, err)
	}

	for i, node := range scenario.Relationships {
		var rel ir.Relationship
		if err := decodeJSONShaped(node, &rel); err != nil {
			return nil, fmt.Errorf("scenario %s: relationships[%d]: %w", scenario.Name, i, err)
		}
		if err := eng.AddRelationship(rel); err != nil {
			return nil, fmt.Errorf("scenario %s: relationships[%d]: %w", scenario.Name, i, err)
		}
	}

	evalCtx := &eval.Context{
		State:          scenario.State,
		BehaviorScores: scenario.BehaviorScores,
		Positions:      scenario.Positions,
		LastEventTurn:  scenario.LastEventTurn,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := executeStep(eng, evalCtx, &step, result); err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d] (%s): %w", scenario.Name, i, step.Op, err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one operation against the engine, appending the
// typed outcome and its trace event.
func executeStep(eng *engine.Engine, evalCtx *eval.Context, step *Step, result *Result) error {
	switch step.Op {
	case OpEvaluate:
		conds, err := decodeConditions(step.Conditions)
		if err != nil {
			return err
		}
		res := eng.EvaluateEntity(evalCtx, step.Entity, conds)
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op, Eval: &res})
		result.addTrace(TraceEvent{
			Op:       step.Op,
			EntityID: step.Entity,
			Passed:   boolPtr(res.Success),
		})

	case OpQuery:
		var filter ir.QueryFilter
		if !step.Filter.IsZero() {
			if err := decodeJSONShaped(step.Filter, &filter); err != nil {
				return fmt.Errorf("filter: %w", err)
			}
		}
		res, err := eng.QueryEntities(evalCtx, filter, ir.QueryOptions{
			MaxResults:    step.MaxResults,
			SortBy:        ir.SortStrategy(step.SortBy),
			ExpandRelated: step.ExpandRelated,
		})
		if err != nil {
			return err
		}
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op, Query: &res})
		result.addTrace(TraceEvent{Op: step.Op, Matched: matchedIDs(&res)})

	case OpRecommend:
		res, err := eng.RecommendedEntities(evalCtx, ir.EntityKind(step.Kind), step.MaxResults)
		if err != nil {
			return err
		}
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op, Query: &res})
		result.addTrace(TraceEvent{Op: step.Op, Matched: matchedIDs(&res)})

	case OpCheckAvailability:
		conds, err := decodeConditions(step.Conditions)
		if err != nil {
			return err
		}
		avail := eng.CheckEntityAvailability(evalCtx, step.Entity, conds)
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op, Availability: &avail})
		result.addTrace(TraceEvent{
			Op:        step.Op,
			EntityID:  step.Entity,
			Available: boolPtr(avail.Available),
		})

	case OpAnalyze:
		analysis := eng.AnalyzeEntityRelationships(step.Entity)
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op, Analysis: &analysis})
		result.addTrace(TraceEvent{
			Op:       step.Op,
			EntityID: step.Entity,
			Impact:   string(analysis.ImpactLevel),
			Cycles:   intPtr(len(analysis.Cycles)),
		})

	case OpFindPath:
		path := eng.FindEntityPath(step.From, step.To, step.MaxHops)
		outcome := StepOutcome{Op: step.Op, Path: path, PathSearched: true}
		result.Outcomes = append(result.Outcomes, outcome)
		event := TraceEvent{Op: step.Op}
		if path != nil {
			event.PathNodes = path.Nodes
			event.Hops = intPtr(path.Hops)
		}
		result.addTrace(event)

	case OpAddRelationship:
		var rel ir.Relationship
		if err := decodeJSONShaped(step.Relationship, &rel); err != nil {
			return fmt.Errorf("relationship: %w", err)
		}
		if err := eng.AddRelationship(rel); err != nil {
			return err
		}
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op})
		result.addTrace(TraceEvent{Op: step.Op, EntityID: rel.SourceID})

	case OpRemoveRelationship:
		removed := eng.RemoveRelationship(step.From, step.To, ir.RelationType(step.Type))
		result.Outcomes = append(result.Outcomes, StepOutcome{Op: step.Op})
		result.addTrace(TraceEvent{Op: step.Op, EntityID: step.From, Passed: boolPtr(removed)})

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func decodeCandidates(nodes []yaml.Node) ([]ir.Candidate, error) {
	candidates := make([]ir.Candidate, 0, len(nodes))
	for i, node := range nodes {
		var cand ir.Candidate
		if err := decodeJSONShaped(node, &cand); err != nil {
			return nil, fmt.Errorf("candidates[%d]: %w", i, err)
		}
		if cand.Kind == "" {
			cand.Kind = ir.KindFromID(cand.ID)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func matchedIDs(res *ir.QueryResult) []string {
	if len(res.Entities) == 0 {
		return nil
	}
	ids := make([]string, len(res.Entities))
	for i, c := range res.Entities {
		ids[i] = c.ID
	}
	return ids
}
