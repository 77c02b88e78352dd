package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/lore/internal/ir"
)

// RulePack is the compiled form of a CUE rule pack.
type RulePack struct {
	Conditions    map[string]ir.Condition   `json:"conditions,omitempty"`
	Filters       map[string]ir.QueryFilter `json:"filters,omitempty"`
	Relationships []ir.Relationship         `json:"relationships,omitempty"`
}

// CompilePack parses a full rule pack from a CUE value. Filter presets
// may reference named conditions from the same pack by string; the
// reference is resolved at compile time, so a preset always carries
// concrete conditions.
func CompilePack(v cue.Value) (*RulePack, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pack := &RulePack{}

	condsVal := v.LookupPath(cue.ParsePath("conditions"))
	if condsVal.Exists() {
		iter, err := condsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		pack.Conditions = make(map[string]ir.Condition)
		for iter.Next() {
			name := iter.Label()
			cond, err := CompileCondition(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("condition %q: %w", name, err)
			}
			pack.Conditions[name] = cond
		}
	}

	filtersVal := v.LookupPath(cue.ParsePath("filters"))
	if filtersVal.Exists() {
		iter, err := filtersVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		pack.Filters = make(map[string]ir.QueryFilter)
		for iter.Next() {
			name := iter.Label()
			filter, err := compileFilter(iter.Value(), pack.Conditions)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", name, err)
			}
			pack.Filters[name] = filter
		}
	}

	relsVal := v.LookupPath(cue.ParsePath("relationships"))
	if relsVal.Exists() {
		iter, err := relsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rel, err := compileRelationship(iter.Value())
			if err != nil {
				return nil, err
			}
			pack.Relationships = append(pack.Relationships, rel)
		}
	}

	return pack, nil
}

// CompileFilter parses a standalone query filter from a CUE value with
// no named-condition context.
func CompileFilter(v cue.Value) (ir.QueryFilter, error) {
	return compileFilter(v, nil)
}

func compileFilter(v cue.Value, named map[string]ir.Condition) (ir.QueryFilter, error) {
	var filter ir.QueryFilter
	if err := v.Err(); err != nil {
		return filter, formatCUEError(err)
	}

	kinds, err := optionalStrings(v, "entity_kinds")
	if err != nil {
		return filter, err
	}
	for _, k := range kinds {
		kind := ir.EntityKind(k)
		if !ir.ValidEntityKinds[kind] {
			return filter, &CompileError{
				Field:   "entity_kinds",
				Message: fmt.Sprintf("unknown entity kind %q", k),
				Pos:     v.Pos(),
			}
		}
		filter.EntityKinds = append(filter.EntityKinds, kind)
	}

	if filter.Tags, err = optionalStrings(v, "tags"); err != nil {
		return filter, err
	}
	if filter.MinPriority, err = optionalFloat(v, "min_priority"); err != nil {
		return filter, err
	}
	if filter.Location, err = optionalString(v, "location"); err != nil {
		return filter, err
	}

	condsVal := v.LookupPath(cue.ParsePath("conditions"))
	if condsVal.Exists() {
		iter, err := condsVal.List()
		if err != nil {
			return filter, formatCUEError(err)
		}
		for iter.Next() {
			cond, err := resolveCondition(iter.Value(), named)
			if err != nil {
				return filter, err
			}
			filter.Conditions = append(filter.Conditions, cond)
		}
	}

	cfVal := v.LookupPath(cue.ParsePath("context_factors"))
	if cfVal.Exists() {
		cf, err := compileContextFactors(cfVal)
		if err != nil {
			return filter, err
		}
		filter.ContextFactors = &cf
	}

	tcVal := v.LookupPath(cue.ParsePath("time_constraints"))
	if tcVal.Exists() {
		var tc ir.TimeConstraints
		if tc.NotBefore, err = optionalFloat(tcVal, "not_before"); err != nil {
			return filter, err
		}
		if tc.NotAfter, err = optionalFloat(tcVal, "not_after"); err != nil {
			return filter, err
		}
		filter.TimeConstraints = &tc
	}

	acVal := v.LookupPath(cue.ParsePath("ai_criteria"))
	if acVal.Exists() {
		ac, err := compileAICriteria(acVal)
		if err != nil {
			return filter, err
		}
		filter.AICriteria = &ac
	}

	return filter, nil
}

// resolveCondition accepts either a string reference to a named pack
// condition or an inline condition struct.
func resolveCondition(v cue.Value, named map[string]ir.Condition) (ir.Condition, error) {
	if v.Kind() == cue.StringKind {
		ref, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cond, ok := named[ref]
		if !ok {
			return nil, &CompileError{
				Field:   "conditions",
				Message: fmt.Sprintf("undefined condition reference %q", ref),
				Pos:     v.Pos(),
			}
		}
		return cond, nil
	}
	return CompileCondition(v)
}

func compileContextFactors(v cue.Value) (ir.ContextFactors, error) {
	var cf ir.ContextFactors
	var err error
	if cf.StoryAppropriate, err = optionalBool(v, "story_appropriate"); err != nil {
		return cf, err
	}
	if cf.PlayerReady, err = optionalBool(v, "player_ready"); err != nil {
		return cf, err
	}
	if cf.DramaticTiming, err = optionalBool(v, "dramatic_timing"); err != nil {
		return cf, err
	}
	if cf.ResourceAvailable, err = optionalBool(v, "resource_available"); err != nil {
		return cf, err
	}
	if cf.MinTurnSpacing, err = optionalInt(v, "min_turn_spacing"); err != nil {
		return cf, err
	}
	if cf.MinHP, err = optionalFloat(v, "min_hp"); err != nil {
		return cf, err
	}
	if cf.MinMP, err = optionalFloat(v, "min_mp"); err != nil {
		return cf, err
	}
	return cf, nil
}

func compileAICriteria(v cue.Value) (ir.AICriteria, error) {
	var ac ir.AICriteria
	var err error
	if ac.MinScore, err = optionalFloat(v, "min_score"); err != nil {
		return ac, err
	}
	if ac.MaxScore, err = optionalFloat(v, "max_score"); err != nil {
		return ac, err
	}
	if ac.MinAlignment, err = optionalFloat(v, "min_alignment"); err != nil {
		return ac, err
	}
	if ac.MinStoryRelevance, err = optionalFloat(v, "min_story_relevance"); err != nil {
		return ac, err
	}
	if ac.TargetDifficulty, err = optionalFloat(v, "target_difficulty"); err != nil {
		return ac, err
	}
	if ac.DifficultyTolerance, err = optionalFloat(v, "difficulty_tolerance"); err != nil {
		return ac, err
	}
	return ac, nil
}

func compileRelationship(v cue.Value) (ir.Relationship, error) {
	var rel ir.Relationship
	var err error

	if rel.SourceID, err = requireString(v, "source"); err != nil {
		return rel, err
	}
	if rel.TargetID, err = requireString(v, "target"); err != nil {
		return rel, err
	}

	typeStr, err := requireString(v, "type")
	if err != nil {
		return rel, err
	}
	rel.Type = ir.RelationType(typeStr)
	if !ir.ValidRelationTypes[rel.Type] {
		return rel, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unknown relationship type %q", typeStr),
			Pos:     v.Pos(),
		}
	}

	strengthVal := v.LookupPath(cue.ParsePath("strength"))
	if !strengthVal.Exists() {
		return rel, &CompileError{
			Field:   "strength",
			Message: "strength is required",
			Pos:     v.Pos(),
		}
	}
	if rel.Strength, err = strengthVal.Float64(); err != nil {
		return rel, formatCUEError(err)
	}
	// The graph clamps at runtime; authored packs are held to the
	// declared range.
	if rel.Strength < 0 || rel.Strength > 1 {
		return rel, &CompileError{
			Field:   "strength",
			Message: fmt.Sprintf("strength %v outside [0,1]", rel.Strength),
			Pos:     strengthVal.Pos(),
		}
	}
	if rel.SourceID == rel.TargetID {
		return rel, &CompileError{
			Field:   "target",
			Message: "self-referential relationship",
			Pos:     v.Pos(),
		}
	}

	if rel.Bidirectional, err = optionalBool(v, "bidirectional"); err != nil {
		return rel, err
	}
	if rel.ID, err = optionalString(v, "id"); err != nil {
		return rel, err
	}
	if rel.Metadata.Description, err = optionalString(v, "description"); err != nil {
		return rel, err
	}
	return rel, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalFloat(v cue.Value, field string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	i, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(i), nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}
