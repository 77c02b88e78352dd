package eval

import (
	"fmt"
	"strings"

	"github.com/roach88/lore/internal/ir"
)

// evalContextual dispatches a contextual condition over the derived
// context categories.
func (e *Evaluator) evalContextual(ctx *Context, c ir.ContextualCondition) (bool, error) {
	switch c.Kind {
	case ir.CtxStoryPhase:
		return e.ctxStoryPhase(ctx, c.Data)
	case ir.CtxPlayerBehavior:
		return e.ctxPlayerBehavior(ctx, c.Data)
	case ir.CtxWorldState:
		return e.ctxWorldState(ctx, c.Data)
	case ir.CtxSessionContext:
		return e.ctxSessionContext(ctx, c.Data)
	default:
		return false, fmt.Errorf("unknown context type %q", c.Kind)
	}
}

// ctxStoryPhase checks the session's current phase against a required
// phase and, optionally, required world flags (AND semantics).
//
// Data: required_phase?, required_flags? []string.
func (e *Evaluator) ctxStoryPhase(ctx *Context, data map[string]any) (bool, error) {
	if required := paramString(data, "required_phase", ""); required != "" {
		if string(ctx.State.Session.Phase) != required {
			return false, nil
		}
	}
	flags, err := paramStringList(data, "required_flags")
	if err != nil {
		return false, fmt.Errorf("story_phase: %w", err)
	}
	for _, flag := range flags {
		if !ctx.State.World.Flags[flag] {
			return false, nil
		}
	}
	return true, nil
}

// ctxPlayerBehavior compares a caller-supplied behavior score against a
// threshold. A missing score reads as 0.
//
// Data: behavior, operator? (default greater_equal), threshold.
func (e *Evaluator) ctxPlayerBehavior(ctx *Context, data map[string]any) (bool, error) {
	behavior := paramString(data, "behavior", "")
	if behavior == "" {
		return false, fmt.Errorf("player_behavior: missing %q", "behavior")
	}
	threshold, err := paramFloat(data, "threshold")
	if err != nil {
		return false, fmt.Errorf("player_behavior: %w", err)
	}

	score := ctx.BehaviorScores[behavior]
	op := ir.Operator(paramString(data, "operator", string(ir.OpGreaterEqual)))
	ok, err := compare(score, op, threshold)
	if err != nil {
		return false, fmt.Errorf("player_behavior: %w", err)
	}
	return ok, nil
}

// ctxWorldState checks required fired events (AND) and weather
// membership.
//
// Data: required_events? []string, weather? []string.
func (e *Evaluator) ctxWorldState(ctx *Context, data map[string]any) (bool, error) {
	events, err := paramStringList(data, "required_events")
	if err != nil {
		return false, fmt.Errorf("world_state: %w", err)
	}
	for _, event := range events {
		if !ctx.State.World.EventFired(event) {
			return false, nil
		}
	}

	weathers, err := paramStringList(data, "weather")
	if err != nil {
		return false, fmt.Errorf("world_state: %w", err)
	}
	if len(weathers) > 0 {
		found := false
		for _, w := range weathers {
			if ctx.State.World.Weather == w {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// ctxSessionContext checks turn-range membership, required present NPCs
// (AND), and location substring match.
//
// Data: min_turn?, max_turn?, required_npcs? []string, location?.
func (e *Evaluator) ctxSessionContext(ctx *Context, data map[string]any) (bool, error) {
	turn := ctx.State.Session.Turn
	if v, ok := data["min_turn"]; ok {
		minTurn, ok := toFloat(v)
		if !ok {
			return false, fmt.Errorf("session_context: min_turn is not numeric: %T", v)
		}
		if float64(turn) < minTurn {
			return false, nil
		}
	}
	if v, ok := data["max_turn"]; ok {
		maxTurn, ok := toFloat(v)
		if !ok {
			return false, fmt.Errorf("session_context: max_turn is not numeric: %T", v)
		}
		if float64(turn) > maxTurn {
			return false, nil
		}
	}

	npcs, err := paramStringList(data, "required_npcs")
	if err != nil {
		return false, fmt.Errorf("session_context: %w", err)
	}
	for _, npc := range npcs {
		if !ctx.State.Session.NPCPresent(npc) {
			return false, nil
		}
	}

	if location := paramString(data, "location", ""); location != "" {
		if !strings.Contains(ctx.State.Session.Location, location) {
			return false, nil
		}
	}
	return true, nil
}

// paramStringList reads an optional list-of-strings parameter, accepting
// both []string (Go-built data) and []any (decoded JSON/YAML).
func paramStringList(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, elem := range list {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q[%d] is not a string: %T", key, i, elem)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q is not a list: %T", key, v)
	}
}
