package eval

import (
	"fmt"
	"math"

	"github.com/roach88/lore/internal/ir"
)

// evalFunction dispatches a built-in condition function. Parameter shape
// errors are evaluation errors (caught at the per-condition boundary),
// never panics.
func (e *Evaluator) evalFunction(ctx *Context, c ir.FunctionCondition) (bool, error) {
	switch c.Name {
	case ir.FnDistance:
		return e.fnDistance(ctx, c.Parameters)
	case ir.FnHasItem:
		return e.fnHasItem(ctx, c.Parameters)
	case ir.FnRelationshipLevel:
		return e.fnRelationshipLevel(ctx, c.Parameters)
	case ir.FnTimeBetween:
		return e.fnTimeBetween(ctx, c.Parameters)
	case ir.FnProbability:
		return e.fnProbability(ctx, c.Parameters)
	case ir.FnDiceRoll:
		return e.fnDiceRoll(ctx, c.Parameters)
	default:
		return false, fmt.Errorf("unknown function %q", c.Name)
	}
}

// fnDistance compares the euclidean distance between two positioned
// entities against a value. "from" defaults to the player.
//
// Parameters: from?, to, operator? (default less_equal), value.
func (e *Evaluator) fnDistance(ctx *Context, params map[string]any) (bool, error) {
	from := paramString(params, "from", ctx.State.Player.ID)
	to := paramString(params, "to", "")
	if to == "" {
		return false, fmt.Errorf("distance: missing parameter %q", "to")
	}

	a, ok := ctx.Positions[from]
	if !ok {
		return false, fmt.Errorf("distance: no position for %q", from)
	}
	b, ok := ctx.Positions[to]
	if !ok {
		return false, fmt.Errorf("distance: no position for %q", to)
	}

	value, err := paramFloat(params, "value")
	if err != nil {
		return false, fmt.Errorf("distance: %w", err)
	}

	d := math.Hypot(a.X-b.X, a.Y-b.Y)
	op := ir.Operator(paramString(params, "operator", string(ir.OpLessEqual)))
	ok, err = compare(d, op, value)
	if err != nil {
		return false, fmt.Errorf("distance: %w", err)
	}
	return ok, nil
}

// fnHasItem checks whether the player holds an item.
//
// Parameters: item_id.
func (e *Evaluator) fnHasItem(ctx *Context, params map[string]any) (bool, error) {
	itemID := paramString(params, "item_id", "")
	if itemID == "" {
		return false, fmt.Errorf("has_item: missing parameter %q", "item_id")
	}
	return ctx.State.Player.HasItem(itemID), nil
}

// fnRelationshipLevel compares the player's relationship strength with
// an entity against a value. A missing relationship reads as 0.
//
// Parameters: entity_id, operator? (default greater_equal), value.
func (e *Evaluator) fnRelationshipLevel(ctx *Context, params map[string]any) (bool, error) {
	entityID := paramString(params, "entity_id", "")
	if entityID == "" {
		return false, fmt.Errorf("relationship_level: missing parameter %q", "entity_id")
	}
	value, err := paramFloat(params, "value")
	if err != nil {
		return false, fmt.Errorf("relationship_level: %w", err)
	}

	level := ctx.State.Player.Relationships[entityID]
	op := ir.Operator(paramString(params, "operator", string(ir.OpGreaterEqual)))
	ok, err := compare(level, op, value)
	if err != nil {
		return false, fmt.Errorf("relationship_level: %w", err)
	}
	return ok, nil
}

// fnTimeBetween checks whether world time falls inside [start, end].
// A start greater than end is treated as an overnight window wrapping
// past the day boundary (e.g. 22-6).
//
// Parameters: start, end.
func (e *Evaluator) fnTimeBetween(ctx *Context, params map[string]any) (bool, error) {
	start, err := paramFloat(params, "start")
	if err != nil {
		return false, fmt.Errorf("time_between: %w", err)
	}
	end, err := paramFloat(params, "end")
	if err != nil {
		return false, fmt.Errorf("time_between: %w", err)
	}

	now := ctx.State.World.Time
	if start <= end {
		return now >= start && now <= end, nil
	}
	return now >= start || now <= end, nil
}

// fnProbability draws a uniform random in [0,1) and passes when the draw
// is below chance. Non-deterministic by design; tests inject a fixed
// source through the context.
//
// Parameters: chance in [0,1].
func (e *Evaluator) fnProbability(ctx *Context, params map[string]any) (bool, error) {
	chance, err := paramFloat(params, "chance")
	if err != nil {
		return false, fmt.Errorf("probability: %w", err)
	}
	if chance < 0 || chance > 1 {
		return false, fmt.Errorf("probability: chance %v outside [0,1]", chance)
	}
	return ctx.rand(e.rand).Float64() < chance, nil
}

// fnDiceRoll sums dice uniform draws over [1,sides] and compares the
// total against target with the given operator.
//
// Parameters: dice, sides, target, operator? (default greater_equal).
func (e *Evaluator) fnDiceRoll(ctx *Context, params map[string]any) (bool, error) {
	dice, err := paramInt(params, "dice")
	if err != nil {
		return false, fmt.Errorf("dice_roll: %w", err)
	}
	sides, err := paramInt(params, "sides")
	if err != nil {
		return false, fmt.Errorf("dice_roll: %w", err)
	}
	target, err := paramFloat(params, "target")
	if err != nil {
		return false, fmt.Errorf("dice_roll: %w", err)
	}
	if dice < 1 || sides < 1 {
		return false, fmt.Errorf("dice_roll: dice and sides must be >= 1, got %dd%d", dice, sides)
	}

	src := ctx.rand(e.rand)
	total := 0
	for i := 0; i < dice; i++ {
		total += src.IntN(sides) + 1
	}

	op := ir.Operator(paramString(params, "operator", string(ir.OpGreaterEqual)))
	ok, err := compare(float64(total), op, target)
	if err != nil {
		return false, fmt.Errorf("dice_roll: %w", err)
	}
	return ok, nil
}

func paramString(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func paramFloat(params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("parameter %q is not numeric: %T", key, v)
	}
	return f, nil
}

func paramInt(params map[string]any, key string) (int, error) {
	f, err := paramFloat(params, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("parameter %q is not an integer: %v", key, f)
	}
	return int(f), nil
}
