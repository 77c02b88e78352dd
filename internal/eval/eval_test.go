package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lore/internal/ir"
	"github.com/roach88/lore/internal/testutil"
)

func testContext(state ir.GameState) *Context {
	return &Context{State: state}
}

func TestEvaluate_SimpleLevelGate(t *testing.T) {
	e := New()
	cond := ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterEqual, Value: 10}

	low := testContext(testutil.NewState().Level(7).Build())
	assert.False(t, e.Evaluate(low, cond), "level 7 must fail a >=10 gate")

	high := testContext(testutil.NewState().Level(12).Build())
	assert.True(t, e.Evaluate(high, cond), "level 12 must pass a >=10 gate")
}

func TestEvaluate_MissingPath(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Build())

	// Positive operators over an absent value are false.
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.stats.luck", Operator: ir.OpEquals, Value: 5}))
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.stats.luck", Operator: ir.OpGreaterThan, Value: 0}))
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "nowhere.at.all", Operator: ir.OpContains, Value: "x"}))

	// Negated operators follow standard negation semantics.
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.stats.luck", Operator: ir.OpNotEquals, Value: 5}))
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "nowhere.at.all", Operator: ir.OpNotContains, Value: "x"}))
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "nowhere.at.all", Operator: ir.OpNotIn, Value: []any{"a", "b"}}))
}

func TestEvaluate_TrailingSegmentsOnLeafAreAbsent(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Level(12).Turn(4).Flag("gate_open", true).Build())

	// Segments past a terminal leaf never resolve to the leaf itself.
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.level.bogus", Operator: ir.OpEquals, Value: 12}))
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "session.turn.extra", Operator: ir.OpGreaterEqual, Value: 1}))
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "world.flags.gate_open.deep", Operator: ir.OpEquals, Value: true}))

	// Absent, so negated operators pass.
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.level.bogus", Operator: ir.OpNotEquals, Value: 12}))

	// The untruncated paths still resolve.
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.level", Operator: ir.OpEquals, Value: 12}))
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "world.flags.gate_open", Operator: ir.OpEquals, Value: true}))
}

func TestEvaluate_MembershipOperators(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Items("item_sword", "item_rope").Weather("rain").Build())

	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.items", Operator: ir.OpContains, Value: "item_rope"}))
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "player.items", Operator: ir.OpContains, Value: "item_lantern"}))
	assert.True(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "world.weather", Operator: ir.OpIn, Value: []any{"rain", "storm"}}))
	assert.False(t, e.Evaluate(ctx, ir.SimpleCondition{Field: "world.weather", Operator: ir.OpIn, Value: []any{"clear"}}))
}

// countingSource counts Float64 draws so tests can prove a child
// condition was never evaluated.
type countingSource struct {
	draws int
}

func (s *countingSource) Float64() float64 { s.draws++; return 0.99 }
func (s *countingSource) IntN(n int) int   { return 0 }

func TestEvaluate_AndShortCircuits(t *testing.T) {
	e := New()
	src := &countingSource{}
	ctx := testContext(testutil.NewState().Level(1).Build())
	ctx.Rand = src

	cond := ir.CompoundCondition{
		Operator: ir.BoolAnd,
		Conditions: []ir.Condition{
			ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterEqual, Value: 99},
			ir.FunctionCondition{Name: ir.FnProbability, Parameters: map[string]any{"chance": 0.5}},
		},
	}

	assert.False(t, e.Evaluate(ctx, cond))
	assert.Equal(t, 0, src.draws, "failing first child must prevent evaluation of the second")
}

func TestEvaluate_OrShortCircuits(t *testing.T) {
	e := New()
	src := &countingSource{}
	ctx := testContext(testutil.NewState().Level(50).Build())
	ctx.Rand = src

	cond := ir.CompoundCondition{
		Operator: ir.BoolOr,
		Conditions: []ir.Condition{
			ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterEqual, Value: 10},
			ir.FunctionCondition{Name: ir.FnProbability, Parameters: map[string]any{"chance": 0.5}},
		},
	}

	assert.True(t, e.Evaluate(ctx, cond))
	assert.Equal(t, 0, src.draws, "passing first child must prevent evaluation of the second")
}

func TestEvaluate_EmptyCompoundsAreFalse(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Build())

	assert.False(t, e.Evaluate(ctx, ir.CompoundCondition{Operator: ir.BoolAnd}))
	assert.False(t, e.Evaluate(ctx, ir.CompoundCondition{Operator: ir.BoolOr}))
}

func TestEvaluate_NotArity(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Build())
	child := ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterThan, Value: 100}

	// Exactly one child: proper negation.
	assert.True(t, e.Evaluate(ctx, ir.CompoundCondition{Operator: ir.BoolNot, Conditions: []ir.Condition{child}}))

	// Zero or two children: evaluation error, resolved to false, no panic.
	assert.False(t, e.Evaluate(ctx, ir.CompoundCondition{Operator: ir.BoolNot}))
	assert.False(t, e.Evaluate(ctx, ir.CompoundCondition{Operator: ir.BoolNot, Conditions: []ir.Condition{child, child}}))

	_, err := e.EvaluateDetailed(ctx, ir.CompoundCondition{Operator: ir.BoolNot})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one child")
}

func TestEvaluate_UnknownOperatorIsFalseNotFatal(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Build())

	ok, err := e.EvaluateDetailed(ctx, ir.SimpleCondition{Field: "player.level", Operator: "approximately", Value: 5})
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")
}

func TestEvaluate_Probability(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Build())

	ctx.Rand = testutil.NewFixedRandSource(0.2)
	assert.True(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnProbability, Parameters: map[string]any{"chance": 0.5}}))

	ctx.Rand = testutil.NewFixedRandSource(0.9)
	assert.False(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnProbability, Parameters: map[string]any{"chance": 0.5}}))

	// Out-of-range chance is a parameter error, not a draw.
	ok, err := e.EvaluateDetailed(ctx, ir.FunctionCondition{Name: ir.FnProbability, Parameters: map[string]any{"chance": 1.5}})
	assert.False(t, ok)
	require.Error(t, err)
}

func TestEvaluate_DiceRoll(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Build())

	// 2d6 scripted to roll 4+5=9.
	ctx.Rand = testutil.NewFixedRandSource().WithInts(3, 4)
	cond := ir.FunctionCondition{Name: ir.FnDiceRoll, Parameters: map[string]any{
		"dice": 2, "sides": 6, "target": 9, "operator": "greater_equal",
	}}
	assert.True(t, e.Evaluate(ctx, cond))

	ctx.Rand = testutil.NewFixedRandSource().WithInts(0, 0) // rolls 1+1=2
	assert.False(t, e.Evaluate(ctx, cond))
}

func TestEvaluate_FunctionLookups(t *testing.T) {
	e := New()
	state := testutil.NewState().
		Items("item_key").
		Relationship("npc_elder", 0.8).
		Time(23).
		Build()
	ctx := testContext(state)
	ctx.Positions = map[string]Position{
		"player_1":  {X: 0, Y: 0},
		"npc_elder": {X: 3, Y: 4},
	}

	assert.True(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnHasItem, Parameters: map[string]any{"item_id": "item_key"}}))
	assert.False(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnHasItem, Parameters: map[string]any{"item_id": "item_crown"}}))

	assert.True(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnRelationshipLevel, Parameters: map[string]any{
		"entity_id": "npc_elder", "value": 0.5,
	}}))
	assert.False(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnRelationshipLevel, Parameters: map[string]any{
		"entity_id": "npc_stranger", "value": 0.5,
	}}))

	// Distance player -> elder is exactly 5.
	assert.True(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnDistance, Parameters: map[string]any{
		"to": "npc_elder", "value": 5,
	}}))
	assert.False(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnDistance, Parameters: map[string]any{
		"to": "npc_elder", "operator": "less_than", "value": 5,
	}}))

	// Overnight window 22-6 contains 23.
	assert.True(t, e.Evaluate(ctx, ir.FunctionCondition{Name: ir.FnTimeBetween, Parameters: map[string]any{
		"start": 22, "end": 6,
	}}))
}

func TestEvaluate_Contextual(t *testing.T) {
	e := New()
	state := testutil.NewState().
		Phase(ir.PhaseCombat).
		Flag("gate_open", true).
		Events("event_festival").
		Weather("storm").
		Turn(15).
		NPCs("npc_guard").
		Location("castle_courtyard").
		Build()
	ctx := testContext(state)
	ctx.BehaviorScores = map[string]float64{"aggression": 0.7}

	assert.True(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxStoryPhase, Data: map[string]any{
		"required_phase": "combat", "required_flags": []any{"gate_open"},
	}}))
	assert.False(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxStoryPhase, Data: map[string]any{
		"required_phase": "rest",
	}}))

	assert.True(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxPlayerBehavior, Data: map[string]any{
		"behavior": "aggression", "threshold": 0.5,
	}}))
	assert.False(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxPlayerBehavior, Data: map[string]any{
		"behavior": "stealth", "threshold": 0.5,
	}}))

	assert.True(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxWorldState, Data: map[string]any{
		"required_events": []any{"event_festival"}, "weather": []any{"storm", "rain"},
	}}))
	assert.False(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxWorldState, Data: map[string]any{
		"required_events": []any{"event_eclipse"},
	}}))

	assert.True(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxSessionContext, Data: map[string]any{
		"min_turn": 10, "max_turn": 20, "required_npcs": []any{"npc_guard"}, "location": "courtyard",
	}}))
	assert.False(t, e.Evaluate(ctx, ir.ContextualCondition{Kind: ir.CtxSessionContext, Data: map[string]any{
		"min_turn": 20,
	}}))

	// Unknown context kind: warn + false, never a panic.
	ok, err := e.EvaluateDetailed(ctx, ir.ContextualCondition{Kind: "lunar_phase"})
	assert.False(t, ok)
	require.Error(t, err)
}

func TestEvaluateAll_IsolatesFailures(t *testing.T) {
	e := New()
	ctx := testContext(testutil.NewState().Level(12).Build())

	report := e.EvaluateAll(ctx, []ir.Condition{
		ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterEqual, Value: 10},
		ir.CompoundCondition{Operator: ir.BoolNot}, // arity error
		ir.SimpleCondition{Field: "player.level", Operator: ir.OpLessThan, Value: 100},
	})

	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "condition[1]")
	assert.InDelta(t, 2.0/3.0, report.Confidence(), 1e-9)
}

func TestReport_EmptyConditionSet(t *testing.T) {
	e := New()
	report := e.EvaluateAll(testContext(testutil.NewState().Build()), nil)

	assert.True(t, report.AllPassed())
	assert.Equal(t, 1.0, report.Confidence(), "nothing gated the entity")
}
