package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalCondition_Simple(t *testing.T) {
	data := []byte(`{"type":"simple","field":"player.level","operator":"greater_equal","value":10}`)

	cond, err := UnmarshalCondition(data)
	require.NoError(t, err)

	simple, ok := cond.(SimpleCondition)
	require.True(t, ok, "expected SimpleCondition, got %T", cond)
	assert.Equal(t, "player.level", simple.Field)
	assert.Equal(t, OpGreaterEqual, simple.Operator)
	assert.Equal(t, float64(10), simple.Value)
}

func TestUnmarshalCondition_NestedCompound(t *testing.T) {
	data := []byte(`{
		"type": "compound",
		"operator": "and",
		"conditions": [
			{"type": "simple", "field": "player.level", "operator": "greater_than", "value": 5},
			{"type": "compound", "operator": "not", "conditions": [
				{"type": "simple", "field": "world.weather", "operator": "equals", "value": "storm"}
			]}
		]
	}`)

	cond, err := UnmarshalCondition(data)
	require.NoError(t, err)

	compound, ok := cond.(CompoundCondition)
	require.True(t, ok)
	assert.Equal(t, BoolAnd, compound.Operator)
	require.Len(t, compound.Conditions, 2)

	inner, ok := compound.Conditions[1].(CompoundCondition)
	require.True(t, ok)
	assert.Equal(t, BoolNot, inner.Operator)
	require.Len(t, inner.Conditions, 1)
}

func TestUnmarshalCondition_FunctionAndContextual(t *testing.T) {
	fn, err := UnmarshalCondition([]byte(`{"type":"function","function_name":"dice_roll","parameters":{"dice":2,"sides":6,"target":7,"operator":"greater_equal"}}`))
	require.NoError(t, err)
	fc, ok := fn.(FunctionCondition)
	require.True(t, ok)
	assert.Equal(t, FnDiceRoll, fc.Name)
	assert.Equal(t, float64(6), fc.Parameters["sides"])

	ctx, err := UnmarshalCondition([]byte(`{"type":"contextual","context_type":"story_phase","context_data":{"required_phase":"combat"}}`))
	require.NoError(t, err)
	cc, ok := ctx.(ContextualCondition)
	require.True(t, ok)
	assert.Equal(t, CtxStoryPhase, cc.Kind)
}

func TestUnmarshalCondition_UnknownType(t *testing.T) {
	_, err := UnmarshalCondition([]byte(`{"type":"telepathic","field":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition type")
}

func TestMarshalCondition_RoundTrip(t *testing.T) {
	orig := CompoundCondition{
		Operator: BoolOr,
		Conditions: []Condition{
			SimpleCondition{Field: "player.location", Operator: OpEquals, Value: "tavern"},
			FunctionCondition{Name: FnHasItem, Parameters: map[string]any{"item_id": "item_key"}},
		},
	}

	data, err := MarshalCondition(orig)
	require.NoError(t, err)

	decoded, err := UnmarshalCondition(data)
	require.NoError(t, err)

	compound, ok := decoded.(CompoundCondition)
	require.True(t, ok)
	assert.Equal(t, BoolOr, compound.Operator)
	require.Len(t, compound.Conditions, 2)

	fn, ok := compound.Conditions[1].(FunctionCondition)
	require.True(t, ok)
	assert.Equal(t, FnHasItem, fn.Name)
	assert.Equal(t, "item_key", fn.Parameters["item_id"])
}

func TestKindFromID(t *testing.T) {
	assert.Equal(t, KindItem, KindFromID("item_sword"))
	assert.Equal(t, KindQuest, KindFromID("quest_dragon"))
	assert.Equal(t, KindNPC, KindFromID("npc_blacksmith"))
	assert.Equal(t, EntityKind(""), KindFromID("sword"))
	assert.Equal(t, EntityKind(""), KindFromID("spell_fireball"))
}

func TestClampStrength(t *testing.T) {
	assert.Equal(t, 0.0, ClampStrength(-0.5))
	assert.Equal(t, 1.0, ClampStrength(1.5))
	assert.Equal(t, 0.7, ClampStrength(0.7))
}

func TestRelationshipJSON_RoundTripsConditions(t *testing.T) {
	rel := Relationship{
		ID:       "edge_1",
		SourceID: "item_sword",
		TargetID: "quest_dragon",
		Type:     RelPrerequisite,
		Strength: 0.9,
		Conditions: []Condition{
			SimpleCondition{Field: "player.level", Operator: OpGreaterEqual, Value: float64(10)},
		},
	}

	data, err := json.Marshal(rel)
	require.NoError(t, err)

	var decoded Relationship
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rel.Conditions, decoded.Conditions)
	assert.Equal(t, rel.Type, decoded.Type)
}

func TestCandidateJSON_RoundTripsConditions(t *testing.T) {
	cand := Candidate{
		ID:   "event_ambush",
		Kind: KindEvent,
		Conditions: []Condition{
			ContextualCondition{Kind: CtxSessionContext, Data: map[string]any{"min_turn": float64(5)}},
		},
	}

	data, err := json.Marshal(cand)
	require.NoError(t, err)

	var decoded Candidate
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cand.Conditions, decoded.Conditions)
}
