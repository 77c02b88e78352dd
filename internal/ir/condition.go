package ir

import (
	"encoding/json"
	"fmt"
)

// Condition is a sealed sum type for declarative condition expressions.
// Only SimpleCondition, CompoundCondition, FunctionCondition, and
// ContextualCondition implement it. Evaluators type-switch exhaustively
// over these four variants; an unknown variant cannot be constructed in
// Go code, only by a malformed serialized form, which decodes to an error.
type Condition interface {
	condition() // Sealed - only the four variants implement it
}

// Operator is a comparison operator for simple conditions.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpGreaterThan  Operator = "greater_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessThan     Operator = "less_than"
	OpLessEqual    Operator = "less_equal"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
)

// ValidOperators defines the allowed simple-condition operators.
var ValidOperators = map[Operator]bool{
	OpEquals:       true,
	OpNotEquals:    true,
	OpGreaterThan:  true,
	OpGreaterEqual: true,
	OpLessThan:     true,
	OpLessEqual:    true,
	OpContains:     true,
	OpNotContains:  true,
	OpIn:           true,
	OpNotIn:        true,
}

// BoolOperator composes child conditions in a compound condition.
type BoolOperator string

const (
	BoolAnd BoolOperator = "and"
	BoolOr  BoolOperator = "or"
	BoolNot BoolOperator = "not"
)

// FunctionName identifies a built-in condition function.
type FunctionName string

const (
	FnDistance          FunctionName = "distance"
	FnHasItem           FunctionName = "has_item"
	FnRelationshipLevel FunctionName = "relationship_level"
	FnTimeBetween       FunctionName = "time_between"
	FnProbability       FunctionName = "probability"
	FnDiceRoll          FunctionName = "dice_roll"
)

// ValidFunctions defines the built-in condition functions.
var ValidFunctions = map[FunctionName]bool{
	FnDistance:          true,
	FnHasItem:           true,
	FnRelationshipLevel: true,
	FnTimeBetween:       true,
	FnProbability:       true,
	FnDiceRoll:          true,
}

// ContextKind identifies a derived-context category for contextual conditions.
type ContextKind string

const (
	CtxStoryPhase     ContextKind = "story_phase"
	CtxPlayerBehavior ContextKind = "player_behavior"
	CtxWorldState     ContextKind = "world_state"
	CtxSessionContext ContextKind = "session_context"
)

// ValidContextKinds defines the allowed contextual condition categories.
var ValidContextKinds = map[ContextKind]bool{
	CtxStoryPhase:     true,
	CtxPlayerBehavior: true,
	CtxWorldState:     true,
	CtxSessionContext: true,
}

// SimpleCondition compares a dotted-path field resolved from game state
// against a literal value.
type SimpleCondition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func (SimpleCondition) condition() {}

// CompoundCondition composes child conditions with a boolean operator.
// "not" requires exactly one child; violating arity is an evaluation
// error (logged, resolved to false), never a panic.
type CompoundCondition struct {
	Operator   BoolOperator `json:"operator"`
	Conditions []Condition  `json:"conditions"`
}

func (CompoundCondition) condition() {}

// FunctionCondition evaluates a named built-in procedure against game
// state and parameters.
type FunctionCondition struct {
	Name       FunctionName   `json:"function_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (FunctionCondition) condition() {}

// ContextualCondition evaluates against a derived context category.
type ContextualCondition struct {
	Kind ContextKind    `json:"context_type"`
	Data map[string]any `json:"context_data,omitempty"`
}

func (ContextualCondition) condition() {}

// Each variant marshals as its tagged wire form, so conditions embedded
// in larger structs (relationships, candidates, filters) serialize with
// their discriminator intact. The reverse direction needs the enclosing
// struct's UnmarshalJSON to route through UnmarshalConditions, since
// encoding/json cannot decode into the interface on its own.

func (c SimpleCondition) MarshalJSON() ([]byte, error)     { return MarshalCondition(c) }
func (c CompoundCondition) MarshalJSON() ([]byte, error)   { return MarshalCondition(c) }
func (c FunctionCondition) MarshalJSON() ([]byte, error)   { return MarshalCondition(c) }
func (c ContextualCondition) MarshalJSON() ([]byte, error) { return MarshalCondition(c) }

// conditionEnvelope is the wire form of a Condition: a tagged union
// discriminated by "type".
type conditionEnvelope struct {
	Type string `json:"type"`

	// simple
	Field    string          `json:"field,omitempty"`
	Operator string          `json:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`

	// compound
	Conditions []json.RawMessage `json:"conditions,omitempty"`

	// function
	FunctionName string         `json:"function_name,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`

	// contextual
	ContextType string         `json:"context_type,omitempty"`
	ContextData map[string]any `json:"context_data,omitempty"`
}

// MarshalCondition serializes a condition to its tagged wire form.
func MarshalCondition(c Condition) ([]byte, error) {
	m, err := conditionToMap(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// conditionToMap converts a Condition to a plain map, preserving the
// tagged-union shape. The map form is shared by JSON marshaling and
// canonical fingerprinting.
func conditionToMap(c Condition) (map[string]any, error) {
	switch v := c.(type) {
	case SimpleCondition:
		return map[string]any{
			"type":     "simple",
			"field":    v.Field,
			"operator": string(v.Operator),
			"value":    v.Value,
		}, nil
	case CompoundCondition:
		children := make([]any, len(v.Conditions))
		for i, child := range v.Conditions {
			m, err := conditionToMap(child)
			if err != nil {
				return nil, fmt.Errorf("conditions[%d]: %w", i, err)
			}
			children[i] = m
		}
		return map[string]any{
			"type":       "compound",
			"operator":   string(v.Operator),
			"conditions": children,
		}, nil
	case FunctionCondition:
		m := map[string]any{
			"type":          "function",
			"function_name": string(v.Name),
		}
		if len(v.Parameters) > 0 {
			m["parameters"] = v.Parameters
		}
		return m, nil
	case ContextualCondition:
		m := map[string]any{
			"type":         "contextual",
			"context_type": string(v.Kind),
		}
		if len(v.Data) > 0 {
			m["context_data"] = v.Data
		}
		return m, nil
	case nil:
		return nil, fmt.Errorf("nil condition")
	default:
		return nil, fmt.Errorf("unknown condition variant %T", c)
	}
}

// UnmarshalCondition decodes the tagged wire form into a Condition.
// An unknown "type" is a decode error; evaluation-time unknowns can
// only arise from hand-built values, not from this decoder.
func UnmarshalCondition(data []byte) (Condition, error) {
	var env conditionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}

	switch env.Type {
	case "simple":
		var value any
		if len(env.Value) > 0 {
			if err := json.Unmarshal(env.Value, &value); err != nil {
				return nil, fmt.Errorf("decode simple value: %w", err)
			}
		}
		return SimpleCondition{
			Field:    env.Field,
			Operator: Operator(env.Operator),
			Value:    value,
		}, nil
	case "compound":
		children := make([]Condition, len(env.Conditions))
		for i, raw := range env.Conditions {
			child, err := UnmarshalCondition(raw)
			if err != nil {
				return nil, fmt.Errorf("conditions[%d]: %w", i, err)
			}
			children[i] = child
		}
		return CompoundCondition{
			Operator:   BoolOperator(env.Operator),
			Conditions: children,
		}, nil
	case "function":
		return FunctionCondition{
			Name:       FunctionName(env.FunctionName),
			Parameters: env.Parameters,
		}, nil
	case "contextual":
		return ContextualCondition{
			Kind: ContextKind(env.ContextType),
			Data: env.ContextData,
		}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", env.Type)
	}
}

// UnmarshalConditions decodes a JSON array of tagged conditions.
func UnmarshalConditions(data []byte) ([]Condition, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode condition list: %w", err)
	}
	conds := make([]Condition, len(raws))
	for i, raw := range raws {
		c, err := UnmarshalCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		conds[i] = c
	}
	return conds, nil
}
