package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/lore/internal/ir"
)

// CompileCondition parses a CUE value into a condition. The value must
// be a struct with a "type" discriminator (simple, compound, function,
// contextual). Unknown discriminators, operators, function names, and
// context kinds are compile errors.
func CompileCondition(v cue.Value) (ir.Condition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	variant, err := requireString(v, "type")
	if err != nil {
		return nil, err
	}

	switch variant {
	case "simple":
		return compileSimple(v)
	case "compound":
		return compileCompound(v)
	case "function":
		return compileFunction(v)
	case "contextual":
		return compileContextual(v)
	default:
		return nil, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unknown condition type %q", variant),
			Pos:     v.Pos(),
		}
	}
}

func compileSimple(v cue.Value) (ir.Condition, error) {
	field, err := requireString(v, "field")
	if err != nil {
		return nil, err
	}

	opStr, err := requireString(v, "operator")
	if err != nil {
		return nil, err
	}
	op := ir.Operator(opStr)
	if !ir.ValidOperators[op] {
		return nil, &CompileError{
			Field:   "operator",
			Message: fmt.Sprintf("unknown operator %q", opStr),
			Pos:     v.Pos(),
		}
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return nil, &CompileError{
			Field:   "value",
			Message: "value is required",
			Pos:     v.Pos(),
		}
	}
	value, err := decodeAny(valueVal)
	if err != nil {
		return nil, err
	}

	return ir.SimpleCondition{Field: field, Operator: op, Value: value}, nil
}

func compileCompound(v cue.Value) (ir.Condition, error) {
	opStr, err := requireString(v, "operator")
	if err != nil {
		return nil, err
	}
	op := ir.BoolOperator(opStr)
	switch op {
	case ir.BoolAnd, ir.BoolOr, ir.BoolNot:
	default:
		return nil, &CompileError{
			Field:   "operator",
			Message: fmt.Sprintf("unknown boolean operator %q", opStr),
			Pos:     v.Pos(),
		}
	}

	childrenVal := v.LookupPath(cue.ParsePath("conditions"))
	if !childrenVal.Exists() {
		return nil, &CompileError{
			Field:   "conditions",
			Message: "compound condition requires a conditions list",
			Pos:     v.Pos(),
		}
	}
	iter, err := childrenVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var children []ir.Condition
	for iter.Next() {
		child, err := CompileCondition(iter.Value())
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	// not takes exactly one child; the evaluator treats anything else
	// as failure, so reject it at authoring time.
	if op == ir.BoolNot && len(children) != 1 {
		return nil, &CompileError{
			Field:   "conditions",
			Message: fmt.Sprintf("not requires exactly one child, got %d", len(children)),
			Pos:     v.Pos(),
		}
	}

	return ir.CompoundCondition{Operator: op, Conditions: children}, nil
}

func compileFunction(v cue.Value) (ir.Condition, error) {
	name, err := requireString(v, "function")
	if err != nil {
		return nil, err
	}
	fn := ir.FunctionName(name)
	if !ir.ValidFunctions[fn] {
		return nil, &CompileError{
			Field:   "function",
			Message: fmt.Sprintf("unknown function %q", name),
			Pos:     v.Pos(),
		}
	}

	params, err := decodeParams(v, "parameters")
	if err != nil {
		return nil, err
	}
	return ir.FunctionCondition{Name: fn, Parameters: params}, nil
}

func compileContextual(v cue.Value) (ir.Condition, error) {
	kindStr, err := requireString(v, "context_type")
	if err != nil {
		return nil, err
	}
	kind := ir.ContextKind(kindStr)
	if !ir.ValidContextKinds[kind] {
		return nil, &CompileError{
			Field:   "context_type",
			Message: fmt.Sprintf("unknown context type %q", kindStr),
			Pos:     v.Pos(),
		}
	}

	data, err := decodeParams(v, "data")
	if err != nil {
		return nil, err
	}
	return ir.ContextualCondition{Kind: kind, Data: data}, nil
}

// requireString looks up a struct field that must exist and be a
// string.
func requireString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// decodeParams decodes an optional struct field into a parameter map.
func decodeParams(v cue.Value, field string) (map[string]any, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	params := make(map[string]any)
	for iter.Next() {
		value, err := decodeAny(iter.Value())
		if err != nil {
			return nil, err
		}
		params[iter.Label()] = value
	}
	return params, nil
}

// decodeAny converts a concrete CUE value into the plain Go shape the
// evaluator consumes: string, bool, int64, float64, []any, or
// map[string]any.
func decodeAny(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return i, nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return f, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var list []any
		for iter.Next() {
			item, err := decodeAny(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m := make(map[string]any)
		for iter.Next() {
			item, err := decodeAny(iter.Value())
			if err != nil {
				return nil, err
			}
			m[iter.Label()] = item
		}
		return m, nil
	case cue.NullKind:
		return nil, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}
