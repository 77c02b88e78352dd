package eval

import (
	"fmt"
	"strings"

	"github.com/roach88/lore/internal/ir"
)

// compare applies a simple-condition operator. Negated operators are the
// exact complement of their positive form, so an absent (nil) resolved
// value fails every positive operator and passes every negated one, as
// standard negation semantics require.
func compare(resolved any, op ir.Operator, literal any) (bool, error) {
	switch op {
	case ir.OpEquals:
		return valuesEqual(resolved, literal), nil
	case ir.OpNotEquals:
		return !valuesEqual(resolved, literal), nil
	case ir.OpGreaterThan, ir.OpGreaterEqual, ir.OpLessThan, ir.OpLessEqual:
		return compareOrdered(resolved, op, literal)
	case ir.OpContains:
		return containsValue(resolved, literal), nil
	case ir.OpNotContains:
		return !containsValue(resolved, literal), nil
	case ir.OpIn:
		return inList(resolved, literal), nil
	case ir.OpNotIn:
		return !inList(resolved, literal), nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// compareOrdered handles the four ordering operators. Both sides must be
// numeric; ordering over non-numerics is an evaluation error, and an
// absent value is simply false (not an error).
func compareOrdered(resolved any, op ir.Operator, literal any) (bool, error) {
	if resolved == nil {
		return false, nil
	}
	a, aok := toFloat(resolved)
	b, bok := toFloat(literal)
	if !aok || !bok {
		return false, fmt.Errorf("operator %q requires numeric operands, got %T and %T", op, resolved, literal)
	}
	switch op {
	case ir.OpGreaterThan:
		return a > b, nil
	case ir.OpGreaterEqual:
		return a >= b, nil
	case ir.OpLessThan:
		return a < b, nil
	default:
		return a <= b, nil
	}
}

// valuesEqual compares with numeric coercion so that an int resolved
// from state equals a float64 decoded from JSON.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return toString(a) == toString(b)
}

// containsValue implements "contains": substring match for strings,
// element membership for slices.
func containsValue(container, elem any) bool {
	switch c := container.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(c, toString(elem))
	case []string:
		for _, v := range c {
			if valuesEqual(v, elem) {
				return true
			}
		}
		return false
	case []any:
		for _, v := range c {
			if valuesEqual(v, elem) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// inList implements "in": the resolved value is a member of the literal
// list.
func inList(resolved, literal any) bool {
	switch list := literal.(type) {
	case []any:
		for _, v := range list {
			if valuesEqual(resolved, v) {
				return true
			}
		}
	case []string:
		for _, v := range list {
			if valuesEqual(resolved, v) {
				return true
			}
		}
	}
	return false
}

// toFloat coerces the numeric types that reach the evaluator: state
// fields (int, float64) and JSON/CUE decoded literals (float64, int64).
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
