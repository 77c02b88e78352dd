package eval

import (
	"fmt"
	"log/slog"

	"github.com/roach88/lore/internal/ir"
)

// Evaluator evaluates condition expressions against game state snapshots.
//
// Evaluate never panics and never returns an error to the caller: the
// contract is a plain boolean, with malformed input logged and resolved
// to false. EvaluateDetailed exposes the underlying error for callers
// that record per-condition failures (batch processing, availability).
//
// Thread-safety: an Evaluator is immutable after construction and safe
// for concurrent use; all per-call state lives in the Context.
type Evaluator struct {
	logger *slog.Logger
	rand   RandomSource
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the evaluator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithRandomSource sets the default random source used when a context
// carries none.
func WithRandomSource(src RandomSource) Option {
	return func(e *Evaluator) {
		e.rand = src
	}
}

// New creates an Evaluator with an OS-seeded random source and the
// default slog logger.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger: slog.Default(),
		rand:   NewRandomSource(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate resolves a condition to a boolean. Errors are logged at warn
// and resolve to false.
func (e *Evaluator) Evaluate(ctx *Context, cond ir.Condition) bool {
	ok, err := e.eval(ctx, cond)
	if err != nil {
		e.logger.Warn("condition resolved to false", "error", err)
		return false
	}
	return ok
}

// EvaluateDetailed resolves a condition and surfaces the evaluation
// error, if any. A non-nil error always pairs with a false result.
func (e *Evaluator) EvaluateDetailed(ctx *Context, cond ir.Condition) (bool, error) {
	ok, err := e.eval(ctx, cond)
	if err != nil {
		e.logger.Warn("condition resolved to false", "error", err)
		return false, err
	}
	return ok, nil
}

// Report summarizes the evaluation of a condition set. Confidence for
// availability checks is Passed/Evaluated.
type Report struct {
	Evaluated int      `json:"evaluated"`
	Passed    int      `json:"passed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// AllPassed reports whether every evaluated condition passed.
func (r *Report) AllPassed() bool {
	return r.Failed == 0
}

// Confidence returns the fraction of conditions that passed. An empty
// condition set is fully confident: nothing gated the entity.
func (r *Report) Confidence() float64 {
	if r.Evaluated == 0 {
		return 1.0
	}
	return float64(r.Passed) / float64(r.Evaluated)
}

// EvaluateAll runs every condition independently; one failing or
// erroring entry never aborts the rest. Errors are accumulated as
// strings on the report and counted as failed conditions.
func (e *Evaluator) EvaluateAll(ctx *Context, conds []ir.Condition) Report {
	report := Report{Evaluated: len(conds)}
	for i, cond := range conds {
		ok, err := e.eval(ctx, cond)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("condition[%d]: %v", i, err))
			continue
		}
		if ok {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report
}

// eval is the internal dispatch over the sealed condition sum type. It
// returns an error only for malformed input; a legitimate false is not
// an error.
func (e *Evaluator) eval(ctx *Context, cond ir.Condition) (bool, error) {
	switch c := cond.(type) {
	case ir.SimpleCondition:
		return e.evalSimple(ctx, c)
	case ir.CompoundCondition:
		return e.evalCompound(ctx, c)
	case ir.FunctionCondition:
		return e.evalFunction(ctx, c)
	case ir.ContextualCondition:
		return e.evalContextual(ctx, c)
	case nil:
		return false, fmt.Errorf("nil condition")
	default:
		// Unreachable for values built in Go; the sum type is sealed.
		return false, fmt.Errorf("unknown condition variant %T", cond)
	}
}

func (e *Evaluator) evalSimple(ctx *Context, c ir.SimpleCondition) (bool, error) {
	resolved, found := resolvePath(ctx.State, c.Field)
	if !found {
		resolved = nil
	}
	ok, err := compare(resolved, c.Operator, c.Value)
	if err != nil {
		return false, fmt.Errorf("field %q: %w", c.Field, err)
	}
	return ok, nil
}

// evalCompound applies boolean composition with short-circuiting.
// Empty child lists are false for both and/or: an empty gate is
// vacuously unsatisfiable, which favors conservative gating.
func (e *Evaluator) evalCompound(ctx *Context, c ir.CompoundCondition) (bool, error) {
	switch c.Operator {
	case ir.BoolAnd:
		if len(c.Conditions) == 0 {
			return false, nil
		}
		for _, child := range c.Conditions {
			ok, err := e.eval(ctx, child)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case ir.BoolOr:
		if len(c.Conditions) == 0 {
			return false, nil
		}
		for _, child := range c.Conditions {
			ok, err := e.eval(ctx, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case ir.BoolNot:
		if len(c.Conditions) != 1 {
			return false, fmt.Errorf("not requires exactly one child, got %d", len(c.Conditions))
		}
		ok, err := e.eval(ctx, c.Conditions[0])
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("unknown boolean operator %q", c.Operator)
	}
}
