package harness

import (
	"github.com/roach88/lore/internal/engine"
	"github.com/roach88/lore/internal/graph"
	"github.com/roach88/lore/internal/ir"
)

// TraceEvent records the structural outcome of one step. Only stable,
// discrete facts go in the trace (IDs, order, hop counts, levels);
// computed float scores stay on the step outcome so golden files do
// not depend on float formatting.
type TraceEvent struct {
	Op        string   `json:"op"`
	Seq       int      `json:"seq"`
	EntityID  string   `json:"entity_id,omitempty"`
	Passed    *bool    `json:"passed,omitempty"`
	Available *bool    `json:"available,omitempty"`
	Matched   []string `json:"matched,omitempty"`
	PathNodes []string `json:"path_nodes,omitempty"`
	Hops      *int     `json:"hops,omitempty"`
	Impact    string   `json:"impact,omitempty"`
	Cycles    *int     `json:"cycles,omitempty"`
}

// StepOutcome holds the full typed result of one step for assertion
// evaluation. Exactly one result field is set, matching Op.
type StepOutcome struct {
	Op           string
	Eval         *engine.EntityResult
	Query        *ir.QueryResult
	Availability *engine.Availability
	Path         *graph.Path // nil after a find_path step means no path
	PathSearched bool
	Analysis     *engine.RelationshipAnalysis
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one structural event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists assertion failures. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Outcomes holds the typed step results, indexed by step.
	Outcomes []StepOutcome `json:"-"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(event TraceEvent) {
	event.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, event)
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
