package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/graph"
	"github.com/roach88/lore/internal/ir"
	"github.com/roach88/lore/internal/query"
)

// Recommendation preset floors. RecommendedEntities is QueryEntities
// with these soft criteria applied on top of the request.
const (
	recommendMinScore     = 0.3
	recommendMinAlignment = 0.1
)

// Engine composes the evaluator, graph, and query processor. Construct
// with New; safe for concurrent use.
type Engine struct {
	evaluator *eval.Evaluator
	graph     *graph.Graph
	processor *query.Processor
	source    query.Source
	logger    *slog.Logger

	// Usage counters, exposed via Statistics.
	entitiesEvaluated   atomic.Int64
	conditionsEvaluated atomic.Int64
	batchesProcessed    atomic.Int64
	queriesExecuted     atomic.Int64
}

// EngineOption configures engine construction.
type EngineOption func(*config)

type config struct {
	logger  *slog.Logger
	rand    eval.RandomSource
	weights *query.ScoreWeights
	decay   float64
}

// WithLogger sets the logger shared by the engine's components.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRandomSource injects the random source used by probability and
// dice_roll conditions. Tests pass a seeded or scripted source.
func WithRandomSource(r eval.RandomSource) EngineOption {
	return func(c *config) {
		c.rand = r
	}
}

// WithScoreWeights overrides the relevance score weights.
func WithScoreWeights(w query.ScoreWeights) EngineOption {
	return func(c *config) {
		c.weights = &w
	}
}

// WithDecayFactor overrides the per-hop strength decay used for
// indirect relationship discovery.
func WithDecayFactor(decay float64) EngineOption {
	return func(c *config) {
		c.decay = decay
	}
}

// New creates an Engine over the given candidate source.
func New(source query.Source, opts ...EngineOption) (*Engine, error) {
	cfg := config{
		logger: slog.Default(),
		decay:  graph.DefaultDecayFactor,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	evalOpts := []eval.Option{eval.WithLogger(cfg.logger)}
	if cfg.rand != nil {
		evalOpts = append(evalOpts, eval.WithRandomSource(cfg.rand))
	}
	evaluator := eval.New(evalOpts...)

	g := graph.New(
		graph.WithLogger(cfg.logger),
		graph.WithDecayFactor(cfg.decay),
	)

	procOpts := []query.Option{query.WithLogger(cfg.logger)}
	if cfg.weights != nil {
		procOpts = append(procOpts, query.WithScoreWeights(*cfg.weights))
	}
	processor, err := query.NewProcessor(source, evaluator, g, procOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		evaluator: evaluator,
		graph:     g,
		processor: processor,
		source:    source,
		logger:    cfg.logger,
	}, nil
}

// Graph exposes the relationship graph for direct traversal calls.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// EntityResult is the outcome of evaluating one entity's conditions.
type EntityResult struct {
	EntityID string      `json:"entity_id"`
	Success  bool        `json:"success"`
	Report   eval.Report `json:"report"`
}

// EvaluateEntity runs the entity's conditions against the state and
// reports pass/fail counts. Errors inside individual conditions are
// recorded on the report, not returned; an empty condition set passes.
func (e *Engine) EvaluateEntity(ctx *eval.Context, entityID string, conds []ir.Condition) EntityResult {
	report := e.evaluator.EvaluateAll(ctx, conds)
	e.entitiesEvaluated.Add(1)
	e.conditionsEvaluated.Add(int64(report.Evaluated))
	return EntityResult{
		EntityID: entityID,
		Success:  report.AllPassed(),
		Report:   report,
	}
}

// BatchItem pairs an entity with the conditions to evaluate for it.
type BatchItem struct {
	EntityID   string         `json:"entity_id"`
	Conditions []ir.Condition `json:"conditions"`
}

// BatchResult aggregates per-entity results. Items fail independently;
// one entity's errors never affect its siblings.
type BatchResult struct {
	TotalProcessed int            `json:"total_processed"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	Results        []EntityResult `json:"results"`
}

// BatchProcessEntities evaluates each item against the same state
// snapshot. Results keep the input order.
func (e *Engine) BatchProcessEntities(ctx *eval.Context, items []BatchItem) BatchResult {
	batch := BatchResult{
		TotalProcessed: len(items),
		Results:        make([]EntityResult, 0, len(items)),
	}
	for _, item := range items {
		result := e.EvaluateEntity(ctx, item.EntityID, item.Conditions)
		if result.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
		batch.Results = append(batch.Results, result)
	}
	e.batchesProcessed.Add(1)
	return batch
}

// QueryEntities runs the full query pipeline. The returned error is a
// hard pipeline failure; no matches is a successful empty result.
func (e *Engine) QueryEntities(ctx *eval.Context, filter ir.QueryFilter, opts ir.QueryOptions) (ir.QueryResult, error) {
	e.queriesExecuted.Add(1)
	return e.processor.Query(ctx, filter, opts)
}

// RecommendedEntities is a query preset: candidates of one kind, soft
// floors on relevance score and player alignment, sorted by relevance.
func (e *Engine) RecommendedEntities(ctx *eval.Context, kind ir.EntityKind, maxResults int) (ir.QueryResult, error) {
	filter := ir.QueryFilter{
		AICriteria: &ir.AICriteria{
			MinScore:     recommendMinScore,
			MinAlignment: recommendMinAlignment,
		},
	}
	if kind != "" {
		filter.EntityKinds = []ir.EntityKind{kind}
	}
	opts := ir.QueryOptions{
		MaxResults: maxResults,
		SortBy:     ir.SortRelevance,
	}
	return e.QueryEntities(ctx, filter, opts)
}

// Availability reports whether an entity's gate conditions hold.
// Confidence is the fraction of conditions that evaluated true; an
// empty condition set is available with confidence 1.0.
type Availability struct {
	Available  bool    `json:"available"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence"`
}

// CheckEntityAvailability evaluates the entity's conditions and folds
// the report into an availability verdict.
func (e *Engine) CheckEntityAvailability(ctx *eval.Context, entityID string, conds []ir.Condition) Availability {
	result := e.EvaluateEntity(ctx, entityID, conds)
	avail := Availability{
		Available:  result.Success,
		Confidence: result.Report.Confidence(),
	}
	if !avail.Available {
		if len(result.Report.Errors) > 0 {
			avail.Reason = result.Report.Errors[0]
		} else {
			avail.Reason = fmt.Sprintf("%d of %d conditions failed",
				result.Report.Failed, result.Report.Evaluated)
		}
	}
	return avail
}

// FindEntityPath returns the shortest-hop path between two entities, or
// nil when none exists within maxHops.
func (e *Engine) FindEntityPath(fromID, toID string, maxHops int) *graph.Path {
	return e.graph.FindPath(fromID, toID, maxHops)
}

// AddRelationship inserts or updates a graph edge.
func (e *Engine) AddRelationship(rel ir.Relationship) error {
	return e.graph.AddRelationship(rel)
}

// RemoveRelationship removes edges between two entities. An empty type
// removes all types. Reports whether anything was removed.
func (e *Engine) RemoveRelationship(sourceID, targetID string, relType ir.RelationType) bool {
	return e.graph.RemoveRelationship(sourceID, targetID, relType)
}

// ExportGraph snapshots the graph in its serializable form.
func (e *Engine) ExportGraph() ir.GraphExport {
	return e.graph.Export()
}

// ImportGraph replaces the graph content from a snapshot.
func (e *Engine) ImportGraph(export ir.GraphExport) {
	e.graph.Import(export)
}

// ValidateGraph checks structural integrity without repairing.
func (e *Engine) ValidateGraph() graph.ValidationReport {
	return e.graph.Validate()
}

// GraphMetrics computes connectivity statistics over the current graph.
func (e *Engine) GraphMetrics() graph.Metrics {
	return e.graph.CalculateMetrics()
}

// Statistics is a point-in-time snapshot of engine activity.
type Statistics struct {
	EntitiesEvaluated   int64         `json:"entities_evaluated"`
	ConditionsEvaluated int64         `json:"conditions_evaluated"`
	BatchesProcessed    int64         `json:"batches_processed"`
	QueriesExecuted     int64         `json:"queries_executed"`
	CacheHits           int64         `json:"cache_hits"`
	CacheMisses         int64         `json:"cache_misses"`
	CachedResults       int           `json:"cached_results"`
	Graph               graph.Metrics `json:"graph"`
}

// Statistics reports usage counters, cache health, and graph metrics.
func (e *Engine) Statistics() Statistics {
	hits, misses, size := e.processor.CacheStats()
	return Statistics{
		EntitiesEvaluated:   e.entitiesEvaluated.Load(),
		ConditionsEvaluated: e.conditionsEvaluated.Load(),
		BatchesProcessed:    e.batchesProcessed.Load(),
		QueriesExecuted:     e.queriesExecuted.Load(),
		CacheHits:           hits,
		CacheMisses:         misses,
		CachedResults:       size,
		Graph:               e.graph.CalculateMetrics(),
	}
}

// ClearCaches drops all cached query results.
func (e *Engine) ClearCaches() {
	e.processor.ClearCache()
}
