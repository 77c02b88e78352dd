// Package query implements the filtered, ranked entity query processor.
//
// A query runs a fixed pipeline: candidate fetch, hard filters,
// condition evaluation, context factors, optional graph expansion,
// relevance scoring, soft criteria, sorting, truncation. Failures in
// the pipeline surface as hard errors - a broken query never returns
// partial ranked results - while an empty match is a successful empty
// result. The two are never conflated.
package query

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/graph"
	"github.com/roach88/lore/internal/ir"
)

// DefaultMaxResults bounds result lists when the caller sets no limit.
const DefaultMaxResults = 50

// Source supplies candidate entities. The engine never owns entity
// content; callers implement Source over their own storage.
type Source interface {
	// Candidates returns the candidate records for the given kinds.
	// An empty kind list means all kinds. The processor treats the
	// returned slice as read-only.
	Candidates(kinds []ir.EntityKind) []ir.Candidate

	// Candidate resolves a single entity by ID, for graph expansion.
	Candidate(id string) (ir.Candidate, bool)
}

// phaseRelevanceFloor is the per-phase story-relevance floor used by the
// story-appropriateness context factor. A documented default policy.
var phaseRelevanceFloor = map[ir.SessionPhase]float64{
	ir.PhaseExploration: 0.2,
	ir.PhaseCombat:      0.4,
	ir.PhaseSocial:      0.3,
	ir.PhaseRest:        0.1,
}

// Defaults for context-factor floors when the filter leaves them unset.
const (
	defaultTurnSpacing = 3
	defaultMinHP       = 20.0
	defaultMinMP       = 10.0
)

// Processor executes queries. Construct with NewProcessor; safe for
// concurrent use.
type Processor struct {
	source    Source
	evaluator *eval.Evaluator
	graph     *graph.Graph
	cache     *resultCache
	weights   ScoreWeights
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithScoreWeights overrides the relevance weights.
func WithScoreWeights(w ScoreWeights) Option {
	return func(p *Processor) {
		p.weights = w
	}
}

// WithLogger sets the processor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor and registers its cache invalidation
// on the graph: every graph mutation clears cached results wholesale.
func NewProcessor(source Source, evaluator *eval.Evaluator, g *graph.Graph, opts ...Option) (*Processor, error) {
	p := &Processor{
		source:    source,
		evaluator: evaluator,
		graph:     g,
		cache:     newResultCache(),
		weights:   DefaultScoreWeights(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.weights.Validate(); err != nil {
		return nil, err
	}
	g.OnMutation(func(sourceID, targetID string) {
		p.cache.clear()
	})
	return p, nil
}

// ClearCache drops all cached results.
func (p *Processor) ClearCache() {
	p.cache.clear()
}

// CacheStats returns (hits, misses, size).
func (p *Processor) CacheStats() (int64, int64, int) {
	return p.cache.stats()
}

// Query runs the full pipeline. The returned error is a hard failure;
// an empty result with a nil error means nothing matched.
func (p *Processor) Query(ctx *eval.Context, filter ir.QueryFilter, opts ir.QueryOptions) (ir.QueryResult, error) {
	start := time.Now()

	fingerprint := ""
	if !opts.NoCache {
		fp, err := ir.QueryFingerprint(filter, ctx.State, sideChannels(ctx), opts)
		if err != nil {
			return ir.QueryResult{}, fmt.Errorf("query fingerprint: %w", err)
		}
		fingerprint = fp
		if cached, ok := p.cache.get(fingerprint); ok {
			cached.Metadata.CacheHit = true
			return cached, nil
		}
	}

	candidates := p.source.Candidates(filter.EntityKinds)
	fetched := len(candidates)

	survivors := make([]ir.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := p.admit(ctx, &c, &filter)
		if err != nil {
			return ir.QueryResult{}, fmt.Errorf("filter %s: %w", c.ID, err)
		}
		if ok {
			survivors = append(survivors, c)
		}
	}

	expanded := false
	if opts.ExpandRelated {
		var err error
		survivors, expanded, err = p.expand(ctx, survivors, &filter)
		if err != nil {
			return ir.QueryResult{}, fmt.Errorf("expand related: %w", err)
		}
	}

	scores := make(map[string]float64, len(survivors))
	for i := range survivors {
		scores[survivors[i].ID] = relevanceScore(&survivors[i], &filter, &ctx.State, p.weights)
	}

	if filter.AICriteria != nil {
		survivors = p.applyCriteria(ctx, survivors, scores, filter.AICriteria)
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = ir.SortRelevance
	}
	sortCandidates(survivors, scores, sortBy)

	total := len(survivors)
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if len(survivors) > maxResults {
		survivors = survivors[:maxResults]
	}

	finalScores := make(map[string]float64, len(survivors))
	for _, c := range survivors {
		finalScores[c.ID] = scores[c.ID]
	}

	result := ir.QueryResult{
		Entities:        survivors,
		TotalCount:      total,
		RelevanceScores: finalScores,
		ExecutionTimeMS: float64(time.Since(start).Microseconds()) / 1000.0,
		Metadata: ir.QueryResultMeta{
			Expanded:       expanded,
			SortedBy:       sortBy,
			CandidateCount: fetched,
		},
	}

	if fingerprint != "" {
		p.cache.put(fingerprint, result)
	}
	return result, nil
}

// admit applies the hard filters, filter-level conditions, candidate
// conditions, and context factors, in pipeline order.
func (p *Processor) admit(ctx *eval.Context, c *ir.Candidate, filter *ir.QueryFilter) (bool, error) {
	// Hard filters.
	if len(filter.Tags) > 0 {
		found := false
		for _, tag := range filter.Tags {
			if c.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	if filter.MinPriority > 0 && c.Priority < filter.MinPriority {
		return false, nil
	}
	if filter.Location != "" && c.Location != "" && c.Location != filter.Location {
		return false, nil
	}
	if tc := filter.TimeConstraints; tc != nil {
		now := ctx.State.World.Time
		if tc.NotBefore != 0 && now < tc.NotBefore {
			return false, nil
		}
		if tc.NotAfter != 0 && now > tc.NotAfter {
			return false, nil
		}
	}

	// Filter-level conditions: all must pass. A malformed condition is
	// warn-and-false per evaluator contract, not a pipeline failure.
	for _, cond := range filter.Conditions {
		if !p.evaluator.Evaluate(ctx, cond) {
			return false, nil
		}
	}

	// Candidate-carried gate conditions.
	for _, cond := range c.Conditions {
		if !p.evaluator.Evaluate(ctx, cond) {
			return false, nil
		}
	}

	if cf := filter.ContextFactors; cf != nil {
		if !p.contextAdmit(ctx, c, cf) {
			return false, nil
		}
	}
	return true, nil
}

// contextAdmit applies the boolean context-factor predicates.
func (p *Processor) contextAdmit(ctx *eval.Context, c *ir.Candidate, cf *ir.ContextFactors) bool {
	if cf.StoryAppropriate {
		if c.StoryRelevance < phaseRelevanceFloor[ctx.State.Session.Phase] {
			return false
		}
	}
	if cf.PlayerReady {
		if ctx.State.Player.Level < c.RequiredLevel {
			return false
		}
	}
	if cf.DramaticTiming {
		spacing := cf.MinTurnSpacing
		if spacing <= 0 {
			spacing = defaultTurnSpacing
		}
		if last, ok := ctx.LastEventTurn[c.ID]; ok {
			if ctx.State.Session.Turn-last < spacing {
				return false
			}
		}
	}
	if cf.ResourceAvailable {
		minHP := cf.MinHP
		if minHP == 0 {
			minHP = defaultMinHP
		}
		minMP := cf.MinMP
		if minMP == 0 {
			minMP = defaultMinMP
		}
		if ctx.State.Player.HP < minHP || ctx.State.Player.MP < minMP {
			return false
		}
	}
	return true
}

// expand pulls graph-related entities into the candidate set. Related
// IDs must resolve through the source and pass the same admission as
// the originals.
func (p *Processor) expand(ctx *eval.Context, survivors []ir.Candidate, filter *ir.QueryFilter) ([]ir.Candidate, bool, error) {
	seen := make(map[string]bool, len(survivors))
	for _, c := range survivors {
		seen[c.ID] = true
	}

	expanded := false
	for _, c := range survivors {
		for _, rel := range p.graph.EntityRelationships(c.ID, false) {
			if seen[rel.TargetID] {
				continue
			}
			seen[rel.TargetID] = true
			related, ok := p.source.Candidate(rel.TargetID)
			if !ok {
				continue
			}
			// Expansion deliberately crosses the requested kinds: a
			// quest query may pull in a related item. The remaining
			// admission gates still apply.
			admit, err := p.admit(ctx, &related, filter)
			if err != nil {
				return nil, false, err
			}
			if admit {
				survivors = append(survivors, related)
				expanded = true
			}
		}
	}
	return survivors, expanded, nil
}

func kindRequested(kinds []ir.EntityKind, kind ir.EntityKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// sideChannels collects the evaluation inputs that live outside the
// state snapshot, for inclusion in the cache fingerprint. Conditions
// and context factors read these, so two queries differing only here
// must not share a cache entry.
func sideChannels(ctx *eval.Context) map[string]any {
	side := map[string]any{}
	if len(ctx.BehaviorScores) > 0 {
		side["behavior_scores"] = ctx.BehaviorScores
	}
	if len(ctx.Positions) > 0 {
		positions := make(map[string]any, len(ctx.Positions))
		for id, pos := range ctx.Positions {
			positions[id] = map[string]any{"x": pos.X, "y": pos.Y}
		}
		side["positions"] = positions
	}
	if len(ctx.LastEventTurn) > 0 {
		turns := make(map[string]any, len(ctx.LastEventTurn))
		for id, turn := range ctx.LastEventTurn {
			turns[id] = turn
		}
		side["last_event_turn"] = turns
	}
	return side
}

// applyCriteria enforces the soft numeric bounds on scored survivors.
// Alignment reads the player's relationship strength with the entity;
// difficulty compares the required level against the target.
func (p *Processor) applyCriteria(ctx *eval.Context, survivors []ir.Candidate, scores map[string]float64, ac *ir.AICriteria) []ir.Candidate {
	kept := survivors[:0]
	for _, c := range survivors {
		score := scores[c.ID]
		if ac.MinScore > 0 && score < ac.MinScore {
			continue
		}
		if ac.MaxScore > 0 && score > ac.MaxScore {
			continue
		}
		if ac.MinAlignment > 0 && ctx.State.Player.Relationships[c.ID] < ac.MinAlignment {
			continue
		}
		if ac.MinStoryRelevance > 0 && c.StoryRelevance < ac.MinStoryRelevance {
			continue
		}
		if ac.DifficultyTolerance > 0 {
			if math.Abs(float64(c.RequiredLevel)-ac.TargetDifficulty) > ac.DifficultyTolerance {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// sortCandidates orders by the requested strategy. Sorting is stable,
// so equally ranked candidates keep their original order - that is the
// documented secondary tie-break. An unrecognized strategy leaves the
// order unchanged.
func sortCandidates(candidates []ir.Candidate, scores map[string]float64, strategy ir.SortStrategy) {
	switch strategy {
	case ir.SortRelevance, "":
		sort.SliceStable(candidates, func(i, j int) bool {
			return scores[candidates[i].ID] > scores[candidates[j].ID]
		})
	case ir.SortPriority:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Priority > candidates[j].Priority
		})
	case ir.SortTimestamp:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Timestamp.After(candidates[j].Timestamp)
		})
	default:
		// Stable no-op, not an error.
	}
}
