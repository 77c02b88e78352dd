package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/graph"
	"github.com/roach88/lore/internal/ir"
	"github.com/roach88/lore/internal/testutil"
)

func newTestProcessor(t *testing.T, source Source) (*Processor, *graph.Graph) {
	t.Helper()
	g := graph.New()
	p, err := NewProcessor(source, eval.New(), g)
	require.NoError(t, err)
	return p, g
}

func evalCtx(state ir.GameState) *eval.Context {
	return &eval.Context{State: state}
}

func TestQuery_HardFilters(t *testing.T) {
	source := NewStaticSource(
		ir.Candidate{ID: "quest_a", Priority: 80, Tags: []string{"main", "dragon"}},
		ir.Candidate{ID: "quest_b", Priority: 20, Tags: []string{"side"}},
		ir.Candidate{ID: "item_c", Priority: 90, Tags: []string{"main"}, Location: "crypt"},
		ir.Candidate{ID: "npc_d", Priority: 70, Tags: []string{"main"}},
	)
	p, _ := newTestProcessor(t, source)
	ctx := evalCtx(testutil.NewState().Build())

	result, err := p.Query(ctx, ir.QueryFilter{
		Tags:        []string{"main"},
		MinPriority: 50,
		Location:    "village_square",
	}, ir.QueryOptions{})
	require.NoError(t, err)

	ids := resultIDs(result)
	// quest_b fails both tag and priority; item_c is pinned elsewhere.
	assert.ElementsMatch(t, []string{"quest_a", "npc_d"}, ids)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 4, result.Metadata.CandidateCount)
}

func TestQuery_KindSelection(t *testing.T) {
	source := NewStaticSource(
		ir.Candidate{ID: "quest_a"},
		ir.Candidate{ID: "item_b"},
		ir.Candidate{ID: "enemy_c"},
	)
	p, _ := newTestProcessor(t, source)
	ctx := evalCtx(testutil.NewState().Build())

	result, err := p.Query(ctx, ir.QueryFilter{EntityKinds: []ir.EntityKind{ir.KindQuest, ir.KindItem}}, ir.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"quest_a", "item_b"}, resultIDs(result))
}

func TestQuery_ConditionsAllMustPass(t *testing.T) {
	source := NewStaticSource(ir.Candidate{ID: "quest_a"})
	p, _ := newTestProcessor(t, source)
	ctx := evalCtx(testutil.NewState().Level(5).Build())

	pass := ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterEqual, Value: 3}
	fail := ir.SimpleCondition{Field: "player.level", Operator: ir.OpGreaterEqual, Value: 10}

	result, err := p.Query(ctx, ir.QueryFilter{Conditions: []ir.Condition{pass, fail}}, ir.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Entities, "one failing condition rejects the candidate")

	result, err = p.Query(ctx, ir.QueryFilter{Conditions: []ir.Condition{pass}}, ir.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Entities, 1)
}

func TestQuery_CandidateGateConditions(t *testing.T) {
	gated := ir.Candidate{ID: "event_ambush", Conditions: []ir.Condition{
		ir.SimpleCondition{Field: "session.phase", Operator: ir.OpEquals, Value: "combat"},
	}}
	p, _ := newTestProcessor(t, NewStaticSource(gated))

	exploring := evalCtx(testutil.NewState().Phase(ir.PhaseExploration).Build())
	result, err := p.Query(exploring, ir.QueryFilter{}, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Empty(t, result.Entities)

	fighting := evalCtx(testutil.NewState().Phase(ir.PhaseCombat).Build())
	result, err = p.Query(fighting, ir.QueryFilter{}, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Len(t, result.Entities, 1)
}

func TestQuery_ContextFactors(t *testing.T) {
	source := NewStaticSource(
		ir.Candidate{ID: "quest_hard", RequiredLevel: 20, StoryRelevance: 0.9},
		ir.Candidate{ID: "quest_easy", RequiredLevel: 2, StoryRelevance: 0.9},
		ir.Candidate{ID: "quest_flat", RequiredLevel: 2, StoryRelevance: 0.05},
	)
	p, _ := newTestProcessor(t, source)
	ctx := evalCtx(testutil.NewState().Level(5).Phase(ir.PhaseExploration).Build())

	result, err := p.Query(ctx, ir.QueryFilter{
		ContextFactors: &ir.ContextFactors{StoryAppropriate: true, PlayerReady: true},
	}, ir.QueryOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"quest_easy"}, resultIDs(result))
}

func TestQuery_DramaticTimingSpacing(t *testing.T) {
	source := NewStaticSource(ir.Candidate{ID: "event_twist"})
	p, _ := newTestProcessor(t, source)

	ctx := evalCtx(testutil.NewState().Turn(10).Build())
	ctx.LastEventTurn = map[string]int{"event_twist": 9}

	filter := ir.QueryFilter{ContextFactors: &ir.ContextFactors{DramaticTiming: true}}
	result, err := p.Query(ctx, filter, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Empty(t, result.Entities, "fired one turn ago, default spacing is 3")

	ctx.LastEventTurn["event_twist"] = 5
	result, err = p.Query(ctx, filter, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Len(t, result.Entities, 1)
}

func TestQuery_ResourceAvailability(t *testing.T) {
	source := NewStaticSource(ir.Candidate{ID: "event_boss"})
	p, _ := newTestProcessor(t, source)
	filter := ir.QueryFilter{ContextFactors: &ir.ContextFactors{ResourceAvailable: true, MinHP: 50}}

	weak := evalCtx(testutil.NewState().HP(30).Build())
	result, err := p.Query(weak, filter, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Empty(t, result.Entities)

	healthy := evalCtx(testutil.NewState().HP(80).Build())
	result, err = p.Query(healthy, filter, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Len(t, result.Entities, 1)
}

func TestQuery_ScoreAlwaysBounded(t *testing.T) {
	source := NewStaticSource(
		ir.Candidate{ID: "a", Priority: 1000, Tags: []string{"x"}, Location: "village_square", StoryRelevance: 5},
		ir.Candidate{ID: "b"},
		ir.Candidate{ID: "c", Priority: -50},
	)
	p, _ := newTestProcessor(t, source)
	ctx := evalCtx(testutil.NewState().Build())

	for _, filter := range []ir.QueryFilter{{}, {Tags: []string{"x"}}} {
		result, err := p.Query(ctx, filter, ir.QueryOptions{NoCache: true})
		require.NoError(t, err)
		for id, score := range result.RelevanceScores {
			assert.GreaterOrEqual(t, score, 0.0, "score for %s", id)
			assert.LessOrEqual(t, score, 1.0, "score for %s", id)
		}
	}
}

func TestQuery_TruncationIsDeterministic(t *testing.T) {
	var candidates []ir.Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, ir.Candidate{ID: fmt.Sprintf("npc_%02d", i), Priority: 50})
	}
	p, _ := newTestProcessor(t, NewStaticSource(candidates...))
	ctx := evalCtx(testutil.NewState().Build())

	result, err := p.Query(ctx, ir.QueryFilter{}, ir.QueryOptions{MaxResults: 2})
	require.NoError(t, err)

	require.Len(t, result.Entities, 2)
	assert.Equal(t, 10, result.TotalCount)
	// Equal scores: stable sort keeps original insertion order.
	assert.Equal(t, []string{"npc_00", "npc_01"}, resultIDs(result))
}

func TestQuery_SortStrategies(t *testing.T) {
	now := testutil.NewState().Build()
	source := NewStaticSource(
		ir.Candidate{ID: "a", Priority: 10, Timestamp: mustTime("2026-01-03")},
		ir.Candidate{ID: "b", Priority: 90, Timestamp: mustTime("2026-01-01")},
		ir.Candidate{ID: "c", Priority: 50, Timestamp: mustTime("2026-01-02")},
	)
	p, _ := newTestProcessor(t, source)
	ctx := evalCtx(now)

	result, err := p.Query(ctx, ir.QueryFilter{}, ir.QueryOptions{SortBy: ir.SortPriority, NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, resultIDs(result))

	result, err = p.Query(ctx, ir.QueryFilter{}, ir.QueryOptions{SortBy: ir.SortTimestamp, NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, resultIDs(result))

	// Unknown strategy: stable no-op, not an error.
	result, err = p.Query(ctx, ir.QueryFilter{}, ir.QueryOptions{SortBy: "astrological", NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, resultIDs(result))
}

func TestQuery_AICriteria(t *testing.T) {
	source := NewStaticSource(
		ir.Candidate{ID: "quest_aligned", Priority: 90, RequiredLevel: 5, StoryRelevance: 0.9},
		ir.Candidate{ID: "quest_stranger", Priority: 90, RequiredLevel: 5, StoryRelevance: 0.9},
		ir.Candidate{ID: "quest_deadly", Priority: 90, RequiredLevel: 30, StoryRelevance: 0.9},
	)
	p, _ := newTestProcessor(t, source)

	ctx := evalCtx(testutil.NewState().Level(5).Relationship("quest_aligned", 0.8).Build())

	result, err := p.Query(ctx, ir.QueryFilter{
		AICriteria: &ir.AICriteria{
			MinAlignment:        0.5,
			TargetDifficulty:    5,
			DifficultyTolerance: 5,
		},
	}, ir.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"quest_aligned"}, resultIDs(result))
}

func TestQuery_GraphExpansion(t *testing.T) {
	source := NewStaticSource(
		ir.Candidate{ID: "quest_main", Kind: ir.KindQuest},
		ir.Candidate{ID: "item_relic", Kind: ir.KindItem}, // outside the quest fetch
		ir.Candidate{ID: "item_cursed", Kind: ir.KindItem, Tags: []string{"cursed"}},
	)
	p, g := newTestProcessor(t, source)
	require.NoError(t, g.AddRelationship(testutil.Rel("quest_main", "item_relic", ir.RelDependency, 0.9)))
	require.NoError(t, g.AddRelationship(testutil.Rel("quest_main", "item_cursed", ir.RelDependency, 0.8)))

	ctx := evalCtx(testutil.NewState().Build())
	questsOnly := ir.QueryFilter{EntityKinds: []ir.EntityKind{ir.KindQuest}}

	// Without expansion the kind filter keeps the related items out.
	result, err := p.Query(ctx, questsOnly, ir.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"quest_main"}, resultIDs(result))
	assert.False(t, result.Metadata.Expanded)

	// Expansion crosses kinds: related entities outside the fetched set
	// come in through the source lookup.
	result, err = p.Query(ctx, questsOnly, ir.QueryOptions{ExpandRelated: true, NoCache: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"quest_main", "item_relic", "item_cursed"}, resultIDs(result))
	assert.True(t, result.Metadata.Expanded)

	// Expanded entities still pass the remaining admission gates: a tag
	// filter that quest_main carries no tags for blocks everything, and
	// one matching only the quest blocks the untagged relic.
	withTag := ir.QueryFilter{EntityKinds: []ir.EntityKind{ir.KindQuest}, Tags: []string{"cursed"}}
	result, err = p.Query(ctx, withTag, ir.QueryOptions{ExpandRelated: true, NoCache: true})
	require.NoError(t, err)
	assert.Empty(t, resultIDs(result))
}

func TestQuery_CacheKeyedOnConditionState(t *testing.T) {
	source := NewStaticSource(ir.Candidate{ID: "event_gate", Kind: ir.KindEvent})
	p, _ := newTestProcessor(t, source)

	filter := ir.QueryFilter{
		EntityKinds: []ir.EntityKind{ir.KindEvent},
		Conditions: []ir.Condition{
			ir.SimpleCondition{Field: "world.flags.gate_open", Operator: ir.OpEquals, Value: true},
		},
	}

	closed := evalCtx(testutil.NewState().Flag("gate_open", false).Build())
	result, err := p.Query(closed, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, resultIDs(result))

	// Same filter, changed flag: must not reuse the closed-gate entry.
	open := evalCtx(testutil.NewState().Flag("gate_open", true).Build())
	result, err = p.Query(open, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, result.Metadata.CacheHit)
	assert.Equal(t, []string{"event_gate"}, resultIDs(result))

	// The closed-gate entry itself is still warm.
	result, err = p.Query(closed, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, result.Metadata.CacheHit)
	assert.Empty(t, resultIDs(result))
}

func TestQuery_CacheKeyedOnLastEventTurns(t *testing.T) {
	source := NewStaticSource(ir.Candidate{ID: "event_ambush", Kind: ir.KindEvent})
	p, _ := newTestProcessor(t, source)

	filter := ir.QueryFilter{
		EntityKinds:    []ir.EntityKind{ir.KindEvent},
		ContextFactors: &ir.ContextFactors{DramaticTiming: true, MinTurnSpacing: 3},
	}
	state := testutil.NewState().Turn(10).Build()

	recent := evalCtx(state)
	recent.LastEventTurn = map[string]int{"event_ambush": 9}
	result, err := p.Query(recent, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, resultIDs(result))

	// Same state and filter; only the side channel moved. The spacing
	// now clears and the stale empty result must not be served.
	rested := evalCtx(state)
	rested.LastEventTurn = map[string]int{"event_ambush": 2}
	result, err = p.Query(rested, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, result.Metadata.CacheHit)
	assert.Equal(t, []string{"event_ambush"}, resultIDs(result))
}

func TestQuery_CacheHitAndInvalidation(t *testing.T) {
	source := NewStaticSource(ir.Candidate{ID: "quest_a", Priority: 60})
	p, g := newTestProcessor(t, source)
	ctx := evalCtx(testutil.NewState().Build())
	filter := ir.QueryFilter{MinPriority: 10}

	first, err := p.Query(ctx, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, first.Metadata.CacheHit)

	second, err := p.Query(ctx, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Entities, second.Entities)

	// Any graph mutation invalidates wholesale.
	require.NoError(t, g.AddRelationship(testutil.Rel("x", "y", ir.RelSynergy, 0.5)))
	third, err := p.Query(ctx, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, third.Metadata.CacheHit)

	// Explicit clear too.
	_, err = p.Query(ctx, filter, ir.QueryOptions{})
	require.NoError(t, err)
	p.ClearCache()
	fourth, err := p.Query(ctx, filter, ir.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, fourth.Metadata.CacheHit)
}

func TestQuery_EmptyMatchIsSuccess(t *testing.T) {
	p, _ := newTestProcessor(t, NewStaticSource())
	ctx := evalCtx(testutil.NewState().Build())

	result, err := p.Query(ctx, ir.QueryFilter{}, ir.QueryOptions{})
	require.NoError(t, err, "no entities matched is a successful empty result")
	assert.Empty(t, result.Entities)
	assert.Equal(t, 0, result.TotalCount)
}

func TestNewProcessor_RejectsBadWeights(t *testing.T) {
	g := graph.New()
	_, err := NewProcessor(NewStaticSource(), eval.New(), g,
		WithScoreWeights(ScoreWeights{Priority: 0.9, TagOverlap: 0.9}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestScoreWeights_DefaultsSumToOne(t *testing.T) {
	require.NoError(t, DefaultScoreWeights().Validate())
}

func resultIDs(r ir.QueryResult) []string {
	ids := make([]string, len(r.Entities))
	for i, c := range r.Entities {
		ids[i] = c.ID
	}
	return ids
}

func mustTime(date string) (t time.Time) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}
