package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lore/internal/ir"
	"github.com/roach88/lore/internal/testutil"
)

func TestAddRelationship_Basics(t *testing.T) {
	g := New()

	err := g.AddRelationship(testutil.Rel("item_sword", "quest_dragon", ir.RelPrerequisite, 0.9))
	require.NoError(t, err)

	meta := g.Metadata()
	assert.Equal(t, 2, meta.TotalNodes)
	assert.Equal(t, 1, meta.TotalEdges)
	assert.False(t, meta.LastUpdated.IsZero())
}

func TestAddRelationship_RejectsSelfReference(t *testing.T) {
	g := New()

	err := g.AddRelationship(testutil.Rel("quest_a", "quest_a", ir.RelDependency, 0.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-referential")
	assert.Equal(t, 0, g.Metadata().TotalEdges)
}

func TestAddRelationship_ClampsStrength(t *testing.T) {
	g := New()

	rel := testutil.Rel("a", "b", ir.RelSynergy, 0.5)
	rel.Strength = 3.7
	require.NoError(t, g.AddRelationship(rel))

	got, ok := g.Relationship(ir.EdgeKey{SourceID: "a", TargetID: "b", Type: ir.RelSynergy})
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Strength)
}

func TestAddRelationship_IdempotentUpsert(t *testing.T) {
	g := New()

	first := testutil.Rel("a", "b", ir.RelDependency, 0.4)
	require.NoError(t, g.AddRelationship(first))

	// Same (source, target, type) with a new strength updates in place.
	second := testutil.Rel("a", "b", ir.RelDependency, 0.8)
	require.NoError(t, g.AddRelationship(second))

	assert.Equal(t, 1, g.Metadata().TotalEdges)
	got, ok := g.Relationship(first.Key())
	require.True(t, ok)
	assert.Equal(t, 0.8, got.Strength)
	assert.Equal(t, first.ID, got.ID, "upsert keeps the original edge ID")

	// A different type is a distinct edge.
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelSynergy, 0.5)))
	assert.Equal(t, 2, g.Metadata().TotalEdges)
}

func TestAddRelationship_GeneratesID(t *testing.T) {
	g := New()

	rel := ir.Relationship{SourceID: "a", TargetID: "b", Type: ir.RelConflict, Strength: 0.3}
	require.NoError(t, g.AddRelationship(rel))

	got, ok := g.Relationship(rel.Key())
	require.True(t, ok)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Metadata.CreatedAt.IsZero())
}

func TestRemoveRelationship(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelDependency, 0.5)))
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelSynergy, 0.5)))
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "c", ir.RelDependency, 0.5)))

	// Typed removal takes only the matching edge.
	assert.True(t, g.RemoveRelationship("a", "b", ir.RelSynergy))
	assert.Equal(t, 2, g.Metadata().TotalEdges)

	// Untyped removal takes every remaining a->b edge.
	assert.True(t, g.RemoveRelationship("a", "b", ""))
	assert.Equal(t, 1, g.Metadata().TotalEdges)

	// Nothing left to remove.
	assert.False(t, g.RemoveRelationship("a", "b", ""))
	assert.False(t, g.RemoveRelationship("missing", "b", ""))

	// Incoming index pruned with the edges.
	assert.Empty(t, g.EntityRelationships("b", true))
}

func TestEntityRelationships_SynthesizedIncoming(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("quest_a", "item_x", ir.RelDependency, 0.6)))
	require.NoError(t, g.AddRelationship(testutil.Rel("npc_b", "item_x", ir.RelSynergy, 0.4)))

	outgoingOnly := g.EntityRelationships("item_x", false)
	assert.Empty(t, outgoingOnly)

	all := g.EntityRelationships("item_x", true)
	require.Len(t, all, 2)
	for _, rel := range all {
		assert.Equal(t, "item_x", rel.SourceID, "incoming edges are synthesized with swapped direction")
	}
}

func TestEntityRelationships_UnknownNode(t *testing.T) {
	g := New()
	assert.Empty(t, g.EntityRelationships("ghost", true))
	assert.Empty(t, g.DependencyChain("ghost"))
	assert.Empty(t, g.CircularDependencies("ghost"))
	assert.Nil(t, g.FindPath("ghost", "also_ghost", 5))
	assert.Empty(t, g.IndirectRelationships("ghost", 3))
}

func TestFindPath_SelfIsZeroHops(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelSequence, 0.5)))

	p := g.FindPath("a", "a", 5)
	require.NotNil(t, p)
	assert.Equal(t, []string{"a"}, p.Nodes)
	assert.Equal(t, 0, p.Hops)
	assert.Equal(t, 1.0, p.Strength)
}

func TestFindPath_PrerequisiteScenario(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("item_sword", "quest_dragon", ir.RelPrerequisite, 0.9)))

	p := g.FindPath("item_sword", "quest_dragon", 5)
	require.NotNil(t, p)
	assert.Equal(t, []string{"item_sword", "quest_dragon"}, p.Nodes)
	assert.Equal(t, 1, p.Hops)
	assert.Equal(t, PathDirect, p.Type)
	assert.InDelta(t, 0.9, p.Strength, 1e-9)
}

func TestFindPath_ShortestHopsWinsOverStrongerLongPath(t *testing.T) {
	g := New()
	// Weak 2-hop path: a -> b -> z with strength 0.2 * 0.2.
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelSequence, 0.2)))
	require.NoError(t, g.AddRelationship(testutil.Rel("b", "z", ir.RelSequence, 0.2)))
	// Strong 3-hop path: a -> c -> d -> z with strength 1.0 each.
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "c", ir.RelSequence, 1.0)))
	require.NoError(t, g.AddRelationship(testutil.Rel("c", "d", ir.RelSequence, 1.0)))
	require.NoError(t, g.AddRelationship(testutil.Rel("d", "z", ir.RelSequence, 1.0)))

	p := g.FindPath("a", "z", 10)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Hops, "hop count is the tie-break policy, not strength")
	assert.Equal(t, []string{"a", "b", "z"}, p.Nodes)
	assert.InDelta(t, 0.04, p.Strength, 1e-9)
	assert.Equal(t, PathIndirect, p.Type)
}

func TestFindPath_RespectsMaxHopsAndClassifies(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("n1", "n2", ir.RelSequence, 1)))
	require.NoError(t, g.AddRelationship(testutil.Rel("n2", "n3", ir.RelSequence, 1)))
	require.NoError(t, g.AddRelationship(testutil.Rel("n3", "n4", ir.RelSequence, 1)))
	require.NoError(t, g.AddRelationship(testutil.Rel("n4", "n5", ir.RelSequence, 1)))

	assert.Nil(t, g.FindPath("n1", "n5", 3), "path needs 4 hops, bound is 3")

	p := g.FindPath("n1", "n5", 10)
	require.NotNil(t, p)
	assert.Equal(t, 4, p.Hops)
	assert.Equal(t, PathComplex, p.Type)
}

func TestFindPath_BidirectionalEdgeTraversableBothWays(t *testing.T) {
	g := New()
	rel := testutil.Rel("a", "b", ir.RelSynergy, 0.7)
	rel.Bidirectional = true
	require.NoError(t, g.AddRelationship(rel))

	p := g.FindPath("b", "a", 5)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Hops)
}

func TestDependencyChain(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("quest_main", "quest_intro", ir.RelDependency, 0.9)))
	require.NoError(t, g.AddRelationship(testutil.Rel("quest_intro", "item_map", ir.RelPrerequisite, 0.8)))
	// Non-dependency edges never enter the chain.
	require.NoError(t, g.AddRelationship(testutil.Rel("quest_main", "npc_guide", ir.RelSynergy, 0.5)))

	chain := g.DependencyChain("quest_main")
	assert.Equal(t, []string{"quest_intro", "item_map"}, chain)
}

func TestCircularDependencies_TwoNodeCycle(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("A", "B", ir.RelDependency, 0.5)))
	require.NoError(t, g.AddRelationship(testutil.Rel("B", "A", ir.RelDependency, 0.5)))

	cycles := g.CircularDependencies("A")
	require.NotEmpty(t, cycles)

	found := false
	for _, cycle := range cycles {
		hasA, hasB := false, false
		for _, node := range cycle {
			if node == "A" {
				hasA = true
			}
			if node == "B" {
				hasB = true
			}
		}
		if hasA && hasB {
			found = true
		}
	}
	assert.True(t, found, "expected a cycle containing both A and B, got %v", cycles)
}

func TestCircularDependencies_AcyclicIsEmpty(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("A", "B", ir.RelDependency, 0.5)))
	require.NoError(t, g.AddRelationship(testutil.Rel("B", "C", ir.RelDependency, 0.5)))

	assert.Empty(t, g.CircularDependencies("A"))
}

func TestIndirectRelationships_DecayAndCycleSafety(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelSequence, 1.0)))
	require.NoError(t, g.AddRelationship(testutil.Rel("b", "c", ir.RelSequence, 1.0)))
	require.NoError(t, g.AddRelationship(testutil.Rel("c", "a", ir.RelSequence, 1.0))) // cycle back

	indirect := g.IndirectRelationships("a", 3)
	require.Len(t, indirect, 1, "only a->c is indirect; the cycle must not expand")

	rel := indirect[0]
	assert.Equal(t, "a", rel.SourceID)
	assert.Equal(t, "c", rel.TargetID)
	assert.Equal(t, 2, rel.Depth)
	assert.Equal(t, []string{"a", "b", "c"}, rel.Path)
	// Unit edge strengths leave pure geometric decay: 0.8^2.
	assert.InDelta(t, 0.64, rel.Strength, 1e-9)
}

func TestIndirectRelationships_CustomDecay(t *testing.T) {
	g := New(WithDecayFactor(0.5))
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelSequence, 1.0)))
	require.NoError(t, g.AddRelationship(testutil.Rel("b", "c", ir.RelSequence, 1.0)))

	indirect := g.IndirectRelationships("a", 3)
	require.Len(t, indirect, 1)
	assert.InDelta(t, 0.25, indirect[0].Strength, 1e-9)
}

func TestExportImport_RoundTrip(t *testing.T) {
	g := New()
	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelDependency, 0.5)))
	require.NoError(t, g.AddRelationship(testutil.Rel("b", "c", ir.RelSynergy, 0.7)))
	require.NoError(t, g.AddRelationship(testutil.Rel("c", "a", ir.RelConflict, 0.2)))

	export := g.Export()

	g2 := New()
	g2.Import(export)

	assert.Equal(t, g.Metadata().TotalNodes, g2.Metadata().TotalNodes)
	assert.Equal(t, g.Metadata().TotalEdges, g2.Metadata().TotalEdges)
	assert.Equal(t, export.Relationships, g2.Export().Relationships)

	// The export is a deep copy: mutating it must not touch the graph.
	export.Relationships["a"][0].Strength = 0
	got, ok := g.Relationship(ir.EdgeKey{SourceID: "a", TargetID: "b", Type: ir.RelDependency})
	require.True(t, ok)
	assert.Equal(t, 0.5, got.Strength)
}

func TestMutationHooks(t *testing.T) {
	g := New()
	var touched []string
	g.OnMutation(func(sourceID, targetID string) {
		touched = append(touched, sourceID+"->"+targetID)
	})

	require.NoError(t, g.AddRelationship(testutil.Rel("a", "b", ir.RelDependency, 0.5)))
	g.RemoveRelationship("a", "b", "")

	assert.Equal(t, []string{"a->b", "a->b"}, touched)
}
