package engine

import (
	"github.com/roach88/lore/internal/graph"
	"github.com/roach88/lore/internal/ir"
)

// ImpactLevel buckets an entity's graph footprint for display.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// Impact score thresholds. An entity on a circular dependency is
// always critical regardless of score.
const (
	impactMediumFloor = 1.5
	impactHighFloor   = 4.0
)

// indirectWeight discounts indirect connections relative to direct
// ones when scoring impact.
const indirectWeight = 0.5

// RelationshipAnalysis describes an entity's position in the graph:
// its direct edges (both directions), discovered indirect connections,
// transitive dependency chain, the cycles it participates in, and a
// summary impact score.
type RelationshipAnalysis struct {
	EntityID        string                       `json:"entity_id"`
	Direct          []ir.Relationship            `json:"direct"`
	Indirect        []graph.IndirectRelationship `json:"indirect"`
	DependencyChain []string                     `json:"dependency_chain"`
	Cycles          [][]string                   `json:"cycles"`
	ImpactScore     float64                      `json:"impact_score"`
	ImpactLevel     ImpactLevel                  `json:"impact_level"`
}

// AnalyzeEntityRelationships gathers everything the graph knows about
// one entity. Unknown entities yield an empty analysis with low
// impact, not an error.
//
// The impact score sums direct edge strengths plus discounted indirect
// strengths; cycle membership forces the level to critical because
// removing such an entity breaks a mutual dependency.
func (e *Engine) AnalyzeEntityRelationships(entityID string) RelationshipAnalysis {
	analysis := RelationshipAnalysis{
		EntityID:        entityID,
		Direct:          e.graph.EntityRelationships(entityID, true),
		Indirect:        e.graph.IndirectRelationships(entityID, graph.DefaultMaxDepth),
		DependencyChain: e.graph.DependencyChain(entityID),
	}

	for _, cycle := range e.graph.CircularDependencies(entityID) {
		if containsID(cycle, entityID) {
			analysis.Cycles = append(analysis.Cycles, cycle)
		}
	}

	score := 0.0
	for _, rel := range analysis.Direct {
		score += rel.Strength
	}
	for _, ind := range analysis.Indirect {
		score += indirectWeight * ind.Strength
	}
	analysis.ImpactScore = score
	analysis.ImpactLevel = classifyImpact(score, len(analysis.Cycles) > 0)
	return analysis
}

func classifyImpact(score float64, inCycle bool) ImpactLevel {
	switch {
	case inCycle:
		return ImpactCritical
	case score >= impactHighFloor:
		return ImpactHigh
	case score >= impactMediumFloor:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

func containsID(cycle []string, id string) bool {
	for _, node := range cycle {
		if node == id {
			return true
		}
	}
	return false
}
