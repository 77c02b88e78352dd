package graph

import (
	"fmt"
	"sort"

	"github.com/roach88/lore/internal/ir"
)

// ValidationIssue is one problem found by Validate.
type ValidationIssue struct {
	Code     string          `json:"code"`
	SourceID string          `json:"source_id"`
	TargetID string          `json:"target_id,omitempty"`
	Type     ir.RelationType `json:"type,omitempty"`
	Message  string          `json:"message"`
}

// Issue codes reported by Validate.
const (
	IssueSelfReference = "SELF_REFERENCE"
	IssueDuplicateEdge = "DUPLICATE_EDGE"
	IssueBadStrength   = "STRENGTH_OUT_OF_RANGE"
)

// ValidationReport is the outcome of Validate.
type ValidationReport struct {
	Status ir.GraphValidationStatus `json:"status"`
	Issues []ValidationIssue        `json:"issues,omitempty"`
}

// Validate flags self-references, duplicate (target, type) pairs per
// source, and out-of-range strengths. It never repairs, only reports,
// and records the resulting status on the graph metadata so callers can
// react.
//
// AddRelationship rejects self-references and clamps strength, so most
// issues can only appear on graphs assembled through Import.
func (g *Graph) Validate() ValidationReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	var issues []ValidationIssue

	sources := make([]string, 0, len(g.forward))
	for src := range g.forward {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		seen := make(map[ir.EdgeKey]bool)
		for _, rel := range g.forward[src] {
			if rel.SourceID == rel.TargetID {
				issues = append(issues, ValidationIssue{
					Code:     IssueSelfReference,
					SourceID: src,
					Type:     rel.Type,
					Message:  fmt.Sprintf("%s references itself", src),
				})
			}
			key := rel.Key()
			if seen[key] {
				issues = append(issues, ValidationIssue{
					Code:     IssueDuplicateEdge,
					SourceID: src,
					TargetID: rel.TargetID,
					Type:     rel.Type,
					Message:  fmt.Sprintf("duplicate %s edge %s -> %s", rel.Type, src, rel.TargetID),
				})
			}
			seen[key] = true
			if rel.Strength < 0 || rel.Strength > 1 {
				issues = append(issues, ValidationIssue{
					Code:     IssueBadStrength,
					SourceID: src,
					TargetID: rel.TargetID,
					Type:     rel.Type,
					Message:  fmt.Sprintf("strength %v outside [0,1]", rel.Strength),
				})
			}
		}
	}

	report := ValidationReport{Status: ir.GraphValid, Issues: issues}
	if len(issues) > 0 {
		report.Status = ir.GraphInvalid
	}
	g.meta.ValidationStatus = report.Status
	return report
}
