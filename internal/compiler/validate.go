package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/lore/internal/ir"
)

// Validation error codes (E200-E299). Compile errors catch malformed
// rules; validation catches rules that are well-formed but wrong as a
// set.
const (
	ErrDuplicateEdge   = "E200" // same (source, target, type) seeded twice
	ErrUnknownKindID   = "E201" // endpoint ID has no recognized kind prefix
	ErrConflictOverlap = "E202" // edge pair is both conflict and synergy
	ErrEmptyFilter     = "E203" // filter preset with no filtering effect
)

// ValidationError is a rule-set validation finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidatePack checks a compiled pack for set-level defects. Returns
// all findings, never fail-fast, in deterministic order.
func ValidatePack(pack *RulePack) []ValidationError {
	var errs []ValidationError

	seen := make(map[ir.EdgeKey]bool, len(pack.Relationships))
	typed := make(map[[2]string]map[ir.RelationType]bool)
	for i, rel := range pack.Relationships {
		field := fmt.Sprintf("relationships[%d]", i)

		key := rel.Key()
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate edge %s -> %s (%s)", rel.SourceID, rel.TargetID, rel.Type),
				Code:    ErrDuplicateEdge,
			})
		}
		seen[key] = true

		for _, id := range []string{rel.SourceID, rel.TargetID} {
			if ir.KindFromID(id) == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("entity ID %q has no recognized kind prefix", id),
					Code:    ErrUnknownKindID,
				})
			}
		}

		pair := [2]string{rel.SourceID, rel.TargetID}
		if typed[pair] == nil {
			typed[pair] = make(map[ir.RelationType]bool)
		}
		typed[pair][rel.Type] = true
	}

	// A pair that is simultaneously conflict and synergy is authored
	// nonsense even though the graph stores both happily.
	pairs := make([][2]string, 0, len(typed))
	for pair := range typed {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, pair := range pairs {
		types := typed[pair]
		if types[ir.RelConflict] && types[ir.RelSynergy] {
			errs = append(errs, ValidationError{
				Field:   "relationships",
				Message: fmt.Sprintf("%s -> %s is both conflict and synergy", pair[0], pair[1]),
				Code:    ErrConflictOverlap,
			})
		}
	}

	names := make([]string, 0, len(pack.Filters))
	for name := range pack.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if filterIsEmpty(pack.Filters[name]) {
			errs = append(errs, ValidationError{
				Field:   "filters." + name,
				Message: "filter preset has no filtering effect",
				Code:    ErrEmptyFilter,
			})
		}
	}

	return errs
}

func filterIsEmpty(f ir.QueryFilter) bool {
	return len(f.EntityKinds) == 0 &&
		len(f.Tags) == 0 &&
		f.MinPriority == 0 &&
		f.Location == "" &&
		len(f.Conditions) == 0 &&
		f.ContextFactors == nil &&
		f.TimeConstraints == nil &&
		f.AICriteria == nil
}
