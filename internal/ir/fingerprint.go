package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed fingerprints. The version suffix
// enables future algorithm migration without silent collisions.
const (
	DomainQuery = "lore/query/v1"
	DomainEdge  = "lore/edge/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryFingerprint computes the cache key for a query: a stable hash of
// the filter, the full game state, the evaluation side channels, and
// the requested options. The whole state is hashed because filter and
// candidate conditions can reference any dotted state path; hashing a
// field subset would let queries from distinct contexts collide on one
// cache entry. Two calls with identical inputs always produce the same
// fingerprint regardless of map iteration order.
//
// context carries the side channels the pipeline reads outside the
// state snapshot (behavior scores, positions, last-event turns). Nil
// means none.
func QueryFingerprint(filter QueryFilter, state GameState, context map[string]any, opts QueryOptions) (string, error) {
	kinds := make([]any, len(filter.EntityKinds))
	for i, k := range filter.EntityKinds {
		kinds[i] = string(k)
	}

	conds := make([]any, len(filter.Conditions))
	for i, c := range filter.Conditions {
		m, err := conditionToMap(c)
		if err != nil {
			return "", fmt.Errorf("fingerprint condition[%d]: %w", i, err)
		}
		conds[i] = m
	}

	stateMap, err := stateCanonicalMap(state)
	if err != nil {
		return "", fmt.Errorf("fingerprint state: %w", err)
	}

	obj := map[string]any{
		"kinds":        kinds,
		"tags":         filter.Tags,
		"min_priority": filter.MinPriority,
		"location":     filter.Location,
		"conditions":   conds,
		"state":        stateMap,
		"sort_by":      string(opts.SortBy),
		"max_results":  opts.MaxResults,
		"expand":       opts.ExpandRelated,
	}
	if len(context) > 0 {
		obj["context"] = context
	}
	if filter.ContextFactors != nil {
		obj["context_factors"] = map[string]any{
			"story":     filter.ContextFactors.StoryAppropriate,
			"ready":     filter.ContextFactors.PlayerReady,
			"timing":    filter.ContextFactors.DramaticTiming,
			"spacing":   filter.ContextFactors.MinTurnSpacing,
			"resources": filter.ContextFactors.ResourceAvailable,
			"min_hp":    filter.ContextFactors.MinHP,
			"min_mp":    filter.ContextFactors.MinMP,
		}
	}
	if filter.TimeConstraints != nil {
		obj["time_constraints"] = map[string]any{
			"not_before": filter.TimeConstraints.NotBefore,
			"not_after":  filter.TimeConstraints.NotAfter,
		}
	}
	if filter.AICriteria != nil {
		obj["ai_criteria"] = map[string]any{
			"min_score":            filter.AICriteria.MinScore,
			"max_score":            filter.AICriteria.MaxScore,
			"min_alignment":        filter.AICriteria.MinAlignment,
			"min_story_relevance":  filter.AICriteria.MinStoryRelevance,
			"target_difficulty":    filter.AICriteria.TargetDifficulty,
			"difficulty_tolerance": filter.AICriteria.DifficultyTolerance,
		}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("QueryFingerprint: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// stateCanonicalMap flattens the state snapshot into plain maps for
// canonical marshaling. The JSON round trip keeps the fingerprint in
// lockstep with the state shape as fields are added.
func stateCanonicalMap(state GameState) (map[string]any, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// EdgeFingerprint computes a stable identity for a relationship edge,
// used to derive IDs for edges the caller supplies without one.
func EdgeFingerprint(key EdgeKey) string {
	canonical, err := MarshalCanonical(map[string]any{
		"source": key.SourceID,
		"target": key.TargetID,
		"type":   string(key.Type),
	})
	if err != nil {
		// Plain string fields cannot fail canonical marshaling.
		panic(fmt.Sprintf("EdgeFingerprint: %v", err))
	}
	return hashWithDomain(DomainEdge, canonical)
}
