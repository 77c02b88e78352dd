package ir

import "encoding/json"

// QueryFilter selects and constrains candidate entities for a query.
// All fields are optional; the zero filter matches every candidate.
type QueryFilter struct {
	EntityKinds []EntityKind `json:"entity_kinds,omitempty"`
	Tags        []string     `json:"tags,omitempty"`

	// MinPriority is a hard priority floor on the 0-100 scale.
	MinPriority float64 `json:"min_priority,omitempty"`

	// Location, when set, requires candidates whose location matches or
	// is unset.
	Location string `json:"location,omitempty"`

	// Conditions are hard boolean gates; every entry must pass.
	Conditions []Condition `json:"conditions,omitempty"`

	ContextFactors  *ContextFactors  `json:"context_factors,omitempty"`
	TimeConstraints *TimeConstraints `json:"time_constraints,omitempty"`

	// AICriteria layers soft numeric bounds on top of the hard conditions.
	AICriteria *AICriteria `json:"ai_criteria,omitempty"`
}

// UnmarshalJSON decodes the filter, routing hard conditions through the
// tagged-union decoder.
func (f *QueryFilter) UnmarshalJSON(data []byte) error {
	type alias QueryFilter
	aux := struct {
		Conditions json.RawMessage `json:"conditions"`
		*alias
	}{alias: (*alias)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Conditions) > 0 {
		conds, err := UnmarshalConditions(aux.Conditions)
		if err != nil {
			return err
		}
		f.Conditions = conds
	}
	return nil
}

// ContextFactors are boolean situational predicates applied after the
// hard filters.
type ContextFactors struct {
	// StoryAppropriate requires the candidate's story relevance to clear
	// a minimal floor for the current phase.
	StoryAppropriate bool `json:"story_appropriate,omitempty"`

	// PlayerReady requires the player level to meet the candidate's
	// required level.
	PlayerReady bool `json:"player_ready,omitempty"`

	// DramaticTiming requires a minimum number of turns since the last
	// relevant event before surfacing the candidate again.
	DramaticTiming bool `json:"dramatic_timing,omitempty"`

	// MinTurnSpacing is the spacing used by DramaticTiming (default 3).
	MinTurnSpacing int `json:"min_turn_spacing,omitempty"`

	// ResourceAvailable requires player HP and MP to be above the floors.
	ResourceAvailable bool    `json:"resource_available,omitempty"`
	MinHP             float64 `json:"min_hp,omitempty"`
	MinMP             float64 `json:"min_mp,omitempty"`
}

// TimeConstraints bound a query to a world-time window. Zero values mean
// unbounded on that side.
type TimeConstraints struct {
	NotBefore float64 `json:"not_before,omitempty"`
	NotAfter  float64 `json:"not_after,omitempty"`
}

// AICriteria expresses soft numeric bounds layered on the hard filters.
type AICriteria struct {
	MinScore            float64 `json:"min_score,omitempty"`           // recommendation score floor
	MaxScore            float64 `json:"max_score,omitempty"`           // 0 means unbounded
	MinAlignment        float64 `json:"min_alignment,omitempty"`       // player-alignment floor
	MinStoryRelevance   float64 `json:"min_story_relevance,omitempty"` // story-relevance floor
	TargetDifficulty    float64 `json:"target_difficulty,omitempty"`
	DifficultyTolerance float64 `json:"difficulty_tolerance,omitempty"`
}

// SortStrategy orders query results.
type SortStrategy string

const (
	SortRelevance SortStrategy = "relevance" // score desc (default)
	SortPriority  SortStrategy = "priority"  // raw priority desc
	SortTimestamp SortStrategy = "timestamp" // recency desc
)

// QueryOptions tune a single query execution.
type QueryOptions struct {
	// MaxResults truncates the ranked result list. Zero means the engine
	// default (50).
	MaxResults int `json:"max_results,omitempty"`

	SortBy SortStrategy `json:"sort_by,omitempty"`

	// ExpandRelated pulls in graph-related entities not already in the
	// candidate set.
	ExpandRelated bool `json:"expand_related,omitempty"`

	// NoCache bypasses the result cache for this call.
	NoCache bool `json:"no_cache,omitempty"`
}

// QueryResult is the ranked outcome of a query.
type QueryResult struct {
	Entities        []Candidate        `json:"entities"`
	TotalCount      int                `json:"total_count"`
	RelevanceScores map[string]float64 `json:"relevance_scores"`
	ExecutionTimeMS float64            `json:"execution_time_ms"`
	Metadata        QueryResultMeta    `json:"metadata"`
}

// QueryResultMeta describes how a query result was produced.
type QueryResultMeta struct {
	CacheHit       bool         `json:"cache_hit"`
	Expanded       bool         `json:"expanded"`
	SortedBy       SortStrategy `json:"sorted_by"`
	CandidateCount int          `json:"candidate_count"`
}
