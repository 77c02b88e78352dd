package query

import (
	"fmt"
	"math"

	"github.com/roach88/lore/internal/ir"
)

// ScoreWeights are the relevance-score components. They must sum to 1.0
// so the weighted sum stays within [0,1]; each component is individually
// clamped to [0,1] and the score is monotonic in every factor.
//
// The defaults are a documented policy, not derived from first
// principles; override through the processor config.
type ScoreWeights struct {
	Priority       float64 `json:"priority"`
	TagOverlap     float64 `json:"tag_overlap"`
	Location       float64 `json:"location"`
	LevelProximity float64 `json:"level_proximity"`
	StoryRelevance float64 `json:"story_relevance"`
}

// DefaultScoreWeights is the standard 0.30/0.20/0.20/0.15/0.15 split.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Priority:       0.30,
		TagOverlap:     0.20,
		Location:       0.20,
		LevelProximity: 0.15,
		StoryRelevance: 0.15,
	}
}

// Validate checks that the weights are non-negative and sum to 1.0
// within a small tolerance.
func (w ScoreWeights) Validate() error {
	for name, v := range map[string]float64{
		"priority":        w.Priority,
		"tag_overlap":     w.TagOverlap,
		"location":        w.Location,
		"level_proximity": w.LevelProximity,
		"story_relevance": w.StoryRelevance,
	} {
		if v < 0 {
			return fmt.Errorf("score weight %s is negative: %v", name, v)
		}
	}
	sum := w.Priority + w.TagOverlap + w.Location + w.LevelProximity + w.StoryRelevance
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("score weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// levelWindow is the linear falloff window for level proximity.
const levelWindow = 10.0

// relevanceScore computes the weighted relevance of a candidate for the
// given filter and state. Always within [0,1].
func relevanceScore(c *ir.Candidate, filter *ir.QueryFilter, state *ir.GameState, w ScoreWeights) float64 {
	score := w.Priority * clamp01(c.Priority/100)

	if len(filter.Tags) > 0 {
		overlap := 0
		for _, tag := range filter.Tags {
			if c.HasTag(tag) {
				overlap++
			}
		}
		score += w.TagOverlap * float64(overlap) / float64(len(filter.Tags))
	}

	if c.Location != "" && c.Location == state.Player.Location {
		score += w.Location
	}

	gap := math.Abs(float64(c.RequiredLevel - state.Player.Level))
	if gap < levelWindow {
		score += w.LevelProximity * (1 - gap/levelWindow)
	}

	score += w.StoryRelevance * clamp01(c.StoryRelevance)

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
