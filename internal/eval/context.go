package eval

import (
	"github.com/roach88/lore/internal/ir"
)

// Position is a 2D world coordinate for distance conditions.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Context carries everything a single evaluation reads: the game state
// snapshot plus caller-supplied side channels that are not part of the
// snapshot shape. The evaluator treats all of it as read-only.
type Context struct {
	State ir.GameState

	// BehaviorScores maps behavior names ("aggression", "curiosity") to
	// caller-computed scores, read by player_behavior conditions.
	BehaviorScores map[string]float64

	// Positions maps entity IDs to world coordinates, read by distance
	// conditions. The player's own ID must be present for player-relative
	// distances.
	Positions map[string]Position

	// LastEventTurn maps entity IDs to the session turn they last fired
	// or surfaced, read by dramatic-timing context factors.
	LastEventTurn map[string]int

	// Rand overrides the evaluator's random source for this context.
	// Nil means the evaluator default.
	Rand RandomSource
}

// rand returns the effective random source for this context.
func (c *Context) rand(fallback RandomSource) RandomSource {
	if c.Rand != nil {
		return c.Rand
	}
	return fallback
}
