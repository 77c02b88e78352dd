package ir

// GameState is the immutable-per-call snapshot of player, world, and
// session facts that conditions are evaluated against. Callers convert
// their own richer context into this shape; the engine never mutates it.
type GameState struct {
	Player  PlayerState  `json:"player" yaml:"player"`
	World   WorldState   `json:"world" yaml:"world"`
	Session SessionState `json:"session" yaml:"session"`
}

// PlayerState is the player facet of a game state snapshot.
type PlayerState struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	Level    int     `json:"level" yaml:"level"`
	Location string  `json:"location,omitempty" yaml:"location,omitempty"`
	HP       float64 `json:"hp,omitempty" yaml:"hp,omitempty"`
	MP       float64 `json:"mp,omitempty" yaml:"mp,omitempty"`

	// Stats is a numeric stat map ("strength", "charisma", ...).
	Stats map[string]float64 `json:"stats,omitempty" yaml:"stats,omitempty"`

	// Items lists held item IDs.
	Items []string `json:"items,omitempty" yaml:"items,omitempty"`

	// Statuses lists active status tags ("poisoned", "blessed", ...).
	Statuses []string `json:"statuses,omitempty" yaml:"statuses,omitempty"`

	// Relationships maps other-entity IDs to relationship strength.
	Relationships map[string]float64 `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// WorldState is the world facet of a game state snapshot.
type WorldState struct {
	Time    float64 `json:"time,omitempty" yaml:"time,omitempty"`
	Weather string  `json:"weather,omitempty" yaml:"weather,omitempty"`

	// Events lists IDs of events that have fired.
	Events []string `json:"events,omitempty" yaml:"events,omitempty"`

	// Flags is a boolean world-flag map.
	Flags map[string]bool `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// SessionPhase is the coarse mode the session is currently in.
type SessionPhase string

const (
	PhaseExploration SessionPhase = "exploration"
	PhaseCombat      SessionPhase = "combat"
	PhaseSocial      SessionPhase = "social"
	PhaseRest        SessionPhase = "rest"
)

// ValidSessionPhases defines the allowed session phases.
var ValidSessionPhases = map[SessionPhase]bool{
	PhaseExploration: true,
	PhaseCombat:      true,
	PhaseSocial:      true,
	PhaseRest:        true,
}

// SessionState is the session facet of a game state snapshot.
type SessionState struct {
	Turn     int          `json:"turn" yaml:"turn"`
	Phase    SessionPhase `json:"phase,omitempty" yaml:"phase,omitempty"`
	Location string       `json:"location,omitempty" yaml:"location,omitempty"`

	// NPCs lists IDs of NPCs present in the scene.
	NPCs []string `json:"npcs,omitempty" yaml:"npcs,omitempty"`
}

// HasItem reports whether the player holds the given item ID.
func (p *PlayerState) HasItem(itemID string) bool {
	for _, id := range p.Items {
		if id == itemID {
			return true
		}
	}
	return false
}

// EventFired reports whether the given event ID has fired.
func (w *WorldState) EventFired(eventID string) bool {
	for _, id := range w.Events {
		if id == eventID {
			return true
		}
	}
	return false
}

// NPCPresent reports whether the given NPC ID is in the scene.
func (s *SessionState) NPCPresent(npcID string) bool {
	for _, id := range s.NPCs {
		if id == npcID {
			return true
		}
	}
	return false
}
