package testutil

import "github.com/roach88/lore/internal/ir"

// StateBuilder assembles game state snapshots for tests with sensible
// defaults: level-5 player in the village square, exploration phase.
type StateBuilder struct {
	state ir.GameState
}

// NewState creates a builder with the default test snapshot.
func NewState() *StateBuilder {
	return &StateBuilder{state: ir.GameState{
		Player: ir.PlayerState{
			ID:       "player_1",
			Name:     "Tester",
			Level:    5,
			Location: "village_square",
			HP:       100,
			MP:       50,
		},
		World: ir.WorldState{
			Time:    12,
			Weather: "clear",
		},
		Session: ir.SessionState{
			Turn:     10,
			Phase:    ir.PhaseExploration,
			Location: "village_square",
		},
	}}
}

// Level sets the player level.
func (b *StateBuilder) Level(level int) *StateBuilder {
	b.state.Player.Level = level
	return b
}

// Location sets both the player and session location.
func (b *StateBuilder) Location(loc string) *StateBuilder {
	b.state.Player.Location = loc
	b.state.Session.Location = loc
	return b
}

// Items sets the player's held items.
func (b *StateBuilder) Items(ids ...string) *StateBuilder {
	b.state.Player.Items = ids
	return b
}

// Stat sets a player stat.
func (b *StateBuilder) Stat(name string, value float64) *StateBuilder {
	if b.state.Player.Stats == nil {
		b.state.Player.Stats = map[string]float64{}
	}
	b.state.Player.Stats[name] = value
	return b
}

// Relationship sets the player's relationship strength with an entity.
func (b *StateBuilder) Relationship(entityID string, strength float64) *StateBuilder {
	if b.state.Player.Relationships == nil {
		b.state.Player.Relationships = map[string]float64{}
	}
	b.state.Player.Relationships[entityID] = strength
	return b
}

// Phase sets the session phase.
func (b *StateBuilder) Phase(phase ir.SessionPhase) *StateBuilder {
	b.state.Session.Phase = phase
	return b
}

// Turn sets the session turn.
func (b *StateBuilder) Turn(turn int) *StateBuilder {
	b.state.Session.Turn = turn
	return b
}

// Time sets the world time.
func (b *StateBuilder) Time(t float64) *StateBuilder {
	b.state.World.Time = t
	return b
}

// Weather sets the world weather.
func (b *StateBuilder) Weather(w string) *StateBuilder {
	b.state.World.Weather = w
	return b
}

// Flag sets a world flag.
func (b *StateBuilder) Flag(name string, value bool) *StateBuilder {
	if b.state.World.Flags == nil {
		b.state.World.Flags = map[string]bool{}
	}
	b.state.World.Flags[name] = value
	return b
}

// Events sets the fired-event list.
func (b *StateBuilder) Events(ids ...string) *StateBuilder {
	b.state.World.Events = ids
	return b
}

// NPCs sets the present-NPC list.
func (b *StateBuilder) NPCs(ids ...string) *StateBuilder {
	b.state.Session.NPCs = ids
	return b
}

// HP sets the player HP.
func (b *StateBuilder) HP(hp float64) *StateBuilder {
	b.state.Player.HP = hp
	return b
}

// MP sets the player MP.
func (b *StateBuilder) MP(mp float64) *StateBuilder {
	b.state.Player.MP = mp
	return b
}

// Build returns the assembled snapshot.
func (b *StateBuilder) Build() ir.GameState {
	return b.state
}

// Rel builds a relationship edge with clamped strength, for graph tests.
func Rel(source, target string, relType ir.RelationType, strength float64) ir.Relationship {
	return ir.Relationship{
		ID:       ir.EdgeFingerprint(ir.EdgeKey{SourceID: source, TargetID: target, Type: relType})[:12],
		SourceID: source,
		TargetID: target,
		Type:     relType,
		Strength: ir.ClampStrength(strength),
	}
}
