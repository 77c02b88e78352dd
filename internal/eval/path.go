package eval

import (
	"strings"

	"github.com/roach88/lore/internal/ir"
)

// resolvePath resolves a dotted field path against the game state.
// Returns (nil, false) when the path does not exist; a missing path is
// not an error - operator semantics decide what absence means.
//
// Supported roots: player, world, session. Map-backed leaves (stats,
// flags, relationships) take one further segment as the map key.
func resolvePath(state ir.GameState, path string) (any, bool) {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil, false
	}

	switch segments[0] {
	case "player":
		return resolvePlayer(state.Player, segments[1:])
	case "world":
		return resolveWorld(state.World, segments[1:])
	case "session":
		return resolveSession(state.Session, segments[1:])
	default:
		return nil, false
	}
}

func resolvePlayer(p ir.PlayerState, segments []string) (any, bool) {
	switch segments[0] {
	case "stats":
		if len(segments) != 2 {
			return nil, false
		}
		v, ok := p.Stats[segments[1]]
		return v, ok
	case "relationships":
		if len(segments) != 2 {
			return nil, false
		}
		v, ok := p.Relationships[segments[1]]
		return v, ok
	}

	// Everything else is a terminal leaf; trailing segments make the
	// path absent, not a truncated match.
	if len(segments) != 1 {
		return nil, false
	}
	switch segments[0] {
	case "id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "level":
		return p.Level, true
	case "location":
		return p.Location, true
	case "hp":
		return p.HP, true
	case "mp":
		return p.MP, true
	case "items":
		return p.Items, true
	case "statuses":
		return p.Statuses, true
	default:
		return nil, false
	}
}

func resolveWorld(w ir.WorldState, segments []string) (any, bool) {
	if segments[0] == "flags" {
		if len(segments) != 2 {
			return nil, false
		}
		v, ok := w.Flags[segments[1]]
		return v, ok
	}

	if len(segments) != 1 {
		return nil, false
	}
	switch segments[0] {
	case "time":
		return w.Time, true
	case "weather":
		return w.Weather, true
	case "events":
		return w.Events, true
	default:
		return nil, false
	}
}

func resolveSession(s ir.SessionState, segments []string) (any, bool) {
	if len(segments) != 1 {
		return nil, false
	}
	switch segments[0] {
	case "turn":
		return s.Turn, true
	case "phase":
		return string(s.Phase), true
	case "location":
		return s.Location, true
	case "npcs":
		return s.NPCs, true
	default:
		return nil, false
	}
}
