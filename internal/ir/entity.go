package ir

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EntityKind is the coarse classification of a game content entity.
// The engine never owns entity content - only references by ID plus kind.
type EntityKind string

const (
	KindItem  EntityKind = "item"
	KindQuest EntityKind = "quest"
	KindEvent EntityKind = "event"
	KindNPC   EntityKind = "npc"
	KindEnemy EntityKind = "enemy"
)

// ValidEntityKinds defines the allowed entity kinds.
var ValidEntityKinds = map[EntityKind]bool{
	KindItem:  true,
	KindQuest: true,
	KindEvent: true,
	KindNPC:   true,
	KindEnemy: true,
}

// EntityRef is an opaque reference to a game content entity.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// KindFromID infers an entity kind from the conventional ID prefix
// (e.g. "item_sword" -> KindItem). Returns "" if no prefix matches.
// Callers that use a different naming scheme supply kinds explicitly.
func KindFromID(id string) EntityKind {
	prefix, _, ok := strings.Cut(id, "_")
	if !ok {
		return ""
	}
	if kind := EntityKind(prefix); ValidEntityKinds[kind] {
		return kind
	}
	return ""
}

// Candidate is an entity record as supplied by the caller for querying.
// Only the fields the query pipeline filters and scores on are modeled;
// everything else about the entity stays with the caller.
type Candidate struct {
	ID             string     `json:"id"`
	Kind           EntityKind `json:"kind"`
	Name           string     `json:"name,omitempty"`
	Priority       float64    `json:"priority,omitempty"` // 0-100 scale
	Tags           []string   `json:"tags,omitempty"`
	Location       string     `json:"location,omitempty"`
	RequiredLevel  int        `json:"required_level,omitempty"`
	StoryRelevance float64    `json:"story_relevance,omitempty"` // [0,1]
	Timestamp      time.Time  `json:"timestamp,omitempty"`

	// Conditions gate the candidate independently of any filter-level
	// conditions. Optional.
	Conditions []Condition `json:"conditions,omitempty"`
}

// UnmarshalJSON decodes the candidate, routing gate conditions through
// the tagged-union decoder.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type alias Candidate
	aux := struct {
		Conditions json.RawMessage `json:"conditions"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Conditions) > 0 {
		conds, err := UnmarshalConditions(aux.Conditions)
		if err != nil {
			return fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		c.Conditions = conds
	}
	return nil
}

// HasTag reports whether the candidate carries the given tag.
func (c *Candidate) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
