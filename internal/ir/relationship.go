package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// RelationType classifies a relationship edge between two entities.
type RelationType string

const (
	RelDependency   RelationType = "dependency"
	RelPrerequisite RelationType = "prerequisite"
	RelConflict     RelationType = "conflict"
	RelSynergy      RelationType = "synergy"
	RelSequence     RelationType = "sequence"
	RelAlternative  RelationType = "alternative"
)

// ValidRelationTypes defines the allowed relationship types.
var ValidRelationTypes = map[RelationType]bool{
	RelDependency:   true,
	RelPrerequisite: true,
	RelConflict:     true,
	RelSynergy:      true,
	RelSequence:     true,
	RelAlternative:  true,
}

// DependencyTypes are the relation types that participate in dependency
// chains and circular-dependency detection.
var DependencyTypes = map[RelationType]bool{
	RelDependency:   true,
	RelPrerequisite: true,
}

// Relationship is a typed, weighted, optionally bidirectional directed
// edge between two entity IDs.
//
// Strength is always within [0,1]; construct edges through NewRelationship
// or clamp explicitly. A relationship with SourceID == TargetID is invalid
// and is rejected by graph mutation, never stored as a usable edge.
type Relationship struct {
	ID            string               `json:"id"`
	SourceID      string               `json:"source_id"`
	TargetID      string               `json:"target_id"`
	Type          RelationType         `json:"type"`
	Strength      float64              `json:"strength"`
	Bidirectional bool                 `json:"bidirectional,omitempty"`
	Conditions    []Condition          `json:"conditions,omitempty"`
	Metadata      RelationshipMetadata `json:"metadata"`
}

// UnmarshalJSON decodes the relationship, routing the embedded
// conditions through the tagged-union decoder.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	type alias Relationship
	aux := struct {
		Conditions json.RawMessage `json:"conditions"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Conditions) > 0 {
		conds, err := UnmarshalConditions(aux.Conditions)
		if err != nil {
			return fmt.Errorf("relationship %s: %w", r.ID, err)
		}
		r.Conditions = conds
	}
	return nil
}

// RelationshipMetadata carries descriptive bookkeeping for an edge.
type RelationshipMetadata struct {
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	ValidationCount int       `json:"validation_count,omitempty"`
}

// ClampStrength bounds a strength value to [0,1].
func ClampStrength(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// EdgeKey identifies an edge for idempotent upserts: two AddRelationship
// calls with the same (source, target, type) update the same edge.
type EdgeKey struct {
	SourceID string
	TargetID string
	Type     RelationType
}

// Key returns the upsert identity of the relationship.
func (r *Relationship) Key() EdgeKey {
	return EdgeKey{SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type}
}

// Inverse returns a synthesized reverse-direction view of the edge, used
// when a caller asks for incoming relationships. The synthesized edge
// keeps the original ID, type, and strength with source/target swapped,
// matching what consumers of the incoming view expect.
func (r *Relationship) Inverse() Relationship {
	inv := *r
	inv.SourceID, inv.TargetID = r.TargetID, r.SourceID
	return inv
}

// GraphValidationStatus reports the outcome of graph validation.
type GraphValidationStatus string

const (
	GraphUnvalidated GraphValidationStatus = "unvalidated"
	GraphValid       GraphValidationStatus = "valid"
	GraphInvalid     GraphValidationStatus = "invalid"
)

// GraphMetadata tracks graph-level bookkeeping.
type GraphMetadata struct {
	TotalNodes       int                   `json:"total_nodes"`
	TotalEdges       int                   `json:"total_edges"`
	LastUpdated      time.Time             `json:"last_updated"`
	ValidationStatus GraphValidationStatus `json:"validation_status"`
}

// GraphExport is the wholesale serialized form of a relationship graph.
// Callers own persistence; the engine only guarantees that
// Import(Export()) round-trips node/edge counts and adjacency exactly.
type GraphExport struct {
	Relationships map[string][]Relationship `json:"relationships"`
	Metadata      GraphMetadata             `json:"metadata"`
}
