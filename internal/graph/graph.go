package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/lore/internal/ir"
)

// DefaultDecayFactor is the per-hop strength decay applied to indirect
// relationships. A documented default policy, not derived from first
// principles; override with WithDecayFactor.
const DefaultDecayFactor = 0.8

// DefaultMaxDepth bounds indirect-relationship traversal when the
// caller passes no depth.
const DefaultMaxDepth = 3

// MutationHook is invoked after every graph mutation with the affected
// node IDs. The query processor registers its cache invalidation here.
// Hooks run under the graph's write lock; they must not call back into
// the graph.
type MutationHook func(sourceID, targetID string)

// Graph is the relationship graph. Create with New or Import.
type Graph struct {
	mu sync.RWMutex

	// forward maps sourceID to its outgoing edges.
	forward map[string][]ir.Relationship

	// reverse maps targetID to the keys of edges pointing at it,
	// maintained on every mutation.
	reverse map[string][]ir.EdgeKey

	// nodes registers every ID ever referenced by an edge. Removal keeps
	// the registration so metrics can report nodes that lost all edges
	// as isolated; Import rebuilds the set from the imported edges.
	nodes map[string]struct{}

	meta   ir.GraphMetadata
	hooks  []MutationHook
	decay  float64
	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithDecayFactor overrides the indirect-strength decay factor.
func WithDecayFactor(decay float64) Option {
	return func(g *Graph) {
		g.decay = decay
	}
}

// WithLogger sets the graph's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		forward: make(map[string][]ir.Relationship),
		reverse: make(map[string][]ir.EdgeKey),
		nodes:   make(map[string]struct{}),
		decay:   DefaultDecayFactor,
		logger:  slog.Default(),
		meta:    ir.GraphMetadata{ValidationStatus: ir.GraphUnvalidated},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnMutation registers a hook fired after every mutation.
func (g *Graph) OnMutation(hook MutationHook) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, hook)
}

// AddRelationship upserts an edge keyed by (source, target, type).
// Strength is clamped to [0,1]; a missing ID is filled with a UUID.
// Self-references are rejected - they are never stored as usable edges.
func (g *Graph) AddRelationship(rel ir.Relationship) error {
	if rel.SourceID == "" || rel.TargetID == "" {
		return fmt.Errorf("relationship requires source and target IDs")
	}
	if rel.SourceID == rel.TargetID {
		return fmt.Errorf("self-referential relationship %s -> %s rejected", rel.SourceID, rel.TargetID)
	}
	if !ir.ValidRelationTypes[rel.Type] {
		return fmt.Errorf("unknown relationship type %q", rel.Type)
	}

	rel.Strength = ir.ClampStrength(rel.Strength)
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.Metadata.CreatedAt.IsZero() {
		rel.Metadata.CreatedAt = time.Now().UTC()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	edges := g.forward[rel.SourceID]
	updated := false
	for i, existing := range edges {
		if existing.Key() == rel.Key() {
			// Idempotent upsert: keep the original ID and creation time.
			rel.ID = existing.ID
			rel.Metadata.CreatedAt = existing.Metadata.CreatedAt
			edges[i] = rel
			updated = true
			break
		}
	}
	if !updated {
		g.forward[rel.SourceID] = append(edges, rel)
		g.reverse[rel.TargetID] = append(g.reverse[rel.TargetID], rel.Key())
		g.meta.TotalEdges++
	}

	g.registerNode(rel.SourceID)
	g.registerNode(rel.TargetID)
	g.touch(rel.SourceID, rel.TargetID)
	return nil
}

// RemoveRelationship removes edges from source to target. An empty type
// removes all types. Reports whether anything was removed; empty
// adjacency entries are pruned.
func (g *Graph) RemoveRelationship(sourceID, targetID string, relType ir.RelationType) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	edges := g.forward[sourceID]
	kept := edges[:0]
	removed := 0
	for _, rel := range edges {
		if rel.TargetID == targetID && (relType == "" || rel.Type == relType) {
			removed++
			continue
		}
		kept = append(kept, rel)
	}
	if removed == 0 {
		return false
	}

	if len(kept) == 0 {
		delete(g.forward, sourceID)
	} else {
		g.forward[sourceID] = kept
	}

	// Drop the matching reverse entries.
	rev := g.reverse[targetID]
	keptRev := rev[:0]
	for _, key := range rev {
		if key.SourceID == sourceID && (relType == "" || key.Type == relType) {
			continue
		}
		keptRev = append(keptRev, key)
	}
	if len(keptRev) == 0 {
		delete(g.reverse, targetID)
	} else {
		g.reverse[targetID] = keptRev
	}

	g.meta.TotalEdges -= removed
	g.touch(sourceID, targetID)
	return true
}

// EntityRelationships returns the outgoing edges of an entity and, when
// includeIncoming is set, synthesized inverse-direction views of every
// edge targeting it.
func (g *Graph) EntityRelationships(id string, includeIncoming bool) []ir.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]ir.Relationship, len(g.forward[id]))
	copy(out, g.forward[id])

	if includeIncoming {
		for _, key := range g.reverse[id] {
			if rel, ok := g.edgeLocked(key); ok {
				out = append(out, rel.Inverse())
			}
		}
	}
	return out
}

// Relationship looks up a single edge by its upsert key.
func (g *Graph) Relationship(key ir.EdgeKey) (ir.Relationship, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeLocked(key)
}

// Contains reports whether the graph knows the given node.
func (g *Graph) Contains(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Metadata returns a copy of the graph-level bookkeeping.
func (g *Graph) Metadata() ir.GraphMetadata {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.meta
}

// Export deep-copies the graph into its serializable form.
func (g *Graph) Export() ir.GraphExport {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rels := make(map[string][]ir.Relationship, len(g.forward))
	for src, edges := range g.forward {
		out := make([]ir.Relationship, len(edges))
		copy(out, edges)
		rels[src] = out
	}
	return ir.GraphExport{Relationships: rels, Metadata: g.meta}
}

// Import replaces the graph content with an exported snapshot, deep
// copying and rebuilding the reverse index and node set.
//
// Unlike AddRelationship, Import preserves suspect edges - self
// references and out-of-range strengths - so Validate can report them
// on the imported graph; only edges with an unknown type are skipped.
// Self-referential edges are inert during traversal (the source is
// already visited), so they are never usable for pathfinding.
func (g *Graph) Import(export ir.GraphExport) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.forward = make(map[string][]ir.Relationship, len(export.Relationships))
	g.reverse = make(map[string][]ir.EdgeKey)
	g.nodes = make(map[string]struct{})
	edges := 0

	for src, rels := range export.Relationships {
		for _, rel := range rels {
			if rel.SourceID != src {
				rel.SourceID = src
			}
			if !ir.ValidRelationTypes[rel.Type] {
				g.logger.Warn("skipping edge with unknown type on import",
					"source", rel.SourceID, "target", rel.TargetID, "type", rel.Type)
				continue
			}
			g.forward[src] = append(g.forward[src], rel)
			g.reverse[rel.TargetID] = append(g.reverse[rel.TargetID], rel.Key())
			g.registerNode(rel.SourceID)
			g.registerNode(rel.TargetID)
			edges++
		}
	}

	g.meta = ir.GraphMetadata{
		TotalNodes:       len(g.nodes),
		TotalEdges:       edges,
		LastUpdated:      time.Now().UTC(),
		ValidationStatus: ir.GraphUnvalidated,
	}
	for _, hook := range g.hooks {
		hook("", "")
	}
}

// edgeLocked looks up a forward edge by key. Caller holds a lock.
func (g *Graph) edgeLocked(key ir.EdgeKey) (ir.Relationship, bool) {
	for _, rel := range g.forward[key.SourceID] {
		if rel.Key() == key {
			return rel, true
		}
	}
	return ir.Relationship{}, false
}

// registerNode adds a node to the set. Caller holds the write lock.
func (g *Graph) registerNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = struct{}{}
		g.meta.TotalNodes = len(g.nodes)
	}
}

// touch bumps bookkeeping and fires mutation hooks. Caller holds the
// write lock.
func (g *Graph) touch(sourceID, targetID string) {
	g.meta.LastUpdated = time.Now().UTC()
	g.meta.ValidationStatus = ir.GraphUnvalidated
	for _, hook := range g.hooks {
		hook(sourceID, targetID)
	}
}

// outgoingLocked returns the forward edges of id plus the reverse view
// of bidirectional edges targeting id. Caller holds a lock.
func (g *Graph) outgoingLocked(id string) []ir.Relationship {
	out := g.forward[id]
	var extra []ir.Relationship
	for _, key := range g.reverse[id] {
		if rel, ok := g.edgeLocked(key); ok && rel.Bidirectional {
			extra = append(extra, rel.Inverse())
		}
	}
	if extra == nil {
		return out
	}
	combined := make([]ir.Relationship, 0, len(out)+len(extra))
	combined = append(combined, out...)
	combined = append(combined, extra...)
	return combined
}
