package graph

import (
	"math"

	"github.com/roach88/lore/internal/ir"
)

// IndirectRelationship is a synthesized multi-hop edge discovered by
// traversal. Strength decays geometrically with depth.
type IndirectRelationship struct {
	SourceID string          `json:"source_id"`
	TargetID string          `json:"target_id"`
	Type     ir.RelationType `json:"type"`     // type of the final hop
	Strength float64         `json:"strength"` // decayed cumulative strength
	Depth    int             `json:"depth"`    // hops from the source, >= 2
	Path     []string        `json:"path"`     // node IDs from source to target
}

// IndirectRelationships traverses up to maxDepth hops from id and
// synthesizes indirect edges whose strength decays as
// strength × decay^depth. Nodes already on the current path are never
// revisited, so cycles cannot expand forever. maxDepth <= 0 means
// DefaultMaxDepth.
func (g *Graph) IndirectRelationships(id string, maxDepth int) []IndirectRelationship {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil
	}

	var found []IndirectRelationship
	onPath := map[string]bool{id: true}
	path := []string{id}

	var walk func(current string, depth int, strength float64)
	walk = func(current string, depth int, strength float64) {
		if depth >= maxDepth {
			return
		}
		for _, rel := range g.outgoingLocked(current) {
			next := rel.TargetID
			if onPath[next] {
				continue
			}
			cumulative := strength * rel.Strength
			nextDepth := depth + 1
			if nextDepth >= 2 {
				nodes := make([]string, len(path)+1)
				copy(nodes, path)
				nodes[len(path)] = next
				found = append(found, IndirectRelationship{
					SourceID: id,
					TargetID: next,
					Type:     rel.Type,
					Strength: cumulative * math.Pow(g.decay, float64(nextDepth)),
					Depth:    nextDepth,
					Path:     nodes,
				})
			}
			onPath[next] = true
			path = append(path, next)
			walk(next, nextDepth, cumulative)
			path = path[:len(path)-1]
			delete(onPath, next)
		}
	}
	walk(id, 0, 1.0)
	return found
}

// DependencyChain walks edges of type dependency/prerequisite from id
// and returns the unique visited order: everything that must exist
// before the entity is meaningful.
func (g *Graph) DependencyChain(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{id: true}
	var chain []string

	var walk func(current string)
	walk = func(current string) {
		for _, rel := range g.forward[current] {
			if !ir.DependencyTypes[rel.Type] {
				continue
			}
			if visited[rel.TargetID] {
				continue
			}
			visited[rel.TargetID] = true
			chain = append(chain, rel.TargetID)
			walk(rel.TargetID)
		}
	}
	walk(id)
	return chain
}

// CircularDependencies detects cycles in the dependency/prerequisite
// subgraph reachable from id, using DFS with a recursion stack. Each
// cycle is returned as an explicit ID sequence starting and ending at
// the same node. Whether a cycle is an authoring error or a tolerated
// design (mutually unlocking quests) is the caller's call.
func (g *Graph) CircularDependencies(id string) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var walk func(current string)
	walk = func(current string) {
		visited[current] = true
		onStack[current] = true
		stack = append(stack, current)

		for _, rel := range g.forward[current] {
			if !ir.DependencyTypes[rel.Type] {
				continue
			}
			next := rel.TargetID
			if onStack[next] {
				// Found a back edge; slice the cycle out of the stack.
				start := 0
				for i, node := range stack {
					if node == next {
						start = i
						break
					}
				}
				cycle := make([]string, 0, len(stack)-start+1)
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, next)
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[next] {
				walk(next)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[current] = false
	}
	walk(id)
	return cycles
}

// PathType classifies a found path by hop count.
type PathType string

const (
	PathDirect   PathType = "direct"   // 1 hop
	PathIndirect PathType = "indirect" // <= 3 hops
	PathComplex  PathType = "complex"  // > 3 hops
)

// Path is the result of FindPath.
type Path struct {
	Nodes    []string `json:"nodes"`
	Hops     int      `json:"hops"`
	Strength float64  `json:"strength"` // product of per-edge strengths
	Type     PathType `json:"type"`
}

// FindPath searches breadth-first from fromID to toID, bounded by
// maxHops (<= 0 means no bound beyond the graph size). BFS guarantees
// the returned path is globally shortest in hop count; the reported
// strength is the product of per-edge strengths along that shortest
// path, not the strongest path. Hop count is the explicit tie-break
// policy. Returns nil when no path exists.
//
// fromID == toID returns a zero-hop path of strength 1.
func (g *Graph) FindPath(fromID, toID string, maxHops int) *Path {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if fromID == toID {
		if _, ok := g.nodes[fromID]; !ok {
			return nil
		}
		return &Path{Nodes: []string{fromID}, Hops: 0, Strength: 1.0, Type: PathDirect}
	}
	if _, ok := g.nodes[fromID]; !ok {
		return nil
	}
	if _, ok := g.nodes[toID]; !ok {
		return nil
	}
	if maxHops <= 0 {
		maxHops = len(g.nodes)
	}

	type hop struct {
		id       string
		prev     *hop
		strength float64 // cumulative product up to this node
		depth    int
	}

	visited := map[string]bool{fromID: true}
	queue := []*hop{{id: fromID, strength: 1.0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxHops {
			continue
		}
		for _, rel := range g.outgoingLocked(current.id) {
			next := rel.TargetID
			if visited[next] {
				continue
			}
			node := &hop{
				id:       next,
				prev:     current,
				strength: current.strength * rel.Strength,
				depth:    current.depth + 1,
			}
			if next == toID {
				nodes := make([]string, 0, node.depth+1)
				for h := node; h != nil; h = h.prev {
					nodes = append(nodes, h.id)
				}
				for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
					nodes[i], nodes[j] = nodes[j], nodes[i]
				}
				return &Path{
					Nodes:    nodes,
					Hops:     node.depth,
					Strength: node.strength,
					Type:     classifyPath(node.depth),
				}
			}
			visited[next] = true
			queue = append(queue, node)
		}
	}
	return nil
}

func classifyPath(hops int) PathType {
	switch {
	case hops <= 1:
		return PathDirect
	case hops <= 3:
		return PathIndirect
	default:
		return PathComplex
	}
}
