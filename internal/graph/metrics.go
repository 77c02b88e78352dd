package graph

import (
	"sort"
)

// Metrics is a structural summary of the graph.
type Metrics struct {
	TotalNodes      int        `json:"total_nodes"`
	TotalEdges      int        `json:"total_edges"`
	AvgConnectivity float64    `json:"avg_connectivity"` // edges / nodes
	SCCs            [][]string `json:"sccs"`             // components with >= 2 members
	Isolated        []string   `json:"isolated"`         // no incoming or outgoing edges
	Hubs            []HubNode  `json:"hubs"`             // connections > 2x avg connectivity
}

// HubNode is a node whose connection count stands out.
type HubNode struct {
	ID          string `json:"id"`
	Connections int    `json:"connections"` // outgoing + incoming
}

// CalculateMetrics computes node/edge counts, average connectivity,
// strongly connected components (Tarjan, ignoring relationship type),
// isolated nodes, and hub nodes sorted descending by connection count.
func (g *Graph) CalculateMetrics() Metrics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m := Metrics{
		TotalNodes: len(g.nodes),
		TotalEdges: g.meta.TotalEdges,
	}
	if m.TotalNodes == 0 {
		return m
	}
	m.AvgConnectivity = float64(m.TotalEdges) / float64(m.TotalNodes)

	// Deterministic node order keeps SCC and hub output stable.
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m.SCCs = g.tarjanLocked(ids)

	connections := make(map[string]int, len(g.nodes))
	for _, id := range ids {
		connections[id] = len(g.forward[id]) + len(g.reverse[id])
	}
	for _, id := range ids {
		if connections[id] == 0 {
			m.Isolated = append(m.Isolated, id)
		}
		if float64(connections[id]) > 2*m.AvgConnectivity && connections[id] > 0 {
			m.Hubs = append(m.Hubs, HubNode{ID: id, Connections: connections[id]})
		}
	}
	sort.Slice(m.Hubs, func(i, j int) bool {
		if m.Hubs[i].Connections != m.Hubs[j].Connections {
			return m.Hubs[i].Connections > m.Hubs[j].Connections
		}
		return m.Hubs[i].ID < m.Hubs[j].ID
	})
	return m
}

// StronglyConnectedGroups returns the SCCs with at least two members.
func (g *Graph) StronglyConnectedGroups() [][]string {
	return g.CalculateMetrics().SCCs
}

// tarjanLocked runs Tarjan's algorithm over the full graph, ignoring
// relationship type. Only components with >= 2 members are returned.
// Caller holds a lock.
func (g *Graph) tarjanLocked(ids []string) [][]string {
	index := 0
	indices := make(map[string]int, len(ids))
	lowlinks := make(map[string]int, len(ids))
	onStack := make(map[string]bool, len(ids))
	var stack []string
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, rel := range g.forward[v] {
			w := rel.TargetID
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlinks[w] < lowlinks[v] {
					lowlinks[v] = lowlinks[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlinks[v] {
					lowlinks[v] = indices[w]
				}
			}
		}

		if lowlinks[v] == indices[v] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			if len(component) >= 2 {
				sort.Strings(component)
				sccs = append(sccs, component)
			}
		}
	}

	for _, id := range ids {
		if _, seen := indices[id]; !seen {
			strongconnect(id)
		}
	}
	return sccs
}
