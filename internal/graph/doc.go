// Package graph implements the in-memory relationship graph: a directed,
// typed, weighted multigraph keyed by entity ID.
//
// The graph is the engine's only shared mutable resource. All access
// goes through a single RWMutex so a query never observes a
// half-updated adjacency map; reads take the shared lock and traversals
// never block each other.
//
// A reverse-adjacency index is maintained alongside the forward map on
// every mutation, so incoming-relationship reads cost O(indegree)
// instead of a full edge scan. The incoming view still synthesizes
// swapped source/target edges, preserving the shape consumers expect.
//
// Failure semantics: queries on a nonexistent node return empty or
// neutral results (empty list, nil path, zero metrics), never an error.
package graph
