// Package engine is the facade callers use to drive the entity rule
// engine. It composes the condition evaluator, the relationship graph,
// and the query processor behind one API surface.
//
// The facade is stateless between calls: every operation takes the
// caller's game-state snapshot, and the only state the engine retains
// is the relationship graph, the query result cache, and usage
// counters. The graph is the single shared mutable resource; its
// RWMutex serializes mutations against concurrent reads, so all public
// operations are safe to call from multiple goroutines.
//
// Error boundaries:
//   - Malformed condition expressions log a warning and evaluate false.
//   - Per-condition evaluation errors are recorded on that entity's
//     result and never abort a batch.
//   - Graph validation reports issues without blocking mutation.
//   - Only a query-pipeline failure surfaces as a hard error; an empty
//     match is a successful empty result.
package engine
