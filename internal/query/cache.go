package query

import (
	"sync"

	"github.com/roach88/lore/internal/ir"
)

// resultCache stores successful query results keyed by the canonical
// query fingerprint. Invalidation is wholesale: any graph mutation or
// an explicit clear drops every entry. No TTL is applied here; callers
// wanting one wrap the processor.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]ir.QueryResult
	hits    int64
	misses  int64
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]ir.QueryResult)}
}

// get returns a deep copy so callers can never mutate cached state.
func (c *resultCache) get(fingerprint string) (ir.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return ir.QueryResult{}, false
	}
	c.hits++
	return copyResult(cached), true
}

func (c *resultCache) put(fingerprint string, result ir.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = copyResult(result)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ir.QueryResult)
}

// stats returns (hits, misses, size).
func (c *resultCache) stats() (int64, int64, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

func copyResult(r ir.QueryResult) ir.QueryResult {
	out := r
	out.Entities = make([]ir.Candidate, len(r.Entities))
	copy(out.Entities, r.Entities)
	out.RelevanceScores = make(map[string]float64, len(r.RelevanceScores))
	for k, v := range r.RelevanceScores {
		out.RelevanceScores[k] = v
	}
	return out
}
