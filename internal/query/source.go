package query

import (
	"sync"

	"github.com/roach88/lore/internal/ir"
)

// StaticSource is an in-memory Source over a fixed candidate list, in
// stable insertion order. Useful for tests and for callers whose
// content set is small enough to hold in memory.
type StaticSource struct {
	mu         sync.RWMutex
	candidates []ir.Candidate
	byID       map[string]int
}

// NewStaticSource creates a source over the given candidates. A
// candidate without a kind gets one inferred from its ID prefix.
func NewStaticSource(candidates ...ir.Candidate) *StaticSource {
	s := &StaticSource{byID: make(map[string]int, len(candidates))}
	for _, c := range candidates {
		s.addLocked(c)
	}
	return s
}

// Add registers or replaces a candidate by ID.
func (s *StaticSource) Add(c ir.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(c)
}

func (s *StaticSource) addLocked(c ir.Candidate) {
	if c.Kind == "" {
		c.Kind = ir.KindFromID(c.ID)
	}
	if i, ok := s.byID[c.ID]; ok {
		s.candidates[i] = c
		return
	}
	s.byID[c.ID] = len(s.candidates)
	s.candidates = append(s.candidates, c)
}

// Candidates implements Source. Insertion order is preserved, which is
// what makes the query tie-break deterministic.
func (s *StaticSource) Candidates(kinds []ir.EntityKind) []ir.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ir.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if len(kinds) == 0 || kindRequested(kinds, c.Kind) {
			out = append(out, c)
		}
	}
	return out
}

// Candidate implements Source.
func (s *StaticSource) Candidate(id string) (ir.Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return ir.Candidate{}, false
	}
	return s.candidates[i], true
}
