// Package testutil provides deterministic helpers for engine tests:
// scripted random sources and game-state builders.
package testutil

import "sync"

// FixedRandSource replays scripted draws, for deterministic probability
// and dice_roll conditions in tests.
//
// Float64 cycles through Floats; IntN cycles through Ints, clamped into
// [0,n). Empty scripts fall back to 0.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedRandSource struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

// NewFixedRandSource creates a source replaying the given float draws.
func NewFixedRandSource(floats ...float64) *FixedRandSource {
	return &FixedRandSource{Floats: floats}
}

// WithInts sets the scripted integer draws and returns the source.
func (s *FixedRandSource) WithInts(ints ...int) *FixedRandSource {
	s.Ints = ints
	return s
}

// Float64 returns the next scripted float draw.
func (s *FixedRandSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

// IntN returns the next scripted integer draw clamped into [0,n).
func (s *FixedRandSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
