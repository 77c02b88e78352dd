package eval

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// RandomSource supplies the randomness for probability and dice_roll
// conditions. Injecting it through the evaluation context keeps those
// conditions deterministic under test.
type RandomSource interface {
	// Float64 returns a uniform draw in [0,1).
	Float64() float64

	// IntN returns a uniform draw in [0,n). Panics if n <= 0, matching
	// math/rand/v2 semantics; evaluators guard n before calling.
	IntN(n int) int
}

// NewRandomSource returns a PCG source seeded from the OS entropy pool.
// This is the production default when a context carries no source.
func NewRandomSource() RandomSource {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// Entropy read failure leaves a zero seed; evaluation stays
		// functional, just predictable.
		return mathrand.New(mathrand.NewPCG(0, 0))
	}
	hi := binary.LittleEndian.Uint64(seed[:8])
	lo := binary.LittleEndian.Uint64(seed[8:])
	return mathrand.New(mathrand.NewPCG(hi, lo))
}

// NewSeededSource returns a PCG source with a fixed seed, for callers
// that need reproducible draws outside a test (e.g. replayable sessions).
func NewSeededSource(seed uint64) RandomSource {
	return mathrand.New(mathrand.NewPCG(seed, seed))
}
