package scoring

import (
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniform values in [0, 1). Implementations must be safe
// for concurrent use because one Scorer serves every request.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource returns a source backed by the runtime's concurrency-safe generator.
func DefaultSource() RandomSource {
	return globalSource{}
}

// lockedSource serializes access to a seeded generator.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a reproducible source. Draws are serialized with a mutex.
func NewSeededSource(seed uint64) RandomSource {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
