package engine

import (
	"math/rand"

	"github.com/nathoo/responsecore/types"
)

// RNG wraps math/rand.Rand with deterministic position tracking. Every draw
// consumes exactly one value from the source, so a seed and a position
// reproduce the state exactly.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

var _ types.Random = (*RNG)(nil)

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// RandomInt returns an integer in [lo, hi].
func (r *RNG) RandomInt(lo, hi int) int {
	if hi <= lo {
		r.next()
		return lo
	}
	return lo + int(r.next()%int64(hi-lo+1))
}

// RandomFloat returns a float in [lo, hi].
func (r *RNG) RandomFloat(lo, hi float32) float32 {
	// 24 high bits give every float32 step in [0, 1].
	f := float32(r.next()>>39) / (1<<24 - 1)
	return lo + f*(hi-lo)
}

// Interval samples a delay interval.
func (r *RNG) Interval(iv types.Interval) float32 {
	if iv.Max <= iv.Min {
		return iv.Min
	}
	return r.RandomFloat(iv.Min, iv.Max)
}

func (r *RNG) next() int64 {
	r.pos++
	return r.src.Int63()
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
// This reproduces the exact RNG state for save/load.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}
