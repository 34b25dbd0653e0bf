// Package random provides the pseudorandom source used for subdivision
// jitter and preset picks. Callers hold their own seeded source so runs can
// be reproduced.
package random

import (
	"math/rand"
	"time"
)

// Source is the subset of *rand.Rand the city code draws from.
type Source interface {
	Float64() float64
	Intn(n int) int
}

var _ Source = (*rand.Rand)(nil)

// New returns a source seeded with seed. A zero seed picks a time-based one.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Range draws uniformly from [min, max).
func Range(src Source, min, max float64) float64 {
	return min + src.Float64()*(max-min)
}
