package race

import (
	"math/rand"
	"time"
)

// Random is the source of every probabilistic decision a Contest makes. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

func NewRandom(seed int64) Random {
	return rand.New(rand.NewSource(seed))
}

func newTimeSeededRandom() Random {
	return NewRandom(time.Now().UnixNano())
}

// chance reports whether an event with probability p fires.
func chance(rng Random, p float64) bool {
	if p <= 0 {
		return false
	}

	return rng.Float64() < p
}
