package eviction

import "math/rand/v2"

// Source supplies uniform random integers in [0, n).
type Source interface {
	Intn(n int) int
}

type pcgSource struct {
	rng *rand.Rand
}

// NewSource creates a deterministic source from a seed.
func NewSource(seed uint64) Source {
	return &pcgSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *pcgSource) Intn(n int) int {
	return s.rng.IntN(n)
}
