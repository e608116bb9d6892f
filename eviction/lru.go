package eviction

import "slices"

type lruPolicy struct {
	clock uint64
	stamp []uint64
}

func newLRU(associativity int) *lruPolicy {
	return &lruPolicy{stamp: make([]uint64, associativity)}
}

func (p *lruPolicy) OnAccess(way int) {
	p.clock++
	p.stamp[way] = p.clock
}

func (p *lruPolicy) OnEvict(way int) {
	p.stamp[way] = 0
}

// Victim returns the way with the oldest stamp. Ties go to the lowest way.
func (p *lruPolicy) Victim() int {
	victim := 0
	for way, t := range p.stamp {
		if t < p.stamp[victim] {
			victim = way
		}
	}

	return victim
}

func (p *lruPolicy) ResetState() {
	p.clock = 0
	clear(p.stamp)
}

func (p *lruPolicy) Clone() Policy {
	return &lruPolicy{clock: p.clock, stamp: slices.Clone(p.stamp)}
}
