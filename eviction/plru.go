package eviction

import "fmt"

// plruPolicy approximates LRU with one bit per way. A set bit marks a
// recently used way.
type plruPolicy struct {
	associativity int
	full          uint64
	mask          uint64
	last          int
}

func newPLRU(associativity int) *plruPolicy {
	full := ^uint64(0)
	if associativity < 64 {
		full = uint64(1)<<associativity - 1
	}

	return &plruPolicy{associativity: associativity, full: full}
}

func (p *plruPolicy) OnAccess(way int) {
	p.mask |= uint64(1) << way
	p.last = way

	if p.mask == p.full {
		p.mask = uint64(1) << way
	}
}

func (p *plruPolicy) OnEvict(way int) {
	p.mask &^= uint64(1) << way
}

func (p *plruPolicy) Victim() int {
	if p.associativity == 1 {
		return 0
	}

	for i := 0; i < p.associativity; i++ {
		way := (p.last + i) % p.associativity
		if p.mask&(uint64(1)<<way) == 0 {
			return way
		}
	}

	panic(fmt.Sprintf("plru found no victim, mask=%#x", p.mask))
}

func (p *plruPolicy) ResetState() {
	p.mask = 0
	p.last = 0
}

func (p *plruPolicy) Clone() Policy {
	c := *p
	return &c
}

// Mask exposes the usage bits for inspection.
func (p *plruPolicy) Mask() uint64 {
	return p.mask
}
