package eviction

import "slices"

// fifoPolicy keeps ways that were never used ahead of the used ones. Used
// ways are ordered by their last access.
type fifoPolicy struct {
	associativity int
	unallocated   []int
	allocated     []int
}

func newFIFO(associativity int) *fifoPolicy {
	p := &fifoPolicy{associativity: associativity}
	p.ResetState()

	return p
}

func (p *fifoPolicy) OnAccess(way int) {
	if i := slices.Index(p.unallocated, way); i >= 0 {
		p.unallocated = slices.Delete(p.unallocated, i, i+1)
	} else if i := slices.Index(p.allocated, way); i >= 0 {
		p.allocated = slices.Delete(p.allocated, i, i+1)
	}

	p.allocated = append(p.allocated, way)
}

func (p *fifoPolicy) OnEvict(way int) {
	i := slices.Index(p.allocated, way)
	if i < 0 {
		return
	}

	p.allocated = slices.Delete(p.allocated, i, i+1)
	p.unallocated = slices.Insert(p.unallocated, 0, way)
}

func (p *fifoPolicy) Victim() int {
	if len(p.unallocated) > 0 {
		return p.unallocated[0]
	}

	return p.allocated[0]
}

func (p *fifoPolicy) ResetState() {
	p.unallocated = make([]int, p.associativity)
	for i := range p.unallocated {
		p.unallocated[i] = i
	}

	p.allocated = make([]int, 0, p.associativity)
}

func (p *fifoPolicy) Clone() Policy {
	return &fifoPolicy{
		associativity: p.associativity,
		unallocated:   slices.Clone(p.unallocated),
		allocated:     slices.Clone(p.allocated),
	}
}
