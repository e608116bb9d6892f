package cache

import (
	"fmt"

	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
)

// Line is one associative slot. A present line holds an entry stamped with
// the tag of address. It becomes valid once it has been filled, which moves
// it out of the Invalid state.
type Line struct {
	present bool
	entry   buffer.Entry
	address buffer.Address
	dirty   bool
	state   coherence.State
}

// Valid reports whether the line holds usable data.
func (l *Line) Valid() bool {
	return l.present && l.state != coherence.Invalid
}

func (l *Line) String() string {
	if !l.present {
		return "-"
	}

	d := ""
	if l.dirty {
		d = "*"
	}

	return fmt.Sprintf("%s:%s%s", l.address, l.state, d)
}

// Set is a group of lines searched together, with its own replacement state.
type Set struct {
	lines  []Line
	policy eviction.Policy
}

func newSet(associativity int, p eviction.Policy) *Set {
	return &Set{
		lines:  make([]Line, associativity),
		policy: p,
	}
}

// way returns the way holding the address or -1. Two matching lines are a
// fatal error.
func (s *Set) way(m buffer.Matcher, a buffer.Address) int {
	found := -1

	for i := range s.lines {
		l := &s.lines[i]
		if !l.present || !m.Matches(l.entry, a) {
			continue
		}

		if found >= 0 {
			panic(fmt.Sprintf("multiple hits in a cache set for address %s: ways %d and %d",
				a, found, i))
		}

		found = i
	}

	return found
}

func (s *Set) clone() *Set {
	return &Set{
		lines:  append([]Line(nil), s.lines...),
		policy: s.policy.Clone(),
	}
}
