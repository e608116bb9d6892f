// Package eviction provides the replacement policies that choose a victim
// way inside one cache set.
package eviction

import (
	"fmt"
	"strings"
)

// ID names a replacement policy.
type ID int

// The supported replacement policies.
const (
	Random ID = iota
	FIFO
	LRU
	PLRU
	None
)

var idNames = map[ID]string{
	Random: "random",
	FIFO:   "fifo",
	LRU:    "lru",
	PLRU:   "plru",
	None:   "none",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}

	return fmt.Sprintf("ID(%d)", int(id))
}

// ParseID converts a policy name into an ID. Matching is case insensitive.
func ParseID(s string) (ID, error) {
	for id, name := range idNames {
		if strings.EqualFold(s, name) {
			return id, nil
		}
	}

	return 0, fmt.Errorf("unknown eviction policy %q", s)
}

// Policy tracks per-way usage of one set and selects victims.
type Policy interface {
	// OnAccess records a hit on, or an allocation into, the given way.
	OnAccess(way int)

	// OnEvict records that the given way has been vacated.
	OnEvict(way int)

	// Victim returns the way to replace next. It does not change the state.
	Victim() int

	// ResetState restores the initial state.
	ResetState()

	// Clone returns an independent copy sharing only the random source.
	Clone() Policy
}

// MaxPLRUAssociativity is the widest set the bitmask PLRU can track.
const MaxPLRUAssociativity = 64

// New creates a policy for a set of the given associativity. It panics on
// configuration errors.
func New(id ID, associativity int, src Source) Policy {
	if associativity <= 0 {
		panic(fmt.Sprintf("associativity must be positive, got %d", associativity))
	}

	switch id {
	case Random:
		if src == nil {
			panic("random eviction requires a random source")
		}

		return &randomPolicy{associativity: associativity, src: src}
	case FIFO:
		return newFIFO(associativity)
	case LRU:
		return newLRU(associativity)
	case PLRU:
		if associativity > MaxPLRUAssociativity {
			panic(fmt.Sprintf("plru supports at most %d ways, got %d",
				MaxPLRUAssociativity, associativity))
		}

		return newPLRU(associativity)
	case None:
		return nonePolicy{}
	default:
		panic(fmt.Sprintf("unknown eviction policy %s", id))
	}
}

type nonePolicy struct{}

func (nonePolicy) OnAccess(int) {}
func (nonePolicy) OnEvict(int) {}
func (nonePolicy) Victim() int { return 0 }
func (nonePolicy) ResetState() {}
func (p nonePolicy) Clone() Policy { return p }

type randomPolicy struct {
	associativity int
	src           Source
}

func (p *randomPolicy) OnAccess(int) {}
func (p *randomPolicy) OnEvict(int) {}
func (p *randomPolicy) ResetState() {}

func (p *randomPolicy) Victim() int {
	return p.src.Intn(p.associativity)
}

func (p *randomPolicy) Clone() Policy {
	c := *p
	return &c
}
