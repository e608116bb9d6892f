package cache

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/policy"
)

// Builder can build cache units.
type Builder struct {
	layout        *buffer.Layout
	addressWidth  int
	addressInit   buffer.AddressInit
	associativity int
	numSets       uint64
	policy        *policy.CachePolicy
	indexer       buffer.Indexer
	matcher       buffer.Matcher
	next          buffer.Buffer
	source        eviction.Source
}

// MakeBuilder creates a new builder for a direct-mapped unit with one set.
func MakeBuilder() Builder {
	return Builder{
		addressWidth:  64,
		associativity: 1,
		numSets:       1,
	}
}

// WithLayout sets the entry layout.
func (b Builder) WithLayout(layout *buffer.Layout) Builder {
	b.layout = layout
	return b
}

// WithAddressWidth sets the address width used by IsHitValue when no
// address constructor is given.
func (b Builder) WithAddressWidth(width int) Builder {
	b.addressWidth = width
	return b
}

// WithAddressInit sets the constructor that turns raw values into addresses.
func (b Builder) WithAddressInit(f buffer.AddressInit) Builder {
	b.addressInit = f
	return b
}

// WithAssociativity sets the number of ways per set.
func (b Builder) WithAssociativity(associativity int) Builder {
	b.associativity = associativity
	return b
}

// WithNumSets sets the declared number of sets.
func (b Builder) WithNumSets(numSets uint64) Builder {
	b.numSets = numSets
	return b
}

// WithPolicy sets the eviction, write, inclusion and coherence policies.
func (b Builder) WithPolicy(p policy.CachePolicy) Builder {
	b.policy = &p
	return b
}

// WithIndexer sets the set-index function.
func (b Builder) WithIndexer(indexer buffer.Indexer) Builder {
	b.indexer = indexer
	return b
}

// WithMatcher sets the tag matcher.
func (b Builder) WithMatcher(matcher buffer.Matcher) Builder {
	b.matcher = matcher
	return b
}

// WithNext sets the lower level. A *Unit below learns about the new unit so
// that it can invalidate it.
func (b Builder) WithNext(next buffer.Buffer) Builder {
	b.next = next
	return b
}

// WithRandomSource sets the source used by random eviction.
func (b Builder) WithRandomSource(src eviction.Source) Builder {
	b.source = src
	return b
}

// Build creates the unit. It panics on an invalid configuration.
func (b Builder) Build(name string) *Unit {
	b.mustBeValid(name)

	u := &Unit{
		HookableBase:  sim.NewHookableBase(),
		name:          name,
		layout:        b.layout,
		addressInit:   b.addressInit,
		associativity: b.associativity,
		numSets:       b.numSets,
		policy:        *b.policy,
		protocol:      coherence.New(b.policy.Coherence),
		indexer:       b.indexer,
		matcher:       b.matcher,
		source:        b.source,
		next:          b.next,
		sets:          make(map[uint64]*Set),
	}

	if u.addressInit == nil {
		u.addressInit = buffer.DefaultAddressInit(b.addressWidth)
	}

	if u.source == nil {
		u.source = eviction.NewSource(0)
	}

	// Fails early on policies that cannot drive a set of this size.
	eviction.New(u.policy.Eviction, u.associativity, u.source)

	if shaped, ok := b.next.(buffer.Shaped); ok {
		u.nextWidth = shaped.Layout().Width()
	}

	if lower, ok := b.next.(*Unit); ok {
		u.nextUnit = lower
		lower.previous = append(lower.previous, u)
	}

	return u
}

func (b Builder) mustBeValid(name string) {
	switch {
	case b.layout == nil:
		panic(fmt.Sprintf("%s: entry layout is required", name))
	case b.associativity <= 0:
		panic(fmt.Sprintf("%s: associativity must be positive, got %d",
			name, b.associativity))
	case b.indexer == nil:
		panic(fmt.Sprintf("%s: indexer is required", name))
	case b.matcher == nil:
		panic(fmt.Sprintf("%s: matcher is required", name))
	case b.policy == nil:
		panic(fmt.Sprintf("%s: cache policy is required", name))
	}

	if err := b.policy.Validate(); err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	needsNext := b.policy.Write.Back || b.policy.Write.Through ||
		b.policy.Inclusion == policy.Exclusive
	if needsNext && b.next == nil {
		panic(fmt.Sprintf("%s: policy %s requires a next level", name, b.policy))
	}
}
