// Package cache implements one level of a set-associative, snoop-coherent
// cache hierarchy.
package cache

import (
	"fmt"
	"slices"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/policy"
)

// Unit is one level of the hierarchy. It owns a sparse table of sets, links
// to a next level, and knows the units directly above it (previous) and its
// same-level siblings (neighbors).
//
// A Unit is not safe for concurrent use. Every operation, including the
// snoops and invalidations it triggers in other units, completes before it
// returns.
type Unit struct {
	*sim.HookableBase

	name          string
	layout        *buffer.Layout
	addressInit   buffer.AddressInit
	associativity int
	numSets       uint64
	policy        policy.CachePolicy
	protocol      coherence.Protocol
	indexer       buffer.Indexer
	matcher       buffer.Matcher
	source        eviction.Source

	next      buffer.Buffer
	nextUnit  *Unit
	nextWidth int

	previous  []*Unit
	neighbors []*Unit

	sets      map[uint64]*Set
	savedSets map[uint64]*Set
	temp      bool

	stats Statistics
	saved Statistics
}

var (
	_ buffer.Replaceable  = (*Unit)(nil)
	_ buffer.Observer     = (*Unit)(nil)
	_ buffer.StateManager = (*Unit)(nil)
	_ buffer.Shaped       = (*Unit)(nil)
)

// Name returns the unit name.
func (u *Unit) Name() string {
	return u.name
}

// Policy returns the policy the unit was built with.
func (u *Unit) Policy() policy.CachePolicy {
	return u.policy
}

// Layout returns the entry layout.
func (u *Unit) Layout() *buffer.Layout {
	return u.layout
}

// Associativity returns the number of ways per set.
func (u *Unit) Associativity() int {
	return u.associativity
}

// NumSets returns the declared number of sets. Sets are still created on
// demand for any index the Indexer produces.
func (u *Unit) NumSets() uint64 {
	return u.numSets
}

// Next returns the lower level.
func (u *Unit) Next() (buffer.Buffer, bool) {
	return u.next, u.next != nil
}

// Previous returns the units whose next level is this unit.
func (u *Unit) Previous() []*Unit {
	return slices.Clone(u.previous)
}

// Neighbors returns the same-level units snooped by this unit.
func (u *Unit) Neighbors() []*Unit {
	return slices.Clone(u.neighbors)
}

// AddNeighbor registers a same-level unit to snoop. Links are one way.
func (u *Unit) AddNeighbor(other *Unit) {
	if other == nil {
		panic("neighbor must not be nil")
	}

	if other == u {
		panic(fmt.Sprintf("%s cannot be its own neighbor", u.name))
	}

	if slices.Contains(u.neighbors, other) {
		return
	}

	u.neighbors = append(u.neighbors, other)
}

// Stats returns the access counters.
func (u *Unit) Stats() Statistics {
	return u.stats
}

// ResetStats clears the access counters.
func (u *Unit) ResetStats() {
	u.stats = Statistics{}
}

func (u *Unit) fullWidth() int {
	return u.layout.Width()
}

// lookup finds the line holding a without creating sets.
func (u *Unit) lookup(a buffer.Address) (*Set, int) {
	set, ok := u.sets[u.indexer.Index(a)]
	if !ok {
		return nil, -1
	}

	return set, set.way(u.matcher, a)
}

func (u *Unit) setFor(a buffer.Address) *Set {
	idx := u.indexer.Index(a)

	set, ok := u.sets[idx]
	if !ok {
		set = newSet(u.associativity,
			eviction.New(u.policy.Eviction, u.associativity, u.source))
		u.sets[idx] = set
	}

	return set
}

func (u *Unit) validLine(a buffer.Address) *Line {
	set, way := u.lookup(a)
	if way < 0 || !set.lines[way].Valid() {
		return nil
	}

	return &set.lines[way]
}

func (u *Unit) stamp(data bitvec.BitVector, a buffer.Address) buffer.Entry {
	return u.matcher.AssignTag(u.layout.FromBits(data.Resize(u.fullWidth())), a)
}

// IsHit reports whether a line is allocated for the address. Allocated lines
// that have not been filled yet count as hits.
func (u *Unit) IsHit(a buffer.Address) bool {
	_, way := u.lookup(a)
	return way >= 0
}

// ReadEntry returns the entry for the address, fetching it from neighbors or
// lower levels on a miss. It returns false when no level can supply data.
func (u *Unit) ReadEntry(a buffer.Address) (buffer.Entry, bool) {
	return u.read(a, false)
}

// read serves a read. With forWrite set the data only completes a partial
// write, and an unwritten word in the terminal level yields no data instead
// of a fatal error.
func (u *Unit) read(a buffer.Address, forWrite bool) (buffer.Entry, bool) {
	u.stats.Reads++

	set := u.setFor(a)
	way := set.way(u.matcher, a)

	if way >= 0 {
		u.stats.Hits++
		set.policy.OnAccess(way)

		l := &set.lines[way]
		if l.Valid() {
			l.state = u.protocol.OnRead(l.state, u.isExclusive(a))
		} else if data, dirty, ok := u.fetch(a, true); ok {
			u.install(l, a, data, dirty)
		}

		// An allocated line nothing below can fill keeps its unspecified
		// content.
		u.invoke(HookPosRead, a, true, l)

		return l.entry, true
	}

	u.stats.Misses++

	data, dirty, ok := u.fetch(a, forWrite)
	if !ok {
		u.invoke(HookPosRead, a, false, nil)
		return buffer.Entry{}, false
	}

	way = u.alloc(set, a)
	l := &set.lines[way]
	u.install(l, a, data, dirty)
	u.invoke(HookPosRead, a, false, l)

	return l.entry, true
}

// fetch finds the data of an address in a neighbor, or in the lower levels
// when no neighbor holds it.
func (u *Unit) fetch(a buffer.Address, forWrite bool) (buffer.Entry, bool, bool) {
	if data, ok := u.sendSnoopRead(a); ok {
		return data, false, true
	}

	return u.readThrough(a, forWrite)
}

// install fills an allocated line with fetched data.
func (u *Unit) install(l *Line, a buffer.Address, data buffer.Entry, dirty bool) {
	l.entry = u.stamp(data.Bits(), a)
	l.dirty = dirty
	l.state = u.protocol.OnRead(coherence.Invalid, u.isExclusive(a))
	u.checkCoherent(a)
}

// WriteEntry writes a full entry.
func (u *Unit) WriteEntry(a buffer.Address, data buffer.Entry) {
	err := u.write(a, 0, u.fullWidth()-1, data.Bits())
	if err != nil {
		panic(err)
	}
}

// WritePartial writes the bit range [lo, hi] of the entry.
func (u *Unit) WritePartial(a buffer.Address, lo, hi int, data bitvec.BitVector) error {
	return u.write(a, lo, hi, data)
}

func (u *Unit) write(a buffer.Address, lo, hi int, data bitvec.BitVector) error {
	if lo < 0 || hi < lo || hi >= u.fullWidth() {
		return fmt.Errorf("%s: bit range [%d, %d] outside entry of %d bits",
			u.name, lo, hi, u.fullWidth())
	}

	lo, hi, data = u.writeLocal(a, lo, hi, data)

	if u.policy.Write.Through {
		return u.writeThrough(a, lo, hi, data)
	}

	return nil
}

// writeLocal applies a write to this unit and returns the range that must
// go further down. A missed partial write that invalidated a neighbor copy
// widens to the whole entry so that the copy's other bits are not lost.
func (u *Unit) writeLocal(
	a buffer.Address,
	lo, hi int,
	data bitvec.BitVector,
) (int, int, bitvec.BitVector) {
	u.stats.Writes++

	set := u.setFor(a)
	way := set.way(u.matcher, a)

	switch {
	case way >= 0:
		u.stats.Hits++
		set.policy.OnAccess(way)
		u.writeLine(set, way, a, lo, hi, data)
		u.invoke(HookPosWrite, a, true, &set.lines[way])
	case u.policy.Write.Allocate:
		u.stats.Misses++
		way = u.alloc(set, a)
		u.writeLine(set, way, a, lo, hi, data)
		u.invoke(HookPosWrite, a, false, &set.lines[way])
	default:
		u.stats.Misses++

		snooped, ok := u.sendSnoopWrite(a)
		u.invoke(HookPosWrite, a, false, nil)

		if ok && (lo != 0 || hi != u.fullWidth()-1) {
			merged := snooped.Bits().Resize(u.fullWidth()).SetField(lo, hi, data)
			return 0, u.fullWidth() - 1, merged
		}
	}

	return lo, hi, data
}

// writeLine updates the allocated line at way. Neighbors are invalidated
// first. A line that has no data yet takes it from a neighbor, or from below
// when only part of the entry is written.
func (u *Unit) writeLine(
	set *Set,
	way int,
	a buffer.Address,
	lo, hi int,
	data bitvec.BitVector,
) {
	snooped, ok := u.sendSnoopWrite(a)
	l := &set.lines[way]

	var base bitvec.BitVector

	switch {
	case l.Valid():
		base = l.entry.Bits()
	case ok:
		base = snooped.Bits()
	case lo == 0 && hi == u.fullWidth()-1:
		base = bitvec.New(u.fullWidth())
		if u.policy.Inclusion == policy.Exclusive {
			u.dropBelow(a)
		}
	default:
		base = bitvec.New(u.fullWidth())
		if e, _, found := u.readThrough(a, true); found {
			base = e.Bits()
		}
	}

	base = base.Resize(u.fullWidth()).SetField(lo, hi, data)

	l.entry = u.stamp(base, a)
	l.dirty = true
	l.state = u.protocol.OnWrite(l.state)
	u.checkCoherent(a)
}

// Assigner writes to one address.
type Assigner struct {
	unit *Unit
	addr buffer.Address
}

// Assign returns an Assigner for the address.
func (u *Unit) Assign(a buffer.Address) Assigner {
	return Assigner{unit: u, addr: a}
}

// Entry writes a full entry.
func (w Assigner) Entry(e buffer.Entry) {
	w.unit.WriteEntry(w.addr, e)
}

// Bits writes a raw entry value.
func (w Assigner) Bits(v bitvec.BitVector) {
	w.unit.WriteEntry(w.addr, w.unit.layout.FromBits(v.Resize(w.unit.fullWidth())))
}

// AllocEntry reserves a line for the address, evicting a victim if needed.
// The address must not be allocated already.
func (u *Unit) AllocEntry(a buffer.Address) {
	set := u.setFor(a)
	if set.way(u.matcher, a) >= 0 {
		panic(fmt.Sprintf("%s: address %s is already allocated", u.name, a))
	}

	u.alloc(set, a)
}

func (u *Unit) alloc(set *Set, a buffer.Address) int {
	way := set.policy.Victim()
	if way < 0 || way >= u.associativity {
		panic(fmt.Sprintf("%s: eviction policy returned way %d", u.name, way))
	}

	if set.lines[way].present {
		u.evictLine(set, way)
	}

	set.lines[way] = Line{
		present: true,
		entry:   u.stamp(bitvec.New(u.fullWidth()), a),
		address: a,
		state:   u.protocol.OnReset(),
	}
	set.policy.OnAccess(way)
	u.stats.Allocations++

	return way
}

// EvictEntry removes the address from this unit. It returns true if valid
// data was removed and false if the line was allocated but never filled.
// Evicting an address that is not allocated is a fatal error.
func (u *Unit) EvictEntry(a buffer.Address) bool {
	set, way := u.lookup(a)
	if way < 0 {
		panic(fmt.Sprintf("%s: evicting address %s that is not resident", u.name, a))
	}

	return u.evictLine(set, way)
}

// evictLine vacates a line. Neighbors are notified, inclusive upper levels
// drop their copies, and the data moves down when the policies require it.
func (u *Unit) evictLine(set *Set, way int) bool {
	l := &set.lines[way]
	if !l.Valid() {
		u.drop(set, way)
		return false
	}

	a := l.address
	u.stats.Evictions++

	u.sendSnoopEvict(a)
	u.backInvalidate(a, false)

	// Upper levels may have written back into this line.
	data, dirty := l.entry, l.dirty
	u.invoke(HookPosEvict, a, true, l)
	u.drop(set, way)

	switch {
	case u.policy.Inclusion == policy.Exclusive && u.nextUnit != nil:
		if dirty {
			u.stats.Writebacks++
		}

		u.nextUnit.handDown(a, data, dirty)
	case dirty && u.next != nil &&
		(u.policy.Write.Back || u.policy.Inclusion == policy.Exclusive):
		u.stats.Writebacks++
		u.invoke(HookPosWriteBack, a, true, nil)
		u.writeBackTo(a, data)
	}

	u.checkCoherent(a)

	return true
}

func (u *Unit) drop(set *Set, way int) {
	set.lines[way] = Line{state: u.protocol.OnReset()}
	set.policy.OnEvict(way)
}
