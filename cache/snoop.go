package cache

import (
	"fmt"

	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/policy"
)

// LineInfo is the inspectable state of one resident line.
type LineInfo struct {
	State coherence.State
	Dirty bool
	Valid bool
}

// Probe reports the state of the line allocated for the address without
// touching replacement or coherence state.
func (u *Unit) Probe(a buffer.Address) (LineInfo, bool) {
	set, way := u.lookup(a)
	if way < 0 {
		return LineInfo{}, false
	}

	l := &set.lines[way]

	return LineInfo{State: l.state, Dirty: l.dirty, Valid: l.Valid()}, true
}

// HolderStates returns the states of the valid copies of the address held by
// this unit and its neighbors.
func (u *Unit) HolderStates(a buffer.Address) []coherence.State {
	var states []coherence.State

	if l := u.validLine(a); l != nil {
		states = append(states, l.state)
	}

	for _, n := range u.neighbors {
		if l := n.validLine(a); l != nil {
			states = append(states, l.state)
		}
	}

	return states
}

// CheckCoherent applies the protocol check to every holder of the address.
func (u *Unit) CheckCoherent(a buffer.Address) bool {
	return u.protocol.IsCoherent(u.HolderStates(a))
}

func (u *Unit) checkCoherent(a buffer.Address) {
	if !u.protocol.Enabled() {
		return
	}

	if !u.CheckCoherent(a) {
		panic(fmt.Sprintf("%s: incoherent states %v for address %s",
			u.name, u.HolderStates(a), a))
	}
}

func (u *Unit) neighborHolds(a buffer.Address) bool {
	if !u.protocol.Enabled() {
		return false
	}

	for _, n := range u.neighbors {
		if n.validLine(a) != nil {
			return true
		}
	}

	return false
}

func (u *Unit) isExclusive(a buffer.Address) bool {
	return !u.neighborHolds(a)
}

// sendSnoopRead asks every neighbor for the address. It returns the data of
// the first neighbor that holds a valid copy.
func (u *Unit) sendSnoopRead(a buffer.Address) (buffer.Entry, bool) {
	if !u.protocol.Enabled() {
		return buffer.Entry{}, false
	}

	var (
		data  buffer.Entry
		found bool
	)

	for _, n := range u.neighbors {
		e, ok := n.snoopRead(a)
		if ok && !found {
			data, found = e, true
		}
	}

	return data, found
}

// sendSnoopWrite invalidates the address in every neighbor. It returns the
// data of the first copy dropped.
func (u *Unit) sendSnoopWrite(a buffer.Address) (buffer.Entry, bool) {
	if !u.protocol.Enabled() {
		return buffer.Entry{}, false
	}

	var (
		data  buffer.Entry
		found bool
	)

	for _, n := range u.neighbors {
		e, ok := n.snoopWrite(a)
		if ok && !found {
			data, found = e, true
		}
	}

	return data, found
}

func (u *Unit) sendSnoopEvict(a buffer.Address) {
	if !u.protocol.Enabled() {
		return
	}

	for _, n := range u.neighbors {
		n.snoopEvict(a)
	}
}

func (u *Unit) snoopRead(a buffer.Address) (buffer.Entry, bool) {
	set, way := u.lookup(a)
	if way < 0 || !set.lines[way].Valid() {
		return buffer.Entry{}, false
	}

	u.stats.Snoops++

	l := &set.lines[way]
	data := l.entry

	next := u.protocol.OnSnoopRead(l.state)
	if next == coherence.Invalid {
		u.evictLine(set, way)
	} else {
		l.state = next
		u.invoke(HookPosSnoop, a, true, l)
	}

	return data, true
}

// snoopWrite drops the local copy without writing it back. The writer
// becomes the only holder of the data.
func (u *Unit) snoopWrite(a buffer.Address) (buffer.Entry, bool) {
	if u.validLine(a) == nil {
		return buffer.Entry{}, false
	}

	u.stats.Snoops++
	u.backInvalidate(a, true)

	set, way := u.lookup(a)
	l := &set.lines[way]
	data := l.entry

	l.state = u.protocol.OnSnoopWrite(l.state)
	u.invoke(HookPosSnoop, a, true, l)
	u.drop(set, way)

	return data, true
}

func (u *Unit) snoopEvict(a buffer.Address) {
	l := u.validLine(a)
	if l == nil {
		return
	}

	u.stats.Snoops++
	l.state = u.protocol.OnSnoopEvict(l.state)
	u.invoke(HookPosSnoop, a, true, l)
}

// backInvalidate removes the address from the units above. Without force
// only inclusive pairs are affected. Dirty upper copies are absorbed into
// the local line first.
func (u *Unit) backInvalidate(a buffer.Address, force bool) {
	for _, p := range u.previous {
		if !force &&
			p.policy.Inclusion != policy.Inclusive &&
			u.policy.Inclusion != policy.Inclusive {
			continue
		}

		if p.validLine(a) == nil {
			continue
		}

		p.backInvalidate(a, true)

		set, way := p.lookup(a)
		l := &set.lines[way]

		if l.dirty {
			if own := u.validLine(a); own != nil {
				own.entry = u.stamp(l.entry.Bits(), a)
				own.dirty = true
			}
		}

		u.stats.BackInvalidations++
		p.invoke(HookPosEvict, a, true, l)
		p.drop(set, way)
		p.checkCoherent(a)
	}
}
