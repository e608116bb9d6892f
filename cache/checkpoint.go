package cache

import (
	"maps"
	"slices"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
)

// ResetState drops every line, the replacement state, any checkpoint and
// the counters.
func (u *Unit) ResetState() {
	u.sets = make(map[uint64]*Set)
	u.savedSets = nil
	u.temp = false
	u.stats = Statistics{}
}

// SetUseTempState turns checkpointing on or off. Turning it on saves a deep
// copy of the lines and replacement state. Turning it off restores that copy
// and discards everything done in between. Repeated calls with the same
// value have no effect.
func (u *Unit) SetUseTempState(on bool) {
	if on == u.temp {
		return
	}

	if on {
		u.savedSets = cloneSets(u.sets)
		u.saved = u.stats
		u.temp = true

		return
	}

	u.sets = u.savedSets
	u.stats = u.saved
	u.savedSets = nil
	u.temp = false
}

// InTempState reports whether a checkpoint is active.
func (u *Unit) InTempState() bool {
	return u.temp
}

func cloneSets(sets map[uint64]*Set) map[uint64]*Set {
	out := make(map[uint64]*Set, len(sets))
	for idx, s := range sets {
		out[idx] = s.clone()
	}

	return out
}

// IsHitValue is IsHit for a raw address value.
func (u *Unit) IsHitValue(v bitvec.BitVector) bool {
	return u.IsHit(u.addressInit(v))
}

// SeeEntry returns the content of a valid line. It has no effect on
// replacement or coherence state.
func (u *Unit) SeeEntry(set, way uint64) (buffer.Address, buffer.Entry, bool) {
	s, ok := u.sets[set]
	if !ok || way >= uint64(len(s.lines)) {
		return buffer.Address{}, buffer.Entry{}, false
	}

	l := &s.lines[way]
	if !l.Valid() {
		return buffer.Address{}, buffer.Entry{}, false
	}

	return l.address, l.entry, true
}

// SetIndices lists the sets created so far in ascending order.
func (u *Unit) SetIndices() []uint64 {
	return slices.Sorted(maps.Keys(u.sets))
}

// Lines returns a printable view of one set.
func (u *Unit) Lines(set uint64) []string {
	s, ok := u.sets[set]
	if !ok {
		return nil
	}

	out := make([]string, len(s.lines))
	for i := range s.lines {
		out[i] = s.lines[i].String()
	}

	return out
}

// Flush evicts every line, writing dirty data to the next level as the
// policies require.
func (u *Unit) Flush() {
	for _, idx := range u.SetIndices() {
		s := u.sets[idx]
		for way := range s.lines {
			if s.lines[way].present {
				u.evictLine(s, way)
			}
		}
	}
}
