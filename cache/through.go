package cache

import (
	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/policy"
)

// terminal returns the first buffer below the chain of units.
func (u *Unit) terminal() buffer.Buffer {
	n := u
	for n.nextUnit != nil {
		n = n.nextUnit
	}

	return n.next
}

func readBuffer(b buffer.Buffer, a buffer.Address, forWrite bool) (buffer.Entry, bool) {
	if b == nil {
		return buffer.Entry{}, false
	}

	if forWrite && !b.IsHit(a) {
		return buffer.Entry{}, false
	}

	return b.ReadEntry(a)
}

// readThrough fetches the address from below. An exclusive unit moves the
// line up, removing it from the level where it is found. The dirty result
// is true when moved data has not reached the terminal buffer yet.
func (u *Unit) readThrough(
	a buffer.Address,
	forWrite bool,
) (data buffer.Entry, dirty bool, ok bool) {
	if u.next == nil {
		return buffer.Entry{}, false, false
	}

	if u.policy.Inclusion != policy.Exclusive {
		if u.nextUnit != nil {
			data, ok = u.nextUnit.read(a, forWrite)
			return data, false, ok
		}

		data, ok = readBuffer(u.next, a, forWrite)

		return data, false, ok
	}

	for n := u.nextUnit; n != nil; n = n.nextUnit {
		if data, dirty, ok = n.take(a); ok {
			return data, dirty, true
		}
	}

	data, ok = readBuffer(u.terminal(), a, forWrite)

	return data, false, ok
}

// take removes a valid line and returns its content. Upper units that must
// not outlive the line lose their copies first.
func (u *Unit) take(a buffer.Address) (buffer.Entry, bool, bool) {
	if u.validLine(a) == nil {
		return buffer.Entry{}, false, false
	}

	u.stats.Reads++
	u.stats.Hits++
	u.backInvalidate(a, false)

	set, way := u.lookup(a)
	l := &set.lines[way]
	data, dirty := l.entry, l.dirty

	u.invoke(HookPosEvict, a, true, l)
	u.drop(set, way)
	u.checkCoherent(a)

	return data, dirty, true
}

// dropBelow discards stale lower copies of an address that is about to be
// fully overwritten.
func (u *Unit) dropBelow(a buffer.Address) {
	for n := u.nextUnit; n != nil; n = n.nextUnit {
		set, way := n.lookup(a)
		if way < 0 {
			continue
		}

		n.backInvalidate(a, false)
		n.drop(set, way)
		n.checkCoherent(a)
	}
}

// writeThrough forwards a write to the next level. Below an exclusive unit
// at most one cache level keeps the data, and the terminal buffer always
// receives it.
func (u *Unit) writeThrough(a buffer.Address, lo, hi int, data bitvec.BitVector) error {
	if u.next == nil {
		return nil
	}

	if u.policy.Inclusion != policy.Exclusive {
		return writeClipped(u.next, u.nextWidth, a, lo, hi, data)
	}

	allocated := u.policy.Write.Allocate

	for n := u.nextUnit; n != nil; n = n.nextUnit {
		set, way := n.lookup(a)

		switch {
		case way >= 0 && allocated:
			n.backInvalidate(a, false)
			n.drop(set, way)
			n.checkCoherent(a)
		case !allocated && (way >= 0 || n.policy.Write.Allocate):
			n.writeLocal(a, lo, hi, data)
			allocated = true
		}
	}

	last := u
	for last.nextUnit != nil {
		last = last.nextUnit
	}

	if last.next == nil {
		return nil
	}

	return writeClipped(last.next, last.nextWidth, a, lo, hi, data)
}

// writeClipped drops the bits of a write that lie beyond the entries of a
// narrower buffer. A width of zero means the buffer takes any range.
func writeClipped(
	b buffer.Buffer,
	width int,
	a buffer.Address,
	lo, hi int,
	data bitvec.BitVector,
) error {
	if width > 0 && hi >= width {
		if lo >= width {
			return nil
		}

		hi = width - 1
	}

	return b.WritePartial(a, lo, hi, data.Resize(hi-lo+1))
}

func (u *Unit) writeBackTo(a buffer.Address, data buffer.Entry) {
	if u.nextUnit != nil {
		u.nextUnit.writeBack(a, data)
		return
	}

	u.next.WriteEntry(a, data)
}

// writeBack receives dirty data evicted from the level above. A resident
// line absorbs it in place after invalidating the neighbors.
func (u *Unit) writeBack(a buffer.Address, data buffer.Entry) {
	l := u.validLine(a)
	if l == nil {
		u.WriteEntry(a, data)
		return
	}

	u.stats.Writes++
	u.stats.Hits++

	set, way := u.lookup(a)
	set.policy.OnAccess(way)
	u.sendSnoopWrite(a)

	l.entry = u.stamp(data.Bits(), a)
	l.dirty = true
	l.state = u.protocol.OnWrite(l.state)
	u.checkCoherent(a)
	u.invoke(HookPosWrite, a, true, l)

	if u.policy.Write.Through {
		err := u.writeThrough(a, 0, u.fullWidth()-1, data.Bits())
		if err != nil {
			panic(err)
		}
	}
}

// handDown installs a line evicted from an exclusive unit above.
func (u *Unit) handDown(a buffer.Address, data buffer.Entry, dirty bool) {
	set := u.setFor(a)
	way := set.way(u.matcher, a)
	hit := way >= 0

	switch {
	case hit && set.lines[way].Valid():
		l := &set.lines[way]
		l.entry = u.stamp(data.Bits(), a)
		l.dirty = l.dirty || dirty
		set.policy.OnAccess(way)
	default:
		if !hit {
			way = u.alloc(set, a)
		}

		if dirty {
			u.sendSnoopWrite(a)
		} else {
			u.sendSnoopRead(a)
		}

		l := &set.lines[way]
		l.entry = u.stamp(data.Bits(), a)
		l.dirty = dirty

		if dirty {
			l.state = u.protocol.OnWrite(l.state)
		} else {
			l.state = u.protocol.OnRead(l.state, u.isExclusive(a))
		}

		u.checkCoherent(a)
	}

	u.invoke(HookPosWrite, a, hit, &set.lines[way])

	if dirty && u.policy.Write.Through {
		err := u.writeThrough(a, 0, u.fullWidth()-1, data.Bits())
		if err != nil {
			panic(err)
		}
	}
}
