// Package buffer defines the addressable-buffer contract shared by caches,
// backing-store adapters and register files, together with the value types
// they exchange.
package buffer

import (
	"errors"

	"github.com/sarchlab/mmusim/bitvec"
)

// ErrUnsupported is returned by buffers that cannot perform an operation,
// such as partial writes on register-mapped buffers.
var ErrUnsupported = errors.New("unsupported buffer operation")

// Buffer is the base capability of every addressable component.
type Buffer interface {
	// IsHit reports whether the address is present. It never mutates.
	IsHit(a Address) bool

	// ReadEntry returns the entry stored at the address. The second result
	// is false when no data is available.
	ReadEntry(a Address) (Entry, bool)

	// WriteEntry stores a full entry.
	WriteEntry(a Address, data Entry)

	// WritePartial stores data into the inclusive bit range [lo, hi] of the
	// entry at the address.
	WritePartial(a Address, lo, hi int, data bitvec.BitVector) error
}

// Shaped is implemented by buffers with a fixed entry layout. Caches use it
// to trim entries they pass to a narrower level below.
type Shaped interface {
	Layout() *Layout
}

// StateManager is implemented by buffers with resettable and checkpointable
// state.
type StateManager interface {
	// ResetState drops all contents.
	ResetState()

	// SetUseTempState switches to a temporary copy of the state. Switching
	// back discards everything done since.
	SetUseTempState(on bool)
}

// Replaceable is implemented by buffers that allocate and evict entries.
type Replaceable interface {
	Buffer

	// AllocEntry reserves a line for the address. The address must not be
	// present.
	AllocEntry(a Address)

	// EvictEntry vacates the line holding the address. It returns true if
	// valid data was removed.
	EvictEntry(a Address) bool

	// Next returns the lower level, if any.
	Next() (Buffer, bool)
}

// Observer is implemented by buffers that can be inspected by tools. None of
// its methods change replacement or coherence bookkeeping.
type Observer interface {
	// IsHitValue is IsHit for a raw address value.
	IsHitValue(v bitvec.BitVector) bool

	// SeeEntry returns the valid content of one way of one set.
	SeeEntry(set, way uint64) (Address, Entry, bool)

	// SetIndices lists the sets that have been touched, in ascending order.
	SetIndices() []uint64

	// Associativity returns the number of ways per set.
	Associativity() int
}
