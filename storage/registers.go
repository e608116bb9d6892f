package storage

import (
	"fmt"
	"maps"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
)

// Registers is a register-mapped buffer with a fixed number of entries
// selected by an Indexer. Registers are always present; unwritten ones read
// as zero. Partial writes are not supported.
type Registers struct {
	layout  *buffer.Layout
	indexer buffer.Indexer
	size    uint64

	values map[uint64]buffer.Entry
	saved  map[uint64]buffer.Entry
}

// NewRegisters creates a register file of size entries.
func NewRegisters(layout *buffer.Layout, indexer buffer.Indexer, size uint64) *Registers {
	if layout == nil || indexer == nil || size == 0 {
		panic("registers require a layout, an indexer and a positive size")
	}

	return &Registers{
		layout:  layout,
		indexer: indexer,
		size:    size,
		values:  make(map[uint64]buffer.Entry),
	}
}

func (r *Registers) index(a buffer.Address) (uint64, bool) {
	i := r.indexer.Index(a)
	return i, i < r.size
}

// Layout returns the entry layout.
func (r *Registers) Layout() *buffer.Layout {
	return r.layout
}

// IsHit reports whether the address selects an existing register.
func (r *Registers) IsHit(a buffer.Address) bool {
	_, ok := r.index(a)
	return ok
}

// ReadEntry returns the register value.
func (r *Registers) ReadEntry(a buffer.Address) (buffer.Entry, bool) {
	i, ok := r.index(a)
	if !ok {
		return buffer.Entry{}, false
	}

	if v, ok := r.values[i]; ok {
		return v, true
	}

	return r.layout.New(), true
}

// WriteEntry replaces the register value.
func (r *Registers) WriteEntry(a buffer.Address, data buffer.Entry) {
	i, ok := r.index(a)
	if !ok {
		panic(fmt.Sprintf("register index %d out of range [0, %d)", i, r.size))
	}

	r.values[i] = r.layout.FromBits(data.Bits())
}

// WritePartial always fails with buffer.ErrUnsupported.
func (r *Registers) WritePartial(a buffer.Address, lo, hi int, _ bitvec.BitVector) error {
	i, _ := r.index(a)
	return fmt.Errorf("%w: partial write [%d, %d] to register %d",
		buffer.ErrUnsupported, lo, hi, i)
}

// SetUseTempState checkpoints the register values.
func (r *Registers) SetUseTempState(on bool) {
	if on == (r.saved != nil) {
		return
	}

	if on {
		r.saved = r.values
		r.values = maps.Clone(r.values)
	} else {
		r.values = r.saved
		r.saved = nil
	}
}

// ResetState clears all registers.
func (r *Registers) ResetState() {
	r.values = make(map[uint64]buffer.Entry)
	r.saved = nil
}
