package storage

import (
	"fmt"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
)

// Adapter exposes a Device as the lowest-level buffer. Buffer addresses are
// byte addresses; each entry spans a whole number of device words and is
// aligned to its size.
type Adapter struct {
	dev       Device
	layout    *buffer.Layout
	wordBits  int
	words     uint64
	entrySize uint64

	temp    bool
	overlay map[uint64]bitvec.BitVector
}

// NewAdapter creates an adapter storing entries of the layout in dev.
func NewAdapter(dev Device, layout *buffer.Layout) *Adapter {
	if dev == nil || layout == nil {
		panic("adapter requires a device and a layout")
	}

	wordBits := dev.DataBitSize()
	if wordBits <= 0 || wordBits%8 != 0 {
		panic(fmt.Sprintf("device word size %d is not a multiple of 8", wordBits))
	}

	words := uint64((layout.Width() + wordBits - 1) / wordBits)

	return &Adapter{
		dev:       dev,
		layout:    layout,
		wordBits:  wordBits,
		words:     words,
		entrySize: words * uint64(wordBits/8),
	}
}

// Device returns the underlying device.
func (a *Adapter) Device() Device {
	return a.dev
}

// Layout returns the entry layout.
func (a *Adapter) Layout() *buffer.Layout {
	return a.layout
}

// EntrySize returns the number of bytes covered by one entry.
func (a *Adapter) EntrySize() uint64 {
	return a.entrySize
}

// firstWord maps a byte address to the device address of the first word of
// the entry containing it.
func (a *Adapter) firstWord(addr buffer.Address) uint64 {
	return addr.Uint64() / a.entrySize * a.words
}

func (a *Adapter) load(w uint64) bitvec.BitVector {
	if v, ok := a.overlay[w]; ok {
		return v
	}

	return a.dev.Load(w)
}

func (a *Adapter) initialized(w uint64) bool {
	if _, ok := a.overlay[w]; ok {
		return true
	}

	return a.dev.IsInitialized(w)
}

func (a *Adapter) store(w uint64, v bitvec.BitVector) {
	if a.temp {
		a.overlay[w] = v
		return
	}

	a.dev.Store(w, v)
}

func (a *Adapter) storePartial(w uint64, byteOffset int, v bitvec.BitVector) {
	if a.temp {
		lo := byteOffset * 8
		a.overlay[w] = a.load(w).SetField(lo, lo+v.Width()-1, v)

		return
	}

	a.dev.StorePartial(w, byteOffset, v)
}

// IsHit reports whether every word of the entry has been written.
func (a *Adapter) IsHit(addr buffer.Address) bool {
	base := a.firstWord(addr)
	for i := uint64(0); i < a.words; i++ {
		if !a.initialized(base + i) {
			return false
		}
	}

	return true
}

// ReadEntry assembles the entry from consecutive words. Reading a word that
// was never written is a fatal error.
func (a *Adapter) ReadEntry(addr buffer.Address) (buffer.Entry, bool) {
	base := a.firstWord(addr)
	bits := bitvec.New(int(a.words) * a.wordBits)

	for i := uint64(0); i < a.words; i++ {
		w := base + i
		if !a.initialized(w) {
			panic(fmt.Sprintf("read of uninitialized memory word %#x (address %s)",
				w, addr))
		}

		lo := int(i) * a.wordBits
		bits = bits.SetField(lo, lo+a.wordBits-1, a.load(w))
	}

	return a.layout.FromBits(bits.Resize(a.layout.Width())), true
}

// WriteEntry splits the entry into words.
func (a *Adapter) WriteEntry(addr buffer.Address, data buffer.Entry) {
	base := a.firstWord(addr)
	bits := data.Bits().Resize(int(a.words) * a.wordBits)

	for i := uint64(0); i < a.words; i++ {
		lo := int(i) * a.wordBits
		a.store(base+i, bits.Field(lo, lo+a.wordBits-1))
	}
}

type wordWrite struct {
	word       uint64
	byteOffset int
	full       bool
	data       bitvec.BitVector
}

// WritePartial updates the bit range [lo, hi] of the entry. Ranges that cover
// a word only partially must be byte aligned inside that word.
func (a *Adapter) WritePartial(
	addr buffer.Address,
	lo, hi int,
	data bitvec.BitVector,
) error {
	if lo < 0 || hi < lo || hi >= a.layout.Width() {
		return fmt.Errorf("bit range [%d, %d] outside entry of %d bits",
			lo, hi, a.layout.Width())
	}

	data = data.Resize(hi - lo + 1)
	base := a.firstWord(addr)

	var writes []wordWrite
	for i := lo / a.wordBits; i <= hi/a.wordBits; i++ {
		wordLo := i * a.wordBits
		from := max(lo, wordLo)
		to := min(hi, wordLo+a.wordBits-1)
		part := data.Field(from-lo, to-lo)

		switch {
		case from == wordLo && to == wordLo+a.wordBits-1:
			writes = append(writes, wordWrite{word: base + uint64(i), full: true, data: part})
		case from%8 == 0 && (to+1)%8 == 0:
			writes = append(writes, wordWrite{
				word:       base + uint64(i),
				byteOffset: (from - wordLo) / 8,
				data:       part,
			})
		default:
			return fmt.Errorf("%w: bit range [%d, %d] is not byte aligned",
				buffer.ErrUnsupported, lo, hi)
		}
	}

	for _, w := range writes {
		if w.full {
			a.store(w.word, w.data)
		} else {
			a.storePartial(w.word, w.byteOffset, w.data)
		}
	}

	return nil
}

// SetUseTempState redirects stores into an overlay that is dropped when
// switching back.
func (a *Adapter) SetUseTempState(on bool) {
	if on == a.temp {
		return
	}

	a.temp = on
	if on {
		a.overlay = make(map[uint64]bitvec.BitVector)
	} else {
		a.overlay = nil
	}
}

// ResetState drops the temporary overlay. Device contents belong to the
// device and are kept.
func (a *Adapter) ResetState() {
	a.temp = false
	a.overlay = nil
}
