package buffer

import "github.com/sarchlab/mmusim/bitvec"

// Address is an immutable fixed-width address value. The hierarchy never
// interprets it except through an Indexer and a Matcher.
type Address struct {
	bits bitvec.BitVector
}

// NewAddress wraps a bit vector.
func NewAddress(bits bitvec.BitVector) Address {
	return Address{bits: bits}
}

// AddressOf creates an address of the given width from an integer.
func AddressOf(width int, v uint64) Address {
	return Address{bits: bitvec.FromUint64(width, v)}
}

// Bits returns the raw value.
func (a Address) Bits() bitvec.BitVector {
	return a.bits
}

// Uint64 returns the low 64 bits.
func (a Address) Uint64() uint64 {
	return a.bits.Uint64()
}

// Width returns the address width in bits.
func (a Address) Width() int {
	return a.bits.Width()
}

// Equal compares two addresses.
func (a Address) Equal(o Address) bool {
	return a.bits.Equal(o.bits)
}

func (a Address) String() string {
	return a.bits.String()
}

// AddressInit turns a raw value into an address of a particular kind. It is
// passed explicitly to every component that has to materialize addresses.
type AddressInit func(v bitvec.BitVector) Address

// DefaultAddressInit resizes raw values to the given address width.
func DefaultAddressInit(width int) AddressInit {
	return func(v bitvec.BitVector) Address {
		return NewAddress(v.Resize(width))
	}
}
