// Package bitvec provides fixed-width immutable bit vectors. Addresses and
// entries of the memory hierarchy are built on top of them.
package bitvec

import (
	"fmt"
	"math/big"
)

// BitVector is an immutable unsigned value of a fixed bit width. Bit 0 is
// the least significant bit.
type BitVector struct {
	width int
	v     *big.Int
}

// New creates a zero vector of the given width.
func New(width int) BitVector {
	mustPositive(width)

	return BitVector{width: width, v: new(big.Int)}
}

// FromUint64 creates a vector holding v truncated to width bits.
func FromUint64(width int, v uint64) BitVector {
	return FromBig(width, new(big.Int).SetUint64(v))
}

// FromBig creates a vector holding v truncated to width bits. Negative values
// are taken in two's complement.
func FromBig(width int, v *big.Int) BitVector {
	mustPositive(width)

	return BitVector{width: width, v: new(big.Int).And(v, mask(width))}
}

// FromBytes creates a vector from little-endian bytes.
func FromBytes(width int, data []byte) BitVector {
	be := make([]byte, len(data))
	for i, b := range data {
		be[len(data)-1-i] = b
	}

	return FromBig(width, new(big.Int).SetBytes(be))
}

// Width returns the number of bits.
func (b BitVector) Width() int {
	return b.width
}

func (b BitVector) val() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}

	return b.v
}

// Uint64 returns the low 64 bits.
func (b BitVector) Uint64() uint64 {
	return b.val().Uint64()
}

// Big returns a copy of the value.
func (b BitVector) Big() *big.Int {
	return new(big.Int).Set(b.val())
}

// Bytes returns the value as little-endian bytes, (Width+7)/8 long.
func (b BitVector) Bytes() []byte {
	n := (b.width + 7) / 8
	out := make([]byte, n)

	be := b.val().Bytes()
	for i := range be {
		out[i] = be[len(be)-1-i]
	}

	return out
}

// Bit reports whether bit i is set.
func (b BitVector) Bit(i int) bool {
	b.mustInRange(i, i)
	return b.val().Bit(i) == 1
}

// Field extracts the inclusive bit range [lo, hi].
func (b BitVector) Field(lo, hi int) BitVector {
	b.mustInRange(lo, hi)

	shifted := new(big.Int).Rsh(b.val(), uint(lo))

	return FromBig(hi-lo+1, shifted)
}

// SetField returns a copy of the vector where the inclusive bit range
// [lo, hi] is replaced with v. v is truncated or zero extended to fit.
func (b BitVector) SetField(lo, hi int, v BitVector) BitVector {
	b.mustInRange(lo, hi)

	fieldMask := new(big.Int).Lsh(mask(hi-lo+1), uint(lo))
	cleared := new(big.Int).AndNot(b.val(), fieldMask)

	field := new(big.Int).And(v.val(), mask(hi-lo+1))
	field.Lsh(field, uint(lo))

	return BitVector{width: b.width, v: cleared.Or(cleared, field)}
}

// Resize truncates or zero extends the vector to width bits.
func (b BitVector) Resize(width int) BitVector {
	return FromBig(width, b.val())
}

// Equal reports whether both vectors have the same width and value.
func (b BitVector) Equal(o BitVector) bool {
	return b.width == o.width && b.val().Cmp(o.val()) == 0
}

// IsZero reports whether all bits are clear.
func (b BitVector) IsZero() bool {
	return b.val().Sign() == 0
}

// String formats the value as hexadecimal.
func (b BitVector) String() string {
	return fmt.Sprintf("0x%x", b.val())
}

func (b BitVector) mustInRange(lo, hi int) {
	if lo < 0 || hi < lo || hi >= b.width {
		panic(fmt.Sprintf("bit range [%d, %d] out of width %d", lo, hi, b.width))
	}
}

func mustPositive(width int) {
	if width <= 0 {
		panic(fmt.Sprintf("invalid bit vector width %d", width))
	}
}

func mask(width int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return m.Sub(m, big.NewInt(1))
}
