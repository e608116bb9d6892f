package buffer

import (
	"fmt"
	"strings"

	"github.com/sarchlab/mmusim/bitvec"
)

// Field is one named component of an entry layout.
type Field struct {
	Name  string
	Width int
}

// Layout describes the structure of an entry. Fields are packed from the
// least significant bit upwards in declaration order.
type Layout struct {
	fields []Field
	ranges map[string][2]int
	width  int
}

// NewLayout creates a layout. It panics on empty, duplicated or zero-width
// fields.
func NewLayout(fields ...Field) *Layout {
	if len(fields) == 0 {
		panic("layout needs at least one field")
	}

	l := &Layout{
		fields: append([]Field(nil), fields...),
		ranges: make(map[string][2]int, len(fields)),
	}

	for _, f := range fields {
		if f.Width <= 0 {
			panic(fmt.Sprintf("field %q has width %d", f.Name, f.Width))
		}

		if _, dup := l.ranges[f.Name]; dup {
			panic(fmt.Sprintf("field %q declared twice", f.Name))
		}

		l.ranges[f.Name] = [2]int{l.width, l.width + f.Width - 1}
		l.width += f.Width
	}

	return l
}

// Width returns the total width in bits.
func (l *Layout) Width() int {
	return l.width
}

// Fields returns a copy of the field list.
func (l *Layout) Fields() []Field {
	return append([]Field(nil), l.fields...)
}

// HasField reports whether the layout declares the field.
func (l *Layout) HasField(name string) bool {
	_, ok := l.ranges[name]
	return ok
}

// Range returns the inclusive bit range of a field.
func (l *Layout) Range(name string) (lo, hi int) {
	r, ok := l.ranges[name]
	if !ok {
		panic(fmt.Sprintf("layout has no field %q", name))
	}

	return r[0], r[1]
}

// New returns an all-zero entry.
func (l *Layout) New() Entry {
	return Entry{layout: l, bits: bitvec.New(l.width)}
}

// FromBits converts a flat vector into an entry. The width must match.
func (l *Layout) FromBits(v bitvec.BitVector) Entry {
	if v.Width() != l.width {
		panic(fmt.Sprintf("entry width %d does not match layout width %d",
			v.Width(), l.width))
	}

	return Entry{layout: l, bits: v}
}

// Entry is a structured value of a Layout. Entries are values; every
// modification returns a new entry.
type Entry struct {
	layout *Layout
	bits   bitvec.BitVector
}

// Layout returns the layout, or nil for the zero Entry.
func (e Entry) Layout() *Layout {
	return e.layout
}

// Bits returns the flat representation.
func (e Entry) Bits() bitvec.BitVector {
	return e.bits
}

// Get returns the value of a field.
func (e Entry) Get(name string) bitvec.BitVector {
	lo, hi := e.layout.Range(name)
	return e.bits.Field(lo, hi)
}

// With returns a copy with one field replaced.
func (e Entry) With(name string, v bitvec.BitVector) Entry {
	lo, hi := e.layout.Range(name)
	return e.WithBits(lo, hi, v)
}

// WithBits returns a copy with the inclusive bit range replaced.
func (e Entry) WithBits(lo, hi int, v bitvec.BitVector) Entry {
	return Entry{layout: e.layout, bits: e.bits.SetField(lo, hi, v)}
}

// Equal compares the bits of two entries.
func (e Entry) Equal(o Entry) bool {
	return e.bits.Equal(o.bits)
}

func (e Entry) String() string {
	if e.layout == nil {
		return "{}"
	}

	parts := make([]string, 0, len(e.layout.fields))
	for _, f := range e.layout.fields {
		parts = append(parts, f.Name+"="+e.Get(f.Name).String())
	}

	return "{" + strings.Join(parts, " ") + "}"
}
