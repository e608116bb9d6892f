// Package storage provides the terminal level of the hierarchy: a word
// addressed memory device and the adapters that expose devices as buffers.
package storage

import (
	"fmt"

	"github.com/sarchlab/mmusim/bitvec"
)

// Device is a word-addressed storage device.
type Device interface {
	// Load returns the word at addr. Unwritten words read as zero.
	Load(addr uint64) bitvec.BitVector

	// Store writes a whole word.
	Store(addr uint64, data bitvec.BitVector)

	// StorePartial writes data starting at a byte offset inside the word.
	StorePartial(addr uint64, byteOffset int, data bitvec.BitVector)

	// IsInitialized reports whether the word has ever been written.
	IsInitialized(addr uint64) bool

	DataBitSize() int
	AddressBitSize() int
}

const blockWords = 4096

type block struct {
	data []byte
	init []bool
}

// Memory is a sparse Device. Storage is allocated in blocks of 4096 words on
// first write.
type Memory struct {
	dataBits  int
	addrBits  int
	wordBytes int
	blocks    map[uint64]*block
}

// NewMemory creates a memory. The word size must be a positive multiple of 8
// bits and the address width must be between 1 and 64 bits.
func NewMemory(dataBits, addrBits int) *Memory {
	if dataBits <= 0 || dataBits%8 != 0 {
		panic(fmt.Sprintf("word size must be a multiple of 8 bits, got %d", dataBits))
	}

	if addrBits <= 0 || addrBits > 64 {
		panic(fmt.Sprintf("address width must be in [1, 64], got %d", addrBits))
	}

	return &Memory{
		dataBits:  dataBits,
		addrBits:  addrBits,
		wordBytes: dataBits / 8,
		blocks:    make(map[uint64]*block),
	}
}

// DataBitSize returns the word size.
func (m *Memory) DataBitSize() int {
	return m.dataBits
}

// AddressBitSize returns the address width.
func (m *Memory) AddressBitSize() int {
	return m.addrBits
}

func (m *Memory) checkAddr(addr uint64) {
	if m.addrBits < 64 && addr>>m.addrBits != 0 {
		panic(fmt.Sprintf("address %#x exceeds %d bits", addr, m.addrBits))
	}
}

func (m *Memory) locate(addr uint64, create bool) (*block, int) {
	m.checkAddr(addr)

	b, ok := m.blocks[addr/blockWords]
	if !ok && create {
		b = &block{
			data: make([]byte, blockWords*m.wordBytes),
			init: make([]bool, blockWords),
		}
		m.blocks[addr/blockWords] = b
	}

	return b, int(addr % blockWords)
}

// Load returns the word at addr.
func (m *Memory) Load(addr uint64) bitvec.BitVector {
	b, i := m.locate(addr, false)
	if b == nil {
		return bitvec.New(m.dataBits)
	}

	return bitvec.FromBytes(m.dataBits, b.data[i*m.wordBytes:(i+1)*m.wordBytes])
}

// Store writes a whole word. Wider data is truncated.
func (m *Memory) Store(addr uint64, data bitvec.BitVector) {
	b, i := m.locate(addr, true)

	copy(b.data[i*m.wordBytes:(i+1)*m.wordBytes], data.Resize(m.dataBits).Bytes())
	b.init[i] = true
}

// StorePartial writes whole bytes of data starting at byteOffset.
func (m *Memory) StorePartial(addr uint64, byteOffset int, data bitvec.BitVector) {
	if data.Width()%8 != 0 {
		panic(fmt.Sprintf("partial store of %d bits is not byte aligned", data.Width()))
	}

	n := data.Width() / 8
	if byteOffset < 0 || byteOffset+n > m.wordBytes {
		panic(fmt.Sprintf("partial store of %d bytes at offset %d exceeds word",
			n, byteOffset))
	}

	b, i := m.locate(addr, true)
	start := i*m.wordBytes + byteOffset

	copy(b.data[start:start+n], data.Bytes())
	b.init[i] = true
}

// IsInitialized reports whether the word has been written.
func (m *Memory) IsInitialized(addr uint64) bool {
	b, i := m.locate(addr, false)
	return b != nil && b.init[i]
}

// Footprint returns the number of initialized words.
func (m *Memory) Footprint() int {
	n := 0

	for _, b := range m.blocks {
		for _, ok := range b.init {
			if ok {
				n++
			}
		}
	}

	return n
}

// Clone returns a deep copy.
func (m *Memory) Clone() *Memory {
	c := NewMemory(m.dataBits, m.addrBits)

	for k, b := range m.blocks {
		c.blocks[k] = &block{
			data: append([]byte(nil), b.data...),
			init: append([]bool(nil), b.init...),
		}
	}

	return c
}

// Reset drops all contents.
func (m *Memory) Reset() {
	m.blocks = make(map[uint64]*block)
}
