// Package loader places program images into the backing store so that a
// hierarchy starts over initialized memory.
package loader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/storage"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is a byte range to place at a byte address.
type Segment struct {
	// Addr is the byte address of the first byte.
	Addr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory. Bytes past len(Data) are zero.
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// End returns the address one past the last byte of the segment.
func (s Segment) End() uint64 {
	return s.Addr + max(s.MemSize, uint64(len(s.Data)))
}

// Image is a set of segments ready to be written into memory.
type Image struct {
	// Entry is the ELF entry point, or the base of a raw image.
	Entry    uint64
	Segments []Segment
}

// Load parses a little-endian ELF file and collects its PT_LOAD segments.
// Any machine type is accepted.
func Load(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.ByteOrder != binary.LittleEndian {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	img := &Image{Entry: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		img.Segments = append(img.Segments, Segment{
			Addr:    phdr.Vaddr,
			Data:    data,
			MemSize: phdr.Memsz,
			Flags:   flags,
		})
	}

	return img, nil
}

// LoadRaw reads a flat binary to be placed at base.
func LoadRaw(path string, base uint64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}

	return &Image{
		Entry: base,
		Segments: []Segment{{
			Addr:    base,
			Data:    data,
			MemSize: uint64(len(data)),
			Flags:   SegmentFlagRead | SegmentFlagWrite,
		}},
	}, nil
}

// Size returns the number of bytes the image occupies in memory.
func (img *Image) Size() uint64 {
	var n uint64
	for _, s := range img.Segments {
		n += s.End() - s.Addr
	}

	return n
}

// Preload writes every segment into dev, whose addresses are word
// addresses. Words the image covers only partly are merged with what dev
// already holds.
func (img *Image) Preload(dev storage.Device) error {
	wordBytes := uint64(dev.DataBitSize() / 8)
	limit := uint64(1) << dev.AddressBitSize() * wordBytes

	for _, s := range img.Segments {
		if s.End() < s.Addr || (dev.AddressBitSize() < 64 && s.End() > limit) {
			return fmt.Errorf("segment 0x%x-0x%x exceeds memory of %d words",
				s.Addr, s.End(), uint64(1)<<dev.AddressBitSize())
		}
	}

	for _, s := range img.Segments {
		writeBytes(dev, wordBytes, s.Addr, padded(s))
	}

	return nil
}

func padded(s Segment) []byte {
	if s.MemSize <= uint64(len(s.Data)) {
		return s.Data
	}

	out := make([]byte, s.MemSize)
	copy(out, s.Data)

	return out
}

func writeBytes(dev storage.Device, wordBytes, addr uint64, data []byte) {
	for len(data) > 0 {
		word := addr / wordBytes
		off := addr % wordBytes
		n := min(wordBytes-off, uint64(len(data)))
		chunk := bitvec.FromBytes(int(n)*8, data[:n])

		if n == wordBytes {
			dev.Store(word, chunk)
		} else {
			dev.StorePartial(word, int(off), chunk)
		}

		addr += n
		data = data[n:]
	}
}
