package storage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/storage"
)

var _ = Describe("Memory", func() {
	var mem *storage.Memory

	BeforeEach(func() {
		mem = storage.NewMemory(32, 20)
	})

	It("should read unwritten words as zero", func() {
		Expect(mem.IsInitialized(0x10)).To(BeFalse())
		Expect(mem.Load(0x10).IsZero()).To(BeTrue())
		Expect(mem.Load(0x10).Width()).To(Equal(32))
	})

	It("should store and load words", func() {
		mem.Store(0x1234, bitvec.FromUint64(32, 0xdeadbeef))

		Expect(mem.IsInitialized(0x1234)).To(BeTrue())
		Expect(mem.Load(0x1234).Uint64()).To(Equal(uint64(0xdeadbeef)))
		Expect(mem.IsInitialized(0x1235)).To(BeFalse())
	})

	It("should store bytes inside a word", func() {
		mem.Store(4, bitvec.FromUint64(32, 0x11223344))
		mem.StorePartial(4, 1, bitvec.FromUint64(16, 0xaabb))

		Expect(mem.Load(4).Uint64()).To(Equal(uint64(0x11aabb44)))
	})

	It("should mark words initialized by partial stores", func() {
		mem.StorePartial(9, 3, bitvec.FromUint64(8, 0x7f))

		Expect(mem.IsInitialized(9)).To(BeTrue())
		Expect(mem.Load(9).Uint64()).To(Equal(uint64(0x7f000000)))
	})

	It("should keep blocks apart", func() {
		mem.Store(4095, bitvec.FromUint64(32, 1))
		mem.Store(4096, bitvec.FromUint64(32, 2))

		Expect(mem.Load(4095).Uint64()).To(Equal(uint64(1)))
		Expect(mem.Load(4096).Uint64()).To(Equal(uint64(2)))
		Expect(mem.Footprint()).To(Equal(2))
	})

	It("should reject addresses wider than the device", func() {
		Expect(func() { mem.Load(1 << 20) }).To(Panic())
	})

	It("should reject partial stores crossing the word", func() {
		Expect(func() { mem.StorePartial(0, 3, bitvec.New(16)) }).To(Panic())
		Expect(func() { mem.StorePartial(0, 0, bitvec.New(4)) }).To(Panic())
	})

	It("should clone independently", func() {
		mem.Store(1, bitvec.FromUint64(32, 5))
		c := mem.Clone()
		c.Store(1, bitvec.FromUint64(32, 6))

		Expect(mem.Load(1).Uint64()).To(Equal(uint64(5)))
		Expect(c.Load(1).Uint64()).To(Equal(uint64(6)))

		mem.Reset()
		Expect(mem.Footprint()).To(Equal(0))
	})
})
