package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/cache"
	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/policy"
)

type hookRecorder struct {
	pos   []*sim.HookPos
	infos []cache.AccessInfo
}

func (h *hookRecorder) Func(ctx sim.HookCtx) {
	h.pos = append(h.pos, ctx.Pos)
	h.infos = append(h.infos, ctx.Item.(cache.AccessInfo))
}

// switchMatcher matches every line once all is set.
type switchMatcher struct {
	all *bool
}

func (m switchMatcher) Matches(e buffer.Entry, a buffer.Address) bool {
	return *m.all || tagMatcher.Matches(e, a)
}

func (m switchMatcher) AssignTag(e buffer.Entry, a buffer.Address) buffer.Entry {
	return tagMatcher.AssignTag(e, a)
}

var _ = Describe("Unit", func() {
	var (
		mockCtrl *gomock.Controller
		next     *MockBuffer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		next = NewMockBuffer(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("reading", func() {
		var u *cache.Unit

		BeforeEach(func() {
			u = builder(2, policy.WB, policy.NINE, coherence.MESI).
				WithNext(next).
				Build("L1")
		})

		It("should fetch a miss from the next level and keep it clean", func() {
			next.EXPECT().
				ReadEntry(addrEq(0x10)).
				Return(memLayout.FromBits(bitvec.FromUint64(32, 0xbeef)), true)

			e, ok := u.ReadEntry(addr(0x10))

			Expect(ok).To(BeTrue())
			Expect(dataOf(e)).To(Equal(uint64(0xbeef)))
			Expect(e.Get("tag").Uint64()).To(Equal(uint64(0x10)))

			info, found := u.Probe(addr(0x10))
			Expect(found).To(BeTrue())
			Expect(info.Valid).To(BeTrue())
			Expect(info.Dirty).To(BeFalse())
			Expect(info.State).To(Equal(coherence.Exclusive))
		})

		It("should hit without touching the next level", func() {
			next.EXPECT().
				ReadEntry(addrEq(0x10)).
				Return(memLayout.FromBits(bitvec.FromUint64(32, 1)), true).
				Times(1)

			u.ReadEntry(addr(0x10))
			e, ok := u.ReadEntry(addr(0x10))

			Expect(ok).To(BeTrue())
			Expect(dataOf(e)).To(Equal(uint64(1)))
			Expect(u.Stats().Hits).To(Equal(uint64(1)))
			Expect(u.Stats().Misses).To(Equal(uint64(1)))
		})

		It("should report absent data and release the line", func() {
			next.EXPECT().ReadEntry(addrEq(0x10)).Return(buffer.Entry{}, false)

			_, ok := u.ReadEntry(addr(0x10))

			Expect(ok).To(BeFalse())
			Expect(u.IsHit(addr(0x10))).To(BeFalse())
		})

		It("should fill an allocated line on first read", func() {
			u.AllocEntry(addr(0x4))

			Expect(u.IsHit(addr(0x4))).To(BeTrue())
			_, _, ok := u.SeeEntry(0, 0)
			Expect(ok).To(BeFalse())

			next.EXPECT().IsHit(addrEq(0x4)).Return(true)
			next.EXPECT().
				ReadEntry(addrEq(0x4)).
				Return(memLayout.FromBits(bitvec.FromUint64(32, 9)), true)

			e, ok := u.ReadEntry(addr(0x4))
			Expect(ok).To(BeTrue())
			Expect(dataOf(e)).To(Equal(uint64(9)))

			a, seen, ok := u.SeeEntry(0, 0)
			Expect(ok).To(BeTrue())
			Expect(a.Uint64()).To(Equal(uint64(0x4)))
			Expect(dataOf(seen)).To(Equal(uint64(9)))
		})

		It("should keep the victim when the next level has no data", func() {
			u = builder(1, policy.WB, policy.NINE, coherence.MESI).
				WithNext(next).
				Build("L1")
			next.EXPECT().ReadEntry(addrEq(0x4)).Return(buffer.Entry{}, false)

			u.WriteEntry(addr(0x0), data(3))
			_, ok := u.ReadEntry(addr(0x4))

			Expect(ok).To(BeFalse())
			Expect(u.IsHit(addr(0x4))).To(BeFalse())

			info, found := u.Probe(addr(0x0))
			Expect(found).To(BeTrue())
			Expect(info.Dirty).To(BeTrue())
			Expect(u.Stats().Writebacks).To(BeZero())
			Expect(u.Stats().Evictions).To(BeZero())
		})

		It("should refuse to allocate a resident address", func() {
			u.AllocEntry(addr(0x4))

			Expect(func() { u.AllocEntry(addr(0x4)) }).To(Panic())
		})
	})

	It("should return an allocated line nothing can fill", func() {
		u := builder(2, policy.WN, policy.NINE, coherence.None).Build("L1")
		u.AllocEntry(addr(0x4))

		e, ok := u.ReadEntry(addr(0x4))

		Expect(ok).To(BeTrue())
		Expect(e.Get("tag").Uint64()).To(Equal(uint64(0x4)))
		Expect(u.IsHit(addr(0x4))).To(BeTrue())
	})

	It("should not read unwritten memory into an allocated line", func() {
		_, adapter := newMemory()
		u := builder(2, policy.WN, policy.NINE, coherence.None).
			WithNext(adapter).
			Build("L1")
		u.AllocEntry(addr(0x4))

		var ok bool
		Expect(func() { _, ok = u.ReadEntry(addr(0x4)) }).NotTo(Panic())
		Expect(ok).To(BeTrue())
	})

	It("should miss without a next level", func() {
		u := builder(2, policy.WN, policy.NINE, coherence.None).Build("L1")

		_, ok := u.ReadEntry(addr(0x8))

		Expect(ok).To(BeFalse())
	})

	Context("write-back", func() {
		var u *cache.Unit

		BeforeEach(func() {
			u = builder(2, policy.WB, policy.NINE, coherence.MESI).
				WithNext(next).
				Build("L1")
		})

		It("should write back only the displaced line", func() {
			next.EXPECT().WriteEntry(addrEq(0x0), dataEq(0xa0))

			u.WriteEntry(addr(0x0), data(0xa0))
			u.WriteEntry(addr(0x4), data(0xa1))
			u.WriteEntry(addr(0x8), data(0xa2))

			Expect(u.Stats().Writebacks).To(Equal(uint64(1)))
			Expect(u.IsHit(addr(0x4))).To(BeTrue())
			Expect(u.IsHit(addr(0x8))).To(BeTrue())
		})

		It("should write back every displaced dirty line in order", func() {
			gomock.InOrder(
				next.EXPECT().WriteEntry(addrEq(0x0), dataEq(0xa0)),
				next.EXPECT().WriteEntry(addrEq(0x4), dataEq(0xa1)),
				next.EXPECT().WriteEntry(addrEq(0x8), dataEq(0xa2)),
			)

			for i := uint64(0); i < 5; i++ {
				u.WriteEntry(addr(i*4), data(0xa0+i))
			}

			Expect(u.Stats().Writebacks).To(Equal(uint64(3)))

			for _, a := range []uint64{0xc, 0x10} {
				info, ok := u.Probe(addr(a))
				Expect(ok).To(BeTrue())
				Expect(info.Dirty).To(BeTrue())
				Expect(info.State).To(Equal(coherence.Modified))
			}
		})

		It("should not fetch for a full write miss", func() {
			u.WriteEntry(addr(0x20), data(5))

			e, ok := u.ReadEntry(addr(0x20))
			Expect(ok).To(BeTrue())
			Expect(dataOf(e)).To(Equal(uint64(5)))
		})

		It("should merge a partial write miss with the data below", func() {
			next.EXPECT().IsHit(addrEq(0x20)).Return(true)
			next.EXPECT().
				ReadEntry(addrEq(0x20)).
				Return(memLayout.FromBits(bitvec.FromUint64(32, 0x11223344)), true)

			Expect(u.WritePartial(addr(0x20), 8, 15, bitvec.FromUint64(8, 0xff))).
				To(Succeed())

			e, _ := u.ReadEntry(addr(0x20))
			Expect(dataOf(e)).To(Equal(uint64(0x1122ff44)))
		})

		It("should reject ranges outside the entry", func() {
			err := u.WritePartial(addr(0x20), 40, 48, bitvec.New(9))

			Expect(err).To(HaveOccurred())
		})
	})

	It("should forward write-through misses without allocating", func() {
		u := builder(2, policy.WT, policy.NINE, coherence.None).
			WithNext(next).
			Build("L1")
		next.EXPECT().WritePartial(addrEq(0x8), 0, 47, dataEq(0x77)).Return(nil)

		u.WriteEntry(addr(0x8), data(0x77))

		Expect(u.IsHit(addr(0x8))).To(BeFalse())
	})

	It("should allocate and forward with write-through-allocate", func() {
		u := builder(2, policy.WTA, policy.NINE, coherence.None).
			WithNext(next).
			Build("L1")
		next.EXPECT().WritePartial(addrEq(0x8), 0, 47, dataEq(0x77)).Return(nil)

		u.WriteEntry(addr(0x8), data(0x77))

		Expect(u.IsHit(addr(0x8))).To(BeTrue())
	})

	It("should keep write-no-propagate data local", func() {
		u := builder(2, policy.WN, policy.NINE, coherence.None).
			WithNext(next).
			Build("L1")

		u.WriteEntry(addr(0x8), data(0x77))
		e, ok := u.ReadEntry(addr(0x8))

		Expect(ok).To(BeTrue())
		Expect(dataOf(e)).To(Equal(uint64(0x77)))
	})

	DescribeTable("round trip over memory",
		func(w policy.WritePolicy, inMemory uint64) {
			mem, adapter := newMemory(0x20)
			u := builder(2, w, policy.NINE, coherence.MESI).
				WithNext(adapter).
				Build("L1")

			u.WriteEntry(addr(0x20), data(0x1234))
			e, ok := u.ReadEntry(addr(0x20))

			Expect(ok).To(BeTrue())
			Expect(dataOf(e)).To(Equal(uint64(0x1234)))
			Expect(mem.Load(0x20 / 4).Uint64()).To(Equal(inMemory))
		},
		Entry("WN", policy.WN, uint64(0)),
		Entry("WT", policy.WT, uint64(0x1234)),
		Entry("WTA", policy.WTA, uint64(0x1234)),
		Entry("WB", policy.WB, uint64(0)),
	)

	It("should evict the least recently used line", func() {
		u := builder(4, policy.WN, policy.NINE, coherence.None).Build("L1")

		for _, a := range []uint64{0x0, 0x4, 0x8, 0xc} {
			u.WriteEntry(addr(a), data(a))
		}

		u.ReadEntry(addr(0x0))
		u.WriteEntry(addr(0x10), data(0x10))

		Expect(u.IsHit(addr(0x4))).To(BeFalse())
		for _, a := range []uint64{0x0, 0x8, 0xc, 0x10} {
			Expect(u.IsHit(addr(a))).To(BeTrue())
		}
	})

	It("should evict in insertion order with FIFO", func() {
		u := cache.MakeBuilder().
			WithLayout(lineLayout).
			WithAssociativity(2).
			WithIndexer(oneSet).
			WithMatcher(tagMatcher).
			WithPolicy(policy.MustNew(
				eviction.FIFO, policy.WN, policy.NINE, coherence.None)).
			Build("L1")

		u.WriteEntry(addr(0x0), data(1))
		u.WriteEntry(addr(0x4), data(2))
		u.WriteEntry(addr(0x8), data(3))

		Expect(u.IsHit(addr(0x0))).To(BeFalse())
		Expect(u.IsHit(addr(0x4))).To(BeTrue())
	})

	It("should treat two matching lines as fatal", func() {
		all := false
		u := builder(2, policy.WN, policy.NINE, coherence.None).
			WithMatcher(switchMatcher{all: &all}).
			Build("L1")

		u.WriteEntry(addr(0x0), data(1))
		u.WriteEntry(addr(0x4), data(2))
		all = true

		Expect(func() { u.ReadEntry(addr(0x0)) }).To(Panic())
	})

	Context("evicting", func() {
		var u *cache.Unit

		BeforeEach(func() {
			u = builder(2, policy.WN, policy.NINE, coherence.None).Build("L1")
		})

		It("should panic on addresses that are not resident", func() {
			Expect(func() { u.EvictEntry(addr(0x4)) }).To(Panic())
		})

		It("should report allocated but empty lines", func() {
			u.AllocEntry(addr(0x4))

			Expect(u.EvictEntry(addr(0x4))).To(BeFalse())
			Expect(u.IsHit(addr(0x4))).To(BeFalse())
		})

		It("should report valid lines", func() {
			u.WriteEntry(addr(0x4), data(1))

			Expect(u.EvictEntry(addr(0x4))).To(BeTrue())
			Expect(u.Stats().Evictions).To(Equal(uint64(1)))
		})
	})

	Context("temp state", func() {
		var u *cache.Unit

		BeforeEach(func() {
			u = builder(2, policy.WN, policy.NINE, coherence.None).Build("L1")
			u.WriteEntry(addr(0x0), data(1))
		})

		It("should roll back changes to existing lines", func() {
			u.SetUseTempState(true)
			u.WriteEntry(addr(0x0), data(2))
			e, _ := u.ReadEntry(addr(0x0))
			Expect(dataOf(e)).To(Equal(uint64(2)))

			u.SetUseTempState(false)
			e, _ = u.ReadEntry(addr(0x0))
			Expect(dataOf(e)).To(Equal(uint64(1)))
		})

		It("should roll back new lines", func() {
			u.SetUseTempState(true)
			u.WriteEntry(addr(0x4), data(3))
			Expect(u.IsHit(addr(0x4))).To(BeTrue())

			u.SetUseTempState(false)
			Expect(u.IsHit(addr(0x4))).To(BeFalse())
		})

		It("should roll back replacement state", func() {
			u.WriteEntry(addr(0x4), data(2))

			u.SetUseTempState(true)
			u.ReadEntry(addr(0x0))
			u.SetUseTempState(false)

			u.WriteEntry(addr(0x8), data(3))
			Expect(u.IsHit(addr(0x0))).To(BeFalse())
			Expect(u.IsHit(addr(0x4))).To(BeTrue())
		})

		It("should drop everything on reset", func() {
			u.SetUseTempState(true)
			u.ResetState()

			Expect(u.InTempState()).To(BeFalse())
			Expect(u.SetIndices()).To(BeEmpty())
			Expect(u.Stats()).To(Equal(cache.Statistics{}))
		})
	})

	It("should list touched sets in order", func() {
		u := builder(1, policy.WN, policy.NINE, coherence.None).
			WithIndexer(buffer.BitFieldIndexer{Lo: 2, Hi: 3}).
			WithNumSets(4).
			Build("L1")

		u.WriteEntry(addr(0x8), data(1))
		u.WriteEntry(addr(0x4), data(2))

		Expect(u.SetIndices()).To(Equal([]uint64{1, 2}))
		Expect(u.IsHitValue(bitvec.FromUint64(addrWidth, 0x8))).To(BeTrue())
		Expect(u.IsHitValue(bitvec.FromUint64(64, 0x8))).To(BeTrue())
		Expect(u.IsHitValue(bitvec.FromUint64(addrWidth, 0xc))).To(BeFalse())
	})

	It("should write through an assigner", func() {
		u := builder(2, policy.WN, policy.NINE, coherence.None).Build("L1")

		u.Assign(addr(0x8)).Entry(data(5))
		u.Assign(addr(0xc)).Bits(bitvec.FromUint64(32, 0x1234))

		e, ok := u.ReadEntry(addr(0x8))
		Expect(ok).To(BeTrue())
		Expect(dataOf(e)).To(Equal(uint64(5)))

		e, ok = u.ReadEntry(addr(0xc))
		Expect(ok).To(BeTrue())
		Expect(dataOf(e)).To(Equal(uint64(0x1234)))
	})

	It("should invoke hooks on accesses", func() {
		u := builder(2, policy.WN, policy.NINE, coherence.None).Build("L1")
		h := &hookRecorder{}
		u.AcceptHook(h)

		u.WriteEntry(addr(0x8), data(1))
		u.ReadEntry(addr(0x8))

		Expect(h.pos).To(Equal([]*sim.HookPos{cache.HookPosWrite, cache.HookPosRead}))
		Expect(h.infos[0].Hit).To(BeFalse())
		Expect(h.infos[1].Hit).To(BeTrue())
		Expect(h.infos[1].Unit).To(Equal("L1"))
		Expect(h.infos[1].State).To(Equal(coherence.Modified))
		Expect(h.infos[1].Dirty).To(BeTrue())
	})

	Context("building", func() {
		It("should require a next level for write-back", func() {
			Expect(func() {
				builder(2, policy.WB, policy.NINE, coherence.None).Build("L1")
			}).To(Panic())
		})

		It("should require a next level for exclusive inclusion", func() {
			Expect(func() {
				builder(2, policy.WN, policy.Exclusive, coherence.None).Build("L1")
			}).To(Panic())
		})

		It("should reject wide PLRU sets", func() {
			Expect(func() {
				builder(65, policy.WN, policy.NINE, coherence.None).
					WithPolicy(policy.MustNew(
						eviction.PLRU, policy.WN, policy.NINE, coherence.None)).
					Build("L1")
			}).To(Panic())
		})

		It("should reject non-positive associativity", func() {
			Expect(func() {
				builder(0, policy.WN, policy.NINE, coherence.None).Build("L1")
			}).To(Panic())
		})

		It("should register itself above a lower unit", func() {
			l2 := builder(4, policy.WN, policy.NINE, coherence.None).Build("L2")
			l1 := builder(2, policy.WB, policy.NINE, coherence.None).
				WithNext(l2).
				Build("L1")

			Expect(l2.Previous()).To(ConsistOf(l1))
			n, ok := l1.Next()
			Expect(ok).To(BeTrue())
			Expect(n).To(BeIdenticalTo(l2))
		})
	})
})
