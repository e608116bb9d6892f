package policy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/policy"
)

var _ = Describe("WritePolicy", func() {
	It("should accept the canonical combinations", func() {
		for _, w := range []policy.WritePolicy{policy.WN, policy.WT, policy.WTA, policy.WB} {
			Expect(w.Validate()).To(Succeed(), w.String())
		}
	})

	It("should reject write-through with write-back", func() {
		w := policy.WritePolicy{Allocate: true, Through: true, Back: true}
		Expect(w.Validate()).To(MatchError(policy.ErrInvalidWritePolicy))
	})

	It("should reject a policy that drops write misses", func() {
		Expect(policy.WritePolicy{Back: true}.Validate()).
			To(MatchError(policy.ErrInvalidWritePolicy))
	})

	It("should parse names", func() {
		w, err := policy.ParseWritePolicy("WTA")
		Expect(err).ToNot(HaveOccurred())
		Expect(w).To(Equal(policy.WTA))
		Expect(w.String()).To(Equal("WTA"))

		_, err = policy.ParseWritePolicy("wx")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CachePolicy", func() {
	It("should build a valid aggregate", func() {
		p, err := policy.New(eviction.LRU, policy.WB, policy.Inclusive, coherence.MESI)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.String()).To(Equal("lru/WB/inclusive/mesi"))
	})

	It("should propagate write policy errors", func() {
		_, err := policy.New(eviction.LRU,
			policy.WritePolicy{Through: true, Back: true},
			policy.NINE, coherence.None)
		Expect(err).To(MatchError(policy.ErrInvalidWritePolicy))
	})

	It("should panic in MustNew on invalid input", func() {
		Expect(func() {
			policy.MustNew(eviction.LRU, policy.WritePolicy{}, policy.NINE, coherence.None)
		}).To(Panic())
	})

	It("should reject unknown axes", func() {
		_, err := policy.New(eviction.ID(42), policy.WB, policy.NINE, coherence.None)
		Expect(err).To(HaveOccurred())

		_, err = policy.New(eviction.LRU, policy.WB, policy.Inclusion(7), coherence.None)
		Expect(err).To(HaveOccurred())
	})

	It("should parse inclusion names", func() {
		i, err := policy.ParseInclusion("Exclusive")
		Expect(err).ToNot(HaveOccurred())
		Expect(i).To(Equal(policy.Exclusive))
	})
})
