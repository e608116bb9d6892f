package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/config"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/policy"
)

var _ = Describe("HierarchyConfig", func() {
	var c *config.HierarchyConfig

	BeforeEach(func() {
		c = config.Default()
	})

	Describe("Default", func() {
		It("should be valid", func() {
			Expect(c.Validate()).To(Succeed())
		})

		It("should chain the levels down to memory", func() {
			Expect(c.NextOf(0)).To(Equal("L2"))
			Expect(c.NextOf(1)).To(Equal(config.MemoryName))
			Expect(c.OffsetBits()).To(Equal(6))
		})

		It("should convert policy names", func() {
			p, err := c.Levels[0].Policy()

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Eviction).To(Equal(eviction.LRU))
			Expect(p.Write).To(Equal(policy.WB))
			Expect(p.Coherence).To(Equal(coherence.MESI))
		})
	})

	Describe("Validate", func() {
		It("should reject sets that are not a power of two", func() {
			c.Levels[0].Sets = 3
			Expect(c.Validate()).ToNot(Succeed())
		})

		It("should reject unknown policy names", func() {
			c.Levels[1].Write = "write-sometimes"
			Expect(c.Validate()).To(MatchError(ContainSubstring("L2")))
		})

		It("should reject a top level without one instance per context", func() {
			c.Contexts = 4
			Expect(c.Validate()).ToNot(Succeed())
		})

		It("should reject links pointing up", func() {
			c.Levels[1].Next = "L1"
			Expect(c.Validate()).ToNot(Succeed())
		})

		It("should reject instances that do not split evenly", func() {
			c.Levels[0].Instances = 3
			c.Contexts = 3
			c.Levels[1].Instances = 2
			Expect(c.Validate()).ToNot(Succeed())
		})

		It("should reject lines that do not hold whole words", func() {
			c.LineBytes = 4
			Expect(c.Validate()).ToNot(Succeed())
		})

		It("should reject wide plru levels", func() {
			c.Levels[1].Eviction = "plru"
			c.Levels[1].Associativity = 128
			Expect(c.Validate()).ToNot(Succeed())
		})
	})

	Describe("Load and Save", func() {
		It("should round trip through a file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "hierarchy.json")
			c.Seed = 42

			Expect(c.Save(path)).To(Succeed())
			loaded, err := config.Load(path)

			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should fill level defaults", func() {
			loaded, err := config.Parse([]byte(
				`{"contexts": 1, "levels": [{"name": "L1", "associativity": 2}]}`))

			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.AddressBits).To(Equal(32))
			Expect(loaded.Levels).To(HaveLen(1))
			Expect(loaded.Levels[0].Associativity).To(Equal(2))
			Expect(loaded.Levels[0].Sets).To(Equal(uint64(64)))
			Expect(loaded.Levels[0].Instances).To(Equal(1))
			Expect(loaded.Validate()).To(Succeed())
		})

		It("should report missing files", func() {
			_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "none.json"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})

		It("should report malformed files", func() {
			_, err := config.Parse([]byte("{"))
			Expect(err).To(HaveOccurred())
		})
	})

	It("should clone levels deeply", func() {
		clone := c.Clone()
		clone.Levels[0].Name = "X"

		Expect(c.Levels[0].Name).To(Equal("L1"))
	})
})

var _ = Describe("LoadEnv", func() {
	It("should read the seed and port", func() {
		GinkgoT().Setenv(config.EnvSeed, "0x10")
		GinkgoT().Setenv(config.EnvMonitorPort, "8080")
		GinkgoT().Setenv(config.EnvTraceDB, "trace")

		env, err := config.LoadEnv(filepath.Join(GinkgoT().TempDir(), "missing.env"))

		Expect(err).ToNot(HaveOccurred())
		Expect(*env.Seed).To(Equal(uint64(16)))
		Expect(env.MonitorPort).To(Equal(8080))
		Expect(env.TraceDB).To(Equal("trace"))

		c := config.Default()
		env.Apply(c)
		Expect(c.Seed).To(Equal(uint64(16)))
	})

	It("should read values from an env file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "test.env")
		Expect(os.WriteFile(path, []byte("MMUSIM_TRACE_DB=from_file\n"), 0o600)).
			To(Succeed())
		GinkgoT().Setenv(config.EnvTraceDB, "")
		Expect(os.Unsetenv(config.EnvTraceDB)).To(Succeed())

		env, err := config.LoadEnv(path)

		Expect(err).ToNot(HaveOccurred())
		Expect(env.TraceDB).To(Equal("from_file"))
	})

	It("should reject a bad port", func() {
		GinkgoT().Setenv(config.EnvMonitorPort, "http")

		_, err := config.LoadEnv(filepath.Join(GinkgoT().TempDir(), "missing.env"))
		Expect(err).To(HaveOccurred())
	})
})
