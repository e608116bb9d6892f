// Package config describes a cache hierarchy as JSON.
package config

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"

	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/policy"
)

// MemoryName is the reserved next-level name of the backing store.
const MemoryName = "memory"

// LevelConfig describes one level of the hierarchy.
type LevelConfig struct {
	// Name identifies the level. Instances are named Name0, Name1, ... when
	// there is more than one.
	Name string `json:"name"`

	// Sets is the number of sets. Must be a power of two.
	Sets uint64 `json:"sets"`

	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`

	// Eviction is one of random, fifo, lru, plru, none.
	Eviction string `json:"eviction"`

	// Write is one of WN, WT, WTA, WB.
	Write string `json:"write"`

	// Inclusion is one of inclusive, exclusive, nine.
	Inclusion string `json:"inclusion"`

	// Coherence is one of none, msi, mosi, mesi, moesi.
	Coherence string `json:"coherence"`

	// Instances is the number of same-level units. Instances of one level
	// snoop each other.
	Instances int `json:"instances"`

	// Next names the level below, or "memory". Empty means the level listed
	// after this one, or memory for the last level.
	Next string `json:"next,omitempty"`
}

// HierarchyConfig describes a complete hierarchy, listed top to bottom.
type HierarchyConfig struct {
	// AddressBits is the width of byte addresses. Default: 32.
	AddressBits int `json:"address_bits"`

	// LineBytes is the size of one cache line. Default: 64.
	LineBytes int `json:"line_bytes"`

	// WordBits is the word size of the backing memory. Default: 64.
	WordBits int `json:"word_bits"`

	// Contexts is the number of hardware contexts sharing the hierarchy.
	// The top level must have one instance per context. Default: 1.
	Contexts int `json:"contexts"`

	// Seed feeds random eviction.
	Seed uint64 `json:"seed"`

	Levels []LevelConfig `json:"levels"`
}

// DefaultLevel returns an 8-way LRU write-back level without coherence.
func DefaultLevel(name string) LevelConfig {
	return LevelConfig{
		Name:          name,
		Sets:          64,
		Associativity: 8,
		Eviction:      "lru",
		Write:         "WB",
		Inclusion:     "nine",
		Coherence:     "none",
		Instances:     1,
	}
}

// Default returns a two-context hierarchy with private MESI L1 caches over
// a shared inclusive L2.
func Default() *HierarchyConfig {
	l1 := DefaultLevel("L1")
	l1.Coherence = "mesi"
	l1.Instances = 2

	l2 := DefaultLevel("L2")
	l2.Sets = 512
	l2.Associativity = 16
	l2.Inclusion = "inclusive"

	return &HierarchyConfig{
		AddressBits: 32,
		LineBytes:   64,
		WordBits:    64,
		Contexts:    2,
		Levels:      []LevelConfig{l1, l2},
	}
}

// Load reads a HierarchyConfig from a JSON file. Fields missing from the
// file keep their defaults.
func Load(path string) (*HierarchyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a HierarchyConfig from JSON.
func Parse(data []byte) (*HierarchyConfig, error) {
	c := Default()
	c.Levels = nil

	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy config: %w", err)
	}

	for i := range c.Levels {
		c.Levels[i].fillDefaults()
	}

	return c, nil
}

func (l *LevelConfig) fillDefaults() {
	d := DefaultLevel(l.Name)

	if l.Sets == 0 {
		l.Sets = d.Sets
	}

	if l.Associativity == 0 {
		l.Associativity = d.Associativity
	}

	if l.Eviction == "" {
		l.Eviction = d.Eviction
	}

	if l.Write == "" {
		l.Write = d.Write
	}

	if l.Inclusion == "" {
		l.Inclusion = d.Inclusion
	}

	if l.Coherence == "" {
		l.Coherence = d.Coherence
	}

	if l.Instances == 0 {
		l.Instances = d.Instances
	}
}

// Save writes the HierarchyConfig to a JSON file.
func (c *HierarchyConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize hierarchy config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write hierarchy config file: %w", err)
	}

	return nil
}

// Policy converts the level's policy names.
func (l LevelConfig) Policy() (policy.CachePolicy, error) {
	ev, err := eviction.ParseID(l.Eviction)
	if err != nil {
		return policy.CachePolicy{}, fmt.Errorf("level %s: %w", l.Name, err)
	}

	w, err := policy.ParseWritePolicy(l.Write)
	if err != nil {
		return policy.CachePolicy{}, fmt.Errorf("level %s: %w", l.Name, err)
	}

	inc, err := policy.ParseInclusion(l.Inclusion)
	if err != nil {
		return policy.CachePolicy{}, fmt.Errorf("level %s: %w", l.Name, err)
	}

	proto, err := coherence.ParseID(l.Coherence)
	if err != nil {
		return policy.CachePolicy{}, fmt.Errorf("level %s: %w", l.Name, err)
	}

	p, err := policy.New(ev, w, inc, proto)
	if err != nil {
		return policy.CachePolicy{}, fmt.Errorf("level %s: %w", l.Name, err)
	}

	return p, nil
}

// OffsetBits is the number of address bits selecting a byte in a line.
func (c *HierarchyConfig) OffsetBits() int {
	return bits.TrailingZeros(uint(c.LineBytes))
}

// NextOf returns the name of the level below level i.
func (c *HierarchyConfig) NextOf(i int) string {
	if c.Levels[i].Next != "" {
		return c.Levels[i].Next
	}

	if i+1 < len(c.Levels) {
		return c.Levels[i+1].Name
	}

	return MemoryName
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Validate checks the geometry, the policy names and the level links.
func (c *HierarchyConfig) Validate() error {
	if err := c.validateGeometry(); err != nil {
		return err
	}

	if len(c.Levels) == 0 {
		return fmt.Errorf("at least one level is required")
	}

	index := make(map[string]int, len(c.Levels))
	for i, l := range c.Levels {
		if err := c.validateLevel(l); err != nil {
			return err
		}

		if _, dup := index[l.Name]; dup {
			return fmt.Errorf("duplicate level name %q", l.Name)
		}

		index[l.Name] = i
	}

	if c.Levels[0].Instances != c.Contexts {
		return fmt.Errorf("top level %s needs one instance per context (%d), has %d",
			c.Levels[0].Name, c.Contexts, c.Levels[0].Instances)
	}

	return c.validateLinks(index)
}

func (c *HierarchyConfig) validateGeometry() error {
	if c.AddressBits <= 0 || c.AddressBits > 64 {
		return fmt.Errorf("address_bits must be in [1, 64]")
	}

	if c.WordBits <= 0 || c.WordBits%8 != 0 || c.WordBits > 64 {
		return fmt.Errorf("word_bits must be a multiple of 8 up to 64")
	}

	if !isPowerOfTwo(uint64(c.LineBytes)) || c.LineBytes*8%c.WordBits != 0 {
		return fmt.Errorf("line_bytes must be a power of two holding whole words")
	}

	if c.OffsetBits() >= c.AddressBits {
		return fmt.Errorf("line_bytes must be smaller than the address space")
	}

	if c.Contexts <= 0 {
		return fmt.Errorf("contexts must be > 0")
	}

	return nil
}

func (c *HierarchyConfig) validateLevel(l LevelConfig) error {
	if l.Name == "" || l.Name == MemoryName {
		return fmt.Errorf("invalid level name %q", l.Name)
	}

	if !isPowerOfTwo(l.Sets) {
		return fmt.Errorf("level %s: sets must be a power of two", l.Name)
	}

	if c.OffsetBits()+bits.TrailingZeros64(l.Sets) > c.AddressBits {
		return fmt.Errorf("level %s: too many sets for the address width", l.Name)
	}

	if l.Associativity <= 0 {
		return fmt.Errorf("level %s: associativity must be > 0", l.Name)
	}

	if l.Instances <= 0 {
		return fmt.Errorf("level %s: instances must be > 0", l.Name)
	}

	p, err := l.Policy()
	if err != nil {
		return err
	}

	if p.Eviction == eviction.PLRU && l.Associativity > eviction.MaxPLRUAssociativity {
		return fmt.Errorf("level %s: plru supports at most %d ways",
			l.Name, eviction.MaxPLRUAssociativity)
	}

	return nil
}

// validateLinks requires every level to point further down and the
// instances of a level to split evenly over the level below.
func (c *HierarchyConfig) validateLinks(index map[string]int) error {
	for i, l := range c.Levels {
		next := c.NextOf(i)
		if next == MemoryName {
			continue
		}

		j, ok := index[next]
		if !ok {
			return fmt.Errorf("level %s: unknown next level %q", l.Name, next)
		}

		if j <= i {
			return fmt.Errorf("level %s: next level %s must be listed below it",
				l.Name, next)
		}

		if l.Instances%c.Levels[j].Instances != 0 {
			return fmt.Errorf("level %s: %d instances cannot share %d instances of %s",
				l.Name, l.Instances, c.Levels[j].Instances, next)
		}
	}

	return nil
}

// Clone returns a deep copy of the HierarchyConfig.
func (c *HierarchyConfig) Clone() *HierarchyConfig {
	out := *c
	out.Levels = append([]LevelConfig(nil), c.Levels...)

	return &out
}
