// Package hierarchy assembles cache units, the backing memory and the
// per-context top level from a configuration, and drives them as one system.
package hierarchy

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mmusim/bitvec"
	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/cache"
	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/config"
	"github.com/sarchlab/mmusim/eviction"
	"github.com/sarchlab/mmusim/storage"
)

// ErrUnbacked is returned when an access needs data that no level holds and
// that was never written to memory.
var ErrUnbacked = errors.New("address holds no data")

// Session is a built hierarchy. Accesses enter at the top level instance of
// the active context.
type Session struct {
	cfg *config.HierarchyConfig

	layout  *buffer.Layout
	memory  *storage.Memory
	adapter *storage.Adapter

	levels   [][]*cache.Unit
	selector *buffer.ContextSwitch
	top      *buffer.InstanceProxy
}

// New validates the configuration and builds a hierarchy over an empty
// memory.
func New(cfg *config.HierarchyConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hierarchy config: %w", err)
	}

	s := &Session{
		cfg:      cfg.Clone(),
		selector: buffer.NewContextSwitch(),
	}

	s.buildMemory()
	s.buildLevels()
	s.buildTop()

	return s, nil
}

func (s *Session) buildMemory() {
	lineBits := s.cfg.LineBytes * 8
	wordOffset := bits.TrailingZeros(uint(s.cfg.WordBits / 8))

	s.layout = buffer.NewLayout(
		buffer.Field{Name: "data", Width: lineBits},
		buffer.Field{Name: "tag", Width: s.cfg.AddressBits - s.cfg.OffsetBits()},
	)
	s.memory = storage.NewMemory(s.cfg.WordBits, s.cfg.AddressBits-wordOffset)
	s.adapter = storage.NewAdapter(s.memory,
		buffer.NewLayout(buffer.Field{Name: "data", Width: lineBits}))
}

// buildLevels builds the units bottom up so that every unit finds its next
// level already built.
func (s *Session) buildLevels() {
	offset := s.cfg.OffsetBits()
	matcher := buffer.TagMatcher{Field: "tag", Lo: offset, Hi: s.cfg.AddressBits - 1}
	src := eviction.NewSource(s.cfg.Seed)
	index := make(map[string]int, len(s.cfg.Levels))

	for i, l := range s.cfg.Levels {
		index[l.Name] = i
	}

	s.levels = make([][]*cache.Unit, len(s.cfg.Levels))

	for i := len(s.cfg.Levels) - 1; i >= 0; i-- {
		l := s.cfg.Levels[i]
		p, _ := l.Policy()

		b := cache.MakeBuilder().
			WithLayout(s.layout).
			WithAddressWidth(s.cfg.AddressBits).
			WithAssociativity(l.Associativity).
			WithNumSets(l.Sets).
			WithPolicy(p).
			WithIndexer(indexerFor(offset, l.Sets)).
			WithMatcher(matcher).
			WithRandomSource(src)

		units := make([]*cache.Unit, l.Instances)
		for k := range units {
			units[k] = b.WithNext(s.nextFor(i, k, index)).Build(unitName(l, k))
		}

		for _, u := range units {
			for _, o := range units {
				if u != o {
					u.AddNeighbor(o)
				}
			}
		}

		s.levels[i] = units
	}
}

func (s *Session) nextFor(i, k int, index map[string]int) buffer.Buffer {
	next := s.cfg.NextOf(i)
	if next == config.MemoryName {
		return s.adapter
	}

	lower := s.levels[index[next]]
	group := s.cfg.Levels[i].Instances / len(lower)

	return lower[k/group]
}

func (s *Session) buildTop() {
	top := s.levels[0]
	instances := make([]buffer.Buffer, len(top))

	for i, u := range top {
		instances[i] = u
	}

	s.top = buffer.NewInstanceProxy(s.selector, buffer.Capabilities{
		Replaceable:  true,
		Observer:     true,
		StateManager: true,
	}, instances...)
}

func unitName(l config.LevelConfig, k int) string {
	if l.Instances == 1 {
		return l.Name
	}

	return fmt.Sprintf("%s%d", l.Name, k)
}

func indexerFor(offset int, sets uint64) buffer.Indexer {
	if sets == 1 {
		return buffer.IndexerFunc(func(buffer.Address) uint64 { return 0 })
	}

	return buffer.BitFieldIndexer{
		Lo: offset,
		Hi: offset + bits.TrailingZeros64(sets) - 1,
	}
}

// Config returns a copy of the configuration the session was built from.
func (s *Session) Config() *config.HierarchyConfig {
	return s.cfg.Clone()
}

// Memory returns the backing memory.
func (s *Session) Memory() *storage.Memory {
	return s.memory
}

// Levels returns the units of every level, top to bottom.
func (s *Session) Levels() [][]*cache.Unit {
	out := make([][]*cache.Unit, len(s.levels))
	for i, l := range s.levels {
		out[i] = append([]*cache.Unit(nil), l...)
	}

	return out
}

// Units returns every unit, top to bottom.
func (s *Session) Units() []*cache.Unit {
	var out []*cache.Unit
	for _, l := range s.levels {
		out = append(out, l...)
	}

	return out
}

// Unit finds a unit by name.
func (s *Session) Unit(name string) (*cache.Unit, bool) {
	for _, u := range s.Units() {
		if u.Name() == name {
			return u, true
		}
	}

	return nil, false
}

// Top returns the per-context handle of the top level.
func (s *Session) Top() *buffer.InstanceProxy {
	return s.top
}

// AcceptHook registers a hook with every unit.
func (s *Session) AcceptHook(h sim.Hook) {
	for _, u := range s.Units() {
		u.AcceptHook(h)
	}
}

// Contexts returns the number of hardware contexts.
func (s *Session) Contexts() int {
	return s.cfg.Contexts
}

// ActiveContext returns the context accesses are issued from.
func (s *Session) ActiveContext() int {
	return s.selector.ActiveContext()
}

// SelectContext makes a context active.
func (s *Session) SelectContext(id int) error {
	if id < 0 || id >= s.cfg.Contexts {
		return fmt.Errorf("context %d out of range [0, %d)", id, s.cfg.Contexts)
	}

	s.selector.Select(id)

	return nil
}

// LineBytes returns the line size.
func (s *Session) LineBytes() int {
	return s.cfg.LineBytes
}

// Align returns the address of the line holding addr.
func (s *Session) Align(addr uint64) uint64 {
	return addr &^ uint64(s.cfg.LineBytes-1)
}

func (s *Session) address(addr uint64) (buffer.Address, error) {
	if s.cfg.AddressBits < 64 && addr>>s.cfg.AddressBits != 0 {
		return buffer.Address{}, fmt.Errorf("address 0x%x exceeds %d bits",
			addr, s.cfg.AddressBits)
	}

	return buffer.AddressOf(s.cfg.AddressBits, s.Align(addr)), nil
}

// backed reports whether a read from the active context can be served:
// a unit on its path holds the line, a snooped neighbor does, or memory was
// written.
func (s *Session) backed(a buffer.Address) bool {
	u := s.levels[0][s.selector.ActiveContext()]

	for u != nil {
		if holds(u, a) {
			return true
		}

		if u.Policy().Coherence != coherence.None {
			for _, n := range u.Neighbors() {
				if holds(n, a) {
					return true
				}
			}
		}

		next, _ := u.Next()
		u, _ = next.(*cache.Unit)
	}

	return s.adapter.IsHit(a)
}

func holds(u *cache.Unit, a buffer.Address) bool {
	info, ok := u.Probe(a)
	return ok && info.Valid
}

// Read returns the line holding addr.
func (s *Session) Read(addr uint64) (bitvec.BitVector, error) {
	a, err := s.address(addr)
	if err != nil {
		return bitvec.BitVector{}, err
	}

	if !s.backed(a) {
		return bitvec.BitVector{}, fmt.Errorf("%w: 0x%x", ErrUnbacked, addr)
	}

	e, ok := s.top.ReadEntry(a)
	if !ok {
		return bitvec.BitVector{}, fmt.Errorf("%w: 0x%x", ErrUnbacked, addr)
	}

	return e.Get("data"), nil
}

// Write replaces the line holding addr.
func (s *Session) Write(addr uint64, data bitvec.BitVector) error {
	a, err := s.address(addr)
	if err != nil {
		return err
	}

	e := s.layout.New().With("data", data.Resize(s.cfg.LineBytes*8))
	s.top.WriteEntry(a, e)

	return nil
}

// WritePartial writes bits [lo, hi] of the line holding addr.
func (s *Session) WritePartial(addr uint64, lo, hi int, data bitvec.BitVector) error {
	a, err := s.address(addr)
	if err != nil {
		return err
	}

	if lo < 0 || hi < lo || hi >= s.cfg.LineBytes*8 {
		return fmt.Errorf("bit range [%d, %d] outside a %d-byte line",
			lo, hi, s.cfg.LineBytes)
	}

	return s.top.WritePartial(a, lo, hi, data)
}

func (s *Session) byteRange(addr uint64, size int) (lo, hi int, err error) {
	if size <= 0 || size > 8 {
		return 0, 0, fmt.Errorf("access size %d not in [1, 8]", size)
	}

	off := int(addr - s.Align(addr))
	if off+size > s.cfg.LineBytes {
		return 0, 0, fmt.Errorf("access of %d bytes at 0x%x crosses a line", size, addr)
	}

	return off * 8, (off+size)*8 - 1, nil
}

// Load reads size bytes at addr, little endian.
func (s *Session) Load(addr uint64, size int) (uint64, error) {
	lo, hi, err := s.byteRange(addr, size)
	if err != nil {
		return 0, err
	}

	line, err := s.Read(addr)
	if err != nil {
		return 0, err
	}

	return line.Field(lo, hi).Uint64(), nil
}

// Store writes size bytes at addr, little endian.
func (s *Session) Store(addr uint64, size int, v uint64) error {
	lo, hi, err := s.byteRange(addr, size)
	if err != nil {
		return err
	}

	return s.WritePartial(addr, lo, hi, bitvec.FromUint64(size*8, v))
}

// Evict removes the line holding addr from the active context's top level.
// It returns false if the line was not there.
func (s *Session) Evict(addr uint64) (bool, error) {
	a, err := s.address(addr)
	if err != nil {
		return false, err
	}

	if !s.top.IsHit(a) {
		return false, nil
	}

	r, _ := s.top.AsReplaceable()

	return r.EvictEntry(a), nil
}

// Flush evicts every line, top level first, so that all dirty data reaches
// memory as the policies allow.
func (s *Session) Flush() {
	for _, u := range s.Units() {
		u.Flush()
	}
}

func (s *Session) stateManagers() []buffer.StateManager {
	top, _ := s.top.AsStateManager()
	managers := []buffer.StateManager{top}

	for _, l := range s.levels[1:] {
		for _, u := range l {
			managers = append(managers, u)
		}
	}

	return append(managers, s.adapter)
}

// SetUseTempState checkpoints or restores every unit and the memory.
func (s *Session) SetUseTempState(on bool) {
	for _, m := range s.stateManagers() {
		m.SetUseTempState(on)
	}
}

// ResetState empties every unit. Memory keeps its committed contents.
func (s *Session) ResetState() {
	for _, m := range s.stateManagers() {
		m.ResetState()
	}
}

// CheckCoherent checks the holders of addr on every level.
func (s *Session) CheckCoherent(addr uint64) (bool, error) {
	a, err := s.address(addr)
	if err != nil {
		return false, err
	}

	for _, l := range s.levels {
		if !l[0].CheckCoherent(a) {
			return false, nil
		}
	}

	return true, nil
}
