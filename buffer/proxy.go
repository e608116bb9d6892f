package buffer

import (
	"fmt"

	"github.com/sarchlab/mmusim/bitvec"
)

// ContextSelector tells which hardware context is currently active.
type ContextSelector interface {
	ActiveContext() int
}

// ContextSwitch is a ContextSelector that is set explicitly.
type ContextSwitch struct {
	active int
}

// NewContextSwitch creates a selector with context 0 active.
func NewContextSwitch() *ContextSwitch {
	return &ContextSwitch{}
}

// Select makes a context active.
func (s *ContextSwitch) Select(id int) {
	s.active = id
}

// ActiveContext returns the active context.
func (s *ContextSwitch) ActiveContext() int {
	return s.active
}

// Capabilities declares which optional capability sets a proxy exposes.
type Capabilities struct {
	Replaceable  bool
	Observer     bool
	StateManager bool
}

// CapabilitiesOf lists the capabilities a buffer implements.
func CapabilitiesOf(b Buffer) Capabilities {
	_, r := b.(Replaceable)
	_, o := b.(Observer)
	_, s := b.(StateManager)

	return Capabilities{Replaceable: r, Observer: o, StateManager: s}
}

// InstanceProxy routes a single buffer handle to one instance per hardware
// context. The capability set is fixed at construction.
type InstanceProxy struct {
	selector  ContextSelector
	caps      Capabilities
	instances []Buffer

	replaceables []Replaceable
	observers    []Observer
	managers     []StateManager
}

// NewInstanceProxy creates a proxy. It panics if an instance lacks a declared
// capability.
func NewInstanceProxy(
	selector ContextSelector,
	caps Capabilities,
	instances ...Buffer,
) *InstanceProxy {
	if selector == nil {
		panic("instance proxy requires a context selector")
	}

	if len(instances) == 0 {
		panic("instance proxy requires at least one instance")
	}

	p := &InstanceProxy{
		selector:  selector,
		caps:      caps,
		instances: instances,
	}

	for i, inst := range instances {
		if caps.Replaceable {
			r, ok := inst.(Replaceable)
			mustHave(ok, i, "Replaceable")
			p.replaceables = append(p.replaceables, r)
		}

		if caps.Observer {
			o, ok := inst.(Observer)
			mustHave(ok, i, "Observer")
			p.observers = append(p.observers, o)
		}

		if caps.StateManager {
			s, ok := inst.(StateManager)
			mustHave(ok, i, "StateManager")
			p.managers = append(p.managers, s)
		}
	}

	return p
}

func mustHave(ok bool, i int, capability string) {
	if !ok {
		panic(fmt.Sprintf("instance %d does not implement %s", i, capability))
	}
}

// Capabilities returns the declared capability set.
func (p *InstanceProxy) Capabilities() Capabilities {
	return p.caps
}

// Instances returns all instances in context order.
func (p *InstanceProxy) Instances() []Buffer {
	return append([]Buffer(nil), p.instances...)
}

func (p *InstanceProxy) active() int {
	id := p.selector.ActiveContext()
	if id < 0 || id >= len(p.instances) {
		panic(fmt.Sprintf("active context %d out of range [0, %d)",
			id, len(p.instances)))
	}

	return id
}

// Instance returns the instance of the active context.
func (p *InstanceProxy) Instance() Buffer {
	return p.instances[p.active()]
}

// IsHit forwards to the active instance.
func (p *InstanceProxy) IsHit(a Address) bool {
	return p.Instance().IsHit(a)
}

// ReadEntry forwards to the active instance.
func (p *InstanceProxy) ReadEntry(a Address) (Entry, bool) {
	return p.Instance().ReadEntry(a)
}

// WriteEntry forwards to the active instance.
func (p *InstanceProxy) WriteEntry(a Address, data Entry) {
	p.Instance().WriteEntry(a, data)
}

// WritePartial forwards to the active instance.
func (p *InstanceProxy) WritePartial(
	a Address,
	lo, hi int,
	data bitvec.BitVector,
) error {
	return p.Instance().WritePartial(a, lo, hi, data)
}

// AsReplaceable returns a Replaceable view if the capability was declared.
func (p *InstanceProxy) AsReplaceable() (Replaceable, bool) {
	if !p.caps.Replaceable {
		return nil, false
	}

	return replaceableView{p}, true
}

// AsObserver returns an Observer view if the capability was declared.
func (p *InstanceProxy) AsObserver() (Observer, bool) {
	if !p.caps.Observer {
		return nil, false
	}

	return observerView{p}, true
}

// AsStateManager returns a StateManager view if the capability was declared.
// State changes apply to every instance so that all contexts checkpoint and
// reset together.
func (p *InstanceProxy) AsStateManager() (StateManager, bool) {
	if !p.caps.StateManager {
		return nil, false
	}

	return stateView{p}, true
}

type replaceableView struct {
	*InstanceProxy
}

func (v replaceableView) AllocEntry(a Address) {
	v.replaceables[v.active()].AllocEntry(a)
}

func (v replaceableView) EvictEntry(a Address) bool {
	return v.replaceables[v.active()].EvictEntry(a)
}

func (v replaceableView) Next() (Buffer, bool) {
	return v.replaceables[v.active()].Next()
}

type observerView struct {
	p *InstanceProxy
}

func (v observerView) IsHitValue(b bitvec.BitVector) bool {
	return v.p.observers[v.p.active()].IsHitValue(b)
}

func (v observerView) SeeEntry(set, way uint64) (Address, Entry, bool) {
	return v.p.observers[v.p.active()].SeeEntry(set, way)
}

func (v observerView) SetIndices() []uint64 {
	return v.p.observers[v.p.active()].SetIndices()
}

func (v observerView) Associativity() int {
	return v.p.observers[v.p.active()].Associativity()
}

type stateView struct {
	p *InstanceProxy
}

func (v stateView) ResetState() {
	for _, m := range v.p.managers {
		m.ResetState()
	}
}

func (v stateView) SetUseTempState(on bool) {
	for _, m := range v.p.managers {
		m.SetUseTempState(on)
	}
}
