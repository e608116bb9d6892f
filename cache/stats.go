package cache

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mmusim/buffer"
	"github.com/sarchlab/mmusim/coherence"
)

// Statistics holds per-unit access counters. Inspection through IsHit,
// SeeEntry and Probe is not counted.
type Statistics struct {
	Reads             uint64
	Writes            uint64
	Hits              uint64
	Misses            uint64
	Allocations       uint64
	Evictions         uint64
	Writebacks        uint64
	Snoops            uint64
	BackInvalidations uint64
}

// HitRate returns hits over accesses, or 0 without accesses.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Add sums two sets of counters.
func (s Statistics) Add(o Statistics) Statistics {
	return Statistics{
		Reads:             s.Reads + o.Reads,
		Writes:            s.Writes + o.Writes,
		Hits:              s.Hits + o.Hits,
		Misses:            s.Misses + o.Misses,
		Allocations:       s.Allocations + o.Allocations,
		Evictions:         s.Evictions + o.Evictions,
		Writebacks:        s.Writebacks + o.Writebacks,
		Snoops:            s.Snoops + o.Snoops,
		BackInvalidations: s.BackInvalidations + o.BackInvalidations,
	}
}

// Hook positions invoked by a Unit. The hook item is an AccessInfo.
var (
	HookPosRead      = &sim.HookPos{Name: "CacheRead"}
	HookPosWrite     = &sim.HookPos{Name: "CacheWrite"}
	HookPosEvict     = &sim.HookPos{Name: "CacheEvict"}
	HookPosWriteBack = &sim.HookPos{Name: "CacheWriteBack"}
	HookPosSnoop     = &sim.HookPos{Name: "CacheSnoop"}
)

// AccessInfo describes one observed cache event.
type AccessInfo struct {
	Unit    string
	Address buffer.Address
	Hit     bool
	Dirty   bool
	State   coherence.State
}

func (u *Unit) invoke(pos *sim.HookPos, a buffer.Address, hit bool, l *Line) {
	info := AccessInfo{Unit: u.name, Address: a, Hit: hit}
	if l != nil {
		info.Dirty = l.dirty
		info.State = l.state
	}

	u.InvokeHook(sim.HookCtx{
		Domain: u,
		Pos:    pos,
		Item:   info,
	})
}
