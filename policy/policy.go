// Package policy aggregates the independent configuration axes of a cache
// level: replacement, write handling, inclusion and coherence.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/mmusim/coherence"
	"github.com/sarchlab/mmusim/eviction"
)

// WritePolicy describes how writes are handled.
type WritePolicy struct {
	// Allocate installs the line on a write miss.
	Allocate bool
	// Through forwards every write to the next level.
	Through bool
	// Back defers propagation until a dirty line is evicted.
	Back bool
}

// The canonical write policies.
var (
	WN  = WritePolicy{Allocate: true}
	WT  = WritePolicy{Through: true}
	WTA = WritePolicy{Allocate: true, Through: true}
	WB  = WritePolicy{Allocate: true, Back: true}
)

var writeNames = map[string]WritePolicy{
	"wn":  WN,
	"wt":  WT,
	"wta": WTA,
	"wb":  WB,
}

// ParseWritePolicy converts a canonical name into a WritePolicy.
func ParseWritePolicy(s string) (WritePolicy, error) {
	if w, ok := writeNames[strings.ToLower(s)]; ok {
		return w, nil
	}

	return WritePolicy{}, fmt.Errorf("unknown write policy %q", s)
}

func (w WritePolicy) String() string {
	for name, p := range writeNames {
		if p == w {
			return strings.ToUpper(name)
		}
	}

	return fmt.Sprintf("{alloc=%t through=%t back=%t}", w.Allocate, w.Through, w.Back)
}

// ErrInvalidWritePolicy is returned for contradicting write flags.
var ErrInvalidWritePolicy = errors.New("invalid write policy")

// Validate rejects write-through combined with write-back, and policies that
// would drop every write miss.
func (w WritePolicy) Validate() error {
	if w.Through && w.Back {
		return fmt.Errorf("%w: write-through and write-back are exclusive",
			ErrInvalidWritePolicy)
	}

	if !w.Allocate && !w.Through {
		return fmt.Errorf("%w: neither allocate nor write-through",
			ErrInvalidWritePolicy)
	}

	return nil
}

// Inclusion is the containment contract between adjacent levels.
type Inclusion int

// The supported inclusion policies.
const (
	NINE Inclusion = iota
	Inclusive
	Exclusive
)

var inclusionNames = map[Inclusion]string{
	NINE:      "nine",
	Inclusive: "inclusive",
	Exclusive: "exclusive",
}

func (i Inclusion) String() string {
	if name, ok := inclusionNames[i]; ok {
		return name
	}

	return fmt.Sprintf("Inclusion(%d)", int(i))
}

// ParseInclusion converts a name into an Inclusion.
func ParseInclusion(s string) (Inclusion, error) {
	for i, name := range inclusionNames {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}

	return 0, fmt.Errorf("unknown inclusion policy %q", s)
}

// CachePolicy is the immutable aggregate of all policy axes.
type CachePolicy struct {
	Eviction  eviction.ID
	Write     WritePolicy
	Inclusion Inclusion
	Coherence coherence.ID
}

// New creates a validated CachePolicy.
func New(
	ev eviction.ID,
	write WritePolicy,
	inclusion Inclusion,
	proto coherence.ID,
) (CachePolicy, error) {
	p := CachePolicy{
		Eviction:  ev,
		Write:     write,
		Inclusion: inclusion,
		Coherence: proto,
	}

	return p, p.Validate()
}

// MustNew is like New but panics on an invalid policy.
func MustNew(
	ev eviction.ID,
	write WritePolicy,
	inclusion Inclusion,
	proto coherence.ID,
) CachePolicy {
	p, err := New(ev, write, inclusion, proto)
	if err != nil {
		panic(err)
	}

	return p
}

// Validate checks every axis.
func (p CachePolicy) Validate() error {
	if _, ok := inclusionNames[p.Inclusion]; !ok {
		return fmt.Errorf("unknown inclusion policy %d", p.Inclusion)
	}

	if p.Eviction < eviction.Random || p.Eviction > eviction.None {
		return fmt.Errorf("unknown eviction policy %d", p.Eviction)
	}

	if p.Coherence < coherence.None || p.Coherence > coherence.MOESI {
		return fmt.Errorf("unknown coherence protocol %d", p.Coherence)
	}

	return p.Write.Validate()
}

func (p CachePolicy) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", p.Eviction, p.Write, p.Inclusion, p.Coherence)
}
