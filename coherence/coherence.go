// Package coherence implements the snoop-based coherence protocol family
// MSI, MOSI, MESI, MOESI and a disabled NONE protocol.
package coherence

import (
	"fmt"
	"strings"
)

// State is the coherence state of one cache line.
type State int

// Invalid is the zero value so that empty lines start invalid.
const (
	Invalid State = iota
	Shared
	Exclusive
	Owned
	Modified
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "I"
	case Shared:
		return "S"
	case Exclusive:
		return "E"
	case Owned:
		return "O"
	case Modified:
		return "M"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ID names a protocol.
type ID int

// The supported protocols.
const (
	None ID = iota
	MSI
	MOSI
	MESI
	MOESI
)

var idNames = map[ID]string{
	None:  "none",
	MSI:   "msi",
	MOSI:  "mosi",
	MESI:  "mesi",
	MOESI: "moesi",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}

	return fmt.Sprintf("ID(%d)", int(id))
}

// ParseID converts a protocol name into an ID. Matching is case insensitive.
func ParseID(s string) (ID, error) {
	for id, name := range idNames {
		if strings.EqualFold(s, name) {
			return id, nil
		}
	}

	return 0, fmt.Errorf("unknown coherence protocol %q", s)
}

// Protocol is the per-line state machine. Implementations are stateless.
type Protocol interface {
	ID() ID

	// Enabled is false for the NONE protocol. Caches skip snooping and
	// coherence checks when it is false.
	Enabled() bool

	// Supports reports whether the state is part of the protocol.
	Supports(s State) bool

	OnReset() State
	OnRead(s State, exclusive bool) State
	OnWrite(s State) State
	OnSnoopRead(s State) State
	OnSnoopWrite(s State) State
	OnSnoopEvict(s State) State

	// IsCoherent checks the states of every holder of one address.
	IsCoherent(states []State) bool
}

// New returns the protocol with the given ID.
func New(id ID) Protocol {
	switch id {
	case None:
		return noneProtocol{}
	case MSI:
		return snoopProtocol{id: MSI}
	case MOSI:
		return snoopProtocol{id: MOSI, owned: true}
	case MESI:
		return snoopProtocol{id: MESI, exclusive: true}
	case MOESI:
		return snoopProtocol{id: MOESI, owned: true, exclusive: true}
	default:
		panic(fmt.Sprintf("unknown coherence protocol %s", id))
	}
}
