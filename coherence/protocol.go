package coherence

// snoopProtocol covers the four MSI variants. The owned and exclusive flags
// add the O and E states.
type snoopProtocol struct {
	id        ID
	owned     bool
	exclusive bool
}

func (p snoopProtocol) ID() ID { return p.id }
func (p snoopProtocol) Enabled() bool { return true }

func (p snoopProtocol) Supports(s State) bool {
	switch s {
	case Invalid, Shared, Modified:
		return true
	case Owned:
		return p.owned
	case Exclusive:
		return p.exclusive
	default:
		return false
	}
}

func (p snoopProtocol) OnReset() State {
	return Invalid
}

func (p snoopProtocol) OnRead(s State, exclusive bool) State {
	if s != Invalid {
		return s
	}

	if exclusive && p.exclusive {
		return Exclusive
	}

	return Shared
}

func (p snoopProtocol) OnWrite(State) State {
	return Modified
}

// OnSnoopRead downgrades a sole holder. With an O state the dirty copy stays
// with the holder as its owner.
func (p snoopProtocol) OnSnoopRead(s State) State {
	switch s {
	case Modified:
		if p.owned {
			return Owned
		}

		return Shared
	case Exclusive:
		return Shared
	default:
		return s
	}
}

func (p snoopProtocol) OnSnoopWrite(State) State {
	return Invalid
}

func (p snoopProtocol) OnSnoopEvict(s State) State {
	return s
}

func (p snoopProtocol) IsCoherent(states []State) bool {
	var sole, owned, shared, valid int

	for _, s := range states {
		if !p.Supports(s) {
			return false
		}

		switch s {
		case Modified, Exclusive:
			sole++
		case Owned:
			owned++
		case Shared:
			shared++
		}

		if s != Invalid {
			valid++
		}
	}

	if sole > 1 || owned > 1 {
		return false
	}

	if sole == 1 && valid > 1 {
		return false
	}

	return true
}

// noneProtocol tracks validity only. Every state combination is coherent.
type noneProtocol struct{}

func (noneProtocol) ID() ID { return None }
func (noneProtocol) Enabled() bool { return false }

func (noneProtocol) Supports(s State) bool {
	return s == Invalid || s == Shared || s == Modified
}

func (noneProtocol) OnReset() State { return Invalid }

func (noneProtocol) OnRead(s State, _ bool) State {
	if s == Invalid {
		return Shared
	}

	return s
}

func (noneProtocol) OnWrite(State) State { return Modified }
func (noneProtocol) OnSnoopRead(s State) State { return s }
func (noneProtocol) OnSnoopWrite(s State) State { return s }
func (noneProtocol) OnSnoopEvict(s State) State { return s }
func (noneProtocol) IsCoherent([]State) bool { return true }
