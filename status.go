package fabenv

import "fmt"

// State describes the runtime lifecycle state. Starting, Stopping and
// Restarting are transient: they are only observable while an operation
// is in flight. Started and Stopped are the stable states every
// operation converges to.
type State uint8

const (
	StateStopped State = iota
	StateStarting
	StateStarted
	StateStopping
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name, so JSON and YAML encodings carry
// "started" rather than the numeric value.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateStopped, StateStarting, StateStarted, StateStopping, StateRestarting} {
		if string(text) == candidate.String() {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Transient reports whether the state only exists while an operation
// is in flight.
func (s State) Transient() bool {
	switch s {
	case StateStarting, StateStopping, StateRestarting:
		return true
	default:
		return false
	}
}

// Status is a snapshot of the runtime's observable status. Busy is true
// for the entire duration of any mutating operation.
type Status struct {
	State State `json:"state"`
	Busy  bool  `json:"busy"`
}
