// Package model contains domain models passed between layers.
package model

import "fmt"

// State is the attention state assigned to one sample.
type State int

// Attention states. The zero value is StateNotPresent so an unset state
// never reads as attentive.
const (
	StateNotPresent State = iota
	StateLookingAway
	StateSleeping
	StateAttentive
)

var stateNames = [...]string{ //nolint:gochecknoglobals // lookup table
	StateNotPresent:  "not_present",
	StateLookingAway: "looking_away",
	StateSleeping:    "sleeping",
	StateAttentive:   "attentive",
}

// States lists every state in declaration order.
func States() []State {
	return []State{StateNotPresent, StateLookingAway, StateSleeping, StateAttentive}
}

// StateNames returns the wire names of all states.
func StateNames() []string {
	names := make([]string, len(stateNames))
	copy(names, stateNames[:])
	return names
}

// String returns the wire name used in event logs and notifications.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Negative reports whether the state counts against the subject in the
// distraction window.
func (s State) Negative() bool {
	return s == StateNotPresent || s == StateLookingAway || s == StateSleeping
}

// ParseState converts a wire name back to a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateNotPresent, fmt.Errorf("unknown attention state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
