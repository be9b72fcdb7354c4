package viewer

import "fmt"

// State is a viewer lifecycle state.
type State int

const (
	// Initializing waits for the surface to load and the graph to arrive.
	Initializing State = iota
	// LayingOut steps the simulation once per frame.
	LayingOut
	// Settled keeps the last positions; no frames run.
	Settled
	// Disposed is terminal.
	Disposed
)

var stateNames = [...]string{"initializing", "laying_out", "settled", "disposed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown viewer state %q", text)
}
