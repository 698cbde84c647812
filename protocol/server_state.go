package protocol

import (
	"encoding/json"
	"fmt"
)

// ServerState represents the state transitions in the game server.
//
//	Registration --> Initializing --> Running
//	  ^                                  V
//	  \--<-----------<--------------<----/
//
// All states can go to a fatal error.
type ServerState int

const (
	StateRegistration ServerState = iota
	StateInitializing
	StateRunning
	StateFatalError
)

var serverStateNames = map[ServerState]string{
	StateRegistration: "registration",
	StateInitializing: "initializing",
	StateRunning:      "running",
	StateFatalError:   "fatalError",
}

func (s ServerState) String() string {
	if name, ok := serverStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ServerState(%d)", int(s))
}

// CanChangeRegistration reports whether the registration set may be mutated.
func (s ServerState) CanChangeRegistration() bool {
	return s == StateRegistration
}

// CanSendAction reports whether player actions are accepted.
func (s ServerState) CanSendAction() bool {
	return s == StateRunning
}

func (s ServerState) MarshalJSON() ([]byte, error) {
	name, ok := serverStateNames[s]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown server state %d", int(s))
	}
	return json.Marshal(name)
}

func (s *ServerState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for state, n := range serverStateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("protocol: unknown server state %q", name)
}
