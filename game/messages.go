// File: game/messages.go
package game

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/protocol"
)

//
// Session -> Coordinator
//

// ConnectPlayer announces a freshly upgraded player socket.
type ConnectPlayer struct {
	ID     uuid.UUID
	Handle *actor.PID
}

// ConnectStatus is the outcome of a connect attempt.
type ConnectStatus int

const (
	ConnectOK ConnectStatus = iota
	ConnectAlreadyConnected
	ConnectNotRegistered
)

// ConnectPlayerResult is the coordinator's reply to ConnectPlayer.
type ConnectPlayerResult struct {
	Status ConnectStatus
	State  protocol.ServerState
}

// DisconnectPlayer removes a player socket from the connection table.
// The handle must match the stored one, so a stale disconnect cannot
// evict a fresh reconnect.
type DisconnectPlayer struct {
	ID     uuid.UUID
	Handle *actor.PID
}

// ConnectViewer announces a freshly upgraded viewer socket.
type ConnectViewer struct {
	ID     uuid.UUID
	Handle *actor.PID
}

// ConnectViewerResult is the coordinator's reply to ConnectViewer.
type ConnectViewerResult struct {
	Status ConnectStatus
	State  protocol.ServerState
}

// DisconnectViewer removes a viewer socket from the viewer set.
type DisconnectViewer struct {
	ID     uuid.UUID
	Handle *actor.PID
}

// Register asks to join the registration set for the next match.
type Register struct {
	ID      uuid.UUID
	Profile protocol.PlayerProfile
}

// RegisterStatus is the outcome of a register request.
type RegisterStatus int

const (
	RegisterSuccess RegisterStatus = iota
	RegisterGameAlreadyStarted
	RegisterTooManyPlayers
)

// RegisterResult is the coordinator's reply to Register.
type RegisterResult struct {
	Status     RegisterStatus
	MaxAllowed int
}

// Unregister asks to leave the registration set.
type Unregister struct {
	ID uuid.UUID
}

// UnregisterResult is the coordinator's reply to Unregister. Removing
// an absent id still succeeds.
type UnregisterResult struct {
	Success bool
}

// GetServerState asks the coordinator for the authoritative state.
type GetServerState struct{}

// ServerStateSnapshot is the reply to GetServerState.
type ServerStateSnapshot struct {
	State protocol.ServerState
}

// GetRegisteredPlayers asks for the registration map and player order.
type GetRegisteredPlayers struct{}

// RegisteredPlayersSnapshot is the reply to GetRegisteredPlayers. The
// order is nil outside a match.
type RegisteredPlayersSnapshot struct {
	Players map[uuid.UUID]protocol.PlayerProfile
	Order   []uuid.UUID
}

//
// Driver -> Coordinator
//

// GameInit carries the initial engine state for a new match.
type GameInit struct {
	State json.RawMessage
}

// GameNextState carries one tick's engine output.
type GameNextState struct {
	State     json.RawMessage
	Actions   protocol.ActionsTaken
	TicksLeft int
}

// GamePlayerKilled reports a kill the engine performed.
type GamePlayerKilled struct {
	ID uuid.UUID
}

// GameOver carries the final engine state and the surviving players.
type GameOver struct {
	Winners []uuid.UUID
	State   json.RawMessage
	Actions protocol.ActionsTaken
}

// EngineCrashed reports that the engine exhausted its retry budget.
// The server cannot recover without a restart.
type EngineCrashed struct {
	Err error
}

//
// Coordinator -> Driver
//

// StartSignal tells the driver to begin a match with the frozen order.
type StartSignal struct {
	PlayerOrder []uuid.UUID
}

//
// Coordinator -> Sessions. Each carries a frame serialized exactly once
// and shared across every recipient.
//

// RegistrationUpdate is a waitingOnPlayers or gameStartingSoon frame.
type RegistrationUpdate struct {
	Data []byte
}

// MatchCreated is the gameStarting frame. Receivers move to the
// initializing state.
type MatchCreated struct {
	Data []byte
}

// MatchInit is the init frame. Receivers move to the running state and
// reset their per-match flags.
type MatchInit struct {
	Data []byte
}

// MatchState is a nextState frame. Receivers reset their per-tick
// action flag.
type MatchState struct {
	Data []byte
}

// MatchPlayerKilled is a playerKilled frame. The matching session
// refuses further actions.
type MatchPlayerKilled struct {
	ID   uuid.UUID
	Data []byte
}

// MatchEnded is the gameEnded frame. Receivers move back to the
// registration state.
type MatchEnded struct {
	Data []byte
}

// EngineFailure is the terminal crash frame. Receivers forward it and
// close their socket.
type EngineFailure struct {
	Data []byte
}
