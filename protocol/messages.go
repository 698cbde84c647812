package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PlayerProfile is the small profile record carried in the auth token.
type PlayerProfile struct {
	Name string `json:"name"`
}

// ClientMessage is an inbound websocket message after parsing.
type ClientMessage interface{ isClientMessage() }

// RegisterMessage asks to join the registration set for the next match.
type RegisterMessage struct{}

// UnregisterMessage asks to leave the registration set.
type UnregisterMessage struct{}

// GetServerStateMessage queries the current server state.
type GetServerStateMessage struct{}

// GetRegisteredPlayersMessage queries the registration set and player order.
type GetRegisteredPlayersMessage struct{}

// ActionMessage carries a game action for the current tick.
type ActionMessage struct {
	Action PlayerAction
}

func (RegisterMessage) isClientMessage()             {}
func (UnregisterMessage) isClientMessage()           {}
func (GetServerStateMessage) isClientMessage()       {}
func (GetRegisteredPlayersMessage) isClientMessage() {}
func (ActionMessage) isClientMessage()               {}

// rawClientMessage is the superset of all inbound fields, discriminated
// by the "type" field.
type rawClientMessage struct {
	Type      string    `json:"type"`
	Direction Direction `json:"direction,omitempty"`
	Tag       string    `json:"tag,omitempty"`
}

// ParsePlayerMessage parses an inbound text frame from a player socket.
// Failures come back as ErrorResponse values ready to send to the
// client.
func ParsePlayerMessage(data []byte) (ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewError(ErrJSONPayloadError, "Invalid JSON Object", err.Error())
	}

	switch raw.Type {
	case "register":
		return RegisterMessage{}, nil
	case "unregister":
		return UnregisterMessage{}, nil
	case "getServerState":
		return GetServerStateMessage{}, nil
	case "getRegisteredPlayers":
		return GetRegisteredPlayersMessage{}, nil
	case "move", "attack", "dropWeapon":
		action := PlayerAction{
			Type:      ActionType(raw.Type),
			Direction: raw.Direction,
			Tag:       raw.Tag,
		}
		if raw.Type == "dropWeapon" {
			action.Direction = ""
		}
		if err := action.validate(); err != nil {
			return nil, NewError(ErrStructValidationError, "Invalid player action", err.Error())
		}
		return ActionMessage{Action: action}, nil
	default:
		return nil, NewError(ErrStructValidationError, "Invalid message type",
			fmt.Sprintf("unknown message type %q", raw.Type))
	}
}

// ParseViewerMessage parses an inbound text frame from a viewer socket.
// Viewers may only query; everything else is rejected.
func ParseViewerMessage(data []byte) (ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewError(ErrJSONPayloadError, "Invalid JSON Object", err.Error())
	}

	switch raw.Type {
	case "getServerState":
		return GetServerStateMessage{}, nil
	case "getRegisteredPlayers":
		return GetRegisteredPlayersMessage{}, nil
	default:
		return nil, NewError(ErrStructValidationError, "Invalid message type",
			fmt.Sprintf("unknown message type %q", raw.Type))
	}
}

//
// Outbound registration updates
//

// WaitingOnPlayers is broadcast on registration changes before the
// minimum player count is reached.
type WaitingOnPlayers struct {
	Type              string                      `json:"type"` // "waitingOnPlayers"
	Players           map[uuid.UUID]PlayerProfile `json:"players"`
	MinPlayersNeeded  int                         `json:"minPlayersNeeded"`
	MaxPlayersAllowed int                         `json:"maxPlayersAllowed"`
}

// GameStartingSoon is broadcast each second of the lobby countdown.
type GameStartingSoon struct {
	Type              string                      `json:"type"` // "gameStartingSoon"
	Players           map[uuid.UUID]PlayerProfile `json:"players"`
	MinPlayersNeeded  int                         `json:"minPlayersNeeded"`
	MaxPlayersAllowed int                         `json:"maxPlayersAllowed"`
	SecondsLeft       int                         `json:"secondsLeft"`
}

// GameStarting is broadcast once when the lobby closes and the player
// order is frozen.
type GameStarting struct {
	Type        string                      `json:"type"` // "gameStarting"
	Players     map[uuid.UUID]PlayerProfile `json:"players"`
	PlayerOrder []uuid.UUID                 `json:"playerOrder"`
}

//
// Outbound game updates
//

// InitUpdate carries the initial game state from the engine.
type InitUpdate struct {
	Type           string          `json:"type"` // "init"
	GameState      json.RawMessage `json:"gameState"`
	TicksLeft      int             `json:"ticksLeft"`
	SecondsPerTick int             `json:"secondsPerTick"`
}

// NextStateUpdate carries one tick's worth of game state.
type NextStateUpdate struct {
	Type           string          `json:"type"` // "nextState"
	GameState      json.RawMessage `json:"gameState"`
	ActionsTaken   ActionsTaken    `json:"actionsTaken"`
	TicksLeft      int             `json:"ticksLeft"`
	SecondsPerTick int             `json:"secondsPerTick"`
}

// PlayerKilledUpdate is broadcast every time the engine kills a player.
type PlayerKilledUpdate struct {
	Type string    `json:"type"` // "playerKilled"
	ID   uuid.UUID `json:"id"`
}

// GameEndedUpdate carries the final game state and the winners.
type GameEndedUpdate struct {
	Type         string          `json:"type"` // "gameEnded"
	Winners      []uuid.UUID     `json:"winners"`
	GameState    json.RawMessage `json:"gameState"`
	ActionsTaken ActionsTaken    `json:"actionsTaken"`
}

//
// Query responses
//

// ServerStateResponse answers a getServerState query.
type ServerStateResponse struct {
	Type  string      `json:"type"` // "serverState"
	State ServerState `json:"state"`
}

// RegisteredPlayersResponse answers a getRegisteredPlayers query. The
// player order is only present once a match has been set up.
type RegisteredPlayersResponse struct {
	Type        string                      `json:"type"` // "registeredPlayers"
	Players     map[uuid.UUID]PlayerProfile `json:"players"`
	PlayerOrder []uuid.UUID                 `json:"playerOrder,omitempty"`
}

func NewServerStateResponse(state ServerState) ServerStateResponse {
	return ServerStateResponse{Type: "serverState", State: state}
}

func NewRegisteredPlayersResponse(players map[uuid.UUID]PlayerProfile, order []uuid.UUID) RegisteredPlayersResponse {
	if players == nil {
		players = map[uuid.UUID]PlayerProfile{}
	}
	return RegisteredPlayersResponse{Type: "registeredPlayers", Players: players, PlayerOrder: order}
}
