package protocol

import (
	"encoding/json"
	"fmt"
)

// ActionType discriminates the player action variants.
type ActionType string

const (
	ActionMove       ActionType = "move"
	ActionAttack     ActionType = "attack"
	ActionDropWeapon ActionType = "dropWeapon"
)

// Direction is one of the four cardinal directions.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid reports whether the direction is one of the four cardinal values.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// PlayerAction is a single action a player takes during a tick. Move and
// attack carry a direction; dropWeapon does not. Every action may carry an
// optional client-supplied tag that is echoed back verbatim.
type PlayerAction struct {
	Type      ActionType `json:"type"`
	Direction Direction  `json:"direction,omitempty"`
	Tag       string     `json:"tag,omitempty"`
}

func (a PlayerAction) validate() error {
	switch a.Type {
	case ActionMove, ActionAttack:
		if !a.Direction.Valid() {
			return fmt.Errorf("invalid direction %q for action %q", a.Direction, a.Type)
		}
		return nil
	case ActionDropWeapon:
		return nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

// ActionsTaken maps player ids (as strings) to the action each took in a
// tick, as embedded in nextState and gameEnded frames.
type ActionsTaken map[string]PlayerAction

// MarshalActions serializes an actions map for handing to the game engine.
func MarshalActions(actions ActionsTaken) ([]byte, error) {
	if actions == nil {
		actions = ActionsTaken{}
	}
	return json.Marshal(actions)
}
