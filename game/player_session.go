// File: game/player_session.go
package game

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/metrics"
	"github.com/luarena/server/protocol"
)

// PlayerSession is the actor behind one authenticated player socket.
// It parses inbound messages, forwards membership changes to the
// coordinator, enforces the per-tick action discipline and writes
// every outbound frame. The cached server state is kept in sync by the
// coordinator's broadcasts.
type PlayerSession struct {
	wsLink

	id          uuid.UUID
	profile     protocol.PlayerProfile
	coordinator *actor.PID
	buffer      *ActionBuffer

	state      protocol.ServerState
	actionSent bool
	killed     bool
	stopped    bool
}

// NewPlayerSessionProps builds the Props for one player connection.
func NewPlayerSessionProps(
	id uuid.UUID,
	profile protocol.PlayerProfile,
	conn *websocket.Conn,
	coordinator *actor.PID,
	buffer *ActionBuffer,
	log *slog.Logger,
) *actor.Props {
	return actor.NewProps(func() actor.Actor {
		return &PlayerSession{
			wsLink:      wsLink{conn: conn, log: log.With("player", id)},
			id:          id,
			profile:     profile,
			coordinator: coordinator,
			buffer:      buffer,
			state:       protocol.StateRegistration,
		}
	})
}

func (s *PlayerSession) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		go runReadPump(ctx.Engine(), ctx.Self(), s.conn)
		ctx.Engine().Send(s.coordinator, ConnectPlayer{ID: s.id, Handle: ctx.Self()}, ctx.Self())

	case actor.Stopping:

	case actor.Stopped:
		s.close()

	case ConnectPlayerResult:
		s.handleConnectResult(ctx, msg)

	case inboundFrame:
		s.handleFrame(ctx, msg)

	case socketClosed:
		s.log.Debug("websocket closed", "error", msg.err)
		s.shutdown(ctx)

	case RegisterResult:
		s.handleRegisterResult(msg)

	case UnregisterResult:
		if !msg.Success {
			s.sendError(protocol.NewError(protocol.ErrFailedToUnregister,
				"Failed to unregister player", fmt.Sprintf("Player ID: %s", s.id)))
		}

	case RegisteredPlayersSnapshot:
		s.writeJSON(protocol.NewRegisteredPlayersResponse(msg.Players, msg.Order))

	case RegistrationUpdate:
		s.write(msg.Data)

	case MatchCreated:
		s.state = protocol.StateInitializing
		s.write(msg.Data)

	case MatchInit:
		s.state = protocol.StateRunning
		s.actionSent = false
		s.killed = false
		s.write(msg.Data)

	case MatchState:
		s.actionSent = false
		s.write(msg.Data)

	case MatchPlayerKilled:
		if msg.ID == s.id {
			s.killed = true
		}
		s.write(msg.Data)

	case MatchEnded:
		s.state = protocol.StateRegistration
		s.write(msg.Data)

	case EngineFailure:
		s.state = protocol.StateFatalError
		s.write(msg.Data)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Game engine crashed"),
			closeDeadline())
		s.shutdown(ctx)

	default:
		s.log.Warn("player session received unexpected message", "message", msg)
	}
}

func (s *PlayerSession) handleConnectResult(ctx actor.Context, msg ConnectPlayerResult) {
	switch msg.Status {
	case ConnectOK:
		s.state = msg.State
		if s.state == protocol.StateFatalError {
			s.closeWith(protocol.NewError(protocol.ErrGameEngineCrash,
				"Game engine crashed", ""), websocket.CloseInternalServerErr)
			s.shutdown(ctx)
		}

	case ConnectAlreadyConnected:
		s.closeWith(protocol.NewError(protocol.ErrAlreadyConnected,
			"Player already connected on another websocket",
			fmt.Sprintf("Player ID: %s", s.id)), websocket.ClosePolicyViolation)
		s.shutdown(ctx)

	case ConnectNotRegistered:
		s.closeWith(protocol.NewError(protocol.ErrNotRegistered,
			"Player not registered to play in the game",
			fmt.Sprintf("Player ID: %s", s.id)), websocket.ClosePolicyViolation)
		s.shutdown(ctx)
	}
}

func (s *PlayerSession) handleFrame(ctx actor.Context, frame inboundFrame) {
	if frame.messageType != websocket.TextMessage {
		s.sendError(protocol.NewError(protocol.ErrWebsocketError,
			"Unsupported frame type", fmt.Sprintf("message type %d", frame.messageType)))
		return
	}

	msg, err := protocol.ParsePlayerMessage(frame.data)
	if err != nil {
		s.sendParseError(err)
		return
	}

	switch parsed := msg.(type) {
	case protocol.RegisterMessage:
		ctx.Engine().Send(s.coordinator, Register{ID: s.id, Profile: s.profile}, ctx.Self())
	case protocol.UnregisterMessage:
		ctx.Engine().Send(s.coordinator, Unregister{ID: s.id}, ctx.Self())
	case protocol.GetServerStateMessage:
		s.writeJSON(protocol.NewServerStateResponse(s.state))
	case protocol.GetRegisteredPlayersMessage:
		ctx.Engine().Send(s.coordinator, GetRegisteredPlayers{}, ctx.Self())
	case protocol.ActionMessage:
		s.doAction(parsed.Action)
	}
}

func (s *PlayerSession) handleRegisterResult(msg RegisterResult) {
	switch msg.Status {
	case RegisterSuccess:
	case RegisterGameAlreadyStarted:
		s.sendError(protocol.NewError(protocol.ErrFailedToRegister,
			"Failed to register player", "game already started"))
	case RegisterTooManyPlayers:
		s.sendError(protocol.NewError(protocol.ErrFailedToRegister,
			"Failed to register player",
			fmt.Sprintf("too many players registered (%d maximum allowed)", msg.MaxAllowed)))
	}
}

// doAction enforces the submission rules in order: a killed player may
// never act, actions only flow while the game runs, and only one
// action is accepted per tick.
func (s *PlayerSession) doAction(action protocol.PlayerAction) {
	if s.killed {
		s.cannotSendAction("player has been killed")
		return
	}
	if !s.state.CanSendAction() {
		s.cannotSendAction("game has not started yet")
		return
	}
	if s.actionSent {
		s.cannotSendAction("already sent player action")
		return
	}
	if err := s.buffer.Push(s.id, action); err != nil {
		s.cannotSendAction("channel error")
		return
	}
	s.actionSent = true
	metrics.ActionsSubmitted.Inc()
}

func (s *PlayerSession) cannotSendAction(why string) {
	s.sendError(protocol.NewError(protocol.ErrCannotSendAction, why,
		fmt.Sprintf("Player ID: %s", s.id)))
}

func (s *PlayerSession) sendParseError(err error) {
	if resp, ok := err.(protocol.ErrorResponse); ok {
		s.sendError(resp)
		return
	}
	s.sendError(protocol.NewError(protocol.ErrUnknownError, "Unknown error", err.Error()))
}

// shutdown notifies the coordinator and stops the actor. Safe to call
// more than once.
func (s *PlayerSession) shutdown(ctx actor.Context) {
	if s.stopped {
		return
	}
	s.stopped = true
	ctx.Engine().Send(s.coordinator, DisconnectPlayer{ID: s.id, Handle: ctx.Self()}, ctx.Self())
	ctx.Engine().Stop(ctx.Self())
}
