// File: game/viewer_session.go
package game

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/protocol"
)

// ViewerSession is the actor behind one read-only viewer socket. It
// receives the full broadcast stream but accepts only queries.
type ViewerSession struct {
	wsLink

	id          uuid.UUID
	coordinator *actor.PID

	state   protocol.ServerState
	stopped bool
}

// NewViewerSessionProps builds the Props for one viewer connection.
func NewViewerSessionProps(id uuid.UUID, conn *websocket.Conn, coordinator *actor.PID, log *slog.Logger) *actor.Props {
	return actor.NewProps(func() actor.Actor {
		return &ViewerSession{
			wsLink:      wsLink{conn: conn, log: log.With("viewer", id)},
			id:          id,
			coordinator: coordinator,
			state:       protocol.StateRegistration,
		}
	})
}

func (s *ViewerSession) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		go runReadPump(ctx.Engine(), ctx.Self(), s.conn)
		ctx.Engine().Send(s.coordinator, ConnectViewer{ID: s.id, Handle: ctx.Self()}, ctx.Self())

	case actor.Stopping:

	case actor.Stopped:
		s.close()

	case ConnectViewerResult:
		s.state = msg.State
		if s.state == protocol.StateFatalError {
			s.closeWith(protocol.NewError(protocol.ErrGameEngineCrash,
				"Game engine crashed", ""), websocket.CloseInternalServerErr)
			s.shutdown(ctx)
		}

	case inboundFrame:
		s.handleFrame(ctx, msg)

	case socketClosed:
		s.log.Debug("websocket closed", "error", msg.err)
		s.shutdown(ctx)

	case RegisteredPlayersSnapshot:
		s.writeJSON(protocol.NewRegisteredPlayersResponse(msg.Players, msg.Order))

	case RegistrationUpdate:
		s.write(msg.Data)

	case MatchCreated:
		s.state = protocol.StateInitializing
		s.write(msg.Data)

	case MatchInit:
		s.state = protocol.StateRunning
		s.write(msg.Data)

	case MatchState:
		s.write(msg.Data)

	case MatchPlayerKilled:
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
		s.log.Warn("viewer session received unexpected message", "message", msg)
	}
}

func (s *ViewerSession) handleFrame(ctx actor.Context, frame inboundFrame) {
	if frame.messageType != websocket.TextMessage {
		s.sendError(protocol.NewError(protocol.ErrWebsocketError,
			"Unsupported frame type", fmt.Sprintf("message type %d", frame.messageType)))
		return
	}

	msg, err := protocol.ParseViewerMessage(frame.data)
	if err != nil {
		if resp, ok := err.(protocol.ErrorResponse); ok {
			s.sendError(resp)
		} else {
			s.sendError(protocol.NewError(protocol.ErrUnknownError, "Unknown error", err.Error()))
		}
		return
	}

	switch msg.(type) {
	case protocol.GetServerStateMessage:
		s.writeJSON(protocol.NewServerStateResponse(s.state))
	case protocol.GetRegisteredPlayersMessage:
		ctx.Engine().Send(s.coordinator, GetRegisteredPlayers{}, ctx.Self())
	}
}

func (s *ViewerSession) shutdown(ctx actor.Context) {
	if s.stopped {
		return
	}
	s.stopped = true
	ctx.Engine().Send(s.coordinator, DisconnectViewer{ID: s.id, Handle: ctx.Self()}, ctx.Self())
	ctx.Engine().Stop(ctx.Self())
}
