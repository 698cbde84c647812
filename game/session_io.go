// File: game/session_io.go
package game

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/protocol"
)

const writeWait = 10 * time.Second

// inboundFrame is a raw websocket frame delivered by the read pump.
type inboundFrame struct {
	messageType int
	data        []byte
}

// socketClosed is delivered by the read pump when the socket dies.
type socketClosed struct {
	err error
}

// runReadPump reads frames off the socket and feeds them into the
// session's mailbox. Control frames are handled by the websocket
// library itself.
func runReadPump(engine *actor.Engine, self *actor.PID, conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			engine.Send(self, socketClosed{err: err}, nil)
			return
		}
		engine.Send(self, inboundFrame{messageType: messageType, data: data}, nil)
	}
}

// wsLink owns the write side of a session's socket. Only the session
// actor goroutine calls these methods, so writes never interleave.
type wsLink struct {
	conn *websocket.Conn
	log  *slog.Logger
}

func (l *wsLink) write(data []byte) error {
	l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		l.log.Warn("websocket write failed", "error", err)
		return err
	}
	return nil
}

func (l *wsLink) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		l.log.Error("failed to serialize JSON data", "error", err)
		return nil
	}
	return l.write(data)
}

// sendError writes a non-fatal error frame; the session stays open.
func (l *wsLink) sendError(resp protocol.ErrorResponse) {
	l.log.Warn(resp.Description)
	l.writeJSON(resp)
}

// closeWith sends a final error frame plus a close frame.
func (l *wsLink) closeWith(resp protocol.ErrorResponse, closeCode int) {
	l.log.Error("closing websocket", "description", resp.Description, "closeCode", closeCode)
	l.writeJSON(resp)
	deadline := time.Now().Add(writeWait)
	l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, resp.Description), deadline)
}

func (l *wsLink) close() {
	l.conn.Close()
}

func closeDeadline() time.Time {
	return time.Now().Add(writeWait)
}
