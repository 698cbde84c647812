// File: game/testutil_test.go
package game

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/luarena/server/actor"
)

const testWait = 2 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureActor records every non-system message it receives.
type captureActor struct {
	ch chan interface{}
}

func (a *captureActor) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case actor.Started, actor.Stopping, actor.Stopped:
	default:
		a.ch <- ctx.Message()
	}
}

func spawnCapture(t *testing.T, engine *actor.Engine) (*actor.PID, chan interface{}) {
	t.Helper()
	ch := make(chan interface{}, 128)
	pid := engine.Spawn(actor.NewProps(func() actor.Actor {
		return &captureActor{ch: ch}
	}))
	require.NotNil(t, pid)
	return pid, ch
}

// next waits for the next captured message and asserts its type.
func next[T any](t *testing.T, ch <-chan interface{}) T {
	t.Helper()
	select {
	case msg := <-ch:
		typed, ok := msg.(T)
		require.True(t, ok, "unexpected message %T: %v", msg, msg)
		return typed
	case <-time.After(testWait):
		t.Fatalf("timed out waiting for message")
		panic("unreachable")
	}
}

// expectNone asserts no message arrives within the window.
func expectNone(t *testing.T, ch <-chan interface{}, window time.Duration) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %T: %v", msg, msg)
	case <-time.After(window):
	}
}

// newConnPair returns both ends of a live websocket connection.
func newConnPair(t *testing.T) (client, server *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	serverCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-serverCh:
	case <-time.After(testWait):
		t.Fatal("timed out waiting for the server side of the connection")
	}
	return client, server
}

// readJSON reads the next text frame from the socket into v.
func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(testWait))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

// writeJSON writes a text frame to the socket.
func writeJSON(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}
