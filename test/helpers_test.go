// File: test/helpers_test.go
package test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/luarena/server/auth"
)

const e2eWait = 5 * time.Second

func dialPlayer(t *testing.T, f *e2eFixture, id uuid.UUID, name string) *websocket.Conn {
	t.Helper()
	token, err := auth.Issue(e2eSecret, id, auth.AudiencePlayer, name, time.Minute)
	require.NoError(t, err)
	return dial(t, f.wsURL+"/api/v1/play", token)
}

func dialViewer(t *testing.T, f *e2eFixture, id uuid.UUID) *websocket.Conn {
	t.Helper()
	token, err := auth.Issue(e2eSecret, id, auth.AudienceViewer, "", time.Minute)
	require.NoError(t, err)
	return dial(t, f.wsURL+"/api/v1/view", token)
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

// readFrame reads the next frame and returns its type tag along with
// the raw bytes for a typed decode.
func readFrame(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(e2eWait)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var tag struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(data, &tag))
	return tag.Type, data
}

// awaitFrame reads frames until one of the wanted type arrives and
// decodes it into v. Interleaved broadcasts of other types are skipped.
func awaitFrame(t *testing.T, conn *websocket.Conn, want string, v interface{}) {
	t.Helper()
	deadline := time.Now().Add(e2eWait)
	for time.Now().Before(deadline) {
		frameType, data := readFrame(t, conn)
		if frameType != want {
			continue
		}
		require.NoError(t, json.Unmarshal(data, v))
		return
	}
	t.Fatalf("no %q frame arrived", want)
}
