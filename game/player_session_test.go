// File: game/player_session_test.go
package game

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/protocol"
)

type sessionFixture struct {
	actors  *actor.Engine
	id      uuid.UUID
	pid     *actor.PID
	coordCh chan interface{}
	buffer  *ActionBuffer
	client  *websocket.Conn
}

func startPlayerSession(t *testing.T) *sessionFixture {
	t.Helper()

	actors := actor.NewEngine(testLogger())
	t.Cleanup(func() { actors.Shutdown(time.Second) })

	coordinator, coordCh := spawnCapture(t, actors)
	client, server := newConnPair(t)
	buffer := NewActionBuffer()
	buffer.Open()

	id := uuid.New()
	pid := actors.Spawn(NewPlayerSessionProps(id, protocol.PlayerProfile{Name: "alice"},
		server, coordinator, buffer, testLogger()))
	require.NotNil(t, pid)

	connect := next[ConnectPlayer](t, coordCh)
	require.Equal(t, id, connect.ID)
	actors.Send(pid, ConnectPlayerResult{Status: ConnectOK, State: protocol.StateRegistration}, nil)

	return &sessionFixture{
		actors:  actors,
		id:      id,
		pid:     pid,
		coordCh: coordCh,
		buffer:  buffer,
		client:  client,
	}
}

func (f *sessionFixture) readError(t *testing.T) protocol.ErrorResponse {
	t.Helper()
	var resp protocol.ErrorResponse
	readJSON(t, f.client, &resp)
	return resp
}

func TestPlayerSessionForwardsRegistration(t *testing.T) {
	f := startPlayerSession(t)

	writeJSON(t, f.client, `{"type":"register"}`)
	register := next[Register](t, f.coordCh)
	assert.Equal(t, f.id, register.ID)
	assert.Equal(t, "alice", register.Profile.Name)

	writeJSON(t, f.client, `{"type":"unregister"}`)
	unregister := next[Unregister](t, f.coordCh)
	assert.Equal(t, f.id, unregister.ID)
}

func TestPlayerSessionRegisterRejectionFrames(t *testing.T) {
	f := startPlayerSession(t)

	f.actors.Send(f.pid, RegisterResult{Status: RegisterGameAlreadyStarted}, nil)
	resp := f.readError(t)
	assert.Equal(t, protocol.ErrFailedToRegister, resp.ErrorCode)

	f.actors.Send(f.pid, RegisterResult{Status: RegisterTooManyPlayers, MaxAllowed: 4}, nil)
	resp = f.readError(t)
	assert.Equal(t, protocol.ErrFailedToRegister, resp.ErrorCode)

	f.actors.Send(f.pid, UnregisterResult{Success: false}, nil)
	resp = f.readError(t)
	assert.Equal(t, protocol.ErrFailedToUnregister, resp.ErrorCode)
}

func TestPlayerSessionAnswersServerStateLocally(t *testing.T) {
	f := startPlayerSession(t)

	writeJSON(t, f.client, `{"type":"getServerState"}`)
	var resp protocol.ServerStateResponse
	readJSON(t, f.client, &resp)
	assert.Equal(t, protocol.StateRegistration, resp.State)

	// The broadcast stream keeps the cached state current.
	f.actors.Send(f.pid, MatchInit{Data: []byte(`{"type":"init"}`)}, nil)
	var skip json.RawMessage
	readJSON(t, f.client, &skip)

	writeJSON(t, f.client, `{"type":"getServerState"}`)
	readJSON(t, f.client, &resp)
	assert.Equal(t, protocol.StateRunning, resp.State)
}

func TestPlayerSessionActionDiscipline(t *testing.T) {
	f := startPlayerSession(t)

	// Before the game starts.
	writeJSON(t, f.client, `{"type":"move","direction":"up"}`)
	resp := f.readError(t)
	assert.Equal(t, protocol.ErrCannotSendAction, resp.ErrorCode)
	assert.Equal(t, "game has not started yet", resp.Description)

	f.actors.Send(f.pid, MatchInit{Data: []byte(`{"type":"init"}`)}, nil)
	var skip json.RawMessage
	readJSON(t, f.client, &skip)

	// First action of the tick is accepted silently.
	writeJSON(t, f.client, `{"type":"move","direction":"up"}`)

	// Second action in the same tick is rejected.
	writeJSON(t, f.client, `{"type":"attack","direction":"down"}`)
	resp = f.readError(t)
	assert.Equal(t, protocol.ErrCannotSendAction, resp.ErrorCode)
	assert.Equal(t, "already sent player action", resp.Description)

	actions := f.buffer.Drain()
	require.Len(t, actions, 1)
	assert.Equal(t, protocol.ActionMove, actions[f.id].Type)

	// A next-state broadcast opens the next tick.
	f.actors.Send(f.pid, MatchState{Data: []byte(`{"type":"nextState"}`)}, nil)
	readJSON(t, f.client, &skip)

	writeJSON(t, f.client, `{"type":"attack","direction":"down"}`)
	actionsNext := drainEventually(t, f.buffer)
	assert.Equal(t, protocol.ActionAttack, actionsNext[f.id].Type)
}

// drainEventually polls the buffer until the pushed action lands.
func drainEventually(t *testing.T, buffer *ActionBuffer) map[uuid.UUID]protocol.PlayerAction {
	t.Helper()
	deadline := time.Now().Add(testWait)
	for time.Now().Before(deadline) {
		if actions := buffer.Drain(); len(actions) > 0 {
			return actions
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no action reached the buffer")
	return nil
}

func TestPlayerSessionKilledPlayerCannotAct(t *testing.T) {
	f := startPlayerSession(t)

	f.actors.Send(f.pid, MatchInit{Data: []byte(`{"type":"init"}`)}, nil)
	var skip json.RawMessage
	readJSON(t, f.client, &skip)

	frame := fmt.Sprintf(`{"type":"playerKilled","id":%q}`, f.id)
	f.actors.Send(f.pid, MatchPlayerKilled{ID: f.id, Data: []byte(frame)}, nil)
	readJSON(t, f.client, &skip)

	writeJSON(t, f.client, `{"type":"move","direction":"left"}`)
	resp := f.readError(t)
	assert.Equal(t, protocol.ErrCannotSendAction, resp.ErrorCode)
	assert.Equal(t, "player has been killed", resp.Description)

	// Still killed after the game ends; the flag resets on the next init.
	f.actors.Send(f.pid, MatchEnded{Data: []byte(`{"type":"gameEnded"}`)}, nil)
	readJSON(t, f.client, &skip)
	writeJSON(t, f.client, `{"type":"move","direction":"left"}`)
	resp = f.readError(t)
	assert.Equal(t, "player has been killed", resp.Description)

	f.actors.Send(f.pid, MatchInit{Data: []byte(`{"type":"init"}`)}, nil)
	readJSON(t, f.client, &skip)
	writeJSON(t, f.client, `{"type":"move","direction":"left"}`)
	actions := drainEventually(t, f.buffer)
	assert.Equal(t, protocol.ActionMove, actions[f.id].Type)
}

func TestPlayerSessionRejectsInvalidPayloads(t *testing.T) {
	f := startPlayerSession(t)

	writeJSON(t, f.client, `{broken`)
	resp := f.readError(t)
	assert.Equal(t, protocol.ErrJSONPayloadError, resp.ErrorCode)

	writeJSON(t, f.client, `{"type":"teleport"}`)
	resp = f.readError(t)
	assert.Equal(t, protocol.ErrStructValidationError, resp.ErrorCode)

	// Binary frames are rejected but the session stays open.
	require.NoError(t, f.client.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	resp = f.readError(t)
	assert.Equal(t, protocol.ErrWebsocketError, resp.ErrorCode)

	writeJSON(t, f.client, `{"type":"register"}`)
	register := next[Register](t, f.coordCh)
	assert.Equal(t, f.id, register.ID)
}

func TestPlayerSessionForwardsBroadcastBytes(t *testing.T) {
	f := startPlayerSession(t)

	payload := []byte(`{"type":"waitingOnPlayers","players":{}}`)
	f.actors.Send(f.pid, RegistrationUpdate{Data: payload}, nil)

	f.client.SetReadDeadline(time.Now().Add(testWait))
	_, data, err := f.client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestPlayerSessionDisconnectNotifiesCoordinator(t *testing.T) {
	f := startPlayerSession(t)

	require.NoError(t, f.client.Close())

	disconnect := next[DisconnectPlayer](t, f.coordCh)
	assert.Equal(t, f.id, disconnect.ID)
}

func TestPlayerSessionEngineCrashClosesSocket(t *testing.T) {
	f := startPlayerSession(t)

	crash, err := json.Marshal(protocol.NewError(protocol.ErrGameEngineCrash, "Game engine crashed", ""))
	require.NoError(t, err)
	f.actors.Send(f.pid, EngineFailure{Data: crash}, nil)

	var resp protocol.ErrorResponse
	readJSON(t, f.client, &resp)
	assert.Equal(t, protocol.ErrGameEngineCrash, resp.ErrorCode)

	f.client.SetReadDeadline(time.Now().Add(testWait))
	_, _, err = f.client.ReadMessage()
	assert.Error(t, err, "the socket is closed after the crash frame")

	next[DisconnectPlayer](t, f.coordCh)
}

func TestPlayerSessionDuplicateConnectionIsClosed(t *testing.T) {
	f := startPlayerSession(t)

	f.actors.Send(f.pid, ConnectPlayerResult{Status: ConnectAlreadyConnected}, nil)

	var resp protocol.ErrorResponse
	readJSON(t, f.client, &resp)
	assert.Equal(t, protocol.ErrAlreadyConnected, resp.ErrorCode)

	f.client.SetReadDeadline(time.Now().Add(testWait))
	_, _, err := f.client.ReadMessage()
	assert.Error(t, err)
}
