// File: protocol/messages_test.go
package protocol

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlayerMessageQueries(t *testing.T) {
	msg, err := ParsePlayerMessage([]byte(`{"type":"register"}`))
	require.NoError(t, err)
	assert.IsType(t, RegisterMessage{}, msg)

	msg, err = ParsePlayerMessage([]byte(`{"type":"unregister"}`))
	require.NoError(t, err)
	assert.IsType(t, UnregisterMessage{}, msg)

	msg, err = ParsePlayerMessage([]byte(`{"type":"getServerState"}`))
	require.NoError(t, err)
	assert.IsType(t, GetServerStateMessage{}, msg)

	msg, err = ParsePlayerMessage([]byte(`{"type":"getRegisteredPlayers"}`))
	require.NoError(t, err)
	assert.IsType(t, GetRegisteredPlayersMessage{}, msg)
}

func TestParsePlayerMessageActions(t *testing.T) {
	msg, err := ParsePlayerMessage([]byte(`{"type":"move","direction":"up","tag":"a1"}`))
	require.NoError(t, err)
	action := msg.(ActionMessage).Action
	assert.Equal(t, ActionMove, action.Type)
	assert.Equal(t, DirectionUp, action.Direction)
	assert.Equal(t, "a1", action.Tag)

	msg, err = ParsePlayerMessage([]byte(`{"type":"attack","direction":"left"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionAttack, msg.(ActionMessage).Action.Type)
}

func TestParsePlayerMessageDropWeaponIgnoresDirection(t *testing.T) {
	msg, err := ParsePlayerMessage([]byte(`{"type":"dropWeapon","direction":"up"}`))
	require.NoError(t, err)
	action := msg.(ActionMessage).Action
	assert.Equal(t, ActionDropWeapon, action.Type)
	assert.Empty(t, action.Direction)
}

func TestParsePlayerMessageErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  ErrorCode
	}{
		{"bad json", `{not json`, ErrJSONPayloadError},
		{"unknown type", `{"type":"fly"}`, ErrStructValidationError},
		{"move without direction", `{"type":"move"}`, ErrStructValidationError},
		{"move with bad direction", `{"type":"move","direction":"sideways"}`, ErrStructValidationError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePlayerMessage([]byte(tc.input))
			require.Error(t, err)
			resp, ok := err.(ErrorResponse)
			require.True(t, ok)
			assert.Equal(t, tc.code, resp.ErrorCode)
		})
	}
}

func TestParseViewerMessageOnlyQueries(t *testing.T) {
	msg, err := ParseViewerMessage([]byte(`{"type":"getServerState"}`))
	require.NoError(t, err)
	assert.IsType(t, GetServerStateMessage{}, msg)

	msg, err = ParseViewerMessage([]byte(`{"type":"getRegisteredPlayers"}`))
	require.NoError(t, err)
	assert.IsType(t, GetRegisteredPlayersMessage{}, msg)

	for _, input := range []string{
		`{"type":"register"}`,
		`{"type":"unregister"}`,
		`{"type":"move","direction":"up"}`,
	} {
		_, err := ParseViewerMessage([]byte(input))
		require.Error(t, err, input)
		resp, ok := err.(ErrorResponse)
		require.True(t, ok)
		assert.Equal(t, ErrStructValidationError, resp.ErrorCode)
	}
}

func TestServerStateJSON(t *testing.T) {
	data, err := json.Marshal(NewServerStateResponse(StateRunning))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"serverState","state":"running"}`, string(data))

	data, err = json.Marshal(StateFatalError)
	require.NoError(t, err)
	assert.Equal(t, `"fatalError"`, string(data))
}

func TestServerStateTransitionsGates(t *testing.T) {
	assert.True(t, StateRegistration.CanChangeRegistration())
	assert.False(t, StateInitializing.CanChangeRegistration())
	assert.False(t, StateRunning.CanChangeRegistration())
	assert.False(t, StateFatalError.CanChangeRegistration())

	assert.True(t, StateRunning.CanSendAction())
	assert.False(t, StateRegistration.CanSendAction())
	assert.False(t, StateInitializing.CanSendAction())
	assert.False(t, StateFatalError.CanSendAction())
}

func TestErrorResponseDeveloperNotes(t *testing.T) {
	IncludeDeveloperNotes(false)
	resp := NewError(ErrCannotSendAction, "player has been killed", "details")
	assert.Empty(t, resp.DeveloperNotes)

	IncludeDeveloperNotes(true)
	defer IncludeDeveloperNotes(false)
	resp = NewError(ErrCannotSendAction, "player has been killed", "details")
	assert.Equal(t, "details", resp.DeveloperNotes)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"errorCode":15`)
}

func TestRegisteredPlayersResponse(t *testing.T) {
	id := uuid.New()
	resp := NewRegisteredPlayersResponse(map[uuid.UUID]PlayerProfile{id: {Name: "alice"}}, nil)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alice"`)
	assert.NotContains(t, string(data), "playerOrder")

	resp = NewRegisteredPlayersResponse(nil, []uuid.UUID{id})
	data, err = json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), "playerOrder")
}
