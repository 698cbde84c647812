// File: test/stress_test.go
package test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/luarena/server/protocol"
)

func TestFullLobbyPlaysOut(t *testing.T) {
	const players = 8
	f := setupE2E(t, e2eConfig{
		script:       echoScript,
		minPlayers:   players,
		maxPlayers:   players,
		ticksPerGame: 2,
	})

	ids := make([]uuid.UUID, players)
	conns := make([]*websocket.Conn, players)
	for i := range ids {
		ids[i] = uuid.New()
		conns[i] = dialPlayer(t, f, ids[i], fmt.Sprintf("player-%d", i))
	}
	for _, conn := range conns {
		send(t, conn, `{"type":"register"}`)
	}

	// The countdown only starts once the lobby is full, so every client
	// sees the same frozen roster.
	for i, conn := range conns {
		var starting protocol.GameStarting
		awaitFrame(t, conn, "gameStarting", &starting)
		assert.Len(t, starting.Players, players, "client %d", i)
		assert.ElementsMatch(t, ids, starting.PlayerOrder, "client %d", i)
	}

	for i, conn := range conns {
		var ended protocol.GameEndedUpdate
		awaitFrame(t, conn, "gameEnded", &ended)
		assert.ElementsMatch(t, ids, ended.Winners, "client %d", i)
	}
}

func TestBackToBackMatches(t *testing.T) {
	f := setupE2E(t, e2eConfig{script: echoScript, ticksPerGame: 1})

	id1, id2 := uuid.New(), uuid.New()
	p1 := dialPlayer(t, f, id1, "alice")
	p2 := dialPlayer(t, f, id2, "bob")

	// Registration is wiped after each match, so the same connections
	// can sign up for the next one.
	for round := 0; round < 3; round++ {
		send(t, p1, `{"type":"register"}`)
		send(t, p2, `{"type":"register"}`)

		var ended protocol.GameEndedUpdate
		awaitFrame(t, p1, "gameEnded", &ended)
		assert.ElementsMatch(t, []uuid.UUID{id1, id2}, ended.Winners, "round %d", round)
		awaitFrame(t, p2, "gameEnded", &ended)
	}
}
