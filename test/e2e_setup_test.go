// File: test/e2e_setup_test.go
package test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/game"
	"github.com/luarena/server/server"
	"github.com/luarena/server/utils"
)

const e2eSecret = "e2e-test-secret"

// e2eConfig describes one end-to-end scenario: the script to run and
// the match parameters. Zero values fall back to fast test defaults.
type e2eConfig struct {
	script           string
	minPlayers       int
	maxPlayers       int
	lobbyWaitSeconds int
	ticksPerGame     int
}

// e2eFixture is a fully wired server: interpreter, driver, coordinator
// and HTTP layer, exactly as main assembles them.
type e2eFixture struct {
	actors *actor.Engine
	fatal  chan error
	wsURL  string
}

func setupE2E(t *testing.T, cfg e2eConfig) *e2eFixture {
	t.Helper()

	if cfg.minPlayers == 0 {
		cfg.minPlayers = 2
	}
	if cfg.maxPlayers == 0 {
		cfg.maxPlayers = 8
	}
	if cfg.lobbyWaitSeconds == 0 {
		cfg.lobbyWaitSeconds = 1
	}
	if cfg.ticksPerGame == 0 {
		cfg.ticksPerGame = 3
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	luaFile := filepath.Join(t.TempDir(), "game.lua")
	require.NoError(t, os.WriteFile(luaFile, []byte(cfg.script), 0o644))

	engine, err := game.NewEngine(luaFile, log)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	actors := actor.NewEngine(log)
	t.Cleanup(func() { actors.Shutdown(time.Second) })

	buffer := game.NewActionBuffer()
	start := make(chan game.StartSignal, 1)
	fatal := make(chan error, 1)

	coordinator := actors.Spawn(game.NewCoordinatorProps(game.CoordinatorConfig{
		MinPlayersNeeded:  cfg.minPlayers,
		MaxPlayersAllowed: cfg.maxPlayers,
		LobbyWaitSeconds:  cfg.lobbyWaitSeconds,
		TicksPerGame:      cfg.ticksPerGame,
		SecondsPerTick:    1,
		LobbyTickInterval: 10 * time.Millisecond,
	}, start, fatal, log))
	require.NotNil(t, coordinator)

	driver := game.NewDriver(engine, buffer, actors, coordinator, start,
		cfg.ticksPerGame, 5*time.Millisecond, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go driver.Run(ctx)

	srv := server.New(utils.Config{JWTSecret: e2eSecret}, log, actors, coordinator, buffer)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &e2eFixture{
		actors: actors,
		fatal:  fatal,
		wsURL:  "ws" + strings.TrimPrefix(ts.URL, "http"),
	}
}
