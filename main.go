// File: main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/game"
	"github.com/luarena/server/protocol"
	"github.com/luarena/server/server"
	"github.com/luarena/server/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	utils.LoadEnvFiles()

	level := new(slog.LevelVar)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg := utils.LoadConfig(log)
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	cfg.Validate(log)

	if cfg.Debug {
		level.Set(slog.LevelDebug)
	}
	protocol.IncludeDeveloperNotes(cfg.Debug)

	engine, err := game.NewEngine(cfg.LuaFile, log)
	if err != nil {
		log.Error("failed to load the game engine", "file", cfg.LuaFile, "error", err)
		return 1
	}
	defer engine.Close()

	actors := actor.NewEngine(log)
	buffer := game.NewActionBuffer()
	startCh := make(chan game.StartSignal, 1)
	fatalCh := make(chan error, 1)

	coordinator := actors.Spawn(game.NewCoordinatorProps(game.CoordinatorConfig{
		MinPlayersNeeded:  cfg.MinPlayersNeeded,
		MaxPlayersAllowed: cfg.MaxPlayersAllowed,
		LobbyWaitSeconds:  cfg.LobbyWaitSeconds,
		TicksPerGame:      cfg.TicksPerGame,
		SecondsPerTick:    cfg.SecondsPerTick,
	}, startCh, fatalCh, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := game.NewDriver(engine, buffer, actors, coordinator, startCh,
		cfg.TicksPerGame, cfg.TickInterval(), log)
	go driver.Run(ctx)

	srv := server.New(cfg, log, actors, coordinator, buffer)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()
	log.Info("server listening", "addr", cfg.Addr(), "https", cfg.UseHTTPS, "luaFile", cfg.LuaFile)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-fatalCh:
		log.Error("game engine crashed, shutting down", "error", err)
		exitCode = 1
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			exitCode = 1
		}
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	}

	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", "error", err)
	}
	actors.Shutdown(5 * time.Second)

	return exitCode
}
