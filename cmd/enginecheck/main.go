// File: cmd/enginecheck/main.go
// enginecheck exercises a Lua game file without the server: it fakes a
// full match with random player actions to surface runtime bugs in the
// script before deploying it.
package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"

	"github.com/google/uuid"

	"github.com/luarena/server/game"
	"github.com/luarena/server/protocol"
	"github.com/luarena/server/utils"
)

const maxTries = 5

func main() {
	utils.LoadEnvFiles()

	luaFile := flag.String("lua-file", envOr("LUA_FILE", utils.DefaultLuaFile),
		"Lua file containing the game engine code")
	ticksPerGame := flag.Int("ticks-per-game", utils.DefaultTicksPerGame,
		"number of ticks in a complete game")
	numPlayers := flag.Int("num-players", 4, "number of players in the game")
	debug := flag.Bool("debug", false, "show the game state after every tick")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := runGame(log, *luaFile, *ticksPerGame, *numPlayers); err != nil {
		log.Error("fatal error", "error", err)
		os.Exit(1)
	}
	log.Info("game ended without any problems")
}

func runGame(log *slog.Logger, luaFile string, ticksPerGame, numPlayers int) error {
	engine, err := game.NewEngine(luaFile, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	log.Info("generating random list of players", "count", numPlayers)
	order := make([]uuid.UUID, numPlayers)
	for i := range order {
		order[i] = uuid.New()
	}

	mctx := game.NewMatchContext(order, ticksPerGame, func(id uuid.UUID) {
		log.Info("player killed", "id", id)
	})

	log.Info("initializing game engine")
	state, err := trapErrors(log, func() ([]byte, error) { return engine.Init(mctx) })
	if err != nil {
		return err
	}
	log.Debug("initial state", "gameState", string(state))

	for mctx.TicksLeft() > 0 && mctx.RemainingCount() > 1 {
		ticksLeft := mctx.DecrementTick()
		log.Info("game engine running", "ticksLeft", ticksLeft)

		actions := protocol.ActionsTaken{}
		for _, id := range order {
			if mctx.IsRemaining(id) {
				actions[id.String()] = randomAction()
			}
		}

		state, err = trapErrors(log, func() ([]byte, error) { return engine.Update(mctx, actions) })
		if err != nil {
			return err
		}
		log.Debug("next state", "gameState", string(state))
	}

	log.Info("winners", "players", mctx.Remaining())
	return nil
}

func randomAction() protocol.PlayerAction {
	directions := []protocol.Direction{
		protocol.DirectionUp,
		protocol.DirectionDown,
		protocol.DirectionLeft,
		protocol.DirectionRight,
	}
	direction := directions[rand.Intn(len(directions))]

	// Move and attack are picked more often than dropping the weapon.
	switch rand.Intn(12) {
	case 0, 1:
		return protocol.PlayerAction{Type: protocol.ActionDropWeapon}
	case 2, 3, 4, 5, 6:
		return protocol.PlayerAction{Type: protocol.ActionAttack, Direction: direction}
	default:
		return protocol.PlayerAction{Type: protocol.ActionMove, Direction: direction}
	}
}

func trapErrors(log *slog.Logger, fn func() ([]byte, error)) ([]byte, error) {
	for try := 1; ; try++ {
		state, err := fn()
		if err == nil {
			return state, nil
		}
		log.Error("game engine error", "attempt", try, "maxTries", maxTries, "error", err)
		if try >= maxTries {
			return nil, err
		}
	}
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}
