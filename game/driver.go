// File: game/driver.go
package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/metrics"
	"github.com/luarena/server/protocol"
)

// maxEngineTries bounds the retries per scripted call before the match
// is declared crashed.
const maxEngineTries = 5

// Driver runs the scripted engine on its own goroutine. It blocks on
// the start channel, then plays a match tick by tick, draining the
// action buffer and reporting engine output to the coordinator. The
// driver is the only goroutine that touches the interpreter.
type Driver struct {
	engine       *Engine
	buffer       *ActionBuffer
	actors       *actor.Engine
	coordinator  *actor.PID
	start        <-chan StartSignal
	ticksPerGame int
	tickInterval time.Duration
	log          *slog.Logger
}

func NewDriver(
	engine *Engine,
	buffer *ActionBuffer,
	actors *actor.Engine,
	coordinator *actor.PID,
	start <-chan StartSignal,
	ticksPerGame int,
	tickInterval time.Duration,
	log *slog.Logger,
) *Driver {
	return &Driver{
		engine:       engine,
		buffer:       buffer,
		actors:       actors,
		coordinator:  coordinator,
		start:        start,
		ticksPerGame: ticksPerGame,
		tickInterval: tickInterval,
		log:          log,
	}
}

// Run plays matches until the context is cancelled or the engine
// crashes. A crash is terminal: the coordinator is notified and the
// driver returns.
func (d *Driver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-d.start:
			if err := d.runMatch(ctx, sig); err != nil {
				d.log.Error("game engine crashed", "error", err)
				d.actors.Send(d.coordinator, EngineCrashed{Err: err}, nil)
				return
			}
		}
	}
}

func (d *Driver) runMatch(ctx context.Context, sig StartSignal) error {
	mctx := NewMatchContext(sig.PlayerOrder, d.ticksPerGame, func(id uuid.UUID) {
		d.actors.Send(d.coordinator, GamePlayerKilled{ID: id}, nil)
	})

	d.buffer.Open()
	defer d.buffer.Close()

	d.log.Info("starting new game", "players", len(sig.PlayerOrder), "ticks", d.ticksPerGame)
	metrics.MatchesStarted.Inc()

	state, err := d.callEngine("Init", func() (json.RawMessage, error) {
		return d.engine.Init(mctx)
	})
	if err != nil {
		return err
	}
	d.actors.Send(d.coordinator, GameInit{State: state}, nil)

	for {
		if !d.sleepTick(ctx) {
			return nil
		}
		ticksLeft := mctx.DecrementTick()

		actions := protocol.ActionsTaken{}
		for id, action := range d.buffer.Drain() {
			if mctx.IsRemaining(id) {
				actions[id.String()] = action
			}
		}

		state, err = d.callEngine("Update", func() (json.RawMessage, error) {
			return d.engine.Update(mctx, actions)
		})
		if err != nil {
			return err
		}

		if ticksLeft == 0 || mctx.RemainingCount() <= 1 {
			d.log.Info("game over", "winners", len(mctx.Remaining()))
			metrics.MatchesCompleted.Inc()
			d.actors.Send(d.coordinator, GameOver{
				Winners: mctx.Remaining(),
				State:   state,
				Actions: actions,
			}, nil)
			return nil
		}

		d.actors.Send(d.coordinator, GameNextState{
			State:     state,
			Actions:   actions,
			TicksLeft: ticksLeft,
		}, nil)
	}
}

// sleepTick waits one tick interval, returning false if the context is
// cancelled first.
func (d *Driver) sleepTick(ctx context.Context) bool {
	timer := time.NewTimer(d.tickInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// callEngine retries a scripted call up to the retry budget, timing
// each attempt.
func (d *Driver) callEngine(name string, fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	for try := 1; ; try++ {
		started := time.Now()
		state, err := fn()
		metrics.EngineCallDuration.Observe(time.Since(started).Seconds())
		if err == nil {
			return state, nil
		}

		metrics.EngineErrors.Inc()
		d.log.Error("game engine error",
			"method", name, "attempt", try, "maxTries", maxEngineTries, "error", err)
		if try >= maxEngineTries {
			return nil, err
		}
	}
}
