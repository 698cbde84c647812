// File: game/coordinator.go
package game

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luarena/server/actor"
	"github.com/luarena/server/metrics"
	"github.com/luarena/server/protocol"
)

// CoordinatorConfig carries the lobby and match parameters.
type CoordinatorConfig struct {
	MinPlayersNeeded  int
	MaxPlayersAllowed int
	LobbyWaitSeconds  int
	TicksPerGame      int
	SecondsPerTick    int

	// LobbyTickInterval overrides the 1 Hz lobby clock, for tests.
	LobbyTickInterval time.Duration
}

// lobbyTick drives the lobby countdown. Sent to the coordinator by its
// own ticker goroutine.
type lobbyTick struct{}

// Coordinator owns the authoritative server state: the registration
// set, the connection tables and the lobby countdown. It is the sole
// broadcast hub, so every session observes updates in a single
// well-defined order. All mutation happens on the actor goroutine.
type Coordinator struct {
	cfg   CoordinatorConfig
	start chan<- StartSignal
	fatal chan<- error
	log   *slog.Logger

	state       protocol.ServerState
	registered  map[uuid.UUID]protocol.PlayerProfile
	playerOrder []uuid.UUID
	players     map[uuid.UUID]*actor.PID
	viewers     map[string]*actor.PID
	secsLeft    int

	stopTicker chan struct{}
}

// NewCoordinatorProps builds the Props for spawning the coordinator.
func NewCoordinatorProps(cfg CoordinatorConfig, start chan<- StartSignal, fatal chan<- error, log *slog.Logger) *actor.Props {
	return actor.NewProps(func() actor.Actor {
		return NewCoordinator(cfg, start, fatal, log)
	})
}

func NewCoordinator(cfg CoordinatorConfig, start chan<- StartSignal, fatal chan<- error, log *slog.Logger) *Coordinator {
	if cfg.LobbyTickInterval <= 0 {
		cfg.LobbyTickInterval = time.Second
	}
	return &Coordinator{
		cfg:        cfg,
		start:      start,
		fatal:      fatal,
		log:        log,
		state:      protocol.StateRegistration,
		registered: make(map[uuid.UUID]protocol.PlayerProfile),
		players:    make(map[uuid.UUID]*actor.PID),
		viewers:    make(map[string]*actor.PID),
		secsLeft:   cfg.LobbyWaitSeconds,
	}
}

func (c *Coordinator) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		c.stopTicker = make(chan struct{})
		go runLobbyClock(ctx.Engine(), ctx.Self(), c.cfg.LobbyTickInterval, c.stopTicker)

	case actor.Stopping:
		if c.stopTicker != nil {
			close(c.stopTicker)
			c.stopTicker = nil
		}

	case actor.Stopped:

	case lobbyTick:
		c.handleLobbyTick(ctx)

	case ConnectPlayer:
		c.handleConnectPlayer(ctx, msg)
	case DisconnectPlayer:
		c.handleDisconnectPlayer(msg)
	case ConnectViewer:
		c.handleConnectViewer(ctx, msg)
	case DisconnectViewer:
		c.handleDisconnectViewer(msg)

	case Register:
		c.handleRegister(ctx, msg)
	case Unregister:
		c.handleUnregister(ctx, msg)

	case GetServerState:
		ctx.Engine().Send(ctx.Sender(), ServerStateSnapshot{State: c.state}, ctx.Self())
	case GetRegisteredPlayers:
		ctx.Engine().Send(ctx.Sender(), c.registeredSnapshot(), ctx.Self())

	case GameInit:
		c.handleGameInit(ctx, msg)
	case GameNextState:
		c.handleGameNextState(ctx, msg)
	case GamePlayerKilled:
		c.handleGamePlayerKilled(ctx, msg)
	case GameOver:
		c.handleGameOver(ctx, msg)
	case EngineCrashed:
		c.handleEngineCrashed(ctx, msg)

	default:
		c.log.Warn("coordinator received unexpected message", "message", msg)
	}
}

// runLobbyClock sends lobbyTick to the coordinator until stopped.
func runLobbyClock(engine *actor.Engine, self *actor.PID, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			engine.Send(self, lobbyTick{}, nil)
		}
	}
}

//
// Lobby
//

func (c *Coordinator) handleLobbyTick(ctx actor.Context) {
	if c.state != protocol.StateRegistration || len(c.registered) < c.cfg.MinPlayersNeeded {
		return
	}

	c.secsLeft--
	if c.secsLeft > 0 {
		c.broadcastRegistrationUpdate(ctx)
		return
	}
	c.startGame(ctx)
}

func (c *Coordinator) startGame(ctx actor.Context) {
	order := make([]uuid.UUID, 0, len(c.registered))
	for id := range c.registered {
		order = append(order, id)
	}
	c.playerOrder = order
	c.state = protocol.StateInitializing

	c.log.Info("lobby closed, starting game", "players", len(order))
	c.broadcast(ctx, protocol.GameStarting{
		Type:        "gameStarting",
		Players:     c.registeredCopy(),
		PlayerOrder: order,
	}, func(data []byte) interface{} { return MatchCreated{Data: data} })

	select {
	case c.start <- StartSignal{PlayerOrder: order}:
	default:
		c.log.Error("game driver is not accepting matches")
	}
}

func (c *Coordinator) broadcastRegistrationUpdate(ctx actor.Context) {
	var frame interface{}
	if len(c.registered) < c.cfg.MinPlayersNeeded {
		frame = protocol.WaitingOnPlayers{
			Type:              "waitingOnPlayers",
			Players:           c.registeredCopy(),
			MinPlayersNeeded:  c.cfg.MinPlayersNeeded,
			MaxPlayersAllowed: c.cfg.MaxPlayersAllowed,
		}
	} else {
		frame = protocol.GameStartingSoon{
			Type:              "gameStartingSoon",
			Players:           c.registeredCopy(),
			MinPlayersNeeded:  c.cfg.MinPlayersNeeded,
			MaxPlayersAllowed: c.cfg.MaxPlayersAllowed,
			SecondsLeft:       c.secsLeft,
		}
	}
	c.broadcast(ctx, frame, func(data []byte) interface{} { return RegistrationUpdate{Data: data} })
}

//
// Connection table
//

func (c *Coordinator) handleConnectPlayer(ctx actor.Context, msg ConnectPlayer) {
	if _, ok := c.players[msg.ID]; ok {
		ctx.Engine().Send(msg.Handle, ConnectPlayerResult{Status: ConnectAlreadyConnected}, ctx.Self())
		return
	}

	if !c.state.CanChangeRegistration() {
		if _, ok := c.registered[msg.ID]; !ok {
			ctx.Engine().Send(msg.Handle, ConnectPlayerResult{Status: ConnectNotRegistered}, ctx.Self())
			return
		}
	}

	c.players[msg.ID] = msg.Handle
	metrics.PlayersConnected.Set(float64(len(c.players)))
	c.log.Info("player connected", "id", msg.ID)
	ctx.Engine().Send(msg.Handle, ConnectPlayerResult{Status: ConnectOK, State: c.state}, ctx.Self())
}

func (c *Coordinator) handleDisconnectPlayer(msg DisconnectPlayer) {
	// Only remove if the stored handle matches, so a stale disconnect
	// cannot evict a fresh reconnect.
	if handle, ok := c.players[msg.ID]; ok && handle.ID == msg.Handle.ID {
		delete(c.players, msg.ID)
		metrics.PlayersConnected.Set(float64(len(c.players)))
		c.log.Info("player disconnected", "id", msg.ID)
	}
}

func (c *Coordinator) handleConnectViewer(ctx actor.Context, msg ConnectViewer) {
	c.viewers[msg.Handle.ID] = msg.Handle
	metrics.ViewersConnected.Set(float64(len(c.viewers)))
	c.log.Info("viewer connected", "id", msg.ID)
	ctx.Engine().Send(msg.Handle, ConnectViewerResult{Status: ConnectOK, State: c.state}, ctx.Self())
}

func (c *Coordinator) handleDisconnectViewer(msg DisconnectViewer) {
	if _, ok := c.viewers[msg.Handle.ID]; ok {
		delete(c.viewers, msg.Handle.ID)
		metrics.ViewersConnected.Set(float64(len(c.viewers)))
		c.log.Info("viewer disconnected", "id", msg.ID)
	}
}

//
// Registration
//

func (c *Coordinator) handleRegister(ctx actor.Context, msg Register) {
	if !c.state.CanChangeRegistration() {
		ctx.Engine().Send(ctx.Sender(), RegisterResult{Status: RegisterGameAlreadyStarted}, ctx.Self())
		return
	}

	if _, ok := c.registered[msg.ID]; ok {
		// Re-registering is a no-op: the profile is immutable for the
		// current lobby cycle.
		ctx.Engine().Send(ctx.Sender(), RegisterResult{Status: RegisterSuccess}, ctx.Self())
		return
	}

	if len(c.registered) >= c.cfg.MaxPlayersAllowed {
		ctx.Engine().Send(ctx.Sender(), RegisterResult{
			Status:     RegisterTooManyPlayers,
			MaxAllowed: c.cfg.MaxPlayersAllowed,
		}, ctx.Self())
		return
	}

	notEnoughBefore := len(c.registered) < c.cfg.MinPlayersNeeded
	c.registered[msg.ID] = msg.Profile
	metrics.PlayersRegistered.Set(float64(len(c.registered)))
	c.log.Info("player registered", "id", msg.ID, "name", msg.Profile.Name, "count", len(c.registered))

	// Reset the countdown when crossing the minimum from below.
	if notEnoughBefore && len(c.registered) >= c.cfg.MinPlayersNeeded {
		c.secsLeft = c.cfg.LobbyWaitSeconds
	}

	c.broadcastRegistrationUpdate(ctx)
	ctx.Engine().Send(ctx.Sender(), RegisterResult{Status: RegisterSuccess}, ctx.Self())
}

func (c *Coordinator) handleUnregister(ctx actor.Context, msg Unregister) {
	if !c.state.CanChangeRegistration() {
		ctx.Engine().Send(ctx.Sender(), UnregisterResult{Success: false}, ctx.Self())
		return
	}

	// Unregistering an absent player still succeeds.
	delete(c.registered, msg.ID)
	metrics.PlayersRegistered.Set(float64(len(c.registered)))
	c.log.Info("player unregistered", "id", msg.ID, "count", len(c.registered))

	c.broadcastRegistrationUpdate(ctx)
	ctx.Engine().Send(ctx.Sender(), UnregisterResult{Success: true}, ctx.Self())
}

func (c *Coordinator) registeredSnapshot() RegisteredPlayersSnapshot {
	var order []uuid.UUID
	if c.playerOrder != nil {
		order = append([]uuid.UUID(nil), c.playerOrder...)
	}
	return RegisteredPlayersSnapshot{Players: c.registeredCopy(), Order: order}
}

func (c *Coordinator) registeredCopy() map[uuid.UUID]protocol.PlayerProfile {
	players := make(map[uuid.UUID]protocol.PlayerProfile, len(c.registered))
	for id, profile := range c.registered {
		players[id] = profile
	}
	return players
}

//
// Engine updates
//

func (c *Coordinator) handleGameInit(ctx actor.Context, msg GameInit) {
	c.state = protocol.StateRunning
	c.broadcast(ctx, protocol.InitUpdate{
		Type:           "init",
		GameState:      msg.State,
		TicksLeft:      c.cfg.TicksPerGame,
		SecondsPerTick: c.cfg.SecondsPerTick,
	}, func(data []byte) interface{} { return MatchInit{Data: data} })
}

func (c *Coordinator) handleGameNextState(ctx actor.Context, msg GameNextState) {
	c.broadcast(ctx, protocol.NextStateUpdate{
		Type:           "nextState",
		GameState:      msg.State,
		ActionsTaken:   msg.Actions,
		TicksLeft:      msg.TicksLeft,
		SecondsPerTick: c.cfg.SecondsPerTick,
	}, func(data []byte) interface{} { return MatchState{Data: data} })
}

func (c *Coordinator) handleGamePlayerKilled(ctx actor.Context, msg GamePlayerKilled) {
	c.log.Info("player killed", "id", msg.ID)
	c.broadcast(ctx, protocol.PlayerKilledUpdate{
		Type: "playerKilled",
		ID:   msg.ID,
	}, func(data []byte) interface{} { return MatchPlayerKilled{ID: msg.ID, Data: data} })
}

func (c *Coordinator) handleGameOver(ctx actor.Context, msg GameOver) {
	c.registered = make(map[uuid.UUID]protocol.PlayerProfile)
	c.playerOrder = nil
	c.state = protocol.StateRegistration
	c.secsLeft = c.cfg.LobbyWaitSeconds
	metrics.PlayersRegistered.Set(0)

	c.broadcast(ctx, protocol.GameEndedUpdate{
		Type:         "gameEnded",
		Winners:      msg.Winners,
		GameState:    msg.State,
		ActionsTaken: msg.Actions,
	}, func(data []byte) interface{} { return MatchEnded{Data: data} })
}

func (c *Coordinator) handleEngineCrashed(ctx actor.Context, msg EngineCrashed) {
	c.state = protocol.StateFatalError
	c.playerOrder = nil

	notes := ""
	if msg.Err != nil {
		notes = msg.Err.Error()
	}
	c.broadcast(ctx, protocol.NewError(
		protocol.ErrGameEngineCrash,
		"Game engine crashed",
		notes,
	), func(data []byte) interface{} { return EngineFailure{Data: data} })

	if c.fatal != nil {
		select {
		case c.fatal <- msg.Err:
		default:
		}
	}
}

// broadcast serializes the frame once and fans the shared bytes out to
// every player and viewer session.
func (c *Coordinator) broadcast(ctx actor.Context, frame interface{}, wrap func([]byte) interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("failed to serialize broadcast frame", "error", err)
		return
	}

	msg := wrap(data)
	for _, handle := range c.players {
		ctx.Engine().Send(handle, msg, ctx.Self())
	}
	for _, handle := range c.viewers {
		ctx.Engine().Send(handle, msg, ctx.Self())
	}
}
