// File: game/engine_context.go
package game

import (
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

const luaContextType = "luarena.context"

// MatchContext is the handle passed into every scripted call. It holds
// the live match state: the frozen player order, the shrinking set of
// remaining players and the tick countdown. The mutex guards the
// remaining set, which the script may mutate through notifyPlayerKilled
// while the driver reads it to filter actions.
type MatchContext struct {
	mu           sync.Mutex
	order        []uuid.UUID
	remaining    map[uuid.UUID]struct{}
	ticksLeft    int
	ticksPerGame int
	onKill       func(uuid.UUID)
}

// NewMatchContext builds the context for one match. onKill fires once
// per player actually removed from the remaining set.
func NewMatchContext(order []uuid.UUID, ticksPerGame int, onKill func(uuid.UUID)) *MatchContext {
	remaining := make(map[uuid.UUID]struct{}, len(order))
	for _, id := range order {
		remaining[id] = struct{}{}
	}
	return &MatchContext{
		order:        order,
		remaining:    remaining,
		ticksLeft:    ticksPerGame,
		ticksPerGame: ticksPerGame,
		onKill:       onKill,
	}
}

// PlayerOrder returns the frozen order.
func (c *MatchContext) PlayerOrder() []uuid.UUID {
	return c.order
}

// IsRemaining reports whether the player is still alive.
func (c *MatchContext) IsRemaining(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.remaining[id]
	return ok
}

// Remaining returns the surviving players in player order.
func (c *MatchContext) Remaining() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	alive := make([]uuid.UUID, 0, len(c.remaining))
	for _, id := range c.order {
		if _, ok := c.remaining[id]; ok {
			alive = append(alive, id)
		}
	}
	return alive
}

// RemainingCount returns the number of surviving players.
func (c *MatchContext) RemainingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.remaining)
}

// TicksLeft returns the current countdown value.
func (c *MatchContext) TicksLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticksLeft
}

// DecrementTick consumes one tick and returns the new countdown value.
func (c *MatchContext) DecrementTick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticksLeft > 0 {
		c.ticksLeft--
	}
	return c.ticksLeft
}

// notifyKilled removes the player from the remaining set. The kill
// callback runs outside the lock and only when the id was present.
func (c *MatchContext) notifyKilled(id uuid.UUID) {
	c.mu.Lock()
	_, present := c.remaining[id]
	delete(c.remaining, id)
	c.mu.Unlock()

	if present && c.onKill != nil {
		c.onKill(id)
	}
}

// userdata wraps the context for a scripted call.
func (c *MatchContext) userdata(L *lua.LState) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = c
	L.SetMetatable(ud, L.GetTypeMetatable(luaContextType))
	return ud
}

func registerContextType(L *lua.LState) {
	mt := L.NewTypeMetatable(luaContextType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), contextMethods))
}

var contextMethods = map[string]lua.LGFunction{
	"notifyPlayerKilled":  ctxNotifyPlayerKilled,
	"getPlayerOrder":      ctxGetPlayerOrder,
	"getPlayersRemaining": ctxGetPlayersRemaining,
	"getTicksLeft":        ctxGetTicksLeft,
}

func checkContext(L *lua.LState) *MatchContext {
	ud := L.CheckUserData(1)
	if mctx, ok := ud.Value.(*MatchContext); ok {
		return mctx
	}
	L.ArgError(1, "match context expected")
	return nil
}

func ctxNotifyPlayerKilled(L *lua.LState) int {
	mctx := checkContext(L)
	raw := L.CheckString(2)
	id, err := uuid.Parse(raw)
	if err != nil {
		L.RaiseError("invalid UUID: %s", raw)
		return 0
	}
	mctx.notifyKilled(id)
	return 0
}

func ctxGetPlayerOrder(L *lua.LState) int {
	mctx := checkContext(L)
	order := L.NewTable()
	for _, id := range mctx.PlayerOrder() {
		order.Append(lua.LString(id.String()))
	}
	L.Push(order)
	return 1
}

func ctxGetPlayersRemaining(L *lua.LState) int {
	mctx := checkContext(L)
	remaining := L.NewTable()
	for _, id := range mctx.Remaining() {
		remaining.RawSetString(id.String(), lua.LTrue)
	}
	L.Push(remaining)
	return 1
}

func ctxGetTicksLeft(L *lua.LState) int {
	mctx := checkContext(L)
	mctx.mu.Lock()
	ticksLeft, ticksPerGame := mctx.ticksLeft, mctx.ticksPerGame
	mctx.mu.Unlock()
	L.Push(lua.LNumber(ticksLeft))
	L.Push(lua.LNumber(ticksPerGame))
	return 2
}
