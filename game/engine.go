// File: game/engine.go
package game

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"github.com/luarena/server/protocol"
)

// EngineError wraps any failure from the scripted engine: loading the
// file, calling into it, or converting values across the boundary.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("game engine error: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErr(op string, err error) *EngineError {
	return &EngineError{Op: op, Err: err}
}

// Engine hosts the Lua game script. The script must define two global
// functions:
//
//	Init(ctx, playerOrder) -> gameState
//	Update(ctx, actions)   -> gameState
//
// Game state is whatever JSON-encodable value the script returns; the
// server treats it as an opaque blob. The engine is not safe for
// concurrent use; only the driver goroutine may touch it.
type Engine struct {
	state *lua.LState
	log   *slog.Logger
}

// NewEngine loads and runs the Lua file, then validates that the
// required entry points exist. The script's parent directory is added
// to the Lua search path so it can require local modules.
func NewEngine(luaFile string, log *slog.Logger) (*Engine, error) {
	L := lua.NewState()
	luajson.Preload(L)
	registerContextType(L)

	if dir := filepath.Dir(luaFile); dir != "" {
		search := filepath.Join(dir, "?.lua")
		code := fmt.Sprintf("package.path = [[%s;]] .. package.path", search)
		if err := L.DoString(code); err != nil {
			log.Warn("failed to update the Lua path", "error", err)
		}
	}

	if err := L.DoFile(luaFile); err != nil {
		L.Close()
		return nil, engineErr("failed to run Lua file", err)
	}

	e := &Engine{state: L, log: log}
	for _, name := range []string{"Init", "Update"} {
		if _, err := e.global(name); err != nil {
			L.Close()
			return nil, err
		}
	}
	return e, nil
}

// Close releases the interpreter.
func (e *Engine) Close() {
	e.state.Close()
}

// Init calls the script's Init function with the frozen player order
// and returns the initial game state as JSON.
func (e *Engine) Init(mctx *MatchContext) (json.RawMessage, error) {
	order := e.state.NewTable()
	for _, id := range mctx.PlayerOrder() {
		order.Append(lua.LString(id.String()))
	}
	return e.call("Init", mctx, order)
}

// Update calls the script's Update function with this tick's actions
// and returns the next game state as JSON.
func (e *Engine) Update(mctx *MatchContext, actions protocol.ActionsTaken) (json.RawMessage, error) {
	data, err := protocol.MarshalActions(actions)
	if err != nil {
		return nil, engineErr("failed to convert actions to Lua", err)
	}
	arg, err := luajson.Decode(e.state, data)
	if err != nil {
		return nil, engineErr("failed to convert actions to Lua", err)
	}
	return e.call("Update", mctx, arg)
}

func (e *Engine) call(name string, mctx *MatchContext, arg lua.LValue) (json.RawMessage, error) {
	fn, err := e.global(name)
	if err != nil {
		return nil, err
	}

	err = e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, mctx.userdata(e.state), arg)
	if err != nil {
		return nil, engineErr(fmt.Sprintf("failed to run Lua method %q", name), err)
	}

	result := e.state.Get(-1)
	e.state.Pop(1)

	data, err := luajson.Encode(result)
	if err != nil {
		return nil, engineErr("failed to convert game state to JSON", err)
	}
	return data, nil
}

func (e *Engine) global(name string) (*lua.LFunction, error) {
	fn, ok := e.state.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, engineErr("missing required Lua method", fmt.Errorf("global %q is not a function", name))
	}
	return fn, nil
}
