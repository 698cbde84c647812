// File: game/action_buffer.go
package game

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/luarena/server/protocol"
)

// ErrActionsClosed is returned by Push when no match is collecting
// actions.
var ErrActionsClosed = errors.New("action buffer is closed")

// ActionBuffer collects player actions between ticks. Sessions push
// concurrently; the driver drains once per tick. The first action per
// player wins within a tick.
type ActionBuffer struct {
	mu      sync.Mutex
	open    bool
	actions map[uuid.UUID]protocol.PlayerAction
}

func NewActionBuffer() *ActionBuffer {
	return &ActionBuffer{actions: make(map[uuid.UUID]protocol.PlayerAction)}
}

// Open clears the buffer and starts accepting actions.
func (b *ActionBuffer) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = true
	b.actions = make(map[uuid.UUID]protocol.PlayerAction)
}

// Close stops accepting actions and discards anything pending.
func (b *ActionBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.actions = make(map[uuid.UUID]protocol.PlayerAction)
}

// Push records an action for the current tick. Repeated pushes by the
// same player are dropped silently, keeping the first.
func (b *ActionBuffer) Push(id uuid.UUID, action protocol.PlayerAction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return ErrActionsClosed
	}
	if _, ok := b.actions[id]; !ok {
		b.actions[id] = action
	}
	return nil
}

// Drain returns everything pushed since the last drain and resets the
// buffer for the next tick.
func (b *ActionBuffer) Drain() map[uuid.UUID]protocol.PlayerAction {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.actions
	b.actions = make(map[uuid.UUID]protocol.PlayerAction)
	return drained
}
