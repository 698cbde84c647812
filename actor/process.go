package actor

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

const defaultMailboxSize = 1024

// process represents the running instance of an actor: its state,
// mailbox, and goroutine.
type process struct {
	engine   *Engine
	pid      *PID
	actor    Actor
	mailbox  chan *messageEnvelope
	props    *Props
	stopCh   chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine:  engine,
		pid:     pid,
		props:   props,
		mailbox: make(chan *messageEnvelope, defaultMailboxSize),
		stopCh:  make(chan struct{}),
	}
}

// closeStop signals the run loop to exit. Safe to call from any
// goroutine, any number of times.
func (p *process) closeStop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// sendMessage delivers to the actor's mailbox without blocking.
func (p *process) sendMessage(message interface{}, sender *PID) {
	_, isStopping := message.(Stopping)
	_, isStopped := message.(Stopped)
	if p.stopped.Load() && !isStopping && !isStopped {
		return
	}

	envelope := &messageEnvelope{Sender: sender, Message: message}

	select {
	case p.mailbox <- envelope:
	default:
		p.engine.log.Warn("actor mailbox full, dropping message",
			"actor", p.pid.ID, "type", typeName(message))
	}
}

// run is the main loop for the actor process.
func (p *process) run() {
	defer func() {
		p.stopped.Store(true)
		if p.actor != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						p.engine.log.Error("actor panicked during Stopped processing",
							"actor", p.pid.ID, "panic", r)
					}
				}()
				p.invokeReceive(Stopped{}, nil)
			}()
		}
		// Remove from engine only after Stopped is processed.
		p.engine.remove(p.pid)
	}()

	defer func() {
		if r := recover(); r != nil {
			p.engine.log.Error("actor panicked",
				"actor", p.pid.ID, "panic", r, "stack", string(debug.Stack()))
			p.stopped.Store(true)
			p.closeStop()
		}
	}()

	p.actor = p.props.Produce()
	if p.actor == nil {
		panic("actor: producer returned nil actor for " + p.pid.ID)
	}

	for {
		select {
		case <-p.stopCh:
			if p.stopped.CompareAndSwap(false, true) {
				// Stop came via stopCh directly; give the actor its
				// Stopping callback before exiting.
				p.invokeReceive(Stopping{}, nil)
			}
			return

		case envelope := <-p.mailbox:
			_, isStopping := envelope.Message.(Stopping)
			_, isStoppedMsg := envelope.Message.(Stopped)
			if p.stopped.Load() && !isStopping && !isStoppedMsg {
				continue
			}

			switch msg := envelope.Message.(type) {
			case Started:
				p.invokeReceive(msg, envelope.Sender)
			case Stopping:
				if p.stopped.CompareAndSwap(false, true) {
					p.invokeReceive(msg, envelope.Sender)
					p.closeStop()
				}
			default:
				p.invokeReceive(envelope.Message, envelope.Sender)
			}
		}
	}
}

// invokeReceive calls the actor's Receive method within a protected context.
func (p *process) invokeReceive(msg interface{}, sender *PID) {
	ctx := &context{
		engine:  p.engine,
		self:    p.pid,
		sender:  sender,
		message: msg,
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				p.engine.log.Error("actor panicked during Receive",
					"actor", p.pid.ID, "message", typeName(msg),
					"panic", r, "stack", string(debug.Stack()))
			}
		}()
		p.actor.Receive(ctx)
	}()
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}
