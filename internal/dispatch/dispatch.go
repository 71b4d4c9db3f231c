package dispatch

import (
	"log/slog"
	"sync"

	"github.com/feltworks/tablelink/internal/envelope"
)

// Handler processes a single decoded inbound frame.
type Handler func(env envelope.Envelope)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	frameType string
	id        int
}

// registration pairs a handler with its subscription ID.
type registration struct {
	id      int
	handler Handler
}

// Dispatcher routes decoded frames to handlers by frame type.
//
// Handlers for a frame run synchronously in registration order before the
// next frame is dispatched. A panicking handler is recovered and logged;
// it never prevents other handlers or later frames from running.
type Dispatcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string][]registration
	nextID   int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string][]registration),
	}
}

// On registers a handler for a frame type. The returned Subscription
// removes exactly this handler when passed to Off.
func (d *Dispatcher) On(frameType string, h Handler) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	d.handlers[frameType] = append(d.handlers[frameType], registration{
		id:      d.nextID,
		handler: h,
	})

	return Subscription{frameType: frameType, id: d.nextID}
}

// Off removes the handler identified by sub. Removing an already-removed
// subscription is a no-op.
func (d *Dispatcher) Off(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.handlers[sub.frameType]
	for i, reg := range regs {
		if reg.id == sub.id {
			d.handlers[sub.frameType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}

	if len(d.handlers[sub.frameType]) == 0 {
		delete(d.handlers, sub.frameType)
	}
}

// OffAll removes every handler registered for a frame type.
func (d *Dispatcher) OffAll(frameType string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, frameType)
}

// HandlerCount returns the number of handlers registered for a frame type.
func (d *Dispatcher) HandlerCount(frameType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[frameType])
}

// Dispatch delivers a frame to all handlers registered for its type,
// synchronously, in registration order.
func (d *Dispatcher) Dispatch(env envelope.Envelope) {
	d.mu.Lock()
	regs := d.handlers[env.Type]
	// Snapshot so handlers may register/unregister during dispatch.
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	d.mu.Unlock()

	for _, reg := range snapshot {
		d.call(reg.handler, env)
	}
}

// call invokes a single handler, isolating panics.
func (d *Dispatcher) call(h Handler, env envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("frame handler panicked",
				"type", env.Type,
				"trace_id", env.TraceID,
				"panic", r,
			)
		}
	}()

	h(env)
}
