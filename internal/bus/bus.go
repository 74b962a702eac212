// ABOUTME: Typed publish/subscribe multiplexer over the connection's inbound frames
// ABOUTME: Guarantees registration-order dispatch and leak-free handler removal

package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/2389/chatdock/internal/connection"
	"github.com/2389/chatdock/internal/wire"
)

// Bus multiplexes the connection's inbound frames to per-kind subscribers
// and carries fire-and-forget outbound emissions. Handlers for one kind run
// in registration order, in arrival order of frames; no cross-kind ordering
// is guaranteed. Each frame's handlers run to completion before the next
// frame is dispatched.
type Bus struct {
	conn   *connection.Manager
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[wire.Kind][]*subscription
}

type subscription struct {
	id string
	fn func(wire.Envelope)
	// removed guards against invocation after unsubscribe: frames already in
	// flight at the moment of removal must never reach the handler.
	removed atomic.Bool
}

// New creates a bus over the given connection. Pass nil logger for the default.
func New(conn *connection.Manager, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		conn:   conn,
		logger: logger.With("component", "bus"),
		subs:   make(map[wire.Kind][]*subscription),
	}
}

// Send emits one frame over the connection. It is fire-and-forget: there is
// no acknowledgment, no retry, and no delivery guarantee beyond transport
// ordering within one connected session. Emissions while disconnected are
// silently dropped.
func (b *Bus) Send(ctx context.Context, kind wire.Kind, payload any) {
	err := b.conn.Send(ctx, kind, payload)
	if err == nil {
		return
	}

	if errors.Is(err, connection.ErrNotConnected) {
		b.logger.Debug("dropped while disconnected", "kind", kind)
		return
	}
	b.logger.Warn("emission failed", "kind", kind, "error", err)
}

// Subscribe registers a handler for raw envelopes of one kind and returns a
// disposer that removes exactly that handler. The disposer is effective
// immediately, even for frames already queued for dispatch.
func (b *Bus) Subscribe(kind wire.Kind, handler func(wire.Envelope)) (unsubscribe func()) {
	sub := &subscription{id: uuid.New().String(), fn: handler}

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], sub)
	b.mu.Unlock()

	return func() {
		sub.removed.Store(true)

		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[kind]
		for i, s := range list {
			if s.id == sub.id {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(b.subs[kind]) == 0 {
			delete(b.subs, kind)
		}
	}
}

// On registers a typed handler for one kind. The payload is decoded per
// handler; frames whose payload does not decode are skipped for that
// handler. Returns the disposer from Subscribe.
func On[P any](b *Bus, kind wire.Kind, handler func(P)) (unsubscribe func()) {
	return b.Subscribe(kind, func(env wire.Envelope) {
		var p P
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			b.logger.Debug("discarding undecodable payload", "kind", kind, "error", err)
			return
		}
		handler(p)
	})
}

// Run consumes the connection's inbound frames and dispatches them until ctx
// is cancelled. It is the single thread of control for all handlers.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-b.conn.Inbound():
			b.Dispatch(env)
		}
	}
}

// Dispatch invokes the handlers registered for env's kind, in registration
// order, skipping any handler removed since the frame arrived.
func (b *Bus) Dispatch(env wire.Envelope) {
	b.mu.RLock()
	list := b.subs[env.Kind]
	targets := make([]*subscription, len(list))
	copy(targets, list)
	b.mu.RUnlock()

	for _, sub := range targets {
		if sub.removed.Load() {
			continue
		}
		sub.fn(env)
	}
}

// SubscriberCount reports how many handlers are registered for a kind.
func (b *Bus) SubscriberCount(kind wire.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
