// ABOUTME: Manages the lifecycle of the single persistent chat connection
// ABOUTME: Tracks state transitions, runs the read loop, and fans out lifecycle events

package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/chatdock/internal/wire"
)

// inboundBufferSize is the channel buffer between the read loop and the
// dispatcher. Frames are dropped with a log when the dispatcher falls behind.
const inboundBufferSize = 64

// ErrNotConnected is returned by Send when the connection is not in the
// Connected state. Callers with a best-effort contract swallow it.
var ErrNotConnected = errors.New("connection: not connected")

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config holds the fixed construction-time configuration for the connection.
// Construction never connects; Connect must be called explicitly.
type Config struct {
	// URL is the websocket endpoint of the chat server.
	URL string
	// Token is attached to the dial request for authentication. Optional.
	Token string
	// Name is announced in the userConnect frame after the socket opens.
	Name string
}

// Watcher observes lifecycle state transitions.
type Watcher func(State)

// Manager owns the single logical connection to the chat server. It is the
// only component that mutates connection state; everything else reads it.
type Manager struct {
	cfg       Config
	transport Transport
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	conn      Conn
	sessionID string
	cancel    context.CancelFunc
	watchers  map[string]Watcher
	// gen increments on every Connect attempt and Disconnect, so a dial that
	// completes after the caller already tore the connection down can tell
	// its result is stale.
	gen uint64

	inbound chan wire.Envelope
}

// NewManager creates a manager with the given transport. It does not connect.
// Pass nil logger for the default.
func NewManager(cfg Config, transport Transport, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		transport: transport,
		logger:    logger.With("component", "connection"),
		watchers:  make(map[string]Watcher),
		inbound:   make(chan wire.Envelope, inboundBufferSize),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the opaque id identifying the current connected session,
// or empty when disconnected.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Inbound returns the channel of decoded frames arriving on the connection.
// The channel is never closed; consumers select against their own context.
func (m *Manager) Inbound() <-chan wire.Envelope {
	return m.inbound
}

// Watch registers a lifecycle watcher and returns a function that removes it.
// Watchers are invoked outside the manager's lock, in no particular order.
func (m *Manager) Watch(w Watcher) (remove func()) {
	id := uuid.New().String()

	m.mu.Lock()
	m.watchers[id] = w
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// Connect transitions Disconnected -> Connecting -> Connected. It is a no-op
// when already connecting or connected. A dial failure returns the manager to
// Disconnected, notifies watchers, and is also returned to the caller.
// Mid-session failures are reported through watchers only.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.mu.Unlock()
	m.notify(StateConnecting)

	conn, err := m.transport.Dial(ctx, m.cfg.URL, m.cfg.Token)
	if err != nil {
		m.mu.Lock()
		stale := m.gen != gen
		if !stale {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		if !stale {
			m.notify(StateDisconnected)
		}
		return fmt.Errorf("dialing %s: %w", m.cfg.URL, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.gen != gen {
		// Disconnect ran while the dial was in flight; the caller already
		// tore this attempt down, so the fresh socket must not come up.
		m.mu.Unlock()
		cancel()
		if cerr := conn.Close(); cerr != nil {
			m.logger.Debug("close error", "error", cerr)
		}
		return nil
	}
	m.conn = conn
	m.sessionID = uuid.New().String()
	m.cancel = cancel
	m.state = StateConnected
	m.mu.Unlock()
	m.notify(StateConnected)

	m.logger.Info("connected", "url", m.cfg.URL, "session_id", m.SessionID())

	// Announce ourselves before anything else goes out.
	if err := m.Send(ctx, wire.KindUserConnect, wire.UserConnect{Name: m.cfg.Name}); err != nil {
		m.logger.Warn("userConnect emission failed", "error", err)
	}

	go m.readLoop(readCtx, conn)

	return nil
}

// Disconnect tears the connection down regardless of current state. It is
// idempotent; repeated calls are no-ops.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	cancel := m.cancel
	m.gen++
	m.conn = nil
	m.cancel = nil
	m.sessionID = ""
	m.state = StateDisconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Debug("close error", "error", err)
		}
	}

	m.notify(StateDisconnected)
	m.logger.Info("disconnected")
}

// Send encodes and writes one frame. Returns ErrNotConnected when the
// connection is not established; transport write errors are wrapped.
func (m *Manager) Send(ctx context.Context, kind wire.Kind, payload any) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	data, err := wire.Encode(kind, payload)
	if err != nil {
		return err
	}

	if err := conn.Write(ctx, data); err != nil {
		return fmt.Errorf("writing %s frame: %w", kind, err)
	}
	return nil
}

// readLoop pulls frames off the socket until it fails or is cancelled.
// A read failure outside an intentional Disconnect flips the state to
// Disconnected and notifies watchers; there is no automatic reconnect.
func (m *Manager) readLoop(ctx context.Context, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			m.mu.Lock()
			// Disconnect already ran if the conn was swapped out.
			intentional := m.conn != conn
			if !intentional {
				m.conn = nil
				m.sessionID = ""
				m.state = StateDisconnected
			}
			m.mu.Unlock()

			if !intentional {
				m.logger.Warn("connection lost", "error", err)
				m.notify(StateDisconnected)
			}
			return
		}

		env, err := wire.Decode(data)
		if err != nil {
			m.logger.Debug("discarding malformed frame", "error", err)
			continue
		}

		select {
		case m.inbound <- env:
		default:
			m.logger.Debug("inbound buffer full, dropping frame", "kind", env.Kind)
		}
	}
}

// notify invokes all watchers with the new state, outside the lock.
func (m *Manager) notify(s State) {
	m.mu.Lock()
	watchers := make([]Watcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	for _, w := range watchers {
		w(s)
	}
}
