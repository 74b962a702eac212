// ABOUTME: Guarded lazy accessor for the process-wide connection manager
// ABOUTME: Exactly one Connection exists per process; teardown happens at shutdown

package connection

import (
	"log/slog"
	"sync"
)

var (
	defaultMu      sync.Mutex
	defaultManager *Manager
)

// Default returns the process-wide connection manager, constructing it on
// first use with the given configuration. Construction never connects.
// Configuration passed on subsequent calls is ignored; the connection's
// configuration is fixed for its lifetime.
func Default(cfg Config, logger *slog.Logger) *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultManager == nil {
		defaultManager = NewManager(cfg, WebsocketTransport{}, logger)
	}
	return defaultManager
}

// ResetDefault disconnects and discards the process-wide manager. Intended
// for application shutdown; a later Default call constructs a fresh manager.
func ResetDefault() {
	defaultMu.Lock()
	m := defaultManager
	defaultManager = nil
	defaultMu.Unlock()

	if m != nil {
		m.Disconnect()
	}
}
