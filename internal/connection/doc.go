// Package connection owns the lifecycle of the single persistent channel to
// the chat server.
//
// # Lifecycle
//
// A Manager moves through Disconnected -> Connecting -> Connected. Connect
// dials the transport and starts the read loop; Disconnect tears everything
// down and is idempotent from any state. Mid-session failures (the read loop
// erroring out) are never raised to callers; they flip the state back to
// Disconnected and are reported through registered Watchers. There is no
// automatic reconnect policy; recovery is an explicit Connect by the owner.
//
// # Sharing
//
// Exactly one Connection exists per process. Default lazily constructs the
// shared Manager on first use and ResetDefault tears it down at shutdown.
// The Manager is the only component that mutates connection state; room
// membership, the message bus, and the chat dock all read it through the
// Manager's accessors and Send.
//
// # Transports
//
// The production Transport dials a websocket. Tests use MockTransport, which
// scripts inbound frames and records outbound writes.
package connection
