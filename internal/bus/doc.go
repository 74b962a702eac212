// Package bus multiplexes the connection's inbound frames to typed
// subscribers and carries fire-and-forget outbound emissions.
//
// UI components subscribe and unsubscribe far more often than the connection
// reconnects, so the disposer returned by Subscribe must remove exactly one
// handler with no leakage across cycles, and a removed handler must never be
// invoked, even for frames that were already queued when it was removed.
package bus
