// Package wire defines the event kinds and JSON payloads exchanged over the
// persistent chat connection, framed as {kind, payload} envelopes.
package wire
