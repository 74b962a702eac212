// Package rooms signals room membership intents over the shared connection.
// The controller is a stateless best-effort pass-through: intents issued
// while disconnected are silently dropped, never queued.
package rooms
