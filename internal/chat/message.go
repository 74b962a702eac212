// ABOUTME: Message model and identity rules for deduplication
// ABOUTME: Identity is the stable id when present, else sender/time/body within a window

package chat

import (
	"time"
)

// Origin marks where a message entered the client.
type Origin string

const (
	// OriginLocal marks an optimistic insert awaiting its server echo.
	OriginLocal Origin = "local"
	// OriginRemote marks an authoritative message from the server.
	OriginRemote Origin = "remote"
)

// identityWindow bounds the createdAt skew tolerated when matching a
// server-confirmed message against a local optimistic insert on a transport
// that does not echo the client-chosen id.
const identityWindow = 5 * time.Second

// Message is one chat message. Immutable once created; reconciliation
// replaces whole entries, never mutates them.
type Message struct {
	ID             string
	ConversationID string
	RoomID         string
	SenderID       string
	SenderName     string
	Body           string
	CreatedAt      time.Time
	Origin         Origin

	// seq is the arrival sequence within one Conversation, assigned on
	// insertion and preserved across reconciliation. It breaks createdAt ties.
	seq uint64
}

// SameIdentity reports whether two messages are the same logical message.
// A shared non-empty id is authoritative; otherwise identity falls back to
// equal sender and body with createdAt within the reconciliation window.
// The fallback pairs only an optimistic insert with its server echo. Two
// entries from the same side are always distinct: a user repeating the same
// body twice is two messages, and so are two unidentified remote frames.
func SameIdentity(a, b Message) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	if a.Origin == b.Origin {
		return false
	}
	if a.SenderID != b.SenderID || a.Body != b.Body {
		return false
	}
	delta := a.CreatedAt.Sub(b.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= identityWindow
}
