// ABOUTME: Wire-format event kinds and JSON envelope codec for the chat transport
// ABOUTME: Defines the closed set of typed payloads exchanged over the connection

package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies one event type on the wire. The set of kinds is closed;
// frames with an unknown kind are decoded but ignored by subscribers.
type Kind string

const (
	// Client-to-server kinds.
	KindUserConnect     Kind = "userConnect"
	KindJoinRoom        Kind = "joinRoom"
	KindLeaveRoom       Kind = "leaveRoom"
	KindSendMessage     Kind = "sendMessage"
	KindSendRoomMessage Kind = "sendRoomMessage"

	// Server-to-client kinds.
	KindReceiveMessage     Kind = "receiveMessage"
	KindReceiveRoomMessage Kind = "receiveRoomMessage"
)

// Envelope is the frame format for every event on the connection.
// The payload stays raw until a subscriber for the kind decodes it.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals a payload into a framed envelope ready for the transport.
func Encode(kind Kind, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", kind, err)
		}
		raw = data
	}

	data, err := json.Marshal(Envelope{Kind: kind, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", kind, err)
	}
	return data, nil
}

// Decode parses a raw frame into an envelope. The payload is left raw.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("decoding envelope: missing kind")
	}
	return env, nil
}

// UserConnect announces the client after the socket is established.
type UserConnect struct {
	Name string `json:"name,omitempty"`
}

// JoinRoom asks the server to add this client to a room's broadcast scope.
type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// LeaveRoom asks the server to remove this client from a room.
type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

// SendMessage is a direct message to a single recipient. The server does not
// echo a client-chosen id for these, so reconciliation of the echo against
// the local optimistic insert falls back to sender/time/body identity.
type SendMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// SendRoomMessage is a broadcast message to a room.
type SendRoomMessage struct {
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// InboundMessage is the server's shape for both receiveMessage and
// receiveRoomMessage frames. RoomID is empty for direct messages;
// ReceiverID is set only on direct messages and their echoes.
type InboundMessage struct {
	ID             string    `json:"id,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	RoomID         string    `json:"roomId,omitempty"`
	ReceiverID     string    `json:"receiverId,omitempty"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName,omitempty"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}
