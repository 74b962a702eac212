// ABOUTME: Best-effort join/leave signalling for room broadcast scopes
// ABOUTME: Stateless pass-through over the connection; drops silently while disconnected

package rooms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/chatdock/internal/connection"
	"github.com/2389/chatdock/internal/wire"
)

// Controller sends room membership intents over the connection. It caches no
// membership state; the server's view is authoritative. Intents issued while
// the connection is not established are dropped, not queued; callers must
// not assume delivery before the connection completes.
type Controller struct {
	conn   *connection.Manager
	logger *slog.Logger
}

// NewController creates a controller. Pass nil logger for the default.
func NewController(conn *connection.Manager, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		conn:   conn,
		logger: logger.With("component", "rooms"),
	}
}

// Join signals intent to join a room. Redundant joins are idempotent from
// the caller's perspective; the server ignores repeats.
func (c *Controller) Join(ctx context.Context, roomID string) {
	if roomID == "" {
		return
	}
	c.emit(ctx, wire.KindJoinRoom, wire.JoinRoom{RoomID: roomID}, roomID)
}

// Leave signals intent to leave a room.
func (c *Controller) Leave(ctx context.Context, roomID string) {
	if roomID == "" {
		return
	}
	c.emit(ctx, wire.KindLeaveRoom, wire.LeaveRoom{RoomID: roomID}, roomID)
}

func (c *Controller) emit(ctx context.Context, kind wire.Kind, payload any, roomID string) {
	err := c.conn.Send(ctx, kind, payload)
	if err == nil {
		return
	}

	if errors.Is(err, connection.ErrNotConnected) {
		c.logger.Debug("dropped while disconnected", "kind", kind, "room_id", roomID)
		return
	}
	c.logger.Warn("emission failed", "kind", kind, "room_id", roomID, "error", err)
}
