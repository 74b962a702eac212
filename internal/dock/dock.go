// ABOUTME: Chat dock state: open tabs, optimistic sends, and echo reconciliation
// ABOUTME: Routes live bus events and history pages into per-tab conversations

package dock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/2389/chatdock/internal/bus"
	"github.com/2389/chatdock/internal/chat"
	"github.com/2389/chatdock/internal/dedupe"
	"github.com/2389/chatdock/internal/history"
	"github.com/2389/chatdock/internal/identity"
	"github.com/2389/chatdock/internal/rooms"
	"github.com/2389/chatdock/internal/wire"
)

const (
	// seenTTL and seenSize bound the replay-suppression cache. A rejoin can
	// replay a few minutes of room traffic; anything older is handled by
	// merge-level identity anyway.
	seenTTL  = 5 * time.Minute
	seenSize = 1024
)

// OpenTabPayload describes a tab to open or update. ID is the caller-supplied
// tab key; for direct chats it is the peer's user id and may predate the
// conversation itself. Exactly one of RoomID or a direct peer applies: a tab
// with RoomID set sends to the room's broadcast scope.
type OpenTabPayload struct {
	ID             string
	Title          string
	AvatarURL      string
	ConversationID string
	RoomID         string
}

// TabInfo is a read-only snapshot of one open tab.
type TabInfo struct {
	ID             string
	Title          string
	AvatarURL      string
	ConversationID string
	RoomID         string
	Unread         int
	Messages       int
}

// tab binds one open view to its conversation state.
type tab struct {
	id             string
	title          string
	avatarURL      string
	conversationID string
	roomID         string
	unread         int
	conv           *chat.Conversation
}

// Manager maintains the set of currently open conversation tabs. All
// mutation is serialized by one mutex: live bus handlers and UI calls each
// run to completion before the next event is processed, so tab state never
// needs finer-grained locking.
type Manager struct {
	self   identity.Identity
	bus    *bus.Bus
	rooms  *rooms.Controller
	loader *history.Loader
	seen   *dedupe.Cache
	logger *slog.Logger

	mu     sync.Mutex
	tabs   []*tab
	active string

	unsubs []func()
}

// New creates a dock manager and subscribes it to live message events.
// Close must be called to release the subscriptions.
func New(self identity.Identity, b *bus.Bus, r *rooms.Controller, l *history.Loader, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		self:   self,
		bus:    b,
		rooms:  r,
		loader: l,
		seen:   dedupe.New(seenTTL, seenSize),
		logger: logger.With("component", "dock"),
	}

	m.unsubs = append(m.unsubs,
		bus.On(b, wire.KindReceiveMessage, m.handleDirect),
		bus.On(b, wire.KindReceiveRoomMessage, m.handleRoom),
	)
	return m
}

// Close removes the manager's bus subscriptions. Tab state is left intact
// for inspection but receives no further events.
func (m *Manager) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// OpenTab opens a tab or, when a tab with the same id exists, updates its
// display fields while preserving its message history. Opening a room tab
// signals a best-effort join for presence.
func (m *Manager) OpenTab(ctx context.Context, p OpenTabPayload) {
	if p.ID == "" {
		return
	}

	m.mu.Lock()
	existing, found := lo.Find(m.tabs, func(t *tab) bool { return t.id == p.ID })
	if found {
		if p.Title != "" {
			existing.title = p.Title
		}
		if p.AvatarURL != "" {
			existing.avatarURL = p.AvatarURL
		}
		if p.ConversationID != "" && existing.conversationID == "" {
			existing.conversationID = p.ConversationID
			existing.conv.ID = p.ConversationID
		}
		m.mu.Unlock()
		return
	}

	t := &tab{
		id:             p.ID,
		title:          p.Title,
		avatarURL:      p.AvatarURL,
		conversationID: p.ConversationID,
		roomID:         p.RoomID,
		conv:           chat.NewConversation(p.ConversationID),
	}
	m.tabs = append(m.tabs, t)
	if m.active == "" {
		m.active = t.id
	}
	roomID := t.roomID
	m.mu.Unlock()

	m.logger.Debug("tab opened", "tab_id", p.ID, "room_id", roomID)

	if roomID != "" {
		m.rooms.Join(ctx, roomID)
	}
}

// CloseTab removes a tab and discards its in-memory conversation. Closing a
// view sends nothing to the server.
func (m *Manager) CloseTab(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, i, found := lo.FindIndexOf(m.tabs, func(t *tab) bool { return t.id == id })
	if !found {
		return
	}
	m.tabs = append(m.tabs[:i:i], m.tabs[i+1:]...)
	if m.active == id {
		m.active = ""
		if len(m.tabs) > 0 {
			m.active = m.tabs[0].id
		}
	}
}

// ActivateTab marks a tab as the one in focus and clears its unread count.
func (m *Manager) ActivateTab(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, found := lo.Find(m.tabs, func(t *tab) bool { return t.id == id })
	if !found {
		return
	}
	m.active = id
	t.unread = 0
}

// SendMessage appends an optimistic local message to the tab's conversation
// and forwards the send through the bus for the tab's transport scope. The
// send is fire-and-forget; while disconnected it is dropped by the bus and
// only the optimistic entry remains.
func (m *Manager) SendMessage(ctx context.Context, tabID, body string) error {
	if body == "" {
		return nil
	}

	now := time.Now()

	m.mu.Lock()
	t, found := lo.Find(m.tabs, func(t *tab) bool { return t.id == tabID })
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("no open tab %q", tabID)
	}

	// The transport carries no client-chosen message id, so the optimistic
	// entry has none; the echo reconciles via sender/time/body identity.
	t.conv.Merge(chat.Message{
		ConversationID: t.conversationID,
		RoomID:         t.roomID,
		SenderID:       m.self.UserID,
		SenderName:     m.self.Name,
		Body:           body,
		CreatedAt:      now,
		Origin:         chat.OriginLocal,
	})
	roomID := t.roomID
	receiverID := t.id
	m.mu.Unlock()

	if roomID != "" {
		m.bus.Send(ctx, wire.KindSendRoomMessage, wire.SendRoomMessage{
			RoomID:     roomID,
			SenderID:   m.self.UserID,
			SenderName: m.self.Name,
			Message:    body,
			CreatedAt:  now,
		})
		return nil
	}

	m.bus.Send(ctx, wire.KindSendMessage, wire.SendMessage{
		SenderID:   m.self.UserID,
		ReceiverID: receiverID,
		Message:    body,
	})
	return nil
}

// LoadInitial fetches the most recent history page for a tab and merges it.
// A tab opened by peer id resolves its conversation through the summary
// endpoint first. A failed fetch changes nothing.
func (m *Manager) LoadInitial(ctx context.Context, tabID string) error {
	m.mu.Lock()
	t, found := lo.Find(m.tabs, func(t *tab) bool { return t.id == tabID })
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("no open tab %q", tabID)
	}
	convID := t.conversationID
	peerID := t.id
	m.mu.Unlock()

	if convID == "" {
		summary, err := m.loader.Summary(ctx, peerID, "", "")
		if err != nil {
			return fmt.Errorf("resolving conversation for tab %q: %w", tabID, err)
		}
		convID = summary.ID
	}

	page, err := m.loader.LoadInitial(ctx, convID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, found = lo.Find(m.tabs, func(t *tab) bool { return t.id == tabID })
	if !found {
		// Tab closed during the fetch; drop the page.
		return nil
	}
	if t.conversationID == "" {
		t.conversationID = convID
		t.conv.ID = convID
	}
	t.conv.Merge(page.Messages...)
	t.conv.Cursor = page.NextCursor
	t.conv.HasMore = page.HasMore
	return nil
}

// LoadOlder fetches the page preceding the tab's cursor and prepends it.
// Once the conversation reports no more pages this is a no-op. A failed
// fetch leaves cursor and hasMore untouched so a retry is safe.
func (m *Manager) LoadOlder(ctx context.Context, tabID string) error {
	m.mu.Lock()
	t, found := lo.Find(m.tabs, func(t *tab) bool { return t.id == tabID })
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("no open tab %q", tabID)
	}
	if !t.conv.HasMore {
		m.mu.Unlock()
		return nil
	}
	convID := t.conversationID
	cursor := t.conv.Cursor
	m.mu.Unlock()

	page, err := m.loader.LoadOlder(ctx, convID, cursor)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, found = lo.Find(m.tabs, func(t *tab) bool { return t.id == tabID })
	if !found {
		return nil
	}
	t.conv.Merge(page.Messages...)
	t.conv.Cursor = page.NextCursor
	t.conv.HasMore = page.HasMore
	return nil
}

// Hydrate opens a tab for each conversation in the user's list, newest
// first. Direct tabs are keyed by the peer's user id, so a hydrated tab and
// one already opened by peer id coalesce, and sends route to the peer rather
// than to a conversation id the server knows no user by. Existing tabs keep
// their state.
func (m *Manager) Hydrate(ctx context.Context) error {
	summaries, err := m.loader.Conversations(ctx, m.self.UserID)
	if err != nil {
		return err
	}

	for _, s := range summaries {
		id := s.ID
		if peer, found := lo.Find(s.Participants, func(p string) bool {
			return p != "" && p != m.self.UserID
		}); found {
			id = peer
		}
		m.OpenTab(ctx, OpenTabPayload{
			ID:             id,
			Title:          s.Title,
			ConversationID: s.ID,
		})
	}
	return nil
}

// Tabs returns snapshots of the open tabs in open order.
func (m *Manager) Tabs() []TabInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	return lo.Map(m.tabs, func(t *tab, _ int) TabInfo {
		return TabInfo{
			ID:             t.id,
			Title:          t.title,
			AvatarURL:      t.avatarURL,
			ConversationID: t.conversationID,
			RoomID:         t.roomID,
			Unread:         t.unread,
			Messages:       t.conv.Len(),
		}
	})
}

// Messages returns the ordered message sequence for a tab, or nil if the
// tab is not open.
func (m *Manager) Messages(tabID string) []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, found := lo.Find(m.tabs, func(t *tab) bool { return t.id == tabID })
	if !found {
		return nil
	}
	return t.conv.Messages()
}

// ActiveTab returns the id of the tab in focus, or empty when none is open.
func (m *Manager) ActiveTab() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// handleDirect merges a live direct message into the right tab, opening one
// when an unknown peer writes in.
func (m *Manager) handleDirect(p wire.InboundMessage) {
	if m.seen.Seen(frameKey(p)) {
		return
	}
	msg := inboundToMessage(p)

	m.mu.Lock()

	// Route by conversation when bound, else by peer: the sender for
	// incoming messages, the receiver for echoes of our own sends.
	peerID := p.SenderID
	if p.SenderID == m.self.UserID {
		peerID = p.ReceiverID
	}
	t, found := lo.Find(m.tabs, func(t *tab) bool {
		return p.ConversationID != "" && t.conversationID == p.ConversationID
	})
	if !found {
		t, found = lo.Find(m.tabs, func(t *tab) bool { return t.roomID == "" && t.id == peerID })
	}

	if !found {
		if p.SenderID == m.self.UserID {
			// Our own message echoed from another session with no open tab
			// to land in; nothing to reconcile here.
			m.mu.Unlock()
			m.logger.Debug("dropping unroutable own echo", "conversation_id", p.ConversationID)
			return
		}
		title := p.SenderName
		if title == "" {
			title = p.SenderID
		}
		t = &tab{
			id:             p.SenderID,
			title:          title,
			conversationID: p.ConversationID,
			conv:           chat.NewConversation(p.ConversationID),
		}
		m.tabs = append(m.tabs, t)
		if m.active == "" {
			m.active = t.id
		}
	}

	if t.conversationID == "" && p.ConversationID != "" {
		t.conversationID = p.ConversationID
		t.conv.ID = p.ConversationID
	}

	added := t.conv.Merge(msg)
	if added > 0 && t.id != m.active {
		t.unread++
	}
	m.mu.Unlock()
}

// handleRoom merges a live room message into its room tab. Messages for
// rooms without an open tab are dropped; the view was closed.
func (m *Manager) handleRoom(p wire.InboundMessage) {
	if m.seen.Seen(frameKey(p)) {
		return
	}
	msg := inboundToMessage(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	t, found := lo.Find(m.tabs, func(t *tab) bool { return t.roomID == p.RoomID })
	if !found {
		m.logger.Debug("dropping message for closed room", "room_id", p.RoomID)
		return
	}

	added := t.conv.Merge(msg)
	if added > 0 && t.id != m.active {
		t.unread++
	}
}

func inboundToMessage(p wire.InboundMessage) chat.Message {
	return chat.Message{
		ID:             p.ID,
		ConversationID: p.ConversationID,
		RoomID:         p.RoomID,
		SenderID:       p.SenderID,
		SenderName:     p.SenderName,
		Body:           p.Message,
		CreatedAt:      p.CreatedAt,
		Origin:         chat.OriginRemote,
	}
}

// frameKey derives the replay-suppression key for an inbound frame.
func frameKey(p wire.InboundMessage) string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("%s|%d|%s", p.SenderID, p.CreatedAt.UnixNano(), p.Message)
}
