// ABOUTME: Paginated conversation history retrieval over the REST endpoints
// ABOUTME: Pages are fetched by opaque cursor; a failed fetch changes nothing and retries are safe

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/2389/chatdock/internal/chat"
)

const defaultPageSize = 50

// Page is one fetched slice of a conversation's history, most recent pages
// first. An empty NextCursor with HasMore false is the terminal state.
type Page struct {
	Messages   []chat.Message
	NextCursor string
	HasMore    bool
}

// Summary describes one conversation in the current user's list.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Participants []string  `json:"participants"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Loader fetches conversation history and summaries from the message
// server's REST layer. It is stateless; cursors and merged sequences live
// with the caller.
type Loader struct {
	base     string
	token    string
	pageSize int
	httpc    *http.Client
	logger   *slog.Logger
}

// NewLoader creates a loader for the given API base URL. Pass zero pageSize
// for the default, nil client for http.DefaultClient, nil logger for the
// default logger.
func NewLoader(base, token string, pageSize int, httpc *http.Client, logger *slog.Logger) *Loader {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		base:     base,
		token:    token,
		pageSize: pageSize,
		httpc:    httpc,
		logger:   logger.With("component", "history"),
	}
}

// LoadInitial fetches the most recent page of a conversation.
func (l *Loader) LoadInitial(ctx context.Context, conversationID string) (Page, error) {
	if conversationID == "" {
		return Page{}, fmt.Errorf("conversation id required")
	}
	return l.fetchPage(ctx, conversationID, "")
}

// LoadOlder fetches the page immediately preceding cursor. An empty cursor
// is the terminal state: no request is issued and an empty page comes back,
// so a caller that ignores hasMore still cannot disturb existing history.
func (l *Loader) LoadOlder(ctx context.Context, conversationID, cursor string) (Page, error) {
	if conversationID == "" {
		return Page{}, fmt.Errorf("conversation id required")
	}
	if cursor == "" {
		return Page{}, nil
	}
	return l.fetchPage(ctx, conversationID, cursor)
}

// pageResponse is the wire shape of the message-page endpoint.
type pageResponse struct {
	Messages   []messageJSON `json:"messages"`
	NextCursor string        `json:"nextCursor"`
	HasMore    bool          `json:"hasMore"`
}

// messageJSON is the wire shape of one historical message.
type messageJSON struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName,omitempty"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (l *Loader) fetchPage(ctx context.Context, conversationID, cursor string) (Page, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(l.pageSize))
	if cursor != "" {
		q.Set("cursorAt", cursor)
	}
	endpoint := fmt.Sprintf("%s/conversations/%s/messages?%s", l.base, url.PathEscape(conversationID), q.Encode())

	var resp pageResponse
	if err := l.get(ctx, endpoint, &resp); err != nil {
		return Page{}, fmt.Errorf("fetching message page: %w", err)
	}

	page := Page{
		NextCursor: resp.NextCursor,
		HasMore:    resp.HasMore,
		Messages:   make([]chat.Message, 0, len(resp.Messages)),
	}
	for _, m := range resp.Messages {
		page.Messages = append(page.Messages, chat.Message{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderName,
			Body:           m.Body,
			CreatedAt:      m.CreatedAt,
			Origin:         chat.OriginRemote,
		})
	}

	l.logger.Debug("page fetched",
		"conversation_id", conversationID,
		"messages", len(page.Messages),
		"has_more", page.HasMore)

	return page, nil
}

// Conversations fetches the ordered conversation list for a user.
func (l *Loader) Conversations(ctx context.Context, userID string) ([]Summary, error) {
	q := url.Values{}
	q.Set("userId", userID)

	var out []Summary
	if err := l.get(ctx, l.base+"/conversations?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("fetching conversation list: %w", err)
	}
	return out, nil
}

// Summary fetches one conversation descriptor. conversationID and cursorAt
// are optional; the server resolves the conversation from whichever
// identifiers are present.
func (l *Loader) Summary(ctx context.Context, userID, conversationID, cursorAt string) (*Summary, error) {
	q := url.Values{}
	q.Set("userId", userID)
	if conversationID != "" {
		q.Set("conversationId", conversationID)
	}
	if cursorAt != "" {
		q.Set("cursorAt", cursorAt)
	}

	var out Summary
	if err := l.get(ctx, l.base+"/conversation?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("fetching conversation summary: %w", err)
	}
	return &out, nil
}

func (l *Loader) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
