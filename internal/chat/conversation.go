// ABOUTME: Conversation state: one ordered, deduplicated message sequence per tab
// ABOUTME: Every insertion path flows through Merge; ordering is createdAt with arrival tie-break

package chat

import (
	"sort"
)

// Conversation is the ordered message history bound to one chat tab. It is
// in-memory only and owned by a single state manager; methods are not safe
// for concurrent use without external serialization.
type Conversation struct {
	ID           string
	Participants []string

	// Cursor is the opaque pagination token for the next older page, empty
	// when no further pages exist. HasMore mirrors the loader's last answer.
	Cursor  string
	HasMore bool

	messages []Message
	nextSeq  uint64
}

// NewConversation creates an empty conversation for the given id.
func NewConversation(id string) *Conversation {
	return &Conversation{ID: id}
}

// Len returns the number of messages post-deduplication.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the ordered message sequence.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Merge folds incoming messages into the sequence. It is the single
// insertion path for optimistic sends, live arrivals, and history pages.
//
// A message whose identity matches an existing entry replaces it in place,
// same position and same arrival sequence, so an authoritative echo reconciles
// its optimistic counterpart without the view reshuffling. New messages are
// appended and the sequence is re-sorted stably by createdAt, which keeps
// the prior relative order of already-merged messages and breaks timestamp
// ties by arrival sequence.
//
// Returns the number of messages that were new (not reconciliations).
func (c *Conversation) Merge(incoming ...Message) int {
	added := 0
	for _, msg := range incoming {
		if i := c.indexOf(msg); i >= 0 {
			msg.seq = c.messages[i].seq
			c.messages[i] = msg
			continue
		}
		msg.seq = c.nextSeq
		c.nextSeq++
		c.messages = append(c.messages, msg)
		added++
	}

	if added > 0 {
		sort.SliceStable(c.messages, func(i, j int) bool {
			a, b := c.messages[i], c.messages[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.seq < b.seq
		})
	}

	return added
}

func (c *Conversation) indexOf(msg Message) int {
	for i, existing := range c.messages {
		if SameIdentity(existing, msg) {
			return i
		}
	}
	return -1
}
