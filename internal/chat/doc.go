// Package chat holds the message and conversation model shared by the
// history loader and the dock state manager.
//
// # Identity and reconciliation
//
// A message's identity is its id when the transport echoes one; otherwise it
// is (sender, body, createdAt) within a short window. Conversation.Merge is
// the single insertion path for optimistic local sends, live bus arrivals,
// and historical pages, so duplicate detection and the
// optimistic/echo reconciliation behave identically everywhere instead of
// being re-implemented at each call site.
//
// # Ordering
//
// Messages are ordered non-decreasing by createdAt, with ties broken by
// arrival sequence. Merge re-sorts stably, so already-rendered messages
// never visibly reshuffle when a page is prepended.
package chat
