// Package dock maintains the state of the chat dock: the set of currently
// open conversation tabs and the routing of sends, live events, and history
// pages into them.
//
// # Tabs and conversations
//
// Each open tab binds 1:1 to an in-memory Conversation. Tabs are keyed by a
// caller-supplied id that may predate the conversation (a direct chat is
// typically opened by peer user id before any message exists) and the
// conversation id is bound later, from the summary endpoint or the first
// routed event. Closing a tab discards its conversation; nothing is
// persisted client-side and nothing is signalled to the server.
//
// # Insertion paths
//
// Three paths feed a conversation and all of them go through the same merge:
//
//   - sendMessage appends an optimistic local entry, then emits the send for
//     the tab's transport scope (direct or room broadcast)
//   - live bus events are routed to their tab and merged; the authoritative
//     echo of an optimistic send replaces it in place
//   - history pages are prepended by LoadInitial/LoadOlder
//
// A small seen-cache drops redelivered frames (rejoin replays) before they
// reach the merge path.
//
// # Concurrency
//
// One mutex serializes every mutation. Bus handlers and UI calls each run to
// completion before the next event is processed, which is the whole
// correctness discipline; there is no finer-grained locking to reason about.
package dock
