// Package history fetches paginated conversation history from the message
// server's REST layer. The loader is stateless: cursors live with the
// caller, a failed fetch leaves the caller's state untouched, and a retry
// with the same cursor is always safe.
package history
