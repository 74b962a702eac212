// ABOUTME: Opaque pagination cursor encoding shared with the message server
// ABOUTME: Cursors are base64 "RFC3339|id" pairs; clients treat them as opaque

package history

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// EncodeCursor builds an opaque cursor from a message timestamp and id.
// Only test fixtures and server shims construct cursors; the loader itself
// passes them through untouched.
func EncodeCursor(ts time.Time, id string) string {
	data := fmt.Sprintf("%s|%s", ts.Format(time.RFC3339), id)
	return base64.StdEncoding.EncodeToString([]byte(data))
}

// DecodeCursor parses an opaque cursor back into its timestamp and id.
func DecodeCursor(cursor string) (time.Time, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid cursor encoding: %w", err)
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("invalid cursor format")
	}

	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid cursor timestamp: %w", err)
	}

	return ts, parts[1], nil
}
