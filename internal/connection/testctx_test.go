// ABOUTME: Pre-Go-1.24 stand-in for t.Context()

package connection

import (
	"context"
	"testing"
)

// testContext returns a context canceled when the test ends, matching
// the behavior of t.Context() from Go 1.24.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
