// ABOUTME: Mock Transport implementation for testing
// ABOUTME: Allows tests to script inbound frames and inspect outbound writes

package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/chatdock/internal/wire"
)

// ErrMockClosed is returned by mock reads and writes after Close.
var ErrMockClosed = errors.New("mock connection closed")

// MockTransport is an in-memory Transport for testing. Each Dial yields a
// fresh MockConn unless DialErr is set.
type MockTransport struct {
	mu      sync.Mutex
	DialErr error
	conns   []*MockConn
}

// Dial returns a new MockConn, or DialErr if configured.
func (t *MockTransport) Dial(ctx context.Context, url, token string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.DialErr != nil {
		return nil, t.DialErr
	}

	c := &MockConn{
		URL:     url,
		Token:   token,
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	t.conns = append(t.conns, c)
	return c, nil
}

// LastConn returns the most recently dialed connection, or nil.
func (t *MockTransport) LastConn() *MockConn {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

// MockConn records writes and replays scripted inbound frames.
type MockConn struct {
	URL   string
	Token string

	mu      sync.Mutex
	writes  [][]byte
	inbound chan []byte
	done    chan struct{}
	closed  bool
}

// Read blocks until a frame is delivered, the connection closes, or ctx ends.
func (c *MockConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		return nil, ErrMockClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write records the frame.
func (c *MockConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrMockClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.writes = append(c.writes, buf)
	return nil
}

// Close fails all pending and future reads. Safe to call multiple times.
func (c *MockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Deliver queues a raw frame for the read loop.
func (c *MockConn) Deliver(data []byte) {
	c.inbound <- data
}

// DeliverEvent encodes and queues a typed frame for the read loop.
func (c *MockConn) DeliverEvent(kind wire.Kind, payload any) error {
	data, err := wire.Encode(kind, payload)
	if err != nil {
		return err
	}
	c.Deliver(data)
	return nil
}

// Writes returns a copy of all recorded outbound frames.
func (c *MockConn) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// WrittenKinds decodes recorded frames and returns their kinds in order.
func (c *MockConn) WrittenKinds() []wire.Kind {
	writes := c.Writes()

	kinds := make([]wire.Kind, 0, len(writes))
	for _, data := range writes {
		env, err := wire.Decode(data)
		if err != nil {
			continue
		}
		kinds = append(kinds, env.Kind)
	}
	return kinds
}
