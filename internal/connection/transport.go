// ABOUTME: Transport abstraction over the underlying socket and its websocket implementation
// ABOUTME: Production dialing uses coder/websocket with bearer-token authentication

package connection

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

// Transport dials the chat server and yields a framed connection.
type Transport interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// Conn is one established socket carrying length-delimited frames.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// WebsocketTransport dials the server over a websocket.
type WebsocketTransport struct{}

// Dial opens a websocket to url, attaching token as a bearer header when set.
func (WebsocketTransport) Dial(ctx context.Context, url, token string) (Conn, error) {
	var opts *websocket.DialOptions
	if token != "" {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)
		opts = &websocket.DialOptions{HTTPHeader: header}
	}

	ws, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return &websocketConn{ws: ws}, nil
}

type websocketConn struct {
	ws *websocket.Conn
}

func (c *websocketConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	return data, err
}

func (c *websocketConn) Write(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *websocketConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "client disconnect")
}
