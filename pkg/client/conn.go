package client

import (
	"context"

	"github.com/gorilla/websocket"
)

// Conn is a bidirectional message channel to the server.
type Conn interface {
	// ReadMessage blocks until a message arrives or the connection fails.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one message.
	WriteMessage(data []byte) error

	// Close tears the connection down.
	Close() error
}

// Dialer establishes connections. Injected so tests can wire an in-memory
// transport.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials the real endpoint.
type WebsocketDialer struct{}

// Dial connects to the server's /ws endpoint.
func (WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
