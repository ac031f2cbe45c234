// Package cdp provides a Chrome DevTools Protocol client that multiplexes
// requests and one-shot event expectations over a single WebSocket.
package cdp

import (
	"context"

	"github.com/coder/websocket"
)

// maxMessageSize bounds a single inbound frame. Screenshots, PDFs and DOM
// snapshots arrive as one message and easily exceed the library default.
const maxMessageSize = 512 << 20

// Conn defines the interface for a WebSocket connection.
// This abstraction enables testing with mock connections.
type Conn interface {
	// Read reads a message from the connection.
	// Returns message type, payload, and any error.
	Read(ctx context.Context) (websocket.MessageType, []byte, error)

	// Write writes a message to the connection.
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error

	// Close closes the connection with a status code and reason.
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a connection to a protocol endpoint.
type Dialer func(ctx context.Context, endpoint string) (Conn, error)

// DialWebSocket is the default Dialer.
func DialWebSocket(ctx context.Context, endpoint string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}
