package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/notes/internal/auth"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is a single WebSocket connection opened by an identified user.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	identity auth.Identity
	send     chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, identity auth.Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards incoming messages and returns when the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writePump drains the send channel and pings periodically to detect stale
// connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
