package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"interview/internal/models"
)

const writeWait = 10 * time.Second

// Client is one transport endpoint. Writes are serialized because gorilla
// connections allow a single writer. Frames sent after Close are dropped.
type Client struct {
	Conn   *websocket.Conn
	mu     sync.Mutex
	hook   func(models.WSFrame)
	closed bool
}

func NewClient(conn *websocket.Conn) *Client { return &Client{Conn: conn} }

// NewCaptureClient hands frames to fn instead of a socket. The polling
// transport uses it.
func NewCaptureClient(fn func(models.WSFrame)) *Client { return &Client{hook: fn} }

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.WSFrame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Close marks the client gone. Turns that finish later still update the
// session but their replies go nowhere.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Send reports whether the frame was handed to the transport.
func (c *Client) Send(frame models.WSFrame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.hook != nil {
		c.hook(frame)
		return true
	}
	if c.Conn == nil {
		return false
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteJSON(frame); err != nil {
		c.closed = true
		return false
	}
	return true
}
