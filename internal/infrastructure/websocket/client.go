package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"convo/pkg/logger"
)

// Tuning carries the per-connection transport knobs from config.
type Tuning struct {
	SendQueueSize  int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		SendQueueSize:  256,
		MaxMessageSize: 8192,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
	}
}

// Client is one live connection to a chat. It is owned by the Registry for
// the duration of the session; the Session holds it only to read frames and
// enqueue outbound payloads.
type Client struct {
	ConnID string
	UserID string
	ChatID string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	tuning    Tuning
}

func NewClient(conn *websocket.Conn, userID, chatID string, tuning Tuning) *Client {
	if tuning.SendQueueSize <= 0 {
		tuning = DefaultTuning()
	}
	if conn != nil {
		conn.SetReadLimit(tuning.MaxMessageSize)
	}

	return &Client{
		ConnID: uuid.New().String(),
		UserID: userID,
		ChatID: chatID,
		conn:   conn,
		send:   make(chan []byte, tuning.SendQueueSize),
		done:   make(chan struct{}),
		tuning: tuning,
	}
}

// Enqueue queues a payload for delivery without blocking. It returns false
// when the client is closed or its send queue is full; the caller decides
// what that means (for fan-out it means dropping the peer).
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Receive exposes the outbound queue; the write pump drains it in production.
func (c *Client) Receive() <-chan []byte {
	return c.send
}

// Close tears the connection down without a close frame. Safe to call more
// than once and from multiple goroutines.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// CloseWithCode sends a close frame with the given code before tearing down.
// The reason must never contain message content.
func (c *Client) CloseWithCode(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			deadline := time.Now().Add(c.tuning.WriteWait)
			msg := websocket.FormatCloseMessage(code, reason)
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
				logger.Debug("Failed to write close frame to %s: %v", c.ConnID, err)
			}
			c.conn.Close()
		}
	})
}

func (c *Client) setupRead() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.tuning.PongWait)); err != nil {
		logger.Warn("Failed to set read deadline for %s: %v", c.ConnID, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.tuning.PongWait))
	})
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings. It exits when the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.tuning.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.tuning.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("Write failed for connection %s: %v", c.ConnID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.tuning.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
