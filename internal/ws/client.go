package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// frame is one outbound JSON message.
type frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Client owns one websocket connection. Outbound frames go through a buffered
// channel drained by the write pump; a full buffer drops the frame rather than
// blocking the sender.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan frame
	logger *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

func newClient(id, userID string, conn *websocket.Conn, buffer int, logger *zap.SugaredLogger) *Client {
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan frame, buffer),
		logger: logger,
	}
}

func (c *Client) ID() string { return c.id }

// Send queues an event for the write pump. Reports false when the client is
// closed or its buffer is full.
func (c *Client) Send(event string, payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame{Type: event, Payload: payload}:
		return true
	default:
		c.logger.Warnw("send buffer full, dropping frame", "conn", c.id, "event", event)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// writePump drains the send channel and keeps the connection alive with pings.
// It exits when the channel closes or a write fails.
func (c *Client) writePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			b, err := json.Marshal(f)
			if err != nil {
				c.logger.Warnw("marshal frame failed", "conn", c.id, "event", f.Type, "err", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.logger.Debugw("write failed", "conn", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
