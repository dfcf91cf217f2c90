package notifications

import (
	"log/slog"
	"time"

	"conduit/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must stay below pongWait so a healthy peer never times out.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames and the odd keepalive.
	maxInboundSize = 512

	sendBuffer = 64
)

// frameConn is the part of a websocket connection a Client drives.
// *websocket.Conn satisfies it.
type frameConn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one user's websocket on this instance. Events flow one way, from
// Send to the peer.
type Client struct {
	hub    *Hub
	conn   frameConn
	UserID uint

	// Send carries encoded events. The hub closes it when the client is
	// unregistered.
	Send chan []byte
}

func newClient(hub *Hub, conn frameConn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Serve runs the connection until the peer hangs up, a write fails or the hub
// drops the client. It returns once both directions have stopped.
func (c *Client) Serve() {
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writeLoop()
	}()

	c.readLoop()
	c.hub.UnregisterClient(c)
	<-written
}

// readLoop discards inbound frames and keeps the read deadline fresh on pongs.
// It ends when the connection fails or is closed by writeLoop.
func (c *Client) readLoop() {
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// writeLoop delivers queued events and pings. A closed Send channel becomes a
// close frame. The connection is closed on exit, which also ends readLoop.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues event without blocking and reports whether it was accepted.
// The caller holds the hub's read lock, so Send is still open.
func (c *Client) trySend(event []byte) bool {
	select {
	case c.Send <- event:
		return true
	default:
		observability.CountDrop("client")
		slog.Warn("websocket buffer full, dropped event", "user_id", c.UserID)
		return false
	}
}
