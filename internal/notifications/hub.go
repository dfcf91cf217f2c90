package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"conduit/internal/observability"
)

// Connection caps per instance.
const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
	ErrHubClosed  = errors.New("hub is shutting down")
)

// Hub tracks the websocket clients connected to this instance, grouped by
// user. Other instances reach them through Relay.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
	count  int
	closed bool
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

// Register attaches conn for userID. It fails once the hub is shutting down
// or either connection cap is reached.
func (h *Hub) Register(userID uint, conn frameConn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, ErrHubClosed
	case h.count >= maxTotalConns:
		return nil, ErrServerFull
	case len(h.byUser[userID]) >= maxConnsPerUser:
		return nil, ErrUserFull
	}

	c := newClient(h, conn, userID)
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
	h.count++
	observability.RealtimeConnections.Inc()
	return c, nil
}

// UnregisterClient detaches c and closes its Send channel. Repeated calls
// are no-ops.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.byUser[c.UserID]
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.byUser, c.UserID)
	}
	h.detach(c)
}

// detach must be called with mu held and c already out of byUser.
func (h *Hub) detach(c *Client) {
	close(c.Send)
	h.count--
	observability.RealtimeConnections.Dec()
}

// Broadcast queues message on every connection userID has here and returns
// how many took it. Full buffers drop the message.
func (h *Hub) Broadcast(userID uint, message string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data := []byte(message)
	n := 0
	for c := range h.byUser[userID] {
		if c.trySend(data) {
			n++
		}
	}
	return n
}

func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Relay feeds every message published on a user channel, from any instance,
// into Broadcast. The returned channel closes when the subscription ends.
func (h *Hub) Relay(ctx context.Context, n *Notifier) (<-chan struct{}, error) {
	return n.SubscribeUsers(ctx, func(channel, payload string) {
		userID, ok := ParseUserChannel(channel)
		if !ok {
			slog.Warn("ignoring message on malformed channel", "channel", channel)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown stops new registrations and detaches every client. Each client's
// writer then sends a close frame and hangs up.
func (h *Hub) Shutdown(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for userID, clients := range h.byUser {
		for c := range clients {
			h.detach(c)
		}
		delete(h.byUser, userID)
	}
	return nil
}
