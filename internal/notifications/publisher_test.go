package notifications

import (
	"context"
	"testing"
	"time"

	"conduit/internal/featureflags"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_LocalDeliveryWithoutRedis(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	p := NewPublisher(hub, NewNotifier(nil), featureflags.NewManager("realtime=on"))
	p.Publish(context.Background(), 3, Event{Type: EventUserFollowed, Payload: map[string]string{"username": "jake"}})

	require.Len(t, c.Send, 1)
	assert.JSONEq(t, `{"type":"user_followed","payload":{"username":"jake"}}`, string(<-c.Send))
}

func TestPublisher_RespectsRealtimeFlag(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	flags := featureflags.NewManager("realtime=off")
	p := NewPublisher(hub, NewNotifier(nil), flags)
	p.Publish(context.Background(), 3, Event{Type: EventCommentCreated})
	assert.Empty(t, c.Send)

	flags.Reload("realtime=on")
	p.Publish(context.Background(), 3, Event{Type: EventCommentCreated})
	assert.Len(t, c.Send, 1)

	NewPublisher(hub, NewNotifier(nil), nil).Publish(context.Background(), 3, Event{Type: EventCommentCreated})
	assert.Len(t, c.Send, 1, "nil flags disable delivery")
}

func TestPublisher_FansOutThroughRedis(t *testing.T) {
	_, rdb := startRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := hub.Relay(ctx, n)
	require.NoError(t, err)

	c, err := hub.Register(9, nil)
	require.NoError(t, err)

	p := NewPublisher(hub, n, featureflags.NewManager("realtime=on"))
	p.Publish(context.Background(), 9, Event{Type: EventArticleFavorited})

	select {
	case msg := <-c.Send:
		assert.Contains(t, string(msg), EventArticleFavorited)
	case <-time.After(waitFor):
		t.Fatal("event was not delivered through redis")
	}
	assert.Never(t, func() bool { return len(c.Send) > 0 }, 10*tick, tick, "delivered exactly once")
}
