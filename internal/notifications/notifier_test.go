package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 10 * time.Millisecond
)

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNotifier_Disabled(t *testing.T) {
	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())

	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "{}"))

	done, err := n.SubscribeUsers(context.Background(), func(string, string) {
		t.Error("handler called without redis")
	})
	require.NoError(t, err)
	_, open := <-done
	assert.False(t, open)
}

func TestUserChannelRoundTrip(t *testing.T) {
	t.Parallel()
	for _, id := range []uint{1, 100, 4294967295} {
		got, ok := ParseUserChannel(UserChannel(id))
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
	assert.Equal(t, "notifications:user:42", UserChannel(42))

	for _, bad := range []string{
		"notifications:user:0",
		"notifications:user:-3",
		"notifications:user:abc",
		"notifications:user:",
		"tags:all",
	} {
		_, ok := ParseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_SubscribeSurvivesPanickingHandler(t *testing.T) {
	_, rdb := startRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	done, err := n.SubscribeUsers(ctx, func(channel, payload string) {
		if payload == "boom" {
			panic("bad payload")
		}
		got <- channel
	})
	require.NoError(t, err)

	require.NoError(t, n.PublishUser(ctx, 3, "boom"))
	require.NoError(t, n.PublishUser(ctx, 3, "fine"))

	select {
	case ch := <-got:
		assert.Equal(t, "notifications:user:3", ch)
	case <-time.After(waitFor):
		t.Fatal("subscriber stopped after a panic")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("subscriber ignored cancel")
	}
}

func TestHub_RelayDeliversAcrossRedis(t *testing.T) {
	_, rdb := startRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	done, err := hub.Relay(ctx, n)
	require.NoError(t, err)

	c, err := hub.Register(7, nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishUser(ctx, 7, `{"type":"ping"}`))
	require.NoError(t, n.PublishUser(ctx, 8, `{"type":"other"}`))

	select {
	case msg := <-c.Send:
		assert.JSONEq(t, `{"type":"ping"}`, string(msg))
	case <-time.After(waitFor):
		t.Fatal("message was not delivered")
	}
	assert.Never(t, func() bool { return len(c.Send) > 0 }, 10*tick, tick)

	cancel()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("relay did not stop on cancel")
	}
}
