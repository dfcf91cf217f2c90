// Package notifications delivers realtime events to connected websocket
// clients, fanning them out across instances through Redis pub/sub.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Each user has one channel, notifications:user:<id>.
const userChannelPrefix = "notifications:user:"

func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel is the inverse of UserChannel. Id 0 is rejected.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Notifier moves events between instances over Redis. Without a client it
// does nothing and events stay on the local hub.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends payload to userID's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// SubscribeUsers pattern-subscribes to all user channels and calls handle
// for each message until ctx ends. It returns after Redis confirms the
// subscription. The returned channel closes when the reader goroutine exits.
func (n *Notifier) SubscribeUsers(ctx context.Context, handle func(channel, payload string)) (<-chan struct{}, error) {
	done := make(chan struct{})
	if !n.Enabled() {
		close(done)
		return done, nil
	}

	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		close(done)
		return done, err
	}

	go func() {
		defer close(done)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				deliver(handle, msg)
			}
		}
	}()
	return done, nil
}

// deliver keeps one bad message from killing the subscriber.
func deliver(handle func(channel, payload string), msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification handler panicked",
				"channel", msg.Channel, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	handle(msg.Channel, msg.Payload)
}
