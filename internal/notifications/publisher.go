package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"conduit/internal/featureflags"
	"conduit/internal/observability"
)

// Event types delivered to websocket clients.
const (
	EventArticleCreated   = "article_created"
	EventArticleFavorited = "article_favorited"
	EventCommentCreated   = "comment_created"
	EventUserFollowed     = "user_followed"
)

// Event is the JSON frame written to a client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher routes events to users. With Redis it publishes on the user's
// channel so every instance's hub sees it; without Redis it delivers to the
// local hub directly.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
	flags    *featureflags.Manager
}

// NewPublisher wires a Publisher. flags may be nil, which disables delivery.
func NewPublisher(hub *Hub, notifier *Notifier, flags *featureflags.Manager) *Publisher {
	return &Publisher{hub: hub, notifier: notifier, flags: flags}
}

// Publish sends event to userID if realtime delivery is enabled for them.
func (p *Publisher) Publish(ctx context.Context, userID uint, event Event) {
	if p == nil || userID == 0 || !p.flags.Enabled(featureflags.Realtime, userID) {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal event", "event_type", event.Type, "error", err)
		return
	}
	observability.RealtimeEvents.WithLabelValues(event.Type).Inc()

	if p.notifier.Enabled() {
		err := p.notifier.PublishUser(ctx, userID, string(data))
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "redis publish failed, delivering locally",
			"event_type", event.Type, "user_id", userID, "error", err)
	}
	if p.hub != nil {
		p.hub.Broadcast(userID, string(data))
	}
}
