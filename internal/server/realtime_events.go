package server

import (
	"context"

	"conduit/internal/middleware"
	"conduit/internal/models"
	"conduit/internal/notifications"
	"conduit/internal/observability"
)

// enqueue hands job to the dispatcher. Jobs run after the response is sent,
// so they must not capture the request's fiber.Ctx.
func (s *Server) enqueue(eventType string, job notifications.Job) {
	observability.DomainEvents.WithLabelValues(eventType).Inc()
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Enqueue(job); err != nil {
		middleware.Logger.Warn("dropped realtime event", "event_type", eventType, "error", err)
	}
}

// notifyUser queues a single event for userID.
func (s *Server) notifyUser(userID uint, eventType string, payload map[string]any) {
	event := notifications.Event{Type: eventType, Payload: payload}
	s.enqueue(eventType, func(ctx context.Context) {
		s.publisher.Publish(ctx, userID, event)
	})
}

// notifyFollowers tells everyone following the author about a new article.
func (s *Server) notifyFollowers(article *models.Article) {
	authorID := article.AuthorID
	event := notifications.Event{
		Type:    notifications.EventArticleCreated,
		Payload: articleSummary(article),
	}
	s.enqueue(event.Type, func(ctx context.Context) {
		followerIDs, err := s.profileService.FollowerIDs(ctx, authorID)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to load followers for event",
				"event_type", event.Type, "author_id", authorID, "error", err)
			return
		}
		for _, id := range followerIDs {
			s.publisher.Publish(ctx, id, event)
		}
	})
}

// notifyFavorited tells the author their article was favorited, unless they
// did it themselves.
func (s *Server) notifyFavorited(userID uint, article *models.Article) {
	if article.AuthorID == userID {
		return
	}
	payload := articleSummary(article)
	payload["favoritedBy"] = userID
	payload["favoritesCount"] = article.FavoritesCount
	s.notifyUser(article.AuthorID, notifications.EventArticleFavorited, payload)
}

// notifyCommented tells the article's author about a new comment, unless
// they wrote it.
func (s *Server) notifyCommented(comment *models.Comment) {
	if comment.Article.ID == 0 || comment.Article.AuthorID == comment.AuthorID {
		return
	}
	s.notifyUser(comment.Article.AuthorID, notifications.EventCommentCreated, map[string]any{
		"slug":      comment.Article.Slug,
		"commentId": comment.ID,
		"body":      comment.Body,
		"author":    comment.Author.Username,
	})
}

// notifyFollowed tells a user they have a new follower.
func (s *Server) notifyFollowed(followerID, targetID uint) {
	s.notifyUser(targetID, notifications.EventUserFollowed, map[string]any{
		"followerId": followerID,
	})
}

func articleSummary(a *models.Article) map[string]any {
	return map[string]any{
		"slug":   a.Slug,
		"title":  a.Title,
		"author": a.Author.Username,
	}
}
