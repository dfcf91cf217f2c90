package service

import (
	"context"

	"conduit/internal/cache"
	"conduit/internal/observability"
	"conduit/internal/repository"

	"golang.org/x/sync/singleflight"
)

type TagService struct {
	tagRepo repository.TagRepository
	group   singleflight.Group
}

func NewTagService(tagRepo repository.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

// List serves the tag vocabulary cache-aside. Concurrent misses share one
// database query, which runs detached from the cancellation of whichever
// caller started it.
func (s *TagService) List(ctx context.Context) (_ []string, err error) {
	ctx, span := startSpan(ctx, "TagService", "List")
	defer func() { observability.EndSpan(span, err) }()

	v, err, _ := s.group.Do(cache.TagsKey, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		return cache.Aside(shared, cache.TagsKey, cache.TagsTTL, func() ([]string, error) {
			return s.tagRepo.List(shared)
		})
	})
	if err != nil {
		return nil, err
	}
	if tags := v.([]string); tags != nil {
		return tags, nil
	}
	return []string{}, nil
}

// Invalidate drops the cached vocabulary.
func (s *TagService) Invalidate(ctx context.Context) {
	cache.InvalidateTags(ctx)
}
