package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"conduit/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Get decodes the JSON stored at key. ok is false on a miss and whenever
// Redis is disabled.
func Get[T any](ctx context.Context, key string) (v T, ok bool, err error) {
	if client == nil {
		return v, false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return v, false, nil
	case err != nil:
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Set stores v as JSON under key for ttl. It is a no-op without Redis.
func Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside returns the cached value at key, or calls load and caches its result
// for ttl. Redis errors fall through to load. An entry that no longer
// decodes is dropped. Errors from load are returned and never cached.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	name := cacheName(key)

	v, ok, err := Get[T](ctx, key)
	switch {
	case ok:
		observability.CountCacheLookup(name, observability.CacheHit)
		return v, nil
	case err != nil:
		observability.CountCacheLookup(name, observability.CacheError)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			Invalidate(ctx, key)
		}
	default:
		observability.CountCacheLookup(name, observability.CacheMiss)
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	_ = Set(ctx, key, v, ttl)
	return v, nil
}

// cacheName is the metrics label for key, its prefix up to the first colon.
func cacheName(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return name
}
