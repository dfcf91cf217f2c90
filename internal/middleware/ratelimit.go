// Package middleware provides request-scoped logging, rate limiting, metrics and tracing for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"conduit/internal/models"
	"conduit/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be asked.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// RateRule is a fixed window of Limit requests per Window, counted per
// caller under Name.
type RateRule struct {
	Name   string
	Limit  int
	Window time.Duration
	Policy FailPolicy
}

// RateDecision is the outcome of one counted request.
type RateDecision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// fixedWindow increments the counter and starts its window on the first hit.
// It returns the count and the window's remaining milliseconds.
var fixedWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

var errNoRedis = errors.New("rate limiter has no redis client")

// RateLimiter counts requests in Redis. It is disabled in local and test
// environments so development and load tests are not throttled.
type RateLimiter struct {
	rdb     *redis.Client
	enabled bool
}

func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	switch env {
	case "", "test", "development", "stress":
		return &RateLimiter{rdb: rdb}
	}
	return &RateLimiter{rdb: rdb, enabled: true}
}

// Allow counts one request by id against rule.
func (l *RateLimiter) Allow(ctx context.Context, rule RateRule, id string) (RateDecision, error) {
	if !l.enabled {
		return RateDecision{Allowed: true, Remaining: rule.Limit}, nil
	}
	if l.rdb == nil {
		return RateDecision{}, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", rule.Name, id)
	res, err := fixedWindow.Run(ctx, l.rdb, []string{key}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		observability.CountRedisError("rate_limit")
		return RateDecision{}, err
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = rule.Window
	}
	return RateDecision{
		Allowed:   count <= rule.Limit,
		Remaining: max(rule.Limit-count, 0),
		ResetIn:   ttl,
	}, nil
}

// Limit enforces rule, keyed by the authenticated user when there is one and
// by client IP otherwise.
func (l *RateLimiter) Limit(rule RateRule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		}

		d, err := l.Allow(c.UserContext(), rule, id)
		if err != nil {
			if rule.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable, refusing request",
					"rule", rule.Name, "error", err)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					&models.AppError{Code: "RATE_LIMIT_UNAVAILABLE", Message: "rate limit unavailable"})
			}
			return c.Next()
		}
		if !l.enabled {
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			observability.RateLimited.WithLabelValues(rule.Name).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(d.ResetIn.Seconds()))))
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: "RATE_LIMITED", Message: "rate limit exceeded"})
		}
		return c.Next()
	}
}
