package server

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 5 * time.Second

// probe reports a dependency as "healthy", "unhealthy" or "disabled".
type probe func(ctx context.Context) string

func (s *Server) probes() map[string]probe {
	return map[string]probe{
		"database": func(ctx context.Context) string {
			sqlDB, err := s.db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				return "unhealthy"
			}
			return "healthy"
		},
		"redis": func(ctx context.Context) string {
			if s.redis == nil {
				return "disabled"
			}
			if s.redis.Ping(ctx).Err() != nil {
				return "unhealthy"
			}
			return "healthy"
		},
	}
}

// LivenessCheck answers as long as the process serves HTTP.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck pings every dependency in parallel. Redis is optional and a
// disabled Redis does not fail the check.
// @Summary Readiness
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,checks=map[string]string}
// @Failure 503 {object} object{status=string,checks=map[string]string}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]string)
	)
	g, ctx := errgroup.WithContext(ctx)
	for name, check := range s.probes() {
		g.Go(func() error {
			result := check(ctx)
			mu.Lock()
			checks[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status, code := "healthy", fiber.StatusOK
	for _, result := range checks {
		if result == "unhealthy" {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"service":     "conduit-api",
		"status":      status,
		"checks":      checks,
		"connections": s.hub.ConnectionCount(),
		"time":        time.Now(),
	})
}
