// Package bootstrap wires the process-wide runtime shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"conduit/internal/cache"
	"conduit/internal/config"
	"conduit/internal/database"
	"conduit/internal/middleware"
	"conduit/internal/models"
	"conduit/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs the configured schema policy after connecting.
	ApplySchema bool
	// SeedFixture, when set, is applied once to an empty database.
	SeedFixture string
}

// InitRuntime connects to DB and Redis, applies the schema and optionally
// seeds a fixture. The Redis client is nil when Redis is not configured or
// unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedFixture != "" {
		if err := seedIfEmpty(ctx, db, cfg, opts.SeedFixture); err != nil {
			database.Close()
			if r != nil {
				_ = r.Close()
				cache.SetClient(nil)
			}
			return nil, nil, fmt.Errorf("seed fixture: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, cfg *config.Config, path string) error {
	if cfg.IsProduction() {
		middleware.Logger.Warn("Skipping fixture seeding in production", slog.String("fixture", path))
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	fx, err := seed.LoadFixture(path)
	if err != nil {
		return err
	}
	summary, err := fx.Apply(ctx, db, seed.Options{Quiet: true})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Seeded empty database", slog.String("fixture", path), slog.String("rows", summary.String()))
	return nil
}
