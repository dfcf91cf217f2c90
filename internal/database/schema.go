package database

import (
	"context"
	"fmt"
	"log/slog"

	"conduit/internal/config"
	"conduit/internal/middleware"

	"gorm.io/gorm"
)

// SchemaPlan is what ApplySchema does for a configuration.
type SchemaPlan struct {
	Mode        string
	Environment string
	SQL         bool
	AutoMigrate bool
}

// SchemaStatus is a plan plus the migration state of the database.
type SchemaStatus struct {
	SchemaPlan
	Applied []MigrationLog
	Pending []Migration
}

// PlanSchema resolves DB_SCHEMA_MODE for cfg.
//
//	sql     embedded SQL migrations only
//	auto    GORM AutoMigrate only, refused in prod-like environments
//	        unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set
//	hybrid  SQL migrations, plus AutoMigrate outside prod-like environments
//
// SQLite always uses auto since the embedded SQL is Postgres dialect.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: cfg.DBSchemaMode, Environment: cfg.Env}
	switch {
	case cfg.IsSQLite():
		plan.Mode = config.SchemaModeAuto
	case plan.Mode == "":
		plan.Mode = config.SchemaModeHybrid
	}

	switch plan.Mode {
	case config.SchemaModeSQL:
		plan.SQL = true
	case config.SchemaModeAuto:
		if cfg.IsProdLike() && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.AutoMigrate = true
	case config.SchemaModeHybrid:
		plan.SQL = true
		plan.AutoMigrate = !cfg.IsProdLike()
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates every persistent table with GORM.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if plan.AutoMigrate {
		if cfg.IsProdLike() {
			middleware.Logger.Warn("AutoMigrate enabled in a prod-like environment; review schema diffs", slog.String("env", cfg.Env))
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// GetSchemaStatus reports the plan for cfg and, when it includes SQL
// migrations, which are applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.SQL {
		return status, nil
	}

	catalog, err := EmbeddedCatalog()
	if err != nil {
		return nil, err
	}
	runner := NewMigrationRunner(db, catalog)
	if status.Applied, err = runner.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = runner.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
