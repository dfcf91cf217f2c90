package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"conduit/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey is the Postgres advisory lock taken by every migration
// transaction, so instances starting together apply each version once.
const migrationLockKey int64 = 0x636f6e64756974

const migrationLogDDL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// MigrationLog is one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// MigrationRunner applies and reverts a Catalog, recording progress in
// migration_logs.
type MigrationRunner struct {
	db      *gorm.DB
	catalog Catalog
}

func NewMigrationRunner(db *gorm.DB, catalog Catalog) *MigrationRunner {
	return &MigrationRunner{db: db, catalog: catalog}
}

// Applied lists the recorded migrations. A missing log table means none.
func (r *MigrationRunner) Applied(ctx context.Context) ([]MigrationLog, error) {
	var logs []MigrationLog
	err := r.db.WithContext(ctx).Order("version ASC").Find(&logs).Error
	if err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return logs, nil
}

// Pending returns the catalog entries not yet applied. It fails when the
// database has versions this build does not know or scripts that changed
// after being applied.
func (r *MigrationRunner) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := verifyApplied(applied, r.catalog); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	for _, l := range applied {
		done[l.Version] = true
	}
	var pending []Migration
	for _, m := range r.catalog {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Up applies every pending migration in version order and returns the ones
// this call applied.
func (r *MigrationRunner) Up(ctx context.Context) ([]Migration, error) {
	if err := r.db.WithContext(ctx).Exec(migrationLogDDL).Error; err != nil {
		return nil, fmt.Errorf("ensure migration_logs: %w", err)
	}

	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var ran []Migration
	for _, m := range pending {
		applied, err := r.apply(ctx, m)
		if err != nil {
			return ran, err
		}
		if applied {
			ran = append(ran, m)
		}
	}
	return ran, nil
}

// apply runs one migration and its log row in a single transaction. It
// reports false when another instance applied the version first.
func (r *MigrationRunner) apply(ctx context.Context, m Migration) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&MigrationLog{}).Where("version = ?", m.Version).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %s: %w", m, err)
		}
		if count > 0 {
			return nil
		}

		middleware.Logger.Info("Applying migration", slog.String("migration", m.String()))
		if err := tx.Exec(m.Up).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", m, err)
		}
		if err := tx.Create(&MigrationLog{Version: m.Version, Name: m.Name, Checksum: m.Checksum}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m, err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// Down reverts one applied migration.
func (r *MigrationRunner) Down(ctx context.Context, version int) error {
	m, ok := r.catalog.Find(version)
	if !ok {
		return fmt.Errorf("migration version %d not found", version)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		res := tx.Where("version = ?", version).Delete(&MigrationLog{})
		if res.Error != nil {
			return fmt.Errorf("remove migration record %s: %w", m, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("migration %s has not been applied", m)
		}

		middleware.Logger.Info("Rolling back migration", slog.String("migration", m.String()))
		if err := tx.Exec(m.Down).Error; err != nil {
			return fmt.Errorf("roll back migration %s: %w", m, err)
		}
		return nil
	})
}

func lockMigrations(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	return nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

func verifyApplied(applied []MigrationLog, catalog Catalog) error {
	var unknown []string
	var errs []error
	for _, l := range applied {
		m, ok := catalog.Find(l.Version)
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", l.Version))
			continue
		}
		// Rows written before checksums were recorded carry an empty one.
		if l.Checksum != "" && l.Checksum != m.Checksum {
			errs = append(errs, fmt.Errorf("migration %s changed after it was applied", m))
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		errs = append(errs, fmt.Errorf(
			"migration_logs contains versions this build does not know: %s (run `migrate down` from the newer build)",
			strings.Join(unknown, ", "),
		))
	}
	return errors.Join(errs...)
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	catalog, err := EmbeddedCatalog()
	if err != nil {
		return err
	}
	ran, err := NewMigrationRunner(db, catalog).Up(ctx)
	if err != nil {
		return err
	}
	if len(ran) == 0 {
		middleware.Logger.Debug("Schema up to date", slog.Int("migrations", len(catalog)))
	}
	return nil
}

// RollbackMigration reverts one embedded migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	catalog, err := EmbeddedCatalog()
	if err != nil {
		return err
	}
	return NewMigrationRunner(db, catalog).Down(ctx, version)
}
