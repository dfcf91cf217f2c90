package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"conduit/internal/config"
	"conduit/internal/database"

	"gorm.io/gorm"
)

// inspect prints columns for the given tables, or every table when none are
// named. On postgres it also lists each table's constraints.
func inspect(ctx context.Context, w io.Writer, db *gorm.DB, tables []string) error {
	db = db.WithContext(ctx)
	migrator := db.Migrator()

	if len(tables) == 0 {
		all, err := migrator.GetTables()
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		slices.Sort(all)
		tables = all
	}

	for _, table := range tables {
		if !migrator.HasTable(table) {
			_, _ = fmt.Fprintf(w, "%s: missing\n", table)
			continue
		}

		columns, err := migrator.ColumnTypes(table)
		if err != nil {
			return fmt.Errorf("columns of %s: %w", table, err)
		}

		var rows int64
		if err := db.Table(table).Count(&rows).Error; err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}

		_, _ = fmt.Fprintf(w, "%s (%d rows)\n", table, rows)
		for _, c := range columns {
			nullable, _ := c.Nullable()
			_, _ = fmt.Fprintf(w, " - %s: %s", c.Name(), c.DatabaseTypeName())
			if !nullable {
				_, _ = fmt.Fprint(w, " not null")
			}
			_, _ = fmt.Fprintln(w)
		}

		if db.Dialector.Name() != "postgres" {
			continue
		}
		var constraints []struct {
			Conname string `gorm:"column:conname"`
			Def     string `gorm:"column:def"`
		}
		if err := db.Raw(`SELECT c.conname, pg_get_constraintdef(c.oid) AS def
			FROM pg_constraint c
			JOIN pg_class r ON c.conrelid = r.oid
			JOIN pg_namespace n ON n.oid = r.relnamespace
			WHERE n.nspname = current_schema() AND r.relname = ?
			ORDER BY c.conname`, table).Scan(&constraints).Error; err != nil {
			return fmt.Errorf("constraints of %s: %w", table, err)
		}
		for _, c := range constraints {
			_, _ = fmt.Fprintf(w, " * %s: %s\n", c.Conname, c.Def)
		}
	}
	return nil
}

// reset drops every application table, including migration bookkeeping.
// It refuses to run against production.
func reset(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to reset a %q database", cfg.Env)
	}
	db = db.WithContext(ctx)

	if db.Dialector.Name() == "postgres" {
		return db.Exec("DROP SCHEMA public CASCADE; CREATE SCHEMA public; GRANT ALL ON SCHEMA public TO public;").Error
	}

	tables := []any{"article_tags", &database.MigrationLog{}}
	persistent := database.PersistentModels()
	for i := len(persistent) - 1; i >= 0; i-- {
		tables = append(tables, persistent[i])
	}
	return db.Migrator().DropTable(tables...)
}
