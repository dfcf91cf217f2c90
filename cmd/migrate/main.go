// Command migrate manages the Conduit schema:
//
//	migrate up              apply pending SQL migrations (postgres)
//	migrate auto            run GORM AutoMigrate
//	migrate status          show the schema plan and migration state
//	migrate down <version>  roll back one migration
//	migrate create-db       create DB_NAME if it is missing
//	migrate inspect [table] print columns and constraints
//	migrate reset           drop every table (refused in production)
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"conduit/internal/config"
	"conduit/internal/database"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" database/sql driver
	"gorm.io/gorm"
)

// command runs against an open connection. args excludes the command name.
type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":      migrateUp,
	"auto":    migrateAuto,
	"status":  showStatus,
	"down":    migrateDown,
	"inspect": func(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error { return inspect(ctx, os.Stdout, db, args) },
	"reset":   func(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error { return reset(ctx, db, cfg) },
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	names := slices.Sorted(maps.Keys(commands))
	names = append(names, "create-db")
	return fmt.Errorf("usage: migrate <%s> [args]", strings.Join(names, "|"))
}

func run() error {
	flag.Parse()
	name := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	cmd, known := commands[name]
	if !known && name != "create-db" {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	// The target database may not exist yet.
	if name == "create-db" {
		return createDatabase(ctx, cfg)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	if err := cmd(ctx, db, cfg, flag.Args()[1:]); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func migrateUp(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	if cfg.IsSQLite() {
		return errors.New("SQL migrations target postgres; use auto with DB_DRIVER=sqlite")
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	log.Println("sql migrations applied")
	return nil
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = config.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	log.Println("automigrate applied")
	return nil
}

func showStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	printStatus(os.Stdout, status)
	return nil
}

func printStatus(w io.Writer, s *database.SchemaStatus) {
	_, _ = fmt.Fprintf(w, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
		s.Mode, s.Environment, s.SQL, s.AutoMigrate, len(s.Applied), len(s.Pending))
	for _, l := range s.Applied {
		_, _ = fmt.Fprintf(w, "applied  %06d_%s  %s\n", l.Version, l.Name, l.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range s.Pending {
		_, _ = fmt.Fprintf(w, "pending  %s\n", m)
	}
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	log.Printf("rolled back migration %d", version)
	return nil
}

// createDatabase connects to the server's "postgres" database and creates
// DB_NAME unless it already exists.
func createDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.IsSQLite() {
		log.Printf("sqlite creates %s on first connect", cfg.DBPath)
		return nil
	}

	admin := *cfg
	admin.DBName = "postgres"
	conn, err := sql.Open("pgx", database.PostgresDSN(&admin))
	if err != nil {
		return fmt.Errorf("open maintenance database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var exists bool
	err = conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists)
	switch {
	case err != nil:
		return fmt.Errorf("check database: %w", err)
	case exists:
		log.Printf("database %q already exists", cfg.DBName)
		return nil
	}

	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.DBName}.Sanitize()); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	log.Printf("database %q created", cfg.DBName)
	return nil
}
