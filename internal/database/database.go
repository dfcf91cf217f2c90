// Package database opens the primary and replica connections and manages the
// schema.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conduit/internal/config"
	"conduit/internal/middleware"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	// DB is the primary, set by Connect.
	DB *gorm.DB
	// ReadDB is the read replica. It stays nil when none is configured or it
	// could not be reached.
	ReadDB *gorm.DB
)

// GetReadDB returns the replica, or nil when reads go to the primary.
func GetReadDB() *gorm.DB {
	return ReadDB
}

// endpoint is one Postgres server to connect to.
type endpoint struct {
	host, port, user, password string
}

func (e endpoint) dsn(dbName, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	pairs := [][2]string{
		{"host", e.host}, {"port", e.port}, {"user", e.user},
		{"password", e.password}, {"dbname", dbName}, {"sslmode", sslMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		parts = append(parts, kv[0]+"="+quoteDSNValue(kv[1]))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue applies libpq quoting to values that are empty or contain
// spaces, quotes or backslashes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

func primaryEndpoint(cfg *config.Config) endpoint {
	return endpoint{cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword}
}

func replicaEndpoint(cfg *config.Config) endpoint {
	return endpoint{cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword}
}

// PostgresDSN is the key=value connection string for the primary.
func PostgresDSN(cfg *config.Config) string {
	return primaryEndpoint(cfg).dsn(cfg.DBName, cfg.DBSSLMode)
}

// SQLiteDSN turns a file path or ":memory:" into a DSN with foreign keys on.
func SQLiteDSN(path string) string {
	if path == ":memory:" {
		path = "file::memory:"
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// Connect opens the configured database, sets DB and, for Postgres with a
// replica host, tries to open ReadDB. A replica failure only logs.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: NewGormLogger(middleware.Logger)}

	if cfg.IsSQLite() {
		db, err := OpenSQLite(cfg.DBPath, gormCfg)
		if err == nil {
			err = RegisterMetricsCallbacks(db)
		}
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		middleware.Logger.Info("database connected", slog.String("driver", "sqlite"), slog.String("path", cfg.DBPath))
		DB = db
		return DB, nil
	}

	db, err := openPostgres(PostgresDSN(cfg), cfg, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres at %s:%s: %w", cfg.DBHost, cfg.DBPort, err)
	}
	middleware.Logger.Info("database connected", slog.String("driver", "postgres"), slog.String("host", cfg.DBHost))

	if cfg.DBReadHost != "" {
		replica, err := openPostgres(replicaEndpoint(cfg).dsn(cfg.DBName, cfg.DBSSLMode), cfg, gormCfg)
		if err != nil {
			middleware.Logger.Warn("read replica unavailable, reading from primary",
				slog.String("host", cfg.DBReadHost), slog.String("error", err.Error()))
		} else {
			ReadDB = replica
		}
	}

	DB = db
	return DB, nil
}

func openPostgres(dsn string, cfg *config.Config, gormCfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}
	if err := RegisterMetricsCallbacks(db); err != nil {
		return nil, err
	}
	return db, configurePool(db, cfg)
}

// sqliteDriver is go-sqlite3 with LOWER folding all of Unicode, as Postgres
// does. The built-in only folds ASCII, which breaks the case-insensitive
// article filters for names like "Élodie".
const sqliteDriver = "sqlite3_unicode_lower"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

// unicodeLower lowercases text and passes every other value through. NULL
// arrives as a nil []byte and goes back as NULL.
func unicodeLower(v any) any {
	switch v := v.(type) {
	case string:
		return strings.ToLower(v)
	case []byte:
		if v == nil {
			return nil
		}
		return strings.ToLower(string(v))
	}
	return v
}

// OpenSQLite opens a SQLite database on a single connection, so an in-memory
// database is the same database for every query.
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: NewGormLogger(middleware.Logger)}
	}
	dialector := sqlite.New(sqlite.Config{DriverName: sqliteDriver, DSN: SQLiteDSN(path)})
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Pool defaults when the config leaves them at zero.
const (
	defaultMaxOpenConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
)

type poolSettings struct {
	maxOpen, maxIdle int
	lifetime         time.Duration
}

func poolFromConfig(cfg *config.Config) poolSettings {
	p := poolSettings{
		maxOpen:  cfg.DBMaxOpenConns,
		maxIdle:  cfg.DBMaxIdleConns,
		lifetime: time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute,
	}
	if p.maxOpen <= 0 {
		p.maxOpen = defaultMaxOpenConns
	}
	if p.maxIdle <= 0 || p.maxIdle > p.maxOpen {
		p.maxIdle = p.maxOpen
	}
	if p.lifetime <= 0 {
		p.lifetime = defaultConnMaxLifetime
	}
	return p
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("access sql.DB: %w", err)
	}
	p := poolFromConfig(cfg)
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetConnMaxLifetime(p.lifetime)
	return nil
}

// Close closes the replica and the primary and clears both globals.
func Close() {
	for _, db := range []*gorm.DB{ReadDB, DB} {
		if db == nil {
			continue
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	ReadDB, DB = nil, nil
}
