// Package config loads settings from config.yml, an optional per-environment
// config.<env>.yml and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config keys match the environment variable names.
type Config struct {
	JWTSecret                     string  `mapstructure:"JWT_SECRET"`
	JWTExpireMinutes              int     `mapstructure:"JWT_EXPIRE_MINUTES"`
	Port                          string  `mapstructure:"PORT"`
	DBDriver                      string  `mapstructure:"DB_DRIVER"`
	DBPath                        string  `mapstructure:"DB_PATH"`
	DBHost                        string  `mapstructure:"DB_HOST"`
	DBPort                        string  `mapstructure:"DB_PORT"`
	DBUser                        string  `mapstructure:"DB_USER"`
	DBPassword                    string  `mapstructure:"DB_PASSWORD"`
	DBName                        string  `mapstructure:"DB_NAME"`
	DBSSLMode                     string  `mapstructure:"DB_SSLMODE"`
	DBReadHost                    string  `mapstructure:"DB_READ_HOST"`
	DBReadPort                    string  `mapstructure:"DB_READ_PORT"`
	DBReadUser                    string  `mapstructure:"DB_READ_USER"`
	DBReadPassword                string  `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns                int     `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int     `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int     `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string  `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool    `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	RedisURL                      string  `mapstructure:"REDIS_URL"`
	AllowedOrigins                string  `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags                  string  `mapstructure:"FEATURE_FLAGS"`
	Env                           string  `mapstructure:"APP_ENV"`
	TracingEnabled                bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter               string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint                  string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio            float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
	SeedFixture                   string  `mapstructure:"SEED_FIXTURE"`
}

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// defaults are development values. Registering every key also lets
// AutomaticEnv override keys that appear in no file.
var defaults = map[string]any{
	"PORT":                             "8375",
	"APP_ENV":                          "development",
	"DB_DRIVER":                        "postgres",
	"DB_PATH":                          "conduit.db",
	"DB_HOST":                          "localhost",
	"DB_PORT":                          "5432",
	"DB_USER":                          "user",
	"DB_PASSWORD":                      "password",
	"DB_NAME":                          "conduit",
	"DB_SSLMODE":                       "disable",
	"DB_READ_HOST":                     "",
	"DB_READ_PORT":                     "5432",
	"DB_READ_USER":                     "user",
	"DB_READ_PASSWORD":                 "password",
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                10,
	"DB_CONN_MAX_LIFETIME_MINUTES":     30,
	"DB_SCHEMA_MODE":                   SchemaModeHybrid,
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,
	"REDIS_URL":                        "localhost:6379",
	"JWT_SECRET":                       defaultJWTSecret,
	"JWT_EXPIRE_MINUTES":               60 * 24 * 8,
	"ALLOWED_ORIGINS":                  "http://localhost:4100,http://localhost:3000,http://127.0.0.1:4100",
	"FEATURE_FLAGS":                    "realtime=on",
	"TRACING_ENABLED":                  false,
	"TRACING_EXPORTER":                 "stdout",
	"OTLP_ENDPOINT":                    "localhost:4318",
	"TRACING_SAMPLE_RATIO":             1.0,
	"SEED_FIXTURE":                     "",
}

// SetDefaults registers defaults with the global viper instance.
func SetDefaults() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// LoadConfig reads, normalizes and validates the configuration. Environments
// other than development and test must ship a config.<env>.yml.
func LoadConfig() (*Config, error) {
	for _, dir := range []string{".", "..", "../.."} {
		viper.AddConfigPath(dir)
	}
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; it may only be setting APP_ENV.
	viper.SetConfigName("config")
	_ = viper.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(viper.GetString("APP_ENV")))
	switch env {
	case "", "development", "test":
	default:
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("APP_ENV=%s needs config.%s.yml: %w", env, env, err)
		}
		slog.Info("merged environment config", "file", viper.ConfigFileUsed())
	}

	SetDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for _, f := range []*string{&c.DBSSLMode, &c.DBDriver, &c.DBSchemaMode, &c.Env} {
		*f = strings.ToLower(strings.TrimSpace(*f))
	}
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsProdLike reports whether the environment holds data that must survive a
// deploy, which includes staging.
func (c *Config) IsProdLike() bool {
	return c.IsProduction() || c.Env == "staging" || c.Env == "stage"
}

func (c *Config) IsSQLite() bool {
	return c.DBDriver == "sqlite"
}

// Validate reports every problem at once, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Port == "" {
		add("PORT is required")
	}
	if c.JWTSecret == "" {
		add("JWT_SECRET is required")
	}
	if c.JWTExpireMinutes <= 0 {
		add("JWT_EXPIRE_MINUTES must be positive")
	}
	switch c.DBDriver {
	case "", "postgres":
	case "sqlite":
		if c.DBPath == "" {
			add("DB_PATH is required when DB_DRIVER is sqlite")
		}
	default:
		add("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.DBSchemaMode {
	case "", SchemaModeHybrid, SchemaModeSQL, SchemaModeAuto:
	default:
		add("unsupported DB_SCHEMA_MODE %q", c.DBSchemaMode)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		add("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			add("JWT_SECRET still has the default value")
		} else if len(c.JWTSecret) < 32 {
			add("JWT_SECRET must be at least 32 characters in production")
		}
		if c.IsSQLite() {
			add("DB_DRIVER sqlite is not supported in production")
		}
		if c.DBPassword == "" || c.DBPassword == "password" {
			add("DB_PASSWORD must be set to a real password in production")
		}
		if c.DBSSLMode == "" || c.DBSSLMode == "disable" {
			add("DB_SSLMODE must enable SSL in production")
		}
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are legal but risky.
func (c *Config) Warnings() []string {
	var out []string
	if c.IsProduction() && c.AllowedOrigins == "*" {
		out = append(out, "ALLOWED_ORIGINS is * in production")
	}
	if !c.IsProduction() && len(c.JWTSecret) < 32 {
		out = append(out, "JWT_SECRET is shorter than 32 characters")
	}
	return out
}
