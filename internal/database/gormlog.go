package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// gormSlog sends GORM output to slog. Not-found errors are normal control
// flow in the repositories and are never logged.
type gormSlog struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger logs errors and statements slower than 200ms.
func NewGormLogger(l *slog.Logger) logger.Interface {
	return gormSlog{log: l, level: logger.Warn, slow: slowQuery}
}

func (g gormSlog) LogMode(level logger.LogLevel) logger.Interface {
	g.level = level
	return g
}

func (g gormSlog) Info(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (g gormSlog) Warn(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (g gormSlog) Error(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, logger.Error, slog.LevelError, msg, args)
}

func (g gormSlog) printf(ctx context.Context, threshold logger.LogLevel, level slog.Level, msg string, args []any) {
	if g.level >= threshold {
		g.log.Log(ctx, level, fmt.Sprintf(msg, args...))
	}
}

func (g gormSlog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		level slog.Level
		msg   string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		level, msg = slog.LevelError, "query failed"
	case g.slow > 0 && elapsed > g.slow && g.level >= logger.Warn:
		level, msg = slog.LevelWarn, "slow query"
	case g.level >= logger.Info:
		level, msg = slog.LevelInfo, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if level == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	g.log.LogAttrs(ctx, level, msg, attrs...)
}
