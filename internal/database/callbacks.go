package database

import (
	"time"

	"conduit/internal/observability"

	"gorm.io/gorm"
)

const startTimeKey = "conduit:query_start"

// RegisterMetricsCallbacks records the latency of every GORM operation in
// the conduit_db_query_duration_seconds histogram.
func RegisterMetricsCallbacks(db *gorm.DB) error {
	type hook struct {
		name     string
		register func(before, after func(*gorm.DB)) error
	}

	cb := db.Callback()
	hooks := []hook{
		{"create", func(before, after func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("metrics:after_create", after)
		}},
		{"query", func(before, after func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("metrics:after_query", after)
		}},
		{"update", func(before, after func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("metrics:after_update", after)
		}},
		{"delete", func(before, after func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("metrics:after_delete", after)
		}},
		{"row", func(before, after func(*gorm.DB)) error {
			if err := cb.Row().Before("gorm:row").Register("metrics:before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("metrics:after_row", after)
		}},
		{"raw", func(before, after func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("metrics:before_raw", before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("metrics:after_raw", after)
		}},
	}

	for _, h := range hooks {
		if err := h.register(markStart, observeLatency(h.name)); err != nil {
			return err
		}
	}
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func observeLatency(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		observability.ObserveQuery(operation, table, start)
	}
}
