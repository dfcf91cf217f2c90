// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conduit"

// Storage.
var (
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "errors_total",
		Help:      "Redis commands that failed, excluding cache misses.",
	}, []string{"operation"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Time spent in SQL statements issued through GORM.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation", "table"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache-aside lookups by cache and outcome.",
	}, []string{"cache", "outcome"})
)

// Application.
var (
	DomainEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_events_total",
		Help:      "Successful writes by kind, e.g. article_created or user_followed.",
	}, []string{"event"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests answered 429 by rule.",
	}, []string{"rule"})
)

// Realtime delivery.
var (
	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "connections",
		Help:      "Websocket connections open on this instance.",
	})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "events_published_total",
		Help:      "Events handed to the realtime publisher by type.",
	}, []string{"type"})

	RealtimeDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "events_dropped_total",
		Help:      "Events discarded because a queue was full.",
	}, []string{"stage"})
)

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// CountCacheLookup records one lookup against cache.
func CountCacheLookup(cache, outcome string) {
	CacheLookups.WithLabelValues(cache, outcome).Inc()
}

// CountRedisError records a failed Redis operation.
func CountRedisError(operation string) {
	RedisErrors.WithLabelValues(operation).Inc()
}

// CountDrop records an event lost at stage ("dispatcher", "client").
func CountDrop(stage string) {
	RealtimeDrops.WithLabelValues(stage).Inc()
}

// ObserveQuery records a statement that started at start.
func ObserveQuery(operation, table string, start time.Time) {
	QueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery is ObserveQuery for use with defer.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() { ObserveQuery(operation, table, start) }
}
