package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountHelpers(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("profile_test", CacheHit))
	CountCacheLookup("profile_test", CacheHit)
	CountCacheLookup("profile_test", CacheHit)
	assert.Equal(t, before+2, testutil.ToFloat64(CacheLookups.WithLabelValues("profile_test", CacheHit)))

	before = testutil.ToFloat64(RealtimeDrops.WithLabelValues("client"))
	CountDrop("client")
	assert.Equal(t, before+1, testutil.ToFloat64(RealtimeDrops.WithLabelValues("client")))

	before = testutil.ToFloat64(RedisErrors.WithLabelValues("get_test"))
	CountRedisError("get_test")
	assert.Equal(t, before+1, testutil.ToFloat64(RedisErrors.WithLabelValues("get_test")))
}

func TestTrackQueryObservesLatency(t *testing.T) {
	done := TrackQuery("select", "articles_test")
	done()

	assert.Equal(t, 1, testutil.CollectAndCount(QueryDuration, "conduit_db_query_duration_seconds"))
}
