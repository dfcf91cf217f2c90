package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"conduit/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagService_ListCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	var calls atomic.Int32
	repo := &tagRepoStub{
		listFn: func(context.Context) ([]string, error) {
			calls.Add(1)
			return []string{"dragons", "training"}, nil
		},
	}
	svc := NewTagService(repo)
	ctx := context.Background()

	tags, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dragons", "training"}, tags)
	assert.True(t, mr.Exists(cache.TagsKey))
	ttl := mr.TTL(cache.TagsKey)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, cache.TagsTTL)

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	svc.Invalidate(ctx)
	assert.False(t, mr.Exists(cache.TagsKey))
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTagService_CollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	repo := &tagRepoStub{
		listFn: func(context.Context) ([]string, error) {
			calls.Add(1)
			<-release
			return []string{"go"}, nil
		},
	}
	svc := NewTagService(repo)

	const callers = 8
	var started, wg sync.WaitGroup
	started.Add(callers)
	wg.Add(callers)
	results := make([][]string, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			started.Done()
			tags, err := svc.List(context.Background())
			assert.NoError(t, err)
			results[i] = tags
		}(i)
	}
	started.Wait()
	// Let every caller reach the singleflight group before the fetch returns.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"go"}, r)
	}
}

func TestTagService_EmptyVocabulary(t *testing.T) {
	repo := &tagRepoStub{listFn: func(context.Context) ([]string, error) { return []string{}, nil }}
	tags, err := NewTagService(repo).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestTagService_LoadIgnoresCallerCancellation(t *testing.T) {
	repo := &tagRepoStub{listFn: func(ctx context.Context) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []string{"go"}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tags, err := NewTagService(repo).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, tags)
}
