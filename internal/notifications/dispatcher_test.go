package notifications

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDispatcher_RunsJobsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDispatcher(16)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, d.Enqueue(func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDispatcher(1)
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	assert.ErrorIs(t, d.Enqueue(func(context.Context) {}), ErrDispatcherStopped)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDispatcher(1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, d.Enqueue(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, d.Enqueue(func(context.Context) {}))
	assert.ErrorIs(t, d.Enqueue(func(context.Context) {}), ErrQueueFull)

	close(release)
	require.NoError(t, d.Stop(context.Background()))
}

func TestDispatcher_SurvivesPanics(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := NewDispatcher(4)
	var ran atomic.Bool

	require.NoError(t, d.Enqueue(func(context.Context) { panic("boom") }))
	require.NoError(t, d.Enqueue(func(context.Context) { ran.Store(true) }))

	require.NoError(t, d.Stop(context.Background()))
	assert.True(t, ran.Load())
}

func TestDispatcher_StopHonoursDeadline(t *testing.T) {
	d := NewDispatcher(1)
	release := make(chan struct{})
	require.NoError(t, d.Enqueue(func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Stop(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, d.Stop(context.Background()))
}
