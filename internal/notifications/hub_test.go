package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(10))
	assert.False(t, hub.IsOnline(99))

	assert.Equal(t, 2, hub.Broadcast(10, "hello"))
	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Empty(t, other.Send)

	assert.Zero(t, hub.Broadcast(99, "nobody"))
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(5, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(6, nil)
	assert.NoError(t, err)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	assert.False(t, hub.IsOnline(1))
	assert.Zero(t, hub.ConnectionCount())
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_FullBufferDrops(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, hub.Broadcast(1, "x"))
	}
	assert.Zero(t, hub.Broadcast(1, "overflow"))
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	_, open := <-c.Send
	assert.False(t, open)
	assert.Zero(t, hub.ConnectionCount())

	_, err = hub.Register(2, nil)
	assert.ErrorIs(t, err, ErrHubClosed)

	// Unregistering after shutdown must not double-close.
	hub.UnregisterClient(c)
}
