package featureflags

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%,over=150%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.Enabled("always", 0), "full rollout covers anonymous users")
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))
	assert.True(t, m.Enabled("over", 7), "rollouts above 100% are clamped")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout evaluation must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0), "percentage rollout requires non-zero userID")

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 80)
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,=on,w= ")

	assert.Equal(t, "x=on,y=20%,z=off", m.String())

	snap := m.Snapshot(123)
	assert.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestReload(t *testing.T) {
	m := NewManager("realtime=on")
	assert.True(t, m.Enabled(Realtime, 1))
	assert.False(t, m.Enabled(StrictPasswords, 1))

	m.Reload("realtime=off,strict_passwords=on")
	assert.False(t, m.Enabled(Realtime, 1))
	assert.True(t, m.Enabled(StrictPasswords, 1))
}

func TestNilManagerIsDisabled(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(Realtime, 1))
	assert.Empty(t, m.Snapshot(1))
	assert.Empty(t, m.String())
}

func TestConcurrentReload(t *testing.T) {
	m := NewManager("realtime=on")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					m.Reload("realtime=off")
				} else {
					_ = m.Enabled(Realtime, uint(j+1))
				}
			}
		}(i)
	}
	wg.Wait()
	assert.False(t, m.Enabled(Realtime, 1))
}
