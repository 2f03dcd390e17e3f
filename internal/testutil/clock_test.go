package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_DefaultsToEpoch(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Second)
	assert.Equal(t, Epoch, clock.Peek())
}

func TestStepClock_NowAdvancesByStep(t *testing.T) {
	clock := NewStepClock(Epoch, time.Minute)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Minute), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Minute), clock.Peek())
}

func TestStepClock_Frozen(t *testing.T) {
	clock := NewFrozenClock(Epoch)
	for i := 0; i < 3; i++ {
		assert.Equal(t, Epoch, clock.Now())
	}
}

func TestStepClock_AdvanceAndSet(t *testing.T) {
	clock := NewFrozenClock(Epoch)

	clock.Advance(72 * time.Hour)
	assert.Equal(t, Epoch.Add(72*time.Hour), clock.Now())

	later := time.Date(2026, 3, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	clock.Set(later)
	assert.Equal(t, time.UTC, clock.Now().Location())
	assert.True(t, later.Equal(clock.Now()))
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(Epoch, time.Second)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every call observed a distinct instant
	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, Epoch.Add(numGoroutines*callsPerGoroutine*time.Second), clock.Peek())
}
