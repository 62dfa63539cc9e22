package chain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthTrackerThreshold(t *testing.T) {
	h := newHealthTracker()
	endpoint := "https://lcd.test"

	for i := 0; i < failureThreshold-1; i++ {
		h.recordFailure(endpoint)
	}
	require.True(t, h.healthy(endpoint))

	h.recordFailure(endpoint)
	require.False(t, h.healthy(endpoint))

	h.recordSuccess(endpoint)
	require.True(t, h.healthy(endpoint))
	require.Zero(t, h.failures(endpoint))
}

func TestHealthTrackerRecovery(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h := newHealthTracker()
	h.now = func() time.Time { return now }

	for i := 0; i < failureThreshold; i++ {
		h.recordFailure("a")
	}
	require.False(t, h.healthy("a"))

	now = now.Add(recoveryTimeout - time.Second)
	require.False(t, h.healthy("a"))

	now = now.Add(time.Second)
	require.True(t, h.healthy("a"))
}

func TestFirstHealthy(t *testing.T) {
	h := newHealthTracker()
	endpoints := []string{"a", "b", "c"}
	require.Equal(t, 0, h.firstHealthy(endpoints))

	for i := 0; i < failureThreshold; i++ {
		h.recordFailure("a")
		h.recordFailure("b")
	}
	require.Equal(t, 2, h.firstHealthy(endpoints))

	for i := 0; i < failureThreshold; i++ {
		h.recordFailure("c")
	}
	require.Equal(t, 0, h.firstHealthy(endpoints))
}

func TestHealthTrackerConcurrentUpdates(t *testing.T) {
	h := newHealthTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.recordFailure("x")
		}()
	}
	wg.Wait()
	require.Equal(t, int32(50), h.failures("x"))
}
