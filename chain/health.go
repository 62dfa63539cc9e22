package chain

import (
	"sync"
	"time"

	"github.com/usemiddleman/middleman/metrics"
)

const (
	// consecutive failures before an endpoint is skipped
	failureThreshold = 3
	recoveryTimeout  = 5 * time.Minute
)

type healthState struct {
	failures      int32
	lastFailureAt time.Time
}

// healthTracker is a per-endpoint circuit breaker. An endpoint that failed
// failureThreshold times in a row is skipped until recoveryTimeout passed.
type healthTracker struct {
	mu    sync.RWMutex
	state map[string]healthState
	now   func() time.Time
}

func newHealthTracker() *healthTracker {
	return &healthTracker{state: make(map[string]healthState), now: time.Now}
}

func (h *healthTracker) recordSuccess(endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.state, endpoint)
	metrics.SetEndpointHealth(endpoint, true)
}

func (h *healthTracker) recordFailure(endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.state[endpoint]
	s = healthState{failures: s.failures + 1, lastFailureAt: h.now()}
	h.state[endpoint] = s
	if s.failures == failureThreshold {
		metrics.SetEndpointHealth(endpoint, false)
	}
}

func (h *healthTracker) failures(endpoint string) int32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state[endpoint].failures
}

func (h *healthTracker) healthy(endpoint string) bool {
	h.mu.RLock()
	s, ok := h.state[endpoint]
	h.mu.RUnlock()

	if !ok || s.failures < failureThreshold {
		return true
	}
	if s.lastFailureAt.IsZero() {
		return false
	}
	return h.now().Sub(s.lastFailureAt) >= recoveryTimeout
}

// firstHealthy returns the index of the first healthy endpoint, or 0 if none
// is healthy.
func (h *healthTracker) firstHealthy(endpoints []string) int {
	for i, endpoint := range endpoints {
		if h.healthy(endpoint) {
			return i
		}
	}
	return 0
}
