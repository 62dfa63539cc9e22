package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestGetStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		302: "3xx",
		400: "4xx",
		502: "5xx",
		0:   "other",
	}
	for code, want := range tests {
		require.Equal(t, want, GetStatusClass(code))
	}
}

func TestGetHandlerPattern(t *testing.T) {
	require.Equal(t, "graphql", GetHandlerPattern("/graphql"))
	require.Equal(t, "health", GetHandlerPattern("/health"))
	require.Equal(t, "other", GetHandlerPattern("/nope"))
}

func TestHealthHelpersLazilyInitialize(t *testing.T) {
	TrackError("test", "boom")
	TrackError("test", "boom")
	require.Equal(t, float64(2), testutil.ToFloat64(GetMetrics().Health.ErrorsTotal.WithLabelValues("test", "boom")))

	SetEndpointHealth("https://lcd.example", false)
	require.Equal(t, float64(0), testutil.ToFloat64(GetMetrics().Health.EndpointHealth.WithLabelValues("https://lcd.example")))
	SetEndpointHealth("https://lcd.example", true)
	require.Equal(t, float64(1), testutil.ToFloat64(GetMetrics().Health.EndpointHealth.WithLabelValues("https://lcd.example")))
}

func TestCacheObserver(t *testing.T) {
	observe := CacheObserver("test-cache")
	observe(true)
	observe(false)
	observe(false)
	require.Equal(t, float64(1), testutil.ToFloat64(GetMetrics().Health.CacheLookups.WithLabelValues("test-cache", "hit")))
	require.Equal(t, float64(2), testutil.ToFloat64(GetMetrics().Health.CacheLookups.WithLabelValues("test-cache", "miss")))
}

func TestRecoverError(t *testing.T) {
	work := func() (err error) {
		defer RecoverError("worker", &err)
		panic("nil map")
	}
	err := work()
	require.ErrorContains(t, err, "worker: recovered panic: nil map")
	require.Equal(t, float64(1), testutil.ToFloat64(GetMetrics().Health.PanicsTotal.WithLabelValues("worker")))

	families, err := Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
