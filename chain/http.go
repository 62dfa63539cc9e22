package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/semaphore"

	"github.com/usemiddleman/middleman/metrics"
)

const (
	baseBackoffDelay  = 250 * time.Millisecond
	maxBackoffDelay   = 10 * time.Second
	backoffMultiplier = 2.0
	jitterFactor      = 0.1
)

// calculateBackoffDelay is exponential with +/- jitterFactor jitter.
func calculateBackoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return baseBackoffDelay
	}

	baseSeconds := baseBackoffDelay.Seconds()
	delaySeconds := baseSeconds * math.Pow(backoffMultiplier, float64(attempt-1))
	if maxSeconds := maxBackoffDelay.Seconds(); delaySeconds > maxSeconds {
		delaySeconds = maxSeconds
	}

	delaySeconds += delaySeconds * jitterFactor * (2*rand.Float64() - 1)
	if delaySeconds < baseSeconds {
		delaySeconds = baseSeconds
	}
	return time.Duration(delaySeconds*1000+0.5) * time.Millisecond
}

// lcdErrorResponse is the grpc-gateway error body of the REST server.
type lcdErrorResponse struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// httpError is a non-2xx answer.
type httpError struct {
	Code int
	Body string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http response: %d, body: %s", e.Code, e.Body)
}

// getter performs limited, instrumented GET requests.
type getter struct {
	client  *fiber.Client
	limiter *semaphore.Weighted
}

func newGetter(maxConcurrent int) *getter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &getter{
		client:  fiber.AcquireClient(),
		limiter: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// get returns the body of a 200 answer. label names the endpoint in metrics.
func (g *getter) get(ctx context.Context, label, url string, timeout time.Duration) ([]byte, error) {
	body, _, err := g.do(ctx, label, url, timeout, nil)
	return body, err
}

// do is get that also hands back the response content type.
func (g *getter) do(ctx context.Context, label, url string, timeout time.Duration, headers map[string]string) ([]byte, string, error) {
	m := metrics.GetMetrics().ExternalAPI

	waitStart := time.Now()
	if err := g.limiter.Acquire(ctx, 1); err != nil {
		return nil, "", fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer g.limiter.Release(1)
	m.SemaphoreWaitDuration.Observe(time.Since(waitStart).Seconds())

	start := time.Now()
	m.ConcurrentActive.Inc()
	defer func() {
		m.ConcurrentActive.Dec()
		m.Latency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, "", context.DeadlineExceeded
	}

	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)

	agent := g.client.Get(url)
	for k, v := range headers {
		agent.Set(k, v)
	}
	code, body, errs := agent.SetResponse(resp).MaxRedirectsCount(5).Timeout(timeout).Bytes()
	if err := errors.Join(errs...); err != nil {
		m.RequestsTotal.WithLabelValues(label, "error").Inc()
		return nil, "", err
	}
	m.RequestsTotal.WithLabelValues(label, strconv.Itoa(code)).Inc()

	contentType := string(resp.Header.ContentType())

	switch {
	case code >= 200 && code < 300:
		return body, contentType, nil
	case code == fiber.StatusTooManyRequests:
		m.RateLimitHitsTotal.WithLabelValues(label).Inc()
		return nil, "", errors.Join(fiber.ErrTooManyRequests, &httpError{Code: code, Body: string(body)})
	case code == fiber.StatusInternalServerError:
		var res lcdErrorResponse
		if err := json.Unmarshal(body, &res); err == nil && res.Message != "" {
			return nil, "", &httpError{Code: code, Body: res.Message}
		}
	}
	return nil, "", &httpError{Code: code, Body: string(body)}
}
