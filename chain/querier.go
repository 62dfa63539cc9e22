package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/usemiddleman/middleman/cache"
	"github.com/usemiddleman/middleman/config"
	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/sentry_integration"
	"github.com/usemiddleman/middleman/types"
)

const (
	querySmartDataPath = "/cosmwasm/wasm/v1/contract/%s/smart/%s"
	maxRetriesPerURL   = 2
)

// Querier talks to the chain through its LCD REST endpoints.
type Querier struct {
	ChainId              string
	RestUrls             []string
	EscrowContract       string
	AccountAddressPrefix string
	IPFSGateway          string

	timeout time.Duration
	http    *getter
	health  *healthTracker
	backoff func(attempt int) time.Duration
	logger  *slog.Logger

	nftInfo  *cache.Cache[string, types.NftInfoResponse]
	metadata *cache.TTLCache[metadataDoc]
}

type Option func(*Querier)

// WithBackoff replaces the delay between retries.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(q *Querier) {
		q.backoff = fn
	}
}

func NewQuerier(cfg *config.ChainConfig, cacheCfg *config.CacheConfig, maxConcurrent int, logger *slog.Logger, opts ...Option) *Querier {
	q := &Querier{
		ChainId:              cfg.ChainId,
		RestUrls:             cfg.RestUrls,
		EscrowContract:       cfg.EscrowContract,
		AccountAddressPrefix: cfg.AccountAddressPrefix,
		IPFSGateway:          cfg.IPFSGateway,
		timeout:              cfg.QueryTimeout,
		http:                 newGetter(maxConcurrent),
		health:               newHealthTracker(),
		backoff:              calculateBackoffDelay,
		logger:               logger.With("component", "chain"),
		nftInfo:              cache.New[string, types.NftInfoResponse](cacheCfg.NftInfoCacheSize),
		metadata:             cache.NewTTL[metadataDoc](cacheCfg.MetadataCacheSize, cacheCfg.MetadataCacheTTL).WithObserver(metrics.CacheObserver("token_metadata")),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// requestFunc performs one request against a single endpoint.
type requestFunc[T any] func(ctx context.Context, endpointURL string) (*T, error)

// executeWithEndpointRotation retries the current endpoint up to
// maxRetriesPerURL times, then rotates. It starts at the first healthy
// endpoint and gives up after one full round.
func executeWithEndpointRotation[T any](ctx context.Context, q *Querier, requestFn requestFunc[T]) (*T, error) {
	endpoints := q.RestUrls
	if len(endpoints) == 0 {
		return nil, types.NewConfigError("no rest urls configured", nil)
	}

	start := q.health.firstHealthy(endpoints)
	var lastErr error

	for i := 0; i < len(endpoints); i++ {
		endpoint := endpoints[(start+i)%len(endpoints)]
		if i > 0 {
			metrics.GetMetrics().ExternalAPI.EndpointRotations.Inc()
			q.logger.Debug("rotating rest endpoint", slog.String("endpoint", endpoint))
		}

		for attempt := 1; attempt <= maxRetriesPerURL; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			res, err := requestFn(ctx, endpoint)
			if err == nil {
				q.health.recordSuccess(endpoint)
				return res, nil
			}
			lastErr = err
			q.health.recordFailure(endpoint)

			// a contract error will not change on retry
			var httpErr *httpError
			if errors.As(err, &httpErr) && httpErr.Code >= 400 && httpErr.Code < 500 && httpErr.Code != 429 {
				return nil, err
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(q.backoff(attempt)):
			}
		}
	}

	sentry_integration.CaptureCurrentHubException(lastErr, sentry.LevelError)
	return nil, fmt.Errorf("exhausted all endpoints: %w", lastErr)
}

// querySmart runs a cosmwasm smart query and returns the inner data field.
func (q *Querier) querySmart(ctx context.Context, contract string, query any) (json.RawMessage, error) {
	msg, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf(querySmartDataPath, contract, base64.URLEncoding.EncodeToString(msg))

	res, err := executeWithEndpointRotation(ctx, q, func(ctx context.Context, endpointURL string) (*types.SmartQueryResponse, error) {
		body, err := q.http.get(ctx, "lcd", strings.TrimRight(endpointURL, "/")+path, q.timeout)
		if err != nil {
			return nil, err
		}
		var out types.SmartQueryResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// smartQuery decodes the data of a smart query into T.
func smartQuery[T any](ctx context.Context, q *Querier, contract string, query any) (*T, error) {
	data, err := q.querySmart(ctx, contract, query)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode smart query response: %w", err)
	}
	return &out, nil
}
