package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/usemiddleman/middleman/config"
	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/types"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"

	snippetLength = 160
)

// Request is the POST body of a GraphQL call.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Error is one entry of the GraphQL errors array.
type Error struct {
	Message string `json:"message"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// Client sends GraphQL documents to a single endpoint. GET is tried first
// because a simple GET needs no CORS preflight; POST is the fallback.
type Client struct {
	http            *fiber.Client
	endpoint        string
	userAgent       string
	timeout         time.Duration
	maxGetURLLength int
	logger          *slog.Logger
}

func NewClient(cfg *config.IndexerConfig, logger *slog.Logger) *Client {
	maxLen := cfg.MaxGetURLLength
	if maxLen <= 0 {
		maxLen = config.DefaultMaxGetURLLength
	}
	return &Client{
		http:            fiber.AcquireClient(),
		endpoint:        cfg.URL,
		userAgent:       cfg.UserAgent,
		timeout:         cfg.Timeout,
		maxGetURLLength: maxLen,
		logger:          logger.With("component", "graphql"),
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send executes document and returns the raw data field. Every failure is a
// *types.TransportError.
func (c *Client) Send(ctx context.Context, document string, variables map[string]any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.TransportError{Message: "request not sent", Cause: err}
	}

	getURL, err := c.BuildGetURL(document, variables)
	if err != nil {
		return nil, &types.TransportError{Method: MethodGet, Message: "encode variables", Cause: err}
	}

	if len(getURL) <= c.maxGetURLLength {
		env, status, err := c.roundTrip(ctx, MethodGet, getURL, nil)
		if err == nil {
			// GraphQL errors on a 2xx GET are the server's final answer
			return env.result(MethodGet, status)
		}
		c.logger.Debug("GET failed, retrying as POST", slog.String("error", err.Error()))
		metrics.GetMetrics().Indexer.PostFallbackTotal.WithLabelValues("get_failed").Inc()
	} else {
		metrics.GetMetrics().Indexer.PostFallbackTotal.WithLabelValues("url_too_long").Inc()
	}

	if variables == nil {
		variables = map[string]any{}
	}
	body, err := json.Marshal(Request{Query: document, Variables: variables})
	if err != nil {
		return nil, &types.TransportError{Method: MethodPost, Message: "encode request", Cause: err}
	}

	env, status, err := c.roundTrip(ctx, MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	return env.result(MethodPost, status)
}

// BuildGetURL embeds query and, when present, JSON encoded variables in the
// endpoint's query string.
func (c *Client) BuildGetURL(document string, variables map[string]any) (string, error) {
	params := url.Values{}
	params.Set("query", document)
	if len(variables) > 0 {
		raw, err := json.Marshal(variables)
		if err != nil {
			return "", err
		}
		params.Set("variables", string(raw))
	}

	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + params.Encode(), nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, body []byte) (*envelope, int, error) {
	start := time.Now()

	var agent *fiber.Agent
	if method == MethodGet {
		agent = c.http.Get(target)
	} else {
		agent = c.http.Post(target).
			Body(body).
			ContentType(fiber.MIMEApplicationJSON)
	}
	agent.UserAgent(c.userAgent)
	if timeout := c.effectiveTimeout(ctx); timeout > 0 {
		agent.Timeout(timeout)
	}

	code, respBody, errs := agent.Bytes()

	m := metrics.GetMetrics().Indexer
	m.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err := errors.Join(errs...); err != nil {
		m.RequestsTotal.WithLabelValues(method, "error").Inc()
		return nil, 0, &types.TransportError{Method: method, Message: "request failed", Cause: err}
	}
	m.RequestsTotal.WithLabelValues(method, metrics.GetStatusClass(code)).Inc()

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if code < 200 || code >= 300 {
		msg := snippet(respBody)
		if decodeErr == nil && len(env.Errors) > 0 {
			msg = joinMessages(env.Errors)
		}
		return nil, code, &types.TransportError{Method: method, HTTPStatus: code, Message: msg}
	}
	if decodeErr != nil {
		return nil, code, &types.TransportError{Method: method, HTTPStatus: code, Message: "non-JSON response", Cause: decodeErr}
	}
	return &env, code, nil
}

// effectiveTimeout caps the configured timeout by the context deadline.
func (c *Client) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (e *envelope) result(method string, status int) (json.RawMessage, error) {
	if len(e.Errors) > 0 {
		return nil, &types.TransportError{Method: method, HTTPStatus: status, Message: joinMessages(e.Errors)}
	}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil, &types.TransportError{Method: method, HTTPStatus: status, Message: "no data"}
	}
	return e.Data, nil
}

func joinMessages(errs []Error) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > snippetLength {
		s = s[:snippetLength]
	}
	if s == "" {
		return "empty body"
	}
	return fmt.Sprintf("body: %s", s)
}
