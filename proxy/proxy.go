package proxy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/usemiddleman/middleman/config"
	"github.com/usemiddleman/middleman/metrics"
)

const bodyLimit = 1 << 20

// Proxy forwards browser GraphQL requests to the indexer with CORS headers
// the indexer itself does not send.
type Proxy struct {
	cfg     *config.ProxyConfig
	timeout time.Duration
	client  *fiber.Client
	logger  *slog.Logger
	app     *fiber.App
}

func New(cfg *config.ProxyConfig, timeout time.Duration, logger *slog.Logger) *Proxy {
	p := &Proxy{
		cfg:     cfg,
		timeout: timeout,
		client:  fiber.AcquireClient(),
		logger:  logger.With("component", "proxy"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "middleman proxy",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})
	app.Use(recover.New())
	app.Use(p.observe)
	app.Use(p.cors)
	app.Get("/health", health)
	app.All("/graphql", p.graphql)
	p.app = app

	return p
}

// App exposes the fiber app, mainly for app.Test.
func (p *Proxy) App() *fiber.App {
	return p.app
}

func (p *Proxy) Start() error {
	p.logger.Info("starting GraphQL proxy",
		slog.String("addr", ":"+p.cfg.Port),
		slog.String("target", p.cfg.Target))
	return p.app.Listen(":" + p.cfg.Port)
}

func (p *Proxy) Shutdown() error {
	p.logger.Info("shutting down GraphQL proxy")
	return p.app.Shutdown()
}

func health(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// cors echoes allowed origins and answers every preflight with 204.
func (p *Proxy) cors(c *fiber.Ctx) error {
	if origin := c.Get(fiber.HeaderOrigin); origin != "" && p.cfg.OriginAllowed(origin) {
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Vary(fiber.HeaderOrigin)
	}
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET,POST,OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type,Authorization")
	if c.Method() == fiber.MethodOptions {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Next()
}

func (p *Proxy) observe(c *fiber.Ctx) error {
	m := metrics.GetMetrics().HTTP
	start := time.Now()
	handler := metrics.GetHandlerPattern(c.Path())

	m.RequestsInFlight.Inc()
	defer m.RequestsInFlight.Dec()

	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	m.RequestsTotal.WithLabelValues(c.Method(), handler, metrics.GetStatusClass(status)).Inc()
	m.RequestDuration.WithLabelValues(c.Method(), handler).Observe(time.Since(start).Seconds())
	return err
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlErrors struct {
	Errors []gqlError `json:"errors"`
}

type upstreamRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables"`
}

func (p *Proxy) graphql(c *fiber.Ctx) error {
	query, variables := readRequest(c)
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(gqlErrors{Errors: []gqlError{{Message: "Missing GraphQL query"}}})
	}
	if variables == nil {
		variables = map[string]any{}
	}

	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)

	code, body, errs := p.client.Post(p.cfg.Target).
		JSON(upstreamRequest{Query: query, Variables: variables}).
		SetResponse(resp).
		Timeout(p.timeout).
		Bytes()
	if err := errors.Join(errs...); err != nil {
		metrics.GetMetrics().HTTP.UpstreamErrorsTotal.Inc()
		metrics.TrackError("proxy", "upstream")
		p.logger.Warn("upstream request failed", slog.String("error", err.Error()))
		return c.Status(fiber.StatusBadGateway).JSON(gqlErrors{Errors: []gqlError{{Message: "Proxy error: " + err.Error()}}})
	}

	contentType := string(resp.Header.ContentType())
	if contentType == "" {
		contentType = fiber.MIMEApplicationJSON
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(code).Send(body)
}

// readRequest extracts query and variables from a GET query string or a
// JSON body. Variables given as a JSON string are decoded when possible.
func readRequest(c *fiber.Ctx) (string, any) {
	if c.Method() == fiber.MethodGet {
		var variables any
		if v := c.Query("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &variables); err != nil {
				variables = nil
			}
		}
		return c.Query("query"), variables
	}

	var body struct {
		Query     any `json:"query"`
		Variables any `json:"variables"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return "", nil
	}
	query, _ := body.Query.(string)
	if s, ok := body.Variables.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			body.Variables = decoded
		}
	}
	return query, body.Variables
}
