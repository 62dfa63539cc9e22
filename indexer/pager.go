package indexer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/sentry_integration"
	"github.com/usemiddleman/middleman/types"
)

// Page is one page of entities behind an opaque cursor.
type Page[T any] struct {
	Entities   []T    `json:"entities"`
	NextCursor string `json:"next_cursor,omitempty"`
	Variant    string `json:"variant"`
}

// Pager assembles result sets from executor pages.
type Pager[T any] struct {
	exec    *Executor[T]
	key     func(T) string
	ceiling int
	logger  *slog.Logger
}

// NewPager: key identifies an entity for dedup, ceiling bounds FetchAll
// iterations against a server that never reports the last page.
func NewPager[T any](exec *Executor[T], key func(T) string, ceiling int, logger *slog.Logger) *Pager[T] {
	return &Pager[T]{
		exec:    exec,
		key:     key,
		ceiling: ceiling,
		logger:  logger.With("component", "pager", "operation", exec.Operation()),
	}
}

func (p *Pager[T]) FetchPage(ctx context.Context, target, cursor string, limit int) (Page[T], error) {
	res, err := p.exec.Execute(ctx, Params{Target: target, Limit: limit, Cursor: cursor})
	if err != nil {
		return Page[T]{}, err
	}
	metrics.GetMetrics().Indexer.PagesFetchedTotal.WithLabelValues(p.exec.Operation()).Inc()
	return Page[T]{Entities: res.Items, NextCursor: res.NextCursor, Variant: res.Variant}, nil
}

// FetchAll follows cursors until the last page, maxTotal entities or the
// iteration ceiling. A failing page ends the loop and the entities gathered
// so far are returned together with the error. An invalidated cursor
// restarts from the first page once; dedup makes the restart safe.
func (p *Pager[T]) FetchAll(ctx context.Context, target string, maxTotal, perPage int) ([]T, error) {
	span, ctx := sentry_integration.StartSentrySpan(ctx, "indexer.fetch_all", p.exec.Operation())
	defer span.Finish()

	out := make([]T, 0)
	seen := make(map[string]struct{})
	cursor := ""
	restarted := false

	for i := 0; i < p.ceiling && len(out) < maxTotal; i++ {
		page, err := p.FetchPage(ctx, target, cursor, perPage)
		if err != nil {
			if errors.Is(err, types.ErrCursorInvalidated) && !restarted {
				p.logger.Warn("cursor invalidated, restarting from the first page", slog.String("error", err.Error()))
				restarted = true
				cursor = ""
				continue
			}
			p.logger.Error("page fetch failed, returning partial results",
				slog.Int("collected", len(out)),
				slog.String("error", err.Error()))
			return truncate(out, maxTotal), err
		}

		for _, e := range page.Entities {
			k := p.key(e)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, e)
		}

		if page.NextCursor == "" {
			return truncate(out, maxTotal), nil
		}
		cursor = page.NextCursor

		if i == p.ceiling-1 {
			p.logger.Warn("iteration ceiling reached", slog.Int("ceiling", p.ceiling), slog.Int("collected", len(out)))
		}
	}

	return truncate(out, maxTotal), nil
}

func truncate[T any](items []T, maxTotal int) []T {
	if len(items) > maxTotal {
		return items[:maxTotal]
	}
	return items
}
