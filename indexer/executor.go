package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/singleflight"

	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/sentry_integration"
	"github.com/usemiddleman/middleman/types"
)

const unprobed = -1

// Params addresses one page of a logical operation.
type Params struct {
	Target string // owner or collection address, empty for global listings
	Limit  int
	Cursor string // opaque, empty for the first page
}

// Result is one successful variant answer.
type Result[T any] struct {
	Items      []T
	NextCursor string // opaque, empty when there are no more pages
	Variant    string
}

// Executor runs one logical operation against its variant registry. State
// is UNPROBED or LOCKED(variant); probing runs one candidate at a time and
// a probe only installs its winner if nothing else was locked meanwhile.
type Executor[T any] struct {
	registry  Registry[T]
	transport Transport
	logger    *slog.Logger

	mu        sync.Mutex
	active    int                   // index into registry.Variants, or unprobed
	generated map[string]Variant[T] // replay targets for generated cursors

	probeMu sync.Mutex
	group   singleflight.Group
}

func NewExecutor[T any](registry Registry[T], transport Transport, logger *slog.Logger) *Executor[T] {
	if err := registry.Validate(); err != nil {
		panic(fmt.Sprintf("invalid variant registry: %s", err.Error()))
	}
	if registry.Generator == nil {
		registry.Generator = NopGenerator[T]{}
	}
	return &Executor[T]{
		registry:  registry,
		transport: transport,
		logger:    logger.With("component", "executor", "operation", registry.Operation),
		active:    unprobed,
		generated: make(map[string]Variant[T]),
	}
}

func (e *Executor[T]) Operation() string {
	return e.registry.Operation
}

// Active returns the locked variant name, or "" when unprobed.
func (e *Executor[T]) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == unprobed {
		return ""
	}
	return e.registry.Variants[e.active].Name
}

// Reset forces the next call to probe from the top of the list.
func (e *Executor[T]) Reset() {
	e.mu.Lock()
	e.active = unprobed
	e.mu.Unlock()
}

// Execute resolves one page. Identical concurrent calls share one execution,
// which runs detached from any single caller's cancellation; each caller
// still returns as soon as its own ctx is done. Requests stay bounded by the
// transport timeout.
func (e *Executor[T]) Execute(ctx context.Context, p Params) (*Result[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := p.Target + "\x00" + strconv.Itoa(p.Limit) + "\x00" + p.Cursor
	ch := e.group.DoChan(key, func() (any, error) {
		return e.execute(context.WithoutCancel(ctx), p)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Result[T]), nil
	}
}

func (e *Executor[T]) execute(ctx context.Context, p Params) (*Result[T], error) {
	if p.Cursor != "" {
		return e.resume(ctx, p)
	}

	attempts := 0
	var lastErr error
	failed := -1

	if idx, v, ok := e.locked(); ok {
		res, err := e.attempt(ctx, v, p, "")
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		attempts++
		lastErr = err
		failed = idx
		e.demote(idx, err)
	}

	e.probeMu.Lock()
	defer e.probeMu.Unlock()

	// another probe may have locked a variant while this call waited
	if idx, v, ok := e.locked(); ok && idx != failed {
		res, err := e.attempt(ctx, v, p, "")
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		attempts++
		lastErr = err
		e.demote(idx, err)
	}

	for idx, v := range e.registry.Variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.attempt(ctx, v, p, "")
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			attempts++
			lastErr = err
			continue
		}
		attempts++
		e.lockIn(idx)
		return res, nil
	}

	for round := 0; round < maxDiscoveryRounds; round++ {
		candidates, err := e.registry.Generator.Generate(ctx, lastErr)
		if err != nil {
			e.logger.Debug("variant generator failed", slog.String("error", err.Error()))
			break
		}
		for _, v := range candidates {
			if v.Extract == nil || v.BuildVariables == nil {
				continue
			}
			res, err := e.attempt(ctx, v, p, "")
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				attempts++
				lastErr = err
				continue
			}
			attempts++
			e.mu.Lock()
			e.generated[v.Name] = v
			e.mu.Unlock()
			return res, nil
		}
	}

	return nil, e.exhausted(attempts, lastErr)
}

// resume replays a cursor against the variant that minted it. If that
// variant fails the cursor is dead and pagination must restart.
func (e *Executor[T]) resume(ctx context.Context, p Params) (*Result[T], error) {
	name, raw, err := DecodeCursor(p.Cursor)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, v := range e.registry.Variants {
		if v.Name == name {
			idx = i
			break
		}
	}

	var v Variant[T]
	if idx >= 0 {
		v = e.registry.Variants[idx]
	} else {
		e.mu.Lock()
		gv, ok := e.generated[name]
		e.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: unknown variant %q", types.ErrCursorInvalidated, name)
		}
		v = gv
	}

	res, err := e.attempt(ctx, v, p, raw)
	if err != nil {
		// the cursor is still good when only the caller gave up
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if idx >= 0 {
			e.demote(idx, err)
		}
		return nil, fmt.Errorf("%w: variant %q failed: %w", types.ErrCursorInvalidated, name, err)
	}
	if idx >= 0 {
		e.lockIn(idx)
	}
	return res, nil
}

func (e *Executor[T]) attempt(ctx context.Context, v Variant[T], p Params, raw string) (*Result[T], error) {
	m := metrics.GetMetrics().Indexer

	data, err := e.transport.Send(ctx, v.Document, v.BuildVariables(p.Target, p.Limit, raw))
	if err != nil {
		m.ProbesTotal.WithLabelValues(e.registry.Operation, v.Name, "transport").Inc()
		e.logger.Debug("variant failed", slog.String("variant", v.Name), slog.String("error", err.Error()))
		return nil, err
	}

	ext, ok := v.Extract(data)
	if !ok || ext == nil {
		m.ProbesTotal.WithLabelValues(e.registry.Operation, v.Name, "shape").Inc()
		e.logger.Debug("variant returned unexpected shape", slog.String("variant", v.Name))
		return nil, &types.ShapeMismatchError{Variant: v.Name}
	}
	m.ProbesTotal.WithLabelValues(e.registry.Operation, v.Name, "ok").Inc()

	res := &Result[T]{Items: ext.Items, Variant: v.Name}
	if next := nextRaw(v.Mode, ext, raw, p.Limit); next != "" {
		res.NextCursor = EncodeCursor(v.Name, next)
	}
	return res, nil
}

func (e *Executor[T]) locked() (int, Variant[T], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == unprobed {
		return unprobed, Variant[T]{}, false
	}
	return e.active, e.registry.Variants[e.active], true
}

// lockIn installs idx only when nothing is locked.
func (e *Executor[T]) lockIn(idx int) {
	e.mu.Lock()
	installed := e.active == unprobed
	if installed {
		e.active = idx
	}
	e.mu.Unlock()

	if installed {
		name := e.registry.Variants[idx].Name
		metrics.GetMetrics().Indexer.LockInsTotal.WithLabelValues(e.registry.Operation, name).Inc()
		e.logger.Info("variant locked in", slog.String("variant", name))
	}
}

// demote clears the lock only if idx still holds it.
func (e *Executor[T]) demote(idx int, cause error) {
	e.mu.Lock()
	demoted := e.active == idx
	if demoted {
		e.active = unprobed
	}
	e.mu.Unlock()

	if demoted {
		name := e.registry.Variants[idx].Name
		metrics.GetMetrics().Indexer.DemotionsTotal.WithLabelValues(e.registry.Operation, name).Inc()
		e.logger.Warn("locked variant failed, re-probing",
			slog.String("variant", name),
			slog.String("error", cause.Error()))
	}
}

func (e *Executor[T]) exhausted(attempts int, lastErr error) error {
	if lastErr == nil {
		lastErr = errors.New("no candidates")
	}
	err := &types.AllVariantsExhaustedError{Operation: e.registry.Operation, Attempts: attempts, Last: lastErr}

	metrics.GetMetrics().Indexer.ExhaustionsTotal.WithLabelValues(e.registry.Operation).Inc()
	metrics.TrackError("executor", "exhausted")
	e.logger.Warn("all variants failed", slog.Int("attempts", attempts), slog.String("error", lastErr.Error()))
	sentry_integration.CaptureWithTags(err, sentry.LevelWarning, map[string]string{"operation": e.registry.Operation})
	return err
}
