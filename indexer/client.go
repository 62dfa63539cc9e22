package indexer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/usemiddleman/middleman/config"
	"github.com/usemiddleman/middleman/types"
)

// Client is the indexer facade: one executor per logical operation, pagers
// on top of the paginated ones and batchers for per-token enrichment.
type Client struct {
	logger *slog.Logger

	ownedTokens      *Executor[types.IndexedToken]
	ownedTokensPager *Pager[types.IndexedToken]
	collections      *Executor[types.IndexedCollection]
	collectionsPager *Pager[types.IndexedCollection]
	ownedCollections *Executor[string]
	floors           *Executor[FloorQuote]

	images  *Batcher[string]
	details *Batcher[types.TokenDetails]
}

type options struct {
	ownedTokensGenerator VariantGenerator[types.IndexedToken]
}

type Option func(*options)

// WithOwnedTokensGenerator plugs a runtime variant source into the
// owned-tokens operation.
func WithOwnedTokensGenerator(g VariantGenerator[types.IndexedToken]) Option {
	return func(o *options) {
		o.ownedTokensGenerator = g
	}
}

func NewClient(transport Transport, cacheCfg *config.CacheConfig, logger *slog.Logger, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ownedReg := OwnedTokensRegistry()
	ownedReg.Generator = o.ownedTokensGenerator

	ownedTokens := NewExecutor(ownedReg, transport, logger)
	collections := NewExecutor(CollectionsRegistry(), transport, logger)

	return &Client{
		logger:           logger.With("component", "indexer"),
		ownedTokens:      ownedTokens,
		ownedTokensPager: NewPager(ownedTokens, tokenKey, types.MaxIterationsOwned, logger),
		collections:      collections,
		collectionsPager: NewPager(collections, collectionKey, types.MaxIterationsCollections, logger),
		ownedCollections: NewExecutor(OwnedCollectionsRegistry(), transport, logger),
		floors:           NewExecutor(CollectionFloorRegistry(), transport, logger),
		images:           NewBatcher(ImagesSpec, transport, cacheCfg.MediaCacheSize, logger),
		details:          NewBatcher(DetailsSpec, transport, cacheCfg.DetailsCacheSize, logger),
	}
}

func tokenKey(t types.IndexedToken) string {
	return t.Key().String()
}

func collectionKey(c types.IndexedCollection) string {
	return c.CollectionAddr
}

// OwnedTokensPage fetches one page. See OwnedTokensPageFor for the
// session-guarded form.
func (c *Client) OwnedTokensPage(ctx context.Context, owner, cursor string, limit int) (Page[types.IndexedToken], error) {
	if owner == "" {
		return Page[types.IndexedToken]{}, types.NewValidationError("owner", "required")
	}
	if limit <= 0 {
		limit = types.DefaultOwnedPageSize
	}
	return c.ownedTokensPager.FetchPage(ctx, owner, cursor, limit)
}

// OwnedTokens fetches up to maxTotal tokens (default 2000). On failure the
// tokens gathered so far are returned with the error.
func (c *Client) OwnedTokens(ctx context.Context, owner string, maxTotal int) ([]types.IndexedToken, error) {
	if owner == "" {
		return nil, types.NewValidationError("owner", "required")
	}
	if maxTotal <= 0 {
		maxTotal = types.DefaultOwnedMaxTotal
	}
	return c.ownedTokensPager.FetchAll(ctx, owner, maxTotal, types.DefaultOwnedPageSize)
}

// The *For methods below are guarded by a session ticket: results that
// arrive after the ticket was superseded are dropped with ErrStaleSession.
// The ticket's target is the owner where one is needed.

func (c *Client) OwnedTokensFor(ctx context.Context, ticket Ticket, maxTotal int) ([]types.IndexedToken, error) {
	return guard(c, ticket, "owned tokens", func() ([]types.IndexedToken, error) {
		return c.OwnedTokens(ctx, ticket.Target(), maxTotal)
	})
}

func (c *Client) OwnedTokensPageFor(ctx context.Context, ticket Ticket, cursor string, limit int) (Page[types.IndexedToken], error) {
	return guard(c, ticket, "owned tokens page", func() (Page[types.IndexedToken], error) {
		return c.OwnedTokensPage(ctx, ticket.Target(), cursor, limit)
	})
}

func (c *Client) FloorsFor(ctx context.Context, ticket Ticket, collections []string) (types.FloorMap, error) {
	return guard(c, ticket, "floors", func() (types.FloorMap, error) {
		return c.Floors(ctx, collections), nil
	})
}

func (c *Client) TokenImagesFor(ctx context.Context, ticket Ticket, keys []types.EntityKey) (map[string]*string, error) {
	return guard(c, ticket, "token images", func() (map[string]*string, error) {
		return c.TokenImages(ctx, keys)
	})
}

func (c *Client) TokenDetailsFor(ctx context.Context, ticket Ticket, keys []types.EntityKey) (map[string]*types.TokenDetails, error) {
	return guard(c, ticket, "token details", func() (map[string]*types.TokenDetails, error) {
		return c.TokenDetails(ctx, keys)
	})
}

func guard[R any](c *Client, ticket Ticket, what string, fetch func() (R, error)) (R, error) {
	res, err := Guard(ticket, fetch)
	if errors.Is(err, types.ErrStaleSession) {
		c.logger.Debug("dropping stale results", slog.String("result", what), slog.String("target", ticket.Target()))
	}
	return res, err
}

func (c *Client) CollectionsPage(ctx context.Context, cursor string, limit int) (Page[types.IndexedCollection], error) {
	if limit <= 0 {
		limit = types.DefaultCollectionPageSize
	}
	return c.collectionsPager.FetchPage(ctx, "", cursor, limit)
}

func (c *Client) AllCollections(ctx context.Context, maxTotal int) ([]types.IndexedCollection, error) {
	if maxTotal <= 0 {
		maxTotal = types.DefaultCollectionMaxTotal
	}
	return c.collectionsPager.FetchAll(ctx, "", maxTotal, types.DefaultCollectionPageSize)
}

// OwnedCollections is best-effort: failures yield an empty list.
func (c *Client) OwnedCollections(ctx context.Context, owner string) []string {
	res, err := c.ownedCollections.Execute(ctx, Params{Target: owner})
	if err != nil {
		c.logger.Warn("owned collections lookup failed", slog.String("owner", owner), slog.String("error", err.Error()))
		return []string{}
	}
	return res.Items
}

// Floors looks up at most MaxFloorLookups distinct collections one after
// another. Collections whose floor is unknown are absent from the map.
// FloorsFor is the session-guarded form.
func (c *Client) Floors(ctx context.Context, collections []string) types.FloorMap {
	floors := make(types.FloorMap)

	seen := make(map[string]struct{}, len(collections))
	var unique []string
	for _, addr := range collections {
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}
	if len(unique) > types.MaxFloorLookups {
		unique = unique[:types.MaxFloorLookups]
	}

	for _, addr := range unique {
		if ctx.Err() != nil {
			break
		}
		res, err := c.floors.Execute(ctx, Params{Target: addr})
		if err != nil {
			c.logger.Debug("floor lookup failed", slog.String("collection", addr), slog.String("error", err.Error()))
			continue
		}
		for _, q := range res.Items {
			key := q.CollectionAddr
			if key == "" {
				key = addr
			}
			floors[key] = q.Price
		}
	}
	return floors
}

// TokenImages and TokenDetails have session-guarded forms TokenImagesFor and
// TokenDetailsFor.
func (c *Client) TokenImages(ctx context.Context, keys []types.EntityKey) (map[string]*string, error) {
	return c.images.Fetch(ctx, keys)
}

func (c *Client) TokenDetails(ctx context.Context, keys []types.EntityKey) (map[string]*types.TokenDetails, error) {
	return c.details.Fetch(ctx, keys)
}

// ActiveVariants reports the locked variant per operation; "" means unprobed.
func (c *Client) ActiveVariants() map[string]string {
	return map[string]string{
		c.ownedTokens.Operation():      c.ownedTokens.Active(),
		c.collections.Operation():      c.collections.Active(),
		c.ownedCollections.Operation(): c.ownedCollections.Active(),
		c.floors.Operation():           c.floors.Active(),
	}
}
