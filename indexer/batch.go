package indexer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/usemiddleman/middleman/cache"
	"github.com/usemiddleman/middleman/graphql"
	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/types"
)

// BatchSpec describes one per-entity enrichment, sized by field weight.
type BatchSpec[F any] struct {
	Kind      string
	GroupSize int
	Operation string // operation name of the aliased document
	Selection string
	Single    string // variable-bound query for one entity, root field "token"

	// Decode turns one token node into a value; nil means resolved but empty.
	Decode func(node json.RawMessage) *F
}

var ImagesSpec = BatchSpec[string]{
	Kind:      "images",
	GroupSize: types.ImageBatchSize,
	Operation: "TokenImages",
	Selection: "imageUrl image { url }",
	Single:    `query TokenImage($c:String!,$id:String!){ token(collectionAddr:$c, tokenId:$id){ imageUrl image { url } } }`,
	Decode: func(node json.RawMessage) *string {
		obj, ok := decodeObject(node)
		if !ok {
			return nil
		}
		return RuleSet{rule("imageUrl"), rule("image.url")}.Optional(obj)
	},
}

var DetailsSpec = BatchSpec[types.TokenDetails]{
	Kind:      "details",
	GroupSize: types.DetailsBatchSize,
	Operation: "TokenDetails",
	Selection: "description traits { name value rarityPercent rarityScore rarity }",
	Single:    `query SingleToken($c:String!,$id:String!){ token(collectionAddr:$c, tokenId:$id){ description traits { name value rarityPercent rarityScore rarity } } }`,
	Decode: func(node json.RawMessage) *types.TokenDetails {
		if len(node) == 0 || string(node) == "null" {
			return nil
		}
		var raw struct {
			Description *string `json:"description"`
			Traits      []struct {
				Name          any      `json:"name"`
				Value         any      `json:"value"`
				RarityPercent *float64 `json:"rarityPercent"`
				RarityScore   *float64 `json:"rarityScore"`
				Rarity        *float64 `json:"rarity"`
			} `json:"traits"`
		}
		if err := json.Unmarshal(node, &raw); err != nil {
			return nil
		}
		details := &types.TokenDetails{Description: raw.Description}
		for _, t := range raw.Traits {
			name, _ := scalarString(t.Name)
			value, _ := scalarString(t.Value)
			details.Traits = append(details.Traits, types.TokenTrait{
				Name:          name,
				Value:         value,
				RarityPercent: t.RarityPercent,
				RarityScore:   t.RarityScore,
				Rarity:        t.Rarity,
			})
		}
		return details
	},
}

// Batcher fetches one field set for many entities with aliased queries and
// falls back to one query per entity when a group fails.
type Batcher[F any] struct {
	spec      BatchSpec[F]
	transport Transport
	cache     *cache.Cache[string, *F]
	logger    *slog.Logger
}

func NewBatcher[F any](spec BatchSpec[F], transport Transport, cacheSize int, logger *slog.Logger) *Batcher[F] {
	if spec.GroupSize < 1 {
		spec.GroupSize = 1
	}
	return &Batcher[F]{
		spec:      spec,
		transport: transport,
		cache:     cache.New[string, *F](cacheSize),
		logger:    logger.With("component", "batch", "kind", spec.Kind),
	}
}

// Fetch returns an entry for every distinct key; keys that could not be
// resolved map to nil and are listed in a *types.PartialBatchFailure.
func (b *Batcher[F]) Fetch(ctx context.Context, keys []types.EntityKey) (map[string]*F, error) {
	byID := make(map[string]types.EntityKey, len(keys))
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := k.String()
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = k
		ids = append(ids, id)
	}

	out, missingIDs := b.cache.Partition(ids)
	missing := make([]types.EntityKey, 0, len(missingIDs))
	for _, id := range missingIDs {
		missing = append(missing, byID[id])
	}

	var failed []string
	for start := 0; start < len(missing); start += b.spec.GroupSize {
		end := min(start+b.spec.GroupSize, len(missing))
		group := missing[start:end]

		if ctx.Err() != nil {
			for _, k := range group {
				out[k.String()] = nil
				failed = append(failed, k.String())
			}
			continue
		}

		if err := b.fetchGroup(ctx, group, out); err != nil {
			metrics.GetMetrics().Indexer.BatchGroupsTotal.WithLabelValues(b.spec.Kind, "fallback").Inc()
			b.logger.Debug("group query failed, falling back to single queries",
				slog.Int("size", len(group)),
				slog.String("error", err.Error()))
			failed = append(failed, b.fetchEach(ctx, group, out)...)
			continue
		}
		metrics.GetMetrics().Indexer.BatchGroupsTotal.WithLabelValues(b.spec.Kind, "ok").Inc()
	}

	if len(failed) > 0 {
		metrics.GetMetrics().Indexer.BatchKeyFailuresTotal.WithLabelValues(b.spec.Kind).Add(float64(len(failed)))
		return out, &types.PartialBatchFailure{Failed: failed, Total: len(ids)}
	}
	return out, nil
}

// Forget drops cached entries so the next Fetch asks the indexer again.
func (b *Batcher[F]) Forget(keys ...types.EntityKey) {
	for _, k := range keys {
		b.cache.Remove(k.String())
	}
}

func (b *Batcher[F]) fetchGroup(ctx context.Context, group []types.EntityKey, out map[string]*F) error {
	args := make([][]graphql.Arg, len(group))
	for i, k := range group {
		args[i] = []graphql.Arg{
			{Name: "collectionAddr", Value: k.Collection},
			{Name: "tokenId", Value: k.TokenID},
		}
	}
	doc := graphql.AliasedQuery(b.spec.Operation, "token", args, b.spec.Selection)
	if err := graphql.Validate(doc); err != nil {
		return err
	}

	data, err := b.transport.Send(ctx, doc, nil)
	if err != nil {
		return err
	}
	var nodes map[string]json.RawMessage
	if err := json.Unmarshal(data, &nodes); err != nil {
		return &types.ShapeMismatchError{Variant: b.spec.Operation}
	}

	for i, k := range group {
		v := b.spec.Decode(nodes[graphql.Alias(i)])
		out[k.String()] = v
		b.cache.Set(k.String(), v)
	}
	return nil
}

// fetchEach resolves keys one by one and returns the keys that failed.
func (b *Batcher[F]) fetchEach(ctx context.Context, group []types.EntityKey, out map[string]*F) []string {
	var failed []string
	for _, k := range group {
		data, err := b.transport.Send(ctx, b.spec.Single, map[string]any{"c": k.Collection, "id": k.TokenID})
		if err != nil {
			out[k.String()] = nil
			failed = append(failed, k.String())
			continue
		}
		var root struct {
			Token json.RawMessage `json:"token"`
		}
		if err := json.Unmarshal(data, &root); err != nil {
			out[k.String()] = nil
			failed = append(failed, k.String())
			continue
		}
		v := b.spec.Decode(root.Token)
		out[k.String()] = v
		b.cache.Set(k.String(), v)
	}
	return failed
}
