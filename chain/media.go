package chain

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/types"
)

var (
	cloudflareIPFS = regexp.MustCompile(`^https?://cloudflare-ipfs\.com/ipfs/([a-zA-Z0-9]+)(?:/([^?]+))?`)
	gatewayIPFS    = regexp.MustCompile(`^https?://[^/]+/ipfs/([a-zA-Z0-9]+)(?:/([^?]+))?`)
)

// IPFSToHTTP rewrites ipfs:// URIs and links to any public IPFS gateway onto
// gateway, which must end in "/". Other URIs are returned unchanged.
func IPFSToHTTP(uri, gateway string) string {
	if uri == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return gateway + rest
	}
	for _, re := range []*regexp.Regexp{cloudflareIPFS, gatewayIPFS} {
		if m := re.FindStringSubmatch(uri); m != nil {
			out := gateway + m[1]
			if m[2] != "" {
				out += "/" + m[2]
			}
			return out
		}
	}
	return uri
}

// imageFields are tried in order on token metadata.
var imageFields = [][]string{
	{"image"},
	{"image_url"},
	{"imageURI"},
	{"media"},
	{"properties", "image"},
}

func pickImage(metadata json.RawMessage, gateway string) *string {
	var obj map[string]any
	if err := json.Unmarshal(metadata, &obj); err != nil {
		return nil
	}
	for _, path := range imageFields {
		var cur any = obj
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				cur = nil
				break
			}
			cur = m[key]
		}
		if s, ok := cur.(string); ok && s != "" {
			img := IPFSToHTTP(s, gateway)
			return &img
		}
	}
	return nil
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// ResolveMedia finds a token image on chain: nft_info, then its token_uri.
// Lookup failures are reported in the result; the error is only set when
// ctx is done.
func (q *Querier) ResolveMedia(ctx context.Context, collection, tokenID string) (types.ResolvedMedia, error) {
	info := q.NftInfo(ctx, collection, tokenID)
	if err := ctx.Err(); err != nil {
		return types.ResolvedMedia{}, err
	}
	infoJSON := mustJSON(info)

	if info.TokenURI == nil || *info.TokenURI == "" {
		return types.ResolvedMedia{Metadata: infoJSON}, nil
	}
	tokenURI := *info.TokenURI
	url := IPFSToHTTP(tokenURI, q.IPFSGateway)

	doc, err := q.metadata.Load(url, func() (metadataDoc, bool, error) {
		return q.fetchMetadata(ctx, url)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ResolvedMedia{}, ctxErr
		}
		return types.ResolvedMedia{RawTokenURI: &tokenURI, Metadata: infoJSON, Error: err.Error()}, nil
	}

	switch {
	case doc.Body != nil:
		return types.ResolvedMedia{Image: pickImage(doc.Body, q.IPFSGateway), RawTokenURI: &tokenURI, Metadata: doc.Body}, nil
	case strings.HasPrefix(doc.ContentType, "image/"):
		return types.ResolvedMedia{Image: &url, RawTokenURI: &tokenURI, Metadata: mustJSON(map[string]bool{"direct": true})}, nil
	default:
		return types.ResolvedMedia{RawTokenURI: &tokenURI, Metadata: mustJSON(map[string]string{"contentType": doc.ContentType})}, nil
	}
}

// metadataDoc is what a token_uri served. Body is set for JSON only.
type metadataDoc struct {
	ContentType string
	Body        json.RawMessage
}

// fetchMetadata downloads a token_uri. JSON and images are cacheable.
func (q *Querier) fetchMetadata(ctx context.Context, url string) (metadataDoc, bool, error) {
	body, contentType, err := q.http.do(ctx, "metadata", url, q.timeout, map[string]string{"Accept": "application/json, image/*"})
	if err != nil {
		return metadataDoc{}, false, err
	}
	switch {
	case strings.Contains(contentType, "application/json"):
		if !json.Valid(body) {
			return metadataDoc{}, false, errors.New("invalid JSON metadata")
		}
		return metadataDoc{ContentType: contentType, Body: body}, true, nil
	case strings.HasPrefix(contentType, "image/"):
		return metadataDoc{ContentType: contentType}, true, nil
	default:
		return metadataDoc{ContentType: contentType}, false, nil
	}
}

// BatchResolveMedia resolves tokens with at most concurrency workers (default
// DefaultMediaConcurrency, capped at MaxMediaConcurrency). The first worker
// error cancels the rest. onProgress, if set, is called after every token.
func (q *Querier) BatchResolveMedia(ctx context.Context, tokens []types.EntityKey, concurrency int, onProgress func(done, total int)) (map[string]types.ResolvedMedia, error) {
	if concurrency <= 0 {
		concurrency = types.DefaultMediaConcurrency
	}
	concurrency = min(concurrency, types.MaxMediaConcurrency)

	results := make(map[string]types.ResolvedMedia, len(tokens))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, tok := range tokens {
		g.Go(func() (err error) {
			defer metrics.RecoverError("media", &err)
			media, err := q.ResolveMedia(gctx, tok.Collection, tok.TokenID)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			results[tok.String()] = media
			done++
			if onProgress != nil {
				onProgress(done, len(tokens))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		q.logger.Warn("media batch aborted", slog.Int("resolved", len(results)), slog.String("error", err.Error()))
		return results, err
	}
	return results, nil
}
