package chain

import (
	"context"
	"log/slog"

	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"

	"github.com/usemiddleman/middleman/types"
)

// OwnerTokens lists up to OwnerTokensLimit token ids of owner in one
// collection, starting after startAfter. Failures yield an empty list.
func (q *Querier) OwnerTokens(ctx context.Context, collection, owner, startAfter string) []string {
	query := map[string]any{"owner": owner, "limit": types.OwnerTokensLimit}
	if startAfter != "" {
		query["start_after"] = startAfter
	}
	res, err := smartQuery[types.TokensResponse](ctx, q, collection, map[string]any{"tokens": query})
	if err != nil {
		q.logger.Debug("owner tokens query failed",
			slog.String("collection", collection),
			slog.String("owner", owner),
			slog.String("error", err.Error()))
		return []string{}
	}
	if res.Tokens == nil {
		return []string{}
	}
	return res.Tokens
}

// IsApproved reports whether spender may transfer the token. The cw721
// approval query errors when there is no approval, so any failure is false.
func (q *Querier) IsApproved(ctx context.Context, collection, tokenID, spender string) bool {
	_, err := q.querySmart(ctx, collection, map[string]any{
		"approval": map[string]any{"token_id": tokenID, "spender": spender, "include_expired": false},
	})
	return err == nil
}

// NftInfo is cached per token. A failed lookup caches an empty answer so the
// chain is not asked again for the same token.
func (q *Querier) NftInfo(ctx context.Context, collection, tokenID string) types.NftInfoResponse {
	key := types.EntityKey{Collection: collection, TokenID: tokenID}.String()
	if info, ok := q.nftInfo.Get(key); ok {
		return info
	}

	res, err := smartQuery[types.NftInfoResponse](ctx, q, collection, map[string]any{
		"nft_info": map[string]string{"token_id": tokenID},
	})
	if err != nil {
		q.logger.Debug("nft_info query failed", slog.String("token", key), slog.String("error", err.Error()))
		if ctx.Err() != nil {
			return types.NftInfoResponse{}
		}
		q.nftInfo.Set(key, types.NftInfoResponse{})
		return types.NftInfoResponse{}
	}
	q.nftInfo.Set(key, *res)
	return *res
}

// Approve builds an unsigned cw721 approve execution for spender.
func (q *Querier) Approve(sender, collection, tokenID, spender string) (*wasmtypes.MsgExecuteContract, error) {
	if err := q.validate(sender, collection, spender); err != nil {
		return nil, err
	}
	return executeMsg(sender, collection, map[string]any{
		"approve": map[string]string{"spender": spender, "token_id": tokenID},
	}, nil)
}
