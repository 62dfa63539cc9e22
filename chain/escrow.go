package chain

import (
	"context"
	"encoding/json"

	sdkmath "cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/usemiddleman/middleman/types"
)

const nanosPerSecond = 1_000_000_000

func (q *Querier) escrow() (string, error) {
	if q.EscrowContract == "" {
		return "", types.NewConfigError("ESCROW_CONTRACT is not set", nil)
	}
	return q.EscrowContract, nil
}

func (q *Querier) Params(ctx context.Context) (*types.ParamsResponse, error) {
	contract, err := q.escrow()
	if err != nil {
		return nil, err
	}
	return smartQuery[types.ParamsResponse](ctx, q, contract, map[string]any{"params": struct{}{}})
}

func (q *Querier) OffersBySender(ctx context.Context, sender string) (*types.OffersResponse, error) {
	contract, err := q.escrow()
	if err != nil {
		return nil, err
	}
	if err := q.validate(sender); err != nil {
		return nil, err
	}
	return smartQuery[types.OffersResponse](ctx, q, contract, map[string]any{
		"offers_by_sender": map[string]string{"sender": sender},
	})
}

func (q *Querier) OffersByPeer(ctx context.Context, peer string) (*types.OffersResponse, error) {
	contract, err := q.escrow()
	if err != nil {
		return nil, err
	}
	if err := q.validate(peer); err != nil {
		return nil, err
	}
	return smartQuery[types.OffersResponse](ctx, q, contract, map[string]any{
		"offers_by_peer": map[string]string{"peer": peer},
	})
}

type createOfferMsg struct {
	CreateOffer struct {
		OfferedNfts  []types.OfferToken `json:"offered_nfts"`
		WantedNfts   []types.OfferToken `json:"wanted_nfts"`
		Peer         string             `json:"peer"`
		ExpiresAt    *string            `json:"expires_at,omitempty"`
		OfferedFunds []types.Coin       `json:"offered_funds,omitempty"`
	} `json:"create_offer"`
}

// CreateOffer builds an unsigned create_offer execution. expiresAtSeconds
// is a unix time in seconds; the contract wants nanoseconds as a string.
func (q *Querier) CreateOffer(sender string, offered, wanted []types.OfferToken, peer string, expiresAtSeconds int64, funds []types.Coin) (*wasmtypes.MsgExecuteContract, error) {
	contract, err := q.escrow()
	if err != nil {
		return nil, err
	}
	if err := q.validate(sender, peer); err != nil {
		return nil, err
	}
	for _, t := range append(append([]types.OfferToken{}, offered...), wanted...) {
		if err := q.validate(t.Collection); err != nil {
			return nil, err
		}
	}

	var msg createOfferMsg
	msg.CreateOffer.OfferedNfts = nonNil(offered)
	msg.CreateOffer.WantedNfts = nonNil(wanted)
	msg.CreateOffer.Peer = peer
	if expiresAtSeconds > 0 {
		ns := sdkmath.NewInt(expiresAtSeconds).MulRaw(nanosPerSecond).String()
		msg.CreateOffer.ExpiresAt = &ns
	}

	coins, err := toCoins(funds)
	if err != nil {
		return nil, err
	}
	if len(funds) > 0 {
		msg.CreateOffer.OfferedFunds = funds
	}

	return executeMsg(sender, contract, msg, coins)
}

func (q *Querier) RemoveOffer(sender string, id uint64) (*wasmtypes.MsgExecuteContract, error) {
	return q.offerAction(sender, "remove_offer", id)
}

func (q *Querier) AcceptOffer(sender string, id uint64) (*wasmtypes.MsgExecuteContract, error) {
	return q.offerAction(sender, "accept_offer", id)
}

func (q *Querier) RejectOffer(sender string, id uint64) (*wasmtypes.MsgExecuteContract, error) {
	return q.offerAction(sender, "reject_offer", id)
}

func (q *Querier) offerAction(sender, action string, id uint64) (*wasmtypes.MsgExecuteContract, error) {
	contract, err := q.escrow()
	if err != nil {
		return nil, err
	}
	if err := q.validate(sender); err != nil {
		return nil, err
	}
	return executeMsg(sender, contract, map[string]any{action: map[string]uint64{"id": id}}, nil)
}

func executeMsg(sender, contract string, msg any, funds sdk.Coins) (*wasmtypes.MsgExecuteContract, error) {
	bz, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &wasmtypes.MsgExecuteContract{
		Sender:   sender,
		Contract: contract,
		Msg:      wasmtypes.RawContractMessage(bz),
		Funds:    funds,
	}, nil
}

// toCoins converts funds to sorted, validated sdk.Coins.
func toCoins(funds []types.Coin) (sdk.Coins, error) {
	if len(funds) == 0 {
		return nil, nil
	}
	coins := make(sdk.Coins, 0, len(funds))
	for _, f := range funds {
		amount, ok := sdkmath.NewIntFromString(f.Amount)
		if !ok {
			return nil, types.NewInvalidValueError("funds", f.Amount, "not an integer amount")
		}
		coins = append(coins, sdk.Coin{Denom: f.Denom, Amount: amount})
	}
	coins = coins.Sort()
	if err := coins.Validate(); err != nil {
		return nil, types.NewInvalidValueError("funds", coins.String(), err.Error())
	}
	return coins, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
