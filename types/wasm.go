package types

import "encoding/json"

// QueryContractInfoResponse is the REST envelope of a cw721 contract_info query.
type QueryContractInfoResponse struct {
	Data struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"data"`
}

// SmartQueryResponse is the REST envelope of any smart query.
type SmartQueryResponse struct {
	Data json.RawMessage `json:"data"`
}

type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// OfferToken references one NFT inside an escrow offer.
type OfferToken struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"token_id"`
}

type Offer struct {
	ID           uint64       `json:"id"`
	Sender       string       `json:"sender"`
	Peer         string       `json:"peer"`
	OfferedNfts  []OfferToken `json:"offered_nfts"`
	WantedNfts   []OfferToken `json:"wanted_nfts"`
	CreatedAt    string       `json:"created_at"`
	ExpiresAt    string       `json:"expires_at"`
	OfferedFunds []Coin       `json:"offered_funds,omitempty"`
}

type OffersResponse struct {
	Offers []Offer `json:"offers"`
}

type EscrowParams struct {
	OfferExpiry struct {
		Min uint64 `json:"min"`
		Max uint64 `json:"max"`
	} `json:"offer_expiry"`
	Maintainer  string `json:"maintainer"`
	MaxOffers   uint64 `json:"max_offers"`
	BundleLimit uint64 `json:"bundle_limit"`
}

type ParamsResponse struct {
	Params EscrowParams `json:"params"`
}

type TokensResponse struct {
	Tokens []string `json:"tokens"`
}

// NftInfoResponse is the cw721 nft_info answer. Extension is kept raw since
// every collection uses its own metadata schema.
type NftInfoResponse struct {
	TokenURI  *string         `json:"token_uri,omitempty"`
	Extension json.RawMessage `json:"extension,omitempty"`
}

// ResolvedMedia is the outcome of the on-chain media fallback for one token.
type ResolvedMedia struct {
	Image       *string         `json:"image"`
	RawTokenURI *string         `json:"raw_token_uri"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Error       string          `json:"error,omitempty"`
}
