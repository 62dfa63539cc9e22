package types

import (
	"fmt"
	"strings"
)

// EntityKey identifies a single NFT. Its string form "collection:tokenId" is
// the key used by every cache and batch result.
type EntityKey struct {
	Collection string
	TokenID    string
}

func (k EntityKey) String() string {
	return k.Collection + ":" + k.TokenID
}

// ParseEntityKey splits on the last colon so token ids never swallow part of
// the collection address.
func ParseEntityKey(s string) (EntityKey, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return EntityKey{}, NewInvalidValueError("entity key", s, "expected collection:tokenId")
	}
	return EntityKey{Collection: s[:idx], TokenID: s[idx+1:]}, nil
}

// IndexedToken is the normalized shape every owned-token variant produces.
type IndexedToken struct {
	CollectionAddr string  `json:"collection_addr"`
	TokenID        string  `json:"token_id"`
	Image          *string `json:"image,omitempty"`
	Name           *string `json:"name,omitempty"`
}

func (t IndexedToken) Key() EntityKey {
	return EntityKey{Collection: t.CollectionAddr, TokenID: t.TokenID}
}

// IndexedCollection is an entry of the collections listing.
type IndexedCollection struct {
	Name           *string `json:"name,omitempty"`
	CollectionAddr string  `json:"collection_addr"`
	MintedAt       *string `json:"minted_at,omitempty"`
}

// FloorPrice is an integer amount in minor units of Denom.
type FloorPrice struct {
	Amount string `json:"amount"`
	Denom  string `json:"denom"`
}

func (f FloorPrice) String() string {
	return fmt.Sprintf("%s%s", f.Amount, f.Denom)
}

// FloorMap is keyed by collection address. A missing entry means the floor is
// unknown, not zero.
type FloorMap map[string]FloorPrice

type TokenTrait struct {
	Name          string   `json:"name"`
	Value         string   `json:"value"`
	RarityPercent *float64 `json:"rarityPercent,omitempty"`
	RarityScore   *float64 `json:"rarityScore,omitempty"`
	Rarity        *float64 `json:"rarity,omitempty"`
}

type TokenDetails struct {
	Description *string      `json:"description,omitempty"`
	Traits      []TokenTrait `json:"traits,omitempty"`
}
