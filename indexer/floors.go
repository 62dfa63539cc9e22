package indexer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"

	"github.com/usemiddleman/middleman/types"
)

const OperationCollectionFloor = "collection-floor"

// microPerStars converts STARS to ustars.
const microPerStars = 1_000_000

// FloorQuote is the floor of one collection as reported by the indexer.
type FloorQuote struct {
	CollectionAddr string
	Price          types.FloorPrice
}

func CollectionFloorRegistry() Registry[FloorQuote] {
	return Registry[FloorQuote]{
		Operation: OperationCollectionFloor,
		Variants: []Variant[FloorQuote]{
			{
				Name:     "collection(collectionAddr)",
				Document: `query Floors($addr:String!){ collection(collectionAddr:$addr){ collectionAddr floorPrice floorPriceStars } }`,
				Mode:     ModeNone,
				Extract:  extractFloor,
				BuildVariables: func(addr string, _ int, _ string) map[string]any {
					return map[string]any{"addr": addr}
				},
			},
			{
				Name:     "collection(address)",
				Document: `query FloorsLegacy($addr:String!){ collection(address:$addr){ address floorPrice floorPriceStars } }`,
				Mode:     ModeNone,
				Extract:  extractFloor,
				BuildVariables: func(addr string, _ int, _ string) map[string]any {
					return map[string]any{"addr": addr}
				},
			},
		},
	}
}

// extractFloor accepts a null collection as a valid "unknown" answer; only a
// missing root is a shape mismatch.
func extractFloor(data json.RawMessage) (*Extraction[FloorQuote], bool) {
	obj, ok := decodeObject(data)
	if !ok {
		return nil, false
	}
	rawRoot, present := obj["collection"]
	if !present {
		return nil, false
	}
	root, ok := rawRoot.(map[string]any)
	if !ok {
		return &Extraction[FloorQuote]{}, true
	}

	price, ok := floorFromCollection(root)
	if !ok {
		return &Extraction[FloorQuote]{RawCount: 1}, true
	}
	addr := CollectionListingAddrRules.String(root)
	return &Extraction[FloorQuote]{
		Items:    []FloorQuote{{CollectionAddr: addr, Price: price}},
		RawCount: 1,
	}, true
}

// floorFromCollection prefers floorPriceStars, converted exactly to ustars,
// and falls back to the raw minor-unit floorPrice.
func floorFromCollection(root map[string]any) (types.FloorPrice, bool) {
	if s, ok := scalarString(root["floorPriceStars"]); ok && s != "" {
		if amount, err := StarsToMicro(s); err == nil {
			return types.FloorPrice{Amount: amount, Denom: types.DefaultDenom}, true
		}
	}
	if s, ok := scalarString(root["floorPrice"]); ok && s != "" {
		if amount, err := roundAmount(s); err == nil {
			return types.FloorPrice{Amount: amount, Denom: types.DefaultDenom}, true
		}
	}
	return types.FloorPrice{}, false
}

// StarsToMicro converts a decimal STARS amount to an integer ustars string.
func StarsToMicro(stars string) (string, error) {
	dec, err := parseDec(stars)
	if err != nil {
		return "", err
	}
	return dec.MulInt64(microPerStars).RoundInt().String(), nil
}

func roundAmount(s string) (string, error) {
	dec, err := parseDec(s)
	if err != nil {
		return "", err
	}
	return dec.RoundInt().String(), nil
}

// parseDec accepts plain decimals as well as the exponent notation JSON
// encoders emit for very small or large numbers.
func parseDec(s string) (sdkmath.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return sdkmath.LegacyDec{}, err
		}
		s = strconv.FormatFloat(f, 'f', sdkmath.LegacyPrecision, 64)
	}
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if dec.IsNegative() {
		return sdkmath.LegacyDec{}, fmt.Errorf("negative amount %q", s)
	}
	return dec, nil
}
