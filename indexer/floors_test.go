package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usemiddleman/middleman/config"
	"github.com/usemiddleman/middleman/types"
)

func testCacheConfig() *config.CacheConfig {
	return &config.CacheConfig{MediaCacheSize: 64, DetailsCacheSize: 64, NftInfoCacheSize: 64, MetadataCacheSize: 64}
}

func floorDoc() string       { return CollectionFloorRegistry().Variants[0].Document }
func legacyFloorDoc() string { return CollectionFloorRegistry().Variants[1].Document }

func TestStarsToMicro(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "12.345678", want: "12345678"},
		{in: "100", want: "100000000"},
		{in: "1e-6", want: "1"},
		{in: "2.5E3", want: "2500000000"},
		{in: "0", want: "0"},
		{in: " 0.000001 ", want: "1"},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := StarsToMicro(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFloor(t *testing.T) {
	ext, ok := extractFloor(json.RawMessage(`{"collection":{"collectionAddr":"stars1a","floorPriceStars":12.345678,"floorPrice":"1"}}`))
	require.True(t, ok)
	require.Equal(t, []FloorQuote{{CollectionAddr: "stars1a", Price: types.FloorPrice{Amount: "12345678", Denom: "ustars"}}}, ext.Items)

	ext, ok = extractFloor(json.RawMessage(`{"collection":{"address":"stars1b","floorPriceStars":null,"floorPrice":"2500000"}}`))
	require.True(t, ok)
	require.Equal(t, "stars1b", ext.Items[0].CollectionAddr)
	require.Equal(t, "2500000", ext.Items[0].Price.Amount)

	ext, ok = extractFloor(json.RawMessage(`{"collection":null}`))
	require.True(t, ok)
	require.Empty(t, ext.Items)

	ext, ok = extractFloor(json.RawMessage(`{"collection":{"collectionAddr":"stars1c"}}`))
	require.True(t, ok)
	require.Empty(t, ext.Items)

	_, ok = extractFloor(json.RawMessage(`{"collections":[]}`))
	require.False(t, ok)
}

func TestClientFloors(t *testing.T) {
	ft := newFakeTransport()
	ft.on(floorDoc(), func(vars map[string]any) (json.RawMessage, error) {
		switch vars["addr"] {
		case "stars1a":
			return json.RawMessage(`{"collection":{"collectionAddr":"stars1a","floorPriceStars":"12.345678"}}`), nil
		case "stars1b":
			return json.RawMessage(`{"collection":null}`), nil
		case "stars1c":
			return nil, &types.TransportError{Method: "GET", HTTPStatus: 500, Message: "boom"}
		case "stars1d":
			return json.RawMessage(`{"collection":{"floorPriceStars":null,"floorPrice":2500000}}`), nil
		}
		return nil, fmt.Errorf("unexpected %v", vars["addr"])
	})
	ft.on(legacyFloorDoc(), fail("Unknown argument \"address\""))
	c := NewClient(ft, testCacheConfig(), discardLogger())

	floors := c.Floors(context.Background(), []string{"stars1a", "stars1b", "stars1a", "", "stars1c", "stars1d"})
	require.Equal(t, types.FloorMap{
		"stars1a": {Amount: "12345678", Denom: "ustars"},
		"stars1d": {Amount: "2500000", Denom: "ustars"},
	}, floors)

	// stars1a is looked up once despite the duplicate
	ft.mu.Lock()
	aLookups := 0
	for _, call := range ft.calls {
		if call.document == floorDoc() && call.variables["addr"] == "stars1a" {
			aLookups++
		}
	}
	ft.mu.Unlock()
	require.Equal(t, 1, aLookups)
}

func TestClientFloorsCapsLookups(t *testing.T) {
	ft := newFakeTransport()
	ft.on(floorDoc(), ok(`{"collection":null}`))
	c := NewClient(ft, testCacheConfig(), discardLogger())

	addrs := make([]string, 45)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("stars1c%d", i)
	}
	floors := c.Floors(context.Background(), addrs)
	require.Empty(t, floors)
	require.Equal(t, types.MaxFloorLookups, ft.count(floorDoc()))
}
