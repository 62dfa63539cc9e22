package indexer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func rawObject(t *testing.T, s string) map[string]any {
	t.Helper()
	obj, ok := decodeObject(json.RawMessage(s))
	require.True(t, ok)
	return obj
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantOK    bool
		wantColl  string
		wantID    string
		wantImage string
		wantName  string
	}{
		{
			name:      "current field names",
			raw:       `{"tokenId":"7","collectionAddr":"stars1a","name":"Seven","imageUrl":"https://img/7.png"}`,
			wantOK:    true,
			wantColl:  "stars1a",
			wantID:    "7",
			wantImage: "https://img/7.png",
			wantName:  "Seven",
		},
		{
			name:      "renamed collection and numeric id",
			raw:       `{"id":42,"collectionAddress":"stars1b","image":{"url":"ipfs://x"}}`,
			wantOK:    true,
			wantColl:  "stars1b",
			wantID:    "42",
			wantImage: "ipfs://x",
		},
		{
			name:     "nested collection object",
			raw:      `{"tokenId":"1","collection":{"contractAddress":"stars1c"}}`,
			wantOK:   true,
			wantColl: "stars1c",
			wantID:   "1",
		},
		{
			name:      "media fallback",
			raw:       `{"tokenId":"2","contractAddr":"stars1d","media":{"image":"https://m/2"}}`,
			wantOK:    true,
			wantColl:  "stars1d",
			wantID:    "2",
			wantImage: "https://m/2",
		},
		{
			name:      "bare image string",
			raw:       `{"tokenId":"3","contractAddress":"stars1e","image":"https://i/3"}`,
			wantOK:    true,
			wantColl:  "stars1e",
			wantID:    "3",
			wantImage: "https://i/3",
		},
		{
			name:      "empty imageUrl falls through",
			raw:       `{"tokenId":"4","collectionAddr":"stars1f","imageUrl":"","image":{"url":"https://i/4"}}`,
			wantOK:    true,
			wantColl:  "stars1f",
			wantID:    "4",
			wantImage: "https://i/4",
		},
		{
			name:   "missing token id",
			raw:    `{"collectionAddr":"stars1a"}`,
			wantOK: false,
		},
		{
			name:   "missing collection",
			raw:    `{"tokenId":"9"}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, ok := NormalizeToken(rawObject(t, tt.raw))
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			require.Equal(t, tt.wantColl, tok.CollectionAddr)
			require.Equal(t, tt.wantID, tok.TokenID)
			if tt.wantImage == "" {
				require.Nil(t, tok.Image)
			} else {
				require.NotNil(t, tok.Image)
				require.Equal(t, tt.wantImage, *tok.Image)
			}
			if tt.wantName == "" {
				require.Nil(t, tok.Name)
			} else {
				require.Equal(t, tt.wantName, *tok.Name)
			}
		})
	}
}

func TestNormalizeTokensDropsPartialEntities(t *testing.T) {
	obj := rawObject(t, `{"tokens":[{"tokenId":"1","collectionAddr":"a"},{"tokenId":"2"},7,{"id":"3","contractAddr":"b"}]}`)
	raws := listAt(obj, "tokens")
	require.Len(t, raws, 3)

	tokens := normalizeTokens(raws)
	require.Len(t, tokens, 2)
	require.Equal(t, "a:1", tokens[0].Key().String())
	require.Equal(t, "b:3", tokens[1].Key().String())
}

func TestLargeNumericIDKeepsPrecision(t *testing.T) {
	tok, ok := NormalizeToken(rawObject(t, `{"tokenId":123456789012345678901,"collectionAddr":"a"}`))
	require.True(t, ok)
	require.Equal(t, "123456789012345678901", tok.TokenID)
}

func TestNormalizeCollection(t *testing.T) {
	c, ok := NormalizeCollection(rawObject(t, `{"name":"Bad Kids","address":"stars1kids","mintedAt":"2023-01-01"}`))
	require.True(t, ok)
	require.Equal(t, "stars1kids", c.CollectionAddr)
	require.Equal(t, "Bad Kids", *c.Name)
	require.Equal(t, "2023-01-01", *c.MintedAt)

	_, ok = NormalizeCollection(rawObject(t, `{"name":"nameless"}`))
	require.False(t, ok)
}

func TestRuleSetLookupReportsMatchedRule(t *testing.T) {
	v, matched := CollectionAddrRules.Lookup(rawObject(t, `{"contractAddress":"x"}`))
	require.Equal(t, "x", v)
	require.Equal(t, "contractAddress", matched)

	v, matched = CollectionAddrRules.Lookup(rawObject(t, `{}`))
	require.Empty(t, v)
	require.Empty(t, matched)
}

func TestEdgeNodes(t *testing.T) {
	obj := rawObject(t, `{"edges":[{"node":{"tokenId":"1","collectionAddr":"a"}},{"cursor":"x"}]}`)
	nodes := edgeNodes(obj)
	require.Len(t, nodes, 1)
	require.Equal(t, "1", TokenIDRules.String(nodes[0]))
}
