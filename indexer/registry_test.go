package indexer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinRegistriesValidate(t *testing.T) {
	require.NoError(t, OwnedTokensRegistry().Validate())
	require.NoError(t, CollectionsRegistry().Validate())
	require.NoError(t, OwnedCollectionsRegistry().Validate())
	require.NoError(t, CollectionFloorRegistry().Validate())
}

func TestRegistryValidateRejectsDuplicatesAndBadDocuments(t *testing.T) {
	dup := Registry[string]{Operation: "op", Variants: []Variant[string]{itemsVariant("A", ModeNone), itemsVariant("A", ModeNone)}}
	require.Error(t, dup.Validate())

	broken := itemsVariant("B", ModeNone)
	broken.Document = "query B { items"
	require.Error(t, Registry[string]{Operation: "op", Variants: []Variant[string]{broken}}.Validate())

	require.Error(t, Registry[string]{Operation: "op"}.Validate())
}

func TestOwnedTokensVariantsExtract(t *testing.T) {
	reg := OwnedTokensRegistry()

	offset, ok := reg.Variants[0].Extract(json.RawMessage(`{"tokens":{"tokens":[{"tokenId":"1","collectionAddr":"a"}],"total":"1"}}`))
	require.True(t, ok)
	require.Len(t, offset.Items, 1)
	require.Equal(t, 1, *offset.Total)

	conn, ok := reg.Variants[1].Extract(json.RawMessage(`{"tokens":{"edges":[{"node":{"tokenId":"1","collectionAddr":"a"}}],"pageInfo":{"hasNextPage":true,"endCursor":"e"}}}`))
	require.True(t, ok)
	require.Len(t, conn.Items, 1)
	require.True(t, conn.HasNextPage)
	require.Equal(t, "e", conn.EndCursor)

	// an offset-shaped answer is not a connection
	_, ok = reg.Variants[1].Extract(json.RawMessage(`{"tokens":{"tokens":[],"total":0}}`))
	require.False(t, ok)

	_, ok = reg.Variants[2].Extract(json.RawMessage(`{"owner":{}}`))
	require.False(t, ok)
}

func TestOwnedTokensVariables(t *testing.T) {
	reg := OwnedTokensRegistry()

	require.Equal(t,
		map[string]any{"owner": "stars1o", "limit": 100, "offset": 200},
		reg.Variants[0].BuildVariables("stars1o", 100, "200"))
	require.Equal(t,
		map[string]any{"owner": "stars1o", "first": 50},
		reg.Variants[1].BuildVariables("stars1o", 50, ""))
	require.Equal(t,
		map[string]any{"owner": "stars1o", "first": 50, "after": "c"},
		reg.Variants[1].BuildVariables("stars1o", 50, "c"))
}
