package indexer

import (
	"encoding/json"
	"strconv"

	"github.com/usemiddleman/middleman/types"
)

const OperationOwnedTokens = "owned-tokens"

const tokenSelection = `tokenId collectionAddr name imageUrl image { url }`

// OwnedTokensRegistry lists the known shapes of "tokens owned by X", richest
// first.
func OwnedTokensRegistry() Registry[types.IndexedToken] {
	return Registry[types.IndexedToken]{
		Operation: OperationOwnedTokens,
		Variants: []Variant[types.IndexedToken]{
			{
				Name: "tokens(ownerAddr offset)",
				Document: `query OwnedTokens($owner:String!,$limit:Int,$offset:Int){
  tokens(ownerAddr:$owner, limit:$limit, offset:$offset){
    tokens { ` + tokenSelection + ` }
    total limit offset
  }
}`,
				Mode:           ModeOffset,
				Extract:        extractOwnedOffset,
				BuildVariables: offsetVariables("owner"),
			},
			{
				Name: "tokens(ownerAddr connection)",
				Document: `query OwnedTokensConnection($owner:String!,$first:Int,$after:String){
  tokens(ownerAddr:$owner, first:$first, after:$after){
    tokens { ` + tokenSelection + ` }
    pageInfo { hasNextPage endCursor }
  }
}`,
				Mode:           ModeCursor,
				Extract:        extractOwnedConnection,
				BuildVariables: cursorVariables("owner"),
			},
			{
				Name: "tokens(ownerAddr simple)",
				Document: `query OwnedTokensSimple($owner:String!){
  tokens(ownerAddr:$owner){
    tokens { ` + tokenSelection + ` }
  }
}`,
				Mode:    ModeNone,
				Extract: extractOwnedSimple,
				BuildVariables: func(owner string, _ int, _ string) map[string]any {
					return map[string]any{"owner": owner}
				},
			},
		},
	}
}

func extractOwnedOffset(data json.RawMessage) (*Extraction[types.IndexedToken], bool) {
	root, ok := tokensRoot(data)
	if !ok {
		return nil, false
	}
	raws := listAt(root, "tokens")
	return &Extraction[types.IndexedToken]{
		Items:    normalizeTokens(raws),
		RawCount: len(raws),
		Total:    intAt(root, "total"),
	}, true
}

func extractOwnedConnection(data json.RawMessage) (*Extraction[types.IndexedToken], bool) {
	root, ok := tokensRoot(data)
	if !ok {
		return nil, false
	}
	pageInfo, ok := objectAt(root, "pageInfo")
	if !ok {
		return nil, false
	}
	raws := listAt(root, "tokens")
	if len(raws) == 0 {
		raws = edgeNodes(root)
	}
	endCursor, _ := scalarString(pageInfo["endCursor"])
	return &Extraction[types.IndexedToken]{
		Items:       normalizeTokens(raws),
		RawCount:    len(raws),
		HasNextPage: boolAt(pageInfo, "hasNextPage"),
		EndCursor:   endCursor,
	}, true
}

func extractOwnedSimple(data json.RawMessage) (*Extraction[types.IndexedToken], bool) {
	root, ok := tokensRoot(data)
	if !ok {
		return nil, false
	}
	raws := listAt(root, "tokens")
	return &Extraction[types.IndexedToken]{Items: normalizeTokens(raws), RawCount: len(raws)}, true
}

func tokensRoot(data json.RawMessage) (map[string]any, bool) {
	obj, ok := decodeObject(data)
	if !ok {
		return nil, false
	}
	return objectAt(obj, "tokens")
}

func offsetVariables(targetVar string) func(string, int, string) map[string]any {
	return func(target string, limit int, cursor string) map[string]any {
		offset := 0
		if n, err := strconv.Atoi(cursor); err == nil && n > 0 {
			offset = n
		}
		vars := map[string]any{"limit": limit, "offset": offset}
		if targetVar != "" {
			vars[targetVar] = target
		}
		return vars
	}
}

func cursorVariables(targetVar string) func(string, int, string) map[string]any {
	return func(target string, limit int, cursor string) map[string]any {
		vars := map[string]any{"first": limit}
		if cursor != "" {
			vars["after"] = cursor
		}
		if targetVar != "" {
			vars[targetVar] = target
		}
		return vars
	}
}
