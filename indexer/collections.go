package indexer

import (
	"encoding/json"

	"github.com/usemiddleman/middleman/types"
)

const (
	OperationCollections      = "collections"
	OperationOwnedCollections = "owned-collections"
)

const collectionSelection = `name collectionAddr mintedAt`

func CollectionsRegistry() Registry[types.IndexedCollection] {
	return Registry[types.IndexedCollection]{
		Operation: OperationCollections,
		Variants: []Variant[types.IndexedCollection]{
			{
				Name: "collections(offset)",
				Document: `query Collections($limit:Int,$offset:Int){
  collections(limit:$limit, offset:$offset){
    collections { ` + collectionSelection + ` }
    total limit offset
  }
}`,
				Mode:           ModeOffset,
				Extract:        extractCollectionsOffset,
				BuildVariables: offsetVariables(""),
			},
			{
				Name: "collections(connection)",
				Document: `query CollectionsConnection($first:Int,$after:String){
  collections(first:$first, after:$after){
    collections { ` + collectionSelection + ` }
    pageInfo { hasNextPage endCursor }
  }
}`,
				Mode:           ModeCursor,
				Extract:        extractCollectionsConnection,
				BuildVariables: cursorVariables(""),
			},
		},
	}
}

func extractCollectionsOffset(data json.RawMessage) (*Extraction[types.IndexedCollection], bool) {
	root, ok := collectionsRoot(data)
	if !ok {
		return nil, false
	}
	raws := listAt(root, "collections")
	return &Extraction[types.IndexedCollection]{
		Items:    normalizeCollections(raws),
		RawCount: len(raws),
		Total:    intAt(root, "total"),
	}, true
}

func extractCollectionsConnection(data json.RawMessage) (*Extraction[types.IndexedCollection], bool) {
	root, ok := collectionsRoot(data)
	if !ok {
		return nil, false
	}
	pageInfo, ok := objectAt(root, "pageInfo")
	if !ok {
		return nil, false
	}
	raws := listAt(root, "collections")
	if len(raws) == 0 {
		raws = edgeNodes(root)
	}
	endCursor, _ := scalarString(pageInfo["endCursor"])
	return &Extraction[types.IndexedCollection]{
		Items:       normalizeCollections(raws),
		RawCount:    len(raws),
		HasNextPage: boolAt(pageInfo, "hasNextPage"),
		EndCursor:   endCursor,
	}, true
}

func collectionsRoot(data json.RawMessage) (map[string]any, bool) {
	obj, ok := decodeObject(data)
	if !ok {
		return nil, false
	}
	return objectAt(obj, "collections")
}

// OwnedCollectionsRegistry resolves the collection addresses an owner holds.
func OwnedCollectionsRegistry() Registry[string] {
	return Registry[string]{
		Operation: OperationOwnedCollections,
		Variants: []Variant[string]{
			{
				Name:     "ownedCollections(ownerAddr)",
				Document: `query Owned($owner:String!){ ownedCollections(ownerAddr:$owner){ collections { collectionAddr } } }`,
				Mode:     ModeNone,
				Extract: func(data json.RawMessage) (*Extraction[string], bool) {
					obj, ok := decodeObject(data)
					if !ok {
						return nil, false
					}
					root, ok := objectAt(obj, "ownedCollections")
					if !ok {
						return nil, false
					}
					raws := listAt(root, "collections")
					addrs := make([]string, 0, len(raws))
					for _, raw := range raws {
						if addr := CollectionAddrRules.String(raw); addr != "" {
							addrs = append(addrs, addr)
						}
					}
					return &Extraction[string]{Items: addrs, RawCount: len(raws)}, true
				},
				BuildVariables: func(owner string, _ int, _ string) map[string]any {
					return map[string]any{"owner": owner}
				},
			},
		},
	}
}
