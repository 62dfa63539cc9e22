package indexer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/usemiddleman/middleman/types"
)

// FieldRule reads one dotted path from a raw entity.
type FieldRule struct {
	Name string
	Path []string
}

// RuleSet is evaluated in order; the first rule yielding a non-empty value
// wins. Adding a rule is how a newly observed field rename is supported.
type RuleSet []FieldRule

func rule(path string) FieldRule {
	return FieldRule{Name: path, Path: strings.Split(path, ".")}
}

var (
	CollectionAddrRules = RuleSet{
		rule("collectionAddr"),
		rule("collectionAddress"),
		rule("contractAddr"),
		rule("contractAddress"),
		rule("collection.contractAddress"),
	}

	// numeric ids are rendered as decimal strings
	TokenIDRules = RuleSet{
		rule("tokenId"),
		rule("id"),
	}

	// image as a bare string is last so image { url } is preferred
	ImageRules = RuleSet{
		rule("imageUrl"),
		rule("image.url"),
		rule("media.image"),
		rule("media.url"),
		rule("image"),
	}

	NameRules = RuleSet{
		rule("name"),
	}

	// collection listings also used a plain "address" field
	CollectionListingAddrRules = RuleSet{
		rule("collectionAddr"),
		rule("collectionAddress"),
		rule("contractAddress"),
		rule("address"),
	}

	MintedAtRules = RuleSet{
		rule("mintedAt"),
	}
)

// Lookup returns the first non-empty scalar matched by the rule set and the
// name of the rule that matched.
func (rs RuleSet) Lookup(obj map[string]any) (value, matched string) {
	for _, r := range rs {
		if v, ok := scalarString(walk(obj, r.Path)); ok && v != "" {
			return v, r.Name
		}
	}
	return "", ""
}

func (rs RuleSet) String(obj map[string]any) string {
	v, _ := rs.Lookup(obj)
	return v
}

// Optional returns nil when no rule matched.
func (rs RuleSet) Optional(obj map[string]any) *string {
	if v := rs.String(obj); v != "" {
		return &v
	}
	return nil
}

// NormalizeToken maps a raw entity onto IndexedToken. Entities without a
// collection address or token id are rejected.
func NormalizeToken(raw map[string]any) (types.IndexedToken, bool) {
	t := types.IndexedToken{
		CollectionAddr: CollectionAddrRules.String(raw),
		TokenID:        TokenIDRules.String(raw),
		Image:          ImageRules.Optional(raw),
		Name:           NameRules.Optional(raw),
	}
	if t.CollectionAddr == "" || t.TokenID == "" {
		return types.IndexedToken{}, false
	}
	return t, true
}

// NormalizeCollection maps a raw collection listing entry.
func NormalizeCollection(raw map[string]any) (types.IndexedCollection, bool) {
	c := types.IndexedCollection{
		Name:           NameRules.Optional(raw),
		CollectionAddr: CollectionListingAddrRules.String(raw),
		MintedAt:       MintedAtRules.Optional(raw),
	}
	if c.CollectionAddr == "" {
		return types.IndexedCollection{}, false
	}
	return c, true
}

func walk(obj map[string]any, path []string) any {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// decodeObject decodes raw JSON into a generic object, keeping numbers exact.
func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// objectAt returns obj[key] when it is an object.
func objectAt(obj map[string]any, key string) (map[string]any, bool) {
	m, ok := obj[key].(map[string]any)
	return m, ok
}

// listAt returns the objects of obj[key]. A missing or null list is empty;
// non-object elements are skipped.
func listAt(obj map[string]any, key string) []map[string]any {
	raw, _ := obj[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, el := range raw {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// edgeNodes flattens a relay style edges { node } list.
func edgeNodes(obj map[string]any) []map[string]any {
	edges := listAt(obj, "edges")
	out := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if n, ok := e["node"].(map[string]any); ok {
			out = append(out, n)
		}
	}
	return out
}

func intAt(obj map[string]any, key string) *int {
	s, ok := scalarString(obj[key])
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func boolAt(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func normalizeTokens(raws []map[string]any) []types.IndexedToken {
	out := make([]types.IndexedToken, 0, len(raws))
	for _, raw := range raws {
		if t, ok := NormalizeToken(raw); ok {
			out = append(out, t)
		}
	}
	return out
}

func normalizeCollections(raws []map[string]any) []types.IndexedCollection {
	out := make([]types.IndexedCollection, 0, len(raws))
	for _, raw := range raws {
		if c, ok := NormalizeCollection(raw); ok {
			out = append(out, c)
		}
	}
	return out
}
