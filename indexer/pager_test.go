package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usemiddleman/middleman/types"
)

func ownedOffsetDoc() string     { return OwnedTokensRegistry().Variants[0].Document }
func ownedConnectionDoc() string { return OwnedTokensRegistry().Variants[1].Document }
func ownedSimpleDoc() string     { return OwnedTokensRegistry().Variants[2].Document }

func tokenJSON(collection string, id int) string {
	return fmt.Sprintf(`{"tokenId":"%d","collectionAddr":"%s","name":"#%d","imageUrl":null,"image":{"url":"https://img/%d.png"}}`, id, collection, id, id)
}

func tokensJSON(collection string, from, to int) string {
	parts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		parts = append(parts, tokenJSON(collection, i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func intVar(vars map[string]any, key string) int {
	switch v := vars[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// offsetServer serves total tokens through the offset variant.
func offsetServer(total int) func(map[string]any) (json.RawMessage, error) {
	return func(vars map[string]any) (json.RawMessage, error) {
		offset, limit := intVar(vars, "offset"), intVar(vars, "limit")
		end := min(offset+limit, total)
		if offset > end {
			offset = end
		}
		body := fmt.Sprintf(`{"tokens":{"tokens":%s,"total":%d,"limit":%d,"offset":%d}}`, tokensJSON("stars1col", offset, end), total, limit, offset)
		return json.RawMessage(body), nil
	}
}

func newOwnedPager(ft *fakeTransport, ceiling int) *Pager[types.IndexedToken] {
	exec := NewExecutor(OwnedTokensRegistry(), ft, discardLogger())
	return NewPager(exec, tokenKey, ceiling, discardLogger())
}

func TestOffsetPaginationCursorSequence(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), offsetServer(250))
	pager := newOwnedPager(ft, types.MaxIterationsOwned)
	ctx := context.Background()

	var raws []string
	cursor := ""
	count := 0
	for {
		page, err := pager.FetchPage(ctx, "stars1owner", cursor, 100)
		require.NoError(t, err)
		count += len(page.Entities)
		if page.NextCursor == "" {
			break
		}
		_, raw, err := DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		raws = append(raws, raw)
		cursor = page.NextCursor
	}
	require.Equal(t, []string{"100", "200"}, raws)
	require.Equal(t, 250, count)
	require.Equal(t, 3, ft.count(ownedOffsetDoc()))

	all, err := pager.FetchAll(ctx, "stars1owner", 5000, 100)
	require.NoError(t, err)
	require.Len(t, all, 250)
}

func TestFetchAllCursorModeStopsAndDedups(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), fail(`Unknown argument "offset"`))
	ft.on(ownedConnectionDoc(), func(vars map[string]any) (json.RawMessage, error) {
		switch vars["after"] {
		case nil:
			return json.RawMessage(`{"tokens":{"tokens":` + tokensJSON("stars1c", 0, 3) + `,"pageInfo":{"hasNextPage":true,"endCursor":"p2"}}}`), nil
		case "p2":
			// token 2 repeats across the page boundary
			return json.RawMessage(`{"tokens":{"tokens":` + tokensJSON("stars1c", 2, 5) + `,"pageInfo":{"hasNextPage":false,"endCursor":"p3"}}}`), nil
		default:
			return nil, fmt.Errorf("unexpected cursor %v", vars["after"])
		}
	})
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 2000, 3)
	require.NoError(t, err)
	require.Len(t, all, 5)

	seen := map[string]bool{}
	for _, tok := range all {
		require.False(t, seen[tok.Key().String()])
		seen[tok.Key().String()] = true
	}
	require.Equal(t, 2, ft.count(ownedConnectionDoc()))
}

func TestFetchAllEmptyFirstPage(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), ok(`{"tokens":{"tokens":[],"total":0,"limit":100,"offset":0}}`))
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 2000, 100)
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func TestFetchAllFailSoft(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), func(vars map[string]any) (json.RawMessage, error) {
		if intVar(vars, "offset") >= 100 {
			return nil, &types.TransportError{Method: "GET", HTTPStatus: 502, Message: "bad gateway"}
		}
		return offsetServer(250)(vars)
	})
	ft.on(ownedConnectionDoc(), fail("nope"))
	ft.on(ownedSimpleDoc(), fail("nope"))
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 2000, 100)
	require.Error(t, err)
	require.Len(t, all, 100, "first page survives a mid-sequence failure")
}

func TestFetchAllRestartsOnceAfterCursorInvalidation(t *testing.T) {
	ft := newFakeTransport()
	calls := 0
	ft.on(ownedOffsetDoc(), func(vars map[string]any) (json.RawMessage, error) {
		calls++
		if calls > 1 {
			return nil, &types.TransportError{Method: "GET", HTTPStatus: 400, Message: `Cannot query field "total"`}
		}
		return offsetServer(4)(vars)
	})
	ft.on(ownedConnectionDoc(), func(vars map[string]any) (json.RawMessage, error) {
		if vars["after"] == nil {
			return json.RawMessage(`{"tokens":{"tokens":` + tokensJSON("stars1col", 0, 2) + `,"pageInfo":{"hasNextPage":true,"endCursor":"n"}}}`), nil
		}
		return json.RawMessage(`{"tokens":{"tokens":` + tokensJSON("stars1col", 2, 4) + `,"pageInfo":{"hasNextPage":false}}}`), nil
	})
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 2000, 2)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, OwnedTokensRegistry().Variants[1].Name, pager.exec.Active())
}

func TestFetchAllAbortsOnSecondInvalidation(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), func(vars map[string]any) (json.RawMessage, error) {
		if intVar(vars, "offset") > 0 {
			return nil, &types.TransportError{Method: "GET", HTTPStatus: 500, Message: "flaky"}
		}
		return offsetServer(10)(vars)
	})
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 2000, 5)
	require.ErrorIs(t, err, types.ErrCursorInvalidated)
	require.Len(t, all, 5)
}

func TestFetchAllHonoursIterationCeiling(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), fail("no"))
	n := 0
	ft.on(ownedConnectionDoc(), func(vars map[string]any) (json.RawMessage, error) {
		n++
		// a server that always claims there is more
		return json.RawMessage(fmt.Sprintf(`{"tokens":{"tokens":[%s],"pageInfo":{"hasNextPage":true,"endCursor":"c%d"}}}`, tokenJSON("stars1c", n), n)), nil
	})
	pager := newOwnedPager(ft, 7)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 2000, 1)
	require.NoError(t, err)
	require.Len(t, all, 7)
	require.Equal(t, 7, ft.count(ownedConnectionDoc()))
}

func TestFetchAllTruncatesToMaxTotal(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), offsetServer(250))
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	all, err := pager.FetchAll(context.Background(), "stars1owner", 150, 100)
	require.NoError(t, err)
	require.Len(t, all, 150)
	require.Equal(t, 2, ft.count(ownedOffsetDoc()))
}

func TestFetchPageIsIdempotent(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), offsetServer(250))
	pager := newOwnedPager(ft, types.MaxIterationsOwned)
	ctx := context.Background()

	first, err := pager.FetchPage(ctx, "stars1owner", "", 100)
	require.NoError(t, err)

	a, err := pager.FetchPage(ctx, "stars1owner", first.NextCursor, 100)
	require.NoError(t, err)
	b, err := pager.FetchPage(ctx, "stars1owner", first.NextCursor, 100)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestSimpleVariantHasNoNextPage(t *testing.T) {
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), fail("no"))
	ft.on(ownedConnectionDoc(), fail("no"))
	ft.on(ownedSimpleDoc(), ok(`{"tokens":{"tokens":`+tokensJSON("stars1c", 0, 3)+`}}`))
	pager := newOwnedPager(ft, types.MaxIterationsOwned)

	page, err := pager.FetchPage(context.Background(), "stars1owner", "", 100)
	require.NoError(t, err)
	require.Len(t, page.Entities, 3)
	require.Empty(t, page.NextCursor)
	require.Equal(t, "tokens(ownerAddr simple)", page.Variant)
}
