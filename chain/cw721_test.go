package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerTokens(t *testing.T) {
	lcd := newFakeLCD(t)
	lcd.on(addrKids, func(map[string]any) (int, string) {
		return 200, `{"data":{"tokens":["1","2","3"]}}`
	})
	q := newTestQuerier(t, lcd.URL)

	require.Equal(t, []string{"1", "2", "3"}, q.OwnerTokens(context.Background(), addrKids, addrAlice, "0"))
	require.Equal(t, map[string]any{"tokens": map[string]any{"owner": addrAlice, "limit": float64(50), "start_after": "0"}}, lcd.lastQuery())

	q.OwnerTokens(context.Background(), addrKids, addrAlice, "")
	require.NotContains(t, lcd.lastQuery()["tokens"], "start_after")
}

func TestOwnerTokensFailureIsEmpty(t *testing.T) {
	lcd := newFakeLCD(t)
	q := newTestQuerier(t, lcd.URL)

	got := q.OwnerTokens(context.Background(), addrPunks, addrAlice, "")
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestIsApproved(t *testing.T) {
	lcd := newFakeLCD(t)
	lcd.on(addrKids, func(query map[string]any) (int, string) {
		approval := query["approval"].(map[string]any)
		if approval["token_id"] == "1" && approval["spender"] == addrEscrow && approval["include_expired"] == false {
			return 200, `{"data":{"approval":{"spender":"` + addrEscrow + `","expires":{"never":{}}}}}`
		}
		return 500, `{"code":2,"message":"Approval not found"}`
	})
	q := newTestQuerier(t, lcd.URL)

	require.True(t, q.IsApproved(context.Background(), addrKids, "1", addrEscrow))
	require.False(t, q.IsApproved(context.Background(), addrKids, "2", addrEscrow))
}

func TestNftInfoIsCached(t *testing.T) {
	lcd := newFakeLCD(t)
	lcd.on(addrKids, func(map[string]any) (int, string) {
		return 200, `{"data":{"token_uri":"ipfs://bafy/1.json","extension":null}}`
	})
	q := newTestQuerier(t, lcd.URL)
	ctx := context.Background()

	info := q.NftInfo(ctx, addrKids, "1")
	require.Equal(t, "ipfs://bafy/1.json", *info.TokenURI)
	hits := lcd.hits.Load()

	info = q.NftInfo(ctx, addrKids, "1")
	require.Equal(t, "ipfs://bafy/1.json", *info.TokenURI)
	require.Equal(t, hits, lcd.hits.Load())
}

func TestNftInfoFailureCachesEmpty(t *testing.T) {
	lcd := newFakeLCD(t)
	q := newTestQuerier(t, lcd.URL)
	ctx := context.Background()

	info := q.NftInfo(ctx, addrPunks, "9")
	require.Nil(t, info.TokenURI)
	hits := lcd.hits.Load()
	require.Positive(t, hits)

	q.NftInfo(ctx, addrPunks, "9")
	require.Equal(t, hits, lcd.hits.Load())
}

func TestApprove(t *testing.T) {
	q := newTestQuerier(t, "http://127.0.0.1:1")

	msg, err := q.Approve(addrAlice, addrKids, "12", addrEscrow)
	require.NoError(t, err)
	require.Equal(t, addrKids, msg.Contract)
	require.Equal(t, map[string]any{"approve": map[string]any{"spender": addrEscrow, "token_id": "12"}}, decodeMsg(t, msg.Msg))

	_, err = q.Approve(addrAlice, addrKids, "12", addrCosmos)
	require.Error(t, err)
}
