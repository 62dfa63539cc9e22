package chain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usemiddleman/middleman/types"
)

func TestIPFSToHTTP(t *testing.T) {
	gw := "https://gw.test/ipfs/"
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"ipfs://bafycid/1.json", gw + "bafycid/1.json"},
		{"ipfs://bafycid", gw + "bafycid"},
		{"https://cloudflare-ipfs.com/ipfs/Qm123/images/1.png", gw + "Qm123/images/1.png"},
		{"https://ipfs.io/ipfs/Qm456", gw + "Qm456"},
		{"http://nftstorage.link/ipfs/bafy789/meta.json?x=1", gw + "bafy789/meta.json"},
		{"https://example.com/token/1.json", "https://example.com/token/1.json"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, IPFSToHTTP(tt.in, gw))
		})
	}
}

func TestPickImage(t *testing.T) {
	gw := "https://gw.test/ipfs/"
	tests := []struct {
		name string
		meta string
		want string
	}{
		{"image", `{"image":"ipfs://a/1.png","image_url":"https://x"}`, gw + "a/1.png"},
		{"image_url", `{"image":"","image_url":"https://img/2.png"}`, "https://img/2.png"},
		{"imageURI", `{"imageURI":"https://img/3.png"}`, "https://img/3.png"},
		{"media", `{"media":"https://cloudflare-ipfs.com/ipfs/Qm4"}`, gw + "Qm4"},
		{"properties.image", `{"media":{"kind":"video"},"properties":{"image":"https://img/5.png"}}`, "https://img/5.png"},
		{"none", `{"name":"x"}`, ""},
		{"not an object", `[1,2]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickImage([]byte(tt.meta), gw)
			if tt.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.want, *got)
		})
	}
}

// metadataServer serves /json/<id>, /image/<id> and /text/<id>.
func metadataServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/json/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"name":"Kid","image":"ipfs://bafyimg/kid.png"}`)
	})
	mux.HandleFunc("/image/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/text/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html></html>")
	})
	mux.HandleFunc("/broken/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

// tokenURIs maps token ids of addrKids to token_uri values.
func lcdWithTokenURIs(t *testing.T, uris map[string]string) *fakeLCD {
	t.Helper()
	lcd := newFakeLCD(t)
	lcd.on(addrKids, func(query map[string]any) (int, string) {
		info := query["nft_info"].(map[string]any)
		uri, ok := uris[info["token_id"].(string)]
		if !ok {
			return 200, `{"data":{"token_uri":null,"extension":{"image":"x"}}}`
		}
		return 200, fmt.Sprintf(`{"data":{"token_uri":%q,"extension":null}}`, uri)
	})
	return lcd
}

func TestResolveMedia(t *testing.T) {
	meta, metaHits := metadataServer(t)
	lcd := lcdWithTokenURIs(t, map[string]string{
		"1": meta.URL + "/json/1",
		"2": meta.URL + "/json/1",
		"3": meta.URL + "/image/3",
		"4": meta.URL + "/text/4",
		"5": meta.URL + "/broken/5",
	})
	q := newTestQuerier(t, lcd.URL)
	ctx := context.Background()

	media, err := q.ResolveMedia(ctx, addrKids, "1")
	require.NoError(t, err)
	require.Equal(t, "https://gw.test/ipfs/bafyimg/kid.png", *media.Image)
	require.Equal(t, meta.URL+"/json/1", *media.RawTokenURI)
	require.JSONEq(t, `{"name":"Kid","image":"ipfs://bafyimg/kid.png"}`, string(media.Metadata))

	// same token_uri, served from the metadata cache
	media, err = q.ResolveMedia(ctx, addrKids, "2")
	require.NoError(t, err)
	require.Equal(t, "https://gw.test/ipfs/bafyimg/kid.png", *media.Image)
	require.Equal(t, int32(1), metaHits.Load())

	media, err = q.ResolveMedia(ctx, addrKids, "3")
	require.NoError(t, err)
	require.Equal(t, meta.URL+"/image/3", *media.Image)
	require.JSONEq(t, `{"direct":true}`, string(media.Metadata))
	_, err = q.ResolveMedia(ctx, addrKids, "3")
	require.NoError(t, err)
	require.Equal(t, int32(2), metaHits.Load())

	media, err = q.ResolveMedia(ctx, addrKids, "4")
	require.NoError(t, err)
	require.Nil(t, media.Image)
	require.JSONEq(t, `{"contentType":"text/html"}`, string(media.Metadata))

	media, err = q.ResolveMedia(ctx, addrKids, "5")
	require.NoError(t, err)
	require.Nil(t, media.Image)
	require.NotEmpty(t, media.Error)
	require.Equal(t, meta.URL+"/broken/5", *media.RawTokenURI)

	media, err = q.ResolveMedia(ctx, addrKids, "6")
	require.NoError(t, err)
	require.Nil(t, media.Image)
	require.Nil(t, media.RawTokenURI)
	require.Contains(t, string(media.Metadata), "extension")
}

func TestBatchResolveMedia(t *testing.T) {
	meta, _ := metadataServer(t)
	uris := map[string]string{}
	var tokens []types.EntityKey
	for i := 0; i < 10; i++ {
		id := fmt.Sprint(i)
		uris[id] = meta.URL + "/image/" + id
		tokens = append(tokens, types.EntityKey{Collection: addrKids, TokenID: id})
	}
	q := newTestQuerier(t, lcdWithTokenURIs(t, uris).URL)

	var (
		mu       sync.Mutex
		progress []int
		totals   = map[int]bool{}
	)
	results, err := q.BatchResolveMedia(context.Background(), tokens, 3, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		totals[total] = true
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, results, 10)
	for _, tok := range tokens {
		require.Equal(t, meta.URL+"/image/"+tok.TokenID, *results[tok.String()].Image)
	}
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, progress)
	require.Equal(t, map[int]bool{10: true}, totals)
}

func TestBatchResolveMediaFailsFast(t *testing.T) {
	lcd := newFakeLCD(t)
	q := newTestQuerier(t, lcd.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tokens := []types.EntityKey{{Collection: addrKids, TokenID: "1"}, {Collection: addrKids, TokenID: "2"}}
	results, err := q.BatchResolveMedia(ctx, tokens, 0, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
	require.Zero(t, lcd.hits.Load())
}
