package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypeflow/internal/domain"
	"hypeflow/internal/httpx"
	"hypeflow/internal/market"
	"hypeflow/internal/solana"
	"hypeflow/internal/solana/stub"
	"hypeflow/internal/storage/memory"
	"hypeflow/internal/throttle"
)

func TestMagicEdenLaunchpad(t *testing.T) {
	env, seen := testEnv()
	seen.MarkSeen("Seen1")

	server := httptest.NewServer(routes(t, map[string]interface{}{
		"/v2/launchpad/collections": []map[string]interface{}{
			{"symbol": "a"}, {"name": "no symbol"}, {"symbol": "b"}, {"symbol": "c"}, {"symbol": "d"},
		},
		"/v2/collections/a/listings": []map[string]interface{}{
			{"tokenMint": "A1"}, {"tokenMint": "Seen1"}, {"tokenMint": "A3"}, {"tokenMint": "A4"},
		},
		"/v2/collections/b/listings": http.StatusInternalServerError,
		"/v2/collections/c/listings": []map[string]interface{}{{"tokenMint": "C1"}, {"tokenMint": "A1"}},
		"/v2/collections/d/listings": []map[string]interface{}{{"tokenMint": "D1"}},
	}))
	defer server.Close()

	a := NewMagicEdenLaunchpad(market.NewMagicEden(server.URL, nil), env)
	d, err := a.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SourceMagicEden, d.Source)
	assert.Equal(t, []string{"A1", "A3", "C1"}, d.Mints)
}

func TestMagicEdenLaunchpad_RateLimited(t *testing.T) {
	env, _ := testEnv()
	server := httptest.NewServer(routes(t, map[string]interface{}{
		"/v2/launchpad/collections":  []map[string]interface{}{{"symbol": "a"}, {"symbol": "b"}},
		"/v2/collections/a/listings": []map[string]interface{}{{"tokenMint": "A1"}},
		"/v2/collections/b/listings": http.StatusTooManyRequests,
	}))
	defer server.Close()

	d, err := NewMagicEdenLaunchpad(market.NewMagicEden(server.URL, nil), env).Discover(context.Background())
	require.Error(t, err)
	assert.True(t, throttle.IsRateLimited(err))
	assert.Equal(t, []string{"A1"}, d.Mints, "partial results survive")
}

func TestMagicEdenActivities(t *testing.T) {
	env, _ := testEnv()
	server := httptest.NewServer(routes(t, map[string]interface{}{
		"/v2/activities": []map[string]interface{}{
			{"type": "mintV2", "tokenMint": "MintA"},
			{"type": "buyNow", "tokenMint": "MintB"},
			{"type": "list", "tokenMint": "Gone"},
			{"type": "mint", "tokenMint": "MintC"},
		},
		"/v2/tokens/MintA": map[string]interface{}{
			"mintAddress": "MintA",
			"owner":       "Owner1",
			"collection":  "okay_bears",
			"name":        "Okay Bear #1",
			"image":       "ipfs://QmA",
			"price":       12.5,
			"attributes":  map[string]interface{}{"description": "bear"},
		},
		"/v2/tokens/MintC": map[string]interface{}{"mintAddress": "MintC"},
	}))
	defer server.Close()

	d, err := NewMagicEdenActivities(market.NewMagicEden(server.URL, nil), env).Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.Mints)
	require.Len(t, d.Records, 2)

	a := d.Records[0]
	assert.Equal(t, "MintA", a.ID)
	assert.Equal(t, "okay_bears", a.CollectionID)
	assert.Equal(t, "Owner1", a.Owner)
	assert.Equal(t, "Okay Bear #1", a.Metadata.Name)
	assert.Equal(t, "bear", a.Metadata.Description)
	assert.Equal(t, "https://ipfs.io/ipfs/QmA", a.Metadata.Image)
	require.NotNil(t, a.Price)
	assert.Equal(t, 12.5, *a.Price)
	assert.Equal(t, testNow, a.DiscoveredAt)

	c := d.Records[1]
	assert.Equal(t, domain.Unknown, c.CollectionID)
	assert.Equal(t, domain.DefaultDescription, c.Metadata.Description)
	assert.Empty(t, c.Metadata.Image)
	assert.Nil(t, c.Price)
}

func TestHelius_Disabled(t *testing.T) {
	env, _ := testEnv()
	d, err := NewHelius(market.NewHelius("http://127.0.0.1:1", "", nil), env).Discover(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestHelius(t *testing.T) {
	env, seen := testEnv()
	seen.MarkSeen("Old")

	var batches [][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("api-key"))
		switch r.URL.Path {
		case "/v0/tokens/mintlist":
			_, _ = w.Write([]byte(`{"result":["M1","Old",{"mint":"M2"},"M3","M4","M5","M6"]}`))
		case "/v0/tokens/metadata":
			var body struct {
				MintAccounts []string `json:"mintAccounts"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			batches = append(batches, body.MintAccounts)
			var docs []map[string]interface{}
			for _, m := range body.MintAccounts {
				docs = append(docs, map[string]interface{}{
					"account": m,
					"onChainData": map[string]interface{}{
						"data":       map[string]interface{}{"name": "On " + m},
						"collection": map[string]interface{}{"key": "Col", "verified": true},
					},
					"offChainData": map[string]interface{}{"image": "ar://" + m},
				})
			}
			_ = json.NewEncoder(w).Encode(docs)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d, err := NewHelius(market.NewHelius(server.URL, "key", nil), env).Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"M1", "M2", "M3", "M4", "M5"}, {"M6"}}, batches)
	require.Len(t, d.Records, 6)
	r := d.Records[0]
	assert.Equal(t, "M1", r.ID)
	assert.Equal(t, "Col", r.CollectionID)
	assert.Equal(t, "On M1", r.Metadata.Name)
	assert.Equal(t, "https://arweave.net/M1", r.Metadata.Image)
	assert.Equal(t, domain.DefaultDescription, r.Metadata.Description)
	assert.Equal(t, domain.SourceHelius, r.Source)
}

func TestHyperspace_OldestFirst(t *testing.T) {
	env, seen := testEnv()
	seen.MarkSeen("Seen")

	server := httptest.NewServer(routes(t, map[string]interface{}{
		"/api/v2/mints": map[string]interface{}{"data": []map[string]interface{}{
			{"mint": "Newest", "name": "Degen #3", "image": "https://img/3.png", "price": 1.5e9, "owner": "W"},
			{"mint": "Seen", "name": "Degen #2"},
			{"mint": "Oldest", "name": "Degen #1", "collectionName": "Degens", "tokenMetadata": map[string]interface{}{"description": "first"}},
			{"name": "no mint"},
		}},
	}))
	defer server.Close()

	d, err := NewHyperspace(market.NewHyperspace(server.URL, nil), env).Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Records, 2)

	oldest, newest := d.Records[0], d.Records[1]
	assert.Equal(t, "Oldest", oldest.ID)
	assert.Equal(t, "Degens", oldest.CollectionID)
	assert.Equal(t, "first", oldest.Metadata.Description)
	assert.Nil(t, oldest.Price)

	assert.Equal(t, "Newest", newest.ID)
	assert.Equal(t, "Degen", newest.CollectionID)
	assert.Equal(t, "W", newest.Owner)
	assert.Equal(t, "Solana NFT from collection Degen", newest.Metadata.Description)
	require.NotNil(t, newest.Price)
	assert.InDelta(t, 1.5, *newest.Price, 1e-9)
}

func TestTensor(t *testing.T) {
	env, _ := testEnv()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"tswapPools":[{"mint":"T1"},{"mint":""},{"mint":"T2"},{"mint":"T1"}]}}`))
	}))
	defer server.Close()

	d, err := NewTensor(market.NewTensor(server.URL, server.Client()), env).Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, d.Mints)
}

func TestSolanaFM_SubscribesAndScans(t *testing.T) {
	env, _ := testEnv()
	colA := base58.Encode(pubkey(50))
	server := httptest.NewServer(routes(t, map[string]interface{}{
		"/v0/collections/trending": map[string]interface{}{"result": []map[string]interface{}{
			{"mintAddress": colA, "name": "A"},
			{"name": "no address"},
			{"mintAddress": "bad address"},
		}},
	}))
	defer server.Close()

	rpc := stub.NewRPCClient()
	rpc.ProgramAccounts = []solana.ProgramAccount{{Data: pubkey(9)}}
	subs := memory.NewSubscriptionStore()

	a := NewSolanaFM(market.NewSolanaFM(server.URL, nil), subs, NewCollectionScan(rpc, env), env)
	d, err := a.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{base58.Encode(pubkey(9))}, d.Mints)
	assert.True(t, subs.Has(colA))
	assert.False(t, subs.Has("bad address"))
	assert.Equal(t, 1, rpc.Calls("getProgramAccounts"))
}

func TestJupiter(t *testing.T) {
	env, _ := testEnv()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/price":
			_, _ = w.Write([]byte(`{"data":{"BONK":{"id":"BONK","mintSymbol":"BONK"},"JUP":{"id":"JUP"}}}`))
		case "/v2/collections":
			assert.Equal(t, "bonk", r.URL.Query().Get("symbol"))
			_, _ = w.Write([]byte(`[{"symbol":"bonk_nft"},{"symbol":""}]`))
		case "/v2/collections/bonk_nft/listings":
			_, _ = w.Write([]byte(`[{"tokenMint":"B1"},{"tokenMint":"B2"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	me := market.NewMagicEden(server.URL, httpx.NewClient())
	a := NewJupiter(market.NewJupiter(server.URL, nil), me, []string{"BONK", "JUP"}, env)
	d, err := a.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B2"}, d.Mints)
}
