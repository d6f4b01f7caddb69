package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypeflow/internal/httpx"
	"hypeflow/internal/throttle"
)

func jsonHandler(t *testing.T, routes map[string]interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if code, ok := body.(int); ok {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func TestMagicEden(t *testing.T) {
	var listingsQuery string
	routes := map[string]interface{}{
		"/v2/launchpad/collections": []map[string]interface{}{{"symbol": "okay_bears", "name": "Okay Bears"}},
		"/v2/activities": []map[string]interface{}{
			{"type": "mintV2", "tokenMint": "MintA", "collection": "okay_bears"},
			{"type": "buyNow", "tokenMint": "MintB"},
		},
		"/v2/tokens/MintA": map[string]interface{}{
			"mintAddress": "MintA",
			"owner":       "Owner1",
			"collection":  "okay_bears",
			"name":        "Okay Bear #1",
			"image":       "https://img/1.png",
			"price":       12.5,
		},
		"/v2/tokens/Unlisted": map[string]interface{}{"mintAddress": "Unlisted"},
		"/v2/collections":     []map[string]interface{}{{"symbol": "bonk_nft"}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/collections/okay_bears/listings" {
			listingsQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{{"tokenMint": "MintL", "price": 40.1}})
			return
		}
		jsonHandler(t, routes)(w, r)
	}))
	defer server.Close()

	me := NewMagicEden(server.URL, nil)
	ctx := context.Background()

	launch, err := me.LaunchpadCollections(ctx, 10)
	require.NoError(t, err)
	require.Len(t, launch, 1)
	assert.Equal(t, "okay_bears", launch[0].Symbol)

	listings, err := me.Listings(ctx, "okay_bears", 5)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "MintL", listings[0].TokenMint)
	assert.Equal(t, "offset=0&limit=5", listingsQuery)

	acts, err := me.Activities(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, acts, 2)

	tok, err := me.Token(ctx, "MintA")
	require.NoError(t, err)
	assert.Equal(t, "Owner1", tok.Owner)

	price, err := me.Price(ctx, "MintA")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 12.5, *price)

	price, err = me.Price(ctx, "Unlisted")
	require.NoError(t, err)
	assert.Nil(t, price)

	_, err = me.Price(ctx, "Missing")
	require.Error(t, err)
	assert.True(t, httpx.IsNotFound(err))

	cols, err := me.CollectionsBySymbol(ctx, "bonk", 5)
	require.NoError(t, err)
	assert.Equal(t, "bonk_nft", cols[0].Symbol)
}

func TestMagicEden_RateLimited(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]interface{}{
		"/v2/activities": http.StatusTooManyRequests,
	}))
	defer server.Close()

	_, err := NewMagicEden(server.URL, nil).Activities(context.Background(), 20)
	require.Error(t, err)
	assert.True(t, throttle.IsRateLimited(err))
}

func TestHelius(t *testing.T) {
	var mintlistBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api-key"))
		switch r.URL.Path {
		case "/v0/tokens/mintlist":
			_ = json.NewDecoder(r.Body).Decode(&mintlistBody)
			_, _ = w.Write([]byte(`{"result":["MintA",{"mint":"MintB","name":"B"}]}`))
		case "/v0/tokens/metadata":
			_, _ = w.Write([]byte(`[{"account":"MintA","onChainData":{"data":{"name":"On Chain"},"collection":{"key":"Col1","verified":true}},"offChainData":{"name":"","description":"desc","image":"ipfs://Qm"}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	h := NewHelius(server.URL, "secret", nil)
	assert.True(t, h.Enabled())

	since := time.UnixMilli(1700000000000)
	mints, err := h.MintList(context.Background(), since, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"MintA", "MintB"}, mints)
	assert.Equal(t, float64(20), mintlistBody["limit"])

	tokens, err := h.TokenMetadata(context.Background(), []string{"MintA"})
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "On Chain", tokens[0].Name())
	assert.Equal(t, "desc", tokens[0].Description())
	assert.Equal(t, "ipfs://Qm", tokens[0].Image())
	assert.Equal(t, "Col1", tokens[0].CollectionKey())

	assert.False(t, NewHelius("", "", nil).Enabled())
}

func TestHyperspace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("perPage"))
		_, _ = w.Write([]byte(`{"data":[{"mint":"M1","name":"Mad Lad #1","price":2500000000,"image":"https://i/1.png"},{"mint":"M2","name":"x"}]}`))
	}))
	defer server.Close()

	mints, err := NewHyperspace(server.URL, nil).RecentMints(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, mints, 2)
	require.NotNil(t, mints[0].PriceSOL())
	assert.Equal(t, 2.5, *mints[0].PriceSOL())
	assert.Nil(t, mints[1].PriceSOL())
}

func TestTensor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "tswapPools")
		assert.Equal(t, float64(20), req.Variables["limit"])
		_, _ = w.Write([]byte(`{"data":{"tswapPools":[{"address":"P1","mint":"MintT"}]}}`))
	}))
	defer server.Close()

	pools, err := NewTensor(server.URL, nil).TopPools(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, "MintT", pools[0].Mint)
}

func TestTensor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewTensor(server.URL, nil).TopPools(context.Background(), 20)
	require.Error(t, err)
	assert.True(t, throttle.IsRateLimited(err))
}

func TestSolanaFM(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, map[string]interface{}{
		"/v0/collections/trending": map[string]interface{}{
			"result": []map[string]interface{}{{"mintAddress": "Col1", "name": "One"}},
		},
	}))
	defer server.Close()

	cols, err := NewSolanaFM(server.URL, nil).TrendingCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "Col1", cols[0].MintAddress)
}

func TestJupiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BONK,JUP", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"data":{"JUP":{"id":"JUP","mintSymbol":"JUP","price":0.9},"BONK":{"id":"BONK","mintSymbol":"Bonk","price":0.00002}}}`))
	}))
	defer server.Close()

	prices, err := NewJupiter(server.URL, nil).Prices(context.Background(), []string{"BONK", "JUP"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "Bonk", prices[0].MintSymbol)
	assert.Equal(t, "JUP", prices[1].MintSymbol)
}
