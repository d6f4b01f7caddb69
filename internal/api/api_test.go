package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypeflow/internal/domain"
	"hypeflow/internal/media"
	"hypeflow/internal/patch"
	"hypeflow/internal/pipeline"
	"hypeflow/internal/scheduler"
	"hypeflow/internal/storage/memory"
)

const validCollection = "SMBtHCCC6RYRutFEPb4qZUX8JB2EPdMQaA8LorrLgmz"

type nopResolver struct{}

func (nopResolver) Resolve(context.Context, string) (*domain.NFTRecord, error) { return nil, nil }

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	rs, err := patch.DefaultRules()
	require.NoError(t, err)
	return pipeline.New(memory.NewSeenSet(), memory.NewRecordCache(10), memory.NewSubscriptionStore(), nopResolver{}, patch.New(rs, nil))
}

func newTestServer(t *testing.T, p Pipeline) http.Handler {
	t.Helper()
	return NewServer(p, media.NewProxy(), nil).Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListNFTs(t *testing.T) {
	p := newTestPipeline(t)
	h := newTestServer(t, p)

	rec := do(t, h, http.MethodGet, "/api/nfts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, id := range []string{"A", "B"} {
		r := domain.NewNFTRecord(id, domain.SourceTensor, time.UnixMilli(1700000000000))
		r.Metadata.Name = "Thing " + id
		r.Metadata.Image = "https://img.example/" + id + ".png"
		require.True(t, p.Admit(context.Background(), r))
	}

	rec = do(t, h, http.MethodGet, "/api/nfts?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.NFTRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "A", got[1].ID)
	assert.Equal(t, "SOL", got[0].Currency)
}

func TestSubscribe(t *testing.T) {
	p := newTestPipeline(t)
	h := newTestServer(t, p)

	rec := do(t, h, http.MethodPost, "/api/collections/subscribe", `{"address":"`+validCollection+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Subscribed to collection `+validCollection+`"}`, rec.Body.String())

	// Subscribing twice is still a success.
	rec = do(t, h, http.MethodPost, "/api/collections/subscribe", `{"address":"`+validCollection+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/collections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []struct {
		Address    string `json:"address"`
		Subscribed int64  `json:"subscribed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, validCollection, subs[0].Address)
	assert.NotZero(t, subs[0].Subscribed)
}

func TestSubscribe_BadRequestsDoNotMutate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed body", `{"address":`, "Invalid request body"},
		{"missing address", `{}`, "Collection address is required"},
		{"empty address", `{"address":""}`, "Collection address is required"},
		{"not base58", `{"address":"0OIl-not-an-address"}`, "Invalid Solana address"},
		{"wrong length", `{"address":"abc"}`, "Invalid Solana address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t)
			h := newTestServer(t, p)

			rec := do(t, h, http.MethodPost, "/api/collections/subscribe", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, rec.Body.String())
			assert.Empty(t, p.Subscriptions())
		})
	}
}

type failingPipeline struct{ Pipeline }

func (failingPipeline) Subscribe(context.Context, string) (bool, int, error) {
	return false, 0, errors.New("store unavailable")
}

func TestSubscribe_UnexpectedFailure(t *testing.T) {
	h := newTestServer(t, failingPipeline{newTestPipeline(t)})

	rec := do(t, h, http.MethodPost, "/api/collections/subscribe", `{"address":"`+validCollection+`"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Server error subscribing to collection"}`, rec.Body.String())
}

func TestProxyImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/art.png":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(png)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	h := newTestServer(t, newTestPipeline(t))
	proxy := func(raw string) string { return "/api/proxy-image?url=" + url.QueryEscape(raw) }

	t.Run("missing url", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/proxy-image", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("allow-listed host redirects", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, proxy("https://arweave.net/abc"), "")
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "https://arweave.net/abc", rec.Header().Get("Location"))
	})

	t.Run("scheme-less url gets placeholder", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, proxy("images/1.png"), "")
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, media.PlaceholderURL, rec.Header().Get("Location"))
	})

	t.Run("fetched and streamed", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, proxy(upstream.URL+"/art.png"), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
		assert.True(t, bytes.Equal(png, rec.Body.Bytes()))
	})

	t.Run("upstream failure redirects to error image", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, proxy(upstream.URL+"/missing.png"), "")
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, media.ErrorImageURL, rec.Header().Get("Location"))
	})
}

func TestStatusAndHealth(t *testing.T) {
	p := newTestPipeline(t)
	p.Seed([]string{validCollection})
	srv := NewServer(p, media.NewProxy(), nil).
		WithSources([]string{"onchain", "tensor"}).
		WithTriggerStatus(func() []scheduler.RunInfo {
			return []scheduler.RunInfo{{Name: "aggregation", Runs: 2, LastStatus: scheduler.StatusOK}}
		}).
		WithBreakerStatus(func() map[string]string {
			return map[string]string{"onchain": "closed", "tensor": "open"}
		})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, pipeline.Stats{Subscriptions: 1}, status.Stores)
	assert.Equal(t, []string{"onchain", "tensor"}, status.Sources)
	require.Len(t, status.Triggers, 1)
	assert.Equal(t, 2, status.Triggers[0].Runs)
	assert.Equal(t, map[string]string{"onchain": "closed", "tensor": "open"}, status.Breakers)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hypeflow_")
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, newTestPipeline(t))

	req := httptest.NewRequest(http.MethodGet, "/api/nfts", nil)
	req.Header.Set("Origin", "https://gallery.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
