package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"hypeflow/internal/httpx"
)

// Helius is a client for the Helius token APIs.
type Helius struct {
	base   string
	apiKey string
	http   *httpx.Client
}

// NewHelius creates a Helius client.
func NewHelius(base, apiKey string, client *httpx.Client) *Helius {
	if base == "" {
		base = DefaultHeliusURL
	}
	if client == nil {
		client = httpx.NewClient()
	}
	return &Helius{base: strings.TrimRight(base, "/"), apiKey: apiKey, http: client}
}

// Enabled reports whether an API key is configured.
func (h *Helius) Enabled() bool {
	return h.apiKey != ""
}

// HeliusToken is one token metadata document.
type HeliusToken struct {
	Account     string `json:"account"`
	OnChainData *struct {
		Mint string `json:"mint"`
		Data struct {
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
			URI    string `json:"uri"`
		} `json:"data"`
		Collection *struct {
			Key      string `json:"key"`
			Verified bool   `json:"verified"`
		} `json:"collection"`
	} `json:"onChainData"`
	OffChainData *struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Image       string `json:"image"`
	} `json:"offChainData"`
}

// Name returns the off-chain name, falling back to the on-chain one.
func (t *HeliusToken) Name() string {
	if t.OffChainData != nil && t.OffChainData.Name != "" {
		return t.OffChainData.Name
	}
	if t.OnChainData != nil {
		return t.OnChainData.Data.Name
	}
	return ""
}

// Description returns the off-chain description.
func (t *HeliusToken) Description() string {
	if t.OffChainData != nil {
		return t.OffChainData.Description
	}
	return ""
}

// Image returns the raw off-chain image URL.
func (t *HeliusToken) Image() string {
	if t.OffChainData != nil {
		return t.OffChainData.Image
	}
	return ""
}

// CollectionKey returns the on-chain collection key, if any.
func (t *HeliusToken) CollectionKey() string {
	if t.OnChainData != nil && t.OnChainData.Collection != nil {
		return t.OnChainData.Collection.Key
	}
	return ""
}

func (h *Helius) endpoint(path string) string {
	return fmt.Sprintf("%s%s?api-key=%s", h.base, path, url.QueryEscape(h.apiKey))
}

// MintList returns mints created since the given time.
func (h *Helius) MintList(ctx context.Context, since time.Time, limit int) ([]string, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"timeRange": map[string]int64{"startTime": since.UnixMilli()},
		},
		"limit": limit,
	}
	var resp struct {
		Result []json.RawMessage `json:"result"`
	}
	if err := h.http.PostJSON(ctx, h.endpoint("/v0/tokens/mintlist"), body, &resp); err != nil {
		return nil, fmt.Errorf("helius mintlist: %w", err)
	}

	// Entries are either bare mint strings or {"mint": ...} objects.
	mints := make([]string, 0, len(resp.Result))
	for _, raw := range resp.Result {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			mints = append(mints, s)
			continue
		}
		var obj struct {
			Mint string `json:"mint"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Mint != "" {
			mints = append(mints, obj.Mint)
		}
	}
	return mints, nil
}

// TokenMetadata returns metadata documents for the given mints.
func (h *Helius) TokenMetadata(ctx context.Context, mints []string) ([]HeliusToken, error) {
	var out []HeliusToken
	body := map[string]interface{}{"mintAccounts": mints}
	if err := h.http.PostJSON(ctx, h.endpoint("/v0/tokens/metadata"), body, &out); err != nil {
		return nil, fmt.Errorf("helius metadata: %w", err)
	}
	return out, nil
}
