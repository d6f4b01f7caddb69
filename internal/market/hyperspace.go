package market

import (
	"context"
	"fmt"
	"strings"

	"hypeflow/internal/httpx"
)

// Hyperspace is a client for the Hyperspace mints feed.
type Hyperspace struct {
	base string
	http *httpx.Client
}

// NewHyperspace creates a Hyperspace client.
func NewHyperspace(base string, client *httpx.Client) *Hyperspace {
	if base == "" {
		base = DefaultHyperspaceURL
	}
	if client == nil {
		client = httpx.NewClient()
	}
	return &Hyperspace{base: strings.TrimRight(base, "/"), http: client}
}

// HyperspaceMint is one recent mint. Price is in lamports.
type HyperspaceMint struct {
	Mint           string  `json:"mint"`
	Name           string  `json:"name"`
	CollectionName string  `json:"collectionName"`
	Owner          string  `json:"owner"`
	Image          string  `json:"image"`
	Price          float64 `json:"price"`
	TokenMetadata  *struct {
		Description string `json:"description"`
	} `json:"tokenMetadata"`
}

// PriceSOL returns the price in SOL, or nil when unpriced.
func (m *HyperspaceMint) PriceSOL() *float64 {
	if m.Price <= 0 {
		return nil
	}
	p := m.Price / LamportsPerSOL
	return &p
}

// RecentMints returns the newest mints, newest first.
func (h *Hyperspace) RecentMints(ctx context.Context, perPage int) ([]HyperspaceMint, error) {
	var resp struct {
		Data []HyperspaceMint `json:"data"`
	}
	u := fmt.Sprintf("%s/api/v2/mints?collectionId=&perPage=%d&collection=&projectId=", h.base, perPage)
	if err := h.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("hyperspace mints: %w", err)
	}
	return resp.Data, nil
}
