package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"hypeflow/internal/httpx"
)

// MagicEden is a client for the public Magic Eden v2 API.
type MagicEden struct {
	base string
	http *httpx.Client
}

// NewMagicEden creates a Magic Eden client. An empty base uses the mainnet API.
func NewMagicEden(base string, client *httpx.Client) *MagicEden {
	if base == "" {
		base = DefaultMagicEdenURL
	}
	if client == nil {
		client = httpx.NewClient()
	}
	return &MagicEden{base: strings.TrimRight(base, "/"), http: client}
}

// LaunchpadCollection is a launchpad entry.
type LaunchpadCollection struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  string `json:"image"`
}

// Listing is an active collection listing.
type Listing struct {
	TokenMint string  `json:"tokenMint"`
	Seller    string  `json:"seller"`
	Price     float64 `json:"price"`
}

// Activity is a marketplace event.
type Activity struct {
	Type       string  `json:"type"`
	TokenMint  string  `json:"tokenMint"`
	Collection string  `json:"collection"`
	Price      float64 `json:"price"`
}

// Token is the token detail document.
type Token struct {
	MintAddress string   `json:"mintAddress"`
	Owner       string   `json:"owner"`
	Collection  string   `json:"collection"`
	Name        string   `json:"name"`
	Image       string   `json:"image"`
	Price       *float64 `json:"price"`
	Attributes  struct {
		Description string `json:"description"`
	} `json:"attributes"`
}

// Collection is a collection search result.
type Collection struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// LaunchpadCollections lists current launchpad collections.
func (m *MagicEden) LaunchpadCollections(ctx context.Context, limit int) ([]LaunchpadCollection, error) {
	var out []LaunchpadCollection
	u := fmt.Sprintf("%s/v2/launchpad/collections?offset=0&limit=%d", m.base, limit)
	if err := m.http.GetJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("magiceden launchpad: %w", err)
	}
	return out, nil
}

// Listings lists active listings of a collection.
func (m *MagicEden) Listings(ctx context.Context, symbol string, limit int) ([]Listing, error) {
	var out []Listing
	u := fmt.Sprintf("%s/v2/collections/%s/listings?offset=0&limit=%d", m.base, url.PathEscape(symbol), limit)
	if err := m.http.GetJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("magiceden listings %s: %w", symbol, err)
	}
	return out, nil
}

// Activities lists recent marketplace activity of all types.
func (m *MagicEden) Activities(ctx context.Context, limit int) ([]Activity, error) {
	var out []Activity
	u := fmt.Sprintf("%s/v2/activities?activityType=all&limit=%d", m.base, limit)
	if err := m.http.GetJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("magiceden activities: %w", err)
	}
	return out, nil
}

// Token fetches a token's detail document.
func (m *MagicEden) Token(ctx context.Context, mint string) (*Token, error) {
	var out Token
	u := fmt.Sprintf("%s/v2/tokens/%s", m.base, url.PathEscape(mint))
	if err := m.http.GetJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("magiceden token %s: %w", mint, err)
	}
	return &out, nil
}

// CollectionsBySymbol searches collections by symbol.
func (m *MagicEden) CollectionsBySymbol(ctx context.Context, symbol string, limit int) ([]Collection, error) {
	var out []Collection
	u := fmt.Sprintf("%s/v2/collections?symbol=%s&limit=%d", m.base, url.QueryEscape(symbol), limit)
	if err := m.http.GetJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("magiceden collections %s: %w", symbol, err)
	}
	return out, nil
}

// Price returns the listed price in SOL, or nil when the token is not listed.
// A 404 is returned as an error satisfying httpx.IsNotFound.
func (m *MagicEden) Price(ctx context.Context, mint string) (*float64, error) {
	tok, err := m.Token(ctx, mint)
	if err != nil {
		return nil, err
	}
	if tok.Price == nil || *tok.Price == 0 {
		return nil, nil
	}
	return tok.Price, nil
}
