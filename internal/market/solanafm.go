package market

import (
	"context"
	"fmt"
	"strings"

	"hypeflow/internal/httpx"
)

// SolanaFM is a client for the SolanaFM collections API.
type SolanaFM struct {
	base string
	http *httpx.Client
}

// NewSolanaFM creates a SolanaFM client.
func NewSolanaFM(base string, client *httpx.Client) *SolanaFM {
	if base == "" {
		base = DefaultSolanaFMURL
	}
	if client == nil {
		client = httpx.NewClient()
	}
	return &SolanaFM{base: strings.TrimRight(base, "/"), http: client}
}

// TrendingCollection is a trending collection entry.
type TrendingCollection struct {
	MintAddress string `json:"mintAddress"`
	Name        string `json:"name"`
}

// TrendingCollections lists trending collections.
func (s *SolanaFM) TrendingCollections(ctx context.Context) ([]TrendingCollection, error) {
	var resp struct {
		Result []TrendingCollection `json:"result"`
	}
	if err := s.http.GetJSON(ctx, s.base+"/v0/collections/trending", &resp); err != nil {
		return nil, fmt.Errorf("solanafm trending: %w", err)
	}
	return resp.Result, nil
}
