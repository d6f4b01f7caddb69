package market

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hypeflow/internal/httpx"
)

// DefaultJupiterSymbols are the tokens whose projects seed collection searches.
var DefaultJupiterSymbols = []string{"ORCA", "BONK", "JUP", "DUST", "WIF", "GUAC", "SHDW", "RENDER", "FORGE"}

// Jupiter is a client for the Jupiter price API.
type Jupiter struct {
	base string
	http *httpx.Client
}

// NewJupiter creates a Jupiter client.
func NewJupiter(base string, client *httpx.Client) *Jupiter {
	if base == "" {
		base = DefaultJupiterURL
	}
	if client == nil {
		client = httpx.NewClient()
	}
	return &Jupiter{base: strings.TrimRight(base, "/"), http: client}
}

// JupiterPrice is one price entry.
type JupiterPrice struct {
	ID         string  `json:"id"`
	MintSymbol string  `json:"mintSymbol"`
	Price      float64 `json:"price"`
}

// Prices returns price entries for ids, ordered by id.
func (j *Jupiter) Prices(ctx context.Context, ids []string) ([]JupiterPrice, error) {
	var resp struct {
		Data map[string]JupiterPrice `json:"data"`
	}
	u := fmt.Sprintf("%s/v4/price?ids=%s", j.base, strings.Join(ids, ","))
	if err := j.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("jupiter prices: %w", err)
	}

	keys := make([]string, 0, len(resp.Data))
	for k := range resp.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]JupiterPrice, 0, len(keys))
	for _, k := range keys {
		out = append(out, resp.Data[k])
	}
	return out, nil
}
