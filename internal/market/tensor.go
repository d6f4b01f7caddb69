package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/machinebox/graphql"

	"hypeflow/internal/httpx"
	"hypeflow/internal/throttle"
)

// Tensor queries the Tensor GraphQL API.
type Tensor struct {
	gql *graphql.Client
}

// NewTensor creates a Tensor client. A nil httpClient uses one with the
// default timeout.
func NewTensor(endpoint string, httpClient *http.Client) *Tensor {
	if endpoint == "" {
		endpoint = DefaultTensorURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * httpx.DefaultTimeout}
	}
	return &Tensor{gql: graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient))}
}

// TensorPool is a TSwap pool summary.
type TensorPool struct {
	Address        string `json:"address"`
	Mint           string `json:"mint"`
	Name           string `json:"name"`
	CollectionName string `json:"collectionName"`
	ImageURI       string `json:"imageUri"`
}

// TopPools returns the pools with the highest one-day volume.
func (t *Tensor) TopPools(ctx context.Context, limit int) ([]TensorPool, error) {
	req := graphql.NewRequest(`query tswapPools($limit: Int!) {
  tswapPools(limit: $limit, sortBy: VOLUME_1D) {
    address
    mint
    name
    collectionName
    imageUri
  }
}`)
	req.Var("limit", limit)
	req.Header.Set("User-Agent", httpx.UserAgent)

	var resp struct {
		TswapPools []TensorPool `json:"tswapPools"`
	}
	if err := t.gql.Run(ctx, req, &resp); err != nil {
		// The client reports HTTP status only in the message text.
		if strings.Contains(err.Error(), "429") {
			return nil, fmt.Errorf("tensor pools: %w: %v", throttle.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("tensor pools: %w", err)
	}
	return resp.TswapPools, nil
}
