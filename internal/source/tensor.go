package source

import (
	"context"

	"hypeflow/internal/domain"
	"hypeflow/internal/market"
	"hypeflow/internal/throttle"
)

// TensorPoolLimit is the number of top pools requested.
const TensorPoolLimit = 20

// Tensor discovers mints held by the highest-volume TSwap pools.
type Tensor struct {
	client *market.Tensor
	env    Env
}

// NewTensor creates the adapter.
func NewTensor(client *market.Tensor, env Env) *Tensor {
	return &Tensor{client: client, env: env.withDefaults()}
}

// Name implements Adapter.
func (t *Tensor) Name() string { return string(domain.SourceTensor) }

// Discover implements Adapter.
func (t *Tensor) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceTensor}

	pools, err := throttle.Call(ctx, t.env.Limiter, func(ctx context.Context) ([]market.TensorPool, error) {
		return t.client.TopPools(ctx, TensorPoolLimit)
	})
	if err != nil {
		return out, err
	}

	mints := newMintSet(t.env.Seen, 0)
	for _, p := range pools {
		mints.add(p.Mint)
	}
	out.Mints = mints.mints
	return out, nil
}
