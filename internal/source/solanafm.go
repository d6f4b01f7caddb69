package source

import (
	"context"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/market"
	"hypeflow/internal/solana"
	"hypeflow/internal/storage"
	"hypeflow/internal/throttle"
)

// SolanaFMCollections is the number of trending collections scanned per run.
const SolanaFMCollections = 5

// SolanaFM subscribes to trending collections and scans each of them.
type SolanaFM struct {
	client *market.SolanaFM
	subs   storage.SubscriptionStore
	scan   *CollectionScan
	env    Env
}

// NewSolanaFM creates the adapter.
func NewSolanaFM(client *market.SolanaFM, subs storage.SubscriptionStore, scan *CollectionScan, env Env) *SolanaFM {
	return &SolanaFM{client: client, subs: subs, scan: scan, env: env.withDefaults()}
}

// Name implements Adapter.
func (s *SolanaFM) Name() string { return string(domain.SourceSolanaFM) }

// Discover implements Adapter.
func (s *SolanaFM) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceSolanaFM}

	trending, err := throttle.Call(ctx, s.env.Limiter, func(ctx context.Context) ([]market.TrendingCollection, error) {
		return s.client.TrendingCollections(ctx)
	})
	if err != nil {
		return out, err
	}

	mints := newMintSet(s.env.Seen, 0)
	scanned := 0
	for _, col := range trending {
		if scanned == SolanaFMCollections {
			break
		}
		if !solana.IsValidAddress(col.MintAddress) {
			continue
		}
		scanned++

		if s.subs.Add(col.MintAddress, s.env.Now()) {
			s.env.Logger.Info("subscribed trending collection",
				zap.String("address", col.MintAddress), zap.String("name", col.Name))
		}

		found, err := s.scan.Mints(ctx, col.MintAddress)
		for _, m := range found {
			mints.add(m)
		}
		if err != nil {
			if throttle.IsRateLimited(err) || ctx.Err() != nil {
				out.Mints = mints.mints
				return out, err
			}
			s.env.Logger.Warn("trending collection scan failed", zap.String("address", col.MintAddress), zap.Error(err))
		}
	}

	out.Mints = mints.mints
	return out, nil
}
