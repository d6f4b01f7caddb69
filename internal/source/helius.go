package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/market"
	"hypeflow/internal/media"
	"hypeflow/internal/throttle"
)

// Helius scan bounds.
const (
	HeliusMintLimit = 20
	HeliusBatchSize = 5
	HeliusWindow    = 24 * time.Hour
)

// Helius builds records for mints created in the last day.
type Helius struct {
	client *market.Helius
	env    Env
}

// NewHelius creates the adapter.
func NewHelius(client *market.Helius, env Env) *Helius {
	return &Helius{client: client, env: env.withDefaults()}
}

// Name implements Adapter.
func (h *Helius) Name() string { return string(domain.SourceHelius) }

// Discover lists recent mints and loads their metadata in batches. It
// discovers nothing when no API key is configured.
func (h *Helius) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceHelius}
	if !h.client.Enabled() {
		h.env.Logger.Debug("helius disabled: no api key")
		return out, nil
	}

	since := h.env.Now().Add(-HeliusWindow)
	list, err := throttle.Call(ctx, h.env.Limiter, func(ctx context.Context) ([]string, error) {
		return h.client.MintList(ctx, since, HeliusMintLimit)
	})
	if err != nil {
		return out, err
	}

	mints := newMintSet(h.env.Seen, 0)
	for _, m := range list {
		mints.add(m)
	}

	for start := 0; start < len(mints.mints); start += HeliusBatchSize {
		end := start + HeliusBatchSize
		if end > len(mints.mints) {
			end = len(mints.mints)
		}
		batch := mints.mints[start:end]

		tokens, err := throttle.Call(ctx, h.env.Limiter, func(ctx context.Context) ([]market.HeliusToken, error) {
			return h.client.TokenMetadata(ctx, batch)
		})
		if err != nil {
			if throttle.IsRateLimited(err) || ctx.Err() != nil {
				return out, fmt.Errorf("helius metadata: %w", err)
			}
			h.env.Logger.Warn("helius metadata batch failed", zap.Strings("mints", batch), zap.Error(err))
			continue
		}
		for i := range tokens {
			if rec := h.record(&tokens[i]); rec != nil {
				out.Records = append(out.Records, rec)
			}
		}
	}
	return out, nil
}

func (h *Helius) record(tok *market.HeliusToken) *domain.NFTRecord {
	if tok.Account == "" {
		return nil
	}
	rec := domain.NewNFTRecord(tok.Account, domain.SourceHelius, h.env.Now())
	if key := tok.CollectionKey(); key != "" {
		rec.CollectionID = key
	}
	rec.Metadata = domain.NFTMetadata{
		Name:        tok.Name(),
		Description: tok.Description(),
		Image:       media.CleanImageURL(tok.Image()),
	}
	if rec.Metadata.Description == "" {
		rec.Metadata.Description = domain.DefaultDescription
	}
	return rec
}
