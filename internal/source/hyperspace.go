package source

import (
	"context"
	"fmt"
	"strings"

	"hypeflow/internal/domain"
	"hypeflow/internal/market"
	"hypeflow/internal/media"
	"hypeflow/internal/throttle"
)

// HyperspacePageSize is the number of recent mints requested.
const HyperspacePageSize = 50

// Hyperspace builds records from the Hyperspace recent mints feed.
type Hyperspace struct {
	client *market.Hyperspace
	env    Env
}

// NewHyperspace creates the adapter.
func NewHyperspace(client *market.Hyperspace, env Env) *Hyperspace {
	return &Hyperspace{client: client, env: env.withDefaults()}
}

// Name implements Adapter.
func (h *Hyperspace) Name() string { return string(domain.SourceHyperspace) }

// Discover returns records oldest first, so admitting them in order leaves
// the newest mint at the cache front.
func (h *Hyperspace) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceHyperspace}

	feed, err := throttle.Call(ctx, h.env.Limiter, func(ctx context.Context) ([]market.HyperspaceMint, error) {
		return h.client.RecentMints(ctx, HyperspacePageSize)
	})
	if err != nil {
		return out, err
	}

	picked := make(map[string]struct{})
	for i := len(feed) - 1; i >= 0; i-- {
		m := &feed[i]
		if m.Mint == "" || h.env.Seen.HasSeen(m.Mint) {
			continue
		}
		if _, dup := picked[m.Mint]; dup {
			continue
		}
		picked[m.Mint] = struct{}{}
		out.Records = append(out.Records, h.record(m))
	}
	return out, nil
}

func (h *Hyperspace) record(m *market.HyperspaceMint) *domain.NFTRecord {
	rec := domain.NewNFTRecord(m.Mint, domain.SourceHyperspace, h.env.Now())

	collection := m.CollectionName
	if collection == "" {
		collection = strings.TrimSpace(strings.SplitN(m.Name, "#", 2)[0])
	}
	if collection != "" {
		rec.CollectionID = collection
	}
	if m.Owner != "" {
		rec.Owner = m.Owner
	}

	rec.Metadata = domain.NFTMetadata{
		Name:  m.Name,
		Image: media.CleanImageURL(m.Image),
	}
	if m.TokenMetadata != nil {
		rec.Metadata.Description = m.TokenMetadata.Description
	}
	if rec.Metadata.Description == "" {
		rec.Metadata.Description = fmt.Sprintf("Solana NFT from collection %s", rec.CollectionID)
	}
	rec.Price = m.PriceSOL()
	return rec
}
