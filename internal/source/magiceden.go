package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/httpx"
	"hypeflow/internal/market"
	"hypeflow/internal/media"
	"hypeflow/internal/throttle"
)

// Magic Eden scan bounds.
const (
	LaunchpadCollections = 10
	LaunchpadSymbols     = 3
	LaunchpadListings    = 5
	LaunchpadPerSymbol   = 3
	ActivityLimit        = 20
)

// MagicEdenLaunchpad discovers mints listed by fresh launchpad collections.
type MagicEdenLaunchpad struct {
	me  *market.MagicEden
	env Env
}

// NewMagicEdenLaunchpad creates the adapter.
func NewMagicEdenLaunchpad(me *market.MagicEden, env Env) *MagicEdenLaunchpad {
	return &MagicEdenLaunchpad{me: me, env: env.withDefaults()}
}

// Name implements Adapter.
func (a *MagicEdenLaunchpad) Name() string { return string(domain.SourceMagicEden) + "-launchpad" }

// Discover walks launchpad collections, then their first listings.
func (a *MagicEdenLaunchpad) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceMagicEden}

	cols, err := throttle.Call(ctx, a.env.Limiter, func(ctx context.Context) ([]market.LaunchpadCollection, error) {
		return a.me.LaunchpadCollections(ctx, LaunchpadCollections)
	})
	if err != nil {
		return out, err
	}

	mints := newMintSet(a.env.Seen, 0)
	symbols := 0
	for _, col := range cols {
		if symbols == LaunchpadSymbols {
			break
		}
		if col.Symbol == "" {
			continue
		}
		symbols++

		listings, err := throttle.Call(ctx, a.env.Limiter, func(ctx context.Context) ([]market.Listing, error) {
			return a.me.Listings(ctx, col.Symbol, LaunchpadListings)
		})
		if err != nil {
			if throttle.IsRateLimited(err) || ctx.Err() != nil {
				out.Mints = mints.mints
				return out, err
			}
			a.env.Logger.Warn("launchpad listings failed", zap.String("symbol", col.Symbol), zap.Error(err))
			continue
		}
		if len(listings) > LaunchpadPerSymbol {
			listings = listings[:LaunchpadPerSymbol]
		}
		for _, l := range listings {
			mints.add(l.TokenMint)
		}
	}

	out.Mints = mints.mints
	return out, nil
}

// MagicEdenActivities builds records from recent mint and list activity.
type MagicEdenActivities struct {
	me  *market.MagicEden
	env Env
}

// NewMagicEdenActivities creates the adapter.
func NewMagicEdenActivities(me *market.MagicEden, env Env) *MagicEdenActivities {
	return &MagicEdenActivities{me: me, env: env.withDefaults()}
}

// Name implements Adapter.
func (a *MagicEdenActivities) Name() string { return string(domain.SourceMagicEden) + "-activities" }

var relevantActivity = map[string]bool{"mint": true, "mintV2": true, "list": true}

// Discover fetches token details for unseen mints of relevant activities.
func (a *MagicEdenActivities) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceMagicEden}

	acts, err := throttle.Call(ctx, a.env.Limiter, func(ctx context.Context) ([]market.Activity, error) {
		return a.me.Activities(ctx, ActivityLimit)
	})
	if err != nil {
		return out, err
	}

	mints := newMintSet(a.env.Seen, 0)
	for _, act := range acts {
		if relevantActivity[act.Type] {
			mints.add(act.TokenMint)
		}
	}

	for _, mint := range mints.mints {
		tok, err := throttle.Call(ctx, a.env.Limiter, func(ctx context.Context) (*market.Token, error) {
			return a.me.Token(ctx, mint)
		})
		if err != nil {
			if throttle.IsRateLimited(err) || ctx.Err() != nil {
				return out, fmt.Errorf("token details: %w", err)
			}
			if !httpx.IsNotFound(err) {
				a.env.Logger.Warn("token details failed", zap.String("mint", mint), zap.Error(err))
			}
			continue
		}
		out.Records = append(out.Records, a.record(mint, tok))
	}
	return out, nil
}

func (a *MagicEdenActivities) record(mint string, tok *market.Token) *domain.NFTRecord {
	if tok.MintAddress != "" {
		mint = tok.MintAddress
	}
	rec := domain.NewNFTRecord(mint, domain.SourceMagicEden, a.env.Now())
	if tok.Collection != "" {
		rec.CollectionID = tok.Collection
	}
	if tok.Owner != "" {
		rec.Owner = tok.Owner
	}
	rec.Metadata = domain.NFTMetadata{
		Name:        tok.Name,
		Description: tok.Attributes.Description,
		Image:       media.CleanImageURL(tok.Image),
	}
	if rec.Metadata.Description == "" {
		rec.Metadata.Description = domain.DefaultDescription
	}
	if tok.Price != nil && *tok.Price > 0 {
		p := *tok.Price
		rec.Price = &p
	}
	return rec
}
