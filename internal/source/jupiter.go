package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/market"
	"hypeflow/internal/throttle"
)

// Jupiter scan bounds.
const (
	JupiterCollectionsPerSymbol = 5
	JupiterListings             = 5
	JupiterMaxMints             = 10
)

// Jupiter uses the price feed's token symbols to find related Magic Eden
// collections and returns their listed mints.
type Jupiter struct {
	jup     *market.Jupiter
	me      *market.MagicEden
	symbols []string
	env     Env
}

// NewJupiter creates the adapter. Empty symbols use market.DefaultJupiterSymbols.
func NewJupiter(jup *market.Jupiter, me *market.MagicEden, symbols []string, env Env) *Jupiter {
	if len(symbols) == 0 {
		symbols = market.DefaultJupiterSymbols
	}
	return &Jupiter{jup: jup, me: me, symbols: symbols, env: env.withDefaults()}
}

// Name implements Adapter.
func (j *Jupiter) Name() string { return string(domain.SourceJupiter) }

// Discover implements Adapter.
func (j *Jupiter) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceJupiter}

	prices, err := throttle.Call(ctx, j.env.Limiter, func(ctx context.Context) ([]market.JupiterPrice, error) {
		return j.jup.Prices(ctx, j.symbols)
	})
	if err != nil {
		return out, err
	}

	mints := newMintSet(j.env.Seen, JupiterMaxMints)
	for _, p := range prices {
		if mints.full() {
			break
		}
		if p.MintSymbol == "" {
			continue
		}
		symbol := strings.ToLower(p.MintSymbol)

		cols, err := throttle.Call(ctx, j.env.Limiter, func(ctx context.Context) ([]market.Collection, error) {
			return j.me.CollectionsBySymbol(ctx, symbol, JupiterCollectionsPerSymbol)
		})
		if err != nil {
			if throttle.IsRateLimited(err) || ctx.Err() != nil {
				out.Mints = mints.mints
				return out, err
			}
			j.env.Logger.Warn("collection search failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		for _, col := range cols {
			if mints.full() {
				break
			}
			if col.Symbol == "" {
				continue
			}
			listings, err := throttle.Call(ctx, j.env.Limiter, func(ctx context.Context) ([]market.Listing, error) {
				return j.me.Listings(ctx, col.Symbol, JupiterListings)
			})
			if err != nil {
				if throttle.IsRateLimited(err) || ctx.Err() != nil {
					out.Mints = mints.mints
					return out, err
				}
				j.env.Logger.Warn("listings failed", zap.String("symbol", col.Symbol), zap.Error(err))
				continue
			}
			for _, l := range listings {
				if !mints.add(l.TokenMint) {
					break
				}
			}
		}
	}

	out.Mints = mints.mints
	return out, nil
}
