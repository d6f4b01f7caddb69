// Package resolver turns a mint address into a normalized NFTRecord by
// combining on-chain metadata, the off-chain JSON document and a price lookup.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/httpx"
	"hypeflow/internal/media"
	"hypeflow/internal/throttle"
)

// JSONTimeout bounds the single off-chain JSON fetch.
const JSONTimeout = 5 * time.Second

// TokenData is the on-chain view of a mint.
type TokenData struct {
	Mint          string
	Name          string
	Symbol        string
	URI           string
	CollectionKey string // verified collection or first creator; "" if none
	Owner         string // "" if unresolved
	JSON          *OffChainJSON
}

// TokenProvider loads on-chain token data. It returns (nil, nil) when the
// mint has no metadata.
type TokenProvider interface {
	Token(ctx context.Context, mint string) (*TokenData, error)
}

// PriceLookup returns the listed price in SOL, nil when unlisted.
type PriceLookup interface {
	Price(ctx context.Context, mint string) (*float64, error)
}

// Resolver resolves mints into records.
type Resolver struct {
	tokens  TokenProvider
	prices  PriceLookup
	limiter *throttle.Limiter
	json    *httpx.Client
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPrices sets the price lookup. Without one, prices stay nil.
func WithPrices(p PriceLookup) Option {
	return func(r *Resolver) {
		r.prices = p
	}
}

// WithJSONClient sets the client used for off-chain JSON documents.
func WithJSONClient(c *httpx.Client) Option {
	return func(r *Resolver) {
		r.json = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithNow overrides the clock used for DiscoveredAt.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a Resolver. Price lookups go through limiter.
func New(tokens TokenProvider, limiter *throttle.Limiter, opts ...Option) *Resolver {
	r := &Resolver{
		tokens:  tokens,
		limiter: limiter,
		json:    httpx.NewClient(httpx.WithTimeout(JSONTimeout)),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limiter == nil {
		r.limiter = throttle.New()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Resolve builds a record for mint. It returns (nil, nil) when the mint
// has no token data. Token data errors, including rate limiting, are
// returned so callers can stop. The record may still lack an image; patch rules run afterwards.
func (r *Resolver) Resolve(ctx context.Context, mint string) (*domain.NFTRecord, error) {
	tok, err := r.tokens.Token(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("token data %s: %w", mint, err)
	}
	if tok == nil {
		return nil, nil
	}

	rec := domain.NewNFTRecord(mint, domain.SourceOnChain, r.now())
	rec.Metadata.Name = tok.Name
	if tok.CollectionKey != "" {
		rec.CollectionID = tok.CollectionKey
	}
	if tok.Owner != "" {
		rec.Owner = tok.Owner
	}

	doc := tok.JSON
	if tok.URI != "" && (doc == nil || ExtractImage(doc) == "") {
		if fetched := r.fetchJSON(ctx, media.CleanImageURL(tok.URI)); fetched != nil {
			doc = fetched
		}
	}

	if doc != nil {
		if rec.Metadata.Name == "" {
			rec.Metadata.Name = doc.Name
		}
		rec.Metadata.Description = doc.Description
		rec.Metadata.Image = ExtractImage(doc)
	}
	if rec.Metadata.Description == "" {
		rec.Metadata.Description = domain.DefaultDescription
	}

	rec.Price = r.price(ctx, mint)

	return rec, nil
}

// fetchJSON makes one attempt at the off-chain document.
func (r *Resolver) fetchJSON(ctx context.Context, uri string) *OffChainJSON {
	var doc OffChainJSON
	if err := r.json.GetJSON(ctx, uri, &doc); err != nil {
		r.logger.Debug("off-chain json unavailable", zap.String("uri", uri), zap.Error(err))
		return nil
	}
	return &doc
}

// price returns nil for unlisted tokens and on any lookup failure.
// A 404 means the token is not on the marketplace and is not logged.
func (r *Resolver) price(ctx context.Context, mint string) *float64 {
	if r.prices == nil {
		return nil
	}
	p, err := throttle.Call(ctx, r.limiter, func(ctx context.Context) (*float64, error) {
		return r.prices.Price(ctx, mint)
	})
	switch {
	case err == nil:
		return p
	case httpx.IsNotFound(err), errors.Is(err, context.Canceled):
	default:
		r.logger.Warn("price lookup failed", zap.String("mint", mint), zap.Error(err))
	}
	return nil
}
