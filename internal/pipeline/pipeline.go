// Package pipeline turns discovered candidates into cached records:
// resolve, patch, admit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hypeflow/internal/domain"
	"hypeflow/internal/observability"
	"hypeflow/internal/patch"
	"hypeflow/internal/solana"
	"hypeflow/internal/source"
	"hypeflow/internal/storage"
	"hypeflow/internal/throttle"
)

// BatchSize is the number of mints resolved concurrently.
const BatchSize = 5

// Resolver builds a record for a mint.
type Resolver interface {
	Resolve(ctx context.Context, mint string) (*domain.NFTRecord, error)
}

// CollectionScanner lists unseen mints of a collection.
type CollectionScanner interface {
	Mints(ctx context.Context, creator string) ([]string, error)
}

// Result summarizes one adapter run.
type Result struct {
	Source     string
	Candidates int
	Admitted   int
	Err        error
}

// Pipeline owns the live stores and the resolution path.
type Pipeline struct {
	seen     storage.SeenSet
	cache    storage.RecordCache
	subs     storage.SubscriptionStore
	archive  storage.RecordArchive // optional
	resolver Resolver
	patch    *patch.Engine
	scan     CollectionScanner // optional, used by Subscribe
	logger   *zap.Logger
	clock    func() time.Time
	batch    int
}

// New creates a pipeline.
func New(
	seen storage.SeenSet,
	cache storage.RecordCache,
	subs storage.SubscriptionStore,
	resolver Resolver,
	engine *patch.Engine,
) *Pipeline {
	return &Pipeline{
		seen:     seen,
		cache:    cache,
		subs:     subs,
		resolver: resolver,
		patch:    engine,
		logger:   zap.NewNop(),
		clock:    time.Now,
		batch:    BatchSize,
	}
}

// WithArchive appends every admitted record to archive.
func (p *Pipeline) WithArchive(archive storage.RecordArchive) *Pipeline {
	p.archive = archive
	return p
}

// WithCollectionScanner sets the scanner used for the first fetch of a new subscription.
func (p *Pipeline) WithCollectionScanner(scan CollectionScanner) *Pipeline {
	p.scan = scan
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithClock sets a custom clock function for deterministic timestamps.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// Run executes one discovery pass of adapter and admits what it found.
// Errors are logged and reported in the Result; partial discoveries are
// still processed.
func (p *Pipeline) Run(ctx context.Context, adapter source.Adapter) Result {
	start := time.Now()
	res := Result{Source: adapter.Name()}

	d, err := adapter.Discover(ctx)
	res.Candidates = len(d.Mints) + len(d.Records)
	status := "ok"
	switch {
	case err == nil:
	case source.IsOpen(err):
		status = "skipped"
		p.logger.Debug("source circuit open", zap.String("source", res.Source))
	case throttle.IsRateLimited(err):
		status = "rate_limited"
		p.logger.Warn("source rate limited", zap.String("source", res.Source), zap.Int("partial", res.Candidates))
	default:
		status = "error"
		p.logger.Warn("source failed", zap.String("source", res.Source), zap.Int("partial", res.Candidates), zap.Error(err))
	}
	res.Err = err

	res.Admitted += p.AdmitDiscovered(ctx, d.Records)

	src := d.Source
	if src == "" {
		src = domain.Source(res.Source)
	}
	n, err := p.ProcessMints(ctx, src, d.Mints)
	res.Admitted += n
	if err != nil {
		if res.Err == nil {
			res.Err = err
		}
		p.logger.Warn("mint processing stopped", zap.String("source", res.Source), zap.Error(err))
	}

	observability.RecordSourceRun(res.Source, status, res.Candidates, time.Since(start).Seconds())
	if res.Candidates > 0 {
		p.logger.Info("source run",
			zap.String("source", res.Source),
			zap.Int("candidates", res.Candidates),
			zap.Int("admitted", res.Admitted),
		)
	}
	return res
}

// ProcessMints resolves mints in batches and admits the results, tagged
// with src. Each mint is marked seen right before dispatch, so a mint
// already claimed elsewhere is skipped. A rate limit aborts the remaining
// batches, which stay unseen. It returns the number of admitted records.
func (p *Pipeline) ProcessMints(ctx context.Context, src domain.Source, mints []string) (int, error) {
	admitted := 0
	for start := 0; start < len(mints); start += p.batch {
		if err := ctx.Err(); err != nil {
			return admitted, err
		}
		end := min(start+p.batch, len(mints))
		batch := mints[start:end]

		// Started resolutions run to completion; only the next batch is
		// held back after a failure.
		recs := make([]*domain.NFTRecord, len(batch))
		var g errgroup.Group
		g.SetLimit(p.batch)
		for i, mint := range batch {
			if !p.seen.MarkSeen(mint) {
				continue
			}
			g.Go(func() error {
				rec, err := p.resolve(ctx, mint)
				recs[i] = rec
				return err
			})
		}
		err := g.Wait()

		for _, rec := range recs {
			if rec == nil {
				continue
			}
			if src != "" {
				rec.Source = src
			}
			if p.Admit(ctx, rec) {
				admitted++
			}
		}
		if err != nil {
			return admitted, fmt.Errorf("resolve batch: %w", err)
		}
	}
	return admitted, nil
}

// resolve returns an error only for rate limiting; other failures drop the mint.
func (p *Pipeline) resolve(ctx context.Context, mint string) (*domain.NFTRecord, error) {
	rec, err := p.resolver.Resolve(ctx, mint)
	switch {
	case err == nil && rec == nil:
		observability.RecordResolution("missing")
		return nil, nil
	case err == nil:
		observability.RecordResolution("resolved")
		return rec, nil
	case throttle.IsRateLimited(err):
		observability.RecordResolution("rate_limited")
		return nil, err
	case errors.Is(err, context.Canceled):
		return nil, nil
	default:
		observability.RecordResolution("error")
		p.logger.Warn("resolve failed", zap.String("mint", mint), zap.Error(err))
		return nil, nil
	}
}

// AdmitDiscovered admits records an adapter built itself, skipping ids
// already seen.
func (p *Pipeline) AdmitDiscovered(ctx context.Context, records []*domain.NFTRecord) int {
	admitted := 0
	for _, rec := range records {
		if rec == nil || !p.seen.MarkSeen(rec.ID) {
			continue
		}
		if p.Admit(ctx, rec) {
			admitted++
		}
	}
	return admitted
}

// Admit runs the patch rules and inserts rec into the cache when it has
// both a name and an image. Rejected records stay seen.
func (p *Pipeline) Admit(ctx context.Context, rec *domain.NFTRecord) bool {
	if rec == nil {
		return false
	}
	ok := p.patch.Apply(rec)
	observability.RecordAdmission(string(rec.Source), ok)
	if !ok {
		p.logger.Debug("record rejected",
			zap.String("id", rec.ID),
			zap.String("name", rec.Metadata.Name),
			zap.String("source", string(rec.Source)),
		)
		p.updateGauges()
		return false
	}

	p.cache.Insert(rec)
	if p.archive != nil {
		if err := p.archive.Append(ctx, rec); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordArchiveError()
			p.logger.Warn("archive append failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	p.updateGauges()
	return true
}

// Subscribe registers a collection. A new subscription gets one immediate
// scan; the count of records it admitted is returned. Invalid addresses
// fail with storage.ErrInvalidInput and change nothing.
func (p *Pipeline) Subscribe(ctx context.Context, address string) (bool, int, error) {
	if !solana.IsValidAddress(address) {
		return false, 0, fmt.Errorf("subscribe %q: %w", address, storage.ErrInvalidInput)
	}
	if !p.subs.Add(address, p.clock()) {
		return false, 0, nil
	}
	p.updateGauges()
	p.logger.Info("collection subscribed", zap.String("address", address))

	if p.scan == nil {
		return true, 0, nil
	}
	// The scan outlives a caller that stops waiting for it.
	ctx = context.WithoutCancel(ctx)
	mints, err := p.scan.Mints(ctx, address)
	if err != nil {
		p.logger.Warn("initial collection scan failed", zap.String("address", address), zap.Error(err))
	}
	n, err := p.ProcessMints(ctx, domain.SourceSubscribe, mints)
	if err != nil {
		p.logger.Warn("initial collection fetch stopped", zap.String("address", address), zap.Error(err))
	}
	p.logger.Info("initial collection fetch",
		zap.String("address", address),
		zap.Int("mints", len(mints)),
		zap.Int("admitted", n),
	)
	return true, n, nil
}

// Seed registers addresses as subscriptions without scanning them.
// Invalid addresses are logged and skipped.
func (p *Pipeline) Seed(addresses []string) int {
	now := p.clock()
	added := 0
	for _, addr := range addresses {
		if !solana.IsValidAddress(addr) {
			p.logger.Warn("invalid seed collection", zap.String("address", addr))
			continue
		}
		if p.subs.Add(addr, now) {
			added++
		}
	}
	p.updateGauges()
	return added
}

// Records returns the cached records, most recent first.
func (p *Pipeline) Records() []*domain.NFTRecord {
	return p.cache.List()
}

// Subscriptions returns the tracked collections.
func (p *Pipeline) Subscriptions() []domain.CollectionSubscription {
	return p.subs.List()
}

// Stats holds the current store sizes.
type Stats struct {
	Cached        int `json:"cached"`
	Seen          int `json:"seen"`
	Subscriptions int `json:"subscriptions"`
}

// Stats returns the current store sizes.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Cached:        p.cache.Len(),
		Seen:          p.seen.Len(),
		Subscriptions: len(p.subs.List()),
	}
}

func (p *Pipeline) updateGauges() {
	s := p.Stats()
	observability.UpdateStoreSizes(s.Cached, s.Seen, s.Subscriptions)
}
