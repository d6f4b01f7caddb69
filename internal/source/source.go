// Package source discovers candidate NFT mints from Solana RPC and the
// marketplace APIs. Adapters are best effort: they return whatever they
// gathered before a failure together with the error.
package source

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/scheduler"
	"hypeflow/internal/storage"
	"hypeflow/internal/throttle"
)

// Adapter is one discovery source family.
type Adapter interface {
	// Name identifies the family in logs and metrics.
	Name() string

	// Discover returns candidate mints and fully formed records. On error
	// the Discovery still carries the partial results gathered so far.
	Discover(ctx context.Context) (Discovery, error)
}

// Discovery is the output of one adapter run.
type Discovery struct {
	Source  domain.Source
	Mints   []string            // candidates for the resolver
	Records []*domain.NFTRecord // complete records from rich sources, admit in order
}

// Empty reports whether nothing was discovered.
func (d Discovery) Empty() bool {
	return len(d.Mints) == 0 && len(d.Records) == 0
}

// Env carries the shared dependencies of every adapter.
type Env struct {
	Limiter *throttle.Limiter
	Seen    storage.SeenSet
	Logger  *zap.Logger
	Now     func() time.Time
}

func (e Env) withDefaults() Env {
	if e.Limiter == nil {
		e.Limiter = throttle.New()
	}
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

// mintSet collects unseen, distinct mints up to an optional limit.
type mintSet struct {
	seen  storage.SeenSet
	limit int // 0 means unbounded
	index map[string]struct{}
	mints []string
}

func newMintSet(seen storage.SeenSet, limit int) *mintSet {
	return &mintSet{seen: seen, limit: limit, index: make(map[string]struct{})}
}

// add keeps mint when it is non-empty, unseen and new. Returns false when
// the set is full.
func (s *mintSet) add(mint string) bool {
	if s.full() {
		return false
	}
	if mint == "" {
		return true
	}
	if _, dup := s.index[mint]; dup {
		return true
	}
	if s.seen != nil && s.seen.HasSeen(mint) {
		return true
	}
	s.index[mint] = struct{}{}
	s.mints = append(s.mints, mint)
	return !s.full()
}

func (s *mintSet) full() bool {
	return s.limit > 0 && len(s.mints) >= s.limit
}

// Rotation chooses one adapter per aggregation tick.
type Rotation struct {
	adapters []Adapter
	selector scheduler.Selector
}

// NewRotation creates a Rotation over adapters.
func NewRotation(selector scheduler.Selector, adapters ...Adapter) *Rotation {
	return &Rotation{adapters: adapters, selector: selector}
}

// Next returns the adapter for this tick, or nil when none are configured.
func (r *Rotation) Next() Adapter {
	if len(r.adapters) == 0 {
		return nil
	}
	return r.adapters[r.selector.Pick(len(r.adapters))]
}

// Names lists the adapters in rotation.
func (r *Rotation) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}
