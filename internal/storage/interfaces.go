package storage

import (
	"context"
	"time"

	"hypeflow/internal/domain"
)

// SeenSet tracks every identifier (mint or signature) the pipeline has
// already dispatched. Entries are never removed.
type SeenSet interface {
	// HasSeen reports whether id was marked before.
	HasSeen(id string) bool

	// MarkSeen adds id and reports whether it was newly added.
	// Test-and-set is atomic: of two concurrent callers exactly one gets true.
	MarkSeen(id string) bool

	// Len returns the number of identifiers seen so far.
	Len() int
}

// RecordCache holds the most recently admitted records, newest first.
type RecordCache interface {
	// Insert places r at the front, evicting from the back when full.
	Insert(r *domain.NFTRecord)

	// List returns copies of the cached records, newest first.
	List() []*domain.NFTRecord

	// Len returns the number of cached records.
	Len() int
}

// SubscriptionStore keeps the set of collections scanned on refresh ticks.
type SubscriptionStore interface {
	// Add registers address and reports whether it was not yet subscribed.
	Add(address string, at time.Time) bool

	// Has reports whether address is subscribed.
	Has(address string) bool

	// List returns subscriptions in registration order.
	List() []domain.CollectionSubscription
}

// RecordArchive is a write-only history of admitted records.
type RecordArchive interface {
	// Append stores r. Returns ErrDuplicateKey if the mint was archived before.
	Append(ctx context.Context, r *domain.NFTRecord) error
}
