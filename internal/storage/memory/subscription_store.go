package memory

import (
	"sync"
	"time"

	"hypeflow/internal/domain"
	"hypeflow/internal/storage"
)

// SubscriptionStore is an in-memory implementation of storage.SubscriptionStore.
type SubscriptionStore struct {
	mu    sync.RWMutex
	index map[string]struct{}
	subs  []domain.CollectionSubscription
}

// NewSubscriptionStore creates an empty subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{index: make(map[string]struct{})}
}

// Compile-time interface check.
var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)

// Add registers address. Existing subscriptions keep their original time.
func (s *SubscriptionStore) Add(address string, at time.Time) bool {
	if address == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[address]; exists {
		return false
	}
	s.index[address] = struct{}{}
	s.subs = append(s.subs, domain.CollectionSubscription{Address: address, SubscribedAt: at})
	return true
}

// Has reports whether address is subscribed.
func (s *SubscriptionStore) Has(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[address]
	return ok
}

// List returns a copy of all subscriptions in registration order.
func (s *SubscriptionStore) List() []domain.CollectionSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CollectionSubscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Addresses returns the subscribed addresses in registration order.
func (s *SubscriptionStore) Addresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.Address
	}
	return out
}
