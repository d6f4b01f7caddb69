package memory

import (
	"sync"

	"hypeflow/internal/storage"
)

// SeenSet is an in-memory implementation of storage.SeenSet.
type SeenSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewSeenSet creates an empty seen set.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// Compile-time interface check.
var _ storage.SeenSet = (*SeenSet)(nil)

// HasSeen reports whether id has been marked.
func (s *SeenSet) HasSeen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.seen[id]
	return ok
}

// MarkSeen adds id. Returns false if it was already present or empty.
func (s *SeenSet) MarkSeen(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Len returns the number of marked ids.
func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
