package memory

import (
	"sync"

	"hypeflow/internal/domain"
	"hypeflow/internal/storage"
)

// DefaultCacheCapacity is the number of records the gallery keeps.
const DefaultCacheCapacity = 100

// RecordCache is an in-memory implementation of storage.RecordCache.
// records[0] is the most recently inserted record.
type RecordCache struct {
	mu       sync.RWMutex
	capacity int
	records  []*domain.NFTRecord
}

// NewRecordCache creates a cache bounded to capacity records.
// A non-positive capacity falls back to DefaultCacheCapacity.
func NewRecordCache(capacity int) *RecordCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &RecordCache{
		capacity: capacity,
		records:  make([]*domain.NFTRecord, 0, capacity),
	}
}

// Compile-time interface check.
var _ storage.RecordCache = (*RecordCache)(nil)

// Insert places a copy of r at the front and drops the oldest overflow.
func (c *RecordCache) Insert(r *domain.NFTRecord) {
	if r == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) < c.capacity {
		c.records = append(c.records, nil)
	}
	copy(c.records[1:], c.records)
	c.records[0] = r.Clone()
}

// List returns copies of the cached records, newest first.
func (c *RecordCache) List() []*domain.NFTRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.NFTRecord, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of cached records.
func (c *RecordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Capacity returns the configured bound.
func (c *RecordCache) Capacity() int {
	return c.capacity
}
