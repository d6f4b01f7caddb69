package domain

import (
	"encoding/json"
	"time"
)

// Currency is the only unit prices are quoted in.
const Currency = "SOL"

// Unknown is used for best-effort fields that could not be resolved.
const Unknown = "unknown"

// DefaultDescription fills records whose sources carry no description.
const DefaultDescription = "No description available"

// NFTMetadata is the display-ready part of a record.
// An empty Image means no image has been found yet.
type NFTMetadata struct {
	Name        string
	Description string
	Image       string
}

// MarshalJSON renders an empty image as null.
func (m NFTMetadata) MarshalJSON() ([]byte, error) {
	var image *string
	if m.Image != "" {
		image = &m.Image
	}
	return json.Marshal(struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Image       *string `json:"image"`
	}{m.Name, m.Description, image})
}

// UnmarshalJSON accepts a null image.
func (m *NFTMetadata) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Image       *string `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Name = raw.Name
	m.Description = raw.Description
	m.Image = ""
	if raw.Image != nil {
		m.Image = *raw.Image
	}
	return nil
}

// NFTRecord is the canonical, reconciled view of a single NFT.
type NFTRecord struct {
	ID           string      `json:"id"`           // mint address, unique key
	CollectionID string      `json:"collectionId"` // best effort, "unknown" if absent
	Owner        string      `json:"owner"`        // best effort, "unknown" if absent
	Metadata     NFTMetadata `json:"metadata"`
	Price        *float64    `json:"price"`
	Currency     string      `json:"currency"`
	DiscoveredAt time.Time   `json:"discoveredAt"`
	Source       Source      `json:"source,omitempty"`
}

// NewNFTRecord returns a record with the best-effort fields defaulted.
func NewNFTRecord(id string, source Source, discoveredAt time.Time) *NFTRecord {
	return &NFTRecord{
		ID:           id,
		CollectionID: Unknown,
		Owner:        Unknown,
		Currency:     Currency,
		DiscoveredAt: discoveredAt,
		Source:       source,
	}
}

// IsCacheable reports whether the record satisfies the cache admission rule:
// a non-empty name and a non-empty image.
func (r *NFTRecord) IsCacheable() bool {
	return r != nil && r.Metadata.Name != "" && r.Metadata.Image != ""
}

// Clone returns a deep copy of the record.
func (r *NFTRecord) Clone() *NFTRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Price != nil {
		p := *r.Price
		c.Price = &p
	}
	return &c
}
