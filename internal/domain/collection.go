package domain

import (
	"encoding/json"
	"time"
)

// CollectionSubscription records when a collection started being tracked.
type CollectionSubscription struct {
	Address      string
	SubscribedAt time.Time
}

// MarshalJSON renders the subscription the way the gallery UI expects:
// {"address": ..., "subscribed": <unix ms>}.
func (c CollectionSubscription) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address    string `json:"address"`
		Subscribed int64  `json:"subscribed"`
	}{c.Address, c.SubscribedAt.UnixMilli()})
}
