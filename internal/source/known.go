package source

import (
	"context"

	"hypeflow/internal/domain"
)

// KnownMints re-offers a fixed seed list of mints until each has been seen.
type KnownMints struct {
	mints []string
	env   Env
}

// NewKnownMints creates the adapter.
func NewKnownMints(mints []string, env Env) *KnownMints {
	return &KnownMints{mints: append([]string(nil), mints...), env: env.withDefaults()}
}

// Name implements Adapter.
func (k *KnownMints) Name() string { return string(domain.SourceKnownMints) }

// Discover implements Adapter.
func (k *KnownMints) Discover(context.Context) (Discovery, error) {
	mints := newMintSet(k.env.Seen, 0)
	for _, m := range k.mints {
		mints.add(m)
	}
	return Discovery{Source: domain.SourceKnownMints, Mints: mints.mints}, nil
}
