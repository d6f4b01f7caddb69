package source

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"

	"hypeflow/internal/domain"
	"hypeflow/internal/scheduler"
	"hypeflow/internal/solana"
	"hypeflow/internal/storage"
	"hypeflow/internal/throttle"
)

// CollectionPageSize bounds the mints taken from one collection scan.
const CollectionPageSize = 10

// CollectionScan lists mints whose first creator is a given address.
type CollectionScan struct {
	rpc solana.RPCClient
	env Env
}

// NewCollectionScan creates a CollectionScan.
func NewCollectionScan(rpc solana.RPCClient, env Env) *CollectionScan {
	return &CollectionScan{rpc: rpc, env: env.withDefaults()}
}

// Mints returns up to CollectionPageSize unseen mints created by creator.
func (s *CollectionScan) Mints(ctx context.Context, creator string) ([]string, error) {
	if !solana.IsValidAddress(creator) {
		return nil, fmt.Errorf("collection %q: %w", creator, storage.ErrInvalidInput)
	}

	opts := &solana.ProgramAccountsOpts{
		Memcmp:    []solana.MemcmpFilter{{Offset: solana.FirstCreatorOffset, Bytes: creator}},
		DataSlice: &solana.DataSlice{Offset: solana.MintOffset, Length: 32},
		Limit:     CollectionPageSize,
	}
	accounts, err := throttle.Call(ctx, s.env.Limiter, func(ctx context.Context) ([]solana.ProgramAccount, error) {
		return s.rpc.GetProgramAccounts(ctx, solana.MetaplexProgramID, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("scan collection %s: %w", creator, err)
	}

	mints := newMintSet(s.env.Seen, 0)
	for _, acct := range accounts {
		if len(acct.Data) < 32 {
			continue
		}
		mints.add(base58.Encode(acct.Data[:32]))
	}
	return mints.mints, nil
}

// CollectionRefresh scans one subscribed collection per run.
type CollectionRefresh struct {
	scan     *CollectionScan
	subs     storage.SubscriptionStore
	selector scheduler.Selector
}

// NewCollectionRefresh creates the adapter.
func NewCollectionRefresh(scan *CollectionScan, subs storage.SubscriptionStore, selector scheduler.Selector) *CollectionRefresh {
	return &CollectionRefresh{scan: scan, subs: subs, selector: selector}
}

// Name implements Adapter.
func (r *CollectionRefresh) Name() string { return string(domain.SourceCollections) }

// Discover picks a subscription with the selector and scans it. With no
// subscriptions it discovers nothing.
func (r *CollectionRefresh) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceCollections}

	subs := r.subs.List()
	if len(subs) == 0 {
		return out, nil
	}
	pick := subs[r.selector.Pick(len(subs))]

	mints, err := r.scan.Mints(ctx, pick.Address)
	out.Mints = mints
	return out, err
}
