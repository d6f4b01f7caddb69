package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/solana"
	"hypeflow/internal/throttle"
)

// On-chain scan bounds.
const (
	OnChainSignatureLimit = 15
	OnChainExamine        = 5
	OnChainMaxMints       = 3
)

// OnChainScan finds freshly minted NFTs in recent Metaplex transactions.
type OnChainScan struct {
	rpc    solana.RPCClient
	stream *LogStream
	env    Env
}

// NewOnChainScan creates the scan. stream may be nil.
func NewOnChainScan(rpc solana.RPCClient, stream *LogStream, env Env) *OnChainScan {
	return &OnChainScan{rpc: rpc, stream: stream, env: env.withDefaults()}
}

// Name implements Adapter.
func (s *OnChainScan) Name() string { return string(domain.SourceOnChain) }

// Discover examines streamed signatures first, then the first few recent
// program signatures. Each signature is marked seen before its transaction
// is fetched. The scan stops at the first 429.
func (s *OnChainScan) Discover(ctx context.Context) (Discovery, error) {
	out := Discovery{Source: domain.SourceOnChain}

	var sigs []string
	if s.stream != nil {
		sigs = append(sigs, s.stream.Drain(OnChainExamine)...)
	}

	recent, err := throttle.Call(ctx, s.env.Limiter, func(ctx context.Context) ([]solana.SignatureInfo, error) {
		return s.rpc.GetSignaturesForAddress(ctx, solana.MetaplexProgramID, &solana.SignaturesOpts{Limit: OnChainSignatureLimit})
	})
	if err != nil {
		if len(sigs) == 0 {
			return out, fmt.Errorf("get signatures: %w", err)
		}
		s.env.Logger.Warn("recent signatures unavailable, using streamed only", zap.Error(err))
	}
	if len(recent) > OnChainExamine {
		recent = recent[:OnChainExamine]
	}
	for _, info := range recent {
		sigs = append(sigs, info.Signature)
	}

	mints := newMintSet(s.env.Seen, OnChainMaxMints)
	for _, sig := range sigs {
		if mints.full() {
			break
		}
		if !s.env.Seen.MarkSeen(sig) {
			continue
		}

		tx, err := throttle.Call(ctx, s.env.Limiter, func(ctx context.Context) (*solana.Transaction, error) {
			return s.rpc.GetTransaction(ctx, sig)
		})
		if err != nil {
			if throttle.IsRateLimited(err) || ctx.Err() != nil {
				out.Mints = mints.mints
				return out, fmt.Errorf("get transaction %s: %w", sig, err)
			}
			s.env.Logger.Debug("transaction unavailable", zap.String("signature", sig), zap.Error(err))
			continue
		}
		if tx == nil {
			continue
		}
		for _, mint := range tx.MintsWithUnitBalance() {
			if !mints.add(mint) {
				break
			}
		}
	}

	out.Mints = mints.mints
	return out, nil
}
