package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hypeflow/internal/solana"
	"hypeflow/internal/throttle"
)

// ChainTokens implements TokenProvider over Solana RPC. Every RPC call is
// spaced by the shared limiter.
type ChainTokens struct {
	rpc     solana.RPCClient
	limiter *throttle.Limiter
	logger  *zap.Logger
}

// NewChainTokens creates an RPC-backed TokenProvider.
func NewChainTokens(rpc solana.RPCClient, limiter *throttle.Limiter, logger *zap.Logger) *ChainTokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainTokens{rpc: rpc, limiter: limiter, logger: logger}
}

var _ TokenProvider = (*ChainTokens)(nil)

// Token reads the Metaplex metadata account of mint and resolves its owner.
// Owner lookup is best effort unless rate limited.
func (c *ChainTokens) Token(ctx context.Context, mint string) (*TokenData, error) {
	pda, err := solana.DeriveMetadataPDA(mint)
	if err != nil {
		return nil, nil
	}

	acct, err := throttle.Call(ctx, c.limiter, func(ctx context.Context) (*solana.AccountInfo, error) {
		return c.rpc.GetAccountInfo(ctx, pda)
	})
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if acct == nil || len(acct.Data) == 0 {
		return nil, nil
	}

	md, err := solana.ParseMetadata(acct.Data)
	if err != nil {
		c.logger.Debug("unparseable metadata account", zap.String("mint", mint), zap.Error(err))
		return nil, nil
	}

	owner, err := c.owner(ctx, mint)
	if err != nil {
		if throttle.IsRateLimited(err) {
			return nil, err
		}
		c.logger.Debug("owner lookup failed", zap.String("mint", mint), zap.Error(err))
	}

	return &TokenData{
		Mint:          mint,
		Name:          md.Name,
		Symbol:        md.Symbol,
		URI:           md.URI,
		CollectionKey: md.CollectionKey(),
		Owner:         owner,
	}, nil
}

// owner resolves the wallet holding the largest token account of mint.
func (c *ChainTokens) owner(ctx context.Context, mint string) (string, error) {
	largest, err := throttle.Call(ctx, c.limiter, func(ctx context.Context) ([]solana.TokenAccountBalance, error) {
		return c.rpc.GetTokenLargestAccounts(ctx, mint)
	})
	if err != nil {
		return "", fmt.Errorf("largest accounts: %w", err)
	}
	if len(largest) == 0 {
		return "", nil
	}

	acct, err := throttle.Call(ctx, c.limiter, func(ctx context.Context) (*solana.AccountInfo, error) {
		return c.rpc.GetAccountInfo(ctx, largest[0].Address)
	})
	if err != nil {
		return "", fmt.Errorf("token account: %w", err)
	}
	if acct == nil {
		return "", nil
	}
	return solana.TokenAccountOwner(acct.Data)
}
