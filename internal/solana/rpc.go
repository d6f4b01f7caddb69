package solana

import "context"

// RPCClient defines the Solana JSON-RPC calls the pipeline depends on.
type RPCClient interface {
	// GetSignaturesForAddress retrieves recent signatures touching an address.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil when the transaction is unknown.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetProgramAccounts lists accounts owned by a program.
	GetProgramAccounts(ctx context.Context, program string, opts *ProgramAccountsOpts) ([]ProgramAccount, error)

	// GetAccountInfo retrieves raw account data. Returns nil when the account
	// does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenLargestAccounts lists the largest token accounts of a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// MintsWithUnitBalance returns the mints whose post-transaction token balance
// is exactly one whole token, in order of first appearance.
func (tx *Transaction) MintsWithUnitBalance() []string {
	if tx == nil || tx.Meta == nil {
		return nil
	}
	var mints []string
	seen := make(map[string]struct{})
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Mint == "" || b.UIAmount == nil || *b.UIAmount != 1 {
			continue
		}
		if _, ok := seen[b.Mint]; ok {
			continue
		}
		seen[b.Mint] = struct{}{}
		mints = append(mints, b.Mint)
	}
	return mints
}
