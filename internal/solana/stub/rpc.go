// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"sync"

	"hypeflow/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. Err, when set for a
// method name, is returned instead of data.
type RPCClient struct {
	mu sync.Mutex

	Transactions    map[string]*solana.Transaction
	Signatures      map[string][]solana.SignatureInfo
	ProgramAccounts []solana.ProgramAccount
	Accounts        map[string]*solana.AccountInfo
	LargestAccounts map[string][]solana.TokenAccountBalance
	Errors          map[string]error

	calls map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:    make(map[string]*solana.Transaction),
		Signatures:      make(map[string][]solana.SignatureInfo),
		Accounts:        make(map[string]*solana.AccountInfo),
		LargestAccounts: make(map[string][]solana.TokenAccountBalance),
		Errors:          make(map[string]error),
		calls:           make(map[string]int),
	}
}

func (c *RPCClient) record(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Errors[method]
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// GetSignaturesForAddress returns stored signatures, honouring the limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.record("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	sigs := c.Signatures[address]
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}
	return sigs, nil
}

// GetTransaction returns a stored transaction or nil.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.record("getTransaction"); err != nil {
		return nil, err
	}
	return c.Transactions[signature], nil
}

// GetProgramAccounts returns the stored accounts, honouring the limit.
func (c *RPCClient) GetProgramAccounts(_ context.Context, _ string, opts *solana.ProgramAccountsOpts) ([]solana.ProgramAccount, error) {
	if err := c.record("getProgramAccounts"); err != nil {
		return nil, err
	}
	accounts := c.ProgramAccounts
	if opts != nil && opts.Limit > 0 && opts.Limit < len(accounts) {
		return accounts[:opts.Limit], nil
	}
	return accounts, nil
}

// GetAccountInfo returns a stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.record("getAccountInfo"); err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetTokenLargestAccounts returns stored balances.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if err := c.record("getTokenLargestAccounts"); err != nil {
		return nil, err
	}
	return c.LargestAccounts[mint], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}
