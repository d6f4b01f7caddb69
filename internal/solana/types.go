package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TokenBalance is one entry of a transaction's pre/post token balances.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     *float64
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes (base58).
type MemcmpFilter struct {
	Offset int
	Bytes  string
}

// DataSlice limits the returned account data to a window.
type DataSlice struct {
	Offset int
	Length int
}

// ProgramAccountsOpts configures getProgramAccounts.
type ProgramAccountsOpts struct {
	Memcmp    []MemcmpFilter
	DataSize  int
	DataSlice *DataSlice
	// Limit truncates the result client-side; the RPC has no paging.
	Limit int
}

// ProgramAccount is one getProgramAccounts result.
type ProgramAccount struct {
	Pubkey string
	Data   []byte
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
}

// TokenAccountBalance is one getTokenLargestAccounts entry.
type TokenAccountBalance struct {
	Address  string
	Amount   string
	UIAmount *float64
}
