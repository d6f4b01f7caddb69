package resolver

import (
	"context"
	"encoding/binary"
	"net/http"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypeflow/internal/httpx"
	"hypeflow/internal/solana"
	"hypeflow/internal/solana/stub"
	"hypeflow/internal/throttle"
)

func key(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

func borshString(s string) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(s)))
	return append(out, s...)
}

// metadataAccount builds a minimal v1 metadata account with one creator.
func metadataAccount(name, uri string, creator []byte) []byte {
	buf := []byte{4}
	buf = append(buf, key(1)...)
	buf = append(buf, key(2)...)
	buf = append(buf, borshString(name)...)
	buf = append(buf, borshString("SYM")...)
	buf = append(buf, borshString(uri)...)
	buf = append(buf, 0xf4, 0x01)
	buf = append(buf, 1, 1, 0, 0, 0)
	buf = append(buf, creator...)
	return append(buf, 1, 100)
}

func tokenAccount(mint, owner []byte) []byte {
	data := append([]byte{}, mint...)
	data = append(data, owner...)
	return append(data, make([]byte, 8)...)
}

func TestChainTokens_Token(t *testing.T) {
	mint := base58.Encode(key(2))
	pda, err := solana.DeriveMetadataPDA(mint)
	require.NoError(t, err)

	rpc := stub.NewRPCClient()
	rpc.Accounts[pda] = &solana.AccountInfo{Data: metadataAccount("Degen #9", "https://arweave.net/m", key(3))}
	rpc.LargestAccounts[mint] = []solana.TokenAccountBalance{{Address: "TokenAcct1", Amount: "1"}}
	rpc.Accounts["TokenAcct1"] = &solana.AccountInfo{Data: tokenAccount(key(2), key(9))}

	tok, err := NewChainTokens(rpc, fastLimiter(), nil).Token(context.Background(), mint)
	require.NoError(t, err)
	require.NotNil(t, tok)

	assert.Equal(t, "Degen #9", tok.Name)
	assert.Equal(t, "SYM", tok.Symbol)
	assert.Equal(t, "https://arweave.net/m", tok.URI)
	assert.Equal(t, base58.Encode(key(3)), tok.CollectionKey)
	assert.Equal(t, base58.Encode(key(9)), tok.Owner)
}

func TestChainTokens_NoMetadata(t *testing.T) {
	rpc := stub.NewRPCClient()
	c := NewChainTokens(rpc, fastLimiter(), nil)

	tok, err := c.Token(context.Background(), base58.Encode(key(5)))
	require.NoError(t, err)
	assert.Nil(t, tok)

	tok, err = c.Token(context.Background(), "not-a-mint")
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, 1, rpc.Calls("getAccountInfo"))
}

func TestChainTokens_OwnerBestEffort(t *testing.T) {
	mint := base58.Encode(key(2))
	pda, err := solana.DeriveMetadataPDA(mint)
	require.NoError(t, err)

	rpc := stub.NewRPCClient()
	rpc.Accounts[pda] = &solana.AccountInfo{Data: metadataAccount("X", "", key(3))}
	rpc.Errors["getTokenLargestAccounts"] = &solana.RPCError{Code: -32000, Message: "busy"}

	tok, err := NewChainTokens(rpc, fastLimiter(), nil).Token(context.Background(), mint)
	require.NoError(t, err)
	assert.Empty(t, tok.Owner)
}

func TestChainTokens_RateLimited(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Errors["getAccountInfo"] = &httpx.StatusError{Code: http.StatusTooManyRequests}

	penalties := 0
	limiter := throttle.New(throttle.WithInterval(0), throttle.WithPenalty(0),
		throttle.WithPenaltyHook(func() { penalties++ }))

	_, err := NewChainTokens(rpc, limiter, nil).Token(context.Background(), base58.Encode(key(2)))
	require.Error(t, err)
	assert.True(t, throttle.IsRateLimited(err))
	assert.Equal(t, 1, penalties)
}
