// Package market contains thin clients for the NFT marketplace and
// aggregator APIs used as discovery sources. Clients perform no pacing of
// their own; callers route them through a throttle.Limiter.
package market

// Default API roots.
const (
	DefaultMagicEdenURL  = "https://api-mainnet.magiceden.dev"
	DefaultHeliusURL     = "https://api.helius.xyz"
	DefaultHyperspaceURL = "https://beta.hyperspace.xyz"
	DefaultTensorURL     = "https://api.tensor.so/graphql"
	DefaultSolanaFMURL   = "https://api.solana.fm"
	DefaultJupiterURL    = "https://price.jup.ag"
)

// LamportsPerSOL converts lamport prices to SOL.
const LamportsPerSOL = 1_000_000_000
