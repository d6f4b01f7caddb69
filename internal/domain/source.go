package domain

// Source identifies the adapter family that discovered a record.
type Source string

const (
	SourceOnChain     Source = "onchain"
	SourceCollections Source = "collections"
	SourceMagicEden   Source = "magiceden"
	SourceHelius      Source = "helius"
	SourceHyperspace  Source = "hyperspace"
	SourceTensor      Source = "tensor"
	SourceSolanaFM    Source = "solanafm"
	SourceJupiter     Source = "jupiter"
	SourceKnownMints  Source = "known"
	SourceSubscribe   Source = "subscribe"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}
