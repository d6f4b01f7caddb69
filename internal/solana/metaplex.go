package solana

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MetaplexProgramID is the Metaplex Token Metadata program.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// Offsets into a Metadata account.
const (
	// MintOffset is where the mint pubkey starts: key(1) + update authority(32).
	MintOffset = 33
	// FirstCreatorOffset is where the first creator address starts when the
	// name, symbol and uri are padded to their maximum lengths.
	FirstCreatorOffset = 326
)

const (
	metadataKeyV1 = 4
	pubkeyLen     = 32
	maxNameLen    = 32
	maxSymbolLen  = 10
	maxURILen     = 200
)

var errShortData = errors.New("metadata: unexpected end of data")

// Creator is a Metaplex creator entry.
type Creator struct {
	Address  string
	Verified bool
	Share    uint8
}

// CollectionRef is the optional collection field of a Metadata account.
type CollectionRef struct {
	Key      string
	Verified bool
}

// Metadata is the decoded Metaplex Metadata account.
type Metadata struct {
	UpdateAuthority      string
	Mint                 string
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	Collection           *CollectionRef
}

// CollectionKey returns the verified collection key, falling back to the
// first creator address. Empty when neither exists.
func (m *Metadata) CollectionKey() string {
	if m == nil {
		return ""
	}
	if m.Collection != nil && m.Collection.Verified {
		return m.Collection.Key
	}
	if len(m.Creators) > 0 {
		return m.Creators[0].Address
	}
	return ""
}

// IsValidAddress reports whether s is a base58 encoded 32-byte public key.
func IsValidAddress(s string) bool {
	if s == "" || len(s) > 44 {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == pubkeyLen
}

// DeriveMetadataPDA returns the Metaplex metadata account for mint.
// Seeds: ["metadata", metaplex_program_id, mint].
func DeriveMetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != pubkeyLen {
		return "", fmt.Errorf("invalid mint %q", mint)
	}
	programBytes, err := base58.Decode(MetaplexProgramID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}

	pda := derivePDA([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
	if pda == "" {
		return "", fmt.Errorf("no off-curve bump for mint %s", mint)
	}
	return pda, nil
}

// derivePDA searches bumps from 255 down for an off-curve address.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		var data []byte
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ParseMetadata decodes a Metaplex Metadata account (borsh layout).
// Fields after the collection are ignored.
func ParseMetadata(data []byte) (*Metadata, error) {
	r := &borshReader{buf: data}

	key, err := r.u8()
	if err != nil {
		return nil, err
	}
	if key != metadataKeyV1 {
		return nil, fmt.Errorf("metadata: unexpected account key %d", key)
	}

	m := &Metadata{}
	if m.UpdateAuthority, err = r.pubkey(); err != nil {
		return nil, err
	}
	if m.Mint, err = r.pubkey(); err != nil {
		return nil, err
	}
	if m.Name, err = r.str(maxNameLen); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if m.Symbol, err = r.str(maxSymbolLen); err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	if m.URI, err = r.str(maxURILen); err != nil {
		return nil, fmt.Errorf("uri: %w", err)
	}
	if m.SellerFeeBasisPoints, err = r.u16(); err != nil {
		return nil, err
	}

	hasCreators, err := r.u8()
	if err != nil {
		return nil, err
	}
	if hasCreators == 1 {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if n > 5 {
			return nil, fmt.Errorf("metadata: %d creators", n)
		}
		for i := uint32(0); i < n; i++ {
			var c Creator
			if c.Address, err = r.pubkey(); err != nil {
				return nil, err
			}
			verified, err := r.u8()
			if err != nil {
				return nil, err
			}
			if c.Share, err = r.u8(); err != nil {
				return nil, err
			}
			c.Verified = verified == 1
			m.Creators = append(m.Creators, c)
		}
	}

	// Trailing fields are optional in older accounts; stop quietly.
	// primary_sale_happened, is_mutable
	if err := r.skip(2); err != nil {
		return m, nil
	}
	// edition_nonce, token_standard
	for i := 0; i < 2; i++ {
		if err := r.skipOption(1); err != nil {
			return m, nil
		}
	}
	hasCollection, err := r.u8()
	if err != nil || hasCollection != 1 {
		return m, nil
	}
	verified, err := r.u8()
	if err != nil {
		return m, nil
	}
	collectionKey, err := r.pubkey()
	if err != nil {
		return m, nil
	}
	m.Collection = &CollectionRef{Key: collectionKey, Verified: verified == 1}

	return m, nil
}

// TokenAccountOwner extracts the owner from SPL token account data
// (mint(32) | owner(32) | amount(8) ...).
func TokenAccountOwner(data []byte) (string, error) {
	if len(data) < 2*pubkeyLen {
		return "", errShortData
	}
	return base58.Encode(data[pubkeyLen : 2*pubkeyLen]), nil
}

type borshReader struct {
	buf []byte
	off int
}

func (r *borshReader) need(n int) error {
	if r.off+n > len(r.buf) {
		return errShortData
	}
	return nil
}

func (r *borshReader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *borshReader) skipOption(size int) error {
	tag, err := r.u8()
	if err != nil {
		return err
	}
	if tag == 1 {
		return r.skip(size)
	}
	return nil
}

func (r *borshReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *borshReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *borshReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *borshReader) pubkey() (string, error) {
	if err := r.need(pubkeyLen); err != nil {
		return "", err
	}
	v := base58.Encode(r.buf[r.off : r.off+pubkeyLen])
	r.off += pubkeyLen
	return v, nil
}

// str reads a length-prefixed string and trims the NUL padding Metaplex
// writes to fill the fixed-size field.
func (r *borshReader) str(max int) (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if int(n) > max {
		return "", fmt.Errorf("length %d exceeds %d", n, max)
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	v := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return strings.TrimSpace(strings.TrimRight(v, "\x00")), nil
}
