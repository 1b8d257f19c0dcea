package signing

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignatureLength is the byte length of a recoverable signature in
// r||s||v layout.
const SignatureLength = 65

// Signer holds the oracle's long-lived secp256k1 private key and produces
// recoverable signatures over 32-byte digests. It enforces no preconditions
// of its own: callers (the identity gate) form the trust boundary, and the
// key material never leaves this struct.
type Signer struct {
	priv *btcec.PrivateKey
	addr Address
}

// NewSigner builds a signer from a 32-byte hex-encoded private key scalar.
func NewSigner(privHex string) (*Signer, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode oracle key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("oracle key must be 32 bytes, got %d", len(raw))
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return &Signer{priv: priv, addr: AddressFromPubKey(priv.PubKey())}, nil
}

// GenerateSigner creates a signer with a fresh random key. Used by tests and
// local development.
func GenerateSigner() (*Signer, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate oracle key: %w", err)
	}
	return &Signer{priv: priv, addr: AddressFromPubKey(priv.PubKey())}, nil
}

// Address returns the EVM address corresponding to the signing key. The
// vault verifies rescue signatures against this address.
func (s *Signer) Address() Address { return s.addr }

// Sign produces a 65-byte r||s||v recoverable signature over the EIP-191
// wrapped digest, with v in {27, 28}.
func (s *Signer) Sign(digest [DigestLength]byte) ([]byte, error) {
	wrapped := SigningDigest(digest)
	compact := ecdsa.SignCompact(s.priv, wrapped[:], false)
	// SignCompact puts the recovery byte first; rearrange to r||s||v.
	sig := make([]byte, SignatureLength)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0]
	return sig, nil
}
