package signing

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// RecoverSigner recovers the address that produced sig over the EIP-191
// wrapped digest. sig must be 65 bytes in r||s||v layout with v in {27, 28}.
func RecoverSigner(digest [DigestLength]byte, sig []byte) (Address, error) {
	if len(sig) != SignatureLength {
		return Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	v := sig[64]
	if v != 27 && v != 28 {
		return Address{}, fmt.Errorf("invalid recovery id %d", v)
	}
	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], sig[:64])

	wrapped := SigningDigest(digest)
	pub, _, err := ecdsa.RecoverCompact(compact, wrapped[:])
	if err != nil {
		return Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return AddressFromPubKey(pub), nil
}

// Verify reports whether sig over digest was produced by the key behind
// the expected address.
func Verify(digest [DigestLength]byte, sig []byte, expected Address) bool {
	recovered, err := RecoverSigner(digest, sig)
	if err != nil {
		return false
	}
	return recovered == expected
}
