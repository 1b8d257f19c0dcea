package signing

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// DigestLength is the byte length of a keccak256 digest.
const DigestLength = 32

// personalMessagePrefix is the EIP-191 prefix for a 32-byte payload. The
// oracle signs prefixed digests and the vault verifies against the same
// wrapping, matching the personal_sign convention.
const personalMessagePrefix = "\x19Ethereum Signed Message:\n32"

// RescueMessage is the tuple authorized by the oracle: move amountWei out of
// the frozen vault to recipient. It is hashed into the signing payload and
// never persisted.
type RescueMessage struct {
	Owner     Address
	Recipient Address
	AmountWei *big.Int
	Vault     Address
}

// Digest packs the tuple as address||address||uint256||address and returns
// its keccak256 hash. The encoding is fixed-order and fixed-width so that
// distinct tuples never produce the same byte stream; the vault recomputes
// this exact digest before verifying a rescue signature.
func (m RescueMessage) Digest() ([DigestLength]byte, error) {
	var digest [DigestLength]byte
	if m.AmountWei == nil || m.AmountWei.Sign() < 0 {
		return digest, fmt.Errorf("amount must be a non-negative integer")
	}
	if m.AmountWei.BitLen() > 256 {
		return digest, fmt.Errorf("amount exceeds uint256")
	}

	packed := make([]byte, 0, 3*AddressLength+32)
	packed = append(packed, m.Owner[:]...)
	packed = append(packed, m.Recipient[:]...)
	amount := make([]byte, 32)
	m.AmountWei.FillBytes(amount)
	packed = append(packed, amount...)
	packed = append(packed, m.Vault[:]...)

	copy(digest[:], Keccak256(packed))
	return digest, nil
}

// SigningDigest wraps a message digest with the EIP-191 personal prefix and
// hashes again. This is the value actually signed and verified.
func SigningDigest(digest [DigestLength]byte) [DigestLength]byte {
	var out [DigestLength]byte
	copy(out[:], Keccak256([]byte(personalMessagePrefix), digest[:]))
	return out
}

// Keccak256 computes the legacy (pre-NIST padding) Keccak-256 hash over the
// concatenation of the given byte slices.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
