package signing

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// AddressLength is the byte length of an EVM account address.
const AddressLength = 20

// Address is a 20-byte EVM account or contract address.
type Address [AddressLength]byte

// ParseAddress decodes a 0x-prefixed hex address string.
func ParseAddress(s string) (Address, error) {
	var addr Address
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(trimmed) != AddressLength*2 {
		return Address{}, fmt.Errorf("address must be %d hex characters, got %d", AddressLength*2, len(trimmed))
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}
	copy(addr[:], raw)
	return addr, nil
}

// Hex returns the address as 0x-prefixed hex with EIP-55 mixed-case checksum.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])
	digest := Keccak256([]byte(lower))
	out := make([]byte, len(lower))
	for i, c := range []byte(lower) {
		if c >= 'a' && c <= 'f' {
			// Uppercase when the corresponding checksum nibble is >= 8.
			nibble := digest[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c -= 'a' - 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// AddressFromPubKey derives the EVM address of a secp256k1 public key:
// the low 20 bytes of keccak256 over the uncompressed point without the
// 0x04 prefix.
func AddressFromPubKey(pub *btcec.PublicKey) Address {
	var addr Address
	raw := pub.SerializeUncompressed()
	digest := Keccak256(raw[1:])
	copy(addr[:], digest[12:])
	return addr
}
