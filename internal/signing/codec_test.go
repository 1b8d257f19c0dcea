package signing

import (
	"math/big"
	"strings"
	"testing"
)

func mustParseAddress(t *testing.T, s string) Address {
	t.Helper()
	addr, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("parse address %s: %v", s, err)
	}
	return addr
}

func TestDigestDeterministic(t *testing.T) {
	msg := RescueMessage{
		Owner:     mustParseAddress(t, "0x1111111111111111111111111111111111111111"),
		Recipient: mustParseAddress(t, "0x2222222222222222222222222222222222222222"),
		AmountWei: big.NewInt(5_000_000_000_000_000_000),
		Vault:     mustParseAddress(t, "0x3333333333333333333333333333333333333333"),
	}

	first, err := msg.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	second, err := msg.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if first != second {
		t.Fatalf("same tuple produced different digests")
	}
}

func TestDigestDistinctTuples(t *testing.T) {
	base := RescueMessage{
		Owner:     mustParseAddress(t, "0x1111111111111111111111111111111111111111"),
		Recipient: mustParseAddress(t, "0x2222222222222222222222222222222222222222"),
		AmountWei: big.NewInt(1),
		Vault:     mustParseAddress(t, "0x3333333333333333333333333333333333333333"),
	}

	variants := []RescueMessage{
		{Owner: base.Recipient, Recipient: base.Owner, AmountWei: base.AmountWei, Vault: base.Vault},
		{Owner: base.Owner, Recipient: base.Recipient, AmountWei: big.NewInt(2), Vault: base.Vault},
		{Owner: base.Owner, Recipient: base.Recipient, AmountWei: base.AmountWei, Vault: base.Owner},
	}

	baseDigest, err := base.Digest()
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	seen := map[[DigestLength]byte]bool{baseDigest: true}
	for i, v := range variants {
		d, err := v.Digest()
		if err != nil {
			t.Fatalf("variant %d digest: %v", i, err)
		}
		if seen[d] {
			t.Fatalf("variant %d collided with an earlier tuple", i)
		}
		seen[d] = true
	}
}

func TestDigestRejectsBadAmounts(t *testing.T) {
	msg := RescueMessage{AmountWei: nil}
	if _, err := msg.Digest(); err == nil {
		t.Fatal("expected error for nil amount")
	}

	msg.AmountWei = big.NewInt(-1)
	if _, err := msg.Digest(); err == nil {
		t.Fatal("expected error for negative amount")
	}

	over := new(big.Int).Lsh(big.NewInt(1), 256)
	msg.AmountWei = over
	if _, err := msg.Digest(); err == nil {
		t.Fatal("expected error for amount exceeding uint256")
	}
}

func TestParseAddressRoundTrip(t *testing.T) {
	addr := mustParseAddress(t, "0xdEAdBEeF00000000000000000000000000000001")
	reparsed, err := ParseAddress(addr.Hex())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if reparsed != addr {
		t.Fatalf("round trip changed address: %s vs %s", addr, reparsed)
	}

	if _, err := ParseAddress("0x1234"); err == nil {
		t.Fatal("expected error for short address")
	}
	if _, err := ParseAddress(strings.Repeat("zz", 20)); err == nil {
		t.Fatal("expected error for non-hex address")
	}
}
