package gate

import (
	"math/big"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	intent := rescueIntent(t)

	state, err := EncodeState(intent, "nonce-1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, nonce, err := DecodeState(state)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if nonce != "nonce-1" {
		t.Fatalf("expected nonce-1, got %s", nonce)
	}
	if decoded.Action != intent.Action || decoded.Owner != intent.Owner ||
		decoded.Vault != intent.Vault || decoded.Recipient != intent.Recipient {
		t.Fatalf("round trip changed intent: %+v vs %+v", decoded, intent)
	}
	if decoded.AmountWei.Cmp(intent.AmountWei) != 0 {
		t.Fatalf("round trip changed amount: %s vs %s", decoded.AmountWei, intent.AmountWei)
	}
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeState("%%%"); err == nil {
		t.Fatal("expected error for non-base64 state")
	}
	if _, _, err := DecodeState("bm90LWpzb24"); err == nil {
		t.Fatal("expected error for non-JSON state")
	}
}

func TestEncodeStateLargeAmount(t *testing.T) {
	intent := rescueIntent(t)
	// Amounts near the uint256 ceiling must survive the round trip exactly.
	intent.AmountWei, _ = new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	state, err := EncodeState(intent, "n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, _, err := DecodeState(state)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AmountWei.Cmp(intent.AmountWei) != 0 {
		t.Fatalf("amount corrupted: %s", decoded.AmountWei)
	}
}
