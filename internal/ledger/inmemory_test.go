package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func TestInMemoryDepositAndBalance(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "vault:0xabc"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	balance, err := l.Deposit(ctx, "vault:0xabc", "tx-1", big.NewInt(1_000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if balance.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected balance 1000, got %s", balance)
	}

	if _, err := l.Deposit(ctx, "vault:0xabc", "tx-1", big.NewInt(1_000)); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate transaction, got %v", err)
	}

	if _, err := l.Deposit(ctx, "vault:0xabc", "tx-2", big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestInMemoryTransfer(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "vault:0xabc"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	if err := l.EnsureAccount(ctx, "wallet:0xdef"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	SeedBalance(l, "vault:0xabc", big.NewInt(500))

	res, err := l.Transfer(ctx, "vault:0xabc", "wallet:0xdef", "rescue", "tx-1", big.NewInt(200))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("expected from balance 300, got %s", res.FromBalance)
	}
	if res.ToBalance.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected to balance 200, got %s", res.ToBalance)
	}

	if _, err := l.Transfer(ctx, "vault:0xabc", "wallet:0xdef", "rescue", "tx-2", big.NewInt(10_000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if _, err := l.Transfer(ctx, "vault:0xabc", "wallet:0xdef", "rescue", "tx-1", big.NewInt(1)); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate transaction, got %v", err)
	}
}

func TestInMemoryTransferRequiresRecipientAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "vault:0xabc"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	SeedBalance(l, "vault:0xabc", big.NewInt(100))

	// Never-seen destinations must be provisioned first, matching the
	// Postgres backend's account row locking.
	if _, err := l.Transfer(ctx, "vault:0xabc", "wallet:0xnew", "rescue", "tx-1", big.NewInt(100)); err == nil {
		t.Fatal("expected transfer to unknown account to fail")
	}

	if err := l.EnsureAccount(ctx, "wallet:0xnew"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	res, err := l.Transfer(ctx, "vault:0xabc", "wallet:0xnew", "rescue", "tx-1", big.NewInt(100))
	if err != nil {
		t.Fatalf("transfer after ensure: %v", err)
	}
	if res.ToBalance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected recipient balance 100, got %s", res.ToBalance)
	}

	balance, err := l.Balance(ctx, "vault:0xabc")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected drained vault, got %s", balance)
	}
}
