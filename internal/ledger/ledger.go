package ledger

import (
	"context"
	"errors"
	"math/big"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidAmount indicates a nil, negative or zero posting amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	// VaultAccountPrefix namespaces ledger accounts holding vault balances.
	VaultAccountPrefix = "vault:"
	// WalletAccountPrefix namespaces ledger accounts of external wallet
	// addresses that receive withdrawals and rescues.
	WalletAccountPrefix = "wallet:"
)

// TransactionResult captures the outcome of a ledger posting. Amounts are wei.
type TransactionResult struct {
	TransactionID string
	FromBalance   *big.Int
	ToBalance     *big.Int
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
// All amounts are wei values carried as big integers. Transfer requires both
// accounts to exist; callers provision payout destinations with EnsureAccount
// first.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (*big.Int, error)
	Deposit(ctx context.Context, code, clientTxID string, amount *big.Int) (*big.Int, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount *big.Int) (TransactionResult, error)
}
