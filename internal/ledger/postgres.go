package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry
// balance. Amounts are stored as NUMERIC(78,0) wei values, wide enough for
// any uint256.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (*big.Int, error) {
	const query = `
        SELECT COALESCE(SUM(e.amount), 0)::text
        FROM entries e
        INNER JOIN accounts a ON a.id = e.account_id
        WHERE a.code = $1`
	var raw string
	if err := l.db.QueryRow(ctx, query, code).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s not found", code)
		}
		return nil, err
	}
	return parseWei(raw)
}

// Deposit credits an account with external funds and returns the new balance.
func (l *PostgresLedger) Deposit(ctx context.Context, code, clientTxID string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := lockAccount(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = 'deposit'`, clientTxID).Scan(&existing)
	if err == nil {
		return nil, ErrDuplicateTransaction
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, kind, client_tx_id) VALUES ($1, 'deposit', $2)`, txID, clientTxID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount)
        VALUES ($1, $2, $3, $4::numeric)`, uuid.New(), txID, accountID, amount.String()); err != nil {
		return nil, err
	}

	var raw string
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM entries WHERE account_id = $1`, accountID).Scan(&raw); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return parseWei(raw)
}

// Transfer records a balanced posting between two accounts. Both account rows
// are locked for the duration of the transaction, which serializes concurrent
// transitions touching the same vault account.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount *big.Int) (TransactionResult, error) {
	if amount == nil || amount.Sign() <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromAccountID, err := lockAccount(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := lockAccount(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`, clientTxID, kind).Scan(&existing)
	if err == nil {
		return TransactionResult{}, ErrDuplicateTransaction
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return TransactionResult{}, err
	}

	var raw string
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM entries WHERE account_id = $1`, fromAccountID).Scan(&raw); err != nil {
		return TransactionResult{}, err
	}
	fromBalance, err := parseWei(raw)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance.Cmp(amount) < 0 {
		return TransactionResult{}, ErrInsufficientFunds
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, kind, client_tx_id) VALUES ($1, $2, $3)`, txID, kind, clientTxID); err != nil {
		return TransactionResult{}, err
	}
	negated := new(big.Int).Neg(amount)
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount)
        VALUES ($1, $2, $3, $4::numeric), ($5, $2, $6, $7::numeric)`,
		uuid.New(), txID, fromAccountID, negated.String(),
		uuid.New(), toAccountID, amount.String()); err != nil {
		return TransactionResult{}, err
	}

	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM entries WHERE account_id = $1`, toAccountID).Scan(&raw); err != nil {
		return TransactionResult{}, err
	}
	toBalance, err := parseWei(raw)
	if err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{
		TransactionID: kind + ":" + clientTxID,
		FromBalance:   new(big.Int).Sub(fromBalance, amount),
		ToBalance:     toBalance,
	}, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.UUID{}, fmt.Errorf("account %s not found", code)
		}
		return uuid.UUID{}, err
	}
	return id, nil
}

func parseWei(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", raw)
	}
	return v, nil
}
