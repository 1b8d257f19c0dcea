package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immunode/biovault/internal/signing"
)

// Repository persists vault records.
type Repository interface {
	Create(ctx context.Context, v Vault) error
	Get(ctx context.Context, address signing.Address) (Vault, error)
	Update(ctx context.Context, v Vault) error
}

// PostgresRepository stores vaults in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a vault record.
func (r *PostgresRepository) Create(ctx context.Context, v Vault) error {
	requestID, amount, unlock := pendingColumns(v.Pending)
	_, err := r.db.Exec(ctx, `INSERT INTO vaults (address, owner, frozen, pending_request_id, pending_amount, pending_unlock, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
		v.Address.Hex(), v.Owner.Hex(), v.Frozen, requestID, amount, unlock, v.CreatedAt.UTC())
	return err
}

// Get fetches a vault by address.
func (r *PostgresRepository) Get(ctx context.Context, address signing.Address) (Vault, error) {
	row := r.db.QueryRow(ctx, `SELECT owner, frozen, pending_request_id, pending_amount::text, pending_unlock, created_at
        FROM vaults WHERE address = $1`, address.Hex())

	var (
		ownerHex  string
		frozen    bool
		requestID *string
		amountRaw *string
		unlock    *time.Time
		createdAt time.Time
	)
	if err := row.Scan(&ownerHex, &frozen, &requestID, &amountRaw, &unlock, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vault{}, ErrNotFound
		}
		return Vault{}, err
	}

	owner, err := signing.ParseAddress(ownerHex)
	if err != nil {
		return Vault{}, fmt.Errorf("stored owner address: %w", err)
	}

	v := Vault{Address: address, Owner: owner, Frozen: frozen, CreatedAt: createdAt.UTC()}
	if requestID != nil && amountRaw != nil && unlock != nil {
		amount, ok := new(big.Int).SetString(*amountRaw, 10)
		if !ok {
			return Vault{}, fmt.Errorf("stored pending amount %q is not numeric", *amountRaw)
		}
		v.Pending = &PendingWithdrawal{RequestID: *requestID, AmountWei: amount, UnlockTime: unlock.UTC()}
	}
	return v, nil
}

// Update persists freeze and pending-withdrawal changes.
func (r *PostgresRepository) Update(ctx context.Context, v Vault) error {
	requestID, amount, unlock := pendingColumns(v.Pending)
	cmd, err := r.db.Exec(ctx, `UPDATE vaults SET frozen = $1, pending_request_id = $2, pending_amount = $3::numeric, pending_unlock = $4
        WHERE address = $5`, v.Frozen, requestID, amount, unlock, v.Address.Hex())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pendingColumns(p *PendingWithdrawal) (*string, *string, *time.Time) {
	if p == nil {
		return nil, nil, nil
	}
	requestID := p.RequestID
	amount := p.AmountWei.String()
	unlock := p.UnlockTime.UTC()
	return &requestID, &amount, &unlock
}
