package binding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immunode/biovault/internal/signing"
)

// PostgresRegistry stores identity bindings in PostgreSQL.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

// NewPostgresRegistry builds a Postgres-backed registry.
func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// Lookup returns the recorded identity for the wallet, if any.
func (r *PostgresRegistry) Lookup(ctx context.Context, wallet signing.Address) (string, bool, error) {
	var identity string
	err := r.db.QueryRow(ctx, `SELECT identity FROM identity_bindings WHERE wallet = $1`, wallet.Hex()).Scan(&identity)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup binding: %w", err)
	}
	return identity, true, nil
}

// Bind records the identity for the wallet with first-writer-wins semantics.
// Concurrent bind attempts race on the INSERT; the loser re-reads and is
// rejected if its identity differs from the committed row.
func (r *PostgresRegistry) Bind(ctx context.Context, wallet signing.Address, identity string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO identity_bindings (wallet, identity, created_at)
        VALUES ($1, $2, $3) ON CONFLICT (wallet) DO NOTHING`, wallet.Hex(), identity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bind identity: %w", err)
	}

	recorded, found, err := r.Lookup(ctx, wallet)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("binding for %s not visible after insert", wallet)
	}
	if recorded != identity {
		return ErrIdentityMismatch
	}
	return nil
}
