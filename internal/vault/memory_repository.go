package vault

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/immunode/biovault/internal/signing"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[signing.Address]Vault
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[signing.Address]Vault)}
}

func (r *memoryRepository) Create(_ context.Context, v Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[v.Address]; exists {
		return errors.New("vault exists")
	}
	r.storage[v.Address] = cloneVault(v)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, address signing.Address) (Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.storage[address]
	if !ok {
		return Vault{}, ErrNotFound
	}
	return cloneVault(v), nil
}

func (r *memoryRepository) Update(_ context.Context, v Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[v.Address]; !ok {
		return ErrNotFound
	}
	r.storage[v.Address] = cloneVault(v)
	return nil
}

func cloneVault(v Vault) Vault {
	if v.Pending != nil {
		pending := &PendingWithdrawal{
			RequestID:  v.Pending.RequestID,
			AmountWei:  new(big.Int).Set(v.Pending.AmountWei),
			UnlockTime: v.Pending.UnlockTime,
		}
		v.Pending = pending
	}
	return v
}
