package binding

import (
	"context"
	"sync"
	"time"

	"github.com/immunode/biovault/internal/signing"
)

type memoryRegistry struct {
	mu       sync.RWMutex
	bindings map[signing.Address]Binding
}

// NewMemoryRegistry constructs an in-memory registry for tests.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{bindings: make(map[signing.Address]Binding)}
}

func (r *memoryRegistry) Lookup(_ context.Context, wallet signing.Address) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[wallet]
	if !ok {
		return "", false, nil
	}
	return b.Identity, true, nil
}

func (r *memoryRegistry) Bind(_ context.Context, wallet signing.Address, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bindings[wallet]; ok {
		if existing.Identity == identity {
			return nil
		}
		return ErrIdentityMismatch
	}
	r.bindings[wallet] = Binding{Wallet: wallet, Identity: identity, CreatedAt: time.Now().UTC()}
	return nil
}
