// Package binding maintains the permanent association between a wallet
// address and the biometric identity token of its rightful owner. The first
// successful authentication for a wallet writes the binding; every later
// authentication must present the same identity or the wallet is treated as
// compromised.
package binding

import (
	"context"
	"errors"
	"time"

	"github.com/immunode/biovault/internal/signing"
)

// ErrIdentityMismatch indicates an authentication attempt for a wallet whose
// recorded identity differs from the one presented. Callers surface this as a
// compromise signal, never as a generic failure.
var ErrIdentityMismatch = errors.New("identity does not match recorded binding")

// Binding associates a wallet address with a stable identity subject.
type Binding struct {
	Wallet    signing.Address
	Identity  string
	CreatedAt time.Time
}

// Registry is the durable wallet -> identity store. Bindings are write-once:
// there is no delete or update path (revocation is an unresolved product
// decision).
type Registry interface {
	// Lookup returns the recorded identity for the wallet, if any.
	Lookup(ctx context.Context, wallet signing.Address) (string, bool, error)

	// Bind records identity for the wallet. Binding is first-writer-wins:
	// rebinding the same identity is a no-op, a different identity returns
	// ErrIdentityMismatch and leaves the original binding untouched.
	Bind(ctx context.Context, wallet signing.Address, identity string) error
}
