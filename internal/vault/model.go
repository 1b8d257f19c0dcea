package vault

import (
	"math/big"
	"time"

	"github.com/immunode/biovault/internal/ledger"
	"github.com/immunode/biovault/internal/signing"
)

// State is the derived lifecycle state of a vault.
type State string

const (
	// StateActive accepts deposits and new withdrawal requests.
	StateActive State = "ACTIVE"
	// StatePendingWithdrawal has one outstanding timelocked request.
	StatePendingWithdrawal State = "PENDING_WITHDRAWAL"
	// StateFrozen blocks every ordinary withdrawal path; only a rescue can
	// move funds out.
	StateFrozen State = "FROZEN"
)

// PendingWithdrawal is the single outstanding timelocked request of a vault.
// UnlockTime is fixed at request time and never moves. RequestID keys the
// eventual ledger posting so a finalize retry cannot pay out twice.
type PendingWithdrawal struct {
	RequestID  string
	AmountWei  *big.Int
	UnlockTime time.Time
}

// Vault is the protected account. The balance lives in the ledger under the
// vault's account code; the record here carries ownership and freeze state.
type Vault struct {
	Address   signing.Address
	Owner     signing.Address
	Frozen    bool
	Pending   *PendingWithdrawal
	CreatedAt time.Time
}

// State derives the lifecycle state from the freeze flag and pending record.
func (v Vault) State() State {
	switch {
	case v.Frozen:
		return StateFrozen
	case v.Pending != nil:
		return StatePendingWithdrawal
	default:
		return StateActive
	}
}

// AccountCode returns the ledger account holding the vault balance.
func (v Vault) AccountCode() string {
	return ledger.VaultAccountPrefix + v.Address.Hex()
}
