package vault

import "errors"

// Guard rejection reasons. These match the revert strings of the on-chain
// vault so callers see identical failures regardless of backend.
const (
	ReasonNotOwner       = "Not the owner"
	ReasonNotGuardian    = "Not the guardian"
	ReasonFrozen         = "Vault is FROZEN"
	ReasonNotFrozen      = "Vault is not frozen"
	ReasonAlreadyPending = "Withdrawal already pending"
	ReasonNoPending      = "No pending withdrawal"
	ReasonTimelock       = "Wait 72 hours"
)

// ErrSignatureInvalid rejects a rescue whose signature does not recover to
// the oracle address, or that targets an unfrozen vault. Logged as a
// potential forgery attempt.
var ErrSignatureInvalid = errors.New("invalid oracle signature")

// ErrNotFound indicates the vault address is unknown.
var ErrNotFound = errors.New("vault not found")

// GuardError is a synchronous transition rejection. Guard failures never
// mutate state.
type GuardError struct {
	Reason string
}

func (e *GuardError) Error() string { return e.Reason }

func guardErr(reason string) error { return &GuardError{Reason: reason} }

// IsGuard reports whether err is a guard rejection, optionally matching a
// specific reason.
func IsGuard(err error, reason string) bool {
	var ge *GuardError
	if !errors.As(err, &ge) {
		return false
	}
	return reason == "" || ge.Reason == reason
}
