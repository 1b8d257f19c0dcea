package vault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/immunode/biovault/internal/ledger"
	"github.com/immunode/biovault/internal/notification"
	"github.com/immunode/biovault/internal/signing"
)

// DefaultTimelock is the mandatory delay between requesting and finalizing
// an ordinary withdrawal. The window exists so the owner can detect theft
// and trigger a freeze before the thief's withdrawal clears.
const DefaultTimelock = 72 * time.Hour

// Params carries the service-level trust anchors: the oracle address that
// rescue signatures must recover to, and the guardian allowed to freeze.
type Params struct {
	Oracle   signing.Address
	Guardian signing.Address
	Timelock time.Duration
}

// Service executes vault state transitions. Transitions are atomic and
// serial per vault: a per-vault mutex orders concurrent requests so each
// observes a consistent pre-state, and guard failures never mutate anything.
type Service struct {
	repo     Repository
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
	oracle   signing.Address
	guardian signing.Address
	timelock time.Duration

	locks sync.Map // signing.Address -> *sync.Mutex

	// now is swapped out by tests to drive the timelock.
	now func() time.Time
}

// NewService builds a vault service instance.
func NewService(repo Repository, led ledger.Ledger, notifier notification.Notifier, logger *slog.Logger, params Params) *Service {
	timelock := params.Timelock
	if timelock <= 0 {
		timelock = DefaultTimelock
	}
	return &Service{
		repo:     repo,
		ledger:   led,
		notifier: notifier,
		logger:   logger,
		oracle:   params.Oracle,
		guardian: params.Guardian,
		timelock: timelock,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Open provisions a new vault for owner along with its ledger account.
func (s *Service) Open(ctx context.Context, owner signing.Address) (Vault, error) {
	if owner.IsZero() {
		return Vault{}, fmt.Errorf("owner address is required")
	}

	id := uuid.New()
	var address signing.Address
	copy(address[:], signing.Keccak256(owner[:], id[:])[12:])

	v := Vault{Address: address, Owner: owner, CreatedAt: s.now()}
	if err := s.ledger.EnsureAccount(ctx, v.AccountCode()); err != nil {
		return Vault{}, err
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return Vault{}, err
	}

	s.logger.Info("vault opened", "vault", v.Address.Hex(), "owner", owner.Hex())
	return v, nil
}

// Deposit credits the vault with external funds. Deposits are accepted in
// every state, frozen included, mirroring plain transfers into the contract.
func (s *Service) Deposit(ctx context.Context, vaultAddr signing.Address, amountWei *big.Int, clientTxID string) (*big.Int, error) {
	unlock := s.lock(vaultAddr)
	defer unlock()

	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return nil, err
	}
	if clientTxID == "" {
		clientTxID = uuid.NewString()
	}
	return s.ledger.Deposit(ctx, v.AccountCode(), clientTxID, amountWei)
}

// RequestWithdrawal records a timelocked withdrawal request. At most one
// request may be outstanding; the unlock time is fixed at now + timelock.
func (s *Service) RequestWithdrawal(ctx context.Context, caller, vaultAddr signing.Address, amountWei *big.Int) (Vault, error) {
	unlock := s.lock(vaultAddr)
	defer unlock()

	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return Vault{}, err
	}
	if caller != v.Owner {
		return Vault{}, guardErr(ReasonNotOwner)
	}
	if v.Frozen {
		return Vault{}, guardErr(ReasonFrozen)
	}
	if v.Pending != nil {
		return Vault{}, guardErr(ReasonAlreadyPending)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return Vault{}, ledger.ErrInvalidAmount
	}

	balance, err := s.ledger.Balance(ctx, v.AccountCode())
	if err != nil {
		return Vault{}, err
	}
	if amountWei.Cmp(balance) > 0 {
		return Vault{}, ledger.ErrInsufficientFunds
	}

	v.Pending = &PendingWithdrawal{
		RequestID:  uuid.NewString(),
		AmountWei:  new(big.Int).Set(amountWei),
		UnlockTime: s.now().Add(s.timelock),
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return Vault{}, err
	}

	s.logger.Info("withdrawal requested",
		"vault", v.Address.Hex(), "amount_wei", amountWei.String(), "unlock_time", v.Pending.UnlockTime)
	return v, nil
}

// FinalizeWithdrawal pays the pending amount to the owner once the timelock
// has elapsed and clears the request. A second call fails: the pending
// record is consumed and the ledger posting is keyed by the request itself.
func (s *Service) FinalizeWithdrawal(ctx context.Context, caller, vaultAddr signing.Address) (ledger.TransactionResult, error) {
	unlock := s.lock(vaultAddr)
	defer unlock()

	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return ledger.TransactionResult{}, err
	}
	if caller != v.Owner {
		return ledger.TransactionResult{}, guardErr(ReasonNotOwner)
	}
	if v.Frozen {
		return ledger.TransactionResult{}, guardErr(ReasonFrozen)
	}
	if v.Pending == nil {
		return ledger.TransactionResult{}, guardErr(ReasonNoPending)
	}
	if s.now().Before(v.Pending.UnlockTime) {
		return ledger.TransactionResult{}, guardErr(ReasonTimelock)
	}

	// The owner's wallet account may not exist yet; provision it so the
	// payout posting has a destination on every backend.
	dest := ledger.WalletAccountPrefix + v.Owner.Hex()
	if err := s.ledger.EnsureAccount(ctx, dest); err != nil {
		return ledger.TransactionResult{}, err
	}
	res, err := s.ledger.Transfer(ctx, v.AccountCode(), dest, "withdrawal", v.Pending.RequestID, v.Pending.AmountWei)
	if err != nil {
		return ledger.TransactionResult{}, err
	}

	v.Pending = nil
	if err := s.repo.Update(ctx, v); err != nil {
		return ledger.TransactionResult{}, err
	}

	s.logger.Info("withdrawal finalized", "vault", v.Address.Hex(), "tx", res.TransactionID)
	return res, nil
}

// PanicFreeze is the guardian's circuit breaker: immediate, signature-free,
// and idempotent. Any pending withdrawal is invalidated without moving funds.
func (s *Service) PanicFreeze(ctx context.Context, caller, vaultAddr signing.Address) (Vault, error) {
	unlock := s.lock(vaultAddr)
	defer unlock()

	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return Vault{}, err
	}
	if caller != s.guardian {
		return Vault{}, guardErr(ReasonNotGuardian)
	}

	v.Frozen = true
	v.Pending = nil
	if err := s.repo.Update(ctx, v); err != nil {
		return Vault{}, err
	}

	s.logger.Warn("vault frozen", "vault", v.Address.Hex())
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindVaultFrozen,
			Destination: v.Owner.Hex(),
			Body:        "Your vault " + v.Address.Hex() + " was frozen by the guardian.",
		})
	}
	return v, nil
}

// RescueFunds moves funds out of a frozen vault to a recipient authorized by
// the oracle. The digest is recomputed here from the vault's own record; a
// caller-supplied hash is never trusted. On success the vault returns to
// ACTIVE (the guardian can freeze it again at any time).
func (s *Service) RescueFunds(ctx context.Context, vaultAddr, recipient signing.Address, amountWei *big.Int, sig []byte) (ledger.TransactionResult, error) {
	unlock := s.lock(vaultAddr)
	defer unlock()

	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return ledger.TransactionResult{}, err
	}
	if !v.Frozen {
		// A rescue authorization is only meaningful for a frozen vault;
		// reject without revealing whether the signature would have passed.
		s.logger.Warn("rescue attempted on unfrozen vault", "vault", v.Address.Hex())
		return ledger.TransactionResult{}, ErrSignatureInvalid
	}

	msg := signing.RescueMessage{
		Owner:     v.Owner,
		Recipient: recipient,
		AmountWei: amountWei,
		Vault:     v.Address,
	}
	digest, err := msg.Digest()
	if err != nil {
		return ledger.TransactionResult{}, ErrSignatureInvalid
	}
	if !signing.Verify(digest, sig, s.oracle) {
		s.logger.Warn("rescue signature rejected", "vault", v.Address.Hex(), "recipient", recipient.Hex())
		return ledger.TransactionResult{}, ErrSignatureInvalid
	}

	balance, err := s.ledger.Balance(ctx, v.AccountCode())
	if err != nil {
		return ledger.TransactionResult{}, err
	}
	if amountWei.Cmp(balance) > 0 {
		return ledger.TransactionResult{}, ledger.ErrInsufficientFunds
	}

	dest := ledger.WalletAccountPrefix + recipient.Hex()
	if err := s.ledger.EnsureAccount(ctx, dest); err != nil {
		return ledger.TransactionResult{}, err
	}
	// The posting is keyed by the digest, so replaying the same signed
	// authorization cannot drain the vault twice.
	res, err := s.ledger.Transfer(ctx, v.AccountCode(), dest, "rescue", hex.EncodeToString(digest[:]), amountWei)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			s.logger.Warn("rescue replay rejected", "vault", v.Address.Hex())
			return ledger.TransactionResult{}, ErrSignatureInvalid
		}
		return ledger.TransactionResult{}, err
	}

	v.Frozen = false
	v.Pending = nil
	if err := s.repo.Update(ctx, v); err != nil {
		return ledger.TransactionResult{}, err
	}

	s.logger.Info("rescue executed",
		"vault", v.Address.Hex(), "recipient", recipient.Hex(), "amount_wei", amountWei.String())
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindRescueExecuted,
			Destination: v.Owner.Hex(),
			Body:        "Funds frozen in vault " + v.Address.Hex() + " were moved to " + recipient.Hex() + ".",
		})
	}
	return res, nil
}

// Get returns the vault record.
func (s *Service) Get(ctx context.Context, vaultAddr signing.Address) (Vault, error) {
	return s.repo.Get(ctx, vaultAddr)
}

// Balance returns the vault's ledger balance in wei.
func (s *Service) Balance(ctx context.Context, vaultAddr signing.Address) (*big.Int, error) {
	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return nil, err
	}
	return s.ledger.Balance(ctx, v.AccountCode())
}

// IsFrozen mirrors the contract view of the same name.
func (s *Service) IsFrozen(ctx context.Context, vaultAddr signing.Address) (bool, error) {
	v, err := s.repo.Get(ctx, vaultAddr)
	if err != nil {
		return false, err
	}
	return v.Frozen, nil
}

// Oracle returns the address rescue signatures must recover to.
func (s *Service) Oracle() signing.Address { return s.oracle }

func (s *Service) lock(addr signing.Address) func() {
	v, _ := s.locks.LoadOrStore(addr, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
