// Package gate authenticates the human behind a vault operation against the
// biometric identity provider and, for rescues, authorizes the oracle signer.
// The signer is reachable only through an Authorized outcome: no rejection
// path can produce a signature.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/immunode/biovault/internal/binding"
	"github.com/immunode/biovault/internal/notification"
	"github.com/immunode/biovault/internal/signing"
)

// Status is the terminal state of one authorization attempt.
type Status string

const (
	// StatusAuthorized means the verified identity matches (or newly bound
	// to) the wallet; for rescue intents a signature is attached.
	StatusAuthorized Status = "authorized"
	// StatusRejectedUnverified means the provider round trip failed or the
	// state was invalid, expired, or replayed. The flow may be retried.
	StatusRejectedUnverified Status = "rejected_unverified"
	// StatusRejectedCompromised means the verified identity differs from the
	// wallet's recorded binding: the wallet key is likely stolen. Surfaced
	// distinctly so the rightful owner can be alerted.
	StatusRejectedCompromised Status = "rejected_compromised"
)

// DefaultStateTTL bounds how long an issued authorization state stays valid.
const DefaultStateTTL = 15 * time.Minute

// RescueSigner is the oracle capability invoked on authorized rescues.
// Implemented by *signing.Signer.
type RescueSigner interface {
	Sign(digest [signing.DigestLength]byte) ([]byte, error)
	Address() signing.Address
}

// AuthRequest is the outbound half of an attempt: send the user to URL and
// keep State for the callback (it also rides the provider round trip).
type AuthRequest struct {
	URL   string
	State string
}

// Outcome is the inbound half: the terminal status plus, for authorized
// rescues, the oracle signature over the recomputed intent digest.
type Outcome struct {
	Status    Status
	Reason    string
	Intent    Intent
	Signature []byte
}

// Gate orchestrates the authorization flow.
type Gate struct {
	provider Provider
	registry binding.Registry
	signer   RescueSigner
	nonces   NonceStore
	notifier notification.Notifier
	logger   *slog.Logger
	stateTTL time.Duration
}

// New builds a gate instance.
func New(provider Provider, registry binding.Registry, signer RescueSigner, nonces NonceStore, notifier notification.Notifier, logger *slog.Logger, stateTTL time.Duration) *Gate {
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}
	return &Gate{
		provider: provider,
		registry: registry,
		signer:   signer,
		nonces:   nonces,
		notifier: notifier,
		logger:   logger,
		stateTTL: stateTTL,
	}
}

// Begin starts an authorization attempt: it validates the intent, issues a
// one-time nonce, and returns the provider URL carrying the encoded state.
func (g *Gate) Begin(ctx context.Context, intent Intent) (AuthRequest, error) {
	if err := intent.validate(); err != nil {
		return AuthRequest{}, err
	}

	nonce := uuid.NewString()
	if err := g.nonces.Issue(ctx, nonce, g.stateTTL); err != nil {
		return AuthRequest{}, err
	}

	state, err := EncodeState(intent, nonce)
	if err != nil {
		return AuthRequest{}, err
	}

	g.logger.Info("authorization started",
		"action", string(intent.Action), "owner", intent.Owner.Hex(), "vault", intent.Vault.Hex())
	return AuthRequest{URL: g.provider.AuthorizeURL(state), State: state}, nil
}

// Complete finishes an attempt from the provider callback. providerErr is
// the provider's error query parameter, empty on success. The returned error
// is reserved for infrastructure failures; every protocol-level rejection is
// expressed in the Outcome status.
func (g *Gate) Complete(ctx context.Context, code, state, providerErr string) (Outcome, error) {
	intent, nonce, err := DecodeState(state)
	if err != nil {
		g.logger.Warn("authorization state rejected", "error", err)
		return Outcome{Status: StatusRejectedUnverified, Reason: "invalid state"}, nil
	}

	ok, err := g.nonces.Consume(ctx, nonce)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		g.logger.Warn("authorization nonce rejected", "vault", intent.Vault.Hex())
		return Outcome{Status: StatusRejectedUnverified, Reason: "state expired or already used", Intent: intent}, nil
	}

	if providerErr != "" {
		return Outcome{Status: StatusRejectedUnverified, Reason: "provider error: " + providerErr, Intent: intent}, nil
	}

	subject, err := g.provider.Exchange(ctx, code)
	if err != nil {
		g.logger.Warn("provider exchange failed", "vault", intent.Vault.Hex(), "error", err)
		return Outcome{Status: StatusRejectedUnverified, Reason: "identity verification failed", Intent: intent}, nil
	}

	recorded, found, err := g.registry.Lookup(ctx, intent.Owner)
	if err != nil {
		return Outcome{}, err
	}
	switch {
	case found && recorded != subject:
		return g.rejectCompromised(ctx, intent), nil
	case !found:
		// First successful authentication binds the wallet. A concurrent
		// writer with a different identity loses deterministically.
		if err := g.registry.Bind(ctx, intent.Owner, subject); err != nil {
			if errors.Is(err, binding.ErrIdentityMismatch) {
				return g.rejectCompromised(ctx, intent), nil
			}
			return Outcome{}, err
		}
		g.logger.Info("identity bound", "owner", intent.Owner.Hex())
	}

	outcome := Outcome{Status: StatusAuthorized, Intent: intent}
	if intent.Action == ActionRescue {
		digest, err := signing.RescueMessage{
			Owner:     intent.Owner,
			Recipient: intent.Recipient,
			AmountWei: intent.AmountWei,
			Vault:     intent.Vault,
		}.Digest()
		if err != nil {
			return Outcome{}, err
		}
		sig, err := g.signer.Sign(digest)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Signature = sig
	}

	g.logger.Info("authorization completed",
		"action", string(intent.Action), "owner", intent.Owner.Hex(), "vault", intent.Vault.Hex())
	return outcome, nil
}

func (g *Gate) rejectCompromised(ctx context.Context, intent Intent) Outcome {
	g.logger.Warn("identity mismatch: wallet key may be stolen",
		"owner", intent.Owner.Hex(), "vault", intent.Vault.Hex())
	if g.notifier != nil {
		_ = g.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCompromiseAlert,
			Destination: intent.Owner.Hex(),
			Body:        "An authorization for your vault was attempted by a different verified identity.",
		})
	}
	return Outcome{Status: StatusRejectedCompromised, Reason: "identity does not match wallet binding", Intent: intent}
}
