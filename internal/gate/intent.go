package gate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/immunode/biovault/internal/signing"
)

// Action discriminates what the caller wants authorized.
type Action string

const (
	// ActionRescue moves frozen funds to a new address. The only action that
	// results in an oracle signature.
	ActionRescue Action = "rescue"
	// ActionFreeze confirms the human behind a guardian freeze request.
	ActionFreeze Action = "freeze"
	// ActionWithdraw confirms the human behind an ordinary withdrawal.
	ActionWithdraw Action = "withdraw"
)

func (a Action) valid() bool {
	switch a {
	case ActionRescue, ActionFreeze, ActionWithdraw:
		return true
	}
	return false
}

// Intent is the tagged payload carried through the provider round trip.
// It rides inside the opaque OAuth state parameter, so an authorization
// survives process restarts without server-side session state.
type Intent struct {
	Action    Action
	Owner     signing.Address
	Vault     signing.Address
	Recipient signing.Address
	AmountWei *big.Int
}

func (i Intent) validate() error {
	if !i.Action.valid() {
		return fmt.Errorf("unknown action %q", i.Action)
	}
	if i.Owner.IsZero() {
		return fmt.Errorf("owner address is required")
	}
	if i.Vault.IsZero() {
		return fmt.Errorf("vault address is required")
	}
	if i.Action == ActionRescue {
		if i.Recipient.IsZero() {
			return fmt.Errorf("rescue requires a recipient address")
		}
		if i.AmountWei == nil || i.AmountWei.Sign() <= 0 {
			return fmt.Errorf("rescue requires a positive amount")
		}
	}
	return nil
}

// stateToken is the wire form of the state parameter: the intent plus a
// one-time nonce consumed on callback.
type stateToken struct {
	Action    Action `json:"action"`
	Owner     string `json:"owner_address"`
	Vault     string `json:"vault_address"`
	Recipient string `json:"recipient_address,omitempty"`
	AmountWei string `json:"amount_wei,omitempty"`
	Nonce     string `json:"nonce"`
}

// EncodeState serializes the intent and nonce into the base64 state value.
func EncodeState(intent Intent, nonce string) (string, error) {
	tok := stateToken{
		Action: intent.Action,
		Owner:  intent.Owner.Hex(),
		Vault:  intent.Vault.Hex(),
		Nonce:  nonce,
	}
	if !intent.Recipient.IsZero() {
		tok.Recipient = intent.Recipient.Hex()
	}
	if intent.AmountWei != nil {
		tok.AmountWei = intent.AmountWei.String()
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeState reverses EncodeState.
func DecodeState(state string) (Intent, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return Intent{}, "", fmt.Errorf("decode state: %w", err)
	}
	var tok stateToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Intent{}, "", fmt.Errorf("decode state: %w", err)
	}

	intent := Intent{Action: tok.Action}
	if intent.Owner, err = signing.ParseAddress(tok.Owner); err != nil {
		return Intent{}, "", fmt.Errorf("state owner: %w", err)
	}
	if intent.Vault, err = signing.ParseAddress(tok.Vault); err != nil {
		return Intent{}, "", fmt.Errorf("state vault: %w", err)
	}
	if tok.Recipient != "" {
		if intent.Recipient, err = signing.ParseAddress(tok.Recipient); err != nil {
			return Intent{}, "", fmt.Errorf("state recipient: %w", err)
		}
	}
	if tok.AmountWei != "" {
		amount, ok := new(big.Int).SetString(tok.AmountWei, 10)
		if !ok {
			return Intent{}, "", fmt.Errorf("state amount %q is not numeric", tok.AmountWei)
		}
		intent.AmountWei = amount
	}
	if tok.Nonce == "" {
		return Intent{}, "", fmt.Errorf("state is missing a nonce")
	}
	if err := intent.validate(); err != nil {
		return Intent{}, "", err
	}
	return intent, tok.Nonce, nil
}
