package gate

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/immunode/biovault/internal/signing"
)

// Handler exposes the identity authorization round trip.
type Handler struct {
	gate *Gate
}

// NewHandler constructs a gate HTTP handler.
func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

// Begin starts an authorization attempt and returns the provider URL to
// send the user to. The intent rides in the query string, the way the
// front-end collaborator submits it.
func (h *Handler) Begin(c *fiber.Ctx) error {
	intent := Intent{Action: Action(c.Query("action"))}

	var err error
	if intent.Owner, err = signing.ParseAddress(c.Query("owner_address")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "owner_address: "+err.Error())
	}
	if intent.Vault, err = signing.ParseAddress(c.Query("vault_address")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "vault_address: "+err.Error())
	}
	if recipient := c.Query("recipient_address"); recipient != "" {
		if intent.Recipient, err = signing.ParseAddress(recipient); err != nil {
			return fiber.NewError(http.StatusBadRequest, "recipient_address: "+err.Error())
		}
	}
	if amount := strings.TrimSpace(c.Query("amount_wei")); amount != "" {
		wei, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return fiber.NewError(http.StatusBadRequest, "amount_wei must be a base-10 integer")
		}
		intent.AmountWei = wei
	}

	req, err := h.gate.Begin(c.UserContext(), intent)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"url": req.URL, "state": req.State})
}

// Callback finishes the attempt from the provider redirect.
func (h *Handler) Callback(c *fiber.Ctx) error {
	outcome, err := h.gate.Complete(c.UserContext(), c.Query("code"), c.Query("state"), c.Query("error"))
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"status": string(outcome.Status),
	}
	if outcome.Reason != "" {
		resp["reason"] = outcome.Reason
	}
	if outcome.Intent.Action != "" {
		resp["action"] = string(outcome.Intent.Action)
	}
	if outcome.Signature != nil {
		resp["signature"] = "0x" + hex.EncodeToString(outcome.Signature)
	}

	status := http.StatusOK
	switch outcome.Status {
	case StatusRejectedUnverified:
		status = http.StatusUnauthorized
	case StatusRejectedCompromised:
		status = http.StatusForbidden
	}
	return c.Status(status).JSON(resp)
}
