package vault

import (
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/immunode/biovault/internal/ledger"
	"github.com/immunode/biovault/internal/signing"
)

// Handler exposes vault endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a vault HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	OwnerAddress string `json:"owner_address"`
}

type vaultResponse struct {
	VaultAddress string           `json:"vault_address"`
	OwnerAddress string           `json:"owner_address"`
	State        string           `json:"state"`
	Frozen       bool             `json:"frozen"`
	Pending      *pendingResponse `json:"pending_withdrawal,omitempty"`
	BalanceWei   string           `json:"balance_wei,omitempty"`
}

type pendingResponse struct {
	AmountWei  string    `json:"amount_wei"`
	UnlockTime time.Time `json:"unlock_time"`
}

func toVaultResponse(v Vault) vaultResponse {
	resp := vaultResponse{
		VaultAddress: v.Address.Hex(),
		OwnerAddress: v.Owner.Hex(),
		State:        string(v.State()),
		Frozen:       v.Frozen,
	}
	if v.Pending != nil {
		resp.Pending = &pendingResponse{
			AmountWei:  v.Pending.AmountWei.String(),
			UnlockTime: v.Pending.UnlockTime,
		}
	}
	return resp
}

// Open provisions a vault for the owner address.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	owner, err := signing.ParseAddress(req.OwnerAddress)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.Open(c.UserContext(), owner)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toVaultResponse(v))
}

type depositRequest struct {
	AmountWei  string `json:"amount_wei"`
	ClientTxID string `json:"client_tx_id"`
}

// Deposit credits the vault with funds.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	vaultAddr, err := signing.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseWeiAmount(req.AmountWei)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Deposit(c.UserContext(), vaultAddr, amount, req.ClientTxID)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance_wei": balance.String()})
}

type withdrawalRequest struct {
	CallerAddress string `json:"caller_address"`
	AmountWei     string `json:"amount_wei"`
}

// RequestWithdrawal records a timelocked withdrawal request.
func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	vaultAddr, err := signing.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, err := signing.ParseAddress(req.CallerAddress)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseWeiAmount(req.AmountWei)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.RequestWithdrawal(c.UserContext(), caller, vaultAddr, amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(toVaultResponse(v))
}

type finalizeRequest struct {
	CallerAddress string `json:"caller_address"`
}

// FinalizeWithdrawal pays out a matured withdrawal request.
func (h *Handler) FinalizeWithdrawal(c *fiber.Ctx) error {
	vaultAddr, err := signing.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req finalizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, err := signing.ParseAddress(req.CallerAddress)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.FinalizeWithdrawal(c.UserContext(), caller, vaultAddr)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance_wei":    res.FromBalance.String(),
	})
}

// Freeze triggers the guardian circuit breaker.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	vaultAddr, err := signing.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req finalizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, err := signing.ParseAddress(req.CallerAddress)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.PanicFreeze(c.UserContext(), caller, vaultAddr)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toVaultResponse(v))
}

type rescueRequest struct {
	RecipientAddress string `json:"recipient_address"`
	AmountWei        string `json:"amount_wei"`
	Signature        string `json:"signature"`
}

// Rescue submits an oracle-signed rescue of frozen funds.
func (h *Handler) Rescue(c *fiber.Ctx) error {
	vaultAddr, err := signing.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var req rescueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	recipient, err := signing.ParseAddress(req.RecipientAddress)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := parseWeiAmount(req.AmountWei)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "signature must be hex encoded")
	}
	res, err := h.service.RescueFunds(c.UserContext(), vaultAddr, recipient, amount, sig)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id":        res.TransactionID,
		"vault_balance_wei":     res.FromBalance.String(),
		"recipient_balance_wei": res.ToBalance.String(),
	})
}

// Status returns vault state, pending request, and balance.
func (h *Handler) Status(c *fiber.Ctx) error {
	vaultAddr, err := signing.ParseAddress(c.Params("address"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.Get(c.UserContext(), vaultAddr)
	if err != nil {
		return mapError(err)
	}
	balance, err := h.service.Balance(c.UserContext(), vaultAddr)
	if err != nil {
		return mapError(err)
	}
	resp := toVaultResponse(v)
	resp.BalanceWei = balance.String()
	return c.Status(http.StatusOK).JSON(resp)
}

func parseWeiAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, errors.New("amount_wei must be a base-10 integer")
	}
	return amount, nil
}

func mapError(err error) error {
	var ge *GuardError
	switch {
	case errors.As(err, &ge):
		return fiber.NewError(http.StatusConflict, ge.Reason)
	case errors.Is(err, ErrSignatureInvalid):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
