package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/immunode/biovault/internal/vault"
)

// RegisterVaultRoutes wires the vault state machine endpoints.
func RegisterVaultRoutes(router fiber.Router, h *vault.Handler) {
	router.Post("/vaults", h.Open)
	router.Get("/vaults/:address", h.Status)
	router.Post("/vaults/:address/deposit", h.Deposit)
	router.Post("/vaults/:address/withdrawals", h.RequestWithdrawal)
	router.Post("/vaults/:address/withdrawals/finalize", h.FinalizeWithdrawal)
	router.Post("/vaults/:address/freeze", h.Freeze)
	router.Post("/vaults/:address/rescue", h.Rescue)
}
