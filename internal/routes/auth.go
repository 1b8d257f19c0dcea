package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/immunode/biovault/internal/gate"
)

// RegisterAuthRoutes wires the biometric identity round trip.
func RegisterAuthRoutes(router fiber.Router, h *gate.Handler) {
	router.Get("/auth/humanode", h.Begin)
	router.Get("/auth/callback", h.Callback)
}
