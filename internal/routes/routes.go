package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/immunode/biovault/internal/binding"
	"github.com/immunode/biovault/internal/config"
	"github.com/immunode/biovault/internal/gate"
	"github.com/immunode/biovault/internal/ledger"
	"github.com/immunode/biovault/internal/middleware"
	"github.com/immunode/biovault/internal/notification"
	"github.com/immunode/biovault/internal/signing"
	"github.com/immunode/biovault/internal/vault"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Oracle signing key: configured in production, ephemeral in dev.
	var signer *signing.Signer
	var err error
	if d.Cfg.OraclePrivateKey != "" {
		signer, err = signing.NewSigner(d.Cfg.OraclePrivateKey)
	} else {
		signer, err = signing.GenerateSigner()
		if err == nil {
			d.Logger.Warn("no ORACLE_PRIVATE_KEY configured; using an ephemeral oracle key")
		}
	}
	if err != nil {
		return err
	}

	guardian := signer.Address()
	if d.Cfg.GuardianAddress != "" {
		guardian, err = signing.ParseAddress(d.Cfg.GuardianAddress)
		if err != nil {
			return fmt.Errorf("GUARDIAN_ADDRESS: %w", err)
		}
	}

	// Backends
	var ledgerBackend ledger.Ledger
	var vaultRepo vault.Repository
	var registry binding.Registry
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		vaultRepo = vault.NewPostgresRepository(d.DB)
		registry = binding.NewPostgresRegistry(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		vaultRepo = vault.NewMemoryRepository()
		registry = binding.NewMemoryRegistry()
	}

	var nonces gate.NonceStore
	if d.Cache != nil {
		nonces = gate.NewRedisNonceStore(d.Cache)
	} else {
		nonces = gate.NewMemoryNonceStore()
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	vaultSvc := vault.NewService(vaultRepo, ledgerBackend, notifier, d.Logger, vault.Params{
		Oracle:   signer.Address(),
		Guardian: guardian,
		Timelock: d.Cfg.Timelock,
	})
	provider := gate.NewOAuthProvider(gate.OAuthConfig{
		ClientID:     d.Cfg.HumanodeClientID,
		ClientSecret: d.Cfg.HumanodeClientSecret,
		AuthURL:      d.Cfg.HumanodeAuthURL,
		TokenURL:     d.Cfg.HumanodeTokenURL,
		UserInfoURL:  d.Cfg.HumanodeUserInfoURL,
		RedirectURL:  d.Cfg.OAuthRedirectURL,
	})
	gateSvc := gate.New(provider, registry, signer, nonces, notifier, d.Logger, d.Cfg.AuthStateTTL)

	vaultHandler := vault.NewHandler(vaultSvc)
	gateHandler := gate.NewHandler(gateSvc)

	// Health and oracle identity
	RegisterHealthRoutes(app, d)
	app.Get("/signer", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{"oracle_address": signer.Address().Hex()})
	})

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, gateHandler)
	RegisterVaultRoutes(api, vaultHandler)

	return nil
}
