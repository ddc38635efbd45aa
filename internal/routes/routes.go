package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/luxe-funds/luxe_funds/internal/auth"
	"github.com/luxe-funds/luxe_funds/internal/config"
	"github.com/luxe-funds/luxe_funds/internal/identity"
	"github.com/luxe-funds/luxe_funds/internal/ledger"
	"github.com/luxe-funds/luxe_funds/internal/middleware"
	"github.com/luxe-funds/luxe_funds/internal/notification"
	"github.com/luxe-funds/luxe_funds/internal/otp"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a
// database or redis (development only) it falls back to in-memory stores.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Storage backends.
	var ledgerStore ledger.Store
	var userRepo identity.Repository
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerStore = ledger.NewMemoryStore()
		userRepo = identity.NewMemoryRepository()
	}
	var codeStore otp.Store
	if d.Cache != nil {
		codeStore = otp.NewRedisStore(d.Cache, d.Cfg.OTPTTL)
	} else {
		codeStore = otp.NewMemoryStore(d.Cfg.OTPTTL)
	}

	// Notification backend: SMTP when configured, structured log otherwise.
	var notifier notification.Notifier
	if d.Cfg.SMTPAddr != "" {
		notifier = notification.NewSMTPNotifier(d.Cfg.SMTPAddr, d.Cfg.SMTPFrom, d.Cfg.SMTPUser, d.Cfg.SMTPPassword)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	// Services and handlers.
	identitySvc := identity.NewService(userRepo, codeStore, notifier, d.Logger)
	authSvc := auth.NewService(d.Cfg, userRepo)
	ledgerSvc := ledger.NewService(ledgerStore, notifier, identitySvc, d.Logger)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	profileHandler := identity.NewHandler(identitySvc, userRepo)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	api := app.Group("/api/v1")

	// Public routes.
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes.
	jwtmw := middleware.JWTAuth(d.Cfg, userRepo)
	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterProfileRoutes(protected, profileHandler, authHandler)
	RegisterLedgerRoutes(protected, ledgerHandler)

	return nil
}
