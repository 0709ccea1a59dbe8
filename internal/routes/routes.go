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

	"github.com/mytt-app/selfcare/internal/auth"
	"github.com/mytt-app/selfcare/internal/config"
	"github.com/mytt-app/selfcare/internal/identity"
	"github.com/mytt-app/selfcare/internal/middleware"
	"github.com/mytt-app/selfcare/internal/notification"
	"github.com/mytt-app/selfcare/internal/profile"
	"github.com/mytt-app/selfcare/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

func (d Deps) requireBackends() error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	return nil
}

// Setup wires middlewares, stores, the identity directory, and all routes. It
// returns the session registry so main can tear it down at shutdown.
func Setup(app *fiber.App, d Deps) (*session.Registry, error) {
	if err := d.requireBackends(); err != nil {
		return nil, err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores fall back to memory in development when no backend is configured.
	var profiles profile.Store
	if d.DB != nil {
		profiles = profile.NewPostgresStore(d.DB)
	} else {
		profiles = profile.NewMemoryStore()
	}
	var accounts identity.Accounts
	if d.DB != nil {
		accounts = identity.NewPostgresAccounts(d.DB)
	} else {
		accounts = identity.NewMemoryAccounts()
	}
	var challenges identity.ChallengeStore
	if d.Cache != nil {
		challenges = identity.NewRedisChallenges(d.Cache)
	} else {
		challenges = identity.NewMemoryChallenges()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	directory := identity.NewDirectory(accounts, challenges, notifier, d.Cfg.OTPLength, d.Cfg.OTPTTL, d.Logger)

	challengeToken := d.Cfg.ChallengeToken
	if challengeToken == "" && d.Cfg.IsDev() {
		challengeToken = "dev-challenge-token"
		d.Logger.Warn("CHALLENGE_TOKEN not set, using development token")
	}
	tokenSrc := identity.StaticTokenSource(challengeToken)

	sessions := session.NewRegistry(func() *session.Controller {
		provider := directory.NewProvider()
		engine := auth.NewEngine(provider, profiles, tokenSrc, d.Cfg.CountryPrefix, d.Logger)
		return session.NewController(provider, profiles, engine, d.Logger)
	})

	tokens := auth.NewTokenIssuer(d.Cfg.JWTSecret, d.Cfg.TokenTTL)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDLocal).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.AuthRateLimit(d.Cache, d.Cfg.LoginPerMin)
	RegisterAuthRoutes(api, d.Cfg, sessions, tokens, rateLimiter)
	RegisterSessionRoutes(api, sessions, profiles, tokens)

	return sessions, nil
}
