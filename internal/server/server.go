package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mytt-app/selfcare/internal/config"
	"github.com/mytt-app/selfcare/internal/routes"
	"github.com/mytt-app/selfcare/internal/session"
)

// Server wraps the Fiber application, shared dependencies, and the session
// registry that owns all live device sessions.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	sessions *session.Registry
}

// New instantiates the HTTP server and delegates wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	sessions, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, sessions: sessions}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops the HTTP server and tears down every device session,
// releasing their provider subscriptions.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.sessions.Close()
	return err
}
