// Package server is the composition root: it opens the database, wires
// repositories into services into handlers, and owns the route table and
// the server lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/calc-tracker/internal/auth"
	"github.com/sakif/calc-tracker/internal/handler"
	"github.com/sakif/calc-tracker/internal/middleware"
	sqliteRepo "github.com/sakif/calc-tracker/internal/repository/sqlite"
	"github.com/sakif/calc-tracker/internal/service"
)

// revokedTokenPurgeInterval controls how often expired revocation entries
// are swept from the database. Revoked tokens past their own expiry can
// never validate again, so keeping them is pure bloat.
const revokedTokenPurgeInterval = time.Hour

// Config holds everything the server needs from the environment.
type Config struct {
	Port            int
	DBPath          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// GitHub OAuth is optional. When ClientID is empty the /auth/github
	// routes are not registered and only password login is available.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown, after in-flight requests drain.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain:
// sqlite.DB → services → handlers → routes. Each layer only sees the
// interfaces it needs; handlers never touch the database directly.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the route table.
//
//	POST   /api/auth/register      → create account, issue tokens
//	POST   /api/auth/login         → password login
//	POST   /api/auth/refresh       → new access token from a refresh token
//	POST   /api/auth/logout        → revoke the presented token
//	GET    /auth/github/login      → redirect to GitHub OAuth
//	GET    /auth/github/callback   → OAuth return leg
//	GET    /api/me                 → current user profile        (auth)
//	POST   /api/calculations       → create calculation          (auth)
//	GET    /api/calculations       → list own calculations       (auth)
//	GET    /api/calculations/{id}  → fetch one                   (auth)
//	PUT    /api/calculations/{id}  → edit operands, recompute    (auth)
//	DELETE /api/calculations/{id}  → delete                      (auth)
//	GET    /api/stats              → aggregate summary           (auth)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.AccessTokenTTL, s.config.RefreshTokenTTL, s.db)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	authService := service.NewAuthService(s.db, s.db, tokens, passwords, s.logger)
	calcService := service.NewCalculationService(s.db, s.logger)
	statsService := service.NewStatsService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, int(tokens.AccessTTL().Seconds()), s.logger)
	calcHandler := handler.NewCalculationHandler(calcService, s.logger)
	statsHandler := handler.NewStatsHandler(statsService, s.logger)

	// Public auth endpoints.
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
	})

	if github != nil {
		s.router.Route("/auth/github", func(r chi.Router) {
			r.Get("/login", authHandler.HandleGitHubLogin)
			r.Get("/callback", authHandler.HandleGitHubCallback)
		})
	}

	// Everything else requires a valid access token.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/stats", statsHandler.HandleStats)

		r.Route("/api/calculations", func(r chi.Router) {
			r.Post("/", calcHandler.HandleCreate)
			r.Get("/", calcHandler.HandleList)
			r.Get("/{id}", calcHandler.HandleGetByID)
			r.Put("/{id}", calcHandler.HandleUpdate)
			r.Delete("/{id}", calcHandler.HandleDelete)
		})
	})

	return nil
}

// purgeRevokedTokens sweeps expired revocation rows until ctx is cancelled.
func (s *Server) purgeRevokedTokens(ctx context.Context) {
	ticker := time.NewTicker(revokedTokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.db.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Error("purging revoked tokens", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Info("purged revoked tokens", slog.Int64("count", n))
			}
		}
	}
}

// Start runs the server until it fails or a shutdown signal arrives, then
// drains in-flight requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go s.purgeRevokedTokens(purgeCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
