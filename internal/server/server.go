// Package server is the composition root: it wires storage, services,
// handlers and middleware into a router, and runs the HTTP server.
//
//	sqlite.DB → graph.Builder + policy.Resolver → redact.Applier
//	          → service.CollectiveService → handler.CollectiveHandler
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/donorshield/internal/auth"
	"github.com/sakif/donorshield/internal/graph"
	"github.com/sakif/donorshield/internal/handler"
	"github.com/sakif/donorshield/internal/middleware"
	"github.com/sakif/donorshield/internal/policy"
	"github.com/sakif/donorshield/internal/redact"
	"github.com/sakif/donorshield/internal/repository"
	sqliteRepo "github.com/sakif/donorshield/internal/repository/sqlite"
	"github.com/sakif/donorshield/internal/service"
)

// Config holds server configuration, read from the environment in main.
type Config struct {
	Port          int
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	SecureCookies bool
	// PasswordCost overrides the bcrypt cost; 0 keeps the default.
	PasswordCost int
}

// Server owns the router and the database it was built on.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     io.Closer
}

// New opens the SQLite database at cfg.DBPath and wires every route to it.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := newServer(cfg, db, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires the routes over any store. Tests pass testutil.Store.
func newServer(cfg Config, store repository.Store, closer io.Closer, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     closer,
	}
	if err := s.setupRoutes(store); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET  /healthz                  → liveness
//	POST /auth/login               → issue token + cookie
//	POST /auth/logout              → clear cookie
//	GET  /api/me                   → current viewer (auth required)
//	GET  /api/collectives/{slug}   → collective page, redacted for the viewer
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Recoverer → OptionalAuth → Logger. OptionalAuth runs
// before Logger so the log line can say whether the viewer was
// authenticated.
func (s *Server) setupRoutes(store repository.Store) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	if s.config.PasswordCost > 0 {
		passwords = auth.NewPasswordServiceWithCost(s.config.PasswordCost)
	}

	resolver := policy.NewResolver(store, store, s.logger)
	collectives := service.NewCollectiveService(
		graph.NewBuilder(store, s.logger),
		redact.NewApplier(resolver, s.logger),
		s.logger,
	)
	authService := service.NewAuthService(store, tokens, passwords, s.logger)

	collectiveHandler := handler.NewCollectiveHandler(collectives, s.logger)
	authHandler := handler.NewAuthHandler(authService, tokens, s.config.SecureCookies, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.OptionalAuth(tokens))
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.PrivateNoStore)
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		r.Get("/collectives/{slug}", collectiveHandler.HandleGet)
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	if s.db != nil {
		defer s.db.Close()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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
