// Package main is the entry point for the donorshield API server.
//
// The main package stays small. Its job is to:
//  1. Read configuration from the environment
//  2. Create the logger and, optionally, seed the database
//  3. Start the server
//
// Everything else lives in internal/.
//
// ENVIRONMENT:
//
//	PORT            listen port (default 8080)
//	DB_PATH         SQLite file (default data/donorshield.db)
//	JWT_SECRET      HMAC key for viewer tokens, at least 16 chars (required)
//	TOKEN_TTL       token lifetime as a Go duration, e.g. "30m" (default 1h)
//	SECURE_COOKIES  mark the token cookie Secure (default false)
//	SEED_FILE       YAML scenario loaded before start-up (optional)
//	LOG_LEVEL       debug, info, warn or error (default info)
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/auth"
	sqliteRepo "github.com/sakif/donorshield/internal/repository/sqlite"
	"github.com/sakif/donorshield/internal/seed"
	"github.com/sakif/donorshield/internal/server"
)

func main() {
	// === 1. LOGGING ===
	var level slog.Level
	if err := level.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// === 2. CONFIGURATION ===
	port, err := strconv.Atoi(envOr("PORT", "8080"))
	if err != nil {
		fatal(logger, "invalid PORT value", err)
	}

	tokenTTL := time.Duration(0)
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if tokenTTL, err = time.ParseDuration(v); err != nil {
			fatal(logger, "invalid TOKEN_TTL value", err)
		}
	}

	secureCookies := false
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		if secureCookies, err = strconv.ParseBool(v); err != nil {
			fatal(logger, "invalid SECURE_COOKIES value", err)
		}
	}

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// Every page depends on knowing who the viewer is, so there is no
	// auth-disabled mode.
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 16 {
		fatal(logger, "JWT_SECRET must be set to at least 16 characters", nil)
	}

	// === 3. DATABASE PATH ===
	dbPath := envOr("DB_PATH", "data/donorshield.db")
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		fatal(logger, "failed to create database directory", err)
	}

	// === 4. OPTIONAL SEED ===
	if seedFile := os.Getenv("SEED_FILE"); seedFile != "" {
		if err := seedDatabase(dbPath, seedFile, logger); err != nil {
			fatal(logger, "seeding failed", err)
		}
	}

	// === 5. CREATE AND START THE SERVER ===
	cfg := server.Config{
		Port:          port,
		DBPath:        dbPath,
		JWTSecret:     jwtSecret,
		TokenTTL:      tokenTTL,
		SecureCookies: secureCookies,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		fatal(logger, "failed to create server", err)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		fatal(logger, "server error", err)
	}
}

// seedDatabase loads a scenario file in one transaction. A failed load
// writes nothing, so a conflict can only come from records already in the
// database: usually a complete load on an earlier start.
func seedDatabase(dbPath, seedFile string, logger *slog.Logger) error {
	sc, err := seed.ParseFile(seedFile)
	if err != nil {
		return err
	}

	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := seed.ApplyInTx(context.Background(), db, auth.NewPasswordService(), sc)
	if errors.Is(err, apperror.ErrConflict) {
		logger.Info("seed skipped, records from the file already exist",
			slog.String("file", seedFile),
			slog.String("conflict", err.Error()),
		)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("database seeded",
		slog.String("file", seedFile),
		slog.Int("users", len(res.Users)),
		slog.Int("collectives", len(res.Collectives)),
		slog.Int("orders", len(res.Orders)),
	)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(logger *slog.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, slog.String("error", err.Error()))
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
