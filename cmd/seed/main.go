// Command seed loads a YAML scenario into a donorshield database.
//
//	go run ./cmd/seed -db data/donorshield.db -file testdata/scenario.yaml
//
// The file is loaded in one transaction. Loading it twice fails on the
// first duplicate email or slug and writes nothing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/donorshield/internal/auth"
	sqliteRepo "github.com/sakif/donorshield/internal/repository/sqlite"
	"github.com/sakif/donorshield/internal/seed"
)

func main() {
	dbPath := flag.String("db", "data/donorshield.db", "SQLite database file")
	file := flag.String("file", "testdata/scenario.yaml", "YAML scenario to load")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost for seeded passwords")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*dbPath, *file, *cost, logger); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(dbPath, file string, cost int, logger *slog.Logger) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	sc, err := seed.ParseFile(file)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := seed.ApplyInTx(context.Background(), db, auth.NewPasswordServiceWithCost(cost), sc)
	if err != nil {
		return err
	}

	for key, c := range res.Collectives {
		logger.Info("collective",
			slog.String("key", key),
			slog.String("id", c.ID),
			slog.String("slug", c.Slug),
			slog.String("type", string(c.Type())),
		)
	}
	logger.Info("seeded",
		slog.String("db", dbPath),
		slog.Int("users", len(res.Users)),
		slog.Int("collectives", len(res.Collectives)),
		slog.Int("orders", len(res.Orders)),
	)
	return nil
}
