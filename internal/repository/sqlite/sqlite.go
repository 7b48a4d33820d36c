// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go build of SQLite, so no CGo is needed.
// ":memory:" gives every test its own database.
//
// SCHEMA OVERVIEW:
//
//	users          people who log in
//	collectives    STANDARD, HOST, or ANONYMOUS_PROXY (owner_user_id set)
//	memberships    (user, collective, role), optionally through a member collective
//	orders         money sent from one collective to another
//	transactions   ledger rows, one per order here
//
// The proxy's owner lives only in collectives.owner_user_id. The graph
// builder turns it into a shield marker; it is never rendered directly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// The driver registers itself with database/sql as "sqlite" in init().
	// The named import also gives us *sqlite.Error for constraint checks.
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/donorshield/internal/repository"
)

// querier is the part of *sql.DB and *sql.Tx the repository methods use.
// Every query goes through DB.q, so the same methods run inside InTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	q    querier
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/donorshield.db"  → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection. A second pooled
	// connection would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets page reads proceed while the seed tool writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, q: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newWithConn wraps an already-open pool without migrating it. Tests use it
// to put a sqlmock connection behind the repository methods.
func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn, q: conn}
}

// InTx runs fn against a store whose writes share one SQL transaction.
// The transaction commits when fn returns nil and rolls back otherwise, so
// a failed batch (a seed file, say) leaves nothing behind.
//
// The store handed to fn is only valid inside fn. Do not Close it.
func (db *DB) InTx(ctx context.Context, fn func(repository.Store) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(&DB{conn: db.conn, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates every table. CREATE ... IF NOT EXISTS keeps it safe to
// run on each start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				first_name    TEXT NOT NULL DEFAULT '',
				last_name     TEXT NOT NULL DEFAULT '',
				slug          TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`},
		{"collectives", `
			CREATE TABLE IF NOT EXISTS collectives (
				id                 TEXT PRIMARY KEY,
				slug               TEXT NOT NULL UNIQUE,
				name               TEXT NOT NULL,
				currency           TEXT NOT NULL DEFAULT 'USD',
				type               TEXT NOT NULL DEFAULT 'STANDARD',
				owner_user_id      TEXT REFERENCES users(id),
				host_collective_id TEXT REFERENCES collectives(id),
				created_by_user_id TEXT NOT NULL,
				created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				CHECK (type <> 'ANONYMOUS_PROXY' OR owner_user_id IS NOT NULL)
			);
		`},
		{"memberships", `
			CREATE TABLE IF NOT EXISTS memberships (
				id                   TEXT PRIMARY KEY,
				user_id              TEXT NOT NULL,
				collective_id        TEXT NOT NULL REFERENCES collectives(id),
				role                 TEXT NOT NULL,
				member_collective_id TEXT REFERENCES collectives(id),
				created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_memberships_user_collective ON memberships(user_id, collective_id);
			CREATE INDEX IF NOT EXISTS idx_memberships_collective ON memberships(collective_id, created_at);
		`},
		{"orders", `
			CREATE TABLE IF NOT EXISTS orders (
				id                 TEXT PRIMARY KEY,
				from_collective_id TEXT NOT NULL REFERENCES collectives(id),
				to_collective_id   TEXT NOT NULL REFERENCES collectives(id),
				amount             INTEGER NOT NULL,
				currency           TEXT NOT NULL,
				description        TEXT NOT NULL DEFAULT '',
				created_by_user_id TEXT NOT NULL,
				created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_orders_to ON orders(to_collective_id, created_at);
		`},
		{"transactions", `
			CREATE TABLE IF NOT EXISTS transactions (
				id                 TEXT PRIMARY KEY,
				order_id           TEXT NOT NULL REFERENCES orders(id),
				collective_id      TEXT NOT NULL REFERENCES collectives(id),
				amount             INTEGER NOT NULL,
				currency           TEXT NOT NULL,
				description        TEXT NOT NULL DEFAULT '',
				created_by_user_id TEXT NOT NULL,
				created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_collective ON transactions(collective_id, created_at);
		`},
	}

	for _, s := range steps {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", s.name, err)
		}
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullString stores "" as NULL for optional foreign keys.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
