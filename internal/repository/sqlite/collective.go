package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/model"
)

const collectiveColumns = `id, slug, name, currency, type, owner_user_id, host_collective_id, created_by_user_id, created_at`

// CreateCollective inserts c. An empty slug defaults to the generated ID.
// A nil Variant is stored as STANDARD.
func (db *DB) CreateCollective(ctx context.Context, c *model.Collective) error {
	c.ID = xid.New().String()
	c.CreatedAt = time.Now().UTC()
	if c.Slug == "" {
		c.Slug = c.ID
	}

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO collectives (`+collectiveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Slug,
		c.Name,
		c.Currency,
		string(c.Type()),
		nullString(c.OwnerUserID()),
		nullString(c.HostCollectiveID),
		c.CreatedByUserID,
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("collective", c.Slug)
		}
		return fmt.Errorf("sqlite: inserting collective %s: %w", c.Slug, err)
	}
	return nil
}

func (db *DB) GetCollectiveByID(ctx context.Context, id string) (*model.Collective, error) {
	c, err := scanCollective(db.q.QueryRowContext(ctx,
		`SELECT `+collectiveColumns+` FROM collectives WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("collective", id)
		}
		return nil, fmt.Errorf("sqlite: getting collective %s: %w", id, err)
	}
	return c, nil
}

func (db *DB) GetCollectiveBySlug(ctx context.Context, slug string) (*model.Collective, error) {
	c, err := scanCollective(db.q.QueryRowContext(ctx,
		`SELECT `+collectiveColumns+` FROM collectives WHERE slug = ?`, slug,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("collective", slug)
		}
		return nil, fmt.Errorf("sqlite: getting collective %s: %w", slug, err)
	}
	return c, nil
}

// scanCollective rebuilds the Variant from (type, owner_user_id). A row
// that cannot be rebuilt is returned as an error, never as a STANDARD
// collective: treating a broken proxy as ordinary would expose its owner.
func scanCollective(row rowScanner) (*model.Collective, error) {
	var (
		c     model.Collective
		typ   string
		owner sql.NullString
		host  sql.NullString
	)
	if err := row.Scan(
		&c.ID,
		&c.Slug,
		&c.Name,
		&c.Currency,
		&typ,
		&owner,
		&host,
		&c.CreatedByUserID,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}

	v, err := model.ParseVariant(model.CollectiveType(typ), owner.String)
	if err != nil {
		return nil, fmt.Errorf("collective %s: %w", c.ID, err)
	}
	c.Variant = v
	c.HostCollectiveID = host.String
	return &c, nil
}
