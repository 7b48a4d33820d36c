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

const membershipColumns = `id, user_id, collective_id, role, member_collective_id, created_at`

// roleRank mirrors repository.MemberRank in SQL so the best row can be
// picked with LIMIT 1.
const roleRank = `CASE role
	WHEN 'ADMIN'      THEN 5
	WHEN 'HOST_ADMIN' THEN 4
	WHEN 'HOST'       THEN 3
	WHEN 'MEMBER'     THEN 2
	WHEN 'BACKER'     THEN 1
	ELSE 0 END`

func (db *DB) CreateMembership(ctx context.Context, m *model.Membership) error {
	if !m.Role.Valid() {
		return apperror.ValidationFailed("role", fmt.Sprintf("unknown member role %q", m.Role))
	}
	m.ID = xid.New().String()
	m.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO memberships (`+membershipColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.UserID,
		m.CollectiveID,
		string(m.Role),
		nullString(m.MemberCollectiveID),
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting membership %s/%s: %w", m.UserID, m.CollectiveID, err)
	}
	return nil
}

// GetMembership returns the most privileged membership, or (nil, nil).
func (db *DB) GetMembership(ctx context.Context, userID, collectiveID string) (*model.Membership, error) {
	m, err := scanMembership(db.q.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE user_id = ? AND collective_id = ?
		 ORDER BY `+roleRank+` DESC, created_at ASC
		 LIMIT 1`,
		userID, collectiveID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting membership %s/%s: %w", userID, collectiveID, err)
	}
	return m, nil
}

func (db *DB) ListMembers(ctx context.Context, collectiveID string) ([]model.Membership, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE collective_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		collectiveID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members of %s: %w", collectiveID, err)
	}
	defer rows.Close()

	members := []model.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memberships: %w", err)
	}
	return members, nil
}

func scanMembership(row rowScanner) (*model.Membership, error) {
	var (
		m      model.Membership
		role   string
		member sql.NullString
	)
	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.CollectiveID,
		&role,
		&member,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.Role = model.MemberRole(role)
	m.MemberCollectiveID = member.String
	return &m, nil
}
