// Package repository declares the storage interfaces the rest of the
// application depends on. Implementations live in sub-packages (sqlite) and
// in tests (testutil.Store).
//
// NOT FOUND VS ABSENT:
// Single-entity getters return apperror.ErrNotFound when the row does not
// exist. GetMembership is different: "no membership" is a normal answer
// (it means no privilege), so it returns (nil, nil). Any other error is an
// infrastructure failure and must be propagated by callers.
package repository

import (
	"context"

	"github.com/sakif/donorshield/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type CollectiveRepository interface {
	CreateCollective(ctx context.Context, c *model.Collective) error
	GetCollectiveByID(ctx context.Context, id string) (*model.Collective, error)
	GetCollectiveBySlug(ctx context.Context, slug string) (*model.Collective, error)
}

// MembershipReader is the only lookup the policy resolver needs.
type MembershipReader interface {
	// GetMembership returns the most privileged membership userID holds on
	// collectiveID, or (nil, nil) when there is none.
	GetMembership(ctx context.Context, userID, collectiveID string) (*model.Membership, error)
}

type MembershipRepository interface {
	MembershipReader
	CreateMembership(ctx context.Context, m *model.Membership) error
	// ListMembers returns a collective's memberships in creation order.
	ListMembers(ctx context.Context, collectiveID string) ([]model.Membership, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	// GetOrderByID returns apperror.ErrNotFound when the order does not exist.
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	// ListOrdersTo returns orders received by collectiveID, oldest first.
	ListOrdersTo(ctx context.Context, collectiveID string) ([]model.Order, error)
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	// ListTransactions returns the ledger rows of collectiveID, oldest first.
	ListTransactions(ctx context.Context, collectiveID string) ([]model.Transaction, error)
}

// Store groups every repository. The sqlite DB and the in-memory test store
// both satisfy it.
type Store interface {
	UserRepository
	CollectiveRepository
	MembershipRepository
	OrderRepository
	TransactionRepository
}

// Transactor runs a batch of writes atomically. The sqlite DB implements
// it; the seed loader uses it so a failed file leaves nothing behind.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// MemberRank orders membership roles by privilege for GetMembership.
// Higher wins.
func MemberRank(r model.MemberRole) int {
	switch r {
	case model.MemberRoleAdmin:
		return 5
	case model.MemberRoleHostAdmin:
		return 4
	case model.MemberRoleHost:
		return 3
	case model.MemberRoleMember:
		return 2
	case model.MemberRoleBacker:
		return 1
	default:
		return 0
	}
}
