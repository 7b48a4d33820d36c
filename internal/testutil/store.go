// Package testutil provides an in-memory repository and immutable scenario
// builders for tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/repository"
)

// Operation names accepted by FailOn and Calls.
const (
	OpGetUserByID         = "GetUserByID"
	OpGetUserByEmail      = "GetUserByEmail"
	OpGetCollectiveByID   = "GetCollectiveByID"
	OpGetCollectiveBySlug = "GetCollectiveBySlug"
	OpGetMembership       = "GetMembership"
	OpListMembers         = "ListMembers"
	OpListOrdersTo        = "ListOrdersTo"
	OpGetOrderByID        = "GetOrderByID"
	OpListTransactions    = "ListTransactions"
)

// Store is an in-memory repository.Store.
//
// FAILURE INJECTION:
// FailOn(op, err) makes every later call to op return err, which is how
// tests reach the LookupFailure paths without a database. Calls(op) counts
// invocations so tests can assert that a lookup happened once, or not at
// all. Create* methods are not counted and never fail: they only build
// fixtures.
//
// IDs are deterministic ("user-1", "collective-2", ...) so failures are easy
// to read. Every getter returns a copy, so tests cannot reach into the
// store's state through a returned pointer.
type Store struct {
	mu           sync.Mutex
	seq          int
	users        map[string]model.User
	collectives  map[string]model.Collective
	memberships  []model.Membership
	orders       []model.Order
	transactions []model.Transaction

	failures map[string]error
	calls    map[string]int
	clock    time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]model.User),
		collectives: make(map[string]model.Collective),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
		clock:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailOn makes every later call to op return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls returns how many times op has been invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// DeleteUser removes a user, simulating a deleted account.
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// enter records a call and returns the injected failure, if any.
// Callers hold s.mu.
func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.failures[op]
}

// stamp returns the next ID and a strictly increasing timestamp.
// Callers hold s.mu.
func (s *Store) stamp(prefix string) (string, time.Time) {
	s.seq++
	s.clock = s.clock.Add(time.Second)
	return fmt.Sprintf("%s-%d", prefix, s.seq), s.clock
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.ID, u.CreatedAt = s.stamp("user")
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetUserByID); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetUserByEmail); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (s *Store) CreateCollective(_ context.Context, c *model.Collective) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID, c.CreatedAt = s.stamp("collective")
	if c.Slug == "" {
		c.Slug = c.ID
	}
	for _, existing := range s.collectives {
		if existing.Slug == c.Slug {
			return apperror.Conflict("collective", c.Slug)
		}
	}
	s.collectives[c.ID] = *c
	return nil
}

func (s *Store) GetCollectiveByID(_ context.Context, id string) (*model.Collective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetCollectiveByID); err != nil {
		return nil, err
	}
	c, ok := s.collectives[id]
	if !ok {
		return nil, apperror.NotFound("collective", id)
	}
	return &c, nil
}

func (s *Store) GetCollectiveBySlug(_ context.Context, slug string) (*model.Collective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetCollectiveBySlug); err != nil {
		return nil, err
	}
	for _, c := range s.collectives {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, apperror.NotFound("collective", slug)
}

func (s *Store) CreateMembership(_ context.Context, m *model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID, m.CreatedAt = s.stamp("membership")
	s.memberships = append(s.memberships, *m)
	return nil
}

func (s *Store) GetMembership(ctx context.Context, userID, collectiveID string) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetMembership); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var best *model.Membership
	for i := range s.memberships {
		m := s.memberships[i]
		if m.UserID != userID || m.CollectiveID != collectiveID {
			continue
		}
		if best == nil || repository.MemberRank(m.Role) > repository.MemberRank(best.Role) {
			best = &m
		}
	}
	return best, nil
}

func (s *Store) ListMembers(_ context.Context, collectiveID string) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListMembers); err != nil {
		return nil, err
	}
	var out []model.Membership
	for _, m := range s.memberships {
		if m.CollectiveID == collectiveID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID, o.CreatedAt = s.stamp("order")
	s.orders = append(s.orders, *o)
	return nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetOrderByID); err != nil {
		return nil, err
	}
	for _, o := range s.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, apperror.NotFound("order", id)
}

func (s *Store) ListOrdersTo(_ context.Context, collectiveID string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListOrdersTo); err != nil {
		return nil, err
	}
	var out []model.Order
	for _, o := range s.orders {
		if o.ToCollectiveID == collectiveID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID, tx.CreatedAt = s.stamp("transaction")
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, collectiveID string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListTransactions); err != nil {
		return nil, err
	}
	var out []model.Transaction
	for _, tx := range s.transactions {
		if tx.CollectiveID == collectiveID {
			out = append(out, tx)
		}
	}
	return out, nil
}
