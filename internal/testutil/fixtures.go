package testutil

import (
	"context"
	"testing"

	"github.com/sakif/donorshield/internal/model"
)

// Scenario is the anonymous donation example, fully built.
//
// Owner (U) owns the anonymous proxy Proxy (A). A donated 2000 USD to
// Collective (C), whose members are Admin (ADMIN) and Backer (BACKER).
// Host (H) hosts C and is administered by HostAdmin.
//
// C's members are listed in this order: Admin, Backer, the proxy, the host.
//
// Each call to NewScenario builds a fresh Store, so tests never share state.
type Scenario struct {
	Store *Store

	Owner     model.User
	Admin     model.User
	Backer    model.User
	HostAdmin model.User
	Stranger  model.User // authenticated, no relation to anything

	Host       model.Collective
	Collective model.Collective
	Proxy      model.Collective

	Order       model.Order
	Transaction model.Transaction
}

// NewScenario builds the example scenario.
func NewScenario(t testing.TB) *Scenario {
	t.Helper()

	ctx := context.Background()
	st := NewStore()
	s := &Scenario{Store: st}

	s.Admin = createUser(t, st, "admin", "user", "admin")
	s.Backer = createUser(t, st, "backer", "user", "backer")
	s.Owner = createUser(t, st, "u", "ser", "user")
	s.HostAdmin = createUser(t, st, "host", "admin", "host-admin")
	s.Stranger = createUser(t, st, "stranger", "danger", "stranger")

	s.Host = createCollective(t, st, &model.Collective{
		Slug:            "test-host",
		Name:            "Test Host",
		Currency:        "USD",
		CreatedByUserID: s.HostAdmin.ID,
		Variant:         model.Host{},
	})
	createMembership(t, st, &model.Membership{UserID: s.HostAdmin.ID, CollectiveID: s.Host.ID, Role: model.MemberRoleAdmin})

	s.Collective = createCollective(t, st, &model.Collective{
		Slug:             "test",
		Name:             "Test Collective",
		Currency:         "USD",
		HostCollectiveID: s.Host.ID,
		CreatedByUserID:  s.Admin.ID,
		Variant:          model.Standard{},
	})

	s.Proxy = createCollective(t, st, model.NewAnonymousProxy(&s.Owner, "anonymous-u", "USD"))
	createMembership(t, st, &model.Membership{UserID: s.Owner.ID, CollectiveID: s.Proxy.ID, Role: model.MemberRoleAdmin})

	createMembership(t, st, &model.Membership{UserID: s.Admin.ID, CollectiveID: s.Collective.ID, Role: model.MemberRoleAdmin})
	createMembership(t, st, &model.Membership{UserID: s.Backer.ID, CollectiveID: s.Collective.ID, Role: model.MemberRoleBacker})
	createMembership(t, st, &model.Membership{
		UserID:             s.Owner.ID,
		CollectiveID:       s.Collective.ID,
		Role:               model.MemberRoleBacker,
		MemberCollectiveID: s.Proxy.ID,
	})
	createMembership(t, st, &model.Membership{
		UserID:             s.HostAdmin.ID,
		CollectiveID:       s.Collective.ID,
		Role:               model.MemberRoleHost,
		MemberCollectiveID: s.Host.ID,
	})

	order := &model.Order{
		FromCollectiveID: s.Proxy.ID,
		ToCollectiveID:   s.Collective.ID,
		Amount:           2000,
		Currency:         "USD",
		Description:      "Donation to Test Collective",
		CreatedByUserID:  s.Owner.ID,
	}
	if err := st.CreateOrder(ctx, order); err != nil {
		t.Fatalf("creating order: %v", err)
	}
	s.Order = *order

	tx := model.NewTransactionForOrder(order)
	if err := st.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("creating transaction: %v", err)
	}
	s.Transaction = *tx

	return s
}

// AddPublicOrder records a non-anonymous donation from a new standard
// collective created by user. Returns the order.
func (s *Scenario) AddPublicOrder(t testing.TB, user model.User, amount int64) model.Order {
	t.Helper()
	profile := createCollective(t, s.Store, &model.Collective{
		Name:            user.FullName(),
		Currency:        "USD",
		CreatedByUserID: user.ID,
		Variant:         model.Standard{},
	})
	o := &model.Order{
		FromCollectiveID: profile.ID,
		ToCollectiveID:   s.Collective.ID,
		Amount:           amount,
		Currency:         "USD",
		Description:      "Public donation",
		CreatedByUserID:  user.ID,
	}
	if err := s.Store.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("creating order: %v", err)
	}
	if err := s.Store.CreateTransaction(context.Background(), model.NewTransactionForOrder(o)); err != nil {
		t.Fatalf("creating transaction: %v", err)
	}
	return *o
}

func createUser(t testing.TB, st *Store, first, last, slug string) model.User {
	t.Helper()
	u := &model.User{
		Email:     slug + "@example.com",
		FirstName: first,
		LastName:  last,
		Slug:      slug,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", slug, err)
	}
	return *u
}

func createCollective(t testing.TB, st *Store, c *model.Collective) model.Collective {
	t.Helper()
	if err := st.CreateCollective(context.Background(), c); err != nil {
		t.Fatalf("creating collective %s: %v", c.Slug, err)
	}
	return *c
}

func createMembership(t testing.TB, st *Store, m *model.Membership) {
	t.Helper()
	if err := st.CreateMembership(context.Background(), m); err != nil {
		t.Fatalf("creating membership: %v", err)
	}
}
