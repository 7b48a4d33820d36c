package policy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/testutil"
)

func TestMembershipCache_Memoizes(t *testing.T) {
	s := testutil.NewScenario(t)
	c := NewMembershipCache(s.Store)

	for i := 0; i < 3; i++ {
		m, err := c.GetMembership(context.Background(), s.Admin.ID, s.Collective.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, model.MemberRoleAdmin, m.Role)
	}
	assert.Equal(t, 1, s.Store.Calls(testutil.OpGetMembership))
}

func TestMembershipCache_MemoizesAbsence(t *testing.T) {
	s := testutil.NewScenario(t)
	c := NewMembershipCache(s.Store)

	for i := 0; i < 3; i++ {
		m, err := c.GetMembership(context.Background(), s.Stranger.ID, s.Collective.ID)
		require.NoError(t, err)
		assert.Nil(t, m)
	}
	assert.Equal(t, 1, s.Store.Calls(testutil.OpGetMembership))
}

func TestMembershipCache_ConcurrentLookups(t *testing.T) {
	s := testutil.NewScenario(t)
	c := NewMembershipCache(s.Store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.GetMembership(context.Background(), s.Admin.ID, s.Collective.ID)
			assert.NoError(t, err)
			assert.NotNil(t, m)
		}()
	}
	wg.Wait()

	// singleflight may let a few goroutines in before the memo fills,
	// but never one per caller.
	assert.Less(t, s.Store.Calls(testutil.OpGetMembership), 20)
}

func TestMembershipCache_DoesNotRememberErrors(t *testing.T) {
	s := testutil.NewScenario(t)
	c := NewMembershipCache(s.Store)
	s.Store.FailOn(testutil.OpGetMembership, errors.New("timeout"))

	_, err := c.GetMembership(context.Background(), s.Admin.ID, s.Collective.ID)
	require.Error(t, err)

	s.Store.FailOn(testutil.OpGetMembership, nil)
	m, err := c.GetMembership(context.Background(), s.Admin.ID, s.Collective.ID)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestForRequest_UsesFreshCache(t *testing.T) {
	s := testutil.NewScenario(t)
	r := newTestResolver(t, s.Store)

	req := r.ForRequest()
	for i := 0; i < 3; i++ {
		_, err := req.ResolveRole(context.Background(), s.Stranger.ID, &s.Collective, s.Owner.ID)
		require.NoError(t, err)
	}
	// subject + host, once each
	assert.Equal(t, 2, s.Store.Calls(testutil.OpGetMembership))

	_, err := r.ForRequest().ResolveRole(context.Background(), s.Stranger.ID, &s.Collective, s.Owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Store.Calls(testutil.OpGetMembership))
}
