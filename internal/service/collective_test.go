package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/graph"
	"github.com/sakif/donorshield/internal/policy"
	"github.com/sakif/donorshield/internal/redact"
	"github.com/sakif/donorshield/internal/testutil"
)

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCollectiveService(st *testutil.Store) *CollectiveService {
	logger := testLogger()
	return NewCollectiveService(
		graph.NewBuilder(st, logger),
		redact.NewApplier(policy.NewResolver(st, st, logger), logger),
		logger,
	)
}

// =========================================================================
// GET
// =========================================================================

func TestCollectiveGet_RedactsForViewer(t *testing.T) {
	s := testutil.NewScenario(t)
	svc := newTestCollectiveService(s.Store)

	public, err := svc.Get(context.Background(), "test", "")
	require.NoError(t, err)
	assert.Nil(t, public.Orders[0].CreatedByUser.Email)
	assert.Nil(t, public.Orders[0].FromCollective.Slug)

	admin, err := svc.Get(context.Background(), "test", s.Admin.ID)
	require.NoError(t, err)
	require.NotNil(t, admin.Orders[0].CreatedByUser.Email)
	assert.Equal(t, s.Owner.Email, *admin.Orders[0].CreatedByUser.Email)
	assert.Nil(t, admin.Orders[0].FromCollective.Slug)
}

func TestCollectiveGet_TrimsSlug(t *testing.T) {
	s := testutil.NewScenario(t)

	g, err := newTestCollectiveService(s.Store).Get(context.Background(), "  test ", "")
	require.NoError(t, err)
	assert.Equal(t, s.Collective.ID, g.Collective.ID)
}

func TestCollectiveGet_EmptySlug(t *testing.T) {
	s := testutil.NewScenario(t)

	_, err := newTestCollectiveService(s.Store).Get(context.Background(), " ", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCollectiveGet_NotFound(t *testing.T) {
	s := testutil.NewScenario(t)

	_, err := newTestCollectiveService(s.Store).Get(context.Background(), "nope", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCollectiveGet_LookupFailureReturnsNoGraph(t *testing.T) {
	s := testutil.NewScenario(t)
	s.Store.FailOn(testutil.OpGetMembership, errors.New("connection refused"))

	g, err := newTestCollectiveService(s.Store).Get(context.Background(), "test", s.Backer.ID)
	assert.ErrorIs(t, err, apperror.ErrLookup)
	assert.Nil(t, g)
}
