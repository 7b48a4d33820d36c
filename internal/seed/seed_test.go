package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/auth"
	"github.com/sakif/donorshield/internal/model"
	"github.com/sakif/donorshield/internal/repository/sqlite"
	"github.com/sakif/donorshield/internal/testutil"
)

const demoFile = "../../testdata/scenario.yaml"

func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceWithCost(bcrypt.MinCost)
}

func TestParseFile_Demo(t *testing.T) {
	sc, err := ParseFile(demoFile)
	require.NoError(t, err)

	assert.Len(t, sc.Users, 4)
	assert.Len(t, sc.Collectives, 3)
	assert.Len(t, sc.Memberships, 6)
	assert.Len(t, sc.Orders, 1)
}

func TestApply_Demo(t *testing.T) {
	sc, err := ParseFile(demoFile)
	require.NoError(t, err)
	st := testutil.NewStore()
	ctx := context.Background()

	res, err := Apply(ctx, st, testPasswords(), sc)
	require.NoError(t, err)

	proxy := res.Collectives["proxy"]
	p, ok := proxy.AsAnonymousProxy()
	require.True(t, ok)
	assert.Equal(t, res.Users["owner"].ID, p.OwnerUserID)
	assert.Equal(t, model.AnonymousName, proxy.Name)

	test, err := st.GetCollectiveBySlug(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, res.Collectives["host"].ID, test.HostCollectiveID)

	members, err := st.ListMembers(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, members, 4)
	assert.Equal(t, proxy.ID, members[2].MemberCollectiveID)

	txs, err := st.ListTransactions(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, res.Orders[0].ID, txs[0].OrderID)

	owner, err := st.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.NoError(t, testPasswords().Verify(owner.PasswordHash, "donorshield"))
}

func TestApply_TwiceConflicts(t *testing.T) {
	sc, err := ParseFile(demoFile)
	require.NoError(t, err)
	st := testutil.NewStore()

	_, err = Apply(context.Background(), st, testPasswords(), sc)
	require.NoError(t, err)
	_, err = Apply(context.Background(), st, testPasswords(), sc)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "proxy without owner",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: p, type: ANONYMOUS_PROXY}]",
			field: "collectives[0].owner",
		},
		{
			name:  "named proxy",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: p, type: ANONYMOUS_PROXY, owner: a, name: Alice}]",
			field: "collectives[0].name",
		},
		{
			name:  "owner on a standard collective",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: c, owner: a, createdBy: a}]",
			field: "collectives[0].owner",
		},
		{
			name:  "unknown type",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: c, type: SECRET, createdBy: a}]",
			field: "collectives[0].type",
		},
		{
			name:  "host declared later",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: c, host: h, createdBy: a}, {key: h, type: HOST, createdBy: a}]",
			field: "collectives[0].host",
		},
		{
			name:  "bad role",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: c, createdBy: a}]\nmemberships: [{user: a, collective: c, role: OWNER}]",
			field: "memberships[0].role",
		},
		{
			name:  "duplicate user key",
			yaml:  "users: [{key: a, email: a@x}, {key: a, email: b@x}]",
			field: "users[1].key",
		},
		{
			name:  "zero amount",
			yaml:  "users: [{key: a, email: a@x}]\ncollectives: [{key: c, createdBy: a}]\norders: [{from: c, to: c, amount: 0, createdBy: a}]",
			field: "orders[0].amount",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("users: [{key: a, email: a@x, onwer: b}]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "onwer")
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// ApplyInTx
// =========================================================================

func newSQLite(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyInTx_Demo(t *testing.T) {
	sc, err := ParseFile(demoFile)
	require.NoError(t, err)
	db := newSQLite(t)
	ctx := context.Background()

	res, err := ApplyInTx(ctx, db, testPasswords(), sc)
	require.NoError(t, err)

	test, err := db.GetCollectiveBySlug(ctx, "test")
	require.NoError(t, err)
	orders, err := db.ListOrdersTo(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, res.Collectives["proxy"].ID, orders[0].FromCollectiveID)

	_, err = ApplyInTx(ctx, db, testPasswords(), sc)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestApplyInTx_FailureLeavesNothingBehind(t *testing.T) {
	// The second user reuses the first one's email, so the load fails
	// after the first user was written.
	sc, err := Parse(strings.NewReader(`
users:
  - key: a
    email: a@example.com
  - key: b
    email: a@example.com
`))
	require.NoError(t, err)
	db := newSQLite(t)
	ctx := context.Background()

	_, err = ApplyInTx(ctx, db, testPasswords(), sc)
	require.ErrorIs(t, err, apperror.ErrConflict)

	_, err = db.GetUserByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
