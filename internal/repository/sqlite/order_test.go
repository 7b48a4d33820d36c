package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/donorshield/internal/apperror"
	"github.com/sakif/donorshield/internal/model"
)

func TestOrdersAndTransactions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	admin := createTestUser(t, db, "admin")
	c := createTestCollective(t, db, &model.Collective{Slug: "c", Name: "C", Currency: "USD", CreatedByUserID: admin.ID})
	proxy := createTestCollective(t, db, model.NewAnonymousProxy(owner, "anon", "USD"))

	var orders []*model.Order
	for _, amount := range []int64{2000, 500} {
		o := &model.Order{
			FromCollectiveID: proxy.ID,
			ToCollectiveID:   c.ID,
			Amount:           amount,
			Currency:         "USD",
			Description:      "Donation",
			CreatedByUserID:  owner.ID,
		}
		require.NoError(t, db.CreateOrder(ctx, o))
		require.NoError(t, db.CreateTransaction(ctx, model.NewTransactionForOrder(o)))
		orders = append(orders, o)
	}

	gotOrders, err := db.ListOrdersTo(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, gotOrders, 2)
	assert.Equal(t, orders[0].ID, gotOrders[0].ID)
	assert.Equal(t, int64(2000), gotOrders[0].Amount)
	assert.Equal(t, proxy.ID, gotOrders[0].FromCollectiveID)
	assert.Equal(t, owner.ID, gotOrders[0].CreatedByUserID)

	txs, err := db.ListTransactions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, orders[0].ID, txs[0].OrderID)
	assert.Equal(t, orders[1].ID, txs[1].OrderID)
	assert.Equal(t, owner.ID, txs[1].CreatedByUserID)

	none, err := db.ListOrdersTo(ctx, proxy.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateOrder_RejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateOrder(context.Background(), &model.Order{Amount: 0, Currency: "USD"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGetOrderByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	admin := createTestUser(t, db, "admin")
	c := createTestCollective(t, db, &model.Collective{Slug: "c", Name: "C", Currency: "USD", CreatedByUserID: admin.ID})
	proxy := createTestCollective(t, db, model.NewAnonymousProxy(owner, "anon", "USD"))

	o := &model.Order{
		FromCollectiveID: proxy.ID,
		ToCollectiveID:   c.ID,
		Amount:           2000,
		Currency:         "USD",
		CreatedByUserID:  owner.ID,
	}
	require.NoError(t, db.CreateOrder(ctx, o))

	got, err := db.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, proxy.ID, got.FromCollectiveID)
	assert.Equal(t, owner.ID, got.CreatedByUserID)

	_, err = db.GetOrderByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
