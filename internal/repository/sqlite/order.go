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

const orderColumns = `id, from_collective_id, to_collective_id, amount, currency, description, created_by_user_id, created_at`

const transactionColumns = `id, order_id, collective_id, amount, currency, description, created_by_user_id, created_at`

func (db *DB) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.Amount <= 0 {
		return apperror.ValidationFailed("amount", "amount must be positive")
	}
	o.ID = xid.New().String()
	o.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.FromCollectiveID,
		o.ToCollectiveID,
		o.Amount,
		o.Currency,
		o.Description,
		o.CreatedByUserID,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting order: %w", err)
	}
	return nil
}

// GetOrderByID returns apperror.ErrNotFound when no order has id.
func (db *DB) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(db.q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting order %s: %w", id, err)
	}
	return o, nil
}

func (db *DB) ListOrdersTo(ctx context.Context, collectiveID string) ([]model.Order, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE to_collective_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		collectiveID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing orders to %s: %w", collectiveID, err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.FromCollectiveID,
		&o.ToCollectiveID,
		&o.Amount,
		&o.Currency,
		&o.Description,
		&o.CreatedByUserID,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (db *DB) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	tx.ID = xid.New().String()
	tx.CreatedAt = time.Now().UTC()

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.OrderID,
		tx.CollectiveID,
		tx.Amount,
		tx.Currency,
		tx.Description,
		tx.CreatedByUserID,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting transaction for order %s: %w", tx.OrderID, err)
	}
	return nil
}

func (db *DB) ListTransactions(ctx context.Context, collectiveID string) ([]model.Transaction, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE collective_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		collectiveID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing transactions of %s: %w", collectiveID, err)
	}
	defer rows.Close()

	txs := []model.Transaction{}
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.OrderID,
			&tx.CollectiveID,
			&tx.Amount,
			&tx.Currency,
			&tx.Description,
			&tx.CreatedByUserID,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating transactions: %w", err)
	}
	return txs, nil
}
