package model

import "time"

// Order is a pledge from one collective to another.
// FromCollectiveID may point at an anonymous proxy; CreatedByUserID is
// always the real acting user.
type Order struct {
	ID               string    `json:"id"`
	FromCollectiveID string    `json:"fromCollectiveId"`
	ToCollectiveID   string    `json:"toCollectiveId"`
	Amount           int64     `json:"amount"` // minor units (cents)
	Currency         string    `json:"currency"`
	Description      string    `json:"description"`
	CreatedByUserID  string    `json:"createdByUserId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Transaction is an append-only ledger record produced when an Order executes.
type Transaction struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"orderId"`
	CollectiveID    string    `json:"collectiveId"` // the collective whose ledger holds the row
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Description     string    `json:"description"`
	CreatedByUserID string    `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewTransactionForOrder builds the credit entry for an executed order.
// The creator is inherited from the order and cannot be set independently.
func NewTransactionForOrder(o *Order) *Transaction {
	return &Transaction{
		OrderID:         o.ID,
		CollectiveID:    o.ToCollectiveID,
		Amount:          o.Amount,
		Currency:        o.Currency,
		Description:     o.Description,
		CreatedByUserID: o.CreatedByUserID,
	}
}
