package domain

import (
	"context"
	"time"
)

type BillStatus string

const (
	BillPending  BillStatus = "pending"
	BillPaid     BillStatus = "paid"
	BillCanceled BillStatus = "canceled"
)

func IsValidBillStatus(status BillStatus) bool {
	switch status {
	case BillPending, BillPaid, BillCanceled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s BillStatus) Terminal() bool {
	return s == BillPaid || s == BillCanceled
}

// CanTransition encodes the bill state machine:
// pending -> paid, pending -> canceled, pending -> pending (edit).
func (s BillStatus) CanTransition(to BillStatus) bool {
	return s == BillPending && IsValidBillStatus(to)
}

type Bill struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Items           []BillItem `json:"items"`
	Total           float64    `json:"total"`
	Status          BillStatus `json:"status"`
	ShippingAddress string     `json:"shipping_address"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BillItem is immutable once written: PriceAtPurchase is the product price
// snapshotted at creation or edit time, decoupled from later price changes.
type BillItem struct {
	ProductID       int64   `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// BillLineRequest is a requested line before prices are snapshotted.
type BillLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type BillRepository interface {
	CreateBill(ctx context.Context, bill *Bill) (*Bill, error)
	GetBillByID(ctx context.Context, id int64) (*Bill, error)
	// GetBillForUpdate reads the bill with a row lock so a status check and
	// the writes that follow serialize inside a transaction.
	GetBillForUpdate(ctx context.Context, id int64) (*Bill, error)
	// UpdateBillStatus persists a transition out of pending. It fails with
	// ErrInvalidTransition when the stored status is no longer pending, so a
	// stale status read can never overwrite a terminal bill.
	UpdateBillStatus(ctx context.Context, id int64, status BillStatus) error
	// ReplaceBillItems swaps the bill's line set, total and shipping address
	// in place. Used by edit while the bill is still pending.
	ReplaceBillItems(ctx context.Context, id int64, items []BillItem, total float64, shippingAddress string) error
	ListBills(ctx context.Context, limit, offset int) ([]Bill, error)
	ListBillsByUserID(ctx context.Context, userID int64, limit, offset int) ([]Bill, error)
}
