package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type postgresBillRepository struct {
	q   querier
	log *logrus.Logger
}

func NewPostgresBillRepository(db *sql.DB, logger *logrus.Logger) domain.BillRepository {
	return &postgresBillRepository{q: db, log: logger}
}

func newBillRepositoryTx(tx *sql.Tx, logger *logrus.Logger) domain.BillRepository {
	return &postgresBillRepository{q: tx, log: logger}
}

func (r *postgresBillRepository) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	billQuery := `
        INSERT INTO bills (user_id, total, status, shipping_address)
        VALUES ($1, $2, $3, $4)
        RETURNING id, status, created_at`
	err := r.q.QueryRowContext(ctx, billQuery,
		bill.UserID, bill.Total, bill.Status, bill.ShippingAddress,
	).Scan(&bill.ID, &bill.Status, &bill.CreatedAt)
	if err != nil {
		r.log.Errorf("Failed to insert bill for user %d: %v", bill.UserID, err)
		return nil, fmt.Errorf("could not create bill entry: %w", err)
	}

	if err := r.insertBillItems(ctx, bill.ID, bill.Items); err != nil {
		return nil, err
	}
	r.log.Infof("Bill %d created successfully with %d items for user %d", bill.ID, len(bill.Items), bill.UserID)
	return bill, nil
}

func (r *postgresBillRepository) insertBillItems(ctx context.Context, billID int64, items []domain.BillItem) error {
	itemQuery := `
        INSERT INTO bill_items (bill_id, product_id, quantity, price_at_purchase)
        VALUES ($1, $2, $3, $4)`
	for i := range items {
		item := &items[i]
		if _, err := r.q.ExecContext(ctx, itemQuery, billID, item.ProductID, item.Quantity, item.PriceAtPurchase); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
				r.log.Warnf("Invalid bill item data (product %d) for bill %d: %s", item.ProductID, billID, pqErr.Message)
				return fmt.Errorf("bill item data: %w", domain.ErrValidation)
			}
			r.log.Errorf("Failed to insert bill item (product %d) for bill %d: %v", item.ProductID, billID, err)
			return fmt.Errorf("could not create bill item (product %d): %w", item.ProductID, err)
		}
	}
	return nil
}

func (r *postgresBillRepository) GetBillByID(ctx context.Context, id int64) (*domain.Bill, error) {
	return r.getBill(ctx, id, false)
}

func (r *postgresBillRepository) GetBillForUpdate(ctx context.Context, id int64) (*domain.Bill, error) {
	return r.getBill(ctx, id, true)
}

func (r *postgresBillRepository) getBill(ctx context.Context, id int64, forUpdate bool) (*domain.Bill, error) {
	bill := &domain.Bill{}
	billQuery := `
        SELECT id, user_id, total, status, shipping_address, created_at
        FROM bills
        WHERE id = $1`
	if forUpdate {
		billQuery += " FOR UPDATE"
	}
	err := r.q.QueryRowContext(ctx, billQuery, id).Scan(
		&bill.ID, &bill.UserID, &bill.Total, &bill.Status, &bill.ShippingAddress, &bill.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Bill with ID %d not found", id)
			return nil, fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
		}
		r.log.Errorf("Failed to get bill by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve bill: %w", err)
	}

	items, err := r.getBillItems(ctx, id)
	if err != nil {
		return nil, err
	}
	bill.Items = items
	return bill, nil
}

func (r *postgresBillRepository) getBillItems(ctx context.Context, billID int64) ([]domain.BillItem, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT product_id, quantity, price_at_purchase FROM bill_items WHERE bill_id = $1 ORDER BY product_id`,
		billID)
	if err != nil {
		r.log.Errorf("Failed to query bill items for bill %d: %v", billID, err)
		return nil, fmt.Errorf("could not retrieve bill items: %w", err)
	}
	defer rows.Close()

	items := []domain.BillItem{}
	for rows.Next() {
		var item domain.BillItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			r.log.Errorf("Failed to scan bill item row for bill %d: %v", billID, err)
			return nil, fmt.Errorf("error scanning bill item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill items: %w", err)
	}
	return items, nil
}

// UpdateBillStatus writes the status conditionally on the row still being
// pending, so the transition check and the write are a single statement and a
// terminal bill can never be overwritten by a stale reader.
func (r *postgresBillRepository) UpdateBillStatus(ctx context.Context, id int64, status domain.BillStatus) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE bills SET status = $2 WHERE id = $1 AND status = 'pending'`, id, status)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Invalid status value '%s' for bill ID %d", status, id)
			return fmt.Errorf("bill status '%s': %w", status, domain.ErrValidation)
		}
		r.log.Errorf("Failed to update status for bill ID %d: %v", id, err)
		return fmt.Errorf("could not update bill status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm bill status update: %w", err)
	}
	if rowsAffected == 0 {
		var current domain.BillStatus
		err := r.q.QueryRowContext(ctx, `SELECT status FROM bills WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Bill with ID %d not found for status update", id)
			return fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			r.log.Errorf("Failed to check bill %d after status update miss: %v", id, err)
			return fmt.Errorf("could not verify bill status: %w", err)
		}
		r.log.Warnf("Bill %d is already '%s', refusing transition to '%s'", id, current, status)
		return fmt.Errorf("bill %d is already '%s': %w", id, current, domain.ErrInvalidTransition)
	}
	r.log.Infof("Bill %d status updated to '%s'", id, status)
	return nil
}

func (r *postgresBillRepository) ReplaceBillItems(ctx context.Context, id int64, items []domain.BillItem, total float64, shippingAddress string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE bills SET total = $2, shipping_address = $3 WHERE id = $1`,
		id, total, shippingAddress)
	if err != nil {
		r.log.Errorf("Failed to update bill %d header: %v", id, err)
		return fmt.Errorf("could not update bill: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm bill update: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Bill with ID %d not found for item replacement", id)
		return fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, id); err != nil {
		r.log.Errorf("Failed to delete old items for bill %d: %v", id, err)
		return fmt.Errorf("could not replace bill items: %w", err)
	}
	if err := r.insertBillItems(ctx, id, items); err != nil {
		return err
	}
	r.log.Infof("Bill %d items replaced (%d lines, total %.2f)", id, len(items), total)
	return nil
}

func (r *postgresBillRepository) ListBills(ctx context.Context, limit, offset int) ([]domain.Bill, error) {
	return r.listBills(ctx,
		`SELECT id, user_id, total, status, shipping_address, created_at
         FROM bills ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		normalizeLimit(limit), normalizeOffset(offset))
}

func (r *postgresBillRepository) ListBillsByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Bill, error) {
	return r.listBills(ctx,
		`SELECT id, user_id, total, status, shipping_address, created_at
         FROM bills WHERE user_id = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		normalizeLimit(limit), normalizeOffset(offset), userID)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func (r *postgresBillRepository) listBills(ctx context.Context, query string, args ...interface{}) ([]domain.Bill, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Failed to list bills: %v", err)
		return nil, fmt.Errorf("could not retrieve bills: %w", err)
	}
	defer rows.Close()

	var bills []domain.Bill
	var billIDs []int64
	for rows.Next() {
		var bill domain.Bill
		if err := rows.Scan(
			&bill.ID, &bill.UserID, &bill.Total, &bill.Status, &bill.ShippingAddress, &bill.CreatedAt,
		); err != nil {
			r.log.Errorf("Failed to scan bill row: %v", err)
			return nil, fmt.Errorf("error scanning bill data: %w", err)
		}
		bills = append(bills, bill)
		billIDs = append(billIDs, bill.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}
	if len(bills) == 0 {
		return []domain.Bill{}, nil
	}

	itemRows, err := r.q.QueryContext(ctx,
		`SELECT bill_id, product_id, quantity, price_at_purchase
         FROM bill_items WHERE bill_id = ANY($1::bigint[]) ORDER BY bill_id`,
		pq.Array(billIDs))
	if err != nil {
		r.log.Errorf("Failed to query items for bills %v: %v", billIDs, err)
		return nil, fmt.Errorf("could not retrieve bill items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int64][]domain.BillItem)
	for itemRows.Next() {
		var billID int64
		var item domain.BillItem
		if err := itemRows.Scan(&billID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("error scanning bill item data for list: %w", err)
		}
		itemsMap[billID] = append(itemsMap[billID], item)
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill items for list: %w", err)
	}

	for i := range bills {
		if items, ok := itemsMap[bills[i].ID]; ok {
			bills[i].Items = items
		} else {
			bills[i].Items = []domain.BillItem{}
		}
	}
	r.log.Infof("Retrieved %d bills", len(bills))
	return bills, nil
}
