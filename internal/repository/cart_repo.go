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

type postgresCartRepository struct {
	q   querier
	log *logrus.Logger
}

func NewPostgresCartRepository(db *sql.DB, logger *logrus.Logger) domain.CartRepository {
	return &postgresCartRepository{q: db, log: logger}
}

func newCartRepositoryTx(tx *sql.Tx, logger *logrus.Logger) domain.CartRepository {
	return &postgresCartRepository{q: tx, log: logger}
}

func (r *postgresCartRepository) GetCartByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugf("No cart found for user %d", userID)
			return nil, fmt.Errorf("cart for user %d: %w", userID, domain.ErrCartNotFound)
		}
		r.log.Errorf("Failed to get cart for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not get cart: %w", err)
	}

	items, err := r.getCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *postgresCartRepository) getCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY product_id`, cartID)
	if err != nil {
		r.log.Errorf("Failed to query cart items for cart %d: %v", cartID, err)
		return nil, fmt.Errorf("could not retrieve cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			r.log.Errorf("Failed to scan cart item row for cart %d: %v", cartID, err)
			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during cart items iteration for cart %d: %v", cartID, err)
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (r *postgresCartRepository) CreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart := &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO carts (user_id) VALUES ($1) RETURNING id`, userID,
	).Scan(&cart.ID)
	if err != nil {
		// One cart per user is enforced by the unique index on user_id.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Cart already exists for user %d", userID)
			return nil, fmt.Errorf("cart for user %d: %w", userID, domain.ErrDuplicate)
		}
		r.log.Errorf("Failed to create cart for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not create cart: %w", err)
	}
	r.log.Infof("Cart created with ID %d for user %d", cart.ID, userID)
	return cart, nil
}

func (r *postgresCartRepository) UpsertItem(ctx context.Context, cartID, productID int64, quantity int) error {
	query := `
        INSERT INTO cart_items (cart_id, product_id, quantity)
        VALUES ($1, $2, $3)
        ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`
	if _, err := r.q.ExecContext(ctx, query, cartID, productID, quantity); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Invalid quantity %d for product %d in cart %d", quantity, productID, cartID)
			return fmt.Errorf("cart line quantity: %w", domain.ErrValidation)
		}
		r.log.Errorf("Failed to upsert cart item (cart %d, product %d): %v", cartID, productID, err)
		return fmt.Errorf("could not upsert cart item: %w", err)
	}
	return nil
}

func (r *postgresCartRepository) DeleteItem(ctx context.Context, cartID, productID int64) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID,
	); err != nil {
		r.log.Errorf("Failed to delete cart item (cart %d, product %d): %v", cartID, productID, err)
		return fmt.Errorf("could not delete cart item: %w", err)
	}
	return nil
}

func (r *postgresCartRepository) ClearItems(ctx context.Context, cartID int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		r.log.Errorf("Failed to clear items for cart %d: %v", cartID, err)
		return fmt.Errorf("could not clear cart items: %w", err)
	}
	return nil
}

func (r *postgresCartRepository) DeleteCart(ctx context.Context, cartID int64) error {
	// cart_items rows go with the cart via ON DELETE CASCADE.
	if _, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		r.log.Errorf("Failed to delete cart %d: %v", cartID, err)
		return fmt.Errorf("could not delete cart: %w", err)
	}
	r.log.Infof("Cart %d deleted", cartID)
	return nil
}

func (r *postgresCartRepository) ListCarts(ctx context.Context) ([]domain.Cart, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, user_id FROM carts ORDER BY id ASC`)
	if err != nil {
		r.log.Errorf("Failed to list carts: %v", err)
		return nil, fmt.Errorf("could not list carts: %w", err)
	}
	defer rows.Close()

	var carts []domain.Cart
	var cartIDs []int64
	for rows.Next() {
		var cart domain.Cart
		if err := rows.Scan(&cart.ID, &cart.UserID); err != nil {
			r.log.Errorf("Failed to scan cart row: %v", err)
			return nil, fmt.Errorf("error scanning cart data: %w", err)
		}
		carts = append(carts, cart)
		cartIDs = append(cartIDs, cart.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carts: %w", err)
	}
	if len(carts) == 0 {
		return []domain.Cart{}, nil
	}

	itemRows, err := r.q.QueryContext(ctx,
		`SELECT cart_id, product_id, quantity FROM cart_items WHERE cart_id = ANY($1::bigint[])`,
		pq.Array(cartIDs))
	if err != nil {
		r.log.Errorf("Failed to query items for carts %v: %v", cartIDs, err)
		return nil, fmt.Errorf("could not retrieve cart items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int64][]domain.CartItem)
	for itemRows.Next() {
		var cartID int64
		var item domain.CartItem
		if err := itemRows.Scan(&cartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("error scanning cart item data for list: %w", err)
		}
		itemsMap[cartID] = append(itemsMap[cartID], item)
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items for list: %w", err)
	}

	for i := range carts {
		if items, ok := itemsMap[carts[i].ID]; ok {
			carts[i].Items = items
		} else {
			carts[i].Items = []domain.CartItem{}
		}
	}
	r.log.Infof("Retrieved %d carts", len(carts))
	return carts, nil
}
