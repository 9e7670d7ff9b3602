package domain

import "context"

// Cart holds a user's reserved items. Quantities in cart lines are already
// subtracted from product stock; a line is a reservation, not a wish.
type Cart struct {
	ID     int64      `json:"id"`
	UserID int64      `json:"user_id"`
	Items  []CartItem `json:"items"`
}

type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Line returns the cart line for productID, or nil.
func (c *Cart) Line(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

type CartRepository interface {
	// GetCartByUserID fails with ErrCartNotFound when the user has no cart.
	GetCartByUserID(ctx context.Context, userID int64) (*Cart, error)
	CreateCart(ctx context.Context, userID int64) (*Cart, error)
	// UpsertItem sets the absolute quantity of the cart line.
	UpsertItem(ctx context.Context, cartID, productID int64, quantity int) error
	DeleteItem(ctx context.Context, cartID, productID int64) error
	// ClearItems removes every line but keeps the cart row.
	ClearItems(ctx context.Context, cartID int64) error
	DeleteCart(ctx context.Context, cartID int64) error
	ListCarts(ctx context.Context) ([]Cart, error)
}
