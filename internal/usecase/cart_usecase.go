package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type CartUseCase interface {
	// AddItems reserves stock for every requested line: product stock is
	// decremented and the cart line upserted, all lines atomically.
	AddItems(ctx context.Context, userID int64, items []domain.CartItem) (*domain.Cart, error)
	// RemoveItem refunds the full line quantity back to stock and deletes
	// the line. Removing an absent line is a successful no-op.
	RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error)
	// Clear refunds every line and deletes the cart.
	Clear(ctx context.Context, userID int64) error
	GetCartByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	ListCarts(ctx context.Context) ([]domain.Cart, error)
}

type cartUseCase struct {
	cartRepo  domain.CartRepository
	txManager domain.TxManager
	log       *logrus.Logger
}

func NewCartUseCase(cartRepo domain.CartRepository, txManager domain.TxManager, logger *logrus.Logger) CartUseCase {
	return &cartUseCase{
		cartRepo:  cartRepo,
		txManager: txManager,
		log:       logger,
	}
}

func (uc *cartUseCase) AddItems(ctx context.Context, userID int64, items []domain.CartItem) (*domain.Cart, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}
	if len(items) == 0 {
		uc.log.Warnf("Use Case: User %d attempted to add an empty item list", userID)
		return nil, fmt.Errorf("at least one product is required: %w", domain.ErrValidation)
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			return nil, fmt.Errorf("item %d: invalid product ID: %w", i, domain.ErrValidation)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %d (product %d): quantity must be at least 1: %w", i, item.ProductID, domain.ErrValidation)
		}
	}

	var cart *domain.Cart
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		var err error
		cart, err = r.Carts.GetCartByUserID(ctx, userID)
		if errors.Is(err, domain.ErrCartNotFound) {
			uc.log.Infof("Use Case: Creating cart lazily for user %d", userID)
			cart, err = r.Carts.CreateCart(ctx, userID)
		}
		if err != nil {
			return err
		}

		for _, item := range items {
			// Row-locked read: the stock value seen here is the ceiling
			// for the cumulative reserved quantity of this line.
			product, err := r.Products.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				return err
			}

			if product.Stock < item.Quantity {
				uc.log.Warnf("Use Case: Insufficient stock for product %d (requested: %d, available: %d)",
					item.ProductID, item.Quantity, product.Stock)
				return fmt.Errorf("product %d (requested: %d, available: %d): %w",
					item.ProductID, item.Quantity, product.Stock, domain.ErrInsufficientStock)
			}

			newQuantity := item.Quantity
			if line := cart.Line(item.ProductID); line != nil {
				newQuantity += line.Quantity
				if newQuantity > product.Stock {
					uc.log.Warnf("Use Case: Combined quantity %d for product %d exceeds stock %d",
						newQuantity, item.ProductID, product.Stock)
					return fmt.Errorf("product %d (combined: %d, available: %d): %w",
						item.ProductID, newQuantity, product.Stock, domain.ErrInsufficientStock)
				}
			}

			if err := r.Products.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
			if err := r.Carts.UpsertItem(ctx, cart.ID, item.ProductID, newQuantity); err != nil {
				return err
			}
			uc.setLine(cart, item.ProductID, newQuantity)
			uc.log.Infof("Use Case: Reserved %d of product %d for user %d (line total: %d)",
				item.Quantity, item.ProductID, userID, newQuantity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Added %d line(s) to cart %d for user %d", len(items), cart.ID, userID)
	return cart, nil
}

// setLine keeps the in-memory cart view current so a product repeated within
// one request is checked against its already-updated line.
func (uc *cartUseCase) setLine(cart *domain.Cart, productID int64, quantity int) {
	if line := cart.Line(productID); line != nil {
		line.Quantity = quantity
		return
	}
	cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
}

func (uc *cartUseCase) RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	if userID <= 0 || productID <= 0 {
		return nil, fmt.Errorf("invalid user or product ID: %w", domain.ErrValidation)
	}

	var cart *domain.Cart
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		var err error
		cart, err = r.Carts.GetCartByUserID(ctx, userID)
		if err != nil {
			return err
		}

		line := cart.Line(productID)
		if line == nil {
			// Idempotent: removing an absent line succeeds.
			uc.log.Debugf("Use Case: Product %d not in cart of user %d, nothing to remove", productID, userID)
			return nil
		}

		if err := r.Products.AdjustStock(ctx, productID, line.Quantity); err != nil {
			return err
		}
		if err := r.Carts.DeleteItem(ctx, cart.ID, productID); err != nil {
			return err
		}
		uc.log.Infof("Use Case: Refunded %d of product %d from cart of user %d", line.Quantity, productID, userID)

		remaining := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				remaining = append(remaining, item)
			}
		}
		cart.Items = remaining
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (uc *cartUseCase) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}

	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		cart, err := r.Carts.GetCartByUserID(ctx, userID)
		if err != nil {
			return err
		}
		for _, item := range cart.Items {
			if err := r.Products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return r.Carts.DeleteCart(ctx, cart.ID)
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to clear cart for user %d: %v", userID, err)
		return err
	}
	uc.log.Infof("Use Case: Cart cleared and stock restored for user %d", userID)
	return nil
}

func (uc *cartUseCase) GetCartByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}
	return uc.cartRepo.GetCartByUserID(ctx, userID)
}

func (uc *cartUseCase) ListCarts(ctx context.Context) ([]domain.Cart, error) {
	return uc.cartRepo.ListCarts(ctx)
}
