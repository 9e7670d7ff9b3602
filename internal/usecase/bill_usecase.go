package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type BillUseCase interface {
	// CreateFromCart converts the user's whole cart into a pending bill,
	// snapshotting current product prices. The cart's reserved stock is
	// now owned by the bill, so no stock mutation happens here.
	CreateFromCart(ctx context.Context, userID int64, shippingAddress string) (*domain.Bill, error)
	// Checkout bills only the requested subset of the user's cart lines.
	// Partially billed lines keep their remainder reserved in the cart.
	Checkout(ctx context.Context, userID int64, lines []domain.BillLineRequest) (*domain.Bill, error)
	GetBillByID(ctx context.Context, id int64) (*domain.Bill, error)
	ListBills(ctx context.Context, limit, offset int) ([]domain.Bill, error)
	ListBillsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Bill, error)
	// Cancel refunds every line's quantity back to stock and moves the
	// bill to its terminal canceled status. Pending bills only.
	Cancel(ctx context.Context, billID int64) (*domain.Bill, error)
	// Edit replaces a pending bill's lines: current reservations are
	// refunded, the new lines re-checked and re-reserved, prices
	// re-snapshotted. Fully applied or fully rolled back.
	Edit(ctx context.Context, billID int64, lines []domain.BillLineRequest, shippingAddress string) (*domain.Bill, error)
	MarkPaid(ctx context.Context, billID int64) (*domain.Bill, error)
}

type billUseCase struct {
	billRepo  domain.BillRepository
	txManager domain.TxManager
	log       *logrus.Logger
}

func NewBillUseCase(billRepo domain.BillRepository, txManager domain.TxManager, logger *logrus.Logger) BillUseCase {
	return &billUseCase{
		billRepo:  billRepo,
		txManager: txManager,
		log:       logger,
	}
}

func validateLineRequests(lines []domain.BillLineRequest) error {
	if len(lines) == 0 {
		return fmt.Errorf("at least one line is required: %w", domain.ErrValidation)
	}
	seen := make(map[int64]struct{}, len(lines))
	for i, line := range lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("line %d: invalid product ID: %w", i, domain.ErrValidation)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("line %d (product %d): quantity must be at least 1: %w", i, line.ProductID, domain.ErrValidation)
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("line %d: product %d appears more than once: %w", i, line.ProductID, domain.ErrValidation)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

func (uc *billUseCase) CreateFromCart(ctx context.Context, userID int64, shippingAddress string) (*domain.Bill, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		uc.log.Warnf("Use Case: User %d attempted bill creation without shipping address", userID)
		return nil, fmt.Errorf("shipping address is required: %w", domain.ErrValidation)
	}

	var bill *domain.Bill
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		cart, err := r.Carts.GetCartByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			uc.log.Warnf("Use Case: User %d attempted bill creation with an empty cart", userID)
			return fmt.Errorf("add products before purchasing: %w", domain.ErrEmptyCart)
		}

		var total float64
		items := make([]domain.BillItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			product, err := r.Products.GetProductByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			items = append(items, domain.BillItem{
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				PriceAtPurchase: product.Price,
			})
			total += product.Price * float64(line.Quantity)
		}

		bill, err = r.Bills.CreateBill(ctx, &domain.Bill{
			UserID:          userID,
			Items:           items,
			Total:           total,
			Status:          domain.BillPending,
			ShippingAddress: shippingAddress,
		})
		if err != nil {
			return err
		}
		// The reservation now belongs to the bill; the cart is emptied
		// without any stock mutation.
		return r.Carts.ClearItems(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Bill %d created from cart for user %d (total %.2f)", bill.ID, userID, bill.Total)
	return bill, nil
}

func (uc *billUseCase) Checkout(ctx context.Context, userID int64, lines []domain.BillLineRequest) (*domain.Bill, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}
	if err := validateLineRequests(lines); err != nil {
		return nil, err
	}

	var bill *domain.Bill
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		cart, err := r.Carts.GetCartByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return fmt.Errorf("add products to the cart before checkout: %w", domain.ErrEmptyCart)
		}

		var total float64
		items := make([]domain.BillItem, 0, len(lines))
		for _, requested := range lines {
			line := cart.Line(requested.ProductID)
			reserved := 0
			if line != nil {
				reserved = line.Quantity
			}
			if requested.Quantity > reserved {
				uc.log.Warnf("Use Case: Checkout requested %d of product %d but only %d reserved for user %d",
					requested.Quantity, requested.ProductID, reserved, userID)
				return fmt.Errorf("product %d (requested: %d, reserved: %d): %w",
					requested.ProductID, requested.Quantity, reserved, domain.ErrInsufficientStock)
			}

			product, err := r.Products.GetProductByID(ctx, requested.ProductID)
			if err != nil {
				return err
			}
			items = append(items, domain.BillItem{
				ProductID:       requested.ProductID,
				Quantity:        requested.Quantity,
				PriceAtPurchase: product.Price,
			})
			total += product.Price * float64(requested.Quantity)
		}

		bill, err = r.Bills.CreateBill(ctx, &domain.Bill{
			UserID: userID,
			Items:  items,
			Total:  total,
			Status: domain.BillPending,
		})
		if err != nil {
			return err
		}

		// Remove only the billed quantity; partial lines keep their
		// remainder reserved.
		for _, requested := range lines {
			remainder := cart.Line(requested.ProductID).Quantity - requested.Quantity
			if remainder > 0 {
				if err := r.Carts.UpsertItem(ctx, cart.ID, requested.ProductID, remainder); err != nil {
					return err
				}
			} else {
				if err := r.Carts.DeleteItem(ctx, cart.ID, requested.ProductID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Checkout completed for user %d, bill %d (total %.2f)", userID, bill.ID, bill.Total)
	return bill, nil
}

func (uc *billUseCase) GetBillByID(ctx context.Context, id int64) (*domain.Bill, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid bill ID: %w", domain.ErrValidation)
	}
	return uc.billRepo.GetBillByID(ctx, id)
}

func (uc *billUseCase) ListBills(ctx context.Context, limit, offset int) ([]domain.Bill, error) {
	return uc.billRepo.ListBills(ctx, limit, offset)
}

func (uc *billUseCase) ListBillsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Bill, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}
	return uc.billRepo.ListBillsByUserID(ctx, userID, limit, offset)
}

func (uc *billUseCase) Cancel(ctx context.Context, billID int64) (*domain.Bill, error) {
	if billID <= 0 {
		return nil, fmt.Errorf("invalid bill ID: %w", domain.ErrValidation)
	}

	var bill *domain.Bill
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		var err error
		// Row-locked read: a concurrent cancel or payment commits first or
		// waits, never interleaves with the refund below.
		bill, err = r.Bills.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if !bill.Status.CanTransition(domain.BillCanceled) {
			uc.log.Warnf("Use Case: Attempted to cancel bill %d in status '%s'", billID, bill.Status)
			return fmt.Errorf("only pending bills can be canceled (current: %s): %w", bill.Status, domain.ErrInvalidTransition)
		}

		for _, item := range bill.Items {
			if err := r.Products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := r.Bills.UpdateBillStatus(ctx, billID, domain.BillCanceled); err != nil {
			return err
		}
		bill.Status = domain.BillCanceled
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Bill %d canceled, stock returned for %d line(s)", billID, len(bill.Items))
	return bill, nil
}

func (uc *billUseCase) Edit(ctx context.Context, billID int64, lines []domain.BillLineRequest, shippingAddress string) (*domain.Bill, error) {
	if billID <= 0 {
		return nil, fmt.Errorf("invalid bill ID: %w", domain.ErrValidation)
	}
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return nil, fmt.Errorf("shipping address is required: %w", domain.ErrValidation)
	}
	if err := validateLineRequests(lines); err != nil {
		return nil, err
	}

	var bill *domain.Bill
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		var err error
		bill, err = r.Bills.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if !bill.Status.CanTransition(domain.BillPending) {
			uc.log.Warnf("Use Case: Attempted to edit bill %d in status '%s'", billID, bill.Status)
			return fmt.Errorf("only pending bills can be edited (current: %s): %w", bill.Status, domain.ErrInvalidTransition)
		}

		// Undo: return every current reservation to the pool. If any of
		// the new lines fails below, the transaction rolls this back and
		// the bill's prior state stays intact.
		for _, item := range bill.Items {
			if err := r.Products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		var total float64
		items := make([]domain.BillItem, 0, len(lines))
		for _, line := range lines {
			product, err := r.Products.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < line.Quantity {
				uc.log.Warnf("Use Case: Insufficient stock editing bill %d: product %d (requested: %d, available: %d)",
					billID, line.ProductID, line.Quantity, product.Stock)
				return fmt.Errorf("product %d (requested: %d, available: %d): %w",
					line.ProductID, line.Quantity, product.Stock, domain.ErrInsufficientStock)
			}
			if err := r.Products.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
				return err
			}
			items = append(items, domain.BillItem{
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				PriceAtPurchase: product.Price,
			})
			total += product.Price * float64(line.Quantity)
		}

		if err := r.Bills.ReplaceBillItems(ctx, billID, items, total, shippingAddress); err != nil {
			return err
		}
		bill.Items = items
		bill.Total = total
		bill.ShippingAddress = shippingAddress
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Bill %d edited (%d line(s), total %.2f)", billID, len(bill.Items), bill.Total)
	return bill, nil
}

func (uc *billUseCase) MarkPaid(ctx context.Context, billID int64) (*domain.Bill, error) {
	if billID <= 0 {
		return nil, fmt.Errorf("invalid bill ID: %w", domain.ErrValidation)
	}

	var bill *domain.Bill
	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		var err error
		bill, err = r.Bills.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if !bill.Status.CanTransition(domain.BillPaid) {
			uc.log.Warnf("Use Case: Attempted to mark bill %d paid in status '%s'", billID, bill.Status)
			return fmt.Errorf("only pending bills can be paid (current: %s): %w", bill.Status, domain.ErrInvalidTransition)
		}
		// No stock change: stock was committed at creation/edit time.
		if err := r.Bills.UpdateBillStatus(ctx, billID, domain.BillPaid); err != nil {
			return err
		}
		bill.Status = domain.BillPaid
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Bill %d marked as paid", billID)
	return bill, nil
}
