package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"store_service/internal/domain"
	"store_service/internal/usecase"
)

func newBillUseCase(store *fakeStore) usecase.BillUseCase {
	return usecase.NewBillUseCase(&fakeBillRepo{store.state}, store, testLogger())
}

// seedCart plants a cart that already holds reserved quantities, decrementing
// product stock the same way a real add would.
func seedCart(t *testing.T, store *fakeStore, userID int64, items []domain.CartItem) {
	t.Helper()
	uc := newCartUseCase(store)
	_, err := uc.AddItems(context.Background(), userID, items)
	require.NoError(t, err)
}

func TestBillCreateFromCart(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots prices and empties the cart", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		first := store.seedProduct("Go in Action", 10, 5, category.ID)
		second := store.seedProduct("The Go Programming Language", 20, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{
			{ProductID: first.ID, Quantity: 2},
			{ProductID: second.ID, Quantity: 1},
		})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana, Mangilik El 55")
		require.NoError(t, err)

		assert.Equal(t, domain.BillPending, bill.Status)
		assert.Equal(t, float64(40), bill.Total)
		require.Len(t, bill.Items, 2)
		assert.Equal(t, float64(10), bill.Items[0].PriceAtPurchase)

		// Ownership of the reservation moved to the bill: stock unchanged,
		// cart emptied but not deleted.
		assert.Equal(t, 3, store.productStock(first.ID))
		assert.Equal(t, 4, store.productStock(second.ID))
		cart, err := newCartUseCase(store).GetCartByUser(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
	})

	t.Run("requires a shipping address", func(t *testing.T) {
		store := newFakeStore()
		uc := newBillUseCase(store)

		_, err := uc.CreateFromCart(ctx, 1, "   ")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("missing cart", func(t *testing.T) {
		store := newFakeStore()
		uc := newBillUseCase(store)

		_, err := uc.CreateFromCart(ctx, 1, "Astana")
		assert.ErrorIs(t, err, domain.ErrCartNotFound)
	})

	t.Run("empty cart", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 1}})
		uc := newBillUseCase(store)

		_, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		_, err = uc.CreateFromCart(ctx, 1, "Astana")
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	})
}

func TestBillCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("bills a subset and keeps the remainder reserved", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 10, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 5}})
		uc := newBillUseCase(store)

		bill, err := uc.Checkout(ctx, 1, []domain.BillLineRequest{{ProductID: product.ID, Quantity: 3}})
		require.NoError(t, err)
		require.Len(t, bill.Items, 1)
		assert.Equal(t, 3, bill.Items[0].Quantity)
		assert.Equal(t, float64(30), bill.Total)

		cart, err := newCartUseCase(store).GetCartByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 2, cart.Items[0].Quantity)
		assert.Equal(t, 5, store.productStock(product.ID))
	})

	t.Run("removes a fully billed line", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 10, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 4}})
		uc := newBillUseCase(store)

		_, err := uc.Checkout(ctx, 1, []domain.BillLineRequest{{ProductID: product.ID, Quantity: 4}})
		require.NoError(t, err)

		cart, err := newCartUseCase(store).GetCartByUser(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
	})

	t.Run("rejects quantities beyond the reservation", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 10, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		_, err := uc.Checkout(ctx, 1, []domain.BillLineRequest{{ProductID: product.ID, Quantity: 3}})
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		cart, err := newCartUseCase(store).GetCartByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 2, cart.Items[0].Quantity)
	})

	t.Run("rejects duplicate product lines", func(t *testing.T) {
		store := newFakeStore()
		uc := newBillUseCase(store)

		_, err := uc.Checkout(ctx, 1, []domain.BillLineRequest{
			{ProductID: 3, Quantity: 1},
			{ProductID: 3, Quantity: 2},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestBillCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stock and moves to canceled", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		require.Equal(t, 3, store.productStock(product.ID))

		canceled, err := uc.Cancel(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BillCanceled, canceled.Status)
		assert.Equal(t, 5, store.productStock(product.ID))
	})

	t.Run("cancel is not repeatable", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		_, err = uc.Cancel(ctx, bill.ID)
		require.NoError(t, err)

		_, err = uc.Cancel(ctx, bill.ID)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		// A rejected double cancel must not refund twice.
		assert.Equal(t, 5, store.productStock(product.ID))
	})

	t.Run("paid bills cannot be canceled", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		_, err = uc.MarkPaid(ctx, bill.ID)
		require.NoError(t, err)

		_, err = uc.Cancel(ctx, bill.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, 3, store.productStock(product.ID))
	})
}

func TestBillMarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("pending to paid without stock change", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)

		paid, err := uc.MarkPaid(ctx, bill.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BillPaid, paid.Status)
		assert.Equal(t, 3, store.productStock(product.ID))

		_, err = uc.MarkPaid(ctx, bill.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("canceled bills cannot be paid", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		_, err = uc.Cancel(ctx, bill.ID)
		require.NoError(t, err)

		_, err = uc.MarkPaid(ctx, bill.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

// staleBillTxManager hands the transaction a bill repository whose locked
// read returns a fixed earlier snapshot, modeling a reader whose view was
// taken before a concurrent transition committed.
type staleBillTxManager struct {
	store *fakeStore
	stale *domain.Bill
}

func (m *staleBillTxManager) WithinTx(_ context.Context, fn func(r domain.Repositories) error) error {
	snapshot := m.store.state.clone()
	repos := m.store.repos()
	repos.Bills = &staleBillRepo{BillRepository: repos.Bills, stale: m.stale}
	if err := fn(repos); err != nil {
		*m.store.state = *snapshot
		return err
	}
	return nil
}

type staleBillRepo struct {
	domain.BillRepository
	stale *domain.Bill
}

func (r *staleBillRepo) GetBillForUpdate(_ context.Context, _ int64) (*domain.Bill, error) {
	copied := *r.stale
	copied.Items = append([]domain.BillItem(nil), r.stale.Items...)
	return &copied, nil
}

func TestBillStatusRace(t *testing.T) {
	ctx := context.Background()

	t.Run("a stale paid write cannot overwrite a committed cancel", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		pendingView := *bill

		_, err = uc.Cancel(ctx, bill.ID)
		require.NoError(t, err)

		// MarkPaid acting on the pending view it read before the cancel
		// committed must be refused by the conditional status write.
		staleUC := usecase.NewBillUseCase(&fakeBillRepo{store.state},
			&staleBillTxManager{store: store, stale: &pendingView}, testLogger())
		_, err = staleUC.MarkPaid(ctx, bill.ID)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.BillCanceled, store.state.bills[bill.ID].Status)
	})

	t.Run("a cancel losing the race does not refund twice", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		pendingView := *bill

		_, err = uc.Cancel(ctx, bill.ID)
		require.NoError(t, err)
		require.Equal(t, 5, store.productStock(product.ID))

		staleUC := usecase.NewBillUseCase(&fakeBillRepo{store.state},
			&staleBillTxManager{store: store, stale: &pendingView}, testLogger())
		_, err = staleUC.Cancel(ctx, bill.ID)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)

		// The losing cancel's interim refund must be rolled back with it.
		assert.Equal(t, 5, store.productStock(product.ID))
		assert.Equal(t, domain.BillCanceled, store.state.bills[bill.ID].Status)
	})
}

func TestBillEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles stock against the new lines", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		first := store.seedProduct("Go in Action", 10, 5, category.ID)
		second := store.seedProduct("The Go Programming Language", 20, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: first.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)

		edited, err := uc.Edit(ctx, bill.ID, []domain.BillLineRequest{
			{ProductID: second.ID, Quantity: 3},
		}, "Almaty, Abay 10")
		require.NoError(t, err)

		require.Len(t, edited.Items, 1)
		assert.Equal(t, second.ID, edited.Items[0].ProductID)
		assert.Equal(t, float64(60), edited.Total)
		assert.Equal(t, "Almaty, Abay 10", edited.ShippingAddress)

		// Old line refunded in full, new line reserved.
		assert.Equal(t, 5, store.productStock(first.ID))
		assert.Equal(t, 2, store.productStock(second.ID))
	})

	t.Run("failed edit leaves the bill and stock untouched", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		first := store.seedProduct("Go in Action", 10, 5, category.ID)
		second := store.seedProduct("The Go Programming Language", 20, 1, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: first.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)

		_, err = uc.Edit(ctx, bill.ID, []domain.BillLineRequest{
			{ProductID: second.ID, Quantity: 4},
		}, "Almaty")
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		// Rollback must undo the interim refund of the original lines.
		assert.Equal(t, 3, store.productStock(first.ID))
		assert.Equal(t, 1, store.productStock(second.ID))
		current, err := uc.GetBillByID(ctx, bill.ID)
		require.NoError(t, err)
		require.Len(t, current.Items, 1)
		assert.Equal(t, first.ID, current.Items[0].ProductID)
		assert.Equal(t, float64(20), current.Total)
		assert.Equal(t, "Astana", current.ShippingAddress)
	})

	t.Run("only pending bills can be edited", func(t *testing.T) {
		store := newFakeStore()
		category := store.seedCategory("Books", true)
		product := store.seedProduct("Go in Action", 10, 5, category.ID)
		seedCart(t, store, 1, []domain.CartItem{{ProductID: product.ID, Quantity: 2}})
		uc := newBillUseCase(store)

		bill, err := uc.CreateFromCart(ctx, 1, "Astana")
		require.NoError(t, err)
		_, err = uc.MarkPaid(ctx, bill.ID)
		require.NoError(t, err)

		_, err = uc.Edit(ctx, bill.ID, []domain.BillLineRequest{{ProductID: product.ID, Quantity: 1}}, "Astana")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
