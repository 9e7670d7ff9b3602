package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

// memState is the shared in-memory backing store for the fake repositories.
type memState struct {
	products   map[int64]domain.Product
	categories map[int64]domain.Category
	carts      map[int64]*domain.Cart // keyed by owner user ID
	bills      map[int64]*domain.Bill
	nextID     int64
}

func newMemState() *memState {
	return &memState{
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
		carts:      make(map[int64]*domain.Cart),
		bills:      make(map[int64]*domain.Bill),
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.carts {
		cart := *v
		cart.Items = append([]domain.CartItem(nil), v.Items...)
		c.carts[k] = &cart
	}
	for k, v := range s.bills {
		bill := *v
		bill.Items = append([]domain.BillItem(nil), v.Items...)
		c.bills[k] = &bill
	}
	return c
}

type fakeStore struct {
	state *memState
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newMemState()}
}

func (f *fakeStore) repos() domain.Repositories {
	return domain.Repositories{
		Products:   &fakeProductRepo{f.state},
		Categories: &fakeCategoryRepo{f.state},
		Carts:      &fakeCartRepo{f.state},
		Bills:      &fakeBillRepo{f.state},
	}
}

// WithinTx snapshots the state before running fn and restores it when fn
// fails, mirroring the all-or-nothing contract of the real TxManager.
func (f *fakeStore) WithinTx(_ context.Context, fn func(r domain.Repositories) error) error {
	snapshot := f.state.clone()
	if err := fn(f.repos()); err != nil {
		*f.state = *snapshot
		return err
	}
	return nil
}

func (f *fakeStore) seedCategory(name string, active bool) domain.Category {
	category := domain.Category{ID: f.state.id(), Name: name, Active: active}
	f.state.categories[category.ID] = category
	return category
}

func (f *fakeStore) seedProduct(name string, price float64, stock int, categoryID int64) domain.Product {
	product := domain.Product{
		ID: f.state.id(), Name: name, Price: price, Stock: stock, CategoryID: categoryID, Active: true,
	}
	f.state.products[product.ID] = product
	return product
}

func (f *fakeStore) productStock(id int64) int {
	return f.state.products[id].Stock
}

var _ domain.TxManager = (*fakeStore)(nil)

type fakeProductRepo struct{ s *memState }

func (r *fakeProductRepo) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	product.ID = r.s.id()
	product.Active = true
	r.s.products[product.ID] = *product
	return product, nil
}

func (r *fakeProductRepo) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	product, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return &product, nil
}

func (r *fakeProductRepo) GetProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.GetProductByID(ctx, id)
}

func (r *fakeProductRepo) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error) {
	product, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	if name, ok := updates["name"].(string); ok {
		product.Name = name
	}
	if price, ok := updates["price"].(float64); ok {
		product.Price = price
	}
	if stock, ok := updates["stock"].(int); ok {
		product.Stock = stock
	}
	if categoryID, ok := updates["category_id"].(int64); ok {
		product.CategoryID = categoryID
	}
	r.s.products[id] = product
	return &product, nil
}

func (r *fakeProductRepo) DeactivateProduct(_ context.Context, id int64) error {
	product, ok := r.s.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	product.Active = false
	r.s.products[id] = product
	return nil
}

func (r *fakeProductRepo) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	products := []domain.Product{}
	for _, product := range r.s.products {
		if !product.Active {
			continue
		}
		if filter.CategoryID != 0 && product.CategoryID != filter.CategoryID {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *fakeProductRepo) ListOutOfStock(_ context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	for _, product := range r.s.products {
		if product.Active && product.Stock == 0 {
			products = append(products, product)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *fakeProductRepo) ListBestSellers(_ context.Context, limit int) ([]domain.BestSeller, error) {
	sold := make(map[int64]int)
	for _, bill := range r.s.bills {
		for _, item := range bill.Items {
			sold[item.ProductID] += item.Quantity
		}
	}
	sellers := []domain.BestSeller{}
	for id, units := range sold {
		product, ok := r.s.products[id]
		if !ok || !product.Active {
			continue
		}
		sellers = append(sellers, domain.BestSeller{Product: product, UnitsSold: units})
	}
	sort.Slice(sellers, func(i, j int) bool {
		if sellers[i].UnitsSold != sellers[j].UnitsSold {
			return sellers[i].UnitsSold > sellers[j].UnitsSold
		}
		return sellers[i].Product.ID < sellers[j].Product.ID
	})
	if len(sellers) > limit {
		sellers = sellers[:limit]
	}
	return sellers, nil
}

func (r *fakeProductRepo) AdjustStock(_ context.Context, id int64, delta int) error {
	product, ok := r.s.products[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	if product.Stock+delta < 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrInsufficientStock)
	}
	product.Stock += delta
	r.s.products[id] = product
	return nil
}

func (r *fakeProductRepo) ReassignCategory(_ context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	var moved int64
	for id, product := range r.s.products {
		if product.CategoryID == fromCategoryID {
			product.CategoryID = toCategoryID
			r.s.products[id] = product
			moved++
		}
	}
	return moved, nil
}

type fakeCategoryRepo struct{ s *memState }

func (r *fakeCategoryRepo) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	for _, existing := range r.s.categories {
		if existing.Name == category.Name {
			return nil, fmt.Errorf("category '%s': %w", category.Name, domain.ErrDuplicate)
		}
	}
	category.ID = r.s.id()
	category.Active = true
	r.s.categories[category.ID] = *category
	return category, nil
}

func (r *fakeCategoryRepo) GetCategoryByID(_ context.Context, id int64) (*domain.Category, error) {
	category, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	return &category, nil
}

func (r *fakeCategoryRepo) GetActiveCategory(_ context.Context, id int64) (*domain.Category, error) {
	category, ok := r.s.categories[id]
	if !ok || !category.Active {
		return nil, fmt.Errorf("category %d: %w", id, domain.ErrInvalidCategory)
	}
	return &category, nil
}

func (r *fakeCategoryRepo) UpdateCategory(_ context.Context, id int64, name string) (*domain.Category, error) {
	category, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	category.Name = name
	r.s.categories[id] = category
	return &category, nil
}

func (r *fakeCategoryRepo) DeactivateCategory(_ context.Context, id int64) error {
	category, ok := r.s.categories[id]
	if !ok {
		return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	category.Active = false
	r.s.categories[id] = category
	return nil
}

func (r *fakeCategoryRepo) ListCategories(_ context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	for _, category := range r.s.categories {
		if category.Active {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

type fakeCartRepo struct{ s *memState }

func (r *fakeCartRepo) GetCartByUserID(_ context.Context, userID int64) (*domain.Cart, error) {
	cart, ok := r.s.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %d: %w", userID, domain.ErrCartNotFound)
	}
	copied := *cart
	copied.Items = append([]domain.CartItem(nil), cart.Items...)
	return &copied, nil
}

func (r *fakeCartRepo) CreateCart(_ context.Context, userID int64) (*domain.Cart, error) {
	if _, exists := r.s.carts[userID]; exists {
		return nil, fmt.Errorf("cart for user %d: %w", userID, domain.ErrDuplicate)
	}
	cart := &domain.Cart{ID: r.s.id(), UserID: userID, Items: []domain.CartItem{}}
	r.s.carts[userID] = cart
	copied := *cart
	return &copied, nil
}

func (r *fakeCartRepo) byCartID(cartID int64) (*domain.Cart, error) {
	for _, cart := range r.s.carts {
		if cart.ID == cartID {
			return cart, nil
		}
	}
	return nil, fmt.Errorf("cart %d: %w", cartID, domain.ErrCartNotFound)
}

func (r *fakeCartRepo) UpsertItem(_ context.Context, cartID, productID int64, quantity int) error {
	cart, err := r.byCartID(cartID)
	if err != nil {
		return err
	}
	if line := cart.Line(productID); line != nil {
		line.Quantity = quantity
		return nil
	}
	cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (r *fakeCartRepo) DeleteItem(_ context.Context, cartID, productID int64) error {
	cart, err := r.byCartID(cartID)
	if err != nil {
		return err
	}
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items
	return nil
}

func (r *fakeCartRepo) ClearItems(_ context.Context, cartID int64) error {
	cart, err := r.byCartID(cartID)
	if err != nil {
		return err
	}
	cart.Items = []domain.CartItem{}
	return nil
}

func (r *fakeCartRepo) DeleteCart(_ context.Context, cartID int64) error {
	for userID, cart := range r.s.carts {
		if cart.ID == cartID {
			delete(r.s.carts, userID)
			return nil
		}
	}
	return nil
}

func (r *fakeCartRepo) ListCarts(_ context.Context) ([]domain.Cart, error) {
	carts := []domain.Cart{}
	for _, cart := range r.s.carts {
		copied := *cart
		copied.Items = append([]domain.CartItem(nil), cart.Items...)
		carts = append(carts, copied)
	}
	sort.Slice(carts, func(i, j int) bool { return carts[i].ID < carts[j].ID })
	return carts, nil
}

type fakeBillRepo struct{ s *memState }

func (r *fakeBillRepo) CreateBill(_ context.Context, bill *domain.Bill) (*domain.Bill, error) {
	bill.ID = r.s.id()
	bill.CreatedAt = time.Now()
	stored := *bill
	stored.Items = append([]domain.BillItem(nil), bill.Items...)
	r.s.bills[bill.ID] = &stored
	return bill, nil
}

func (r *fakeBillRepo) GetBillByID(_ context.Context, id int64) (*domain.Bill, error) {
	bill, ok := r.s.bills[id]
	if !ok {
		return nil, fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
	}
	copied := *bill
	copied.Items = append([]domain.BillItem(nil), bill.Items...)
	return &copied, nil
}

func (r *fakeBillRepo) GetBillForUpdate(ctx context.Context, id int64) (*domain.Bill, error) {
	return r.GetBillByID(ctx, id)
}

// UpdateBillStatus mirrors the conditional write of the real repository: the
// stored row must still be pending or the transition is refused.
func (r *fakeBillRepo) UpdateBillStatus(_ context.Context, id int64, status domain.BillStatus) error {
	bill, ok := r.s.bills[id]
	if !ok {
		return fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
	}
	if bill.Status != domain.BillPending {
		return fmt.Errorf("bill %d is already '%s': %w", id, bill.Status, domain.ErrInvalidTransition)
	}
	bill.Status = status
	return nil
}

func (r *fakeBillRepo) ReplaceBillItems(_ context.Context, id int64, items []domain.BillItem, total float64, shippingAddress string) error {
	bill, ok := r.s.bills[id]
	if !ok {
		return fmt.Errorf("bill %d: %w", id, domain.ErrNotFound)
	}
	bill.Items = append([]domain.BillItem(nil), items...)
	bill.Total = total
	bill.ShippingAddress = shippingAddress
	return nil
}

func (r *fakeBillRepo) ListBills(_ context.Context, _, _ int) ([]domain.Bill, error) {
	bills := []domain.Bill{}
	for _, bill := range r.s.bills {
		bills = append(bills, *bill)
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].ID < bills[j].ID })
	return bills, nil
}

func (r *fakeBillRepo) ListBillsByUserID(_ context.Context, userID int64, _, _ int) ([]domain.Bill, error) {
	bills := []domain.Bill{}
	for _, bill := range r.s.bills {
		if bill.UserID == userID {
			bills = append(bills, *bill)
		}
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].ID < bills[j].ID })
	return bills, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(nopWriter{})
	return logger
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
