package domain

import "context"

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	CategoryID  int64   `json:"category_id"`
	Active      bool    `json:"active"`
}

type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// BestSeller pairs a product with the total quantity billed for it.
type BestSeller struct {
	Product   Product `json:"product"`
	UnitsSold int     `json:"units_sold"`
}

// ProductFilter narrows ListProducts. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID int64
	Name       string
	Limit      int
	Offset     int
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	// GetProductForUpdate reads the product with a row lock so that stock
	// checks and the subsequent AdjustStock serialize inside a transaction.
	GetProductForUpdate(ctx context.Context, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	// ListOutOfStock returns active products whose stock is exhausted.
	ListOutOfStock(ctx context.Context) ([]Product, error)
	// ListBestSellers ranks active products by total billed quantity.
	ListBestSellers(ctx context.Context, limit int) ([]BestSeller, error)
	// AdjustStock atomically applies delta to the product's stock. It fails
	// with ErrInsufficientStock when the result would go negative and
	// ErrNotFound for an unknown product.
	AdjustStock(ctx context.Context, id int64, delta int) error
	// ReassignCategory moves every product referencing fromCategoryID to
	// toCategoryID and returns the number of products moved.
	ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *Category) (*Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*Category, error)
	// GetActiveCategory fails with ErrInvalidCategory when the category is
	// absent or inactive.
	GetActiveCategory(ctx context.Context, id int64) (*Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*Category, error)
	DeactivateCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]Category, error)
}
