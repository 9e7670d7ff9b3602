package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type postgresProductRepository struct {
	q   querier
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{q: db, log: logger}
}

func newProductRepositoryTx(tx *sql.Tx, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{q: tx, log: logger}
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, description, price, stock, category_id, active)
        VALUES ($1, $2, $3, $4, $5, TRUE)
        RETURNING id, active`
	err := r.q.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.Stock, product.CategoryID,
	).Scan(&product.ID, &product.Active)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			r.log.Warnf("Attempted to create product with non-existent category ID: %d", product.CategoryID)
			return nil, fmt.Errorf("category %d: %w", product.CategoryID, domain.ErrInvalidCategory)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Check constraint violation for product '%s': %s", product.Name, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %w", domain.ErrValidation)
		}
		r.log.Errorf("Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Product created successfully with ID: %d, Name: %s", product.ID, product.Name)
	return product, nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getProduct(ctx, id, false)
}

func (r *postgresProductRepository) GetProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.getProduct(ctx, id, true)
}

func (r *postgresProductRepository) getProduct(ctx context.Context, id int64, forUpdate bool) (*domain.Product, error) {
	query := `
        SELECT id, name, description, price, stock, category_id, active
        FROM products
        WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	product := &domain.Product{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.CategoryID,
		&product.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Product with ID %d not found", id)
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		r.log.Errorf("Failed to get product by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}
	return product, nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error) {
	if len(updates) == 0 {
		return r.GetProductByID(ctx, id)
	}

	setClauses := []string{}
	args := []interface{}{}
	argCounter := 1

	for key, value := range updates {
		switch key {
		case "name", "description", "price", "stock", "category_id":
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, value)
			argCounter++
		default:
			r.log.Warnf("Skipping unknown field '%s' in product update for ID %d", key, id)
		}
	}
	if len(setClauses) == 0 {
		return r.GetProductByID(ctx, id)
	}

	query := "UPDATE products SET " + strings.Join(setClauses, ", ") + fmt.Sprintf(" WHERE id = $%d", argCounter)
	args = append(args, id)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			r.log.Warnf("Attempted to update product %d with non-existent category", id)
			return nil, fmt.Errorf("category reference: %w", domain.ErrInvalidCategory)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Check constraint violation updating product %d: %s", id, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %w", domain.ErrValidation)
		}
		r.log.Errorf("Failed to update product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Failed to get rows affected after updating product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not confirm product update: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Product with ID %d not found for update", id)
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return r.GetProductByID(ctx, id)
}

func (r *postgresProductRepository) DeactivateProduct(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `UPDATE products SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Failed to deactivate product ID %d: %v", id, err)
		return fmt.Errorf("could not deactivate product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm product deactivation: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Attempted to deactivate non-existent product ID %d", id)
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	r.log.Infof("Product deactivated successfully with ID: %d", id)
	return nil
}

func (r *postgresProductRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
        SELECT id, name, description, price, stock, category_id, active
        FROM products
        WHERE active = TRUE`
	args := []interface{}{}
	argCounter := 1
	if filter.CategoryID != 0 {
		query += fmt.Sprintf(" AND category_id = $%d", argCounter)
		args = append(args, filter.CategoryID)
		argCounter++
	}
	if filter.Name != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argCounter)
		args = append(args, "%"+filter.Name+"%")
		argCounter++
	}
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Failed to list products (limit %d, offset %d): %v", limit, offset, err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Description,
			&product.Price, &product.Stock, &product.CategoryID, &product.Active,
		); err != nil {
			r.log.Errorf("Failed to scan product row: %v", err)
			return nil, fmt.Errorf("error scanning product data: %w", err)
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during products list iteration: %v", err)
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	r.log.Infof("Retrieved %d products (limit: %d, offset: %d)", len(products), limit, offset)
	return products, nil
}

func (r *postgresProductRepository) ListOutOfStock(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.q.QueryContext(ctx, `
        SELECT id, name, description, price, stock, category_id, active
        FROM products
        WHERE active = TRUE AND stock = 0
        ORDER BY id ASC`)
	if err != nil {
		r.log.Errorf("Failed to list out-of-stock products: %v", err)
		return nil, fmt.Errorf("could not list out-of-stock products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Description,
			&product.Price, &product.Stock, &product.CategoryID, &product.Active,
		); err != nil {
			r.log.Errorf("Failed to scan out-of-stock product row: %v", err)
			return nil, fmt.Errorf("error scanning product data: %w", err)
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating out-of-stock products: %w", err)
	}
	r.log.Infof("Retrieved %d out-of-stock products", len(products))
	return products, nil
}

func (r *postgresProductRepository) ListBestSellers(ctx context.Context, limit int) ([]domain.BestSeller, error) {
	rows, err := r.q.QueryContext(ctx, `
        SELECT p.id, p.name, p.description, p.price, p.stock, p.category_id, p.active,
               SUM(bi.quantity) AS units_sold
        FROM products p
        JOIN bill_items bi ON bi.product_id = p.id
        WHERE p.active = TRUE
        GROUP BY p.id, p.name, p.description, p.price, p.stock, p.category_id, p.active
        ORDER BY units_sold DESC, p.id ASC
        LIMIT $1`, limit)
	if err != nil {
		r.log.Errorf("Failed to list best-selling products: %v", err)
		return nil, fmt.Errorf("could not list best-selling products: %w", err)
	}
	defer rows.Close()

	sellers := []domain.BestSeller{}
	for rows.Next() {
		var seller domain.BestSeller
		if err := rows.Scan(
			&seller.Product.ID, &seller.Product.Name, &seller.Product.Description,
			&seller.Product.Price, &seller.Product.Stock, &seller.Product.CategoryID,
			&seller.Product.Active, &seller.UnitsSold,
		); err != nil {
			r.log.Errorf("Failed to scan best-seller row: %v", err)
			return nil, fmt.Errorf("error scanning best-seller data: %w", err)
		}
		sellers = append(sellers, seller)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating best-sellers: %w", err)
	}
	r.log.Infof("Retrieved %d best-selling products", len(sellers))
	return sellers, nil
}

// AdjustStock relies on a single conditional UPDATE so concurrent requests
// against the same product serialize on the row, never on an
// observe-then-write race in application code.
func (r *postgresProductRepository) AdjustStock(ctx context.Context, id int64, delta int) error {
	query := `
        UPDATE products
        SET stock = stock + $2
        WHERE id = $1 AND stock + $2 >= 0`
	result, err := r.q.ExecContext(ctx, query, id, delta)
	if err != nil {
		r.log.Errorf("Failed to adjust stock for product ID %d by %d: %v", id, delta, err)
		return fmt.Errorf("could not adjust stock: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm stock adjustment: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
			r.log.Errorf("Failed to check product existence after stock adjustment miss for ID %d: %v", id, err)
			return fmt.Errorf("could not verify product existence: %w", err)
		}
		if !exists {
			r.log.Warnf("Stock adjustment for non-existent product ID %d", id)
			return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		r.log.Warnf("Stock adjustment of %d for product ID %d would go negative", delta, id)
		return fmt.Errorf("product %d: %w", id, domain.ErrInsufficientStock)
	}
	r.log.Debugf("Adjusted stock for product ID %d by %d", id, delta)
	return nil
}

func (r *postgresProductRepository) ReassignCategory(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE products SET category_id = $2 WHERE category_id = $1`,
		fromCategoryID, toCategoryID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			r.log.Warnf("Reassign target category %d does not exist", toCategoryID)
			return 0, fmt.Errorf("category %d: %w", toCategoryID, domain.ErrInvalidCategory)
		}
		r.log.Errorf("Failed to reassign products from category %d to %d: %v", fromCategoryID, toCategoryID, err)
		return 0, fmt.Errorf("could not reassign products: %w", err)
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not confirm product reassignment: %w", err)
	}
	r.log.Infof("Reassigned %d products from category %d to %d", moved, fromCategoryID, toCategoryID)
	return moved, nil
}
