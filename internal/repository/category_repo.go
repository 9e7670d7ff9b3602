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

type postgresCategoryRepository struct {
	q   querier
	log *logrus.Logger
}

func NewPostgresCategoryRepository(db *sql.DB, logger *logrus.Logger) domain.CategoryRepository {
	return &postgresCategoryRepository{q: db, log: logger}
}

func newCategoryRepositoryTx(tx *sql.Tx, logger *logrus.Logger) domain.CategoryRepository {
	return &postgresCategoryRepository{q: tx, log: logger}
}

func (r *postgresCategoryRepository) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
        INSERT INTO categories (name, active)
        VALUES ($1, TRUE)
        RETURNING id, active`
	err := r.q.QueryRowContext(ctx, query, category.Name).Scan(&category.ID, &category.Active)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Attempted to create duplicate category '%s'", category.Name)
			return nil, fmt.Errorf("category '%s': %w", category.Name, domain.ErrDuplicate)
		}
		r.log.Errorf("Failed to create category '%s': %v", category.Name, err)
		return nil, fmt.Errorf("could not create category: %w", err)
	}
	r.log.Infof("Category created successfully with ID: %d, Name: %s", category.ID, category.Name)
	return category, nil
}

func (r *postgresCategoryRepository) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	category := &domain.Category{}
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, active FROM categories WHERE id = $1`, id,
	).Scan(&category.ID, &category.Name, &category.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Category with ID %d not found", id)
			return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
		}
		r.log.Errorf("Failed to get category by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get category by id: %w", err)
	}
	return category, nil
}

func (r *postgresCategoryRepository) GetActiveCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := r.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("category %d: %w", id, domain.ErrInvalidCategory)
		}
		return nil, err
	}
	if !category.Active {
		r.log.Warnf("Category %d is inactive", id)
		return nil, fmt.Errorf("category %d: %w", id, domain.ErrInvalidCategory)
	}
	return category, nil
}

func (r *postgresCategoryRepository) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	category := &domain.Category{}
	err := r.q.QueryRowContext(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name, active`,
		id, name,
	).Scan(&category.ID, &category.Name, &category.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Category with ID %d not found for update", id)
			return nil, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Attempted to rename category %d to duplicate name '%s'", id, name)
			return nil, fmt.Errorf("category '%s': %w", name, domain.ErrDuplicate)
		}
		r.log.Errorf("Failed to update category ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update category: %w", err)
	}
	r.log.Infof("Category updated successfully with ID: %d", id)
	return category, nil
}

func (r *postgresCategoryRepository) DeactivateCategory(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `UPDATE categories SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Failed to deactivate category ID %d: %v", id, err)
		return fmt.Errorf("could not deactivate category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm category deactivation: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Attempted to deactivate non-existent category ID %d", id)
		return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	r.log.Infof("Category deactivated successfully with ID: %d", id)
	return nil
}

func (r *postgresCategoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, active FROM categories WHERE active = TRUE ORDER BY id ASC`)
	if err != nil {
		r.log.Errorf("Failed to list categories: %v", err)
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Active); err != nil {
			r.log.Errorf("Failed to scan category row: %v", err)
			return nil, fmt.Errorf("error scanning category data: %w", err)
		}
		categories = append(categories, category)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during categories list iteration: %v", err)
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
