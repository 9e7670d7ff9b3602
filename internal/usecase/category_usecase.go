package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type CategoryUseCase interface {
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type categoryUseCase struct {
	categoryRepo domain.CategoryRepository
	txManager    domain.TxManager
	// fallbackCategoryID is where products of a deleted category are moved.
	// Injected from configuration, never looked up by name at call time.
	fallbackCategoryID int64
	log                *logrus.Logger
}

func NewCategoryUseCase(cRepo domain.CategoryRepository, txManager domain.TxManager, fallbackCategoryID int64, logger *logrus.Logger) CategoryUseCase {
	return &categoryUseCase{
		categoryRepo:       cRepo,
		txManager:          txManager,
		fallbackCategoryID: fallbackCategoryID,
		log:                logger,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		uc.log.Warn("Use Case: Attempted to create category with empty name")
		return nil, fmt.Errorf("category name cannot be empty: %w", domain.ErrValidation)
	}

	category, err := uc.categoryRepo.CreateCategory(ctx, &domain.Category{Name: name})
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create category '%s': %v", name, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Category '%s' created with ID %d", name, category.ID)
	return category, nil
}

func (uc *categoryUseCase) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid category ID: %w", domain.ErrValidation)
	}
	return uc.categoryRepo.GetCategoryByID(ctx, id)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid category ID for update: %w", domain.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty: %w", domain.ErrValidation)
	}
	category, err := uc.categoryRepo.UpdateCategory(ctx, id, name)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to update category ID %d: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Category %d renamed to '%s'", id, name)
	return category, nil
}

// DeleteCategory reassigns every product in the category to the fallback
// category and marks the category inactive, all in one transaction so a
// partial reassignment is never observable.
func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid category ID for deletion: %w", domain.ErrValidation)
	}
	if id == uc.fallbackCategoryID {
		uc.log.Warnf("Use Case: Refusing to delete the fallback category (ID %d)", id)
		return fmt.Errorf("the fallback category cannot be deleted: %w", domain.ErrValidation)
	}

	err := uc.txManager.WithinTx(ctx, func(r domain.Repositories) error {
		if _, err := r.Categories.GetCategoryByID(ctx, id); err != nil {
			return err
		}
		if _, err := r.Categories.GetActiveCategory(ctx, uc.fallbackCategoryID); err != nil {
			uc.log.Errorf("Use Case: Fallback category %d is missing or inactive: %v", uc.fallbackCategoryID, err)
			return err
		}
		moved, err := r.Products.ReassignCategory(ctx, id, uc.fallbackCategoryID)
		if err != nil {
			return err
		}
		uc.log.Infof("Use Case: Reassigned %d products from category %d to fallback %d", moved, id, uc.fallbackCategoryID)
		return r.Categories.DeactivateCategory(ctx, id)
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to delete category ID %d: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: Category %d deactivated and products reassigned", id)
	return nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return uc.categoryRepo.ListCategories(ctx)
}
