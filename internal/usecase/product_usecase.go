package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
)

type ProductUseCase interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	// ListOutOfStock reports active products with exhausted stock.
	ListOutOfStock(ctx context.Context) ([]domain.Product, error)
	// ListBestSellers reports active products ranked by total billed quantity.
	ListBestSellers(ctx context.Context, limit int) ([]domain.BestSeller, error)
}

type productUseCase struct {
	productRepo  domain.ProductRepository
	categoryRepo domain.CategoryRepository
	log          *logrus.Logger
}

func NewProductUseCase(pRepo domain.ProductRepository, cRepo domain.CategoryRepository, logger *logrus.Logger) ProductUseCase {
	return &productUseCase{
		productRepo:  pRepo,
		categoryRepo: cRepo,
		log:          logger,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		uc.log.Warn("Use Case: Attempted to create product with empty name")
		return nil, fmt.Errorf("product name cannot be empty: %w", domain.ErrValidation)
	}
	if product.Price < 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with negative price: %f", product.Name, product.Price)
		return nil, fmt.Errorf("product price cannot be negative: %w", domain.ErrValidation)
	}
	if product.Stock < 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with negative stock: %d", product.Name, product.Stock)
		return nil, fmt.Errorf("product stock cannot be negative: %w", domain.ErrValidation)
	}

	// Every product must reference an existing, active category.
	if _, err := uc.categoryRepo.GetActiveCategory(ctx, product.CategoryID); err != nil {
		uc.log.Warnf("Use Case: Category %d rejected during product creation: %v", product.CategoryID, err)
		return nil, err
	}

	createdProduct, err := uc.productRepo.CreateProduct(ctx, product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Product '%s' created successfully with ID %d", createdProduct.Name, createdProduct.ID)
	return createdProduct, nil
}

func (uc *productUseCase) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid product ID: %w", domain.ErrValidation)
	}
	return uc.productRepo.GetProductByID(ctx, id)
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, id int64, updates map[string]interface{}) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid product ID for update: %w", domain.ErrValidation)
	}
	if len(updates) == 0 {
		return uc.productRepo.GetProductByID(ctx, id)
	}

	validUpdates := make(map[string]interface{})
	for key, value := range updates {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("product name cannot be empty if provided: %w", domain.ErrValidation)
			}
			validUpdates[key] = strings.TrimSpace(name)
		case "description":
			description, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("product description must be a string: %w", domain.ErrValidation)
			}
			validUpdates[key] = description
		case "price":
			price, ok := value.(float64)
			if !ok || price < 0 {
				return nil, fmt.Errorf("product price cannot be negative if provided: %w", domain.ErrValidation)
			}
			validUpdates[key] = price
		case "stock":
			// JSON numbers arrive as float64.
			stockFloat, ok := value.(float64)
			if !ok || stockFloat < 0 || stockFloat != float64(int(stockFloat)) {
				return nil, fmt.Errorf("product stock must be a non-negative integer if provided: %w", domain.ErrValidation)
			}
			validUpdates[key] = int(stockFloat)
		case "category_id":
			idFloat, ok := value.(float64)
			if !ok || idFloat != float64(int64(idFloat)) {
				return nil, fmt.Errorf("category_id must be an integer if provided: %w", domain.ErrValidation)
			}
			categoryID := int64(idFloat)
			if _, err := uc.categoryRepo.GetActiveCategory(ctx, categoryID); err != nil {
				uc.log.Warnf("Use Case: Category %d rejected during product update: %v", categoryID, err)
				return nil, err
			}
			validUpdates[key] = categoryID
		default:
			uc.log.Warnf("Use Case: Ignoring unknown product field '%s' in update for ID %d", key, id)
		}
	}

	updatedProduct, err := uc.productRepo.UpdateProduct(ctx, id, validUpdates)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to update product ID %d: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Product %d updated successfully", id)
	return updatedProduct, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid product ID for deletion: %w", domain.ErrValidation)
	}
	// Soft delete: the product stays referenced by historical bill lines.
	if err := uc.productRepo.DeactivateProduct(ctx, id); err != nil {
		uc.log.Warnf("Use Case: Failed to deactivate product ID %d: %v", id, err)
		return err
	}
	uc.log.Infof("Use Case: Product %d deactivated", id)
	return nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return uc.productRepo.ListProducts(ctx, filter)
}

func (uc *productUseCase) ListOutOfStock(ctx context.Context) ([]domain.Product, error) {
	return uc.productRepo.ListOutOfStock(ctx)
}

func (uc *productUseCase) ListBestSellers(ctx context.Context, limit int) ([]domain.BestSeller, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return uc.productRepo.ListBestSellers(ctx, limit)
}
