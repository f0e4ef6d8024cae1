package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"resto_backend/internal/models"
	"resto_backend/internal/repositories"
	"resto_backend/pkg/utils"
)

var ErrValidation = errors.New("validation failed")

// --- DTOs ---

// CreateProductRequest is used for adding a menu item.
type CreateProductRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description *string                `json:"description"`
	Price       decimal.Decimal        `json:"price" binding:"required"`
	Image       *string                `json:"image"`
	Category    models.ProductCategory `json:"category"`
	Stock       int                    `json:"stock"`
}

// UpdateProductRequest is used for editing a menu item. Stock is absent on
// purpose: stock only moves through the reservation and restock paths.
type UpdateProductRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description *string                `json:"description"`
	Price       decimal.Decimal        `json:"price" binding:"required"`
	Image       *string                `json:"image"`
	Category    models.ProductCategory `json:"category"`
	IsActive    *bool                  `json:"is_active"`
}

// RestockRequest is used for administrative stock additions.
type RestockRequest struct {
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

// --- ProductService Interface ---

type ProductService interface {
	CreateProduct(req CreateProductRequest) (*models.Product, error)
	GetProducts(filters models.ProductFilters) ([]models.Product, error)
	GetProductByID(productID string) (*models.Product, error)
	UpdateProduct(productID string, req UpdateProductRequest) (*models.Product, error)
	DeleteProduct(productID string) error
	GetAvailableStock(productID string) (int, error)
	Restock(productID string, req RestockRequest) (*models.Product, error)
	GetStockMovements(productID *string, page, pageSize int) ([]models.StockMovement, int, error)
}

type productService struct {
	productRepo repositories.ProductRepository
	stockRepo   repositories.StockMovementRepository
	tx          repositories.TxManager
}

// NewProductService creates a new instance of ProductService.
func NewProductService(
	pr repositories.ProductRepository,
	sr repositories.StockMovementRepository,
	tx repositories.TxManager,
) ProductService {
	return &productService{
		productRepo: pr,
		stockRepo:   sr,
		tx:          tx,
	}
}

func (s *productService) CreateProduct(req CreateProductRequest) (*models.Product, error) {
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Price.IsNegative() || req.Price.IsZero() {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	if !req.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, req.Category)
	}

	product := models.Product{
		ID:          utils.NewID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Stock:       req.Stock,
		IsActive:    true,
	}
	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		if _, repoErr := s.productRepo.CreateProduct(executor, &product); repoErr != nil {
			return fmt.Errorf("failed to create product: %w", repoErr)
		}
		if product.Stock > 0 {
			// Seed the ledger so initial stock is auditable like any other movement.
			movement := models.StockMovement{
				ID:          utils.NewID(),
				ProductID:   product.ID,
				Quantity:    product.Stock,
				Type:        models.MovementIn,
				Description: utils.NewNullString("Initial stock"),
			}
			if _, repoErr := s.stockRepo.CreateMovement(executor, &movement); repoErr != nil {
				return fmt.Errorf("failed to record initial stock movement: %w", repoErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *productService) GetProducts(filters models.ProductFilters) ([]models.Product, error) {
	products, err := s.productRepo.ListProducts(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) GetProductByID(productID string) (*models.Product, error) {
	product, err := s.productRepo.GetProductByID(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	return product, nil
}

func (s *productService) UpdateProduct(productID string, req UpdateProductRequest) (*models.Product, error) {
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Price.IsNegative() || req.Price.IsZero() {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if !req.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, req.Category)
	}

	var updated *models.Product
	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		product, repoErr := s.productRepo.GetProductForUpdate(executor, productID)
		if repoErr != nil {
			if errors.Is(repoErr, repositories.ErrNotFound) {
				return fmt.Errorf("%w: product %s", ErrProductNotFound, productID)
			}
			return fmt.Errorf("failed to fetch product %s: %w", productID, repoErr)
		}

		product.Name = req.Name
		product.Description = req.Description
		product.Price = req.Price
		product.Image = req.Image
		product.Category = req.Category
		if req.IsActive != nil {
			product.IsActive = *req.IsActive
		}

		if repoErr := s.productRepo.UpdateProduct(executor, product); repoErr != nil {
			return fmt.Errorf("failed to update product %s: %w", productID, repoErr)
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *productService) DeleteProduct(productID string) error {
	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		return s.productRepo.DeleteProduct(executor, productID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: product %s", ErrProductNotFound, productID)
		}
		return fmt.Errorf("failed to delete product %s: %w", productID, err)
	}
	return nil
}

// GetAvailableStock reads the current stock count; no side effect.
func (s *productService) GetAvailableStock(productID string) (int, error) {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// Restock increments stock and appends an IN movement, atomically.
func (s *productService) Restock(productID string, req RestockRequest) (*models.Product, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: restock quantity must be positive", ErrValidation)
	}

	var updated *models.Product
	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		product, repoErr := s.productRepo.GetProductForUpdate(executor, productID)
		if repoErr != nil {
			if errors.Is(repoErr, repositories.ErrNotFound) {
				return fmt.Errorf("%w: product %s", ErrProductNotFound, productID)
			}
			return fmt.Errorf("failed to fetch product %s: %w", productID, repoErr)
		}

		if repoErr := s.productRepo.AdjustStock(executor, productID, req.Quantity); repoErr != nil {
			return fmt.Errorf("failed to restock product %s: %w", productID, repoErr)
		}

		reason := req.Reason
		if utils.IsEmpty(reason) {
			reason = "Restock"
		}
		movement := models.StockMovement{
			ID:          utils.NewID(),
			ProductID:   productID,
			Quantity:    req.Quantity,
			Type:        models.MovementIn,
			Description: utils.NewNullString(reason),
		}
		if _, repoErr := s.stockRepo.CreateMovement(executor, &movement); repoErr != nil {
			return fmt.Errorf("failed to record restock movement for product %s: %w", productID, repoErr)
		}

		product.Stock += req.Quantity
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *productService) GetStockMovements(productID *string, page, pageSize int) ([]models.StockMovement, int, error) {
	movements, totalCount, err := s.stockRepo.GetMovements(productID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get stock movements: %w", err)
	}
	return movements, totalCount, nil
}
