package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"resto_backend/internal/models"
)

// ProductRepository defines the interface for product and stock operations.
// Stock is only ever mutated through AdjustStock, inside a transaction.
type ProductRepository interface {
	CreateProduct(executor SQLExecutor, product *models.Product) (string, error)
	GetProductByID(productID string) (*models.Product, error)
	GetProductForUpdate(executor SQLExecutor, productID string) (*models.Product, error)
	ListProducts(filters models.ProductFilters) ([]models.Product, error)
	UpdateProduct(executor SQLExecutor, product *models.Product) error
	DeleteProduct(executor SQLExecutor, productID string) error
	AdjustStock(executor SQLExecutor, productID string, delta int) error
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, image, category, stock, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }, p *models.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category,
		&p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *productRepository) CreateProduct(executor SQLExecutor, product *models.Product) (string, error) {
	query := `INSERT INTO products (id, name, description, price, image, category, stock, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	err := executor.QueryRow(query,
		product.ID, product.Name, product.Description, product.Price, product.Image,
		product.Category, product.Stock, product.IsActive, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		return "", fmt.Errorf("%w: creating product: %v", ErrDatabaseError, err)
	}
	return product.ID, nil
}

func (r *productRepository) GetProductByID(productID string) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	err := scanProduct(r.db.QueryRow(query, productID), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product %s: %v", ErrDatabaseError, productID, err)
	}
	return product, nil
}

// GetProductForUpdate reads a product with a row lock so that the stock
// check and the subsequent decrement are indivisible with respect to
// concurrent reservations on the same product.
func (r *productRepository) GetProductForUpdate(executor SQLExecutor, productID string) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	err := scanProduct(executor.QueryRow(query, productID), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking product %s: %v", ErrDatabaseError, productID, err)
	}
	return product, nil
}

func (r *productRepository) ListProducts(filters models.ProductFilters) ([]models.Product, error) {
	products := []models.Product{}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + productColumns + ` FROM products`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCounter))
		args = append(args, *filters.Category)
		argCounter++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argCounter))
		args = append(args, *filters.IsActive)
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC")

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating product rows: %v", ErrDatabaseError, err)
	}
	return products, nil
}

func (r *productRepository) UpdateProduct(executor SQLExecutor, product *models.Product) error {
	query := `UPDATE products
	          SET name = $1, description = $2, price = $3, image = $4, category = $5, is_active = $6, updated_at = $7
	          WHERE id = $8`
	product.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		product.Name, product.Description, product.Price, product.Image,
		product.Category, product.IsActive, product.UpdatedAt, product.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating product %s: %v", ErrDatabaseError, product.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for product update %s: %v", ErrDatabaseError, product.ID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(executor SQLExecutor, productID string) error {
	result, err := executor.Exec(`DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("%w: deleting product %s: %v", ErrDatabaseError, productID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for product delete %s: %v", ErrDatabaseError, productID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a signed stock delta. The guard in the WHERE clause
// keeps stock from ever going negative even if a concurrent transaction
// slipped between the caller's check and this write.
func (r *productRepository) AdjustStock(executor SQLExecutor, productID string, delta int) error {
	query := `UPDATE products SET stock = stock + $1, updated_at = $2 WHERE id = $3 AND stock + $1 >= 0`
	result, err := executor.Exec(query, delta, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("%w: adjusting stock for product %s: %v", ErrDatabaseError, productID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for stock adjustment %s: %v", ErrDatabaseError, productID, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := executor.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: checking product %s after rejected stock adjustment: %v", ErrDatabaseError, productID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStockConflict
	}
	return nil
}
