package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"resto_backend/internal/models"
)

// StockMovementRepository defines the interface for the append-only stock
// ledger. Movements are only ever inserted, never updated or deleted.
type StockMovementRepository interface {
	CreateMovement(executor SQLExecutor, movement *models.StockMovement) (string, error)
	GetMovements(productID *string, page, pageSize int) ([]models.StockMovement, int, error)
}

type stockMovementRepository struct {
	db *sql.DB
}

// NewStockMovementRepository creates a new instance of StockMovementRepository.
func NewStockMovementRepository(db *sql.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) CreateMovement(executor SQLExecutor, movement *models.StockMovement) (string, error) {
	query := `INSERT INTO stock_movements (id, product_id, quantity, type, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}

	err := executor.QueryRow(query,
		movement.ID, movement.ProductID, movement.Quantity, movement.Type,
		movement.Description, movement.CreatedAt,
	).Scan(&movement.ID)
	if err != nil {
		return "", fmt.Errorf("%w: creating stock movement: %v", ErrDatabaseError, err)
	}
	return movement.ID, nil
}

func (r *stockMovementRepository) GetMovements(productID *string, page, pageSize int) ([]models.StockMovement, int, error) {
	movements := []models.StockMovement{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    sm.id, sm.product_id, sm.quantity, sm.type, sm.description, sm.created_at,
	    p.name AS product_name,
	    COUNT(*) OVER() AS total_count
	  FROM stock_movements sm
	  JOIN products p ON sm.product_id = p.id`)

	var args []interface{}
	argCounter := 1
	if productID != nil {
		queryBuilder.WriteString(fmt.Sprintf(" WHERE sm.product_id = $%d", argCounter))
		args = append(args, *productID)
		argCounter++
	}

	queryBuilder.WriteString(" ORDER BY sm.created_at DESC, sm.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting stock movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movement models.StockMovement
		var productName string

		if err := rows.Scan(
			&movement.ID, &movement.ProductID, &movement.Quantity, &movement.Type,
			&movement.Description, &movement.CreatedAt,
			&productName,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning stock movement: %v", ErrDatabaseError, err)
		}

		movement.Product = &models.Product{ID: movement.ProductID, Name: productName}
		movements = append(movements, movement)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating stock movements: %v", ErrDatabaseError, err)
	}

	return movements, totalCount, nil
}
