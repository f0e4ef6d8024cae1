package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"resto_backend/internal/models"
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	// Order methods
	CreateOrder(executor SQLExecutor, order *models.Order) (string, error)
	GetOrderByID(orderID string) (*models.Order, error)
	GetOrderForUpdate(executor SQLExecutor, orderID string) (*models.Order, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	// UpdateOrderStatus is a compare-and-swap: the row is only written if it
	// is still in fromStatus. ErrStatusConflict means it was not.
	UpdateOrderStatus(executor SQLExecutor, orderID string, fromStatus, toStatus models.OrderStatus, updatedAt time.Time) error

	// OrderLine methods
	CreateOrderLine(executor SQLExecutor, line *models.OrderLine) (string, error)
	GetOrderLines(orderID string) ([]models.OrderLine, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, status, fulfillment_type, table_number, notes, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }, o *models.Order) error {
	return row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.FulfillmentType,
		&o.TableNumber, &o.Notes, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
}

// --- Order Methods ---

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (string, error) {
	query := `INSERT INTO orders
	            (id, order_number, user_id, status, fulfillment_type, table_number, notes,
	             total_amount, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	err := executor.QueryRow(query,
		order.ID, order.OrderNumber, order.UserID, order.Status, order.FulfillmentType,
		order.TableNumber, order.Notes, order.TotalAmount, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", fmt.Errorf("%w: order number %s: %v", ErrDuplicateKey, order.OrderNumber, err)
		}
		return "", fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(orderID string) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	err := scanOrder(r.db.QueryRow(query, orderID), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order %s: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

// GetOrderForUpdate reads an order with a row lock, serializing concurrent
// payment and status writes against the same order.
func (r *orderRepository) GetOrderForUpdate(executor SQLExecutor, orderID string) (*models.Order, error) {
	order := &models.Order{}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	err := scanOrder(executor.QueryRow(query, orderID), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking order %s: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT
            o.id, o.order_number, o.user_id, o.status, o.fulfillment_type, o.table_number,
            o.notes, o.total_amount, o.created_at, o.updated_at,
            u.name AS user_name,
            COUNT(*) OVER() AS total_count
        FROM orders o
        JOIN users u ON o.user_id = u.id
    `)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", argCounter))
		args = append(args, *filters.UserID)
		argCounter++
	}
	if len(filters.Statuses) > 0 {
		statuses := make([]string, 0, len(filters.Statuses))
		for _, s := range filters.Statuses {
			statuses = append(statuses, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("o.status = ANY($%d)", argCounter))
		args = append(args, pq.Array(statuses))
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	if filters.OldestFirst {
		queryBuilder.WriteString(" ORDER BY o.created_at ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY o.created_at DESC")
	}

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, (filters.Page-1)*filters.PageSize)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		var userName sql.NullString

		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.FulfillmentType, &o.TableNumber,
			&o.Notes, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
			&userName,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		if userName.Valid {
			name := userName.String
			o.UserName = &name
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) UpdateOrderStatus(executor SQLExecutor, orderID string, fromStatus, toStatus models.OrderStatus, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := executor.Exec(query, toStatus, updatedAt, orderID, fromStatus)
	if err != nil {
		return fmt.Errorf("%w: updating order status for %s: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order status update %s: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := executor.QueryRow(`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: checking order %s after rejected status update: %v", ErrDatabaseError, orderID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// --- OrderLine Methods ---

func (r *orderRepository) CreateOrderLine(executor SQLExecutor, line *models.OrderLine) (string, error) {
	query := `INSERT INTO order_lines (id, order_id, product_id, quantity, price, subtotal)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`

	err := executor.QueryRow(query,
		line.ID, line.OrderID, line.ProductID, line.Quantity, line.Price, line.Subtotal,
	).Scan(&line.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return "", fmt.Errorf("%w: creating order line (constraint: %s): %v", ErrDatabaseError, pqErr.Constraint, err)
		}
		return "", fmt.Errorf("%w: creating order line: %v", ErrDatabaseError, err)
	}
	return line.ID, nil
}

func (r *orderRepository) GetOrderLines(orderID string) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	query := `
		SELECT
		    ol.id, ol.order_id, ol.product_id, ol.quantity, ol.price, ol.subtotal,
		    p.name AS product_name, p.category AS product_category
		FROM order_lines ol
		JOIN products p ON ol.product_id = p.id
		WHERE ol.order_id = $1
		ORDER BY ol.id`

	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order lines for order %s: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		var productName string
		var productCategory models.ProductCategory

		err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.Price, &line.Subtotal,
			&productName, &productCategory,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning order line for order %s: %v", ErrDatabaseError, orderID, err)
		}

		line.Product = &models.Product{ID: line.ProductID, Name: productName, Category: productCategory}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order lines for order %s: %v", ErrDatabaseError, orderID, err)
	}
	return lines, nil
}
