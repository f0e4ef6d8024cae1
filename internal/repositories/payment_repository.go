package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"resto_backend/internal/models"
)

// PaymentRepository defines the interface for payment persistence. A payment
// is one-to-one with its order; the upsert is the single update-in-place
// exception in the data model, and it refuses to touch a settled payment.
type PaymentRepository interface {
	GetPaymentByOrderID(orderID string) (*models.Payment, error)
	GetPaymentForUpdate(executor SQLExecutor, orderID string) (*models.Payment, error)
	UpsertPayment(executor SQLExecutor, payment *models.Payment) error
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, order_id, method, amount, status, transaction_id, paid_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...interface{}) error }, p *models.Payment) error {
	return row.Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status,
		&p.TransactionID, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *paymentRepository) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	err := scanPayment(r.db.QueryRow(query, orderID), payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting payment for order %s: %v", ErrDatabaseError, orderID, err)
	}
	return payment, nil
}

func (r *paymentRepository) GetPaymentForUpdate(executor SQLExecutor, orderID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 FOR UPDATE`
	err := scanPayment(executor.QueryRow(query, orderID), payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking payment for order %s: %v", ErrDatabaseError, orderID, err)
	}
	return payment, nil
}

// UpsertPayment inserts the payment or overwrites an existing unpaid
// attempt. The conflict clause never rewrites a PAID row; in that case
// ErrPaymentImmutable is returned and nothing is written.
func (r *paymentRepository) UpsertPayment(executor SQLExecutor, payment *models.Payment) error {
	query := `INSERT INTO payments (id, order_id, method, amount, status, transaction_id, paid_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (order_id) DO UPDATE
	            SET method = EXCLUDED.method,
	                amount = EXCLUDED.amount,
	                status = EXCLUDED.status,
	                transaction_id = EXCLUDED.transaction_id,
	                paid_at = EXCLUDED.paid_at,
	                updated_at = EXCLUDED.updated_at
	            WHERE payments.status <> 'PAID'
	          RETURNING id, created_at`

	now := time.Now()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	err := executor.QueryRow(query,
		payment.ID, payment.OrderID, payment.Method, payment.Amount, payment.Status,
		payment.TransactionID, payment.PaidAt, payment.CreatedAt, payment.UpdatedAt,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentImmutable
		}
		return fmt.Errorf("%w: upserting payment for order %s: %v", ErrDatabaseError, payment.OrderID, err)
	}
	return nil
}
