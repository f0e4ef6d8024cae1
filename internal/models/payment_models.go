package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of accepted payment methods.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentQRIS PaymentMethod = "QRIS"
	PaymentEDC  PaymentMethod = "EDC"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentQRIS, PaymentEDC:
		return true
	default:
		return false
	}
}

// RequiresTransactionID reports whether the method is settled through an
// external terminal and needs a transaction identifier.
func (m PaymentMethod) RequiresTransactionID() bool {
	return m == PaymentQRIS || m == PaymentEDC
}

// PaymentStatus tags a payment as settled or not. A PAID payment is
// immutable; the upsert path only ever overwrites an unpaid attempt.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Payment records the single payment attempt attached to an order.
// One payment per order; Amount always equals the order total at write time.
type Payment struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id" db:"order_id"`
	Method        PaymentMethod   `json:"method" db:"method"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        PaymentStatus   `json:"status" db:"status"`
	TransactionID *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	PaidAt        *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
