package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the kitchen workflow state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// IsValid reports whether s is a known order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is legal from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// validNext is the directed transition graph. Status only moves forward;
// CANCELLED is reachable while the kitchen has not started preparing.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing: {StatusReady: true},
	StatusReady:     {StatusCompleted: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// FulfillmentType says whether an order is consumed on-site or taken away.
type FulfillmentType string

const (
	FulfillmentDineIn   FulfillmentType = "DINE_IN"
	FulfillmentTakeaway FulfillmentType = "TAKEAWAY"
)

// IsValid reports whether f is a known fulfillment type.
func (f FulfillmentType) IsValid() bool {
	return f == FulfillmentDineIn || f == FulfillmentTakeaway
}

// Order is the aggregate created by the reservation transaction. Lines,
// prices and the total are immutable after creation; only Status moves,
// and only along the edges in validNext.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	UserID          string          `json:"user_id" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	FulfillmentType FulfillmentType `json:"fulfillment_type" db:"fulfillment_type"`
	TableNumber     *string         `json:"table_number,omitempty" db:"table_number"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	Lines           []OrderLine     `json:"items"`
	Payment         *Payment        `json:"payment,omitempty"`
	UserName        *string         `json:"user_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderLine is one cart line frozen at order time. Price is the product's
// unit price captured at reservation, so later price edits never change
// historical orders.
type OrderLine struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id" db:"order_id"`
	ProductID string          `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Subtotal  decimal.Decimal `json:"subtotal" db:"subtotal"`
	Product   *Product        `json:"product,omitempty"`
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	UserID      *string
	Statuses    []OrderStatus
	OldestFirst bool
	Page        int
	PageSize    int
}
