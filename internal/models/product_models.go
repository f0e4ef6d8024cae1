package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory groups menu items. An empty value means uncategorized.
type ProductCategory string

const (
	CategoryFood  ProductCategory = "FOOD"
	CategoryDrink ProductCategory = "DRINK"
)

// IsValid reports whether c is a known category or unset.
func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryFood, CategoryDrink, "":
		return true
	default:
		return false
	}
}

// Product represents a menu item. Stock is never assigned directly outside
// the reservation and restock paths.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Image       *string         `json:"image,omitempty" db:"image"`
	Category    ProductCategory `json:"category" db:"category"`
	Stock       int             `json:"stock" db:"stock"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ProductFilters defines the available filters for querying the catalog.
type ProductFilters struct {
	Category *ProductCategory
	IsActive *bool
}

// MovementType is the direction of a stock movement.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// StockMovement is one row of the append-only stock ledger. Quantity is
// always positive; Type carries the direction. Rows are never updated or
// deleted, so the sum of movements plus the initial stock always equals the
// product's current stock.
type StockMovement struct {
	ID          string       `json:"id"`
	ProductID   string       `json:"product_id" db:"product_id"`
	Quantity    int          `json:"quantity" db:"quantity"`
	Type        MovementType `json:"type" db:"type"`
	Description *string      `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	Product     *Product     `json:"product,omitempty"`
}
