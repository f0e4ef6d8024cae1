package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"resto_backend/internal/models"
)

func TestCreateProduct_Validation(t *testing.T) {
	env := setup(t)

	cases := []struct {
		name string
		req  CreateProductRequest
	}{
		{"empty name", CreateProductRequest{Price: decimal.NewFromInt(1000)}},
		{"zero price", CreateProductRequest{Name: "X", Price: decimal.Zero}},
		{"negative price", CreateProductRequest{Name: "X", Price: decimal.NewFromInt(-5)}},
		{"negative stock", CreateProductRequest{Name: "X", Price: decimal.NewFromInt(1000), Stock: -1}},
		{"unknown category", CreateProductRequest{Name: "X", Price: decimal.NewFromInt(1000), Category: "DESSERT"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.products.CreateProduct(tc.req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateProduct_SeedsInitialStockMovement(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Klepon", 10000, 12)

	movements, total, err := env.products.GetStockMovements(&p.ID, 1, 10)
	if err != nil {
		t.Fatalf("get movements: %v", err)
	}
	if total != 1 || len(movements) != 1 {
		t.Fatalf("expected exactly one seed movement, got %d", total)
	}
	if movements[0].Type != models.MovementIn || movements[0].Quantity != 12 {
		t.Fatalf("expected IN 12, got %s %d", movements[0].Type, movements[0].Quantity)
	}

	// zero initial stock must not produce a ledger row
	empty := seedProduct(t, env, "Kosong", 5000, 0)
	_, total, err = env.products.GetStockMovements(&empty.ID, 1, 10)
	if err != nil {
		t.Fatalf("get movements: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no movement for zero stock, got %d", total)
	}
}

func TestUpdateProduct_PreservesStock(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Lumpia", 15000, 7)

	updated, err := env.products.UpdateProduct(p.ID, UpdateProductRequest{
		Name:     "Lumpia Semarang",
		Price:    decimal.NewFromInt(17000),
		Category: models.CategoryFood,
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Name != "Lumpia Semarang" || !updated.Price.Equal(decimal.NewFromInt(17000)) {
		t.Fatalf("fields not applied: %s %s", updated.Name, updated.Price)
	}
	if updated.Stock != 7 {
		t.Fatalf("update must not touch stock, got %d", updated.Stock)
	}

	if _, err := env.products.UpdateProduct("missing", UpdateProductRequest{
		Name:  "X",
		Price: decimal.NewFromInt(1),
	}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestRestock(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Pisang Goreng", 9000, 3)

	updated, err := env.products.Restock(p.ID, RestockRequest{Quantity: 5, Reason: "Morning delivery"})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if updated.Stock != 8 {
		t.Fatalf("expected stock 8 after restock, got %d", updated.Stock)
	}

	movements, _, err := env.products.GetStockMovements(&p.ID, 1, 10)
	if err != nil {
		t.Fatalf("get movements: %v", err)
	}
	latest := movements[0]
	if latest.Type != models.MovementIn || latest.Quantity != 5 {
		t.Fatalf("expected IN 5, got %s %d", latest.Type, latest.Quantity)
	}
	if latest.Description == nil || *latest.Description != "Morning delivery" {
		t.Fatalf("restock reason not recorded: %v", latest.Description)
	}

	if _, err := env.products.Restock(p.ID, RestockRequest{Quantity: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero quantity, got %v", err)
	}
	if _, err := env.products.Restock("missing", RestockRequest{Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestGetProducts_Filters(t *testing.T) {
	env := setup(t)
	seedProduct(t, env, "Nasi Goreng", 50000, 5)
	drink, err := env.products.CreateProduct(CreateProductRequest{
		Name:     "Es Jeruk",
		Price:    decimal.NewFromInt(10000),
		Category: models.CategoryDrink,
		Stock:    5,
	})
	if err != nil {
		t.Fatalf("create drink: %v", err)
	}
	inactive := false
	if _, err := env.products.UpdateProduct(drink.ID, UpdateProductRequest{
		Name:     drink.Name,
		Price:    drink.Price,
		Category: drink.Category,
		IsActive: &inactive,
	}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	drinkCat := models.CategoryDrink
	byCategory, err := env.products.GetProducts(models.ProductFilters{Category: &drinkCat})
	if err != nil {
		t.Fatalf("filter by category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].ID != drink.ID {
		t.Fatalf("category filter wrong: %d results", len(byCategory))
	}

	active := true
	byActive, err := env.products.GetProducts(models.ProductFilters{IsActive: &active})
	if err != nil {
		t.Fatalf("filter by active: %v", err)
	}
	if len(byActive) != 1 || byActive[0].Name != "Nasi Goreng" {
		t.Fatalf("active filter wrong: %d results", len(byActive))
	}
}

func TestDeleteProduct(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Serabi", 8000, 2)

	if err := env.products.DeleteProduct(p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.products.GetProductByID(p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
	if err := env.products.DeleteProduct(p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on double delete, got %v", err)
	}
}

func TestGetAvailableStock(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Kerupuk", 3000, 42)

	stock, err := env.products.GetAvailableStock(p.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock != 42 {
		t.Fatalf("expected 42, got %d", stock)
	}
}

func TestGetStockMovements_Pagination(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Onde Onde", 7000, 1)
	for i := 0; i < 4; i++ {
		if _, err := env.products.Restock(p.ID, RestockRequest{Quantity: 1}); err != nil {
			t.Fatalf("restock %d: %v", i, err)
		}
	}

	page1, total, err := env.products.GetStockMovements(&p.ID, 1, 3)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if total != 5 || len(page1) != 3 {
		t.Fatalf("expected total 5, page of 3; got %d, %d", total, len(page1))
	}
	page2, _, err := env.products.GetStockMovements(&p.ID, 2, 3)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 on page 2, got %d", len(page2))
	}
}
