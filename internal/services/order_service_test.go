package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"resto_backend/internal/models"
	"resto_backend/internal/repositories"
)

type testEnv struct {
	store    *repositories.MemoryStore
	orders   OrderService
	products ProductService
	payments PaymentService
	auth     AuthService
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	store := repositories.NewMemoryStore()
	return &testEnv{
		store:    store,
		orders:   NewOrderService(store, store, store, store, store),
		products: NewProductService(store, store, store),
		payments: NewPaymentService(store, store, store),
		auth:     NewAuthService(store, store),
	}
}

func seedProduct(t *testing.T, env *testEnv, name string, price int64, stock int) *models.Product {
	t.Helper()
	p, err := env.products.CreateProduct(CreateProductRequest{
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Category: models.CategoryFood,
		Stock:    stock,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

func strPtr(s string) *string { return &s }

func customer(id string) Principal {
	return Principal{UserID: id, Role: models.RoleUser}
}

func TestPlaceOrder_Success(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Nasi Goreng", 50000, 10)

	order, err := env.orders.PlaceOrder(customer("u1"), PlaceOrderRequest{
		Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 2}},
		FulfillmentType: models.FulfillmentDineIn,
		TableNumber:     strPtr("5"),
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.Status != models.StatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected total 100000, got %s", order.TotalAmount)
	}
	if len(order.OrderNumber) == 0 || order.OrderNumber[:4] != "ORD-" {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Lines))
	}
	line := order.Lines[0]
	if !line.Price.Equal(decimal.NewFromInt(50000)) || !line.Subtotal.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("line price/subtotal wrong: %s / %s", line.Price, line.Subtotal)
	}

	after, err := env.products.GetProductByID(p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 8 {
		t.Fatalf("expected stock 8, got %d", after.Stock)
	}

	movements, _, err := env.products.GetStockMovements(&p.ID, 1, 10)
	if err != nil {
		t.Fatalf("get movements: %v", err)
	}
	// initial stock IN plus the reservation OUT
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	if movements[0].Type != models.MovementOut || movements[0].Quantity != 2 {
		t.Fatalf("expected OUT 2 as latest movement, got %s %d", movements[0].Type, movements[0].Quantity)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Es Teh", 8000, 1)

	_, err := env.orders.PlaceOrder(customer("u1"), PlaceOrderRequest{
		Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 2}},
		FulfillmentType: models.FulfillmentTakeaway,
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	after, _ := env.products.GetProductByID(p.ID)
	if after.Stock != 1 {
		t.Fatalf("stock must be untouched, got %d", after.Stock)
	}
	_, total, err := env.orders.GetOrders(Principal{UserID: "admin", Role: models.RoleAdmin}, 1, 10)
	if err != nil {
		t.Fatalf("get orders: %v", err)
	}
	if total != 0 {
		t.Fatalf("no order should exist, got %d", total)
	}
}

func TestPlaceOrder_FailingLineRollsBackWholeCart(t *testing.T) {
	env := setup(t)
	p1 := seedProduct(t, env, "Ayam Bakar", 45000, 10)
	p2 := seedProduct(t, env, "Jus Alpukat", 18000, 1)

	_, err := env.orders.PlaceOrder(customer("u1"), PlaceOrderRequest{
		Items: []PlaceOrderLineRequest{
			{ProductID: p1.ID, Quantity: 3},
			{ProductID: p2.ID, Quantity: 2},
		},
		FulfillmentType: models.FulfillmentTakeaway,
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	p1After, _ := env.products.GetProductByID(p1.ID)
	p2After, _ := env.products.GetProductByID(p2.ID)
	if p1After.Stock != 10 || p2After.Stock != 1 {
		t.Fatalf("rollback must leave stock untouched: %d %d", p1After.Stock, p2After.Stock)
	}
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Soto", 25000, 5)

	cases := []struct {
		name string
		req  PlaceOrderRequest
	}{
		{"empty cart", PlaceOrderRequest{FulfillmentType: models.FulfillmentTakeaway}},
		{"zero quantity", PlaceOrderRequest{
			Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 0}},
			FulfillmentType: models.FulfillmentTakeaway,
		}},
		{"negative quantity", PlaceOrderRequest{
			Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: -1}},
			FulfillmentType: models.FulfillmentTakeaway,
		}},
		{"unknown fulfillment", PlaceOrderRequest{
			Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 1}},
			FulfillmentType: "DELIVERY",
		}},
		{"dine-in without table", PlaceOrderRequest{
			Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 1}},
			FulfillmentType: models.FulfillmentDineIn,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.orders.PlaceOrder(customer("u1"), tc.req); !errors.Is(err, ErrInvalidOrderData) {
				t.Fatalf("expected ErrInvalidOrderData, got %v", err)
			}
		})
	}

	after, _ := env.products.GetProductByID(p.ID)
	if after.Stock != 5 {
		t.Fatalf("stock must be untouched after rejected carts, got %d", after.Stock)
	}
}

func TestPlaceOrder_UnknownOrInactiveProduct(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Bakso", 20000, 5)
	inactive := false
	if _, err := env.products.UpdateProduct(p.ID, UpdateProductRequest{
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		IsActive: &inactive,
	}); err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := env.orders.PlaceOrder(customer("u1"), PlaceOrderRequest{
		Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 1}},
		FulfillmentType: models.FulfillmentTakeaway,
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for inactive product, got %v", err)
	}

	_, err = env.orders.PlaceOrder(customer("u1"), PlaceOrderRequest{
		Items:           []PlaceOrderLineRequest{{ProductID: "no-such-id", Quantity: 1}},
		FulfillmentType: models.FulfillmentTakeaway,
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for unknown product, got %v", err)
	}
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Rendang", 60000, 1)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orders.PlaceOrder(customer("u1"), PlaceOrderRequest{
				Items:           []PlaceOrderLineRequest{{ProductID: p.ID, Quantity: 1}},
				FulfillmentType: models.FulfillmentTakeaway,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, conflicted := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != workers-1 {
		t.Fatalf("expected exactly 1 winner, got %d winners, %d conflicts", succeeded, conflicted)
	}

	after, _ := env.products.GetProductByID(p.ID)
	if after.Stock != 0 {
		t.Fatalf("expected stock 0 after the race, got %d", after.Stock)
	}
}

func TestUpdateOrderStatus_HappyPath(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Mie Goreng", 30000, 5)
	order := placeOrder(t, env, "u1", p.ID, 1)

	for _, next := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusCompleted,
	} {
		updated, err := env.orders.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: next})
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("expected %s, got %s", next, updated.Status)
		}
	}
}

func TestUpdateOrderStatus_RejectsIllegalTransitions(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Sate", 35000, 20)

	cases := []struct {
		name    string
		prepare []models.OrderStatus
		attempt models.OrderStatus
	}{
		{"skip ahead from pending", nil, models.StatusReady},
		{"same status", nil, models.StatusPending},
		{"cancel while preparing", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing}, models.StatusCancelled},
		{"reopen completed", []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusCompleted}, models.StatusPreparing},
		{"revive cancelled", []models.OrderStatus{models.StatusCancelled}, models.StatusConfirmed},
		{"unknown status", nil, "SHIPPED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := placeOrder(t, env, "u1", p.ID, 1)
			for _, s := range tc.prepare {
				if _, err := env.orders.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: s}); err != nil {
					t.Fatalf("prepare %s: %v", s, err)
				}
			}
			if _, err := env.orders.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: tc.attempt}); !errors.Is(err, ErrInvalidStatusTransition) {
				t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
			}
		})
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	env := setup(t)
	_, err := env.orders.UpdateOrderStatus("missing", UpdateOrderStatusRequest{Status: models.StatusConfirmed})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateOrderStatus_CancelReleasesStock(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Gado Gado", 28000, 10)
	order := placeOrder(t, env, "u1", p.ID, 4)

	during, _ := env.products.GetProductByID(p.ID)
	if during.Stock != 6 {
		t.Fatalf("expected stock 6 while reserved, got %d", during.Stock)
	}

	cancelled, err := env.orders.UpdateOrderStatus(order.ID, UpdateOrderStatusRequest{Status: models.StatusCancelled})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}

	after, _ := env.products.GetProductByID(p.ID)
	if after.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", after.Stock)
	}

	movements, _, err := env.products.GetStockMovements(&p.ID, 1, 10)
	if err != nil {
		t.Fatalf("get movements: %v", err)
	}
	if movements[0].Type != models.MovementIn || movements[0].Quantity != 4 {
		t.Fatalf("expected IN 4 release movement, got %s %d", movements[0].Type, movements[0].Quantity)
	}
}

func TestGetOrders_Scoping(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Nasi Uduk", 22000, 20)
	placeOrder(t, env, "alice", p.ID, 1)
	placeOrder(t, env, "alice", p.ID, 1)
	placeOrder(t, env, "bob", p.ID, 1)

	_, totalAlice, err := env.orders.GetOrders(customer("alice"), 1, 10)
	if err != nil {
		t.Fatalf("alice orders: %v", err)
	}
	if totalAlice != 2 {
		t.Fatalf("alice should see 2 orders, got %d", totalAlice)
	}

	_, totalAdmin, err := env.orders.GetOrders(Principal{UserID: "root", Role: models.RoleAdmin}, 1, 10)
	if err != nil {
		t.Fatalf("admin orders: %v", err)
	}
	if totalAdmin != 3 {
		t.Fatalf("admin should see 3 orders, got %d", totalAdmin)
	}
}

func TestGetOrderByID_Forbidden(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Pecel Lele", 26000, 5)
	order := placeOrder(t, env, "alice", p.ID, 1)

	if _, err := env.orders.GetOrderByID(customer("bob"), order.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := env.orders.GetOrderByID(Principal{UserID: "root", Role: models.RoleAdmin}, order.ID); err != nil {
		t.Fatalf("admin must see any order: %v", err)
	}
	if _, err := env.orders.GetOrderByID(customer("alice"), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestGetKitchenQueue_OldestFirst(t *testing.T) {
	env := setup(t)
	p := seedProduct(t, env, "Tahu Telor", 24000, 20)

	first := placeOrder(t, env, "u1", p.ID, 1)
	second := placeOrder(t, env, "u2", p.ID, 1)
	third := placeOrder(t, env, "u3", p.ID, 1)

	// only confirmed/preparing orders belong in the queue
	mustTransition(t, env, first.ID, models.StatusConfirmed)
	mustTransition(t, env, third.ID, models.StatusConfirmed)
	mustTransition(t, env, third.ID, models.StatusPreparing)
	_ = second // stays PENDING

	queue, err := env.orders.GetKitchenQueue(1, 10)
	if err != nil {
		t.Fatalf("kitchen queue: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("expected 2 queued orders, got %d", len(queue))
	}
	if queue[0].ID != first.ID || queue[1].ID != third.ID {
		t.Fatalf("queue not oldest first: %s, %s", queue[0].ID, queue[1].ID)
	}
	if len(queue[0].Lines) == 0 {
		t.Fatalf("queue entries must carry their lines")
	}
}

func placeOrder(t *testing.T, env *testEnv, userID, productID string, qty int) *models.Order {
	t.Helper()
	order, err := env.orders.PlaceOrder(customer(userID), PlaceOrderRequest{
		Items:           []PlaceOrderLineRequest{{ProductID: productID, Quantity: qty}},
		FulfillmentType: models.FulfillmentTakeaway,
	})
	if err != nil {
		t.Fatalf("place order for %s: %v", userID, err)
	}
	return order
}

func mustTransition(t *testing.T, env *testEnv, orderID string, status models.OrderStatus) {
	t.Helper()
	if _, err := env.orders.UpdateOrderStatus(orderID, UpdateOrderStatusRequest{Status: status}); err != nil {
		t.Fatalf("transition order %s to %s: %v", orderID, status, err)
	}
}
