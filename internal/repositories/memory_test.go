package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"resto_backend/internal/models"
)

func seedMemProduct(t *testing.T, store *MemoryStore, name string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    decimal.NewFromInt(10000),
		Stock:    stock,
		IsActive: true,
	}
	err := store.WithinTx(func(executor SQLExecutor) error {
		_, createErr := store.CreateProduct(executor, product)
		return createErr
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	store := NewMemoryStore()
	p := seedMemProduct(t, store, "Widget", 5)

	boom := errors.New("boom")
	err := store.WithinTx(func(executor SQLExecutor) error {
		if adjErr := store.AdjustStock(executor, p.ID, -3); adjErr != nil {
			t.Fatalf("adjust inside tx: %v", adjErr)
		}
		if _, mvErr := store.CreateMovement(executor, &models.StockMovement{
			ProductID: p.ID,
			Quantity:  3,
			Type:      models.MovementOut,
		}); mvErr != nil {
			t.Fatalf("movement inside tx: %v", mvErr)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error back, got %v", err)
	}

	after, err := store.GetProductByID(p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 5 {
		t.Fatalf("stock must be rolled back to 5, got %d", after.Stock)
	}
	_, total, err := store.GetMovements(&p.ID, 1, 10)
	if err != nil {
		t.Fatalf("get movements: %v", err)
	}
	if total != 0 {
		t.Fatalf("movement must be rolled back, found %d", total)
	}
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	p := seedMemProduct(t, store, "Widget", 5)

	err := store.WithinTx(func(executor SQLExecutor) error {
		return store.AdjustStock(executor, p.ID, -2)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	after, _ := store.GetProductByID(p.ID)
	if after.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", after.Stock)
	}
}

func TestAdjustStock_Guard(t *testing.T) {
	store := NewMemoryStore()
	p := seedMemProduct(t, store, "Widget", 2)

	err := store.WithinTx(func(executor SQLExecutor) error {
		return store.AdjustStock(executor, p.ID, -3)
	})
	if !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got %v", err)
	}

	err = store.WithinTx(func(executor SQLExecutor) error {
		return store.AdjustStock(executor, "missing", -1)
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateOrderStatus_CompareAndSwap(t *testing.T) {
	store := NewMemoryStore()
	order := &models.Order{
		OrderNumber:     "ORD-1",
		UserID:          "u1",
		Status:          models.StatusPending,
		FulfillmentType: models.FulfillmentTakeaway,
		TotalAmount:     decimal.NewFromInt(10000),
	}
	err := store.WithinTx(func(executor SQLExecutor) error {
		_, createErr := store.CreateOrder(executor, order)
		return createErr
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// swap with a stale expected status must fail
	err = store.WithinTx(func(executor SQLExecutor) error {
		return store.UpdateOrderStatus(executor, order.ID, models.StatusConfirmed, models.StatusPreparing, time.Now())
	})
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	err = store.WithinTx(func(executor SQLExecutor) error {
		return store.UpdateOrderStatus(executor, order.ID, models.StatusPending, models.StatusConfirmed, time.Now())
	})
	if err != nil {
		t.Fatalf("valid swap: %v", err)
	}
	after, _ := store.GetOrderByID(order.ID)
	if after.Status != models.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", after.Status)
	}
}

func TestUpsertPayment_PaidIsImmutable(t *testing.T) {
	store := NewMemoryStore()
	order := &models.Order{
		OrderNumber:     "ORD-2",
		UserID:          "u1",
		Status:          models.StatusPending,
		FulfillmentType: models.FulfillmentTakeaway,
		TotalAmount:     decimal.NewFromInt(20000),
	}
	if err := store.WithinTx(func(executor SQLExecutor) error {
		_, createErr := store.CreateOrder(executor, order)
		return createErr
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	pending := &models.Payment{
		OrderID: order.ID,
		Method:  models.PaymentCash,
		Amount:  order.TotalAmount,
		Status:  models.PaymentPending,
	}
	if err := store.WithinTx(func(executor SQLExecutor) error {
		return store.UpsertPayment(executor, pending)
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// overwriting an unpaid attempt keeps the row identity
	now := time.Now()
	paid := &models.Payment{
		OrderID: order.ID,
		Method:  models.PaymentQRIS,
		Amount:  order.TotalAmount,
		Status:  models.PaymentPaid,
		PaidAt:  &now,
	}
	if err := store.WithinTx(func(executor SQLExecutor) error {
		return store.UpsertPayment(executor, paid)
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if paid.ID != pending.ID {
		t.Fatalf("upsert must keep the payment row identity")
	}

	err := store.WithinTx(func(executor SQLExecutor) error {
		return store.UpsertPayment(executor, &models.Payment{
			OrderID: order.ID,
			Method:  models.PaymentCash,
			Amount:  order.TotalAmount,
			Status:  models.PaymentPaid,
		})
	})
	if !errors.Is(err, ErrPaymentImmutable) {
		t.Fatalf("expected ErrPaymentImmutable, got %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	create := func(email string) error {
		return store.WithinTx(func(executor SQLExecutor) error {
			_, err := store.CreateUser(executor, &models.User{
				Email:        email,
				Name:         "X",
				PasswordHash: "hash",
				Role:         models.RoleUser,
			})
			return err
		})
	}
	if err := create("x@example.com"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := create("x@example.com"); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestGetOrders_FilterAndPaginate(t *testing.T) {
	store := NewMemoryStore()
	statuses := []models.OrderStatus{
		models.StatusPending, models.StatusConfirmed, models.StatusConfirmed, models.StatusPreparing,
	}
	for i, st := range statuses {
		order := &models.Order{
			OrderNumber:     "ORD-" + string(rune('A'+i)),
			UserID:          "u1",
			Status:          st,
			FulfillmentType: models.FulfillmentTakeaway,
			TotalAmount:     decimal.NewFromInt(int64(1000 * (i + 1))),
		}
		if err := store.WithinTx(func(executor SQLExecutor) error {
			_, createErr := store.CreateOrder(executor, order)
			return createErr
		}); err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
	}

	got, total, err := store.GetOrders(models.OrderFilters{
		Statuses: []models.OrderStatus{models.StatusConfirmed},
		Page:     1,
		PageSize: 1,
	})
	if err != nil {
		t.Fatalf("get orders: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 confirmed orders, got %d", total)
	}
	if len(got) != 1 {
		t.Fatalf("expected page of 1, got %d", len(got))
	}

	userID := "nobody"
	_, total, err = store.GetOrders(models.OrderFilters{UserID: &userID})
	if err != nil {
		t.Fatalf("get orders: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no orders for unknown user, got %d", total)
	}
}
