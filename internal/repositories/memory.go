package repositories

import (
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"resto_backend/internal/models"
)

// MemoryStore is an in-memory implementation of every repository interface
// plus TxManager. It backs the service tests and local development without
// Postgres.
//
// Locking contract: methods taking a SQLExecutor run only inside WithinTx,
// which already holds the write lock, so they do not lock themselves.
// Plain read methods take the read lock. WithinTx snapshots the store and
// restores it when the unit of work fails, so a failed transaction leaves
// no partial effect, matching the SQL rollback semantics.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]models.User
	products  map[string]models.Product
	movements []models.StockMovement
	orders    map[string]models.Order
	lines     map[string][]models.OrderLine // keyed by order ID
	payments  map[string]models.Payment     // keyed by order ID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
		lines:    make(map[string][]models.OrderLine),
		payments: make(map[string]models.Payment),
	}
}

var (
	_ ProductRepository       = (*MemoryStore)(nil)
	_ StockMovementRepository = (*MemoryStore)(nil)
	_ OrderRepository         = (*MemoryStore)(nil)
	_ PaymentRepository       = (*MemoryStore)(nil)
	_ AuthRepository          = (*MemoryStore)(nil)
	_ TxManager               = (*MemoryStore)(nil)
)

// memExecutor is the SQLExecutor token handed to transactional callbacks.
// Memory repositories never issue SQL through it.
type memExecutor struct{}

var errMemExecutor = errors.New("memory store executor does not execute SQL")

func (memExecutor) Exec(string, ...interface{}) (sql.Result, error) { return nil, errMemExecutor }
func (memExecutor) QueryRow(string, ...interface{}) *sql.Row        { return nil }
func (memExecutor) Query(string, ...interface{}) (*sql.Rows, error) { return nil, errMemExecutor }

type memSnapshot struct {
	users     map[string]models.User
	products  map[string]models.Product
	movements []models.StockMovement
	orders    map[string]models.Order
	lines     map[string][]models.OrderLine
	payments  map[string]models.Payment
}

func (m *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:     make(map[string]models.User, len(m.users)),
		products:  make(map[string]models.Product, len(m.products)),
		movements: m.movements[:len(m.movements):len(m.movements)],
		orders:    make(map[string]models.Order, len(m.orders)),
		lines:     make(map[string][]models.OrderLine, len(m.lines)),
		payments:  make(map[string]models.Payment, len(m.payments)),
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	for k, v := range m.products {
		snap.products[k] = v
	}
	for k, v := range m.orders {
		snap.orders[k] = v
	}
	for k, v := range m.lines {
		snap.lines[k] = v
	}
	for k, v := range m.payments {
		snap.payments[k] = v
	}
	return snap
}

func (m *MemoryStore) restore(snap memSnapshot) {
	m.users = snap.users
	m.products = snap.products
	m.movements = snap.movements
	m.orders = snap.orders
	m.lines = snap.lines
	m.payments = snap.payments
}

// WithinTx serializes the unit of work on the store lock and rolls the
// store back to its pre-transaction state if fn fails.
func (m *MemoryStore) WithinTx(fn func(executor SQLExecutor) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(memExecutor{}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// --- ProductRepository ---

func (m *MemoryStore) CreateProduct(_ SQLExecutor, product *models.Product) (string, error) {
	product.ID = ensureID(product.ID)
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	m.products[product.ID] = *product
	return product.ID, nil
}

func (m *MemoryStore) GetProductByID(productID string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) GetProductForUpdate(_ SQLExecutor, productID string) (*models.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) ListProducts(filters models.ProductFilters) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		if filters.Category != nil && p.Category != *filters.Category {
			continue
		}
		if filters.IsActive != nil && p.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateProduct(_ SQLExecutor, product *models.Product) error {
	existing, ok := m.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	product.Stock = existing.Stock // stock only moves through AdjustStock
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryStore) DeleteProduct(_ SQLExecutor, productID string) error {
	if _, ok := m.products[productID]; !ok {
		return ErrNotFound
	}
	delete(m.products, productID)
	return nil
}

func (m *MemoryStore) AdjustStock(_ SQLExecutor, productID string, delta int) error {
	p, ok := m.products[productID]
	if !ok {
		return ErrNotFound
	}
	if p.Stock+delta < 0 {
		return ErrStockConflict
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	m.products[productID] = p
	return nil
}

// --- StockMovementRepository ---

func (m *MemoryStore) CreateMovement(_ SQLExecutor, movement *models.StockMovement) (string, error) {
	movement.ID = ensureID(movement.ID)
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}
	stored := *movement
	stored.Product = nil
	m.movements = append(m.movements, stored)
	return movement.ID, nil
}

func (m *MemoryStore) GetMovements(productID *string, page, pageSize int) ([]models.StockMovement, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := make([]models.StockMovement, 0, len(m.movements))
	for _, mv := range m.movements {
		if productID != nil && mv.ProductID != *productID {
			continue
		}
		if p, ok := m.products[mv.ProductID]; ok {
			mv.Product = &models.Product{ID: p.ID, Name: p.Name}
		}
		filtered = append(filtered, mv)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })

	total := len(filtered)
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return filtered, total, nil
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []models.StockMovement{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

// --- OrderRepository ---

func (m *MemoryStore) CreateOrder(_ SQLExecutor, order *models.Order) (string, error) {
	order.ID = ensureID(order.ID)
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	stored := *order
	stored.Lines = nil
	stored.Payment = nil
	stored.UserName = nil
	m.orders[order.ID] = stored
	return order.ID, nil
}

func (m *MemoryStore) GetOrderByID(orderID string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (m *MemoryStore) GetOrderForUpdate(_ SQLExecutor, orderID string) (*models.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (m *MemoryStore) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := func(o models.Order) bool {
		if filters.UserID != nil && o.UserID != *filters.UserID {
			return false
		}
		if len(filters.Statuses) > 0 {
			found := false
			for _, s := range filters.Statuses {
				if o.Status == s {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if !matches(o) {
			continue
		}
		if u, ok := m.users[o.UserID]; ok {
			name := u.Name
			o.UserName = &name
		}
		out = append(out, o)
	}
	if filters.OldestFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}

	total := len(out)
	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filters.PageSize
		if start >= total {
			return []models.Order{}, total, nil
		}
		end := start + filters.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *MemoryStore) UpdateOrderStatus(_ SQLExecutor, orderID string, fromStatus, toStatus models.OrderStatus, updatedAt time.Time) error {
	o, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	if o.Status != fromStatus {
		return ErrStatusConflict
	}
	o.Status = toStatus
	o.UpdatedAt = updatedAt
	m.orders[orderID] = o
	return nil
}

func (m *MemoryStore) CreateOrderLine(_ SQLExecutor, line *models.OrderLine) (string, error) {
	if _, ok := m.orders[line.OrderID]; !ok {
		return "", ErrNotFound
	}
	line.ID = ensureID(line.ID)
	stored := *line
	stored.Product = nil
	m.lines[line.OrderID] = append(m.lines[line.OrderID], stored)
	return line.ID, nil
}

func (m *MemoryStore) GetOrderLines(orderID string) ([]models.OrderLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.lines[orderID]
	lines := make([]models.OrderLine, 0, len(src))
	for _, l := range src {
		if p, ok := m.products[l.ProductID]; ok {
			l.Product = &models.Product{ID: p.ID, Name: p.Name, Category: p.Category}
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// --- PaymentRepository ---

func (m *MemoryStore) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) GetPaymentForUpdate(_ SQLExecutor, orderID string) (*models.Payment, error) {
	p, ok := m.payments[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) UpsertPayment(_ SQLExecutor, payment *models.Payment) error {
	now := time.Now()
	if existing, ok := m.payments[payment.OrderID]; ok {
		if existing.Status == models.PaymentPaid {
			return ErrPaymentImmutable
		}
		// keep the original row identity, as the SQL upsert does
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
	} else {
		payment.ID = ensureID(payment.ID)
		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = now
		}
	}
	payment.UpdatedAt = now
	m.payments[payment.OrderID] = *payment
	return nil
}

// --- AuthRepository ---

func (m *MemoryStore) CreateUser(_ SQLExecutor, user *models.User) (string, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return "", ErrDuplicateKey
		}
	}
	user.ID = ensureID(user.ID)
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return user.ID, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByID(userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}
