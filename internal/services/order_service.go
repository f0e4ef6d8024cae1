package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"resto_backend/internal/models"
	"resto_backend/internal/repositories"
	"resto_backend/pkg/utils"
)

var (
	ErrProductNotFound         = errors.New("product not found or not available")
	ErrInsufficientStock       = errors.New("insufficient stock for product")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidOrderData        = errors.New("invalid order data")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrForbidden               = errors.New("operation not permitted for this user")
)

// Principal identifies the authenticated caller of a service operation.
type Principal struct {
	UserID string
	Role   models.Role
}

// --- Data Transfer Objects (DTOs) ---

// PlaceOrderLineRequest is one proposed cart line.
type PlaceOrderLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

// PlaceOrderRequest is used for creating a new order.
type PlaceOrderRequest struct {
	Items           []PlaceOrderLineRequest `json:"items" binding:"required,dive"`
	FulfillmentType models.FulfillmentType  `json:"fulfillment_type" binding:"required"`
	TableNumber     *string                 `json:"table_number"`
	Notes           *string                 `json:"notes"`
}

// UpdateOrderStatusRequest is used for advancing an order through the
// kitchen workflow.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// --- OrderService Interface ---

type OrderService interface {
	PlaceOrder(principal Principal, req PlaceOrderRequest) (*models.Order, error)
	GetOrders(principal Principal, page, pageSize int) ([]models.Order, int, error)
	GetOrderByID(principal Principal, orderID string) (*models.Order, error)
	UpdateOrderStatus(orderID string, req UpdateOrderStatusRequest) (*models.Order, error)
	GetKitchenQueue(page, pageSize int) ([]models.Order, error)
}

type orderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	stockRepo   repositories.StockMovementRepository
	paymentRepo repositories.PaymentRepository
	tx          repositories.TxManager
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	pr repositories.ProductRepository,
	sr repositories.StockMovementRepository,
	payr repositories.PaymentRepository,
	tx repositories.TxManager,
) OrderService {
	return &orderService{
		orderRepo:   or,
		productRepo: pr,
		stockRepo:   sr,
		paymentRepo: payr,
		tx:          tx,
	}
}

// PlaceOrder converts a proposed cart into a committed PENDING order, or
// fails with no partial effect. The stock check and decrement for every
// line happen inside one transaction with the product rows locked, so two
// concurrent orders can never both take the last unit.
func (s *orderService) PlaceOrder(principal Principal, req PlaceOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidOrderData)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %s must be positive", ErrInvalidOrderData, item.ProductID)
		}
	}
	if !req.FulfillmentType.IsValid() {
		return nil, fmt.Errorf("%w: unknown fulfillment type %q", ErrInvalidOrderData, req.FulfillmentType)
	}

	var orderID string
	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		// Lock every product row first; existence is checked for the whole
		// cart before any stock comparison.
		products := make([]*models.Product, 0, len(req.Items))
		for _, item := range req.Items {
			product, repoErr := s.productRepo.GetProductForUpdate(executor, item.ProductID)
			if repoErr != nil {
				if errors.Is(repoErr, repositories.ErrNotFound) {
					return fmt.Errorf("%w: product %s", ErrProductNotFound, item.ProductID)
				}
				return fmt.Errorf("failed to fetch product %s: %w", item.ProductID, repoErr)
			}
			if !product.IsActive {
				return fmt.Errorf("%w: product %s is not available", ErrProductNotFound, product.Name)
			}
			products = append(products, product)
		}

		totalAmount := decimal.Zero
		lines := make([]models.OrderLine, 0, len(req.Items))
		for i, item := range req.Items {
			product := products[i]
			if product.Stock < item.Quantity {
				return fmt.Errorf("%w %s: requested %d, available %d",
					ErrInsufficientStock, product.Name, item.Quantity, product.Stock)
			}
			// Price is captured into the line now so later price edits do
			// not retroactively change this order.
			subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totalAmount = totalAmount.Add(subtotal)
			lines = append(lines, models.OrderLine{
				ID:        utils.NewID(),
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
				Subtotal:  subtotal,
			})
		}

		if req.FulfillmentType == models.FulfillmentDineIn &&
			(req.TableNumber == nil || utils.IsEmpty(*req.TableNumber)) {
			return fmt.Errorf("%w: table number is required for dine-in orders", ErrInvalidOrderData)
		}

		order := models.Order{
			ID:              utils.NewID(),
			OrderNumber:     utils.NewOrderNumber(),
			UserID:          principal.UserID,
			Status:          models.StatusPending,
			FulfillmentType: req.FulfillmentType,
			TableNumber:     req.TableNumber,
			Notes:           req.Notes,
			TotalAmount:     totalAmount,
		}
		if _, repoErr := s.orderRepo.CreateOrder(executor, &order); repoErr != nil {
			return fmt.Errorf("failed to create order record: %w", repoErr)
		}
		orderID = order.ID

		for i := range lines {
			lines[i].OrderID = order.ID
			if _, repoErr := s.orderRepo.CreateOrderLine(executor, &lines[i]); repoErr != nil {
				return fmt.Errorf("failed to create order line (product %s): %w", lines[i].ProductID, repoErr)
			}
			if repoErr := s.productRepo.AdjustStock(executor, lines[i].ProductID, -lines[i].Quantity); repoErr != nil {
				if errors.Is(repoErr, repositories.ErrStockConflict) {
					return fmt.Errorf("%w %s: requested %d", ErrInsufficientStock, products[i].Name, lines[i].Quantity)
				}
				return fmt.Errorf("failed to reserve stock for product %s: %w", lines[i].ProductID, repoErr)
			}
			movement := models.StockMovement{
				ID:          utils.NewID(),
				ProductID:   lines[i].ProductID,
				Quantity:    lines[i].Quantity,
				Type:        models.MovementOut,
				Description: utils.NewNullString("Order " + order.OrderNumber),
			}
			if _, repoErr := s.stockRepo.CreateMovement(executor, &movement); repoErr != nil {
				return fmt.Errorf("failed to record stock movement for product %s: %w", lines[i].ProductID, repoErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.loadOrder(orderID)
}

func (s *orderService) GetOrders(principal Principal, page, pageSize int) ([]models.Order, int, error) {
	filters := models.OrderFilters{Page: page, PageSize: pageSize}
	if principal.Role != models.RoleAdmin {
		userID := principal.UserID
		filters.UserID = &userID
	}

	orders, totalCount, err := s.orderRepo.GetOrders(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

func (s *orderService) GetOrderByID(principal Principal, orderID string) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}
	if principal.Role != models.RoleAdmin && order.UserID != principal.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}

// UpdateOrderStatus advances an order along the workflow graph. The write
// is a compare-and-swap on the status read under lock, so two concurrent
// callers cannot move the same order through two different transitions.
// Cancelling a not-yet-prepared order releases its reserved stock.
func (s *orderService) UpdateOrderStatus(orderID string, req UpdateOrderStatusRequest) (*models.Order, error) {
	newStatus := req.Status
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, newStatus)
	}

	// Lines are immutable after creation, so reading them ahead of the
	// transaction is safe; the CAS below guarantees a single winner.
	var lines []models.OrderLine
	if newStatus == models.StatusCancelled {
		var err error
		lines, err = s.orderRepo.GetOrderLines(orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch order lines for stock release: %w", err)
		}
	}

	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		current, repoErr := s.orderRepo.GetOrderForUpdate(executor, orderID)
		if repoErr != nil {
			if errors.Is(repoErr, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to fetch order for status update: %w", repoErr)
		}

		if !models.CanTransition(current.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, newStatus)
		}

		if repoErr := s.orderRepo.UpdateOrderStatus(executor, orderID, current.Status, newStatus, time.Now()); repoErr != nil {
			if errors.Is(repoErr, repositories.ErrStatusConflict) {
				return fmt.Errorf("%w: order changed concurrently", ErrInvalidStatusTransition)
			}
			if errors.Is(repoErr, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to update order status: %w", repoErr)
		}

		if newStatus == models.StatusCancelled {
			for _, line := range lines {
				if repoErr := s.productRepo.AdjustStock(executor, line.ProductID, line.Quantity); repoErr != nil {
					return fmt.Errorf("failed to release stock for product %s: %w", line.ProductID, repoErr)
				}
				movement := models.StockMovement{
					ID:          utils.NewID(),
					ProductID:   line.ProductID,
					Quantity:    line.Quantity,
					Type:        models.MovementIn,
					Description: utils.NewNullString(fmt.Sprintf("Order %s cancelled", current.OrderNumber)),
				}
				if _, repoErr := s.stockRepo.CreateMovement(executor, &movement); repoErr != nil {
					return fmt.Errorf("failed to record stock release for product %s: %w", line.ProductID, repoErr)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.loadOrder(orderID)
}

// GetKitchenQueue returns orders awaiting or under preparation, oldest
// first, with their lines attached for the kitchen display.
func (s *orderService) GetKitchenQueue(page, pageSize int) ([]models.Order, error) {
	orders, _, err := s.orderRepo.GetOrders(models.OrderFilters{
		Statuses:    []models.OrderStatus{models.StatusConfirmed, models.StatusPreparing},
		OldestFirst: true,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get kitchen queue: %w", err)
	}

	for i := range orders {
		lines, err := s.orderRepo.GetOrderLines(orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get lines for order %s: %w", orders[i].ID, err)
		}
		orders[i].Lines = lines
	}
	return orders, nil
}

// loadOrder fetches the full aggregate: header, lines, and payment if any.
func (s *orderService) loadOrder(orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}

	lines, err := s.orderRepo.GetOrderLines(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order lines for %s: %w", orderID, err)
	}
	order.Lines = lines

	payment, err := s.paymentRepo.GetPaymentByOrderID(orderID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to get payment for order %s: %w", orderID, err)
	}
	order.Payment = payment

	return order, nil
}
