package services

import (
	"errors"
	"fmt"
	"time"

	"resto_backend/internal/models"
	"resto_backend/internal/repositories"
	"resto_backend/pkg/utils"
)

var (
	ErrAlreadyPaid          = errors.New("order already paid")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// SubmitPaymentRequest is used for recording a payment attempt.
type SubmitPaymentRequest struct {
	OrderID string               `json:"order_id" binding:"required"`
	Method  models.PaymentMethod `json:"method" binding:"required"`
}

// PaymentService records payments. The gateway is a trusted synchronous
// simulator: every accepted attempt settles instantly. The upsert-with-status
// shape leaves room for an async PENDING -> PAID/FAILED flow later.
type PaymentService interface {
	SubmitPayment(principal Principal, req SubmitPaymentRequest) (*models.Payment, error)
}

type paymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	tx          repositories.TxManager
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	payr repositories.PaymentRepository,
	or repositories.OrderRepository,
	tx repositories.TxManager,
) PaymentService {
	return &paymentService{
		paymentRepo: payr,
		orderRepo:   or,
		tx:          tx,
	}
}

// SubmitPayment settles the payment for one order and confirms the order,
// atomically as a pair. Retries are safe: once a payment is PAID, every
// further attempt fails with ErrAlreadyPaid and writes nothing.
func (s *paymentService) SubmitPayment(principal Principal, req SubmitPaymentRequest) (*models.Payment, error) {
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.Method)
	}

	var payment models.Payment
	err := s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		order, repoErr := s.orderRepo.GetOrderForUpdate(executor, req.OrderID)
		if repoErr != nil {
			if errors.Is(repoErr, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to fetch order for payment: %w", repoErr)
		}

		if order.UserID != principal.UserID {
			return ErrForbidden
		}

		existing, repoErr := s.paymentRepo.GetPaymentForUpdate(executor, req.OrderID)
		if repoErr != nil && !errors.Is(repoErr, repositories.ErrNotFound) {
			return fmt.Errorf("failed to fetch existing payment: %w", repoErr)
		}
		if existing != nil && existing.Status == models.PaymentPaid {
			return ErrAlreadyPaid
		}

		// CONFIRMED is only reachable from PENDING; a cancelled order can
		// no longer be paid.
		if !models.CanTransition(order.Status, models.StatusConfirmed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, models.StatusConfirmed)
		}

		now := time.Now()
		payment = models.Payment{
			ID:      utils.NewID(),
			OrderID: order.ID,
			Method:  req.Method,
			Amount:  order.TotalAmount,
			Status:  models.PaymentPaid,
			PaidAt:  &now,
		}
		if req.Method.RequiresTransactionID() {
			txnID := utils.NewTransactionID()
			payment.TransactionID = &txnID
		}

		if repoErr := s.paymentRepo.UpsertPayment(executor, &payment); repoErr != nil {
			if errors.Is(repoErr, repositories.ErrPaymentImmutable) {
				return ErrAlreadyPaid
			}
			return fmt.Errorf("failed to record payment for order %s: %w", order.ID, repoErr)
		}

		if repoErr := s.orderRepo.UpdateOrderStatus(executor, order.ID, order.Status, models.StatusConfirmed, now); repoErr != nil {
			return fmt.Errorf("failed to confirm order %s: %w", order.ID, repoErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &payment, nil
}
