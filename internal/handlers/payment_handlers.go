package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resto_backend/internal/services"
	"resto_backend/pkg/utils"
)

// PaymentHandler holds the payment service.
type PaymentHandler struct {
	paymentService services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// CreatePayment records a payment for an order and confirms the order.
// Safe to retry: a settled order answers with a conflict and no write.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}

	var req services.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	payment, err := h.paymentService.SubmitPayment(principal, req)
	if err != nil {
		utils.LogError(err, "CreatePayment: Error from paymentService.SubmitPayment")
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Order not found.", err.Error()))
		} else if errors.Is(err, services.ErrForbidden) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "You do not have access to this order.", ""))
		} else if errors.Is(err, services.ErrAlreadyPaid) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Order already paid.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidPaymentMethod) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid payment method.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidStatusTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Order can no longer be paid.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to record payment.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, payment)
}
