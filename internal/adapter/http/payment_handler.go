package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shashank-materialplus/order-api/internal/adapter/observ"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

type paymentService interface {
	ProcessPayment(ctx context.Context, orderID, paymentMethodID, requesterID string) (*usecase.PaymentResult, error)
	CreateCheckoutSession(ctx context.Context, orderID string) (string, error)
}

type PaymentHandler struct {
	payments paymentService
}

func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type processPaymentReq struct {
	OrderID         string `json:"orderId" binding:"required"`
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		respondError(c, usecase.ErrUnauthenticated("no identity in request", nil))
		return
	}

	var req processPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "orderId and paymentMethodId are required")
		return
	}

	// Payment confirmation round-trips to the processor; give it room.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.payments.ProcessPayment(ctx, req.OrderID, req.PaymentMethodID, ident.UserID)
	if err != nil {
		var se *usecase.Error
		if errors.As(err, &se) && se.Category == usecase.CategoryUpstream {
			observ.PaymentAttempts.WithLabelValues("error").Inc()
		}
		respondError(c, err)
		return
	}

	observ.PaymentAttempts.WithLabelValues(result.Status).Inc()
	respond(c, http.StatusOK, result)
}

type checkoutReq struct {
	OrderID string `json:"orderId" binding:"required"`
}

func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "orderId is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	url, err := h.payments.CreateCheckoutSession(ctx, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"checkoutUrl": url})
}
