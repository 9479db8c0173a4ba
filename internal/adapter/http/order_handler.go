package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shashank-materialplus/order-api/internal/adapter/observ"
	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/logging"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// orderService is what the handler needs from the order orchestrator.
type orderService interface {
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error)
	GetOrderHistory(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID string, isAdmin bool) (*domain.Order, error)
	GetOrderStatus(ctx context.Context, userID, orderID string, isAdmin bool) (domain.Status, error)
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus domain.Status) (*domain.Order, error)
	ListAllOrders(ctx context.Context, page, size int) (*usecase.OrderPage, error)
}

type OrderHandler struct {
	orders orderService
}

func NewOrderHandler(orders orderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderReq struct {
	Items           []usecase.CartItem      `json:"items" binding:"required"`
	ShippingAddress usecase.ShippingAddress `json:"shippingAddress" binding:"required"`
}

type orderItemResp struct {
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

type orderResp struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []orderItemResp `json:"items"`
	TotalCents      int64           `json:"totalCents"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	ShippingAddress json.RawMessage `json:"shippingAddress,omitempty"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toOrderResp(o *domain.Order) orderResp {
	out := orderResp{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
		Status:          string(o.Status),
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.ShippingAddressJSON != "" {
		out.ShippingAddress = json.RawMessage(o.ShippingAddressJSON)
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResp{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			TotalCents:     it.TotalCents,
		})
	}
	return out
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		respondError(c, usecase.ErrUnauthenticated("no identity in request", nil))
		return
	}

	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	order, err := h.orders.CreateOrder(ctx, usecase.CreateOrderInput{
		UserID:          ident.UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  c.GetHeader("X-Idempotency-Key"),
	})
	if err != nil {
		var se *usecase.Error
		if errors.As(err, &se) && se.Category == usecase.CategoryPartial {
			observ.StockDecrementFailures.Inc()
		}
		respondError(c, err)
		return
	}

	observ.OrdersCreated.Inc()
	respond(c, http.StatusCreated, toOrderResp(order))
}

func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		respondError(c, usecase.ErrUnauthenticated("no identity in request", nil))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.orders.GetOrderHistory(ctx, ident.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResp(o))
	}
	respond(c, http.StatusOK, resp)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		respondError(c, usecase.ErrUnauthenticated("no identity in request", nil))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.orders.GetOrderByID(ctx, ident.UserID, c.Param("id"), ident.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toOrderResp(order))
}

func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		respondError(c, usecase.ErrUnauthenticated("no identity in request", nil))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status, err := h.orders.GetOrderStatus(ctx, ident.UserID, c.Param("id"), ident.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"orderId": c.Param("id"), "status": string(status)})
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "status is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.orders.UpdateOrderStatus(ctx, c.Param("id"), domain.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	logging.From(c).Info("admin updated order status", "order_id", order.ID, "status", order.Status)
	respond(c, http.StatusOK, toOrderResp(order))
}

type orderPageResp struct {
	Orders     []orderResp `json:"orders"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	TotalCount int64       `json:"totalCount"`
	TotalPages int         `json:"totalPages"`
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	result, err := h.orders.ListAllOrders(ctx, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := orderPageResp{
		Orders:     make([]orderResp, 0, len(result.Orders)),
		Page:       result.Page,
		Size:       result.Size,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
	}
	for _, o := range result.Orders {
		resp.Orders = append(resp.Orders, toOrderResp(o))
	}
	respond(c, http.StatusOK, resp)
}
