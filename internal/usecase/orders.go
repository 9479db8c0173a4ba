package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/logging"
)

type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type CreateOrderInput struct {
	UserID          string
	Items           []CartItem
	ShippingAddress ShippingAddress
	IdempotencyKey  string // optional, from X-Idempotency-Key
}

// OrderPage is one page of the admin listing.
type OrderPage struct {
	Orders     []*domain.Order
	Page       int
	Size       int
	TotalCount int64
	TotalPages int
}

// OrderService builds and persists orders from a cart, validating each
// line against a catalog snapshot, then triggers the remote stock
// decrements. The local transaction covers only local state; decrement
// failures after commit are never rolled back.
type OrderService struct {
	repo    OrderRepo
	catalog CatalogGateway
	idem    IdempotencyStore
	cache   StatusCache
	events  EventPublisher
	recon   ReconcilePublisher
	// currency applied to every order; tax and conversion are out of scope
	currency string
	log      *slog.Logger
}

func NewOrderService(repo OrderRepo, catalog CatalogGateway, idem IdempotencyStore,
	cache StatusCache, events EventPublisher, recon ReconcilePublisher, currency string) *OrderService {
	if currency == "" {
		currency = "usd"
	}
	return &OrderService{
		repo:     repo,
		catalog:  catalog,
		idem:     idem,
		cache:    cache,
		events:   events,
		recon:    recon,
		currency: currency,
		log:      logging.New("usecase.orders"),
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := validateCart(in.Items); err != nil {
		return nil, err
	}

	// Duplicate-submission guard. Only active when the client sent a key.
	locked := false
	if in.IdempotencyKey != "" && s.idem != nil {
		id, ok, err := s.idem.Recall(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			s.log.WarnContext(ctx, "idempotency store unavailable, proceeding without guard", "error", err)
		} else if ok {
			return s.repo.GetByID(ctx, id)
		}
		ok, err = s.idem.TryLock(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			s.log.WarnContext(ctx, "idempotency store unavailable, proceeding without guard", "error", err)
		} else if !ok {
			return nil, ErrDuplicateRequest()
		} else {
			locked = true
		}
	}

	// A claimed key must not outlive a failed attempt: the client fixing
	// its cart and retrying with the same key is a fresh request.
	fail := func(ferr error) (*domain.Order, error) {
		if locked {
			if uerr := s.idem.Unlock(ctx, in.UserID, in.IdempotencyKey); uerr != nil {
				s.log.WarnContext(ctx, "idempotency unlock failed", "error", uerr)
			}
		}
		return nil, ferr
	}

	addr, err := json.Marshal(in.ShippingAddress)
	if err != nil {
		return fail(ErrValidation("invalid shipping address"))
	}

	order := &domain.Order{
		ID:                  uuid.NewString(),
		UserID:              in.UserID,
		Status:              domain.StatusPendingPayment,
		Currency:            s.currency,
		ShippingAddressJSON: string(addr),
	}

	// Price every line against a fresh catalog snapshot. Nothing is
	// persisted until all lines pass.
	for _, item := range in.Items {
		snap, err := s.catalog.FetchSnapshot(ctx, item.ProductID)
		if err != nil {
			s.log.ErrorContext(ctx, "product lookup failed",
				"product_id", item.ProductID, "error", err)
			if CategoryOf(err) == CategoryNotFound {
				return fail(err)
			}
			return fail(ErrProductLookup(item.ProductID, err))
		}
		if snap.AvailableStock < item.Quantity {
			s.log.WarnContext(ctx, "insufficient stock",
				"product_id", item.ProductID, "available", snap.AvailableStock, "requested", item.Quantity)
			return fail(ErrInsufficientStock(snap.Name, snap.AvailableStock, item.Quantity))
		}
		if snap.UnitPriceCents <= 0 {
			s.log.ErrorContext(ctx, "non-positive price from catalog", "product_id", item.ProductID)
			return fail(ErrInvalidPrice(item.ProductID))
		}

		line := domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      snap.ID,
			ProductName:    snap.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: snap.UnitPriceCents,
			TotalCents:     snap.UnitPriceCents * int64(item.Quantity),
		}
		order.Items = append(order.Items, line)
		order.TotalCents += line.TotalCents
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return fail(fmt.Errorf("persist order: %w", err))
	}
	s.log.InfoContext(ctx, "order created",
		"order_id", order.ID, "user_id", order.UserID,
		"items", len(order.Items), "total_cents", order.TotalCents)

	if in.IdempotencyKey != "" && s.idem != nil {
		_ = s.idem.Remember(ctx, in.UserID, in.IdempotencyKey, order.ID)
	}
	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, OrderCreatedMsg{
			OrderID:    order.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			Currency:   order.Currency,
			Status:     string(order.Status),
		}); err != nil {
			s.log.WarnContext(ctx, "order created event publish failed", "order_id", order.ID, "error", err)
		}
	}

	// Second phase of the saga: best-effort remote decrements, sequential,
	// exactly one attempt each. A failure here leaves the committed order
	// in place and is flagged for manual reconciliation.
	for _, item := range order.Items {
		if err := s.catalog.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.ErrorContext(ctx, "CRITICAL: order committed but stock decrement failed, manual reconciliation required",
				"order_id", order.ID, "product_id", item.ProductID, "quantity", item.Quantity, "error", err)
			if s.recon != nil {
				if perr := s.recon.PublishStockReconcile(ctx, StockReconcileMsg{
					OrderID:   order.ID,
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					Reason:    err.Error(),
				}); perr != nil {
					s.log.ErrorContext(ctx, "reconcile publish failed as well",
						"order_id", order.ID, "product_id", item.ProductID, "error", perr)
				}
			}
			return nil, ErrOrderPartiallyFailed(order.ID, item.ProductID, err)
		}
	}

	return order, nil
}

// GetOrderHistory returns the user's orders, newest first.
func (s *OrderService) GetOrderHistory(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetOrderByID fetches one order. Admins may fetch any order; other
// callers only their own. A non-owner gets NotFound, never Forbidden, so
// order ids cannot be probed for existence.
func (s *OrderService) GetOrderByID(ctx context.Context, userID, orderID string, isAdmin bool) (*domain.Order, error) {
	if isAdmin {
		return s.repo.GetByID(ctx, orderID)
	}
	return s.repo.GetByIDAndUser(ctx, orderID, userID)
}

// GetOrderStatus serves the status from cache when possible. The cached
// entry carries the owner, so a hit answers without a database read.
func (s *OrderService) GetOrderStatus(ctx context.Context, userID, orderID string, isAdmin bool) (domain.Status, error) {
	if s.cache != nil {
		if entry, ok, err := s.cache.GetStatus(ctx, orderID); err == nil && ok {
			if isAdmin || entry.UserID == userID {
				return entry.Status, nil
			}
			// Absent and not-owned stay indistinguishable.
			return "", ErrOrderNotFound(orderID)
		}
	}
	order, err := s.GetOrderByID(ctx, userID, orderID, isAdmin)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// UpdateOrderStatus is the admin override. It is idempotent on equal
// status and deliberately does not enforce the transition graph; an
// illegal transition is applied but logged.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, newStatus domain.Status) (*domain.Order, error) {
	if !newStatus.Known() {
		return nil, ErrValidation("unknown order status: " + string(newStatus))
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == newStatus {
		s.log.InfoContext(ctx, "status unchanged, no update performed",
			"order_id", orderID, "status", newStatus)
		return order, nil
	}
	if !domain.CanTransition(order.Status, newStatus) {
		s.log.WarnContext(ctx, "admin override applies illegal status transition",
			"order_id", orderID, "from", order.Status, "to", newStatus)
	}

	from := order.Status
	if err := s.repo.UpdateStatus(ctx, orderID, newStatus); err != nil {
		return nil, err
	}
	order.Status = newStatus
	order.UpdatedAt = time.Now().UTC()

	if s.cache != nil {
		_ = s.cache.SetStatus(ctx, orderID, order.UserID, newStatus)
	}
	if s.events != nil {
		if err := s.events.PublishStatusChanged(ctx, StatusChangedMsg{
			OrderID: orderID,
			UserID:  order.UserID,
			From:    string(from),
			To:      string(newStatus),
		}); err != nil {
			s.log.WarnContext(ctx, "status changed event publish failed", "order_id", orderID, "error", err)
		}
	}
	s.log.InfoContext(ctx, "order status updated", "order_id", orderID, "from", from, "to", newStatus)
	return order, nil
}

// ListAllOrders is the paginated admin listing. Pages are 1-based.
func (s *OrderService) ListAllOrders(ctx context.Context, page, size int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	orders, total, err := s.repo.ListAll(ctx, (page-1)*size, size)
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return &OrderPage{Orders: orders, Page: page, Size: size, TotalCount: total, TotalPages: totalPages}, nil
}

func validateCart(items []CartItem) error {
	if len(items) == 0 {
		return ErrValidation("cart must not be empty",
			FieldError{Field: "items", Message: "at least one item is required"})
	}
	var fields []FieldError
	for i, item := range items {
		if item.ProductID == "" {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("items[%d].productId", i),
				Message: "product id is required",
			})
		}
		if item.Quantity < 1 {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be at least 1",
			})
		}
	}
	if len(fields) > 0 {
		return ErrValidation("invalid cart", fields...)
	}
	return nil
}
