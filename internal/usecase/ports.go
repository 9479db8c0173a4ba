package usecase

import (
	"context"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
)

// OrderRepo persists the order aggregate. Create writes the order row and
// all item rows in one local transaction.
type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAll(ctx context.Context, offset, limit int) ([]*domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdatePayment(ctx context.Context, o *domain.Order) error
}

// CatalogGateway is the remote product service. FetchSnapshot is a
// read-only lookup and may be retried; DecrementStock must be called at
// most once per item (no partial-quantity semantics, treat as atomic).
type CatalogGateway interface {
	FetchSnapshot(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
	DecrementStock(ctx context.Context, productID string, quantity int) error
}

// PaymentIntent mirrors the processor-side intent object.
type PaymentIntent struct {
	ID           string
	Status       domain.IntentStatus
	ClientSecret string
	LastError    string
}

type CreateIntentInput struct {
	AmountCents     int64
	Currency        string
	PaymentMethodID string
	ReturnURL       string
	OrderID         string
	UserID          string
}

type CheckoutLine struct {
	Name           string
	UnitPriceCents int64
	Quantity       int
}

type CheckoutInput struct {
	OrderID    string
	Currency   string
	Lines      []CheckoutLine
	SuccessURL string
	CancelURL  string
}

// PaymentGateway is the remote payment processor. RetrieveIntent is
// read-only and may be retried.
type PaymentGateway interface {
	CreateAndConfirmIntent(ctx context.Context, in CreateIntentInput) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error)
}

// StatusEntry is the cached view of an order: its status plus the owner,
// so the ownership check on a cache hit needs no database read.
type StatusEntry struct {
	UserID string        `json:"userId"`
	Status domain.Status `json:"status"`
}

// StatusCache is a best-effort order-status read cache.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID, userID string, status domain.Status) error
	GetStatus(ctx context.Context, orderID string) (StatusEntry, bool, error)
}

// IdempotencyStore guards POST /orders against duplicate submissions. A
// key claimed with TryLock that does not end in a persisted order must be
// released with Unlock, or the client's retry is locked out for the TTL.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type OrderCreatedMsg struct {
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	TotalCents int64  `json:"totalCents"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

type StatusChangedMsg struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// EventPublisher emits order lifecycle events for downstream consumers
// (search indexing, notifications). Best-effort: failures are logged, not
// surfaced.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, msg OrderCreatedMsg) error
	PublishStatusChanged(ctx context.Context, msg StatusChangedMsg) error
}

type StockReconcileMsg struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// ReconcilePublisher hands failed stock decrements to the external
// reconciliation worker. It never replaces the partial-failure error
// returned to the caller.
type ReconcilePublisher interface {
	PublishStockReconcile(ctx context.Context, msg StockReconcileMsg) error
}
