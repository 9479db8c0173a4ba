package domain

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPendingPayment      Status = "PENDING_PAYMENT"
	StatusPaymentFailed       Status = "PAYMENT_FAILED"
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	StatusConfirmed           Status = "CONFIRMED"
	StatusProcessing          Status = "PROCESSING"
	StatusShipped             Status = "SHIPPED"
	StatusDelivered           Status = "DELIVERED"
	StatusCancelledByUser     Status = "CANCELLED_BY_USER"
	StatusCancelledByAdmin    Status = "CANCELLED_BY_ADMIN"
	StatusReturnRequested     Status = "RETURN_REQUESTED"
	StatusReturnApproved      Status = "RETURN_APPROVED"
	StatusReturned            Status = "RETURNED"
	StatusRefunded            Status = "REFUNDED"
)

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	_, ok := allStatuses[s]
	return ok
}

var allStatuses = map[Status]struct{}{
	StatusPendingPayment:      {},
	StatusPaymentFailed:       {},
	StatusPendingConfirmation: {},
	StatusConfirmed:           {},
	StatusProcessing:          {},
	StatusShipped:             {},
	StatusDelivered:           {},
	StatusCancelledByUser:     {},
	StatusCancelledByAdmin:    {},
	StatusReturnRequested:     {},
	StatusReturnApproved:      {},
	StatusReturned:            {},
	StatusRefunded:            {},
}

// OrderItem is a priced line of an order. Unit price is frozen at order
// time in minor currency units and never re-read from the catalog.
type OrderItem struct {
	ID             string
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
}

// Order is the aggregate root. Items are fixed at construction; after the
// order is persisted only the status and payment fields may change.
type Order struct {
	ID                  string
	UserID              string
	Items               []OrderItem
	TotalCents          int64
	Currency            string
	Status              Status
	ShippingAddressJSON string
	ExternalPaymentID   string
	PaymentIntentID     string
	PaymentClientSecret string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProductSnapshot is a point-in-time read of a product's price and stock,
// used only to price and validate an order. It is never persisted.
type ProductSnapshot struct {
	ID             string
	Name           string
	UnitPriceCents int64
	AvailableStock int
}
