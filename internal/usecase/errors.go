package usecase

import (
	"errors"
	"fmt"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
)

// Category classifies an error for the HTTP edge and for callers that need
// to distinguish failure modes without string matching.
type Category string

const (
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryAuthorization  Category = "AUTHORIZATION"
	CategoryValidation     Category = "VALIDATION"
	CategoryNotFound       Category = "NOT_FOUND"
	CategoryConflict       Category = "CONFLICT"
	CategoryUpstream       Category = "UPSTREAM_FAILURE"
	CategoryPartial        Category = "PARTIAL_FAILURE"
)

// FieldError is a field-level sub-error attached to a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the service error type. OrderID is set on partial failures so
// the caller can drive manual reconciliation.
type Error struct {
	Category Category
	Message  string
	Fields   []FieldError
	OrderID  string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// CategoryOf extracts the category from err, or "" if err is not a
// service error.
func CategoryOf(err error) Category {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

func newErr(cat Category, msg string) *Error {
	return &Error{Category: cat, Message: msg}
}

func wrapErr(cat Category, msg string, cause error) *Error {
	return &Error{Category: cat, Message: msg, cause: cause}
}

func ErrUnauthenticated(msg string, cause error) *Error {
	return wrapErr(CategoryAuthentication, msg, cause)
}

func ErrValidation(msg string, fields ...FieldError) *Error {
	e := newErr(CategoryValidation, msg)
	e.Fields = fields
	return e
}

// ErrProductNotFound is returned when the catalog does not know the product.
func ErrProductNotFound(productID string) *Error {
	return newErr(CategoryNotFound, "product not found: "+productID)
}

// ErrProductLookup covers unreachable or malformed catalog responses.
func ErrProductLookup(productID string, cause error) *Error {
	return wrapErr(CategoryUpstream, "could not retrieve product details for "+productID, cause)
}

func ErrInsufficientStock(name string, available, requested int) *Error {
	return newErr(CategoryConflict, fmt.Sprintf(
		"insufficient stock for product %s: available %d, requested %d", name, available, requested))
}

func ErrInvalidPrice(productID string) *Error {
	return newErr(CategoryValidation, "invalid price received from catalog for product "+productID)
}

func ErrOrderNotFound(orderID string) *Error {
	return newErr(CategoryNotFound, "order not found: "+orderID)
}

func ErrPaymentNotAuthorized() *Error {
	return newErr(CategoryAuthorization, "you do not have permission to pay for this order")
}

func ErrInvalidOrderStatus(current domain.Status) *Error {
	return newErr(CategoryConflict, "order is not in a state that allows payment, current status: "+string(current))
}

// ErrPaymentProcessing wraps a processor-side failure with its detail.
func ErrPaymentProcessing(detail string, cause error) *Error {
	return wrapErr(CategoryUpstream, "payment failed: "+detail, cause)
}

// ErrOrderPartiallyFailed marks the one state the system cannot repair on
// its own: the order row is committed but a stock decrement did not land.
func ErrOrderPartiallyFailed(orderID, productID string, cause error) *Error {
	e := wrapErr(CategoryPartial, fmt.Sprintf(
		"order %s created but stock decrement failed for product %s; manual reconciliation required", orderID, productID), cause)
	e.OrderID = orderID
	return e
}

func ErrDuplicateRequest() *Error {
	return newErr(CategoryConflict, "duplicate request, original still in flight")
}
