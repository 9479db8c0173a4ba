package usecase

import (
	"context"
	"errors"
	"log/slog"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/logging"
)

// PaymentResult is what the caller needs to finish (or retry) a payment.
// ClientSecret is only set while the intent still requires client-side
// action.
type PaymentResult struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	Message         string `json:"message"`
}

// PaymentConfig carries the processor-facing URLs and currency.
type PaymentConfig struct {
	Currency           string
	ReturnURL          string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
}

// PaymentService creates and reconciles remote payment intents and drives
// the local order status through the state machine. Reconciliation is
// idempotent: replaying the same remote status is a no-op, which is what
// makes duplicate intents from racing calls tolerable.
type PaymentService struct {
	repo    OrderRepo
	gateway PaymentGateway
	cache   StatusCache
	events  EventPublisher
	cfg     PaymentConfig
	log     *slog.Logger
}

func NewPaymentService(repo OrderRepo, gateway PaymentGateway, cache StatusCache,
	events EventPublisher, cfg PaymentConfig) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &PaymentService{
		repo:    repo,
		gateway: gateway,
		cache:   cache,
		events:  events,
		cfg:     cfg,
		log:     logging.New("usecase.payments"),
	}
}

func (s *PaymentService) ProcessPayment(ctx context.Context, orderID, paymentMethodID, requesterID string) (*PaymentResult, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID {
		s.log.WarnContext(ctx, "payment attempt by non-owner",
			"order_id", orderID, "order_user", order.UserID, "requester", requesterID)
		return nil, ErrPaymentNotAuthorized()
	}
	if order.Status != domain.StatusPendingPayment {
		return nil, ErrInvalidOrderStatus(order.Status)
	}

	// An intent may already exist from an earlier attempt. Re-use it when
	// it is settled, in flight, or still actionable by the client.
	if order.PaymentIntentID != "" {
		existing, err := s.gateway.RetrieveIntent(ctx, order.PaymentIntentID)
		if err != nil {
			// The old intent is unusable; fall through and create a new one.
			s.log.ErrorContext(ctx, "could not retrieve existing payment intent",
				"order_id", orderID, "intent_id", order.PaymentIntentID, "error", err)
		} else {
			switch existing.Status {
			case domain.IntentSucceeded, domain.IntentProcessing:
				return s.reconcile(ctx, order, existing)
			case domain.IntentRequiresAction, domain.IntentRequiresPaymentMethod:
				if existing.ClientSecret != "" {
					return s.reconcile(ctx, order, existing)
				}
			}
		}
	}

	intent, err := s.gateway.CreateAndConfirmIntent(ctx, CreateIntentInput{
		AmountCents:     order.TotalCents,
		Currency:        s.cfg.Currency,
		PaymentMethodID: paymentMethodID,
		ReturnURL:       s.cfg.ReturnURL + "?order_id=" + order.ID,
		OrderID:         order.ID,
		UserID:          order.UserID,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "payment intent creation failed", "order_id", orderID, "error", err)
		s.setStatus(ctx, order, domain.StatusPaymentFailed)
		var perr *Error
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, ErrPaymentProcessing(err.Error(), err)
	}
	s.log.InfoContext(ctx, "payment intent created",
		"order_id", orderID, "intent_id", intent.ID, "intent_status", intent.Status)

	return s.reconcile(ctx, order, intent)
}

// reconcile folds the remote intent state into the local order and
// persists only when something actually changed.
func (s *PaymentService) reconcile(ctx context.Context, order *domain.Order, intent *PaymentIntent) (*PaymentResult, error) {
	res := &PaymentResult{
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		Status:          string(intent.Status),
	}

	changed := false
	if order.PaymentIntentID != intent.ID {
		order.PaymentIntentID = intent.ID
		changed = true
	}
	if intent.ClientSecret != "" && order.PaymentClientSecret != intent.ClientSecret {
		order.PaymentClientSecret = intent.ClientSecret
		changed = true
	}

	from := order.Status
	next := domain.NextForIntentStatus(order.Status, intent.Status)

	switch intent.Status {
	case domain.IntentSucceeded:
		if next != from {
			order.Status = next
			order.ExternalPaymentID = intent.ID
			order.PaymentClientSecret = "" // no longer needed by the client
			changed = true
		}
		res.Message = "payment successful"
	case domain.IntentRequiresAction, domain.IntentRequiresSourceAction:
		res.ClientSecret = intent.ClientSecret
		res.Message = "payment requires further action from the user"
	case domain.IntentRequiresPaymentMethod:
		if next != from {
			order.Status = next
			changed = true
		}
		res.Message = "payment failed, please try a different payment method"
		if intent.LastError != "" {
			res.Message += ": " + intent.LastError
		}
	case domain.IntentProcessing:
		res.Message = "payment is currently processing"
	case domain.IntentCanceled:
		if next != from {
			order.Status = next
			changed = true
		}
		res.Message = "payment was cancelled"
	default:
		if next != from {
			order.Status = next
			changed = true
		}
		res.Message = "payment ended with status " + string(intent.Status)
	}

	if changed {
		if err := s.repo.UpdatePayment(ctx, order); err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.SetStatus(ctx, order.ID, order.UserID, order.Status)
		}
		if order.Status != from && s.events != nil {
			if err := s.events.PublishStatusChanged(ctx, StatusChangedMsg{
				OrderID: order.ID,
				UserID:  order.UserID,
				From:    string(from),
				To:      string(order.Status),
			}); err != nil {
				s.log.WarnContext(ctx, "status changed event publish failed", "order_id", order.ID, "error", err)
			}
		}
		s.log.InfoContext(ctx, "order reconciled from intent status",
			"order_id", order.ID, "intent_status", intent.Status, "from", from, "to", order.Status)
	}
	return res, nil
}

// setStatus persists a status flip outside of intent reconciliation, used
// when the processor call itself failed.
func (s *PaymentService) setStatus(ctx context.Context, order *domain.Order, to domain.Status) {
	if order.Status == to {
		return
	}
	from := order.Status
	order.Status = to
	if err := s.repo.UpdatePayment(ctx, order); err != nil {
		s.log.ErrorContext(ctx, "could not persist status after processor failure",
			"order_id", order.ID, "to", to, "error", err)
		return
	}
	if s.cache != nil {
		_ = s.cache.SetStatus(ctx, order.ID, order.UserID, to)
	}
	if s.events != nil {
		_ = s.events.PublishStatusChanged(ctx, StatusChangedMsg{
			OrderID: order.ID,
			UserID:  order.UserID,
			From:    string(from),
			To:      string(to),
		})
	}
}

// CreateCheckoutSession builds a hosted checkout session from the order's
// line items and returns the redirect URL. Order status is not touched;
// the eventual transition happens out of band.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, orderID string) (string, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	lines := make([]CheckoutLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, CheckoutLine{
			Name:           item.ProductName,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, CheckoutInput{
		OrderID:    order.ID,
		Currency:   s.cfg.Currency,
		Lines:      lines,
		SuccessURL: s.cfg.CheckoutSuccessURL + "?order_id=" + order.ID,
		CancelURL:  s.cfg.CheckoutCancelURL + "?order_id=" + order.ID,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "checkout session creation failed", "order_id", orderID, "error", err)
		var perr *Error
		if errors.As(err, &perr) {
			return "", perr
		}
		return "", ErrPaymentProcessing(err.Error(), err)
	}
	s.log.InfoContext(ctx, "checkout session created", "order_id", orderID)
	return url, nil
}
