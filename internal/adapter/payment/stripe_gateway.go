// Package payment adapts the Stripe API to the PaymentGateway port.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	domain "github.com/shashank-materialplus/order-api/internal/entity"
	"github.com/shashank-materialplus/order-api/internal/logging"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

// StripeGateway drives payment intents and hosted checkout sessions.
// Intent retrieval is idempotent and retried with backoff; creation is
// sent exactly once per call.
type StripeGateway struct {
	api        *client.API
	maxRetries uint64
	log        *slog.Logger
}

func NewStripeGateway(secretKey string, maxRetries uint64) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{
		api:        api,
		maxRetries: maxRetries,
		log:        logging.New("stripe"),
	}
}

func (g *StripeGateway) CreateAndConfirmIntent(ctx context.Context, in usecase.CreateIntentInput) (*usecase.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(in.AmountCents),
		Currency:           stripe.String(in.Currency),
		PaymentMethod:      stripe.String(in.PaymentMethodID),
		ConfirmationMethod: stripe.String(string(stripe.PaymentIntentConfirmationMethodManual)),
		Confirm:            stripe.Bool(true),
		ReturnURL:          stripe.String(in.ReturnURL),
	}
	params.AddMetadata("order_id", in.OrderID)
	params.AddMetadata("user_id", in.UserID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, asPaymentError(err)
	}
	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*usecase.PaymentIntent, error) {
	var pi *stripe.PaymentIntent

	op := func() error {
		got, err := g.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
			Params: stripe.Params{Context: ctx},
		})
		if err != nil {
			var sErr *stripe.Error
			if errors.As(err, &sErr) && sErr.HTTPStatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		pi = got
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, g.maxRetries), ctx)); err != nil {
		return nil, asPaymentError(err)
	}
	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in usecase.CheckoutInput) (string, error) {
	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(l.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(l.UnitPriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lines,
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.AddMetadata("order_id", in.OrderID)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", asPaymentError(err)
	}
	g.log.InfoContext(ctx, "checkout session created", "order_id", in.OrderID, "session_id", s.ID)
	return s.URL, nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *usecase.PaymentIntent {
	out := &usecase.PaymentIntent{
		ID:           pi.ID,
		Status:       domain.IntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
	if pi.LastPaymentError != nil {
		out.LastError = pi.LastPaymentError.Msg
	}
	return out
}

// asPaymentError keeps the processor's own message when there is one;
// network and card errors alike end up as upstream failures.
func asPaymentError(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Msg != "" {
		return usecase.ErrPaymentProcessing(sErr.Msg, err)
	}
	return usecase.ErrPaymentProcessing(err.Error(), err)
}

var _ usecase.PaymentGateway = (*StripeGateway)(nil)
