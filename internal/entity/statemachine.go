package domain

// IntentStatus is the status reported by the payment processor for a
// payment intent.
type IntentStatus string

const (
	IntentSucceeded             IntentStatus = "succeeded"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentRequiresSourceAction  IntentStatus = "requires_source_action"
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentProcessing            IntentStatus = "processing"
	IntentCanceled              IntentStatus = "canceled"
)

// transitions is the legal forward graph. PAYMENT_FAILED has no outgoing
// edge here: it is terminal, but a new intent on the same order can still
// move it through NextForIntentStatus.
var transitions = map[Status][]Status{
	StatusPendingPayment:      {StatusConfirmed, StatusPaymentFailed, StatusPendingConfirmation, StatusCancelledByUser, StatusCancelledByAdmin},
	StatusPendingConfirmation: {StatusConfirmed, StatusPaymentFailed, StatusCancelledByUser, StatusCancelledByAdmin},
	StatusConfirmed:           {StatusProcessing, StatusCancelledByUser, StatusCancelledByAdmin},
	StatusProcessing:          {StatusShipped, StatusCancelledByAdmin},
	StatusShipped:             {StatusDelivered},
	StatusDelivered:           {StatusReturnRequested},
	StatusReturnRequested:     {StatusReturnApproved, StatusCancelledByAdmin},
	StatusReturnApproved:      {StatusReturned},
	StatusReturned:            {StatusRefunded},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further normal transitions apply.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelledByUser, StatusCancelledByAdmin, StatusRefunded, StatusPaymentFailed:
		return true
	}
	return false
}

// CanBeCancelledByUser reports whether the user may still cancel the order.
func (s Status) CanBeCancelledByUser() bool {
	switch s {
	case StatusPendingPayment, StatusPendingConfirmation, StatusConfirmed:
		return true
	}
	return false
}

// NextForIntentStatus maps a remote payment-intent status onto the local
// order status. It is a pure function; persistence and side effects belong
// to the caller. Unknown remote values fail safe to PAYMENT_FAILED.
func NextForIntentStatus(current Status, remote IntentStatus) Status {
	switch remote {
	case IntentSucceeded:
		if current == StatusConfirmed || current == StatusProcessing {
			return current
		}
		return StatusConfirmed
	case IntentRequiresAction, IntentRequiresSourceAction:
		return current
	case IntentRequiresPaymentMethod:
		return StatusPaymentFailed
	case IntentProcessing:
		return current
	case IntentCanceled:
		if current == StatusCancelledByUser || current == StatusCancelledByAdmin || current == StatusPaymentFailed {
			return current
		}
		return StatusPaymentFailed
	default:
		return StatusPaymentFailed
	}
}
