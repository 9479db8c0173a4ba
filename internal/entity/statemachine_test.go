package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPendingPayment, StatusConfirmed},
		{StatusPendingPayment, StatusPaymentFailed},
		{StatusPendingPayment, StatusPendingConfirmation},
		{StatusPendingPayment, StatusCancelledByUser},
		{StatusPendingConfirmation, StatusConfirmed},
		{StatusConfirmed, StatusProcessing},
		{StatusConfirmed, StatusCancelledByAdmin},
		{StatusProcessing, StatusShipped},
		{StatusShipped, StatusDelivered},
		{StatusDelivered, StatusReturnRequested},
		{StatusReturnRequested, StatusReturnApproved},
		{StatusReturnApproved, StatusReturned},
		{StatusReturned, StatusRefunded},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusPendingPayment, StatusShipped},
		{StatusConfirmed, StatusDelivered},
		{StatusShipped, StatusCancelledByUser},
		{StatusDelivered, StatusRefunded},
		{StatusPaymentFailed, StatusConfirmed},
		{StatusRefunded, StatusPendingPayment},
		{StatusCancelledByUser, StatusConfirmed},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusDelivered, StatusCancelledByUser, StatusCancelledByAdmin, StatusRefunded, StatusPaymentFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	open := []Status{StatusPendingPayment, StatusPendingConfirmation, StatusConfirmed, StatusProcessing, StatusShipped, StatusReturnRequested, StatusReturnApproved, StatusReturned}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestCanBeCancelledByUser(t *testing.T) {
	yes := []Status{StatusPendingPayment, StatusPendingConfirmation, StatusConfirmed}
	for _, s := range yes {
		if !s.CanBeCancelledByUser() {
			t.Errorf("expected user cancel to be allowed from %s", s)
		}
	}
	no := []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusPaymentFailed, StatusRefunded}
	for _, s := range no {
		if s.CanBeCancelledByUser() {
			t.Errorf("expected user cancel to be rejected from %s", s)
		}
	}
}

func TestNextForIntentStatus(t *testing.T) {
	cases := []struct {
		name    string
		current Status
		remote  IntentStatus
		want    Status
	}{
		{"succeeded confirms a pending order", StatusPendingPayment, IntentSucceeded, StatusConfirmed},
		{"succeeded is a no-op when already confirmed", StatusConfirmed, IntentSucceeded, StatusConfirmed},
		{"succeeded does not demote a processing order", StatusProcessing, IntentSucceeded, StatusProcessing},
		{"succeeded recovers a failed order", StatusPaymentFailed, IntentSucceeded, StatusConfirmed},
		{"requires_action leaves status alone", StatusPendingPayment, IntentRequiresAction, StatusPendingPayment},
		{"requires_source_action leaves status alone", StatusPendingPayment, IntentRequiresSourceAction, StatusPendingPayment},
		{"requires_payment_method fails the order", StatusPendingPayment, IntentRequiresPaymentMethod, StatusPaymentFailed},
		{"processing leaves status alone", StatusPendingPayment, IntentProcessing, StatusPendingPayment},
		{"canceled fails a pending order", StatusPendingPayment, IntentCanceled, StatusPaymentFailed},
		{"canceled keeps a user-cancelled order cancelled", StatusCancelledByUser, IntentCanceled, StatusCancelledByUser},
		{"canceled keeps an admin-cancelled order cancelled", StatusCancelledByAdmin, IntentCanceled, StatusCancelledByAdmin},
		{"canceled is a no-op when already failed", StatusPaymentFailed, IntentCanceled, StatusPaymentFailed},
		{"unknown remote status fails safe", StatusPendingPayment, IntentStatus("some_new_status"), StatusPaymentFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextForIntentStatus(tc.current, tc.remote); got != tc.want {
				t.Fatalf("NextForIntentStatus(%s, %s) = %s, want %s", tc.current, tc.remote, got, tc.want)
			}
		})
	}
}
