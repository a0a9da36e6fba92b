package invoice_test

import (
	"errors"
	"testing"

	"orderflow/internal/domain/invoice"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from invoice.Status
		to   invoice.Status
		ok   bool
	}{
		{invoice.StatusDraft, invoice.StatusPending, true},
		{invoice.StatusPending, invoice.StatusPaid, true},
		{invoice.StatusDraft, invoice.StatusCancelled, true},
		{invoice.StatusPending, invoice.StatusCancelled, true},
		{invoice.StatusDraft, invoice.StatusPaid, false},
		{invoice.StatusPaid, invoice.StatusPending, false},
		{invoice.StatusPaid, invoice.StatusCancelled, false},
		{invoice.StatusPaid, invoice.StatusDraft, false},
		{invoice.StatusCancelled, invoice.StatusPending, false},
		{invoice.StatusCancelled, invoice.StatusPaid, false},
		{invoice.StatusPending, invoice.StatusDraft, false},
	}

	for _, tc := range cases {
		err := tc.from.Transition(tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s -> %s: expected error, got nil", tc.from, tc.to)
			} else if !errors.Is(err, invoice.ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
			}
		}
	}
}

func TestStatusTransitionUnknownTarget(t *testing.T) {
	err := invoice.StatusDraft.Transition(invoice.Status("SHIPPED"))
	if !errors.Is(err, invoice.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTerminalStates(t *testing.T) {
	if !invoice.StatusPaid.Terminal() {
		t.Error("PAID should be terminal")
	}
	if !invoice.StatusCancelled.Terminal() {
		t.Error("CANCELLED should be terminal")
	}
	if invoice.StatusDraft.Terminal() || invoice.StatusPending.Terminal() {
		t.Error("DRAFT and PENDING should not be terminal")
	}
}
