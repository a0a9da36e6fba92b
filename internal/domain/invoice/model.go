package invoice

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateOrderRef means an invoice already exists for the order.
	// Two distinct events referencing the same order is an upstream
	// data anomaly, not a redelivery.
	ErrDuplicateOrderRef = errors.New("invoice already exists for order")

	// ErrInvalidTransition means the requested status change is not
	// allowed by the state machine. The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound means no invoice matched the lookup.
	ErrNotFound = errors.New("invoice not found")
)

// Status is the invoice lifecycle state.
// DRAFT -> PENDING -> PAID, with CANCELLED reachable from any
// non-terminal state. PAID and CANCELLED are terminal.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransition reports whether the state machine allows moving
// from s to next.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusPending:
		return s == StatusDraft
	case StatusPaid:
		return s == StatusPending
	case StatusCancelled:
		return true
	}
	return false
}

// Transition validates the move from s to next.
func (s Status) Transition(next Status) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

type Invoice struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	CustomerID   string    `json:"customer_id"`
	DeliveryType string    `json:"delivery_type"`
	Amount       float64   `json:"amount"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stats is an aggregate view over persisted invoices.
// All fields are zero when no invoices exist.
type Stats struct {
	Total         int64              `json:"total"`
	TotalAmount   float64            `json:"total_amount"`
	AverageAmount float64            `json:"average_amount"`
	ByStatus      map[Status]Summary `json:"by_status"`
}

type Summary struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}
