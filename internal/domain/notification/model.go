package notification

import (
	"errors"
	"time"
)

// ErrDuplicateOrderRef means a notification of the same kind already
// exists for the order.
var ErrDuplicateOrderRef = errors.New("notification already exists for order")

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusCancelled Status = "CANCELLED"
)

// Notification is the artifact derived from an order event by the
// notification consumer. Kind discriminates one notification per order
// per lifecycle moment (e.g. "created", "status:PAID").
type Notification struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
