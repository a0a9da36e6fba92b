package event

import (
	"encoding/json"
	"time"
)

// Message is the envelope consumed from Kafka.
// ID is assigned by the producer and is the deduplication key:
// redelivery of the same business effect carries the same ID.
// Payload is kept as raw JSON produced by the originating service.
type Message struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   string          `json:"causation_id,omitempty"`
	Producer      string          `json:"producer"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Event types routed by the consumers.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status-changed"
)

// OrderCreatedPayload is the domain payload of an order.created event.
type OrderCreatedPayload struct {
	OrderID      string  `json:"order_id"`
	CustomerID   string  `json:"customer_id"`
	DeliveryType string  `json:"delivery_type"`
	WeightKg     float64 `json:"weight_kg"`
	DistanceKm   float64 `json:"distance_km"`
	FromCity     string  `json:"from_city"`
	ToCity       string  `json:"to_city"`
}

// OrderStatusChangedPayload is the domain payload of an order.status-changed event.
type OrderStatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}
