package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/domain/event"
	"orderflow/internal/enrichment"
)

// ErrMissingEventType means the envelope carried no type at all.
var ErrMissingEventType = errors.New("event type is empty")

// Template renders a notification for one event type. Templates are
// pure: decoding and formatting only.
type Template interface {
	// Render returns the notification kind (the per-order uniqueness
	// discriminator) and body.
	Render(order *enrichment.Order, env event.Message) (kind, body string, err error)
}

// TemplateRegistry maps event types to templates, with a generic
// fallback for order events without a dedicated template. Built once at
// startup, never mutated.
type TemplateRegistry struct {
	templates map[string]Template
	fallback  Template
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: map[string]Template{
			event.TypeOrderCreated:       OrderCreatedTemplate{},
			event.TypeOrderStatusChanged: StatusChangedTemplate{},
		},
		fallback: GenericTemplate{},
	}
}

// Resolve matches case-insensitively; unknown non-empty types get the
// generic fallback.
func (r *TemplateRegistry) Resolve(eventType string) (Template, error) {
	key := strings.ToLower(strings.TrimSpace(eventType))
	if key == "" {
		return nil, ErrMissingEventType
	}
	if t, ok := r.templates[key]; ok {
		return t, nil
	}
	return r.fallback, nil
}

type OrderCreatedTemplate struct{}

func (OrderCreatedTemplate) Render(order *enrichment.Order, env event.Message) (string, string, error) {
	var p event.OrderCreatedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return "", "", fmt.Errorf("decode order.created payload: %w", err)
	}

	body := fmt.Sprintf("Your order %s has been received and is being prepared.", p.OrderID)
	if p.FromCity != "" && p.ToCity != "" {
		body = fmt.Sprintf("Your order %s has been received and will ship from %s to %s.",
			p.OrderID, p.FromCity, p.ToCity)
	}
	return "created", body, nil
}

type StatusChangedTemplate struct{}

func (StatusChangedTemplate) Render(order *enrichment.Order, env event.Message) (string, string, error) {
	var p event.OrderStatusChangedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return "", "", fmt.Errorf("decode order.status-changed payload: %w", err)
	}
	if p.NewStatus == "" {
		return "", "", fmt.Errorf("order.status-changed payload has no new status")
	}

	kind := "status:" + p.NewStatus
	body := fmt.Sprintf("Your order %s is now %s.", p.OrderID, p.NewStatus)
	return kind, body, nil
}

// GenericTemplate covers order events that have no dedicated wording
// yet.
type GenericTemplate struct{}

func (GenericTemplate) Render(order *enrichment.Order, env event.Message) (string, string, error) {
	kind := "event:" + env.Type
	body := fmt.Sprintf("There is an update on your order (%s).", env.Type)
	return kind, body, nil
}
