package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orderflow/internal/domain/event"
	"orderflow/internal/domain/notification"
	"orderflow/internal/enrichment"
	"orderflow/internal/infrastructure/postgres"

	"github.com/google/uuid"
)

type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeDuplicate
	OutcomeSkipped
	OutcomeDropped
	OutcomeDeadLettered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDropped:
		return "dropped"
	case OutcomeDeadLettered:
		return "dead-lettered"
	}
	return "unknown"
}

type Ledger interface {
	HasProcessed(ctx context.Context, consumer, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, messageID, eventType string) (bool, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *notification.Notification) error
}

type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*enrichment.Order, error)
}

type DeadLetterer interface {
	SendDeadLetter(ctx context.Context, key, value []byte, reason string) error
}

var errDuplicateRace = errors.New("message already recorded by concurrent worker")

// Processor derives customer notifications from order events, exactly
// once per message ID. Notification content is enriched with order
// details fetched from the order service; an order that no longer
// exists is a soft miss and the event is acknowledged without effect.
type Processor struct {
	consumer      string
	tx            postgres.Transactor
	ledger        Ledger
	notifications NotificationStore
	templates     *TemplateRegistry
	orders        OrderFetcher
	deadLetters   DeadLetterer
	log           *slog.Logger
}

func NewProcessor(
	consumer string,
	tx postgres.Transactor,
	ledger Ledger,
	notifications NotificationStore,
	templates *TemplateRegistry,
	orders OrderFetcher,
	deadLetters DeadLetterer,
	log *slog.Logger,
) *Processor {
	return &Processor{
		consumer:      consumer,
		tx:            tx,
		ledger:        ledger,
		notifications: notifications,
		templates:     templates,
		orders:        orders,
		deadLetters:   deadLetters,
		log:           log,
	}
}

// Process handles one raw broker message. A non-nil error is transient:
// the caller must not commit the offset.
func (p *Processor) Process(ctx context.Context, raw []byte) (Outcome, error) {
	var ev event.Message
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.log.Error("failed to unmarshal event envelope", "error", err)
		return OutcomeDropped, nil
	}

	if !strings.HasPrefix(ev.Type, "order.") {
		return OutcomeSkipped, nil
	}

	if ev.ID == "" || ev.CorrelationID == "" {
		p.log.Error("event missing id or order reference", "type", ev.Type, "message_id", ev.ID)
		return OutcomeDropped, nil
	}
	orderID := ev.CorrelationID

	processed, err := p.ledger.HasProcessed(ctx, p.consumer, ev.ID)
	if err != nil {
		return 0, fmt.Errorf("ledger check: %w", err)
	}
	if processed {
		p.log.Info("duplicate message, skipping", "message_id", ev.ID)
		return OutcomeDuplicate, nil
	}

	tmpl, err := p.templates.Resolve(ev.Type)
	if err != nil {
		p.log.Error("unroutable event type", "message_id", ev.ID, "error", err)
		return OutcomeDropped, nil
	}

	order, err := p.orders.FetchOrder(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("enrich order %s: %w", orderID, err)
	}
	if order == nil {
		p.log.Warn("order not found, skipping notification", "message_id", ev.ID, "order_id", orderID)
		return OutcomeSkipped, nil
	}

	kind, body, err := tmpl.Render(order, ev)
	if err != nil {
		p.log.Error("failed to render notification", "message_id", ev.ID, "error", err)
		return OutcomeDropped, nil
	}

	n := &notification.Notification{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Kind:      kind,
		Recipient: order.CustomerEmail,
		Body:      body,
		Status:    notification.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	err = p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		isNew, err := p.ledger.MarkProcessed(txCtx, p.consumer, ev.ID, ev.Type)
		if err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		if !isNew {
			return errDuplicateRace
		}

		return p.notifications.Create(txCtx, n)
	})

	switch {
	case err == nil:
		p.log.Info("notification created",
			"message_id", ev.ID, "order_id", orderID, "kind", kind, "recipient", n.Recipient)
		return OutcomeProcessed, nil

	case errors.Is(err, errDuplicateRace):
		p.log.Info("lost dedup race to concurrent worker", "message_id", ev.ID)
		return OutcomeDuplicate, nil

	case errors.Is(err, notification.ErrDuplicateOrderRef):
		p.log.Error("duplicate notification reference, dead-lettering",
			"message_id", ev.ID, "order_id", orderID, "kind", kind, "error", err)
		if dlErr := p.deadLetters.SendDeadLetter(ctx, []byte(orderID), raw, err.Error()); dlErr != nil {
			return 0, fmt.Errorf("publish dead letter: %w", dlErr)
		}
		return OutcomeDeadLettered, nil

	default:
		return 0, fmt.Errorf("process event %s: %w", ev.ID, err)
	}
}
