package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/domain/event"
	"orderflow/internal/domain/invoice"
	"orderflow/internal/infrastructure/postgres"
	"orderflow/internal/tariff"

	"github.com/google/uuid"
)

// Outcome tells the consumer loop what to do with the broker message.
// Every outcome except a returned error means "commit the offset".
type Outcome int

const (
	// OutcomeProcessed: invoice and ledger entry committed.
	OutcomeProcessed Outcome = iota
	// OutcomeDuplicate: message ID already in the ledger, nothing done.
	OutcomeDuplicate
	// OutcomeSkipped: event type not handled by this consumer.
	OutcomeSkipped
	// OutcomeDropped: poison message, logged and discarded.
	OutcomeDropped
	// OutcomeDeadLettered: integrity anomaly routed to the DLQ topic.
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

type InvoiceStore interface {
	Create(ctx context.Context, inv *invoice.Invoice) error
}

type DeadLetterer interface {
	SendDeadLetter(ctx context.Context, key, value []byte, reason string) error
}

type TariffResolver interface {
	Resolve(deliveryType string) (tariff.Strategy, error)
}

// errDuplicateRace aborts the transaction when another worker recorded
// the same message ID between our ledger pre-check and commit.
var errDuplicateRace = errors.New("message already recorded by concurrent worker")

// Processor turns order.created events into invoices exactly once per
// message ID. The ledger entry and the invoice are written in one
// transaction, so a crash before commit leaves the message unprocessed
// and redelivery is safe.
type Processor struct {
	consumer    string
	tx          postgres.Transactor
	ledger      Ledger
	invoices    InvoiceStore
	tariffs     TariffResolver
	deadLetters DeadLetterer
	log         *slog.Logger
}

func NewProcessor(
	consumer string,
	tx postgres.Transactor,
	ledger Ledger,
	invoices InvoiceStore,
	tariffs TariffResolver,
	deadLetters DeadLetterer,
	log *slog.Logger,
) *Processor {
	return &Processor{
		consumer:    consumer,
		tx:          tx,
		ledger:      ledger,
		invoices:    invoices,
		tariffs:     tariffs,
		deadLetters: deadLetters,
		log:         log,
	}
}

// Process handles one raw broker message. A non-nil error is transient:
// the caller must not commit the offset, so the broker redelivers.
func (p *Processor) Process(ctx context.Context, raw []byte) (Outcome, error) {
	var ev event.Message
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.log.Error("failed to unmarshal event envelope", "error", err)
		return OutcomeDropped, nil
	}

	if ev.Type != event.TypeOrderCreated {
		return OutcomeSkipped, nil
	}

	if ev.ID == "" {
		p.log.Error("event has no message id", "type", ev.Type)
		return OutcomeDropped, nil
	}

	var payload event.OrderCreatedPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		p.log.Error("failed to unmarshal order payload", "message_id", ev.ID, "error", err)
		return OutcomeDropped, nil
	}
	if payload.OrderID == "" {
		p.log.Error("order payload has no order id", "message_id", ev.ID)
		return OutcomeDropped, nil
	}

	processed, err := p.ledger.HasProcessed(ctx, p.consumer, ev.ID)
	if err != nil {
		return 0, fmt.Errorf("ledger check: %w", err)
	}
	if processed {
		p.log.Info("duplicate message, skipping", "message_id", ev.ID)
		return OutcomeDuplicate, nil
	}

	strategy, err := p.tariffs.Resolve(payload.DeliveryType)
	if err != nil {
		// Empty delivery type is a caller error, same poison policy
		// as an undecodable payload.
		p.log.Error("unroutable delivery type", "message_id", ev.ID, "error", err)
		return OutcomeDropped, nil
	}

	now := time.Now().UTC()
	inv := &invoice.Invoice{
		ID:           uuid.New().String(),
		OrderID:      payload.OrderID,
		CustomerID:   payload.CustomerID,
		DeliveryType: strategy.Name(),
		Amount:       strategy.Compute(payload),
		Status:       invoice.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		isNew, err := p.ledger.MarkProcessed(txCtx, p.consumer, ev.ID, ev.Type)
		if err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		if !isNew {
			return errDuplicateRace
		}

		if err := p.invoices.Create(txCtx, inv); err != nil {
			return err
		}

		return nil
	})

	switch {
	case err == nil:
		p.log.Info("invoice created",
			"message_id", ev.ID, "order_id", payload.OrderID,
			"invoice_id", inv.ID, "delivery_type", inv.DeliveryType, "amount", inv.Amount)
		return OutcomeProcessed, nil

	case errors.Is(err, errDuplicateRace):
		p.log.Info("lost dedup race to concurrent worker", "message_id", ev.ID)
		return OutcomeDuplicate, nil

	case errors.Is(err, invoice.ErrDuplicateOrderRef):
		// Different message ID, same order: upstream anomaly. Do not
		// overwrite; surface for operational inspection.
		p.log.Error("duplicate order reference, dead-lettering",
			"message_id", ev.ID, "order_id", payload.OrderID, "error", err)
		if dlErr := p.deadLetters.SendDeadLetter(ctx, []byte(payload.OrderID), raw, err.Error()); dlErr != nil {
			return 0, fmt.Errorf("publish dead letter: %w", dlErr)
		}
		return OutcomeDeadLettered, nil

	default:
		return 0, fmt.Errorf("process event %s: %w", ev.ID, err)
	}
}
