package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderflow/internal/domain/invoice"
	"orderflow/internal/domain/outbox"
	"orderflow/internal/infrastructure/postgres"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TransitionStatus moves an invoice along its state machine and records
// an invoice.status-changed outbox event in the same transaction, to be
// published by the relay.
type TransitionStatus struct {
	txManager   postgres.Transactor
	invoiceRepo *postgres.InvoiceRepository
	outboxRepo  *postgres.OutboxRepository
	redisClient *redis.Client
}

func NewTransitionStatus(
	txManager postgres.Transactor,
	invoiceRepo *postgres.InvoiceRepository,
	outboxRepo *postgres.OutboxRepository,
	redisClient *redis.Client,
) *TransitionStatus {
	return &TransitionStatus{
		txManager:   txManager,
		invoiceRepo: invoiceRepo,
		outboxRepo:  outboxRepo,
		redisClient: redisClient,
	}
}

type statusChangedEvent struct {
	InvoiceID string    `json:"invoice_id"`
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

func (uc *TransitionStatus) Execute(ctx context.Context, invoiceID string, next invoice.Status) error {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}

	if err := inv.Status.Transition(next); err != nil {
		return err
	}

	payload, err := json.Marshal(statusChangedEvent{
		InvoiceID: inv.ID,
		OrderID:   inv.OrderID,
		OldStatus: string(inv.Status),
		NewStatus: string(next),
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	outboxEvent := &outbox.Event{
		ID:            uuid.New().String(),
		EventType:     "invoice.status-changed",
		Payload:       payload,
		Status:        "new",
		CorrelationID: inv.OrderID,
		Producer:      "billing-api",
		CreatedAt:     time.Now().UTC(),
	}

	err = uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Conditional update: a concurrent transition on the same
		// invoice loses here and surfaces as ErrInvalidTransition.
		if err := uc.invoiceRepo.UpdateStatus(txCtx, inv.ID, inv.Status, next); err != nil {
			return err
		}

		return uc.outboxRepo.Create(txCtx, outboxEvent)
	})
	if err != nil {
		return err
	}

	if uc.redisClient != nil {
		uc.redisClient.Del(ctx, fmt.Sprintf("invoice:%s", inv.ID))
	}

	return nil
}
