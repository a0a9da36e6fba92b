package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	domainEvent "orderflow/internal/domain/event"
	"orderflow/internal/domain/outbox"
	"orderflow/internal/infrastructure/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_outbox_events_published_total",
		Help: "The total number of outbox events published to Kafka",
	})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_outbox_publish_errors_total",
		Help: "The total number of failed publish attempts",
	})
)

// Poller drains the outbox table and publishes invoice events to
// Kafka. Failed events return to 'new' and are retried on the next
// tick.
type Poller struct {
	outboxRepo outbox.Repository
	producer   *kafka.Producer
	interval   time.Duration
	batchSize  int
	log        *slog.Logger
}

func NewPoller(outboxRepo outbox.Repository, producer *kafka.Producer, log *slog.Logger) *Poller {
	return &Poller{
		outboxRepo: outboxRepo,
		producer:   producer,
		interval:   2 * time.Second,
		batchSize:  10,
		log:        log,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("outbox relay started", "topic", p.producer.GetTopic())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.log.Error("failed to process outbox batch", "error", err)
			}
		}
	}
}

func (p *Poller) processBatch(ctx context.Context) error {
	events, err := p.outboxRepo.FetchBatch(ctx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	var processedIDs []string
	var failedIDs []string

	for _, e := range events {
		key := []byte(e.CorrelationID)
		if len(key) == 0 {
			key = []byte(e.ID)
		}

		msg := domainEvent.Message{
			ID:            e.ID,
			Type:          e.EventType,
			CorrelationID: e.CorrelationID,
			CausationID:   e.CausationID,
			Producer:      e.Producer,
			OccurredAt:    time.Now().UTC(),
			Payload:       e.Payload,
		}

		value, err := json.Marshal(msg)
		if err != nil {
			p.log.Error("failed to marshal outbox event", "event_id", e.ID, "error", err)
			publishErrors.Inc()
			failedIDs = append(failedIDs, e.ID)
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.producer.SendMessage(sendCtx, key, value)
		cancel()

		if err != nil {
			p.log.Error("failed to publish outbox event", "event_id", e.ID, "error", err)
			publishErrors.Inc()
			failedIDs = append(failedIDs, e.ID)
			continue
		}

		eventsPublished.Inc()
		processedIDs = append(processedIDs, e.ID)
	}

	if len(processedIDs) > 0 {
		if err := p.outboxRepo.MarkProcessed(ctx, processedIDs); err != nil {
			return err
		}
		p.log.Info("published outbox events", "count", len(processedIDs))
	}

	if len(failedIDs) > 0 {
		if err := p.outboxRepo.MarkFailed(ctx, failedIDs); err != nil {
			p.log.Error("failed to mark events as failed", "error", err)
		}
	}

	return nil
}
