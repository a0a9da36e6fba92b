package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"orderflow/internal/application/factories/infrastructure"
	"orderflow/internal/billing"
	"orderflow/internal/config"
	"orderflow/internal/infrastructure/kafka"
	"orderflow/internal/infrastructure/postgres"
	"orderflow/internal/tariff"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	invoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_invoices_created_total",
		Help: "The total number of invoices created from order events",
	})
	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_duplicate_events_total",
		Help: "The total number of redelivered events skipped by the ledger",
	})
	eventsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_events_dead_lettered_total",
		Help: "The total number of events routed to the dead-letter topic",
	})
	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_processing_duration_seconds",
		Help:    "Time taken to process an order event",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("Failed to load config, using defaults", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Metrics Server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Billing metrics listening on :9091")
		http.ListenAndServe(":9091", mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	ledgerRepo := postgres.NewLedgerRepository(pgPool)
	invoiceRepo := postgres.NewInvoiceRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)

	dlqProducer := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.DLQTopic,
	})
	defer dlqProducer.Close()

	const consumerName = "billing-service"
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = consumerName
	}

	processor := billing.NewProcessor(consumerName, txManager, ledgerRepo, invoiceRepo,
		tariff.NewRegistry(), dlqProducer, logger)

	workers := cfg.Kafka.Workers
	if workers < 1 {
		workers = 1
	}

	logger.Info("Billing Service Started", "consumer", consumerName, "group_id", groupID, "workers", workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runWorker(ctx, worker, cfg, groupID, processor, dlqProducer, logger)
		}(i)
	}
	wg.Wait()
}

func runWorker(ctx context.Context, worker int, cfg *config.Config, groupID string, processor *billing.Processor, dlq *kafka.Producer, logger *slog.Logger) {
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, groupID)
	defer consumer.Close()

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to fetch message", "worker", worker, "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		const maxRetries = 5
		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				backoff := time.Duration(1<<attempt) * time.Second
				logger.Info("Retry attempt", "worker", worker, "attempt", attempt, "max", maxRetries, "backoff", backoff)
				time.Sleep(backoff)
			}

			started := time.Now()
			outcome, processErr := processor.Process(ctx, msg.Value)

			if processErr == nil {
				processingDuration.Observe(time.Since(started).Seconds())
				switch outcome {
				case billing.OutcomeProcessed:
					invoicesCreated.Inc()
				case billing.OutcomeDuplicate:
					duplicatesSkipped.Inc()
				case billing.OutcomeDeadLettered:
					eventsDeadLettered.Inc()
				}
				if err := consumer.CommitMessages(ctx, msg); err != nil {
					logger.Error("failed to commit kafka message", "worker", worker, "error", err)
				}
				break
			}

			logger.Error("Processing failed", "worker", worker, "error", processErr)
			if attempt == maxRetries {
				logger.Error("DLQ: routing message after retries", "worker", worker, "retries", maxRetries, "error", processErr)
				if err := kafka.SendDeadLetterWithRetry(ctx, dlq, msg.Key, msg.Value, processErr.Error(), 3, time.Second); err != nil {
					// The message is still uncommitted. Halting the worker
					// keeps the offset in place so a restart redelivers it,
					// instead of a later commit silently skipping past it.
					logger.Error("failed to publish dead letter, stopping worker", "worker", worker, "error", err)
					return
				}
				eventsDeadLettered.Inc()
				if err := consumer.CommitMessages(ctx, msg); err != nil {
					logger.Error("failed to commit kafka message", "worker", worker, "error", err)
				}
			}
		}
	}
}
