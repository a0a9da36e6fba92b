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
	"orderflow/internal/config"
	"orderflow/internal/enrichment"
	"orderflow/internal/infrastructure/kafka"
	"orderflow/internal/infrastructure/postgres"
	"orderflow/internal/notifier"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	notificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_notifications_created_total",
		Help: "The total number of notifications derived from order events",
	})
	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_duplicate_events_total",
		Help: "The total number of redelivered events skipped by the ledger",
	})
	eventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_events_skipped_total",
		Help: "The total number of events skipped (unhandled type or missing order)",
	})
	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notifier_processing_duration_seconds",
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
		logger.Info("Notifier metrics listening on :9092")
		http.ListenAndServe(":9092", mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	ledgerRepo := postgres.NewLedgerRepository(pgPool)
	notificationRepo := postgres.NewNotificationRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)

	orderClient := enrichment.NewClient(cfg.Enrichment.BaseURL, cfg.Enrichment.Timeout)

	dlqProducer := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.DLQTopic,
	})
	defer dlqProducer.Close()

	const consumerName = "notification-service"
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = consumerName
	}

	processor := notifier.NewProcessor(consumerName, txManager, ledgerRepo, notificationRepo,
		notifier.NewTemplateRegistry(), orderClient, dlqProducer, logger)

	workers := cfg.Kafka.Workers
	if workers < 1 {
		workers = 1
	}

	logger.Info("Notification Service Started", "consumer", consumerName, "group_id", groupID, "workers", workers)

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

func runWorker(ctx context.Context, worker int, cfg *config.Config, groupID string, processor *notifier.Processor, dlq *kafka.Producer, logger *slog.Logger) {
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
				case notifier.OutcomeProcessed:
					notificationsCreated.Inc()
				case notifier.OutcomeDuplicate:
					duplicatesSkipped.Inc()
				case notifier.OutcomeSkipped:
					eventsSkipped.Inc()
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
				if err := consumer.CommitMessages(ctx, msg); err != nil {
					logger.Error("failed to commit kafka message", "worker", worker, "error", err)
				}
			}
		}
	}
}
