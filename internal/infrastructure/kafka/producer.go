package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	Topic   string
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg Config) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: w}
}

func (p *Producer) SendMessage(ctx context.Context, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// SendDeadLetter publishes the original message bytes with a reason
// header for operational inspection.
func (p *Producer) SendDeadLetter(ctx context.Context, key, value []byte, reason string) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "x-dead-letter-reason", Value: []byte(reason)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write dead letter: %w", err)
	}
	return nil
}

// DeadLetterSender publishes a message to the dead-letter topic.
type DeadLetterSender interface {
	SendDeadLetter(ctx context.Context, key, value []byte, reason string) error
}

// SendDeadLetterWithRetry retries a dead-letter publish with exponential
// backoff. The publish is the consumer's last step before committing past
// a poison message, so exhausting the attempts is reported to the caller
// instead of swallowed.
func SendDeadLetterWithRetry(ctx context.Context, sender DeadLetterSender, key, value []byte, reason string, attempts int, backoff time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << (i - 1)):
			}
		}
		if err = sender.SendDeadLetter(ctx, key, value, reason); err == nil {
			return nil
		}
	}
	return fmt.Errorf("dead-letter publish after %d attempts: %w", attempts, err)
}

func (p *Producer) GetTopic() string {
	return p.writer.Topic
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
