package kafka_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orderflow/internal/infrastructure/kafka"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakySender) SendDeadLetter(ctx context.Context, key, value []byte, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func TestSendDeadLetterWithRetryRecovers(t *testing.T) {
	sender := &flakySender{failures: 2}

	err := kafka.SendDeadLetterWithRetry(context.Background(), sender,
		[]byte("key"), []byte("value"), "poison", 5, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures then success)", sender.calls)
	}
}

func TestSendDeadLetterWithRetryExhausts(t *testing.T) {
	sender := &flakySender{failures: 10}

	err := kafka.SendDeadLetterWithRetry(context.Background(), sender,
		[]byte("key"), []byte("value"), "poison", 3, time.Millisecond)
	if err == nil {
		t.Fatal("exhausted attempts must be reported, not swallowed")
	}
	if sender.calls != 3 {
		t.Errorf("calls = %d, want 3", sender.calls)
	}
}

func TestSendDeadLetterWithRetryHonorsCancellation(t *testing.T) {
	sender := &flakySender{failures: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kafka.SendDeadLetterWithRetry(ctx, sender,
		[]byte("key"), []byte("value"), "poison", 3, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if sender.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancellation)", sender.calls)
	}
}
