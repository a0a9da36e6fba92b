package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"orderflow/internal/billing"
	"orderflow/internal/domain/event"
	"orderflow/internal/domain/invoice"
	"orderflow/internal/tariff"
)

type ledgerStub struct {
	mu      sync.Mutex
	entries map[string]string // messageID -> eventType
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{entries: make(map[string]string)}
}

func (l *ledgerStub) HasProcessed(ctx context.Context, consumer, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[messageID]
	return ok, nil
}

func (l *ledgerStub) MarkProcessed(ctx context.Context, consumer, messageID, eventType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[messageID]; ok {
		return false, nil
	}
	l.entries[messageID] = eventType
	return true, nil
}

type invoiceStoreStub struct {
	mu        sync.Mutex
	byOrder   map[string]*invoice.Invoice
	createErr error
	calls     int
}

func newInvoiceStoreStub() *invoiceStoreStub {
	return &invoiceStoreStub{byOrder: make(map[string]*invoice.Invoice)}
}

func (s *invoiceStoreStub) Create(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byOrder[inv.OrderID]; ok {
		return invoice.ErrDuplicateOrderRef
	}
	s.byOrder[inv.OrderID] = inv
	return nil
}

type txStub struct{}

func (txStub) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

// commitFailTx runs the unit of work but fails at commit time, the way
// a dropped connection or serialization failure would.
type commitFailTx struct {
	commitErr error
}

func (t commitFailTx) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	if err := tFunc(ctx); err != nil {
		return err
	}
	return t.commitErr
}

type dlqStub struct {
	mu      sync.Mutex
	reasons []string
}

func (d *dlqStub) SendDeadLetter(ctx context.Context, key, value []byte, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reasons = append(d.reasons, reason)
	return nil
}

// countingTariffs wraps the real registry and counts Compute calls so
// tests can observe whether a redelivery re-ran the strategy.
type countingTariffs struct {
	inner    *tariff.Registry
	computes int
}

func (c *countingTariffs) Resolve(deliveryType string) (tariff.Strategy, error) {
	s, err := c.inner.Resolve(deliveryType)
	if err != nil {
		return nil, err
	}
	return &countingStrategy{inner: s, computes: &c.computes}, nil
}

type countingStrategy struct {
	inner    tariff.Strategy
	computes *int
}

func (c *countingStrategy) Name() string { return c.inner.Name() }

func (c *countingStrategy) Compute(p event.OrderCreatedPayload) float64 {
	*c.computes++
	return c.inner.Compute(p)
}

type fixture struct {
	processor *billing.Processor
	ledger    *ledgerStub
	store     *invoiceStoreStub
	dlq       *dlqStub
	tariffs   *countingTariffs
}

func newFixture() *fixture {
	f := &fixture{
		ledger:  newLedgerStub(),
		store:   newInvoiceStoreStub(),
		dlq:     &dlqStub{},
		tariffs: &countingTariffs{inner: tariff.NewRegistry()},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.processor = billing.NewProcessor("billing-service", txStub{}, f.ledger, f.store, f.tariffs, f.dlq, log)
	return f
}

func envelope(t *testing.T, id string, payload event.OrderCreatedPayload) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := json.Marshal(event.Message{
		ID:         id,
		Type:       event.TypeOrderCreated,
		Producer:   "order-service",
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestProcessCreatesInvoice(t *testing.T) {
	f := newFixture()

	raw := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID:      "order-1",
		DeliveryType: "URBANA",
		DistanceKm:   5,
	})

	outcome, err := f.processor.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != billing.OutcomeProcessed {
		t.Fatalf("outcome = %s, want processed", outcome)
	}

	inv, ok := f.store.byOrder["order-1"]
	if !ok {
		t.Fatal("invoice not created")
	}
	if inv.Amount != 15.00 {
		t.Errorf("amount = %.2f, want urban flat rate 15.00", inv.Amount)
	}
	if inv.Status != invoice.StatusDraft {
		t.Errorf("status = %s, want DRAFT", inv.Status)
	}
	if inv.DeliveryType != "urbana" {
		t.Errorf("delivery type = %s, want urbana", inv.DeliveryType)
	}
	if len(f.ledger.entries) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(f.ledger.entries))
	}
}

func TestRedeliveryIsNoOp(t *testing.T) {
	f := newFixture()

	raw := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID:      "order-1",
		DeliveryType: "urbana",
		DistanceKm:   5,
	})

	for i := 0; i < 3; i++ {
		outcome, err := f.processor.Process(context.Background(), raw)
		if err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
		want := billing.OutcomeProcessed
		if i > 0 {
			want = billing.OutcomeDuplicate
		}
		if outcome != want {
			t.Fatalf("delivery %d: outcome = %s, want %s", i+1, outcome, want)
		}
	}

	if f.store.calls != 1 {
		t.Errorf("store calls = %d, want 1", f.store.calls)
	}
	if f.tariffs.computes != 1 {
		t.Errorf("strategy invocations = %d, want 1", f.tariffs.computes)
	}
	if len(f.ledger.entries) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(f.ledger.entries))
	}
}

func TestEmptyDeliveryTypeDropped(t *testing.T) {
	f := newFixture()

	raw := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID:      "order-1",
		DeliveryType: "",
	})

	outcome, err := f.processor.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != billing.OutcomeDropped {
		t.Fatalf("outcome = %s, want dropped", outcome)
	}
	if len(f.store.byOrder) != 0 {
		t.Error("no invoice should be created for an unroutable event")
	}
	if len(f.ledger.entries) != 0 {
		t.Error("no ledger entry should be recorded for a dropped event")
	}
}

func TestUnknownDeliveryTypeUsesDefault(t *testing.T) {
	f := newFixture()

	raw := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID:      "order-1",
		DeliveryType: "drone",
		WeightKg:     8,
	})

	outcome, err := f.processor.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != billing.OutcomeProcessed {
		t.Fatalf("outcome = %s, want processed", outcome)
	}
	if inv := f.store.byOrder["order-1"]; inv.Amount != 24.00 {
		t.Errorf("amount = %.2f, want baseline 24.00", inv.Amount)
	}
}

func TestMalformedEnvelopeDropped(t *testing.T) {
	f := newFixture()

	outcome, err := f.processor.Process(context.Background(), []byte("{not json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != billing.OutcomeDropped {
		t.Fatalf("outcome = %s, want dropped", outcome)
	}
}

func TestUnhandledEventTypeSkipped(t *testing.T) {
	f := newFixture()

	raw, _ := json.Marshal(event.Message{ID: "msg-1", Type: "order.shipped"})
	outcome, err := f.processor.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != billing.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
}

func TestDuplicateOrderRefDeadLetters(t *testing.T) {
	f := newFixture()

	first := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID: "order-1", DeliveryType: "urbana",
	})
	second := envelope(t, "msg-2", event.OrderCreatedPayload{
		OrderID: "order-1", DeliveryType: "nacional", WeightKg: 1, DistanceKm: 10,
	})

	if _, err := f.processor.Process(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := f.processor.Process(context.Background(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != billing.OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead-lettered", outcome)
	}
	if len(f.dlq.reasons) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(f.dlq.reasons))
	}
	if len(f.store.byOrder) != 1 {
		t.Error("the first invoice must remain the only one for the order")
	}
}

func TestCommitFailureIsTransient(t *testing.T) {
	f := newFixture()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	commitErr := errors.New("unexpected EOF")
	p := billing.NewProcessor("billing-service", commitFailTx{commitErr: commitErr},
		f.ledger, f.store, f.tariffs, f.dlq, log)

	raw := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID: "order-1", DeliveryType: "urbana",
	})

	_, err := p.Process(context.Background(), raw)
	if err == nil {
		t.Fatal("a failed commit must surface as a transient error, not success")
	}
	if !errors.Is(err, commitErr) {
		t.Fatalf("error should wrap the commit failure, got %v", err)
	}
}

func TestTransientStoreErrorIsReturned(t *testing.T) {
	f := newFixture()
	f.store.createErr = errors.New("connection refused")

	raw := envelope(t, "msg-1", event.OrderCreatedPayload{
		OrderID: "order-1", DeliveryType: "urbana",
	})

	if _, err := f.processor.Process(context.Background(), raw); err == nil {
		t.Fatal("expected a transient error to propagate")
	}
}
