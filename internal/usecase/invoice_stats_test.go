package usecase_test

import (
	"context"
	"testing"

	"orderflow/internal/domain/invoice"
	"orderflow/internal/usecase"
)

type statsSourceStub struct {
	stats *invoice.Stats
	err   error
}

func (s *statsSourceStub) Stats(ctx context.Context) (*invoice.Stats, error) {
	return s.stats, s.err
}

func TestStatsWithZeroRecords(t *testing.T) {
	uc := usecase.NewGetInvoiceStats(&statsSourceStub{stats: &invoice.Stats{}})

	stats, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Total != 0 || stats.TotalAmount != 0 || stats.AverageAmount != 0 {
		t.Errorf("totals should be zero, got %+v", stats)
	}
	if len(stats.ByStatus) != 4 {
		t.Fatalf("expected all 4 statuses present, got %d", len(stats.ByStatus))
	}
	for status, s := range stats.ByStatus {
		if s.Count != 0 || s.Amount != 0 {
			t.Errorf("status %s should be zeroed, got %+v", status, s)
		}
	}
}

func TestStatsPreservesCounts(t *testing.T) {
	src := &statsSourceStub{stats: &invoice.Stats{
		Total:         2,
		TotalAmount:   45.00,
		AverageAmount: 22.50,
		ByStatus: map[invoice.Status]invoice.Summary{
			invoice.StatusDraft: {Count: 2, Amount: 45.00},
		},
	}}

	stats, err := usecase.NewGetInvoiceStats(src).Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ByStatus[invoice.StatusDraft].Count != 2 {
		t.Errorf("draft count = %d, want 2", stats.ByStatus[invoice.StatusDraft].Count)
	}
	if stats.ByStatus[invoice.StatusPaid].Count != 0 {
		t.Errorf("paid should be present and zero")
	}
}
