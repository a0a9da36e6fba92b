package usecase

import (
	"context"

	"orderflow/internal/domain/invoice"
)

type StatsSource interface {
	Stats(ctx context.Context) (*invoice.Stats, error)
}

type GetInvoiceStats struct {
	source StatsSource
}

func NewGetInvoiceStats(source StatsSource) *GetInvoiceStats {
	return &GetInvoiceStats{source: source}
}

// Execute returns aggregate invoice statistics. Every status is present
// in the result, with zero counts when no invoices exist.
func (uc *GetInvoiceStats) Execute(ctx context.Context) (*invoice.Stats, error) {
	stats, err := uc.source.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if stats.ByStatus == nil {
		stats.ByStatus = make(map[invoice.Status]invoice.Summary)
	}
	for _, s := range []invoice.Status{
		invoice.StatusDraft, invoice.StatusPending, invoice.StatusPaid, invoice.StatusCancelled,
	} {
		if _, ok := stats.ByStatus[s]; !ok {
			stats.ByStatus[s] = invoice.Summary{}
		}
	}

	return stats, nil
}
