package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/domain/invoice"
	"orderflow/internal/infrastructure/postgres"
)

// ErrInvalidFilter marks a listing error caused by the caller's filter
// values, so the API layer can answer 400 instead of 500.
var ErrInvalidFilter = errors.New("invalid filter")

type ListInvoices struct {
	invoiceRepo *postgres.InvoiceRepository
}

func NewListInvoices(invoiceRepo *postgres.InvoiceRepository) *ListInvoices {
	return &ListInvoices{invoiceRepo: invoiceRepo}
}

type ListInvoicesParams struct {
	Status string
	From   time.Time
	To     time.Time
	Page   int
	Size   int
}

func (uc *ListInvoices) Execute(ctx context.Context, params ListInvoicesParams) ([]*invoice.Invoice, error) {
	var status invoice.Status
	if params.Status != "" {
		status = invoice.Status(params.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, params.Status)
		}
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.Size
	if size < 1 || size > 200 {
		size = 50
	}

	invoices, err := uc.invoiceRepo.List(ctx, postgres.ListFilter{
		Status: status,
		From:   params.From,
		To:     params.To,
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}

	// An empty page is a valid result, not an error.
	if invoices == nil {
		invoices = []*invoice.Invoice{}
	}
	return invoices, nil
}
