package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/domain/invoice"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type InvoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// Create inserts a new invoice. The unique index on order_id is the
// defense against two distinct messages billing the same order; its
// violation is surfaced as invoice.ErrDuplicateOrderRef.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	const sql = `
		INSERT INTO invoices (id, order_id, customer_id, delivery_type, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := executorFrom(ctx, r.pool).Exec(ctx, sql,
		inv.ID, inv.OrderID, nullIfEmptyText(inv.CustomerID), inv.DeliveryType,
		inv.Amount, inv.Status, inv.CreatedAt, inv.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: order %s", invoice.ErrDuplicateOrderRef, inv.OrderID)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*invoice.Invoice, error) {
	const sql = `
		SELECT id, order_id, COALESCE(customer_id, ''), delivery_type, amount, status, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, sql, id))
}

func (r *InvoiceRepository) GetByOrderID(ctx context.Context, orderID string) (*invoice.Invoice, error) {
	const sql = `
		SELECT id, order_id, COALESCE(customer_id, ''), delivery_type, amount, status, created_at, updated_at
		FROM invoices
		WHERE order_id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, sql, orderID))
}

func (r *InvoiceRepository) scanOne(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.CustomerID, &inv.DeliveryType,
		&inv.Amount, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return &inv, nil
}

// ListFilter narrows List results. Zero values mean "no restriction".
type ListFilter struct {
	Status invoice.Status
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (r *InvoiceRepository) List(ctx context.Context, f ListFilter) ([]*invoice.Invoice, error) {
	const sql = `
		SELECT id, order_id, COALESCE(customer_id, ''), delivery_type, amount, status, created_at, updated_at
		FROM invoices
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, sql,
		string(f.Status), nullIfZeroTime(f.From), nullIfZeroTime(f.To), limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.Scan(&inv.ID, &inv.OrderID, &inv.CustomerID, &inv.DeliveryType,
			&inv.Amount, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}

	return invoices, rows.Err()
}

// UpdateStatus moves an invoice from one status to another. The WHERE
// clause on the current status makes the transition conditional, so two
// concurrent transitions cannot both succeed.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, from, to invoice.Status) error {
	const sql = `
		UPDATE invoices
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := executorFrom(ctx, r.pool).Exec(ctx, sql, id, from, to)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s is no longer %s", invoice.ErrInvalidTransition, id, from)
	}

	return nil
}

// Stats aggregates over all invoices. COALESCE keeps sums and averages
// at zero when the table is empty.
func (r *InvoiceRepository) Stats(ctx context.Context) (*invoice.Stats, error) {
	const totalsSQL = `
		SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(AVG(amount), 0)
		FROM invoices
	`

	stats := &invoice.Stats{ByStatus: make(map[invoice.Status]invoice.Summary)}
	err := r.pool.QueryRow(ctx, totalsSQL).Scan(&stats.Total, &stats.TotalAmount, &stats.AverageAmount)
	if err != nil {
		return nil, fmt.Errorf("query invoice totals: %w", err)
	}

	const byStatusSQL = `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM invoices
		GROUP BY status
	`

	rows, err := r.pool.Query(ctx, byStatusSQL)
	if err != nil {
		return nil, fmt.Errorf("query invoice stats by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status invoice.Status
		var s invoice.Summary
		if err := rows.Scan(&status, &s.Count, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan invoice summary: %w", err)
		}
		stats.ByStatus[status] = s
	}

	return stats, rows.Err()
}

func nullIfEmptyText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
