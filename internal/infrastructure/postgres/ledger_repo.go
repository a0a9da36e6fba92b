package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository stores which message IDs each consumer has already
// processed. Rows are written once, in the same transaction as the
// derived record, and never updated or deleted.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// HasProcessed is a pure lookup with no side effect. It may race with a
// concurrent MarkProcessed; the unique constraint at commit time is the
// authoritative check.
func (r *LedgerRepository) HasProcessed(ctx context.Context, consumer, messageID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM processed_events
			WHERE consumer = $1 AND message_id = $2
		)
	`

	var exists bool
	if err := executorFrom(ctx, r.pool).QueryRow(ctx, query, consumer, messageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}

	return exists, nil
}

// MarkProcessed returns true if the entry was inserted (message is new),
// false if another worker already recorded it.
func (r *LedgerRepository) MarkProcessed(ctx context.Context, consumer, messageID, eventType string) (bool, error) {
	const query = `
		INSERT INTO processed_events (consumer, message_id, event_type, processed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (consumer, message_id) DO NOTHING
	`

	tag, err := executorFrom(ctx, r.pool).Exec(ctx, query, consumer, messageID, eventType)
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
