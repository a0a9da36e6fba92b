package postgres

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/domain/notification"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a notification. The unique index on (order_id, kind)
// guarantees at most one notification per order per lifecycle moment.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	const sql = `
		INSERT INTO notifications (id, order_id, kind, recipient, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := executorFrom(ctx, r.pool).Exec(ctx, sql,
		n.ID, n.OrderID, n.Kind, nullIfEmptyText(n.Recipient), n.Body, n.Status, n.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: order %s kind %s", notification.ErrDuplicateOrderRef, n.OrderID, n.Kind)
		}
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) ListByOrderID(ctx context.Context, orderID string) ([]*notification.Notification, error) {
	const sql = `
		SELECT id, order_id, kind, COALESCE(recipient, ''), body, status, created_at
		FROM notifications
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, sql, orderID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Kind, &n.Recipient, &n.Body, &n.Status, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}
