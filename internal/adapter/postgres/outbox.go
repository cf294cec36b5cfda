package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"escrow-service/internal/outbox"
)

// OutboxStorePG implements outbox.Store backed by PostgreSQL. Events
// are inserted by the project store inside its transactions; this type
// only reads and settles them.
type OutboxStorePG struct {
	pool *pgxpool.Pool
}

// NewOutboxStore creates a new OutboxStorePG.
func NewOutboxStore(pool *pgxpool.Pool) *OutboxStorePG {
	return &OutboxStorePG{pool: pool}
}

// PendingEvents returns events due for delivery, oldest first.
func (s *OutboxStorePG) PendingEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, project_id, kind, payload, occurred_at, status, retry_count, next_retry_at
FROM outbox_events
WHERE status = 'pending'
  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
ORDER BY created_at ASC
LIMIT $1;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// MarkSent settles an event after successful delivery.
func (s *OutboxStorePG) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE outbox_events
SET status = 'sent', updated_at = NOW()
WHERE id = $1;
`, id)
	if err != nil {
		return fmt.Errorf("mark event sent: %w", err)
	}
	return nil
}

// MarkFailed counts a failed attempt. The event stays pending with a
// linear backoff until maxAttempts, then parks as failed.
func (s *OutboxStorePG) MarkFailed(ctx context.Context, id string, maxAttempts int) error {
	var retryCount int
	err := s.pool.QueryRow(ctx, `
SELECT retry_count FROM outbox_events WHERE id = $1;
`, id).Scan(&retryCount)
	if err != nil {
		return fmt.Errorf("load retry count: %w", err)
	}
	retryCount++

	status := outbox.StatusPending
	var nextRetryAt *time.Time
	if retryCount >= maxAttempts {
		status = outbox.StatusFailed
	} else {
		next := time.Now().Add(time.Duration(retryCount) * 5 * time.Second)
		nextRetryAt = &next
	}

	_, err = s.pool.Exec(ctx, `
UPDATE outbox_events
SET status = $2, retry_count = $3, next_retry_at = $4, updated_at = NOW()
WHERE id = $1;
`, id, status, retryCount, nextRetryAt)
	if err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}

// ReplayEvent resets a parked event so the dispatcher retries it.
func (s *OutboxStorePG) ReplayEvent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE outbox_events
SET status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
WHERE id = $1;
`, id)
	if err != nil {
		return fmt.Errorf("replay event: %w", err)
	}
	return nil
}

// FailedEvents returns parked events, newest first.
func (s *OutboxStorePG) FailedEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, project_id, kind, payload, occurred_at, status, retry_count, next_retry_at
FROM outbox_events
WHERE status = 'failed'
ORDER BY created_at DESC
LIMIT $1;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]outbox.Event, error) {
	var events []outbox.Event
	for rows.Next() {
		var e outbox.Event
		if err := rows.Scan(
			&e.ID,
			&e.ProjectID,
			&e.Kind,
			&e.Payload,
			&e.OccurredAt,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ outbox.Store = (*OutboxStorePG)(nil)
