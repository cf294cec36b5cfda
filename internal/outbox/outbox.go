// Package outbox delivers stored events to the message broker. Events
// are written by the project store in the same transaction as the state
// change that produced them; delivery happens afterwards and may lag,
// repeat on retry, or give up after too many attempts.
package outbox

import (
	"context"
	"encoding/json"
	"time"
)

// Statuses an event moves through.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Event is one stored notification awaiting delivery.
type Event struct {
	ID          string          `json:"id"`
	ProjectID   int64           `json:"project_id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Status      string          `json:"-"`
	RetryCount  int             `json:"-"`
	NextRetryAt *time.Time      `json:"-"`
}

// Store reads and settles stored events.
type Store interface {
	// PendingEvents returns events due for delivery, oldest first.
	PendingEvents(ctx context.Context, limit int) ([]Event, error)
	// MarkSent settles an event after successful delivery.
	MarkSent(ctx context.Context, id string) error
	// MarkFailed counts a failed attempt and either schedules a retry or,
	// past maxAttempts, parks the event as failed.
	MarkFailed(ctx context.Context, id string, maxAttempts int) error
	// ReplayEvent resets a parked event so the dispatcher picks it up again.
	ReplayEvent(ctx context.Context, id string) error
	// FailedEvents returns parked events, newest first.
	FailedEvents(ctx context.Context, limit int) ([]Event, error)
}

// Publisher delivers one serialized event to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}
