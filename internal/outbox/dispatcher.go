package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"escrow-service/internal/infra"
)

// Dispatcher scans the outbox and publishes pending events.
type Dispatcher struct {
	store       Store
	publisher   Publisher
	logger      zerolog.Logger
	maxAttempts int
	interval    time.Duration
	batchSize   int
}

// NewDispatcher creates a Dispatcher with default pacing.
func NewDispatcher(store Store, publisher Publisher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		maxAttempts: 5,
		interval:    time.Second,
		batchSize:   50,
	}
}

// WithMaxAttempts sets how many delivery attempts an event gets.
func (d *Dispatcher) WithMaxAttempts(maxAttempts int) *Dispatcher {
	if maxAttempts > 0 {
		d.maxAttempts = maxAttempts
	}
	return d
}

// WithInterval sets the scan interval.
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithBatchSize sets how many events one scan handles.
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// Start runs the scan loop until ctx is cancelled. It blocks and
// should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info().
		Dur("interval", d.interval).
		Int("batch_size", d.batchSize).
		Int("max_attempts", d.maxAttempts).
		Msg("outbox dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.processPending(ctx)
		}
	}
}

func (d *Dispatcher) processPending(ctx context.Context) {
	events, err := d.store.PendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("load pending events")
		return
	}

	for _, event := range events {
		if err := d.publish(ctx, event); err != nil {
			d.logger.Error().Err(err).
				Str("event_id", event.ID).
				Str("kind", event.Kind).
				Msg("publish event")
			infra.RecordOutboxDispatch("failed")
			if err := d.store.MarkFailed(ctx, event.ID, d.maxAttempts); err != nil {
				d.logger.Error().Err(err).Str("event_id", event.ID).Msg("mark event failed")
			}
			continue
		}

		infra.RecordOutboxDispatch("sent")
		if err := d.store.MarkSent(ctx, event.ID); err != nil {
			d.logger.Error().Err(err).Str("event_id", event.ID).Msg("mark event sent")
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return d.publisher.Publish(ctx, event.Kind, body)
}
