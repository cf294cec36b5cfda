package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"escrow-service/internal/infra"
	"escrow-service/internal/outbox"
)

const (
	// dedupTTL bounds how long an event id blocks redelivery. Longer than
	// any plausible broker requeue window.
	dedupTTL = 24 * time.Hour

	defaultMaxEntries = 100
)

// Projector consumes ledger events off the broker and appends them to
// the activity feed. Entries are stored as raw envelopes; rendering
// happens at read time in the reader's locale.
type Projector struct {
	store      Store
	formatter  *Formatter
	maxEntries int
	logger     zerolog.Logger
}

// NewProjector creates a Projector keeping at most maxEntries entries.
// The formatter is only used to reject events the feed cannot render.
func NewProjector(store Store, formatter *Formatter, maxEntries int, logger zerolog.Logger) *Projector {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Projector{
		store:      store,
		formatter:  formatter,
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Handle processes one delivery. Malformed, duplicate, and unrenderable
// messages return nil so the consumer acks them instead of requeueing
// forever; only feed writes are retryable.
func (p *Projector) Handle(ctx context.Context, body []byte) error {
	var env outbox.Event
	if err := json.Unmarshal(body, &env); err != nil {
		p.logger.Error().Err(err).Msg("malformed event envelope, dropping")
		return nil
	}

	first, err := p.store.Remember(ctx, env.ID, dedupTTL)
	if err != nil {
		// Dedup is best effort. A Redis hiccup must not stall the feed.
		p.logger.Warn().Err(err).Str("event_id", env.ID).Msg("dedup check failed, processing anyway")
		first = true
	}
	if !first {
		infra.RecordFeedEntry("duplicate")
		p.logger.Info().
			Str("event_id", env.ID).
			Str("kind", env.Kind).
			Msg("duplicate event skipped")
		return nil
	}

	if _, err := p.formatter.Entry(env); err != nil {
		p.logger.Error().Err(err).
			Str("event_id", env.ID).
			Str("kind", env.Kind).
			Msg("unrenderable event, dropping")
		return nil
	}

	if err := p.store.Push(ctx, body, p.maxEntries); err != nil {
		infra.RecordFeedEntry("failed")
		if ferr := p.store.Forget(ctx, env.ID); ferr != nil {
			p.logger.Warn().Err(ferr).Str("event_id", env.ID).Msg("could not release dedup claim")
		}
		return fmt.Errorf("push feed entry: %w", err)
	}

	infra.RecordFeedEntry("written")
	p.logger.Info().
		Str("event_id", env.ID).
		Str("kind", env.Kind).
		Int64("project_id", env.ProjectID).
		Msg("feed entry written")
	return nil
}
