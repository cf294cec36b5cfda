package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"escrow-service/internal/outbox"
)

// Reader serves rendered feed pages. Stored envelopes that no longer
// render, for example after an event kind is retired, are skipped
// rather than failing the page.
type Reader struct {
	store  Store
	logger zerolog.Logger

	mu         sync.Mutex
	formatters map[string]*Formatter
}

// NewReader creates a Reader.
func NewReader(store Store, logger zerolog.Logger) *Reader {
	return &Reader{
		store:      store,
		logger:     logger,
		formatters: make(map[string]*Formatter),
	}
}

// Recent returns up to limit entries rendered in locale, newest first.
func (r *Reader) Recent(ctx context.Context, locale string, limit int) ([]Entry, error) {
	f := r.formatter(locale)

	raws, err := r.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var env outbox.Event
		if err := json.Unmarshal(raw, &env); err != nil {
			r.logger.Warn().Err(err).Msg("skipping unreadable feed entry")
			continue
		}
		entry, err := f.Entry(env)
		if err != nil {
			r.logger.Warn().Err(err).Str("event_id", env.ID).Msg("skipping unrenderable feed entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// formatter caches one Formatter per locale. The middleware normalizes
// locales to a small fixed set, so the cache stays bounded.
func (r *Reader) formatter(locale string) *Formatter {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.formatters[locale]
	if !ok {
		f = NewFormatter(locale)
		r.formatters[locale] = f
	}
	return f
}
