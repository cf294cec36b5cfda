package handlers

import (
	"net/http"

	"escrow-service/internal/middleware"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

func (a *App) FeedRecent(w http.ResponseWriter, r *http.Request) {
	if a.Feed == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "activity feed is not configured")
		return
	}
	limit := queryInt(r, "limit", defaultFeedLimit)
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	locale := middleware.LocaleFromContext(r.Context())
	entries, err := a.Feed.Recent(r.Context(), locale, limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("feed read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load feed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": entries})
}
