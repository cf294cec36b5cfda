package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
	"escrow-service/internal/feed"
	"escrow-service/internal/middleware"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Escrow *escrow.Service
	Auth   *escrow.AuthService
	Feed   *feed.Reader
	Logger zerolog.Logger

	// Ready reports backing-store health for /v1/healthz. Nil means
	// nothing to check.
	Ready func(ctx context.Context) error
}

func NewApp(svc *escrow.Service, auth *escrow.AuthService, feedReader *feed.Reader, logger zerolog.Logger) *App {
	return &App{Escrow: svc, Auth: auth, Feed: feedReader, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": errCode, "message": message}})
}

func (a *App) currentAccountID(r *http.Request) string {
	return middleware.AccountIDFromContext(r.Context())
}

// errorStatus maps ledger sentinels to stable error codes and statuses.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrProjectNotFound, http.StatusNotFound, "project_not_found"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{domain.ErrNotCreator, http.StatusForbidden, "not_creator"},
	{domain.ErrNotAContributor, http.StatusForbidden, "not_a_contributor"},
	{domain.ErrInvalidMilestoneSpec, http.StatusUnprocessableEntity, "invalid_milestones"},
	{domain.ErrInsufficientEscrow, http.StatusPaymentRequired, "insufficient_escrow"},
	{domain.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrFundingClosed, http.StatusConflict, "funding_closed"},
	{domain.ErrProjectCompleted, http.StatusConflict, "project_completed"},
	{domain.ErrDeadlinePassed, http.StatusConflict, "deadline_passed"},
	{domain.ErrNoMilestonePending, http.StatusConflict, "no_milestone_pending"},
	{domain.ErrMilestoneAlreadyApproved, http.StatusConflict, "milestone_already_approved"},
	{domain.ErrDuplicateVote, http.StatusConflict, "duplicate_vote"},
	{domain.ErrMilestoneNotApproved, http.StatusConflict, "milestone_not_approved"},
	{domain.ErrCampaignStillOpen, http.StatusConflict, "campaign_still_open"},
	{domain.ErrGoalReached, http.StatusConflict, "goal_reached"},
	{domain.ErrNoContribution, http.StatusConflict, "no_contribution"},
}

// domainError translates a service error into the wire shape. Unknown
// errors are storage or transport failures and stay opaque.
func (a *App) domainError(w http.ResponseWriter, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			a.error(w, m.status, m.code, m.err.Error())
			return
		}
	}
	a.Logger.Error().Err(err).Msg("operation failed")
	a.error(w, http.StatusInternalServerError, "internal", "operation failed")
}
