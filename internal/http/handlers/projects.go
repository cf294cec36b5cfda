package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
)

type projectCreateRequest struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	GoalAmount            int64    `json:"goal_amount"`
	DurationDays          int      `json:"duration_days"`
	MilestoneDescriptions []string `json:"milestone_descriptions"`
	MilestoneAmounts      []int64  `json:"milestone_amounts"`
}

type milestoneDTO struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Approved    bool   `json:"approved"`
	Approvals   int    `json:"approvals"`
}

type projectDTO struct {
	ID               int64          `json:"id"`
	Creator          string         `json:"creator"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	GoalAmount       int64          `json:"goal_amount"`
	FundsRaised      int64          `json:"funds_raised"`
	EscrowBalance    int64          `json:"escrow_balance"`
	Deadline         time.Time      `json:"deadline"`
	Completed        bool           `json:"completed"`
	Failed           bool           `json:"failed"`
	CurrentMilestone int            `json:"current_milestone"`
	Milestones       []milestoneDTO `json:"milestones"`
	Contributors     int            `json:"contributors"`
	YourContribution *int64         `json:"your_contribution,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type projectSummaryDTO struct {
	ID               int64     `json:"id"`
	Creator          string    `json:"creator"`
	Title            string    `json:"title"`
	GoalAmount       int64     `json:"goal_amount"`
	FundsRaised      int64     `json:"funds_raised"`
	Deadline         time.Time `json:"deadline"`
	Completed        bool      `json:"completed"`
	Failed           bool      `json:"failed"`
	CurrentMilestone int       `json:"current_milestone"`
	MilestoneCount   int       `json:"milestone_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// toProjectDTO renders the aggregate. accountID selects whose
// contribution balance to include; "" omits it.
func (a *App) toProjectDTO(p *domain.Project, accountID string, now time.Time) projectDTO {
	milestones := make([]milestoneDTO, len(p.Milestones))
	for i, m := range p.Milestones {
		milestones[i] = milestoneDTO{
			Index:       i,
			Description: m.Description,
			Amount:      m.Amount,
			Approved:    m.Approved,
			Approvals:   m.Approvals,
		}
	}
	contributors := 0
	for _, amount := range p.Contributions {
		if amount > 0 {
			contributors++
		}
	}
	dto := projectDTO{
		ID:               p.ID,
		Creator:          p.Creator,
		Title:            p.Title,
		Description:      p.Description,
		GoalAmount:       p.GoalAmount,
		FundsRaised:      p.FundsRaised,
		EscrowBalance:    p.EscrowBalance,
		Deadline:         p.Deadline,
		Completed:        p.Completed,
		Failed:           p.Failed(now),
		CurrentMilestone: p.CurrentMilestone,
		Milestones:       milestones,
		Contributors:     contributors,
		CreatedAt:        p.CreatedAt,
	}
	if accountID != "" {
		balance := p.Contributions[accountID]
		dto.YourContribution = &balance
	}
	return dto
}

func (a *App) ProjectsCreate(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	var req projectCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title required")
		return
	}
	if req.GoalAmount < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "goal_amount must not be negative")
		return
	}
	if req.DurationDays <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "duration_days must be positive")
		return
	}
	for _, amount := range req.MilestoneAmounts {
		if amount < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "milestone amounts must not be negative")
			return
		}
	}

	p, err := a.Escrow.CreateProject(r.Context(), escrow.CreateProjectInput{
		Creator:               accountID,
		Title:                 req.Title,
		Description:           req.Description,
		GoalAmount:            req.GoalAmount,
		DurationDays:          req.DurationDays,
		MilestoneDescriptions: req.MilestoneDescriptions,
		MilestoneAmounts:      req.MilestoneAmounts,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, a.toProjectDTO(p, accountID, a.Escrow.Now()))
}

func (a *App) ProjectsList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	summaries, err := a.Escrow.ListProjects(r.Context(), limit, offset)
	if err != nil {
		a.domainError(w, err)
		return
	}
	now := a.Escrow.Now()
	items := make([]projectSummaryDTO, len(summaries))
	for i, s := range summaries {
		items[i] = projectSummaryDTO{
			ID:               s.ID,
			Creator:          s.Creator,
			Title:            s.Title,
			GoalAmount:       s.GoalAmount,
			FundsRaised:      s.FundsRaised,
			Deadline:         s.Deadline,
			Completed:        s.Completed,
			Failed:           s.Failed(now),
			CurrentMilestone: s.CurrentMilestone,
			MilestoneCount:   s.MilestoneCount,
			CreatedAt:        s.CreatedAt,
		}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) ProjectGet(w http.ResponseWriter, r *http.Request) {
	id, ok := a.projectID(w, r)
	if !ok {
		return
	}
	p, err := a.Escrow.GetProject(r.Context(), id)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.toProjectDTO(p, a.currentAccountID(r), a.Escrow.Now()))
}

// projectID parses the {id} path parameter, writing the error response
// itself when the value is unusable.
func (a *App) projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid project id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
