package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds double as routing keys on the notification exchange.
const (
	EventProjectCreated       = "project.created"
	EventProjectFunded        = "project.funded"
	EventMilestoneApproved    = "milestone.approved"
	EventMilestoneWithdrawn   = "milestone.withdrawn"
	EventContributionRefunded = "contribution.refunded"
)

// Event is one fire-and-forget notification for external observers such
// as indexers and UIs. Events are recorded atomically with the state
// change that produced them but are not part of the invariant surface.
type Event struct {
	ID         string
	Kind       string
	ProjectID  int64
	Payload    json.RawMessage
	OccurredAt time.Time
}

// ProjectCreatedPayload announces a new campaign.
type ProjectCreatedPayload struct {
	ProjectID  int64     `json:"project_id"`
	Creator    string    `json:"creator"`
	Title      string    `json:"title"`
	GoalAmount int64     `json:"goal_amount"`
	Deadline   time.Time `json:"deadline"`
}

// ProjectFundedPayload announces a deposit. OriginCountry is an ops
// annotation resolved from the request, never an eligibility input.
type ProjectFundedPayload struct {
	ProjectID     int64  `json:"project_id"`
	Contributor   string `json:"contributor"`
	Amount        int64  `json:"amount"`
	FundsRaised   int64  `json:"funds_raised"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// MilestoneApprovedPayload announces that a milestone crossed the
// approval threshold.
type MilestoneApprovedPayload struct {
	ProjectID int64 `json:"project_id"`
	Milestone int   `json:"milestone"`
	Approvals int   `json:"approvals"`
}

// MilestoneWithdrawnPayload announces a milestone payout to the creator.
type MilestoneWithdrawnPayload struct {
	ProjectID int64 `json:"project_id"`
	Milestone int   `json:"milestone"`
	Amount    int64 `json:"amount"`
	Completed bool  `json:"completed"`
}

// ContributionRefundedPayload announces a contributor reclaiming their
// deposit after a failed campaign.
type ContributionRefundedPayload struct {
	ProjectID   int64  `json:"project_id"`
	Contributor string `json:"contributor"`
	Amount      int64  `json:"amount"`
}

// NewEvent wraps a payload struct into an Event envelope. Payloads are
// plain structs; marshaling them cannot fail.
func NewEvent(kind string, projectID int64, payload any, now time.Time) Event {
	raw, _ := json.Marshal(payload)
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		ProjectID:  projectID,
		Payload:    raw,
		OccurredAt: now,
	}
}
