package domain

import (
	"context"
	"time"
)

// ProjectStore persists project aggregates. It realizes the substrate
// guarantees the core relies on: durable key-indexed storage with
// per-operation atomicity and per-project mutual exclusion.
type ProjectStore interface {
	// Create assigns the next project id, persists the aggregate and the
	// creation events in one atomic unit, and returns the id. The events
	// callback runs after the id is assigned.
	Create(ctx context.Context, p *Project, events func(p *Project) []Event) (int64, error)

	// Get returns a snapshot of the aggregate, or ErrProjectNotFound.
	Get(ctx context.Context, id int64) (*Project, error)

	// List returns newest-first listing projections.
	List(ctx context.Context, limit, offset int) ([]ProjectSummary, error)

	// Update runs fn against the current aggregate state as a single
	// atomic unit. Updates to the same project are serialized; updates to
	// different projects proceed independently. The mutated aggregate and
	// the events returned by fn commit together, or not at all when fn
	// returns an error. The error is passed through unwrapped.
	Update(ctx context.Context, id int64, fn func(p *Project) ([]Event, error)) (*Project, error)
}

// ProjectSummary is the listing projection of a project.
type ProjectSummary struct {
	ID               int64
	Creator          string
	Title            string
	GoalAmount       int64
	FundsRaised      int64
	Deadline         time.Time
	Completed        bool
	CurrentMilestone int
	MilestoneCount   int
	CreatedAt        time.Time
}

// Failed mirrors Project.Failed for the listing projection.
func (s ProjectSummary) Failed(now time.Time) bool {
	return now.After(s.Deadline) && s.FundsRaised < s.GoalAmount
}

// AccountStore persists caller identities.
type AccountStore interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
}
