package escrow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"escrow-service/internal/domain"
	"escrow-service/internal/infra"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service coordinates the escrow ledger: campaign registration,
// contributions, milestone votes, payouts and refunds. Every operation
// runs as a single atomic store update; the events it produces commit
// with the state change and are delivered asynchronously.
type Service struct {
	store  domain.ProjectStore
	logger zerolog.Logger
	clock  func() time.Time
}

// NewService creates a Service using the wall clock.
func NewService(store domain.ProjectStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin time.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Now returns the service's current time.
func (s *Service) Now() time.Time {
	return s.clock()
}

// CreateProjectInput carries everything needed to register a campaign.
// MilestoneDescriptions and MilestoneAmounts are parallel slices.
type CreateProjectInput struct {
	Creator               string
	Title                 string
	Description           string
	GoalAmount            int64
	DurationDays          int
	MilestoneDescriptions []string
	MilestoneAmounts      []int64
}

// VoteResult reports the milestone a vote landed on and whether it
// crossed the approval threshold.
type VoteResult struct {
	Project   *domain.Project
	Milestone int
	Approved  bool
}

// WithdrawResult reports a milestone payout.
type WithdrawResult struct {
	Project   *domain.Project
	Milestone int
	Amount    int64
}

// RefundResult reports a returned contribution.
type RefundResult struct {
	Project *domain.Project
	Amount  int64
}

// CreateProject registers a new campaign and returns it with its
// assigned id.
func (s *Service) CreateProject(ctx context.Context, in CreateProjectInput) (*domain.Project, error) {
	now := s.clock()
	p, err := domain.NewProject(in.Creator, in.Title, in.Description, in.GoalAmount, in.DurationDays, in.MilestoneDescriptions, in.MilestoneAmounts, now)
	if err != nil {
		infra.RecordEscrowOperation("create", outcome(err))
		return nil, err
	}

	id, err := s.store.Create(ctx, p, func(p *domain.Project) []domain.Event {
		return []domain.Event{domain.NewEvent(domain.EventProjectCreated, p.ID, domain.ProjectCreatedPayload{
			ProjectID:  p.ID,
			Creator:    p.Creator,
			Title:      p.Title,
			GoalAmount: p.GoalAmount,
			Deadline:   p.Deadline,
		}, now)}
	})
	if err != nil {
		infra.RecordEscrowOperation("create", outcome(err))
		return nil, err
	}
	p.ID = id

	s.logger.Info().
		Int64("project_id", id).
		Str("creator", in.Creator).
		Int64("goal_amount", in.GoalAmount).
		Int("milestones", len(in.MilestoneAmounts)).
		Msg("project registered")
	infra.RecordEscrowOperation("create", "ok")
	return p, nil
}

// Fund deposits amount from contributor into the project's escrow.
// originCountry is an optional ops annotation carried on the emitted
// event; it never affects acceptance.
func (s *Service) Fund(ctx context.Context, projectID int64, contributor string, amount int64, originCountry string) (*domain.Project, error) {
	now := s.clock()
	p, err := s.store.Update(ctx, projectID, func(p *domain.Project) ([]domain.Event, error) {
		if err := p.Contribute(now, contributor, amount); err != nil {
			return nil, err
		}
		return []domain.Event{domain.NewEvent(domain.EventProjectFunded, p.ID, domain.ProjectFundedPayload{
			ProjectID:     p.ID,
			Contributor:   contributor,
			Amount:        amount,
			FundsRaised:   p.FundsRaised,
			OriginCountry: originCountry,
		}, now)}, nil
	})
	if err != nil {
		infra.RecordEscrowOperation("fund", outcome(err))
		return nil, err
	}

	evt := s.logger.Info().
		Int64("project_id", projectID).
		Str("contributor", contributor).
		Int64("amount", amount).
		Int64("funds_raised", p.FundsRaised)
	if originCountry != "" {
		evt = evt.Str("origin_country", originCountry)
	}
	evt.Msg("contribution accepted")
	infra.RecordEscrowOperation("fund", "ok")
	return p, nil
}

// Approve records a vote by voter on the project's pending milestone.
func (s *Service) Approve(ctx context.Context, projectID int64, voter string) (*VoteResult, error) {
	now := s.clock()
	var res VoteResult
	p, err := s.store.Update(ctx, projectID, func(p *domain.Project) ([]domain.Event, error) {
		milestone, approved, err := p.Vote(now, voter)
		if err != nil {
			return nil, err
		}
		res.Milestone = milestone
		res.Approved = approved
		if !approved {
			return nil, nil
		}
		return []domain.Event{domain.NewEvent(domain.EventMilestoneApproved, p.ID, domain.MilestoneApprovedPayload{
			ProjectID: p.ID,
			Milestone: milestone,
			Approvals: p.Milestones[milestone].Approvals,
		}, now)}, nil
	})
	if err != nil {
		infra.RecordEscrowOperation("approve", outcome(err))
		return nil, err
	}
	res.Project = p

	s.logger.Info().
		Int64("project_id", projectID).
		Str("voter", voter).
		Int("milestone", res.Milestone).
		Bool("approved", res.Approved).
		Msg("vote recorded")
	infra.RecordEscrowOperation("approve", "ok")
	return &res, nil
}

// Withdraw pays the pending approved milestone out to the creator.
func (s *Service) Withdraw(ctx context.Context, projectID int64, caller string) (*WithdrawResult, error) {
	now := s.clock()
	var res WithdrawResult
	p, err := s.store.Update(ctx, projectID, func(p *domain.Project) ([]domain.Event, error) {
		milestone, amount, err := p.WithdrawCurrent(caller)
		if err != nil {
			return nil, err
		}
		res.Milestone = milestone
		res.Amount = amount
		return []domain.Event{domain.NewEvent(domain.EventMilestoneWithdrawn, p.ID, domain.MilestoneWithdrawnPayload{
			ProjectID: p.ID,
			Milestone: milestone,
			Amount:    amount,
			Completed: p.Completed,
		}, now)}, nil
	})
	if err != nil {
		infra.RecordEscrowOperation("withdraw", outcome(err))
		return nil, err
	}
	res.Project = p

	s.logger.Info().
		Int64("project_id", projectID).
		Int("milestone", res.Milestone).
		Int64("amount", res.Amount).
		Bool("completed", p.Completed).
		Msg("milestone withdrawn")
	infra.RecordEscrowOperation("withdraw", "ok")
	return &res, nil
}

// Refund returns the caller's contribution after a failed campaign.
func (s *Service) Refund(ctx context.Context, projectID int64, caller string) (*RefundResult, error) {
	now := s.clock()
	var res RefundResult
	p, err := s.store.Update(ctx, projectID, func(p *domain.Project) ([]domain.Event, error) {
		amount, err := p.RefundContribution(now, caller)
		if err != nil {
			return nil, err
		}
		res.Amount = amount
		return []domain.Event{domain.NewEvent(domain.EventContributionRefunded, p.ID, domain.ContributionRefundedPayload{
			ProjectID:   p.ID,
			Contributor: caller,
			Amount:      amount,
		}, now)}, nil
	})
	if err != nil {
		infra.RecordEscrowOperation("refund", outcome(err))
		return nil, err
	}
	res.Project = p

	s.logger.Info().
		Int64("project_id", projectID).
		Str("contributor", caller).
		Int64("amount", res.Amount).
		Msg("contribution refunded")
	infra.RecordEscrowOperation("refund", "ok")
	return &res, nil
}

// GetProject returns a snapshot of one project.
func (s *Service) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	return s.store.Get(ctx, id)
}

// ListProjects returns newest-first summaries. limit is clamped to
// [1, 100] with a default of 20; negative offsets are treated as zero.
func (s *Service) ListProjects(ctx context.Context, limit, offset int) ([]domain.ProjectSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsRuleViolation(err):
		return "rejected"
	default:
		return "error"
	}
}
