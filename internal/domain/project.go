package domain

import "time"

// CentsPerUnit is the number of cents in one whole unit of the funding
// currency. The approval threshold counts whole units raised, not cents.
const CentsPerUnit int64 = 100

// Milestone is one tranche of a project's funds, released to the creator
// only after the contributor vote on it crosses the approval threshold.
// Milestones are disbursed strictly in creation order.
type Milestone struct {
	Description string
	Amount      int64
	Approved    bool
	Approvals   int
	Voters      map[string]bool
}

// HasVoted reports whether the voter already voted on this milestone.
// Voter sets are per milestone: a contributor votes once per milestone,
// not once per project.
func (m *Milestone) HasVoted(voter string) bool {
	return m.Voters[voter]
}

// Project is a single funding campaign. The aggregate owns its
// contribution map and milestone list; no mutable references escape the
// store that holds it.
type Project struct {
	ID          int64
	Creator     string
	Title       string
	Description string

	// GoalAmount is informational: it gates refunds, never contributions.
	GoalAmount int64
	Deadline   time.Time

	// FundsRaised only grows while the project is open; refunds do not
	// subtract from it. EscrowBalance is the value still held in custody.
	FundsRaised   int64
	EscrowBalance int64

	Completed        bool
	CurrentMilestone int

	// Contributions maps contributor identity to cumulative amount. A
	// refund zeroes the refunding party's entry and nothing else.
	Contributions map[string]int64
	Milestones    []Milestone

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProject materializes a project aggregate from creation parameters.
// Milestone descriptions and amounts are parallel slices fixed in
// disbursement order; mismatched lengths fail with ErrInvalidMilestoneSpec.
// An empty milestone list is accepted and leaves the project permanently
// incompletable, matching the registry contract.
func NewProject(creator, title, description string, goalAmount int64, durationDays int, milestoneDescriptions []string, milestoneAmounts []int64, now time.Time) (*Project, error) {
	if len(milestoneDescriptions) != len(milestoneAmounts) {
		return nil, ErrInvalidMilestoneSpec
	}

	milestones := make([]Milestone, len(milestoneAmounts))
	for i := range milestones {
		milestones[i] = Milestone{
			Description: milestoneDescriptions[i],
			Amount:      milestoneAmounts[i],
			Voters:      map[string]bool{},
		}
	}

	return &Project{
		Creator:       creator,
		Title:         title,
		Description:   description,
		GoalAmount:    goalAmount,
		Deadline:      now.Add(time.Duration(durationDays) * 24 * time.Hour),
		Contributions: map[string]int64{},
		Milestones:    milestones,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsContributor reports whether the party holds a positive balance on the
// project. A fully refunded party is no longer a contributor.
func (p *Project) IsContributor(party string) bool {
	return p.Contributions[party] > 0
}

// FundingOpen reports whether contributions are still accepted.
func (p *Project) FundingOpen(now time.Time) bool {
	return now.Before(p.Deadline) && !p.Completed
}

// Failed is the derived failed-campaign predicate: the deadline has
// passed strictly and the goal was not met. It is never stored.
func (p *Project) Failed(now time.Time) bool {
	return now.After(p.Deadline) && p.FundsRaised < p.GoalAmount
}

// Contribute records a deposit from contributor. Zero amounts pass
// through unchanged; the transport layer rejects negatives before the
// core sees them.
func (p *Project) Contribute(now time.Time, contributor string, amount int64) error {
	if !now.Before(p.Deadline) {
		return ErrFundingClosed
	}
	if p.Completed {
		return ErrProjectCompleted
	}

	p.FundsRaised += amount
	p.EscrowBalance += amount
	p.Contributions[contributor] += amount
	return nil
}

// Vote records an approval vote from voter on the current milestone and
// reports the milestone index and whether this vote crossed the approval
// threshold. The threshold compares against funds raised as of this call;
// funding that arrives later raises the bar for subsequent votes but an
// already approved milestone never reverts.
func (p *Project) Vote(now time.Time, voter string) (milestone int, approved bool, err error) {
	if !now.Before(p.Deadline) {
		return 0, false, ErrDeadlinePassed
	}
	if p.Completed {
		return 0, false, ErrProjectCompleted
	}
	if p.CurrentMilestone >= len(p.Milestones) {
		return 0, false, ErrNoMilestonePending
	}
	m := &p.Milestones[p.CurrentMilestone]
	if m.Approved {
		return 0, false, ErrMilestoneAlreadyApproved
	}
	if !p.IsContributor(voter) {
		return 0, false, ErrNotAContributor
	}
	if m.HasVoted(voter) {
		return 0, false, ErrDuplicateVote
	}

	m.Voters[voter] = true
	m.Approvals++

	// More than half of the whole-unit count of total funds raised,
	// measured in votes. Integer division keeps the quorum coarse: small
	// campaigns can approve with a single vote.
	if int64(m.Approvals)*2 > p.FundsRaised/CentsPerUnit {
		m.Approved = true
	}
	return p.CurrentMilestone, m.Approved, nil
}

// WithdrawCurrent releases the current approved milestone's amount from
// escrow, advances the cursor and marks the project completed once the
// last milestone is out. Withdrawal is deliberately not gated by the
// deadline: an approved milestone stays withdrawable after it.
func (p *Project) WithdrawCurrent(caller string) (milestone int, amount int64, err error) {
	if caller != p.Creator {
		return 0, 0, ErrNotCreator
	}
	if p.Completed {
		return 0, 0, ErrProjectCompleted
	}
	if p.CurrentMilestone >= len(p.Milestones) {
		return 0, 0, ErrNoMilestonePending
	}
	m := p.Milestones[p.CurrentMilestone]
	if !m.Approved {
		return 0, 0, ErrMilestoneNotApproved
	}
	if p.EscrowBalance < m.Amount {
		return 0, 0, ErrInsufficientEscrow
	}

	milestone = p.CurrentMilestone
	p.EscrowBalance -= m.Amount
	p.CurrentMilestone++
	if p.CurrentMilestone == len(p.Milestones) {
		p.Completed = true
	}
	return milestone, m.Amount, nil
}

// RefundContribution zeroes the caller's balance and reports the amount
// to return. The zeroed entry is written before the value moves so a
// re-entrant call observes no remaining contribution. Funds raised and
// milestone state are untouched; refunds stay available per caller
// indefinitely once the campaign has failed.
func (p *Project) RefundContribution(now time.Time, caller string) (int64, error) {
	if !now.After(p.Deadline) {
		return 0, ErrCampaignStillOpen
	}
	if p.FundsRaised >= p.GoalAmount {
		return 0, ErrGoalReached
	}
	amount := p.Contributions[caller]
	if amount <= 0 {
		return 0, ErrNoContribution
	}
	// A failed transfer fails the whole operation: withdrawals already
	// taken may leave escrow short of the sum of remaining balances.
	if p.EscrowBalance < amount {
		return 0, ErrInsufficientEscrow
	}

	p.Contributions[caller] = 0
	p.EscrowBalance -= amount
	return amount, nil
}

// Clone returns a deep copy of the aggregate, including contribution and
// voter maps, so stores can hand out snapshots without aliasing.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Contributions = make(map[string]int64, len(p.Contributions))
	for k, v := range p.Contributions {
		cp.Contributions[k] = v
	}
	cp.Milestones = make([]Milestone, len(p.Milestones))
	for i, m := range p.Milestones {
		voters := make(map[string]bool, len(m.Voters))
		for k, v := range m.Voters {
			voters[k] = v
		}
		m.Voters = voters
		cp.Milestones[i] = m
	}
	return &cp
}
