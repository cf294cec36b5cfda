package domain

import "errors"

// Every failure in the escrow core is a precondition violation surfaced
// verbatim to the caller; none are retried and none leave partial state.
var (
	ErrProjectNotFound          = errors.New("project not found")
	ErrInvalidMilestoneSpec     = errors.New("milestone descriptions and amounts differ in length")
	ErrFundingClosed            = errors.New("funding window closed")
	ErrProjectCompleted         = errors.New("project already completed")
	ErrDeadlinePassed           = errors.New("deadline passed")
	ErrNoMilestonePending       = errors.New("no milestone pending")
	ErrMilestoneAlreadyApproved = errors.New("milestone already approved")
	ErrNotAContributor          = errors.New("not a contributor")
	ErrDuplicateVote            = errors.New("duplicate vote")
	ErrNotCreator               = errors.New("not the project creator")
	ErrMilestoneNotApproved     = errors.New("milestone not approved")
	ErrInsufficientEscrow       = errors.New("insufficient escrow balance")
	ErrCampaignStillOpen        = errors.New("campaign still open")
	ErrGoalReached              = errors.New("goal reached")
	ErrNoContribution           = errors.New("no contribution to refund")
)

// Account-level errors used by the auth surface.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

var ruleViolations = []error{
	ErrProjectNotFound,
	ErrInvalidMilestoneSpec,
	ErrFundingClosed,
	ErrProjectCompleted,
	ErrDeadlinePassed,
	ErrNoMilestonePending,
	ErrMilestoneAlreadyApproved,
	ErrNotAContributor,
	ErrDuplicateVote,
	ErrNotCreator,
	ErrMilestoneNotApproved,
	ErrInsufficientEscrow,
	ErrCampaignStillOpen,
	ErrGoalReached,
	ErrNoContribution,
}

// IsRuleViolation reports whether err is one of the ledger precondition
// errors, as opposed to a storage or transport failure.
func IsRuleViolation(err error) bool {
	for _, sentinel := range ruleViolations {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
