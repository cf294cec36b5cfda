package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"escrow-service/internal/domain"
	"escrow-service/internal/outbox"
)

// Entry is one rendered feed item.
type Entry struct {
	EventID    string    `json:"event_id"`
	ProjectID  int64     `json:"project_id"`
	Kind       string    `json:"kind"`
	Headline   string    `json:"headline"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Formatter renders event envelopes into feed entries for one locale.
// It is safe for concurrent use.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter creates a Formatter. Unknown locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// Entry renders one envelope. Unknown kinds are an error; the caller
// decides whether to skip or surface them.
func (f *Formatter) Entry(e outbox.Event) (Entry, error) {
	summary, err := f.summary(e)
	if err != nil {
		return Entry{}, err
	}
	// Casers are stateful, so one is built per call.
	return Entry{
		EventID:    e.ID,
		ProjectID:  e.ProjectID,
		Kind:       e.Kind,
		Headline:   cases.Title(f.tag).String(strings.ReplaceAll(e.Kind, ".", " ")),
		Summary:    summary,
		OccurredAt: e.OccurredAt,
	}, nil
}

func (f *Formatter) summary(e outbox.Event) (string, error) {
	switch e.Kind {
	case domain.EventProjectCreated:
		var p domain.ProjectCreatedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		return f.printer.Sprintf("Campaign %q is live with a goal of %v, funding until %s",
			p.Title, f.amount(p.GoalAmount), p.Deadline.Format("2 Jan 2006")), nil

	case domain.EventProjectFunded:
		var p domain.ProjectFundedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		if p.OriginCountry != "" {
			return f.printer.Sprintf("Backer %s contributed %v from %s, raising the total to %v",
				p.Contributor, f.amount(p.Amount), p.OriginCountry, f.amount(p.FundsRaised)), nil
		}
		return f.printer.Sprintf("Backer %s contributed %v, raising the total to %v",
			p.Contributor, f.amount(p.Amount), f.amount(p.FundsRaised)), nil

	case domain.EventMilestoneApproved:
		var p domain.MilestoneApprovedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		return f.printer.Sprintf("Milestone %d cleared its approval vote with %d votes",
			p.Milestone+1, p.Approvals), nil

	case domain.EventMilestoneWithdrawn:
		var p domain.MilestoneWithdrawnPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		if p.Completed {
			return f.printer.Sprintf("Milestone %d paid out %v, completing the project",
				p.Milestone+1, f.amount(p.Amount)), nil
		}
		return f.printer.Sprintf("Milestone %d paid out %v", p.Milestone+1, f.amount(p.Amount)), nil

	case domain.EventContributionRefunded:
		var p domain.ContributionRefundedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
		return f.printer.Sprintf("Backer %s reclaimed %v after the campaign fell short",
			p.Contributor, f.amount(p.Amount)), nil

	default:
		return "", fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// amount renders cents as a locale-formatted decimal of whole units.
func (f *Formatter) amount(cents int64) number.Formatter {
	return number.Decimal(float64(cents)/float64(domain.CentsPerUnit), number.Scale(2))
}
