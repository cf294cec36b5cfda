package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func (ta *testApp) approve(t *testing.T, projectID int64, accountID string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, ta.ProjectApprove, http.MethodPost, "/v1/projects/1/approve", accountID,
		map[string]string{"id": fmt.Sprint(projectID)}, nil)
}

func (ta *testApp) withdraw(t *testing.T, projectID int64, accountID string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, ta.ProjectWithdraw, http.MethodPost, "/v1/projects/1/withdraw", accountID,
		map[string]string{"id": fmt.Sprint(projectID)}, nil)
}

func (ta *testApp) refund(t *testing.T, projectID int64, accountID string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, ta.ProjectRefund, http.MethodPost, "/v1/projects/1/refund", accountID,
		map[string]string{"id": fmt.Sprint(projectID)}, nil)
}

// TestCampaignLifecycle drives a two-milestone campaign from creation to
// completion through the HTTP handlers.
func TestCampaignLifecycle(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer1 := ta.register(t, "backer1@example.com", "Backer One")
	backer2 := ta.register(t, "backer2@example.com", "Backer Two")

	p := ta.createProject(t, creator.ID, 300, 30, 200, 100)

	rec := ta.fund(t, p.ID, backer1.ID, 200)
	if rec.Code != http.StatusOK {
		t.Fatalf("fund backer1: status %d body %s", rec.Code, rec.Body)
	}
	var funded projectDTO
	decodeBody(t, rec, &funded)
	if funded.FundsRaised != 200 || funded.EscrowBalance != 200 {
		t.Fatalf("after first deposit: raised=%d escrow=%d", funded.FundsRaised, funded.EscrowBalance)
	}
	if funded.YourContribution == nil || *funded.YourContribution != 200 {
		t.Fatalf("your_contribution = %v, want 200", funded.YourContribution)
	}
	if rec := ta.fund(t, p.ID, backer2.ID, 100); rec.Code != http.StatusOK {
		t.Fatalf("fund backer2: status %d body %s", rec.Code, rec.Body)
	}

	// 300 cents raised is 3 whole units; one vote of two is not a majority.
	rec = ta.approve(t, p.ID, backer1.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve backer1: status %d body %s", rec.Code, rec.Body)
	}
	var vote voteResponse
	decodeBody(t, rec, &vote)
	if vote.Approved || vote.Milestone != 0 || vote.Approvals != 1 {
		t.Fatalf("first vote = %+v", vote)
	}

	rec = ta.approve(t, p.ID, backer2.ID)
	decodeBody(t, rec, &vote)
	if !vote.Approved || vote.Approvals != 2 {
		t.Fatalf("second vote = %+v", vote)
	}

	rec = ta.withdraw(t, p.ID, creator.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw: status %d body %s", rec.Code, rec.Body)
	}
	var payout withdrawResponse
	decodeBody(t, rec, &payout)
	if payout.Milestone != 0 || payout.Amount != 200 || payout.Completed || payout.EscrowBalance != 100 {
		t.Fatalf("first payout = %+v", payout)
	}

	ta.approve(t, p.ID, backer1.ID)
	ta.approve(t, p.ID, backer2.ID)
	rec = ta.withdraw(t, p.ID, creator.ID)
	decodeBody(t, rec, &payout)
	if payout.Milestone != 1 || payout.Amount != 100 || !payout.Completed || payout.EscrowBalance != 0 {
		t.Fatalf("final payout = %+v", payout)
	}

	// Completed before its deadline, so a late deposit hits the
	// completion gate rather than the funding window.
	rec = ta.fund(t, p.ID, backer1.ID, 50)
	if rec.Code != http.StatusConflict {
		t.Fatalf("fund after completion: status %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "project_completed" {
		t.Fatalf("code = %q, want project_completed", got)
	}
}

func TestProjectFundHandlerErrors(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer := ta.register(t, "backer@example.com", "Backer")
	p := ta.createProject(t, creator.ID, 300, 30, 300)

	t.Run("unauthenticated", func(t *testing.T) {
		if rec := ta.fund(t, p.ID, "", 100); rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("negative amount", func(t *testing.T) {
		rec := ta.fund(t, p.ID, backer.ID, -5)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		rec := ta.fund(t, 42, backer.ID, 100)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
		if got := errorCode(t, rec); got != "project_not_found" {
			t.Fatalf("code = %q, want project_not_found", got)
		}
	})

	t.Run("after deadline", func(t *testing.T) {
		ta.advance(31 * 24 * time.Hour)
		rec := ta.fund(t, p.ID, backer.ID, 100)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if got := errorCode(t, rec); got != "funding_closed" {
			t.Fatalf("code = %q, want funding_closed", got)
		}
	})
}

func TestProjectApproveHandlerErrors(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer := ta.register(t, "backer@example.com", "Backer")
	outsider := ta.register(t, "outsider@example.com", "Outsider")
	p := ta.createProject(t, creator.ID, 1000, 30, 500, 500)
	if rec := ta.fund(t, p.ID, backer.ID, 150); rec.Code != http.StatusOK {
		t.Fatalf("fund: status %d body %s", rec.Code, rec.Body)
	}

	t.Run("non-contributor", func(t *testing.T) {
		rec := ta.approve(t, p.ID, outsider.ID)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
		if got := errorCode(t, rec); got != "not_a_contributor" {
			t.Fatalf("code = %q, want not_a_contributor", got)
		}
	})

	t.Run("vote on approved milestone", func(t *testing.T) {
		// 150 cents is one whole unit, so the single vote approves the
		// milestone; the repeat then trips the approved gate.
		if rec := ta.approve(t, p.ID, backer.ID); rec.Code != http.StatusOK {
			t.Fatalf("first vote: status %d body %s", rec.Code, rec.Body)
		}
		rec := ta.approve(t, p.ID, backer.ID)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if got := errorCode(t, rec); got != "milestone_already_approved" {
			t.Fatalf("code = %q, want milestone_already_approved", got)
		}
	})

	t.Run("after deadline", func(t *testing.T) {
		ta.advance(31 * 24 * time.Hour)
		rec := ta.approve(t, p.ID, backer.ID)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if got := errorCode(t, rec); got != "deadline_passed" {
			t.Fatalf("code = %q, want deadline_passed", got)
		}
	})
}

func TestProjectApproveHandlerDuplicateVote(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer1 := ta.register(t, "backer1@example.com", "Backer One")
	backer2 := ta.register(t, "backer2@example.com", "Backer Two")
	p := ta.createProject(t, creator.ID, 1000, 30, 1000)

	// 1000 cents is 10 units; two backers can never reach a majority,
	// so the milestone stays pending and the duplicate gate is reachable.
	ta.fund(t, p.ID, backer1.ID, 600)
	ta.fund(t, p.ID, backer2.ID, 400)
	if rec := ta.approve(t, p.ID, backer1.ID); rec.Code != http.StatusOK {
		t.Fatalf("first vote: status %d body %s", rec.Code, rec.Body)
	}

	rec := ta.approve(t, p.ID, backer1.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := errorCode(t, rec); got != "duplicate_vote" {
		t.Fatalf("code = %q, want duplicate_vote", got)
	}
}

func TestProjectWithdrawHandlerErrors(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer := ta.register(t, "backer@example.com", "Backer")
	p := ta.createProject(t, creator.ID, 1000, 30, 100)
	if rec := ta.fund(t, p.ID, backer.ID, 100); rec.Code != http.StatusOK {
		t.Fatalf("fund: status %d body %s", rec.Code, rec.Body)
	}

	t.Run("not creator", func(t *testing.T) {
		rec := ta.withdraw(t, p.ID, backer.ID)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
		if got := errorCode(t, rec); got != "not_creator" {
			t.Fatalf("code = %q, want not_creator", got)
		}
	})

	t.Run("milestone not approved", func(t *testing.T) {
		rec := ta.withdraw(t, p.ID, creator.ID)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if got := errorCode(t, rec); got != "milestone_not_approved" {
			t.Fatalf("code = %q, want milestone_not_approved", got)
		}
	})

	t.Run("escrow drained by refund", func(t *testing.T) {
		if rec := ta.approve(t, p.ID, backer.ID); rec.Code != http.StatusOK {
			t.Fatalf("approve: status %d body %s", rec.Code, rec.Body)
		}
		// The campaign misses its goal; the backer reclaims the deposit
		// before the creator collects the approved milestone.
		ta.advance(31 * 24 * time.Hour)
		if rec := ta.refund(t, p.ID, backer.ID); rec.Code != http.StatusOK {
			t.Fatalf("refund: status %d body %s", rec.Code, rec.Body)
		}

		rec := ta.withdraw(t, p.ID, creator.ID)
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusPaymentRequired)
		}
		if got := errorCode(t, rec); got != "insufficient_escrow" {
			t.Fatalf("code = %q, want insufficient_escrow", got)
		}
	})
}

func TestProjectRefundHandler(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer := ta.register(t, "backer@example.com", "Backer")
	outsider := ta.register(t, "outsider@example.com", "Outsider")
	p := ta.createProject(t, creator.ID, 1000, 30, 1000)
	if rec := ta.fund(t, p.ID, backer.ID, 400); rec.Code != http.StatusOK {
		t.Fatalf("fund: status %d body %s", rec.Code, rec.Body)
	}

	t.Run("campaign still open", func(t *testing.T) {
		rec := ta.refund(t, p.ID, backer.ID)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if got := errorCode(t, rec); got != "campaign_still_open" {
			t.Fatalf("code = %q, want campaign_still_open", got)
		}
	})

	ta.advance(31 * 24 * time.Hour)

	t.Run("no contribution", func(t *testing.T) {
		rec := ta.refund(t, p.ID, outsider.ID)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
		if got := errorCode(t, rec); got != "no_contribution" {
			t.Fatalf("code = %q, want no_contribution", got)
		}
	})

	t.Run("refund after failure", func(t *testing.T) {
		rec := ta.refund(t, p.ID, backer.ID)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", rec.Code, rec.Body)
		}
		var resp refundResponse
		decodeBody(t, rec, &resp)
		if resp.Amount != 400 || resp.EscrowBalance != 0 {
			t.Fatalf("refund = %+v", resp)
		}

		// The balance is gone; asking again reports no contribution.
		rec = ta.refund(t, p.ID, backer.ID)
		if got := errorCode(t, rec); got != "no_contribution" {
			t.Fatalf("second refund code = %q, want no_contribution", got)
		}
	})
}

func TestProjectRefundHandlerGoalReached(t *testing.T) {
	ta := newTestApp(t)
	creator := ta.register(t, "creator@example.com", "Creator")
	backer := ta.register(t, "backer@example.com", "Backer")
	p := ta.createProject(t, creator.ID, 100, 30, 100)
	if rec := ta.fund(t, p.ID, backer.ID, 100); rec.Code != http.StatusOK {
		t.Fatalf("fund: status %d body %s", rec.Code, rec.Body)
	}

	ta.advance(31 * 24 * time.Hour)
	rec := ta.refund(t, p.ID, backer.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := errorCode(t, rec); got != "goal_reached" {
		t.Fatalf("code = %q, want goal_reached", got)
	}
}
