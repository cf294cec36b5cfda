package handlers

import (
	"encoding/json"
	"net/http"

	"escrow-service/internal/middleware"
)

type fundRequest struct {
	Amount int64 `json:"amount"`
}

type voteResponse struct {
	Milestone int  `json:"milestone"`
	Approved  bool `json:"approved"`
	Approvals int  `json:"approvals"`
}

type withdrawResponse struct {
	Milestone     int   `json:"milestone"`
	Amount        int64 `json:"amount"`
	Completed     bool  `json:"completed"`
	EscrowBalance int64 `json:"escrow_balance"`
}

type refundResponse struct {
	Amount        int64 `json:"amount"`
	EscrowBalance int64 `json:"escrow_balance"`
}

func (a *App) ProjectFund(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	id, ok := a.projectID(w, r)
	if !ok {
		return
	}
	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	// The ledger accepts zero as a no-op deposit; only negatives are
	// rejected here.
	if req.Amount < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "amount must not be negative")
		return
	}

	country := middleware.CountryFromContext(r.Context())
	p, err := a.Escrow.Fund(r.Context(), id, accountID, req.Amount, country)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.toProjectDTO(p, accountID, a.Escrow.Now()))
}

func (a *App) ProjectApprove(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	id, ok := a.projectID(w, r)
	if !ok {
		return
	}

	res, err := a.Escrow.Approve(r.Context(), id, accountID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, voteResponse{
		Milestone: res.Milestone,
		Approved:  res.Approved,
		Approvals: res.Project.Milestones[res.Milestone].Approvals,
	})
}

func (a *App) ProjectWithdraw(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	id, ok := a.projectID(w, r)
	if !ok {
		return
	}

	res, err := a.Escrow.Withdraw(r.Context(), id, accountID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, withdrawResponse{
		Milestone:     res.Milestone,
		Amount:        res.Amount,
		Completed:     res.Project.Completed,
		EscrowBalance: res.Project.EscrowBalance,
	})
}

func (a *App) ProjectRefund(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	id, ok := a.projectID(w, r)
	if !ok {
		return
	}

	res, err := a.Escrow.Refund(r.Context(), id, accountID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, refundResponse{
		Amount:        res.Amount,
		EscrowBalance: res.Project.EscrowBalance,
	})
}
