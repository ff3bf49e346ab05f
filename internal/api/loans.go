package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// LoansHandler handles the loan lifecycle endpoints.
type LoansHandler struct {
	*deps
}

type loanRequest struct {
	ItemID       int64  `json:"item_id"`
	Quantity     int    `json:"quantity"`
	BorrowerName string `json:"borrower_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Purpose      string `json:"purpose"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp. Empty
// yields nil.
func parseDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, model.Errorf(model.KindInvalidInput, "invalid %s %q", field, v)
}

// Request handles POST /api/loans.
func (h *LoansHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loan, err := store.RequestLoan(r.Context(), h.DB, model.LoanRequest{
		RequesterID:  GetClaims(r.Context()).UserID,
		ItemID:       req.ItemID,
		Quantity:     req.Quantity,
		BorrowerName: req.BorrowerName,
		StartDate:    start,
		EndDate:      end,
		Purpose:      req.Purpose,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.Metrics.LoanTransition(string(model.LoanPending))
	zerolog.Ctx(r.Context()).Info().Int64("loan_id", loan.ID).Int64("item_id", loan.ItemID).
		Int("quantity", loan.Quantity).Msg("loan requested")
	jsonResponse(w, http.StatusCreated, loan)
}

// List handles GET /api/loans. Borrowers only see their own loans.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	status := model.LoanStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		h.writeError(w, r, model.Errorf(model.KindInvalidInput, "invalid status %q", status))
		return
	}
	itemID, err := queryID(r, "item_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	loans, err := store.ListLoans(r.Context(), h.DB, model.LoanFilter{
		RequesterID: claims.UserID,
		Role:        claims.Role,
		Status:      status,
		ItemID:      itemID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Get handles GET /api/loans/{id}.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "loan")
	if !ok {
		return
	}

	loan, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Someone else's loan is reported as missing rather than forbidden.
	claims := GetClaims(r.Context())
	if model.SeesOwnLoansOnly(claims.Role) && loan.RequesterID != claims.UserID {
		h.writeError(w, r, model.Errorf(model.KindNotFound, "loan %d not found", id))
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Approve handles PUT /api/loans/{id}/approve.
func (h *LoansHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "loan")
	if !ok {
		return
	}

	loan, err := store.ApproveLoan(r.Context(), h.DB, id, GetClaims(r.Context()).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.transitioned(r, loan)
	jsonResponse(w, http.StatusOK, loan)
}

// Reject handles PUT /api/loans/{id}/reject. The body is optional.
func (h *LoansHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "loan")
	if !ok {
		return
	}

	var req rejectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	loan, err := store.RejectLoan(r.Context(), h.DB, id, GetClaims(r.Context()).UserID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.transitioned(r, loan)
	jsonResponse(w, http.StatusOK, loan)
}

// Return handles PUT /api/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "loan")
	if !ok {
		return
	}

	loan, err := store.ReturnLoan(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.transitioned(r, loan)
	jsonResponse(w, http.StatusOK, loan)
}

func (h *LoansHandler) transitioned(r *http.Request, loan *model.Loan) {
	h.Metrics.LoanTransition(string(loan.Status))
	zerolog.Ctx(r.Context()).Info().Int64("loan_id", loan.ID).Str("status", string(loan.Status)).
		Int("quantity", loan.Quantity).Msg("loan transitioned")
}
