package model

import (
	"strings"
	"time"
)

// LoanStatus is a state of the loan lifecycle.
type LoanStatus string

// Loan statuses. Returned and rejected are terminal.
const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
	LoanReturned LoanStatus = "RETURNED"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanPending:  {LoanApproved, LoanRejected},
	LoanApproved: {LoanReturned},
}

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanApproved, LoanRejected, LoanReturned:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s LoanStatus) Terminal() bool {
	return s == LoanRejected || s == LoanReturned
}

// CanTransitionTo reports whether s -> next is a legal move.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, t := range loanTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransition error if s -> next is illegal.
func (s LoanStatus) CheckTransition(next LoanStatus) error {
	if !s.CanTransitionTo(next) {
		return Errorf(KindInvalidTransition, "loan is %s, cannot become %s", s, next)
	}
	return nil
}

// Loan is a request to borrow a quantity of an item.
type Loan struct {
	ID              int64      `json:"id" db:"id"`
	ItemID          int64      `json:"item_id" db:"item_id"`
	RequesterID     int64      `json:"requester_id" db:"requester_id"`
	Quantity        int        `json:"quantity" db:"quantity"`
	BorrowerName    string     `json:"borrower_name" db:"borrower_name"`
	StartDate       *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty" db:"end_date"`
	Purpose         *string    `json:"purpose,omitempty" db:"purpose"`
	Status          LoanStatus `json:"status" db:"status"`
	ApproverID      *int64     `json:"approver_id,omitempty" db:"approver_id"`
	DecidedAt       *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	RejectionReason *string    `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`

	// Joined fields (not always populated).
	ItemName      string  `json:"item_name,omitempty" db:"item_name"`
	RequesterName string  `json:"requester_name,omitempty" db:"requester_name"`
	ApproverName  *string `json:"approver_name,omitempty" db:"approver_name"`
}

// LoanRequest is the input for creating a loan.
type LoanRequest struct {
	RequesterID  int64
	ItemID       int64
	Quantity     int
	BorrowerName string
	StartDate    *time.Time
	EndDate      *time.Time
	Purpose      string
}

// Validate checks quantity and date ordering.
func (r *LoanRequest) Validate() error {
	if r.Quantity <= 0 {
		return Errorf(KindInvalidQuantity, "quantity must be greater than 0")
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return Errorf(KindInvalidInput, "end_date is before start_date")
	}
	r.BorrowerName = strings.TrimSpace(r.BorrowerName)
	r.Purpose = strings.TrimSpace(r.Purpose)
	return nil
}

// LoanFilter narrows ListLoans. Role decides whether RequesterID applies.
type LoanFilter struct {
	RequesterID int64
	Role        string
	Status      LoanStatus
	ItemID      int64
}
