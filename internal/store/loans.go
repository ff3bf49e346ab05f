package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stockledger/internal/model"
)

func loansQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("loans").As("l")).
		Join(goqu.T("items").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("l.item_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("l.requester_id")))).
		LeftJoin(goqu.T("users").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("l.approver_id")))).
		Select(
			"l.id", "l.item_id", "l.requester_id", "l.quantity", "l.borrower_name",
			"l.start_date", "l.end_date", "l.purpose", "l.status", "l.approver_id",
			"l.decided_at", "l.rejection_reason", "l.returned_at", "l.created_at", "l.updated_at",
			goqu.I("i.name").As("item_name"),
			goqu.I("u.name").As("requester_name"),
			goqu.I("a.name").As("approver_name"),
		)
}

// RequestLoan creates a PENDING loan. Stock is not checked or reserved here;
// competing requests are settled at approval. An empty borrower name defaults
// to the requester's current name.
func RequestLoan(ctx context.Context, db *sqlx.DB, req model.LoanRequest) (*model.Loan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var loan *model.Loan
	err := RunInTx(ctx, db, func(q Querier) error {
		if _, err := GetItem(ctx, q, req.ItemID); err != nil {
			return err
		}
		requester, err := GetUser(ctx, q, req.RequesterID)
		if err != nil {
			return err
		}

		borrower := req.BorrowerName
		if borrower == "" {
			borrower = requester.Name
		}
		var purpose *string
		if req.Purpose != "" {
			purpose = &req.Purpose
		}

		id, err := insert(ctx, q, dialect.Insert("loans").Rows(goqu.Record{
			"item_id":       req.ItemID,
			"requester_id":  req.RequesterID,
			"quantity":      req.Quantity,
			"borrower_name": borrower,
			"start_date":    utc(req.StartDate),
			"end_date":      utc(req.EndDate),
			"purpose":       purpose,
		}))
		if err != nil {
			return fmt.Errorf("creating loan: %w", err)
		}

		loan, err = GetLoan(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ApproveLoan moves a PENDING loan to APPROVED and deducts its quantity from
// the item. This is where stock is committed to the loan.
func ApproveLoan(ctx context.Context, db *sqlx.DB, loanID, approverID int64) (*model.Loan, error) {
	return transitionLoan(ctx, db, loanID, model.LoanApproved, func(q Querier, loan *model.Loan) (goqu.Record, error) {
		if _, err := GetUser(ctx, q, approverID); err != nil {
			return nil, err
		}
		if _, err := AdjustQuantity(ctx, q, loan.ItemID, -loan.Quantity); err != nil {
			return nil, err
		}
		return goqu.Record{
			"approver_id": approverID,
			"decided_at":  goqu.L("CURRENT_TIMESTAMP"),
		}, nil
	})
}

// RejectLoan moves a PENDING loan to REJECTED. Stock is untouched.
func RejectLoan(ctx context.Context, db *sqlx.DB, loanID, approverID int64, reason string) (*model.Loan, error) {
	return transitionLoan(ctx, db, loanID, model.LoanRejected, func(q Querier, loan *model.Loan) (goqu.Record, error) {
		if _, err := GetUser(ctx, q, approverID); err != nil {
			return nil, err
		}
		rec := goqu.Record{
			"approver_id": approverID,
			"decided_at":  goqu.L("CURRENT_TIMESTAMP"),
		}
		if reason != "" {
			rec["rejection_reason"] = reason
		}
		return rec, nil
	})
}

// ReturnLoan moves an APPROVED loan to RETURNED and gives its quantity back
// to the item.
func ReturnLoan(ctx context.Context, db *sqlx.DB, loanID int64) (*model.Loan, error) {
	return transitionLoan(ctx, db, loanID, model.LoanReturned, func(q Querier, loan *model.Loan) (goqu.Record, error) {
		if _, err := AdjustQuantity(ctx, q, loan.ItemID, loan.Quantity); err != nil {
			return nil, err
		}
		return goqu.Record{"returned_at": goqu.L("CURRENT_TIMESTAMP")}, nil
	})
}

// transitionLoan runs one status change as a unit of work: it loads the loan,
// checks the transition, lets apply perform side effects and contribute
// columns, then writes the status guarded by the status it read. If another
// writer moved the loan in between, nothing is applied and Conflict is
// returned.
func transitionLoan(ctx context.Context, db *sqlx.DB, loanID int64, next model.LoanStatus,
	apply func(q Querier, loan *model.Loan) (goqu.Record, error)) (*model.Loan, error) {
	var loan *model.Loan
	err := RunInTx(ctx, db, func(q Querier) error {
		current, err := GetLoan(ctx, q, loanID)
		if err != nil {
			return err
		}
		if err := current.Status.CheckTransition(next); err != nil {
			return err
		}

		rec, err := apply(q, current)
		if err != nil {
			return err
		}
		rec["status"] = string(next)
		rec["updated_at"] = goqu.L("CURRENT_TIMESTAMP")

		n, err := exec(ctx, q, dialect.Update("loans").Set(rec).
			Where(goqu.C("id").Eq(loanID), goqu.C("status").Eq(string(current.Status))).
			Prepared(true))
		if err != nil {
			return fmt.Errorf("updating loan status: %w", err)
		}
		if n == 0 {
			return model.Errorf(model.KindConflict, "loan %d changed concurrently", loanID)
		}

		loan, err = GetLoan(ctx, q, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// GetLoan returns a loan by ID.
func GetLoan(ctx context.Context, q Querier, id int64) (*model.Loan, error) {
	var loan model.Loan
	err := selectOne(ctx, q, &loan, loansQuery().Where(goqu.I("l.id").Eq(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "loan %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return &loan, nil
}

// ListLoans returns loans newest first. Roles that only see their own loans
// are restricted to f.RequesterID.
func ListLoans(ctx context.Context, q Querier, f model.LoanFilter) ([]model.Loan, error) {
	ds := loansQuery().Order(goqu.I("l.created_at").Desc(), goqu.I("l.id").Desc())
	if model.SeesOwnLoansOnly(f.Role) {
		ds = ds.Where(goqu.I("l.requester_id").Eq(f.RequesterID))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.I("l.status").Eq(string(f.Status)))
	}
	if f.ItemID > 0 {
		ds = ds.Where(goqu.I("l.item_id").Eq(f.ItemID))
	}

	var loans []model.Loan
	if err := selectAll(ctx, q, &loans, ds); err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	return loans, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
