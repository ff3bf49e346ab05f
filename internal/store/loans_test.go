package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stockledger/internal/db"
	"github.com/erazemk/stockledger/internal/model"
)

func TestRequestLoan(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(5)
	borrower := f.user(model.RoleBorrower)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	loan, err := RequestLoan(f.ctx, f.db, model.LoanRequest{
		RequesterID: borrower.ID,
		ItemID:      item.ID,
		Quantity:    2,
		StartDate:   &start,
		EndDate:     &end,
		Purpose:     " field trip ",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LoanPending, loan.Status)
	assert.Equal(t, borrower.Name, loan.BorrowerName)
	assert.Equal(t, borrower.Name, loan.RequesterName)
	assert.Equal(t, item.Name, loan.ItemName)
	require.NotNil(t, loan.Purpose)
	assert.Equal(t, "field trip", *loan.Purpose)
	require.NotNil(t, loan.EndDate)
	assert.True(t, end.Equal(*loan.EndDate))
	assert.Nil(t, loan.ApproverID)
	assert.Nil(t, loan.DecidedAt)

	assert.Equal(t, 5, f.quantity(item.ID), "requesting does not reserve stock")
}

func TestRequestLoan_BorrowerNameOverride(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(1)
	borrower := f.user(model.RoleBorrower)

	loan, err := RequestLoan(f.ctx, f.db, model.LoanRequest{
		RequesterID: borrower.ID, ItemID: item.ID, Quantity: 1, BorrowerName: "Team B",
	})
	require.NoError(t, err)
	assert.Equal(t, "Team B", loan.BorrowerName)

	_, err = UpdateUser(f.ctx, f.db, borrower.ID, "Renamed", "")
	require.NoError(t, err)

	plain := f.loan(item.ID, borrower.ID, 1)
	assert.Equal(t, "Renamed", plain.BorrowerName)

	first, err := GetLoan(f.ctx, f.db, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team B", first.BorrowerName)
}

func TestRequestLoan_Errors(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(1)
	borrower := f.user(model.RoleBorrower)

	_, err := RequestLoan(f.ctx, f.db, model.LoanRequest{RequesterID: borrower.ID, ItemID: item.ID, Quantity: 0})
	requireKind(t, err, model.KindInvalidQuantity)

	_, err = RequestLoan(f.ctx, f.db, model.LoanRequest{RequesterID: borrower.ID, ItemID: 999, Quantity: 1})
	requireKind(t, err, model.KindNotFound)

	_, err = RequestLoan(f.ctx, f.db, model.LoanRequest{RequesterID: 999, ItemID: item.ID, Quantity: 1})
	requireKind(t, err, model.KindNotFound)

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = RequestLoan(f.ctx, f.db, model.LoanRequest{
		RequesterID: borrower.ID, ItemID: item.ID, Quantity: 1, StartDate: &start, EndDate: &end,
	})
	requireKind(t, err, model.KindInvalidInput)

	// Requests above current stock are accepted; approval decides.
	_, err = RequestLoan(f.ctx, f.db, model.LoanRequest{RequesterID: borrower.ID, ItemID: item.ID, Quantity: 50})
	require.NoError(t, err)
}

// Item quantity 10, stock-in 5, stock-out 3, loan of 4 approved then returned.
func TestLoanLifecycle_ApproveAndReturn(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(10)
	sup := f.supplier()
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	_, err := RecordIn(f.ctx, f.db, model.StockIn{ItemID: item.ID, SupplierID: sup.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 15, f.quantity(item.ID))

	_, err = RecordOut(f.ctx, f.db, model.StockOut{ItemID: item.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 12, f.quantity(item.ID))

	loan := f.loan(item.ID, borrower.ID, 4)
	assert.Equal(t, 12, f.quantity(item.ID))

	loan, err = ApproveLoan(f.ctx, f.db, loan.ID, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanApproved, loan.Status)
	require.NotNil(t, loan.ApproverID)
	assert.Equal(t, manager.ID, *loan.ApproverID)
	require.NotNil(t, loan.ApproverName)
	assert.Equal(t, manager.Name, *loan.ApproverName)
	assert.NotNil(t, loan.DecidedAt)
	assert.Equal(t, 8, f.quantity(item.ID))
	f.requireConserved()

	loan, err = ReturnLoan(f.ctx, f.db, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanReturned, loan.Status)
	assert.NotNil(t, loan.ReturnedAt)
	assert.Equal(t, 12, f.quantity(item.ID))
	f.requireConserved()

	report, err := StockReport(f.ctx, f.db)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, model.StockReportRow{
		ItemID:        item.ID,
		Code:          item.Code,
		Name:          item.Name,
		CurrentStock:  12,
		TotalStockIn:  15,
		TotalStockOut: 3,
		TotalLoans:    4,
	}, report[0])
}

// Quantity 2, loan of 5: approval fails and nothing changes.
func TestApproveLoan_InsufficientStock(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(2)
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	loan := f.loan(item.ID, borrower.ID, 5)

	_, err := ApproveLoan(f.ctx, f.db, loan.ID, manager.ID)
	requireKind(t, err, model.KindInsufficientStock)

	got, err := GetLoan(f.ctx, f.db, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanPending, got.Status)
	assert.Nil(t, got.ApproverID)
	assert.Equal(t, 2, f.quantity(item.ID))
	f.requireConserved()
}

func TestRejectLoan(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(3)
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	loan := f.loan(item.ID, borrower.ID, 1)
	loan, err := RejectLoan(f.ctx, f.db, loan.ID, manager.ID, "not this week")
	require.NoError(t, err)
	assert.Equal(t, model.LoanRejected, loan.Status)
	require.NotNil(t, loan.RejectionReason)
	assert.Equal(t, "not this week", *loan.RejectionReason)
	assert.NotNil(t, loan.DecidedAt)
	assert.Equal(t, 3, f.quantity(item.ID))

	silent := f.loan(item.ID, borrower.ID, 1)
	silent, err = RejectLoan(f.ctx, f.db, silent.ID, manager.ID, "")
	require.NoError(t, err)
	assert.Nil(t, silent.RejectionReason)
}

func TestLoanTransitions(t *testing.T) {
	type op func(f *fixture, loanID, actorID int64) error
	approve := func(f *fixture, id, actor int64) error { _, err := ApproveLoan(f.ctx, f.db, id, actor); return err }
	reject := func(f *fixture, id, actor int64) error { _, err := RejectLoan(f.ctx, f.db, id, actor, ""); return err }
	ret := func(f *fixture, id, _ int64) error { _, err := ReturnLoan(f.ctx, f.db, id); return err }

	// setup moves a fresh PENDING loan into the state under test.
	setups := map[model.LoanStatus][]op{
		model.LoanPending:  nil,
		model.LoanApproved: {approve},
		model.LoanRejected: {reject},
		model.LoanReturned: {approve, ret},
	}
	ops := map[string]struct {
		run  op
		from model.LoanStatus
		to   model.LoanStatus
	}{
		"approve": {approve, model.LoanPending, model.LoanApproved},
		"reject":  {reject, model.LoanPending, model.LoanRejected},
		"return":  {ret, model.LoanApproved, model.LoanReturned},
	}

	for state, setup := range setups {
		for name, o := range ops {
			t.Run(string(state)+"/"+name, func(t *testing.T) {
				f := newFixture(t, db.NewTestDB(t))
				item := f.item(5)
				borrower := f.user(model.RoleBorrower)
				manager := f.user(model.RoleManager)
				loan := f.loan(item.ID, borrower.ID, 2)
				for _, s := range setup {
					require.NoError(t, s(f, loan.ID, manager.ID))
				}
				before := f.quantity(item.ID)

				err := o.run(f, loan.ID, manager.ID)

				got, gerr := GetLoan(f.ctx, f.db, loan.ID)
				require.NoError(t, gerr)
				if state == o.from {
					require.NoError(t, err)
					assert.Equal(t, o.to, got.Status)
				} else {
					requireKind(t, err, model.KindInvalidTransition)
					assert.Equal(t, state, got.Status)
					assert.Equal(t, before, f.quantity(item.ID))
				}
				f.requireConserved()
			})
		}
	}
}

func TestLoanTransitions_NotFound(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	manager := f.user(model.RoleManager)

	_, err := ApproveLoan(f.ctx, f.db, 999, manager.ID)
	requireKind(t, err, model.KindNotFound)
	_, err = RejectLoan(f.ctx, f.db, 999, manager.ID, "")
	requireKind(t, err, model.KindNotFound)
	_, err = ReturnLoan(f.ctx, f.db, 999)
	requireKind(t, err, model.KindNotFound)
}

func TestApproveLoan_ConcurrentRace(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(5)
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	loans := []*model.Loan{
		f.loan(item.ID, borrower.ID, 5),
		f.loan(item.ID, borrower.ID, 5),
	}

	errs := make([]error, len(loans))
	var wg sync.WaitGroup
	for i, l := range loans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ApproveLoan(f.ctx, f.db, l.ID, manager.ID)
		}()
	}
	wg.Wait()

	var approved int
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		kind := model.KindOf(err)
		assert.True(t, kind == model.KindInsufficientStock || kind == model.KindConflict, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 0, f.quantity(item.ID))
	f.requireConserved()
}

func TestReturnLoan_ConcurrentOnlyOnce(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(4)
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	loan := f.loan(item.ID, borrower.ID, 4)
	_, err := ApproveLoan(f.ctx, f.db, loan.ID, manager.ID)
	require.NoError(t, err)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ReturnLoan(f.ctx, f.db, loan.ID)
		}()
	}
	wg.Wait()

	var returned int
	for _, err := range errs {
		if err == nil {
			returned++
			continue
		}
		kind := model.KindOf(err)
		assert.True(t, kind == model.KindInvalidTransition || kind == model.KindConflict, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, returned)
	assert.Equal(t, 4, f.quantity(item.ID))
	f.requireConserved()
}

func TestListLoans_Visibility(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(10)
	alice := f.user(model.RoleBorrower)
	bob := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	a1 := f.loan(item.ID, alice.ID, 1)
	b1 := f.loan(item.ID, bob.ID, 1)
	a2 := f.loan(item.ID, alice.ID, 2)

	own, err := ListLoans(f.ctx, f.db, model.LoanFilter{RequesterID: alice.ID, Role: model.RoleBorrower})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, a2.ID, own[0].ID, "newest first")
	assert.Equal(t, a1.ID, own[1].ID)

	all, err := ListLoans(f.ctx, f.db, model.LoanFilter{RequesterID: manager.ID, Role: model.RoleManager})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a2.ID, b1.ID, a1.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	_, err = ApproveLoan(f.ctx, f.db, b1.ID, manager.ID)
	require.NoError(t, err)

	approved, err := ListLoans(f.ctx, f.db, model.LoanFilter{Role: model.RoleAdmin, Status: model.LoanApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, b1.ID, approved[0].ID)

	bobsPending, err := ListLoans(f.ctx, f.db, model.LoanFilter{
		RequesterID: bob.ID, Role: model.RoleBorrower, Status: model.LoanPending,
	})
	require.NoError(t, err)
	assert.Empty(t, bobsPending)
}
