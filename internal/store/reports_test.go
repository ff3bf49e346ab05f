package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stockledger/internal/db"
	"github.com/erazemk/stockledger/internal/model"
)

func TestSummary(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	a := f.item(3)
	f.item(0)
	sup := f.supplier()
	f.supplier()
	borrower := f.user(model.RoleBorrower)

	_, err := RecordIn(f.ctx, f.db, model.StockIn{ItemID: a.ID, SupplierID: sup.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = RecordOut(f.ctx, f.db, model.StockOut{ItemID: a.ID, Quantity: 1})
	require.NoError(t, err)
	f.loan(a.ID, borrower.ID, 1)

	s, err := Summary(f.ctx, f.db)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{
		TotalItems:     2,
		TotalSuppliers: 2,
		TotalStockIn:   2, // opening balance + receipt
		TotalStockOut:  1,
		TotalLoans:     1,
	}, *s)
}

func TestStockReport_Empty(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))

	rows, err := StockReport(f.ctx, f.db)
	require.NoError(t, err)
	assert.Empty(t, rows)

	s, err := Summary(f.ctx, f.db)
	require.NoError(t, err)
	assert.Equal(t, model.Summary{}, *s)
}

func TestReconcile_DetectsDrift(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(4)
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	loan := f.loan(item.ID, borrower.ID, 3)
	_, err := ApproveLoan(f.ctx, f.db, loan.ID, manager.ID)
	require.NoError(t, err)

	rows, err := Reconcile(f.ctx, f.db)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].StockIn)
	assert.Equal(t, 3, rows[0].Held)
	assert.Equal(t, 1, rows[0].Stored)
	assert.False(t, rows[0].Drift())

	// Bypass the ledger to simulate corruption.
	_, err = f.db.ExecContext(f.ctx, `UPDATE items SET quantity = 9 WHERE id = ?`, item.ID)
	require.NoError(t, err)

	rows, err = Reconcile(f.ctx, f.db)
	require.NoError(t, err)
	assert.True(t, rows[0].Drift())
}

func TestConservation_MixedWorkload(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	sup := f.supplier()
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)
	items := []*model.Item{f.item(6), f.item(0), f.item(2)}

	for i, item := range items {
		_, err := RecordIn(f.ctx, f.db, model.StockIn{ItemID: item.ID, SupplierID: sup.ID, Quantity: i + 3})
		require.NoError(t, err)

		l := f.loan(item.ID, borrower.ID, 2)
		if _, err := ApproveLoan(f.ctx, f.db, l.ID, manager.ID); err != nil {
			requireKind(t, err, model.KindInsufficientStock)
		}
		f.requireConserved()

		_, err = RecordOut(f.ctx, f.db, model.StockOut{ItemID: item.ID, Quantity: 1})
		require.NoError(t, err)
		f.requireConserved()

		if got, _ := GetLoan(f.ctx, f.db, l.ID); got.Status == model.LoanApproved {
			_, err = ReturnLoan(f.ctx, f.db, l.ID)
			require.NoError(t, err)
		}
		f.requireConserved()
	}
}

func TestOverdueLoans(t *testing.T) {
	f := newFixture(t, db.NewTestDB(t))
	item := f.item(10)
	borrower := f.user(model.RoleBorrower)
	manager := f.user(model.RoleManager)

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	request := func(end time.Time) *model.Loan {
		l, err := RequestLoan(f.ctx, f.db, model.LoanRequest{
			RequesterID: borrower.ID, ItemID: item.ID, Quantity: 1, EndDate: &end,
		})
		require.NoError(t, err)
		return l
	}

	late := request(now.Add(-48 * time.Hour))
	later := request(now.Add(-72 * time.Hour))
	notDue := request(now.Add(24 * time.Hour))
	request(now.Add(-24 * time.Hour)) // still pending

	for _, l := range []*model.Loan{late, later, notDue} {
		_, err := ApproveLoan(f.ctx, f.db, l.ID, manager.ID)
		require.NoError(t, err)
	}

	overdue, err := OverdueLoans(f.ctx, f.db, now)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, later.ID, overdue[0].ID)
	assert.Equal(t, late.ID, overdue[1].ID)
}
