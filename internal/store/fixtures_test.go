package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/stockledger/internal/model"
)

type fixture struct {
	t   *testing.T
	db  *sqlx.DB
	ctx context.Context
	seq int
}

func newFixture(t *testing.T, db *sqlx.DB) *fixture {
	return &fixture{t: t, db: db, ctx: context.Background()}
}

func (f *fixture) next() int {
	f.seq++
	return f.seq
}

func (f *fixture) user(role string) *model.User {
	f.t.Helper()
	n := f.next()
	u, err := CreateUser(f.ctx, f.db, fmt.Sprintf("User %d", n), fmt.Sprintf("user%d@example.com", n), "hash", role)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) category() *model.Category {
	f.t.Helper()
	c, err := CreateCategory(f.ctx, f.db, fmt.Sprintf("Category %d", f.next()), nil)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) supplier() *model.Supplier {
	f.t.Helper()
	s, err := CreateSupplier(f.ctx, f.db, fmt.Sprintf("Supplier %d", f.next()), nil)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) item(qty int) *model.Item {
	f.t.Helper()
	n := f.next()
	item, err := CreateItem(f.ctx, f.db, model.NewItem{
		Code:            fmt.Sprintf("ITM-%03d", n),
		Name:            fmt.Sprintf("Item %d", n),
		CategoryID:      f.category().ID,
		Unit:            "pcs",
		OpeningQuantity: qty,
	}, nil)
	require.NoError(f.t, err)
	return item
}

func (f *fixture) loan(itemID, requesterID int64, qty int) *model.Loan {
	f.t.Helper()
	l, err := RequestLoan(f.ctx, f.db, model.LoanRequest{
		RequesterID: requesterID,
		ItemID:      itemID,
		Quantity:    qty,
	})
	require.NoError(f.t, err)
	return l
}

func (f *fixture) quantity(itemID int64) int {
	f.t.Helper()
	item, err := GetItem(f.ctx, f.db, itemID)
	require.NoError(f.t, err)
	return item.Quantity
}

// requireConserved asserts that every item's stored quantity equals its
// ledger-derived quantity.
func (f *fixture) requireConserved() {
	f.t.Helper()
	rows, err := Reconcile(f.ctx, f.db)
	require.NoError(f.t, err)
	for _, r := range rows {
		require.Falsef(f.t, r.Drift(), "item %s: stored %d, derived %d", r.Code, r.Stored, r.Derived())
		require.GreaterOrEqual(f.t, r.Stored, 0)
	}
}

func requireKind(t *testing.T, err error, kind model.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, model.KindOf(err), "unexpected error: %v", err)
}
