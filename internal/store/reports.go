package store

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stockledger/internal/model"
)

// StockReport returns every item's current quantity next to its stock-in,
// stock-out and loan totals. The loan total counts loans in any status.
func StockReport(ctx context.Context, q Querier) ([]model.StockReportRow, error) {
	var rows []model.StockReportRow
	err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT i.id AS item_id, i.code, i.name, i.quantity AS current_stock,
		        COALESCE((SELECT SUM(m.quantity) FROM stock_movements m
		                  WHERE m.item_id = i.id AND m.direction = 'IN'), 0) AS total_stock_in,
		        COALESCE((SELECT SUM(m.quantity) FROM stock_movements m
		                  WHERE m.item_id = i.id AND m.direction = 'OUT'), 0) AS total_stock_out,
		        COALESCE((SELECT SUM(l.quantity) FROM loans l
		                  WHERE l.item_id = i.id), 0) AS total_loans
		 FROM items i
		 ORDER BY i.name, i.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("building stock report: %w", err)
	}
	return rows, nil
}

// Summary returns record counts across the ledger.
func Summary(ctx context.Context, q Querier) (*model.Summary, error) {
	var s model.Summary
	err := sqlx.GetContext(ctx, q, &s,
		`SELECT (SELECT COUNT(*) FROM items) AS total_items,
		        (SELECT COUNT(*) FROM suppliers) AS total_suppliers,
		        (SELECT COUNT(*) FROM stock_movements WHERE direction = 'IN') AS total_stock_in,
		        (SELECT COUNT(*) FROM stock_movements WHERE direction = 'OUT') AS total_stock_out,
		        (SELECT COUNT(*) FROM loans) AS total_loans`,
	)
	if err != nil {
		return nil, fmt.Errorf("building summary: %w", err)
	}
	return &s, nil
}

// Reconcile derives each item's quantity from its movements and the loans
// currently holding stock, next to the stored quantity. All figures come from
// one read so they are mutually consistent.
func Reconcile(ctx context.Context, q Querier) ([]model.Reconciliation, error) {
	var rows []model.Reconciliation
	err := sqlx.SelectContext(ctx, q, &rows,
		`SELECT i.id AS item_id, i.code, i.quantity AS stored,
		        COALESCE((SELECT SUM(m.quantity) FROM stock_movements m
		                  WHERE m.item_id = i.id AND m.direction = 'IN'), 0) AS stock_in,
		        COALESCE((SELECT SUM(m.quantity) FROM stock_movements m
		                  WHERE m.item_id = i.id AND m.direction = 'OUT'), 0) AS stock_out,
		        COALESCE((SELECT SUM(l.quantity) FROM loans l
		                  WHERE l.item_id = i.id AND l.status = 'APPROVED'), 0) AS held
		 FROM items i
		 ORDER BY i.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reconciling stock: %w", err)
	}
	return rows, nil
}

// OverdueLoans returns APPROVED loans whose end date is before now, oldest
// due date first.
func OverdueLoans(ctx context.Context, q Querier, now time.Time) ([]model.Loan, error) {
	ds := loansQuery().
		Where(
			goqu.I("l.status").Eq(string(model.LoanApproved)),
			goqu.I("l.end_date").IsNotNull(),
			goqu.I("l.end_date").Lt(now.UTC()),
		).
		Order(goqu.I("l.end_date").Asc(), goqu.I("l.id").Asc())

	var loans []model.Loan
	if err := selectAll(ctx, q, &loans, ds); err != nil {
		return nil, fmt.Errorf("listing overdue loans: %w", err)
	}
	return loans, nil
}
