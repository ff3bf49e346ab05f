package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/stockledger/internal/model"
)

// Querier is satisfied by *sqlx.DB and *sqlx.Tx. Functions that take a
// Querier run inside whatever unit of work the caller holds.
type Querier interface {
	sqlx.ExtContext
}

var (
	_ Querier = (*sqlx.DB)(nil)
	_ Querier = (*sqlx.Tx)(nil)
)

// dialect builds SQL for SQLite with ? placeholders.
var dialect = goqu.Dialect("sqlite3")

// RunInTx runs fn inside a transaction. The Querier handed to fn is bound to
// the transaction, which commits only if fn returns nil. Lock contention that
// outlives the busy timeout surfaces as a Conflict error.
func RunInTx(ctx context.Context, db *sqlx.DB, fn func(q Querier) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// classify tags storage lock errors as Conflict and leaves everything else
// untouched.
func classify(err error) error {
	if err == nil || model.KindOf(err) != "" {
		return err
	}
	if isBusy(err) {
		return model.WrapError(model.KindConflict, "concurrent update, retry", err)
	}
	return err
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, including
// extended codes.
func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// sqlBuilder is a prepared goqu update or delete dataset.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// exec builds ds, executes it and returns the number of affected rows.
func exec(ctx context.Context, q Querier, ds sqlBuilder) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building query: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert builds ds, executes it and returns the new row id.
func insert(ctx context.Context, q Querier, ds *goqu.InsertDataset) (int64, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building query: %w", err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// selectOne runs ds and scans the single row into dest.
func selectOne(ctx context.Context, q Querier, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

// selectAll runs ds and scans every row into dest.
func selectAll(ctx context.Context, q Querier, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}
