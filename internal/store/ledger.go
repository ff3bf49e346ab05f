package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/stockledger/internal/model"
)

// AdjustQuantity applies delta to an item's quantity inside the caller's unit
// of work and returns the new quantity. The bound check and the write are one
// statement, so concurrent callers cannot both pass a check against the same
// stale value.
func AdjustQuantity(ctx context.Context, q Querier, itemID int64, delta int) (int, error) {
	if delta == 0 {
		return 0, model.Errorf(model.KindInvalidQuantity, "delta must be non-zero")
	}

	var qty int
	err := q.QueryRowxContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND quantity + ? >= 0
		 RETURNING quantity`,
		delta, itemID, delta,
	).Scan(&qty)
	if err == nil {
		return qty, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("adjusting item quantity: %w", err)
	}

	// Nothing updated: either the item is gone or the guard failed.
	var current int
	err = q.QueryRowxContext(ctx, `SELECT quantity FROM items WHERE id = ?`, itemID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.Errorf(model.KindNotFound, "item %d not found", itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("checking item quantity: %w", err)
	}
	return 0, model.Errorf(model.KindInsufficientStock,
		"insufficient stock for item %d: have %d, need %d", itemID, current, -delta)
}

// ValidateCategory fails with InvalidReference if the category does not exist.
func ValidateCategory(ctx context.Context, q Querier, categoryID int64) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM categories WHERE id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if !ok {
		return model.Errorf(model.KindInvalidReference, "category %d does not exist", categoryID)
	}
	return nil
}

// CanDeleteItem reports whether the item has no movements and no loans.
func CanDeleteItem(ctx context.Context, q Querier, itemID int64) (bool, error) {
	ok, err := exists(ctx, q, `SELECT 1 FROM items WHERE id = ?`, itemID)
	if err != nil {
		return false, fmt.Errorf("checking item: %w", err)
	}
	if !ok {
		return false, model.Errorf(model.KindNotFound, "item %d not found", itemID)
	}

	var refs int
	err = q.QueryRowxContext(ctx,
		`SELECT (SELECT COUNT(*) FROM stock_movements WHERE item_id = ?)
		      + (SELECT COUNT(*) FROM loans WHERE item_id = ?)`,
		itemID, itemID,
	).Scan(&refs)
	if err != nil {
		return false, fmt.Errorf("counting item dependents: %w", err)
	}
	return refs == 0, nil
}

// exists reports whether query returns at least one row.
func exists(ctx context.Context, q Querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowxContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
