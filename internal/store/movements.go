package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stockledger/internal/model"
)

func movementsQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("stock_movements").As("m")).
		Join(goqu.T("items").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("m.item_id")))).
		LeftJoin(goqu.T("suppliers").As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("m.supplier_id")))).
		Select(
			"m.id", "m.item_id", "m.direction", "m.quantity", "m.supplier_id",
			"m.reason", "m.created_by", "m.created_at",
			goqu.I("i.name").As("item_name"),
			goqu.I("s.name").As("supplier_name"),
		)
}

// RecordIn books received stock: the quantity increment and the IN record
// commit together or not at all.
func RecordIn(ctx context.Context, db *sqlx.DB, in model.StockIn) (*model.StockMovement, error) {
	if in.Quantity <= 0 {
		return nil, model.Errorf(model.KindInvalidQuantity, "quantity must be positive")
	}

	var mv *model.StockMovement
	err := RunInTx(ctx, db, func(q Querier) error {
		ok, err := exists(ctx, q, `SELECT 1 FROM suppliers WHERE id = ?`, in.SupplierID)
		if err != nil {
			return fmt.Errorf("checking supplier: %w", err)
		}
		if !ok {
			return model.Errorf(model.KindNotFound, "supplier %d not found", in.SupplierID)
		}

		if _, err := AdjustQuantity(ctx, q, in.ItemID, in.Quantity); err != nil {
			return err
		}

		mv, err = insertMovement(ctx, q, in.ItemID, model.DirectionIn, in.Quantity, &in.SupplierID, nil, in.CreatedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// RecordOut books withdrawn stock. It fails with InsufficientStock if the item
// holds less than the requested quantity.
func RecordOut(ctx context.Context, db *sqlx.DB, out model.StockOut) (*model.StockMovement, error) {
	if out.Quantity <= 0 {
		return nil, model.Errorf(model.KindInvalidQuantity, "quantity must be positive")
	}

	var reason *string
	if r := strings.TrimSpace(out.Reason); r != "" {
		reason = &r
	}

	var mv *model.StockMovement
	err := RunInTx(ctx, db, func(q Querier) error {
		if _, err := AdjustQuantity(ctx, q, out.ItemID, -out.Quantity); err != nil {
			return err
		}

		var err error
		mv, err = insertMovement(ctx, q, out.ItemID, model.DirectionOut, out.Quantity, nil, reason, out.CreatedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// insertMovement appends a movement record. It does not touch the item's
// quantity; callers pair it with AdjustQuantity in one transaction.
func insertMovement(ctx context.Context, q Querier, itemID int64, dir model.Direction, qty int,
	supplierID *int64, reason *string, createdBy *int64) (*model.StockMovement, error) {
	id, err := insert(ctx, q, dialect.Insert("stock_movements").Rows(goqu.Record{
		"item_id":     itemID,
		"direction":   string(dir),
		"quantity":    qty,
		"supplier_id": supplierID,
		"reason":      reason,
		"created_by":  createdBy,
	}))
	if err != nil {
		return nil, fmt.Errorf("recording stock movement: %w", err)
	}
	return GetMovement(ctx, q, id)
}

// GetMovement returns a stock movement by ID.
func GetMovement(ctx context.Context, q Querier, id int64) (*model.StockMovement, error) {
	var mv model.StockMovement
	err := selectOne(ctx, q, &mv, movementsQuery().Where(goqu.I("m.id").Eq(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "stock movement %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting stock movement: %w", err)
	}
	return &mv, nil
}

// ListMovements returns stock movements newest first, optionally filtered by
// direction or item.
func ListMovements(ctx context.Context, q Querier, f model.MovementFilter) ([]model.StockMovement, error) {
	ds := movementsQuery().Order(goqu.I("m.created_at").Desc(), goqu.I("m.id").Desc())
	if f.Direction != "" {
		ds = ds.Where(goqu.I("m.direction").Eq(string(f.Direction)))
	}
	if f.ItemID > 0 {
		ds = ds.Where(goqu.I("m.item_id").Eq(f.ItemID))
	}

	var movements []model.StockMovement
	if err := selectAll(ctx, q, &movements, ds); err != nil {
		return nil, fmt.Errorf("listing stock movements: %w", err)
	}
	return movements, nil
}
