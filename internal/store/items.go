package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stockledger/internal/model"
)

// openingBalanceReason marks the IN movement booked for an item's initial quantity.
const openingBalanceReason = "opening balance"

func itemsQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("items").As("i")).
		Join(goqu.T("categories").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("i.category_id")))).
		Select(
			"i.id", "i.code", "i.name", "i.category_id", "i.unit", "i.quantity",
			goqu.L("i.image IS NOT NULL").As("has_image"),
			"i.created_at", "i.updated_at",
			goqu.I("c.name").As("category_name"),
		)
}

// CreateItem validates and inserts an item. A positive opening quantity is
// booked as an IN movement in the same transaction.
func CreateItem(ctx context.Context, db *sqlx.DB, n model.NewItem, createdBy *int64) (*model.Item, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var item *model.Item
	err := RunInTx(ctx, db, func(q Querier) error {
		if err := ValidateCategory(ctx, q, n.CategoryID); err != nil {
			return err
		}

		taken, err := exists(ctx, q, `SELECT 1 FROM items WHERE code = ?`, n.Code)
		if err != nil {
			return fmt.Errorf("checking item code: %w", err)
		}
		if taken {
			return model.Errorf(model.KindDuplicateCode, "item code %q is already in use", n.Code)
		}

		id, err := insert(ctx, q, dialect.Insert("items").Rows(goqu.Record{
			"code":        n.Code,
			"name":        n.Name,
			"category_id": n.CategoryID,
			"unit":        n.Unit,
		}))
		if isUniqueViolation(err) {
			return model.Errorf(model.KindDuplicateCode, "item code %q is already in use", n.Code)
		}
		if err != nil {
			return fmt.Errorf("creating item: %w", err)
		}

		if n.OpeningQuantity > 0 {
			if _, err := AdjustQuantity(ctx, q, id, n.OpeningQuantity); err != nil {
				return err
			}
			reason := openingBalanceReason
			if _, err := insertMovement(ctx, q, id, model.DirectionIn, n.OpeningQuantity, nil, &reason, createdBy); err != nil {
				return err
			}
		}

		item, err = GetItem(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	var item model.Item
	err := selectOne(ctx, q, &item, itemsQuery().Where(goqu.I("i.id").Eq(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "item %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return &item, nil
}

// ListItems returns items ordered by name, optionally filtered.
func ListItems(ctx context.Context, q Querier, f model.ItemFilter) ([]model.Item, error) {
	ds := itemsQuery().Order(goqu.I("i.name").Asc(), goqu.I("i.id").Asc())
	if f.CategoryID > 0 {
		ds = ds.Where(goqu.I("i.category_id").Eq(f.CategoryID))
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		ds = ds.Where(goqu.Or(goqu.I("i.name").Like(like), goqu.I("i.code").Like(like)))
	}

	var items []model.Item
	if err := selectAll(ctx, q, &items, ds); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// UpdateItem applies a partial update. Quantity cannot be changed here.
func UpdateItem(ctx context.Context, db *sqlx.DB, id int64, patch model.ItemPatch) (*model.Item, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return GetItem(ctx, db, id)
	}

	var item *model.Item
	err := RunInTx(ctx, db, func(q Querier) error {
		rec := goqu.Record{"updated_at": goqu.L("CURRENT_TIMESTAMP")}
		if patch.Name != nil {
			rec["name"] = *patch.Name
		}
		if patch.Unit != nil {
			rec["unit"] = *patch.Unit
		}
		if patch.CategoryID != nil {
			if err := ValidateCategory(ctx, q, *patch.CategoryID); err != nil {
				return err
			}
			rec["category_id"] = *patch.CategoryID
		}

		n, err := exec(ctx, q, dialect.Update("items").Set(rec).
			Where(goqu.C("id").Eq(id)).Prepared(true))
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}
		if n == 0 {
			return model.Errorf(model.KindNotFound, "item %d not found", id)
		}

		item, err = GetItem(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item that has no movements and no loans.
func DeleteItem(ctx context.Context, db *sqlx.DB, id int64) error {
	return RunInTx(ctx, db, func(q Querier) error {
		ok, err := CanDeleteItem(ctx, q, id)
		if err != nil {
			return err
		}
		if !ok {
			return model.Errorf(model.KindHasDependents, "item %d has stock movements or loans", id)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		return nil
	})
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, q Querier, id int64, image []byte, mime string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "item %d not found", id)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type. An item without an
// image yields NotFound.
func GetItemImage(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowxContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", model.Errorf(model.KindNotFound, "item %d not found", id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	if len(image) == 0 {
		return nil, "", model.Errorf(model.KindNotFound, "item %d has no image", id)
	}
	return image, mime.String, nil
}
