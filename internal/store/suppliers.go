package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/stockledger/internal/model"
)

func suppliersQuery() *goqu.SelectDataset {
	return dialect.From("suppliers").Select("id", "name", "phone", "created_at")
}

// CreateSupplier creates a supplier.
func CreateSupplier(ctx context.Context, q Querier, name string, phone *string) (*model.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Errorf(model.KindInvalidInput, "supplier name is required")
	}

	id, err := insert(ctx, q, dialect.Insert("suppliers").Rows(goqu.Record{
		"name":  name,
		"phone": phone,
	}))
	if err != nil {
		return nil, fmt.Errorf("creating supplier: %w", err)
	}
	return GetSupplier(ctx, q, id)
}

// GetSupplier returns a supplier by ID.
func GetSupplier(ctx context.Context, q Querier, id int64) (*model.Supplier, error) {
	var s model.Supplier
	err := selectOne(ctx, q, &s, suppliersQuery().Where(goqu.C("id").Eq(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "supplier %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting supplier: %w", err)
	}
	return &s, nil
}

// ListSuppliers returns all suppliers ordered by name.
func ListSuppliers(ctx context.Context, q Querier) ([]model.Supplier, error) {
	var out []model.Supplier
	if err := selectAll(ctx, q, &out, suppliersQuery().Order(goqu.C("name").Asc(), goqu.C("id").Asc())); err != nil {
		return nil, fmt.Errorf("listing suppliers: %w", err)
	}
	return out, nil
}

// UpdateSupplier replaces a supplier's name and phone.
func UpdateSupplier(ctx context.Context, q Querier, id int64, name string, phone *string) (*model.Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Errorf(model.KindInvalidInput, "supplier name is required")
	}

	n, err := exec(ctx, q, dialect.Update("suppliers").
		Set(goqu.Record{"name": name, "phone": phone}).
		Where(goqu.C("id").Eq(id)).Prepared(true))
	if err != nil {
		return nil, fmt.Errorf("updating supplier: %w", err)
	}
	if n == 0 {
		return nil, model.Errorf(model.KindNotFound, "supplier %d not found", id)
	}
	return GetSupplier(ctx, q, id)
}

// DeleteSupplier removes a supplier no stock-in refers to.
func DeleteSupplier(ctx context.Context, q Querier, id int64) error {
	used, err := exists(ctx, q, `SELECT 1 FROM stock_movements WHERE supplier_id = ? LIMIT 1`, id)
	if err != nil {
		return fmt.Errorf("checking supplier movements: %w", err)
	}
	if used {
		return model.Errorf(model.KindHasDependents, "supplier %d has stock movements", id)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting supplier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "supplier %d not found", id)
	}
	return nil
}
