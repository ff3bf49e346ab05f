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

func categoriesQuery() *goqu.SelectDataset {
	return dialect.From("categories").Select("id", "name", "description", "created_at")
}

// CreateCategory creates a category. Names are unique.
func CreateCategory(ctx context.Context, q Querier, name string, description *string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Errorf(model.KindInvalidInput, "category name is required")
	}

	id, err := insert(ctx, q, dialect.Insert("categories").Rows(goqu.Record{
		"name":        name,
		"description": description,
	}))
	if isUniqueViolation(err) {
		return nil, model.Errorf(model.KindDuplicateCode, "category %q already exists", name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return GetCategory(ctx, q, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, q Querier, id int64) (*model.Category, error) {
	var c model.Category
	err := selectOne(ctx, q, &c, categoriesQuery().Where(goqu.C("id").Eq(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "category %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, q Querier) ([]model.Category, error) {
	var cats []model.Category
	if err := selectAll(ctx, q, &cats, categoriesQuery().Order(goqu.C("name").Asc())); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// UpdateCategory renames a category and replaces its description.
func UpdateCategory(ctx context.Context, q Querier, id int64, name string, description *string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Errorf(model.KindInvalidInput, "category name is required")
	}

	n, err := exec(ctx, q, dialect.Update("categories").
		Set(goqu.Record{"name": name, "description": description}).
		Where(goqu.C("id").Eq(id)).Prepared(true))
	if isUniqueViolation(err) {
		return nil, model.Errorf(model.KindDuplicateCode, "category %q already exists", name)
	}
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}
	if n == 0 {
		return nil, model.Errorf(model.KindNotFound, "category %d not found", id)
	}
	return GetCategory(ctx, q, id)
}

// DeleteCategory removes a category no item belongs to.
func DeleteCategory(ctx context.Context, q Querier, id int64) error {
	used, err := exists(ctx, q, `SELECT 1 FROM items WHERE category_id = ? LIMIT 1`, id)
	if err != nil {
		return fmt.Errorf("checking category items: %w", err)
	}
	if used {
		return model.Errorf(model.KindHasDependents, "category %d still has items", id)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "category %d not found", id)
	}
	return nil
}
