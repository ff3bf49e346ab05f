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

func usersQuery() *goqu.SelectDataset {
	return dialect.From("users").
		Select("id", "name", "email", "password_hash", "role", "created_at")
}

// CreateUser creates a new user. Emails are stored lowercased and must be
// unique.
func CreateUser(ctx context.Context, q Querier, name, email, passwordHash, role string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, model.Errorf(model.KindInvalidInput, "name and email are required")
	}
	if !model.ValidRole(role) {
		return nil, model.Errorf(model.KindInvalidInput, "unknown role %q", role)
	}

	id, err := insert(ctx, q, dialect.Insert("users").Rows(goqu.Record{
		"name":          name,
		"email":         email,
		"password_hash": passwordHash,
		"role":          role,
	}))
	if isUniqueViolation(err) {
		return nil, model.Errorf(model.KindDuplicateCode, "email %q is already registered", email)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	var u model.User
	err := selectOne(ctx, q, &u, usersQuery().Where(goqu.C("id").Eq(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	var u model.User
	err := selectOne(ctx, q, &u, usersQuery().Where(goqu.C("email").Eq(normalizeEmail(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.Errorf(model.KindNotFound, "user %q not found", email)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	var users []model.User
	if err := selectAll(ctx, q, &users, usersQuery().Order(goqu.C("id").Asc())); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUser changes a user's name and role. Empty values are left as they are.
func UpdateUser(ctx context.Context, q Querier, id int64, name, role string) (*model.User, error) {
	rec := goqu.Record{}
	if name = strings.TrimSpace(name); name != "" {
		rec["name"] = name
	}
	if role != "" {
		if !model.ValidRole(role) {
			return nil, model.Errorf(model.KindInvalidInput, "unknown role %q", role)
		}
		rec["role"] = role
	}
	if len(rec) == 0 {
		return GetUser(ctx, q, id)
	}

	n, err := exec(ctx, q, dialect.Update("users").Set(rec).Where(goqu.C("id").Eq(id)).Prepared(true))
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return nil, model.Errorf(model.KindNotFound, "user %d not found", id)
	}
	return GetUser(ctx, q, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "user %d not found", id)
	}
	return nil
}

// DeleteUser removes a user that never requested, decided or recorded
// anything. Users referenced by the ledger fail with HasDependents.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	var refs int
	err := q.QueryRowxContext(ctx,
		`SELECT (SELECT COUNT(*) FROM loans WHERE requester_id = ? OR approver_id = ?)
		      + (SELECT COUNT(*) FROM stock_movements WHERE created_by = ?)`,
		id, id, id,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("counting user dependents: %w", err)
	}
	if refs > 0 {
		return model.Errorf(model.KindHasDependents, "user %d is referenced by loans or stock movements", id)
	}

	res, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "user %d not found", id)
	}
	return nil
}

// CountUsers returns the number of users.
func CountUsers(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowxContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
