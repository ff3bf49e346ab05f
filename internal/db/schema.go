package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'borrower'
                  CHECK (role IN ('superadmin', 'admin', 'warehouse', 'manager', 'borrower')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS suppliers (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    phone      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    category_id INTEGER NOT NULL REFERENCES categories(id),
    unit        TEXT NOT NULL,
    quantity    INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    image       BLOB,
    image_mime  TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stock_movements (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id),
    direction   TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    supplier_id INTEGER REFERENCES suppliers(id),
    reason      TEXT,
    created_by  INTEGER REFERENCES users(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stock_movements_item
    ON stock_movements(item_id, direction);

CREATE TABLE IF NOT EXISTS loans (
    id               INTEGER PRIMARY KEY,
    item_id          INTEGER NOT NULL REFERENCES items(id),
    requester_id     INTEGER NOT NULL REFERENCES users(id),
    quantity         INTEGER NOT NULL CHECK (quantity > 0),
    borrower_name    TEXT NOT NULL DEFAULT '',
    start_date       DATETIME,
    end_date         DATETIME,
    purpose          TEXT,
    status           TEXT NOT NULL DEFAULT 'PENDING'
                     CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'RETURNED')),
    approver_id      INTEGER REFERENCES users(id),
    decided_at       DATETIME,
    rejection_reason TEXT,
    returned_at      DATETIME,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_item_status ON loans(item_id, status);
CREATE INDEX IF NOT EXISTS idx_loans_requester ON loans(requester_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: stock movements are append-only.
	`CREATE TRIGGER IF NOT EXISTS stock_movements_no_update
	     BEFORE UPDATE ON stock_movements
	     BEGIN SELECT RAISE(ABORT, 'stock movements are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS stock_movements_no_delete
	     BEFORE DELETE ON stock_movements
	     BEGIN SELECT RAISE(ABORT, 'stock movements are immutable'); END`,
}

// EnsureSchema creates all tables and indexes if they don't already exist and
// applies migrations.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
