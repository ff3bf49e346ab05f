package db

import (
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// pragmas are applied to every pooled connection through the DSN, so they
// hold for connections opened after startup too.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// DSN builds the connection string for path. Transactions begin IMMEDIATE so
// writers serialize at BEGIN instead of failing on lock upgrade.
func DSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return path + "?" + q.Encode()
}

// Open opens a SQLite database and verifies the connection.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}
