// Package store persists orders, quotations, shipments and error logs in
// SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Sentinel errors returned by store operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("record already exists")
)

// Store persists the shipping-bridge state in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id                TEXT PRIMARY KEY,
	source_id         TEXT NOT NULL UNIQUE,
	order_number      TEXT NOT NULL DEFAULT '',
	customer_name     TEXT NOT NULL DEFAULT '',
	customer_email    TEXT NOT NULL DEFAULT '',
	customer_phone    TEXT NOT NULL DEFAULT '',
	delivery_street   TEXT NOT NULL DEFAULT '',
	delivery_suburb   TEXT NOT NULL DEFAULT '',
	delivery_city     TEXT NOT NULL DEFAULT '',
	delivery_postcode TEXT NOT NULL DEFAULT '',
	delivery_country  TEXT NOT NULL DEFAULT 'NZ',
	is_rural          INTEGER NOT NULL DEFAULT 0,
	items_json        TEXT NOT NULL DEFAULT '[]',
	source_json       TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	synced_at         INTEGER
);

CREATE TABLE IF NOT EXISTS quotations (
	id              TEXT PRIMARY KEY,
	order_id        TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	provider_id     INTEGER NOT NULL,
	provider_name   TEXT NOT NULL,
	service_type    TEXT NOT NULL DEFAULT '',
	base_price      REAL NOT NULL,
	rural_surcharge REAL NOT NULL DEFAULT 0,
	gst             REAL NOT NULL DEFAULT 0,
	total_price     REAL NOT NULL,
	is_selected     INTEGER NOT NULL DEFAULT 0,
	response_json   TEXT NOT NULL DEFAULT '',
	expires_at      INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quotations_order ON quotations(order_id);

CREATE TABLE IF NOT EXISTS shipments (
	id                 TEXT PRIMARY KEY,
	order_id           TEXT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
	provider_id        INTEGER NOT NULL,
	provider_name      TEXT NOT NULL,
	tracking_number    TEXT NOT NULL DEFAULT '',
	tracking_url       TEXT NOT NULL DEFAULT '',
	consignment_number TEXT NOT NULL DEFAULT '',
	label_url          TEXT NOT NULL DEFAULT '',
	label_data         BLOB,
	label_file_name    TEXT NOT NULL DEFAULT '',
	label_downloaded   INTEGER NOT NULL DEFAULT 0,
	final_price        REAL NOT NULL,
	response_json      TEXT NOT NULL DEFAULT '',
	created_at         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS error_logs (
	id           TEXT PRIMARY KEY,
	order_id     TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	action       TEXT NOT NULL,
	message      TEXT NOT NULL,
	details_json TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_error_logs_order ON error_logs(order_id, created_at DESC);
`

// Open opens the SQLite store at path and applies the schema.
// The special path ":memory:" opens an in-memory database for tests.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// isUniqueViolation reports whether err is a SQLite uniqueness failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
