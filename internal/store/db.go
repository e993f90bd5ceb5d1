package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultMaxMessagesPerChat is the retention cap applied when Options
// does not override it.
const DefaultMaxMessagesPerChat = 5000

// Options carries explicit store configuration.
type Options struct {
	// MaxMessagesPerChat caps how many messages are retained per
	// (owner, chat); the oldest rows beyond the cap are evicted after
	// each write batch. Zero means DefaultMaxMessagesPerChat.
	MaxMessagesPerChat int
}

// DB wraps a SQLite connection for the app-owned cache.db.
type DB struct {
	*sql.DB
	retention int
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string, opts Options) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	retention := opts.MaxMessagesPerChat
	if retention <= 0 {
		retention = DefaultMaxMessagesPerChat
	}
	return &DB{DB: db, retention: retention}, nil
}

// Retention returns the configured per-chat message cap.
func (db *DB) Retention() int {
	return db.retention
}
