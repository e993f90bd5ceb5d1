package store

import (
	"database/sql"
	"time"
)

const chatRefreshKey = "chats.last_refresh"

// SetCheckpoint writes a sync checkpoint value for an owner.
func (db *DB) SetCheckpoint(owner, key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sync_state (owner, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		owner, key, value, now)
	return err
}

// GetCheckpoint reads a sync checkpoint value for an owner. Returns
// ok=false when the checkpoint has never been written.
func (db *DB) GetCheckpoint(owner, key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE owner = ? AND key = ?`,
		owner, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetLastChatRefresh records when the chat list was last synced.
func (db *DB) SetLastChatRefresh(owner string, t time.Time) error {
	return db.SetCheckpoint(owner, chatRefreshKey, t.UTC().Format(time.RFC3339))
}

// LastChatRefresh returns when the chat list was last synced, or
// ok=false when it never was.
func (db *DB) LastChatRefresh(owner string) (time.Time, bool, error) {
	value, ok, err := db.GetCheckpoint(owner, chatRefreshKey)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}
