package store

import (
	"strings"
	"time"
)

// AddSearchEntry records a username lookup in the search history.
func (db *DB) AddSearchEntry(owner, username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	_, err := db.Exec(`
		INSERT INTO search_history (owner, username, searched_at)
		VALUES (?, ?, ?)`,
		owner, username, time.Now().UTC().UnixMilli())
	return err
}

// ListSearchHistory returns the owner's search history, newest first.
func (db *DB) ListSearchHistory(owner string) ([]SearchEntry, error) {
	rows, err := db.Query(`
		SELECT id, owner, username, searched_at
		FROM search_history
		WHERE owner = ?
		ORDER BY searched_at DESC, id DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []SearchEntry
	for rows.Next() {
		var e SearchEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Owner, &e.Username, &ts); err != nil {
			return nil, err
		}
		e.SearchedAt = time.UnixMilli(ts).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteSearchEntry removes one search history entry by id.
func (db *DB) DeleteSearchEntry(id int64) error {
	_, err := db.Exec(`DELETE FROM search_history WHERE id = ?`, id)
	return err
}

// ClearSearchHistory removes the owner's entire search history.
func (db *DB) ClearSearchHistory(owner string) error {
	_, err := db.Exec(`DELETE FROM search_history WHERE owner = ?`, owner)
	return err
}
