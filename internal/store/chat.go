package store

import (
	"database/sql"
	"strings"
	"time"
)

// UpsertChat inserts or updates a chat record.
func (db *DB) UpsertChat(c *Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (owner, chat_id, name, username, access_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, chat_id) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			access_hash = excluded.access_hash,
			updated_at = excluded.updated_at`,
		c.Owner, c.ChatID, c.Name, c.Username, c.AccessHash, now)
	return err
}

// ListChats returns all cached chats for an owner, sorted by name.
func (db *DB) ListChats(owner string) ([]Chat, error) {
	rows, err := db.Query(`
		SELECT owner, chat_id, name, COALESCE(username, ''), access_hash
		FROM chats
		WHERE owner = ?
		ORDER BY name COLLATE NOCASE`, owner)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.Owner, &c.ChatID, &c.Name, &c.Username, &c.AccessHash); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat, or nil when not cached.
func (db *DB) GetChat(owner string, chatID int64) (*Chat, error) {
	var c Chat
	err := db.QueryRow(`
		SELECT owner, chat_id, name, COALESCE(username, ''), access_hash
		FROM chats
		WHERE owner = ? AND chat_id = ?`, owner, chatID).
		Scan(&c.Owner, &c.ChatID, &c.Name, &c.Username, &c.AccessHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindChatByUsername looks a chat up by username, case-insensitively
// and with any leading "@" stripped. Returns nil when not found.
func (db *DB) FindChatByUsername(owner, username string) (*Chat, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	var c Chat
	err := db.QueryRow(`
		SELECT owner, chat_id, name, COALESCE(username, ''), access_hash
		FROM chats
		WHERE owner = ? AND username IS NOT NULL AND LOWER(username) = LOWER(?)`,
		owner, username).
		Scan(&c.Owner, &c.ChatID, &c.Name, &c.Username, &c.AccessHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
