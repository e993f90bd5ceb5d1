package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mfadaei/tgsum/internal/filter"
)

// InsertMessages writes a batch of messages for one (owner, chat),
// skipping rows whose (owner, chat_id, msg_id) already exists, and
// returns how many rows were actually inserted. After the inserts it
// evicts the oldest rows beyond the retention cap. The whole batch is
// one transaction: on any failure other than key duplication nothing
// is committed.
func (db *DB) InsertMessages(owner string, chatID int64, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	inserted := 0
	for _, m := range msgs {
		res, err := tx.Exec(`
			INSERT INTO messages (owner, chat_id, msg_id, sender, content, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(owner, chat_id, msg_id) DO NOTHING`,
			owner, chatID, m.MsgID, m.Sender, m.Content, m.Timestamp.UTC().UnixMilli(), now)
		if err != nil {
			return 0, fmt.Errorf("insert message %d: %w", m.MsgID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	// Retention: keep only the newest rows for this chat.
	if _, err := tx.Exec(`
		DELETE FROM messages
		WHERE owner = ? AND chat_id = ? AND id NOT IN (
			SELECT id FROM messages
			WHERE owner = ? AND chat_id = ?
			ORDER BY timestamp DESC, msg_id DESC
			LIMIT ?
		)`, owner, chatID, owner, chatID, db.retention); err != nil {
		return 0, fmt.Errorf("evict beyond retention: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return inserted, nil
}

// ReadRecent returns up to n cached messages for a chat, newest first.
func (db *DB) ReadRecent(owner string, chatID int64, n int) ([]Message, error) {
	rows, err := db.Query(`
		SELECT owner, chat_id, msg_id, sender, content, timestamp
		FROM messages
		WHERE owner = ? AND chat_id = ?
		ORDER BY timestamp DESC, msg_id DESC
		LIMIT ?`, owner, chatID, n)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// ReadWindow returns cached messages whose timestamp falls in [w.Start,
// w.End), newest first.
func (db *DB) ReadWindow(owner string, chatID int64, w filter.Window) ([]Message, error) {
	rows, err := db.Query(`
		SELECT owner, chat_id, msg_id, sender, content, timestamp
		FROM messages
		WHERE owner = ? AND chat_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC, msg_id DESC`,
		owner, chatID, w.Start.UTC().UnixMilli(), w.End.UTC().UnixMilli())
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// ReadFilter dispatches a cache read by filter shape. For RecentCount
// the window is ignored; for SpecificDate the result carries the
// day-coverage verdict and the newest cached timestamp in the window.
func (db *DB) ReadFilter(owner string, chatID int64, f filter.Filter, w filter.Window) (*SyncResult, error) {
	switch f.Kind {
	case filter.RecentCount:
		msgs, err := db.ReadRecent(owner, chatID, f.Count)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Messages: msgs}, nil
	case filter.RecentDays:
		msgs, err := db.ReadWindow(owner, chatID, w)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Messages: msgs}, nil
	case filter.SpecificDate:
		msgs, err := db.ReadWindow(owner, chatID, w)
		if err != nil {
			return nil, err
		}
		res := &SyncResult{
			Messages:        msgs,
			DayFullyCovered: dayCovered(msgs, w),
		}
		if len(msgs) > 0 {
			latest := msgs[0].Timestamp
			res.Latest = &latest
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: kind %v", filter.ErrInvalidFilter, f.Kind)
}

// CountMessages returns how many messages are cached for a chat.
func (db *DB) CountMessages(owner string, chatID int64) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE owner = ? AND chat_id = ?`,
		owner, chatID).Scan(&n)
	return n, err
}

// OldestMessageID returns the smallest cached remote message id for a
// chat, or 0 when the chat has no cached messages. Used as the
// pagination offset when extending the cache backwards.
func (db *DB) OldestMessageID(owner string, chatID int64) (int64, error) {
	var id sql.NullInt64
	err := db.QueryRow(`SELECT MIN(msg_id) FROM messages WHERE owner = ? AND chat_id = ?`,
		owner, chatID).Scan(&id)
	if err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

// DeleteRecent removes the newest n messages for a chat.
func (db *DB) DeleteRecent(owner string, chatID int64, n int) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM messages
		WHERE id IN (
			SELECT id FROM messages
			WHERE owner = ? AND chat_id = ?
			ORDER BY timestamp DESC, msg_id DESC
			LIMIT ?
		)`, owner, chatID, n)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteWindow removes messages whose timestamp falls in [w.Start, w.End).
func (db *DB) DeleteWindow(owner string, chatID int64, w filter.Window) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM messages
		WHERE owner = ? AND chat_id = ? AND timestamp >= ? AND timestamp < ?`,
		owner, chatID, w.Start.UTC().UnixMilli(), w.End.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll removes every cached message for a chat.
func (db *DB) DeleteAll(owner string, chatID int64) (int64, error) {
	res, err := db.Exec(`DELETE FROM messages WHERE owner = ? AND chat_id = ?`, owner, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		var sender, content sql.NullString
		var ts int64
		if err := rows.Scan(&m.Owner, &m.ChatID, &m.MsgID, &sender, &content, &ts); err != nil {
			return nil, err
		}
		m.Sender = sender.String
		m.Content = content.String
		m.Timestamp = time.UnixMilli(ts).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
