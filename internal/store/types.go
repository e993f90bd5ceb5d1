package store

import "time"

// Chat is a cached private dialog, scoped by the owning account.
type Chat struct {
	Owner      string
	ChatID     int64
	Name       string
	Username   string
	AccessHash int64
}

// Message is a cached remote message. Timestamp is always UTC, both on
// write and on read; no naive timestamp ever persists.
type Message struct {
	Owner     string
	ChatID    int64
	MsgID     int64
	Sender    string
	Content   string
	Timestamp time.Time
}

// SearchEntry records one username lookup in the search history.
type SearchEntry struct {
	ID         int64
	Owner      string
	Username   string
	SearchedAt time.Time
}

// SyncResult is the outcome of a filtered cache read. DayFullyCovered
// is meaningful only for specific-date filters and reports whether the
// cached rows alone can be trusted as complete for the day.
type SyncResult struct {
	Messages        []Message
	DayFullyCovered bool
	Latest          *time.Time
}
