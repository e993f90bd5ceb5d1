package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfadaei/tgsum/internal/filter"
)

const testOwner = "+989123456789"

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func msgAt(id int64, ts time.Time) Message {
	return Message{
		Owner:     testOwner,
		ChatID:    42,
		MsgID:     id,
		Sender:    "@alice",
		Content:   fmt.Sprintf("message %d", id),
		Timestamp: ts.UTC(),
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestInsertMessagesDedup(t *testing.T) {
	db := testDB(t)
	ts := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	n, err := db.InsertMessages(testOwner, 42, []Message{msgAt(1, ts), msgAt(2, ts.Add(time.Minute))})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	// Re-inserting the same ids is a counted no-op, not an error.
	n, err = db.InsertMessages(testOwner, 42, []Message{msgAt(1, ts), msgAt(3, ts.Add(2*time.Minute))})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1 (one duplicate skipped)", n)
	}

	count, err := db.CountMessages(testOwner, 42)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestInsertMessagesScopedByOwner(t *testing.T) {
	db := testDB(t)
	ts := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	if _, err := db.InsertMessages(testOwner, 42, []Message{msgAt(1, ts)}); err != nil {
		t.Fatal(err)
	}
	// Same chat and msg id under a different owner is a distinct row.
	other := msgAt(1, ts)
	other.Owner = "+15550001111"
	if n, err := db.InsertMessages(other.Owner, 42, []Message{other}); err != nil || n != 1 {
		t.Fatalf("inserted = %d, err = %v, want 1, nil", n, err)
	}
}

func TestRetentionEvictsOldestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, Options{MaxMessagesPerChat: 5000})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs := make([]Message, 0, 5100)
	for i := 0; i < 5100; i++ {
		msgs = append(msgs, msgAt(int64(i+1), base.Add(time.Duration(i)*time.Minute)))
	}
	if _, err := db.InsertMessages(testOwner, 42, msgs); err != nil {
		t.Fatal(err)
	}

	count, err := db.CountMessages(testOwner, 42)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5000 {
		t.Fatalf("count = %d, want 5000 after eviction", count)
	}

	// The 100 evicted rows must be the oldest ones: ids 1..100 gone.
	oldest, err := db.OldestMessageID(testOwner, 42)
	if err != nil {
		t.Fatal(err)
	}
	if oldest != 101 {
		t.Errorf("oldest surviving msg_id = %d, want 101", oldest)
	}
}

func TestReadRecentOrdering(t *testing.T) {
	db := testDB(t)
	ts := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	// Two messages share a timestamp; the higher id wins the tie.
	msgs := []Message{msgAt(5, ts), msgAt(7, ts), msgAt(6, ts.Add(time.Hour)), msgAt(1, ts.Add(-time.Hour))}
	if _, err := db.InsertMessages(testOwner, 42, msgs); err != nil {
		t.Fatal(err)
	}

	got, err := db.ReadRecent(testOwner, 42, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []int64{6, 7, 5}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d messages, want %d", len(got), len(wantIDs))
	}
	for i, want := range wantIDs {
		if got[i].MsgID != want {
			t.Errorf("position %d: msg_id = %d, want %d", i, got[i].MsgID, want)
		}
	}
}

func TestTimestampsRoundTripUTC(t *testing.T) {
	db := testDB(t)
	tehran := time.FixedZone("UTC+3:30", 3*3600+30*60)
	local := time.Date(2025, 3, 10, 0, 5, 0, 0, tehran)

	if _, err := db.InsertMessages(testOwner, 42, []Message{msgAt(1, local)}); err != nil {
		t.Fatal(err)
	}
	got, err := db.ReadRecent(testOwner, 42, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 3, 9, 20, 35, 0, 0, time.UTC)
	if !got[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, want)
	}
	if got[0].Timestamp.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got[0].Timestamp.Location())
	}
}

func TestReadWindow(t *testing.T) {
	db := testDB(t)
	start := time.Date(2025, 3, 9, 20, 30, 0, 0, time.UTC)
	w := filter.Window{Start: start, End: start.Add(24 * time.Hour)}

	msgs := []Message{
		msgAt(1, start.Add(-time.Second)),     // before window
		msgAt(2, start),                       // inclusive start
		msgAt(3, start.Add(12*time.Hour)),     // inside
		msgAt(4, start.Add(24*time.Hour)),     // exclusive end
		msgAt(5, start.Add(25*time.Hour)),     // after
		msgAt(6, start.Add(24*time.Hour-time.Second)), // last instant inside
	}
	if _, err := db.InsertMessages(testOwner, 42, msgs); err != nil {
		t.Fatal(err)
	}

	got, err := db.ReadWindow(testOwner, 42, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	if got[0].MsgID != 6 || got[1].MsgID != 3 || got[2].MsgID != 2 {
		t.Errorf("ids = %d,%d,%d, want 6,3,2", got[0].MsgID, got[1].MsgID, got[2].MsgID)
	}
}

func TestDayCovered(t *testing.T) {
	start := time.Date(2025, 3, 9, 20, 30, 0, 0, time.UTC)
	w := filter.Window{Start: start, End: start.Add(24 * time.Hour)}

	// Dense chatter every 30 minutes across the whole day.
	var dense []Message
	for i := 0; ; i++ {
		ts := start.Add(time.Duration(i) * 30 * time.Minute)
		if !ts.Before(w.End) {
			break
		}
		dense = append([]Message{msgAt(int64(i+1), ts)}, dense...) // newest first
	}
	if !dayCovered(dense, w) {
		t.Error("dense day should be covered")
	}

	// A 2h silent hole in the middle breaks coverage.
	var holed []Message
	for _, m := range dense {
		mid := start.Add(10 * time.Hour)
		if m.Timestamp.After(mid) && m.Timestamp.Before(mid.Add(2*time.Hour)) {
			continue
		}
		holed = append(holed, m)
	}
	if dayCovered(holed, w) {
		t.Error("day with a 2h gap should not be covered")
	}

	// First message 90 minutes after window start breaks coverage.
	late := dense[:len(dense)-3]
	if dayCovered(late, w) {
		t.Error("day starting 90min late should not be covered")
	}

	// Messages stopping 2h before window end break coverage.
	early := dense[4:]
	if dayCovered(early, w) {
		t.Error("day ending early should not be covered")
	}

	// No messages at all: not covered.
	if dayCovered(nil, w) {
		t.Error("empty day should not be covered")
	}
}

func TestReadFilterSpecificDate(t *testing.T) {
	db := testDB(t)
	start := time.Date(2025, 3, 9, 20, 30, 0, 0, time.UTC)
	w := filter.Window{Start: start, End: start.Add(24 * time.Hour)}
	f := filter.Filter{Kind: filter.SpecificDate, Date: start}

	var msgs []Message
	for i := 0; i < 48; i++ {
		msgs = append(msgs, msgAt(int64(i+1), start.Add(time.Duration(i)*30*time.Minute)))
	}
	if _, err := db.InsertMessages(testOwner, 42, msgs); err != nil {
		t.Fatal(err)
	}

	res, err := db.ReadFilter(testOwner, 42, f, w)
	if err != nil {
		t.Fatal(err)
	}
	if !res.DayFullyCovered {
		t.Error("expected day to be covered")
	}
	if res.Latest == nil || !res.Latest.Equal(start.Add(47*30*time.Minute)) {
		t.Errorf("latest = %v", res.Latest)
	}
}

func TestDeleteOperations(t *testing.T) {
	db := testDB(t)
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	var msgs []Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msgAt(int64(i+1), base.Add(time.Duration(i)*time.Hour)))
	}
	if _, err := db.InsertMessages(testOwner, 42, msgs); err != nil {
		t.Fatal(err)
	}

	// Delete the 3 newest.
	n, err := db.DeleteRecent(testOwner, 42, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	got, _ := db.ReadRecent(testOwner, 42, 100)
	if len(got) != 7 || got[0].MsgID != 7 {
		t.Errorf("after DeleteRecent: %d left, newest id %d, want 7 left, newest 7", len(got), got[0].MsgID)
	}

	// Delete a window covering the first two hours.
	n, err = db.DeleteWindow(testOwner, 42, filter.Window{Start: base, End: base.Add(2 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	// Delete everything left.
	n, err = db.DeleteAll(testOwner, 42)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("deleted = %d, want 5", n)
	}
}

func TestChatUpsertAndLookup(t *testing.T) {
	db := testDB(t)

	chat := &Chat{Owner: testOwner, ChatID: 42, Name: "Alice", Username: "alice_w", AccessHash: 99}
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}
	chat.Name = "Alice Updated"
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(testOwner)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 || chats[0].Name != "Alice Updated" {
		t.Errorf("got %+v, want one chat named Alice Updated", chats)
	}

	// Username lookup is case-insensitive and tolerates a leading @.
	c, err := db.FindChatByUsername(testOwner, "@Alice_W")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.ChatID != 42 {
		t.Errorf("got %v, want chat 42", c)
	}

	c, err = db.FindChatByUsername(testOwner, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Error("expected nil for unknown username")
	}
}

func TestSearchHistory(t *testing.T) {
	db := testDB(t)

	if err := db.AddSearchEntry(testOwner, "@alice"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddSearchEntry(testOwner, "bob"); err != nil {
		t.Fatal(err)
	}

	entries, err := db.ListSearchHistory(testOwner)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first; the @ is stripped on write.
	if entries[0].Username != "bob" || entries[1].Username != "alice" {
		t.Errorf("entries = %q, %q, want bob, alice", entries[0].Username, entries[1].Username)
	}

	if err := db.DeleteSearchEntry(entries[0].ID); err != nil {
		t.Fatal(err)
	}
	entries, _ = db.ListSearchHistory(testOwner)
	if len(entries) != 1 {
		t.Fatalf("got %d entries after delete, want 1", len(entries))
	}

	if err := db.ClearSearchHistory(testOwner); err != nil {
		t.Fatal(err)
	}
	entries, _ = db.ListSearchHistory(testOwner)
	if len(entries) != 0 {
		t.Errorf("got %d entries after clear, want 0", len(entries))
	}
}

func TestCheckpoints(t *testing.T) {
	db := testDB(t)

	_, ok, err := db.LastChatRefresh(testOwner)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no checkpoint on fresh db")
	}

	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := db.SetLastChatRefresh(testOwner, at); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.LastChatRefresh(testOwner)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !got.Equal(at) {
		t.Errorf("got %v ok=%v, want %v", got, ok, at)
	}
}
