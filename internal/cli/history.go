package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mfadaei/tgsum/internal/filter"
	"github.com/mfadaei/tgsum/internal/store"
)

func (u *UI) printHistory(entries []store.SearchEntry) {
	fmt.Fprintln(u.out, "\nSearch History:")
	for i, e := range entries {
		fmt.Fprintf(u.out, "%d. %s (Searched at: %s)\n",
			i+1, e.Username, e.SearchedAt.In(u.loc).Format("2006-01-02 15:04:05"))
	}
}

// pickHistoryEntry lists the history and returns the chosen entry, or
// nil when there is none.
func (u *UI) pickHistoryEntry(prompt string) (*store.SearchEntry, error) {
	entries, err := u.db.ListSearchHistory(u.owner)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		fmt.Fprintln(u.out, "No search history available.")
		return nil, nil
	}
	u.printHistory(entries)
	idx, err := u.promptRange(prompt, 1, len(entries))
	if err != nil {
		return nil, err
	}
	return &entries[idx-1], nil
}

func (u *UI) searchFromHistory(ctx context.Context) error {
	entry, err := u.pickHistoryEntry("\nSelect a username number (e.g., 1): ")
	if err != nil || entry == nil {
		return err
	}
	chat, err := u.findByUsername(ctx, entry.Username)
	if err != nil {
		return err
	}
	if chat == nil {
		fmt.Fprintf(u.out, "No private chat found for %s.\n", entry.Username)
		return nil
	}
	fmt.Fprintf(u.out, "\nFound chat: %s (ID: %d)\n", chat.Name, chat.ChatID)
	return u.processChat(ctx, *chat)
}

func (u *UI) manageHistory(ctx context.Context) error {
	fmt.Fprint(u.out, "\n=== Manage Search History ===\n")
	fmt.Fprint(u.out, "1. Delete a specific search entry\n")
	fmt.Fprint(u.out, "2. Delete all search history\n")
	fmt.Fprint(u.out, "3. Delete messages for a chat\n")
	fmt.Fprint(u.out, "4. Back to main menu\n")
	choice, err := u.promptRange("Enter choice (1-4): ", 1, 4)
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		return u.deleteHistoryEntry()
	case 2:
		return u.clearHistory()
	case 3:
		return u.deleteChatMessages(ctx)
	}
	return nil
}

func (u *UI) deleteHistoryEntry() error {
	entry, err := u.pickHistoryEntry("\nSelect a search entry to delete (e.g., 1): ")
	if err != nil || entry == nil {
		return err
	}
	if err := u.db.DeleteSearchEntry(entry.ID); err != nil {
		return err
	}
	fmt.Fprintf(u.out, "Search entry for %s deleted successfully.\n", entry.Username)
	return nil
}

func (u *UI) clearHistory() error {
	entries, err := u.db.ListSearchHistory(u.owner)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(u.out, "No search history to delete.")
		return nil
	}
	ok, err := u.confirm("Are you sure you want to delete all search history? This action cannot be undone.")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(u.out, "Deletion canceled.")
		return nil
	}
	if err := u.db.ClearSearchHistory(u.owner); err != nil {
		return err
	}
	fmt.Fprintln(u.out, "All search history deleted successfully.")
	return nil
}

func (u *UI) deleteChatMessages(ctx context.Context) error {
	entry, err := u.pickHistoryEntry("\nSelect a chat to delete messages (e.g., 1): ")
	if err != nil || entry == nil {
		return err
	}
	chat, err := u.findByUsername(ctx, entry.Username)
	if err != nil {
		return err
	}
	if chat == nil {
		fmt.Fprintf(u.out, "No chat found for username %s.\n", entry.Username)
		return nil
	}
	fmt.Fprintf(u.out, "\nSelected chat: %s (ID: %d)\n", chat.Name, chat.ChatID)

	fmt.Fprint(u.out, "\nDelete Messages:\n")
	fmt.Fprint(u.out, "1. Delete a specific number of recent messages\n")
	fmt.Fprint(u.out, "2. Delete messages from a specific date\n")
	fmt.Fprint(u.out, "3. Delete all messages\n")
	fmt.Fprint(u.out, "4. Cancel\n")
	choice, err := u.promptRange("Enter choice (1-4): ", 1, 4)
	if err != nil {
		return err
	}

	var deleted int64
	switch choice {
	case 1:
		n, err := u.promptPositive("Enter number of recent messages to delete (e.g., 10): ")
		if err != nil {
			return err
		}
		ok, err := u.confirm(fmt.Sprintf("Confirm deletion of the last %d messages for %s?", n, chat.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(u.out, "Deletion canceled.")
			return nil
		}
		deleted, err = u.db.DeleteRecent(u.owner, chat.ChatID, n)
		if err != nil {
			return err
		}
	case 2:
		f, err := u.promptDate("Enter date to delete messages from (e.g., 10 March 2025): ")
		if err != nil {
			return err
		}
		ok, err := u.confirm(fmt.Sprintf("Confirm deletion of messages from %s for %s?", f.Date.Format(filter.DateLayout), chat.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(u.out, "Deletion canceled.")
			return nil
		}
		w, _, err := filter.Resolve(f, u.loc, time.Now())
		if err != nil {
			return err
		}
		deleted, err = u.db.DeleteWindow(u.owner, chat.ChatID, w)
		if err != nil {
			return err
		}
	case 3:
		ok, err := u.confirm(fmt.Sprintf("Confirm deletion of all messages for %s?", chat.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(u.out, "Deletion canceled.")
			return nil
		}
		deleted, err = u.db.DeleteAll(u.owner, chat.ChatID)
		if err != nil {
			return err
		}
	case 4:
		fmt.Fprintln(u.out, "Deletion canceled.")
		return nil
	}

	if deleted > 0 {
		fmt.Fprintf(u.out, "Deleted %d messages for %s.\n", deleted, chat.Name)
	} else {
		fmt.Fprintf(u.out, "No matching messages found for %s.\n", chat.Name)
	}
	return nil
}
