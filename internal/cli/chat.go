package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mfadaei/tgsum/internal/filter"
	"github.com/mfadaei/tgsum/internal/store"
	"github.com/mfadaei/tgsum/internal/summary"
	"github.com/mfadaei/tgsum/internal/syncer"
	"go.uber.org/zap"
)

func (u *UI) listChats(ctx context.Context) error {
	chats, err := u.dir.List(ctx, u.owner, u.maxAge)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Fprintln(u.out, "No private chats available.")
		return nil
	}

	fmt.Fprintln(u.out, "\nYour private chats:")
	for i, c := range chats {
		fmt.Fprintf(u.out, "%d. %s (ID: %d)\n", i+1, c.Name, c.ChatID)
	}
	idx, err := u.promptRange("\nSelect a chat number (e.g., 1): ", 1, len(chats))
	if err != nil {
		return err
	}
	chat := chats[idx-1]
	fmt.Fprintf(u.out, "\nSelected chat: %s (ID: %d)\n", chat.Name, chat.ChatID)
	if chat.Username != "" {
		if err := u.db.AddSearchEntry(u.owner, chat.Username); err != nil {
			u.logger.Warn("record search entry", zap.Error(err))
		}
	}
	return u.processChat(ctx, chat)
}

func (u *UI) searchByUsername(ctx context.Context) error {
	var username string
	for username == "" {
		line, err := u.readLine("\nEnter username (e.g., @username): ")
		if err != nil {
			return err
		}
		if line == "" {
			fmt.Fprintln(u.out, "Username cannot be empty.")
			continue
		}
		username = line
	}

	chat, err := u.findByUsername(ctx, username)
	if err != nil {
		return err
	}
	if chat == nil {
		fmt.Fprintf(u.out, "No private chat found for %s.\n", username)
		return nil
	}
	fmt.Fprintf(u.out, "\nFound chat: %s (ID: %d)\n", chat.Name, chat.ChatID)
	if err := u.db.AddSearchEntry(u.owner, username); err != nil {
		u.logger.Warn("record search entry", zap.Error(err))
	}
	return u.processChat(ctx, *chat)
}

// findByUsername checks the cached chat list and falls back to one
// refresh before giving up on the name.
func (u *UI) findByUsername(ctx context.Context, username string) (*store.Chat, error) {
	chat, err := u.db.FindChatByUsername(u.owner, username)
	if err != nil || chat != nil {
		return chat, err
	}
	if _, err := u.dir.Refresh(ctx, u.owner); err != nil {
		return nil, err
	}
	return u.db.FindChatByUsername(u.owner, username)
}

// promptFilter asks which slice of history to pull.
func (u *UI) promptFilter() (filter.Filter, error) {
	fmt.Fprint(u.out, "\nSelect message filter:\n")
	fmt.Fprint(u.out, "1. Recent messages (e.g., last 10 messages)\n")
	fmt.Fprint(u.out, "2. Messages from recent days (e.g., last 7 days)\n")
	fmt.Fprint(u.out, "3. Messages from a specific date (e.g., 10 March 2025)\n")
	choice, err := u.promptRange("Enter choice (1-3): ", 1, 3)
	if err != nil {
		return filter.Filter{}, err
	}

	switch choice {
	case 1:
		n, err := u.promptPositive("Enter number of recent messages (e.g., 10): ")
		if err != nil {
			return filter.Filter{}, err
		}
		return filter.NewRecentCount(n)
	case 2:
		n, err := u.promptPositive("Enter number of recent days (e.g., 7): ")
		if err != nil {
			return filter.Filter{}, err
		}
		return filter.NewRecentDays(n)
	default:
		return u.promptDate("Enter date (e.g., 10 March 2025): ")
	}
}

// processChat pulls the selected slice of the chat, prints it in the
// user's zone and appends the generated digest.
func (u *UI) processChat(ctx context.Context, chat store.Chat) error {
	f, err := u.promptFilter()
	if err != nil {
		return err
	}

	fmt.Fprintf(u.out, "\nFetching messages for %s...\n", chat.Name)
	progress := func(pct int) {
		fmt.Fprintf(u.out, "\rSyncing... %3d%%", pct)
	}
	res, err := u.res.Resolve(ctx, u.owner, chat.ChatID, f, u.loc, progress)
	fmt.Fprintln(u.out)
	switch {
	case errors.Is(err, syncer.ErrCancelled):
		fmt.Fprintln(u.out, "Sync cancelled; showing what was fetched so far.")
	case err != nil:
		return err
	}

	if res == nil || len(res.Messages) == 0 {
		fmt.Fprintf(u.out, "No messages found for %s.\n", describeFilter(f))
		return nil
	}
	if res.Partial {
		fmt.Fprintln(u.out, "Note: the remote gave up mid-sync; this list may be incomplete.")
	}

	fmt.Fprintln(u.out, "\n=== Messages ===")
	for i, m := range res.Messages {
		local := m.Timestamp.In(u.loc)
		fmt.Fprintf(u.out, "%d. %s: %s (ID: %d, %s)\n",
			i+1, m.Sender, m.Content, m.MsgID, local.Format("2006-01-02 15:04:05 MST"))
	}

	texts := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		texts = append(texts, m.Content)
	}
	digest, err := u.sum.Summarize(ctx, texts)
	if err != nil {
		if errors.Is(err, summary.ErrNoMessages) {
			return nil
		}
		fmt.Fprintf(u.out, "Summary unavailable: %v\n", err)
		return nil
	}
	fmt.Fprintf(u.out, "\n=== Summary ===\n%s\n", digest)
	return nil
}

func describeFilter(f filter.Filter) string {
	switch f.Kind {
	case filter.RecentCount:
		return fmt.Sprintf("the last %d messages", f.Count)
	case filter.RecentDays:
		return fmt.Sprintf("the last %d days", f.Count)
	case filter.SpecificDate:
		return f.Date.Format(filter.DateLayout)
	}
	return strings.ToLower(f.Kind.String())
}
