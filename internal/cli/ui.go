// Package cli is the interactive line-oriented menu: list chats, look
// up a counterparty, pull their messages through the sync engine and
// print them with a generated digest.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mfadaei/tgsum/internal/filter"
	"github.com/mfadaei/tgsum/internal/store"
	"github.com/mfadaei/tgsum/internal/syncer"
	"go.uber.org/zap"
)

// Resolver reconciles the cache for one chat and returns the messages
// matching the filter.
type Resolver interface {
	Resolve(ctx context.Context, owner string, chatID int64, f filter.Filter, loc *time.Location, progress syncer.Progress) (*syncer.Result, error)
}

// Summarizer digests message texts into one paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// ChatDirectory serves the cached chat list.
type ChatDirectory interface {
	List(ctx context.Context, owner string, maxAge time.Duration) ([]store.Chat, error)
	Refresh(ctx context.Context, owner string) ([]store.Chat, error)
}

// Options wires the UI's collaborators.
type Options struct {
	In         io.Reader
	Out        io.Writer
	DB         *store.DB
	Resolver   Resolver
	Summarizer Summarizer
	Directory  ChatDirectory
	Logger     *zap.Logger

	Owner    string
	Location *time.Location
	// ChatMaxAge bounds how stale the cached chat list may be before
	// a menu visit refreshes it.
	ChatMaxAge time.Duration
}

// UI drives the interactive session.
type UI struct {
	in     *bufio.Scanner
	out    io.Writer
	db     *store.DB
	res    Resolver
	sum    Summarizer
	dir    ChatDirectory
	logger *zap.Logger
	owner  string
	loc    *time.Location
	maxAge time.Duration
}

// New creates a UI.
func New(opts Options) *UI {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UI{
		in:     bufio.NewScanner(opts.In),
		out:    opts.Out,
		db:     opts.DB,
		res:    opts.Resolver,
		sum:    opts.Summarizer,
		dir:    opts.Directory,
		logger: logger,
		owner:  opts.Owner,
		loc:    loc,
		maxAge: opts.ChatMaxAge,
	}
}

// Run loops over the main menu until the user exits, input ends or ctx
// is cancelled. Operation errors are printed, not fatal.
func (u *UI) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(u.out, "\n=== Main Menu ===\n")
		fmt.Fprint(u.out, "1. List private chats\n")
		fmt.Fprint(u.out, "2. Search by username\n")
		fmt.Fprint(u.out, "3. View search history\n")
		fmt.Fprint(u.out, "4. Manage search history\n")
		fmt.Fprint(u.out, "5. Refresh chat list\n")
		fmt.Fprint(u.out, "6. Exit\n")

		choice, err := u.promptRange("Enter choice (1-6): ", 1, 6)
		if err != nil {
			return exitErr(err)
		}

		switch choice {
		case 1:
			err = u.listChats(ctx)
		case 2:
			err = u.searchByUsername(ctx)
		case 3:
			err = u.searchFromHistory(ctx)
		case 4:
			err = u.manageHistory(ctx)
		case 5:
			err = u.refreshChats(ctx)
		case 6:
			return nil
		}
		if err != nil {
			if isExit(err) {
				return exitErr(err)
			}
			u.logger.Warn("menu operation failed", zap.Error(err))
			fmt.Fprintf(u.out, "Error: %v\n", err)
		}
	}
}

func (u *UI) refreshChats(ctx context.Context) error {
	fmt.Fprintln(u.out, "Refreshing chat list...")
	chats, err := u.dir.Refresh(ctx, u.owner)
	if err != nil {
		return err
	}
	fmt.Fprintf(u.out, "Chat list refreshed: %d private chats.\n", len(chats))
	return nil
}

// isExit reports errors that should end the whole session rather than
// bounce back to the menu.
func isExit(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

// exitErr maps end-of-input to a clean exit.
func exitErr(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
