package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/mfadaei/tgsum/internal/bus"
	"github.com/mfadaei/tgsum/internal/store"
	"go.uber.org/zap"
)

// ChatLister is the remote chat enumeration primitive.
type ChatLister interface {
	FetchChats(ctx context.Context) ([]store.Chat, error)
}

// ChatSync keeps the cached chat list fresh. It is the simple one-shot
// cousin of the message coordinator: no filters, no windows, just an
// upsert sweep with a refresh checkpoint.
type ChatSync struct {
	db     *store.DB
	lister ChatLister
	bus    *bus.Bus
	logger *zap.Logger
}

// NewChatSync creates a ChatSync.
func NewChatSync(db *store.DB, lister ChatLister, b *bus.Bus, logger *zap.Logger) *ChatSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatSync{db: db, lister: lister, bus: b, logger: logger}
}

// Refresh fetches the remote chat list, upserts it into the cache and
// records the refresh checkpoint. Returns the refreshed cached list.
func (s *ChatSync) Refresh(ctx context.Context, owner string) ([]store.Chat, error) {
	chats, err := s.lister.FetchChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chats: %w", err)
	}
	for i := range chats {
		chats[i].Owner = owner
		if err := s.db.UpsertChat(&chats[i]); err != nil {
			return nil, fmt.Errorf("upsert chat %d: %w", chats[i].ChatID, err)
		}
	}
	if err := s.db.SetLastChatRefresh(owner, time.Now()); err != nil {
		return nil, fmt.Errorf("set refresh checkpoint: %w", err)
	}
	s.logger.Info("chat list refreshed", zap.Int("chats", len(chats)))
	if s.bus != nil {
		s.bus.Publish(bus.Event{Kind: "chats.refreshed", Payload: len(chats)})
	}
	return s.db.ListChats(owner)
}

// List returns the cached chat list, refreshing it first when the
// cache is empty or older than maxAge (zero maxAge never refreshes a
// non-empty cache).
func (s *ChatSync) List(ctx context.Context, owner string, maxAge time.Duration) ([]store.Chat, error) {
	cached, err := s.db.ListChats(owner)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		if maxAge <= 0 {
			return cached, nil
		}
		last, ok, err := s.db.LastChatRefresh(owner)
		if err != nil {
			return nil, err
		}
		if ok && time.Since(last) < maxAge {
			return cached, nil
		}
	}
	refreshed, err := s.Refresh(ctx, owner)
	if err != nil {
		if len(cached) > 0 {
			// Stale beats nothing when the remote is down.
			s.logger.Warn("chat refresh failed, serving cached list", zap.Error(err))
			return cached, nil
		}
		return nil, err
	}
	return refreshed, nil
}
