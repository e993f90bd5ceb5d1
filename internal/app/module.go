// Package app composes the tgsum process: config, lock, store,
// Telegram adapter, sync engine, summarizer and the interactive menu.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mfadaei/tgsum/internal/bus"
	"github.com/mfadaei/tgsum/internal/cli"
	"github.com/mfadaei/tgsum/internal/config"
	"github.com/mfadaei/tgsum/internal/lock"
	"github.com/mfadaei/tgsum/internal/logging"
	"github.com/mfadaei/tgsum/internal/remote"
	"github.com/mfadaei/tgsum/internal/remote/telegram"
	"github.com/mfadaei/tgsum/internal/session"
	"github.com/mfadaei/tgsum/internal/store"
	"github.com/mfadaei/tgsum/internal/summary"
	"github.com/mfadaei/tgsum/internal/syncer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// historyRequestsPerSec paces MTProto history calls under Telegram's
// tolerance; flood waits still back off on top of this.
const historyRequestsPerSec = 1

// Params holds the resolved account configuration passed to the fx module.
type Params struct {
	Account string
	Config  *config.Config
}

// Module returns the fx module for the app, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideAdapter,
			provideSource,
			provideCoordinator,
			provideChatSync,
			provideSummarizer,
			provideUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Account), p.Account)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.Account); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(session.Dir(p.Account))
	if err != nil {
		return nil, err
	}
	logger.Info("account lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.CacheDBPath(p.Account)
	db, err := store.Open(dbPath, store.Options{
		MaxMessagesPerChat: p.Config.Store.MaxMessagesPerChat,
	})
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAdapter(p Params, logger *zap.Logger) *telegram.Adapter {
	return telegram.NewAdapter(
		p.Config.Telegram.APIID,
		p.Config.Telegram.APIHash,
		session.TelegramSessionPath(p.Account),
		p.Config.Telegram.Phone,
		promptLoginCode,
		logger,
	)
}

func provideSource(adapter *telegram.Adapter, logger *zap.Logger) *remote.Source {
	return remote.NewSource(adapter, historyRequestsPerSec, logger)
}

func provideCoordinator(db *store.DB, source *remote.Source, b *bus.Bus, logger *zap.Logger, p Params) *syncer.Coordinator {
	return syncer.New(db, source, b, logger, syncer.Config{BatchSize: p.Config.Store.BatchSize})
}

func provideChatSync(db *store.DB, adapter *telegram.Adapter, b *bus.Bus, logger *zap.Logger) *syncer.ChatSync {
	return syncer.NewChatSync(db, adapter, b, logger)
}

func provideSummarizer(p Params, logger *zap.Logger) *summary.Client {
	return summary.New(summary.Config{
		APIKey:  p.Config.Summary.APIKey,
		Model:   p.Config.Summary.Model,
		BaseURL: p.Config.Summary.BaseURL,
	}, logger)
}

func provideUI(p Params, db *store.DB, coord *syncer.Coordinator, sum *summary.Client, chats *syncer.ChatSync, logger *zap.Logger) (*cli.UI, error) {
	loc, err := p.Config.Location()
	if err != nil {
		return nil, err
	}
	return cli.New(cli.Options{
		In:         os.Stdin,
		Out:        os.Stdout,
		DB:         db,
		Resolver:   coord,
		Summarizer: sum,
		Directory:  chats,
		Logger:     logger,
		Owner:      p.Account,
		Location:   loc,
		ChatMaxAge: p.Config.ChatListMaxAge(),
	}), nil
}

// promptLoginCode reads the Telegram login code from the terminal
// during the auth flow, before the menu takes over stdin.
func promptLoginCode(ctx context.Context) (string, error) {
	fmt.Print("Enter the login code Telegram sent you: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, p Params, adapter *telegram.Adapter, ui *cli.UI, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	uiCtx, cancelUI := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			connectCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()
			if err := adapter.Start(connectCtx); err != nil {
				return fmt.Errorf("connect to telegram: %w", err)
			}
			fmt.Printf("Logged in as %s\n", adapter.Self())

			// Re-seed the peer cache so previously synced chats work
			// without a fresh chat-list fetch.
			if chats, err := db.ListChats(p.Account); err == nil {
				adapter.Prime(chats)
			}

			go func() {
				if err := ui.Run(uiCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("menu loop failed", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancelUI()
			adapter.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("stopped")
			return nil
		},
	})
}
