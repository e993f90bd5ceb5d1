// Package telegram implements remote.Client on top of the gotd MTProto
// client. It owns the session, the auth flow and the peer cache; all
// rate-limit and normalization policy lives one level up in remote.Source.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/mfadaei/tgsum/internal/remote"
	"github.com/mfadaei/tgsum/internal/store"
	"go.uber.org/zap"
)

// CodePrompt asks the user for the login code Telegram sent them.
type CodePrompt func(ctx context.Context) (string, error)

// Adapter wraps the gotd client and manages the Telegram connection.
type Adapter struct {
	client *telegram.Client
	api    *tg.Client
	logger *zap.Logger

	phone  string
	code   CodePrompt
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	self  *tg.User
	peers map[int64]*tg.InputPeerUser
}

// NewAdapter creates a Telegram adapter with a file-backed session.
func NewAdapter(apiID int, apiHash, sessionPath, phone string, code CodePrompt, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: sessionPath},
		Logger:         logger.Named("mtproto"),
	})
	return &Adapter{
		client: client,
		logger: logger,
		phone:  phone,
		code:   code,
		done:   make(chan struct{}),
		peers:  make(map[int64]*tg.InputPeerUser),
	}
}

// Start connects to Telegram in the background, runs the auth flow if
// the saved session is not authorized, and blocks until the connection
// is ready (or failed). ctx bounds only the wait for readiness; the
// connection itself lives until Stop.
func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	ready := make(chan error, 1)

	go func() {
		defer close(a.done)
		err := a.client.Run(runCtx, func(ctx context.Context) error {
			flow := auth.NewFlow(
				auth.Constant(a.phone, "", auth.CodeAuthenticatorFunc(
					func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
						return a.code(ctx)
					})),
				auth.SendCodeOptions{},
			)
			if err := a.client.Auth().IfNecessary(ctx, flow); err != nil {
				return fmt.Errorf("auth: %w", err)
			}

			self, err := a.client.Self(ctx)
			if err != nil {
				return fmt.Errorf("get self: %w", err)
			}
			a.mu.Lock()
			a.self = self
			a.api = a.client.API()
			a.mu.Unlock()

			a.logger.Info("connected to Telegram",
				zap.Int64("user_id", self.ID),
				zap.String("username", self.Username))
			ready <- nil
			<-ctx.Done()
			return ctx.Err()
		})
		if err != nil && runCtx.Err() == nil {
			select {
			case ready <- err:
			default:
				a.logger.Error("telegram connection lost", zap.Error(err))
			}
		}
	}()

	select {
	case err := <-ready:
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Stop disconnects and waits for the background runner to exit.
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	select {
	case <-a.done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("timed out waiting for telegram runner to stop")
	}
}

// Self returns the authorized user's phone-owner identity string.
func (a *Adapter) Self() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.self == nil {
		return a.phone
	}
	if a.self.Phone != "" {
		return "+" + strings.TrimPrefix(a.self.Phone, "+")
	}
	return a.phone
}

// Prime seeds the peer cache from cached chats so history fetches work
// without a fresh dialog listing after a restart.
func (a *Adapter) Prime(chats []store.Chat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range chats {
		a.peers[c.ChatID] = &tg.InputPeerUser{UserID: c.ChatID, AccessHash: c.AccessHash}
	}
}

// FetchChats lists the user's private non-bot dialogs and refreshes the
// peer cache.
func (a *Adapter) FetchChats(ctx context.Context) ([]store.Chat, error) {
	api, self, err := a.ready()
	if err != nil {
		return nil, err
	}

	res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      200,
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}
	modified, ok := res.AsModified()
	if !ok {
		return nil, nil
	}

	users := make(map[int64]*tg.User)
	for _, uc := range modified.GetUsers() {
		if u, ok := uc.(*tg.User); ok {
			users[u.ID] = u
		}
	}

	var chats []store.Chat
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, dc := range modified.GetDialogs() {
		peer, ok := dc.GetPeer().(*tg.PeerUser)
		if !ok {
			continue
		}
		u, ok := users[peer.UserID]
		if !ok || u.Bot || u.Deleted || u.ID == self.ID {
			continue
		}
		a.peers[u.ID] = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
		chats = append(chats, store.Chat{
			ChatID:     u.ID,
			Name:       displayName(u),
			Username:   u.Username,
			AccessHash: u.AccessHash,
		})
	}
	return chats, nil
}

// History implements remote.Client: one page of up to limit messages,
// newest first, starting just before offsetID. Flood waits are mapped
// to remote.FloodWaitError for the Source to absorb.
func (a *Adapter) History(ctx context.Context, chatID int64, limit int, offsetID int64) ([]remote.Raw, error) {
	api, self, err := a.ready()
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	peer, ok := a.peers[chatID]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown chat %d: refresh the chat list first", chatID)
	}

	res, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     peer,
		OffsetID: int(offsetID),
		Limit:    limit,
	})
	if err != nil {
		if wait, ok := tgerr.AsFloodWait(err); ok {
			return nil, &remote.FloodWaitError{Wait: wait}
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	modified, ok := res.AsModified()
	if !ok {
		return nil, nil
	}

	users := make(map[int64]*tg.User)
	for _, uc := range modified.GetUsers() {
		if u, ok := uc.(*tg.User); ok {
			users[u.ID] = u
		}
	}

	var raws []remote.Raw
	for _, mc := range modified.GetMessages() {
		m, ok := mc.(*tg.Message)
		if !ok {
			// Service and empty messages carry no chat content.
			continue
		}
		raws = append(raws, remote.Raw{
			ID:        int64(m.ID),
			Sender:    a.senderName(m, users, self, chatID),
			Text:      m.Message,
			Kind:      classify(m),
			Timestamp: time.Unix(int64(m.Date), 0).UTC(),
		})
	}
	return raws, nil
}

func (a *Adapter) ready() (*tg.Client, *tg.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.api == nil || a.self == nil {
		return nil, nil, fmt.Errorf("not connected")
	}
	return a.api, a.self, nil
}

// senderName resolves the display name for a message's sender,
// matching the original product's precedence: "me" for own messages,
// "@username" when the sender has one, first name otherwise, and
// "Unknown" when nothing resolves.
func (a *Adapter) senderName(m *tg.Message, users map[int64]*tg.User, self *tg.User, chatID int64) string {
	if m.Out {
		if self.Username != "" {
			return fmt.Sprintf("%s(me)", self.Username)
		}
		return "me"
	}
	userID := chatID // private dialog: the counterparty unless FromID says otherwise
	if from, ok := m.FromID.(*tg.PeerUser); ok {
		userID = from.UserID
	}
	u, ok := users[userID]
	if !ok {
		return "Unknown"
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Unknown"
}

func classify(m *tg.Message) remote.Kind {
	if m.Media == nil {
		return remote.KindText
	}
	switch media := m.Media.(type) {
	case *tg.MessageMediaPhoto:
		return remote.KindPhoto
	case *tg.MessageMediaDocument:
		dc, ok := media.GetDocument()
		if !ok {
			return remote.KindDocument
		}
		doc, ok := dc.AsNotEmpty()
		if !ok {
			return remote.KindDocument
		}
		kind := remote.KindDocument
		for _, attr := range doc.Attributes {
			switch at := attr.(type) {
			case *tg.DocumentAttributeSticker:
				return remote.KindSticker
			case *tg.DocumentAttributeAnimated:
				return remote.KindGIF
			case *tg.DocumentAttributeAudio:
				if at.Voice {
					return remote.KindVoice
				}
				kind = remote.KindAudio
			case *tg.DocumentAttributeVideo:
				kind = remote.KindVideo
			}
		}
		return kind
	default:
		return remote.KindUnknown
	}
}

func displayName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		if u.Username != "" {
			return "@" + u.Username
		}
		return "Unknown"
	}
	return name
}
