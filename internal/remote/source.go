package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfadaei/tgsum/internal/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrUnavailable wraps transport failures the source does not retry.
// Rate limiting is not one of them; it is absorbed internally.
var ErrUnavailable = errors.New("remote unavailable")

// FloodWaitError is the server-signaled "slow down" condition carrying
// the wait the server demanded. Client implementations surface it; the
// Source absorbs it and callers never see it.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait %s", e.Wait)
}

// Raw is one message as the remote iteration primitive yields it:
// sender already resolved to a display string, payload classified, but
// timestamp not yet normalized.
type Raw struct {
	ID        int64
	Sender    string
	Text      string
	Kind      Kind
	Timestamp time.Time
}

// Client is the remote message-iteration primitive, yielding up to
// limit messages strictly newest-first, starting just before offsetID
// when it is non-zero. Implementations return *FloodWaitError on a
// rate-limit signal and any other error verbatim.
type Client interface {
	History(ctx context.Context, chatID int64, limit int, offsetID int64) ([]Raw, error)
}

// Source wraps a Client with transparent rate-limit handling, request
// pacing and UTC normalization. Messages leave this component with
// timezone-aware UTC timestamps only.
type Source struct {
	client  Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSource creates a Source. requestsPerSec bounds how fast history
// pages are requested; zero disables pacing.
func NewSource(client Client, requestsPerSec float64, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if requestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSec), 1)
	}
	return &Source{client: client, limiter: limiter, logger: logger}
}

// Fetch requests one batch of up to limit messages, newest first,
// starting just before offsetID (0 means the newest message). On a
// flood-wait signal it sleeps for exactly the server-given duration and
// re-issues the same request; callers only observe latency. Any other
// transport failure is returned wrapped in ErrUnavailable.
func (s *Source) Fetch(ctx context.Context, chatID int64, limit int, offsetID int64) ([]store.Message, error) {
	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		raws, err := s.client.History(ctx, chatID, limit, offsetID)
		if err == nil {
			return normalize(chatID, raws), nil
		}

		var fw *FloodWaitError
		if errors.As(err, &fw) {
			s.logger.Warn("rate limited by server, waiting",
				zap.Duration("wait", fw.Wait),
				zap.Int64("chat_id", chatID))
			timer := time.NewTimer(fw.Wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func normalize(chatID int64, raws []Raw) []store.Message {
	msgs := make([]store.Message, 0, len(raws))
	for _, r := range raws {
		sender := r.Sender
		if sender == "" {
			sender = "Unknown"
		}
		msgs = append(msgs, store.Message{
			ChatID:    chatID,
			MsgID:     r.ID,
			Sender:    sender,
			Content:   Render(r.Text, r.Kind),
			Timestamp: r.Timestamp.UTC(),
		})
	}
	return msgs
}
