// Package syncer reconciles the local message cache against the remote
// service under the three filter shapes: most recent N, last N days,
// and one specific calendar day. It decides how much to fetch, merges
// remote and cached rows without duplication, persists each batch as it
// lands, enforces retention through the store, and reports progress.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mfadaei/tgsum/internal/bus"
	"github.com/mfadaei/tgsum/internal/filter"
	"github.com/mfadaei/tgsum/internal/remote"
	"github.com/mfadaei/tgsum/internal/store"
	"go.uber.org/zap"
)

// ErrCancelled reports a cooperative cancellation between batches. The
// accompanying Result holds what was merged before the cut, so a
// cancelled run is never mistaken for a complete one.
var ErrCancelled = errors.New("sync cancelled")

// DefaultBatchSize is the remote page size used when Config leaves it zero.
const DefaultBatchSize = 100

// Config carries explicit coordinator configuration.
type Config struct {
	// BatchSize bounds one remote history page.
	BatchSize int
}

// Result is the outcome of one resolve. Partial marks a result cut
// short by a remote failure after at least one successful batch:
// everything fetched before the failure is merged and persisted, never
// discarded.
type Result struct {
	Messages   []store.Message
	Partial    bool
	FetchedNew int
}

// Coordinator drives cache-first reconciliation for one store and one
// remote source. Safe for concurrent use across different chats; the
// caller serializes runs for the same (owner, chat).
type Coordinator struct {
	db        *store.DB
	source    *remote.Source
	bus       *bus.Bus
	logger    *zap.Logger
	batchSize int
	now       func() time.Time
}

// New creates a Coordinator.
func New(db *store.DB, source *remote.Source, b *bus.Bus, logger *zap.Logger, cfg Config) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Coordinator{
		db:        db,
		source:    source,
		bus:       b,
		logger:    logger,
		batchSize: batch,
		now:       time.Now,
	}
}

// Resolve reconciles the cache for one chat under the given filter and
// returns the final ordered messages, newest first. The cache is read
// first and the remote is consulted only for what the cache cannot
// answer. progress may be nil.
//
// On cancellation the returned error is ErrCancelled and the Result
// holds the rows merged so far.
func (c *Coordinator) Resolve(ctx context.Context, owner string, chatID int64, f filter.Filter, loc *time.Location, progress Progress) (*Result, error) {
	runID := uuid.NewString()
	m := newMachine(runID, chatID, c.bus)
	rep := newReporter(progress, c.bus, runID, chatID)
	defer rep.close()

	log := c.logger.With(
		zap.String("run_id", runID),
		zap.Int64("chat_id", chatID),
		zap.Stringer("filter", f.Kind),
	)

	w, _, err := filter.Resolve(f, loc, c.now())
	if err != nil {
		_ = m.to(Failed)
		return nil, err
	}

	_ = m.to(ReadingCache)
	cached, err := c.db.ReadFilter(owner, chatID, f, w)
	if err != nil {
		_ = m.to(Failed)
		return nil, fmt.Errorf("read cache: %w", err)
	}
	log.Info("cache read", zap.Int("cached", len(cached.Messages)))

	switch f.Kind {
	case filter.RecentCount:
		return c.resolveRecentCount(ctx, m, rep, log, owner, chatID, f.Count, cached.Messages)
	case filter.RecentDays:
		// Always reconcile against the remote: new messages may have
		// arrived inside the window since the last sync.
		return c.resolveWindowed(ctx, m, rep, log, owner, chatID, w, cached.Messages, false)
	case filter.SpecificDate:
		if cached.DayFullyCovered {
			log.Info("day fully covered by cache, skipping remote")
			_ = m.to(Satisfied)
			rep.set(100)
			_ = m.to(Done)
			return &Result{Messages: cached.Messages}, nil
		}
		return c.resolveWindowed(ctx, m, rep, log, owner, chatID, w, cached.Messages, true)
	}
	_ = m.to(Failed)
	return nil, fmt.Errorf("%w: kind %v", filter.ErrInvalidFilter, f.Kind)
}

// resolveRecentCount serves "the n most recent messages": straight from
// cache when it has enough, otherwise a deficit fetch paginated from
// just before the oldest cached message so nothing cached is re-fetched.
func (c *Coordinator) resolveRecentCount(ctx context.Context, m *machine, rep *reporter, log *zap.Logger, owner string, chatID int64, n int, cached []store.Message) (*Result, error) {
	if len(cached) >= n {
		log.Info("cache satisfies request, zero remote calls")
		_ = m.to(Satisfied)
		rep.set(100)
		_ = m.to(Done)
		return &Result{Messages: cached[:n]}, nil
	}
	_ = m.to(NeedsRemote)

	deficit := n - len(cached)
	offsetID, err := c.db.OldestMessageID(owner, chatID)
	if err != nil {
		_ = m.to(Failed)
		return nil, fmt.Errorf("oldest cached id: %w", err)
	}
	log.Info("deficit fetch", zap.Int("deficit", deficit), zap.Int64("offset_id", offsetID))

	var fetched []store.Message
	partial := false
	remaining := deficit
	for remaining > 0 {
		if ctx.Err() != nil {
			_ = m.to(Cancelled)
			return &Result{Messages: mergeDesc(cached, fetched), Partial: true, FetchedNew: len(fetched)}, ErrCancelled
		}
		_ = m.to(FetchingBatch)

		limit := remaining
		if limit > c.batchSize {
			limit = c.batchSize
		}
		batch, err := c.source.Fetch(ctx, chatID, limit, offsetID)
		if err != nil {
			if ferr := c.remoteFailure(m, log, err, cached, fetched); ferr != nil {
				return nil, ferr
			}
			partial = true
			break
		}
		if len(batch) == 0 {
			// History exhausted: the chat has fewer messages than asked.
			break
		}
		if err := c.persistBatch(m, owner, chatID, batch); err != nil {
			return nil, err
		}
		fetched = append(fetched, batch...)
		remaining -= len(batch)
		offsetID = batch[len(batch)-1].MsgID
		rep.set(90 * (deficit - remaining) / deficit)
	}

	_ = m.to(Merging)
	merged := mergeDesc(cached, fetched)
	if len(merged) > n {
		merged = merged[:n]
	}
	_ = m.to(Persisting)
	rep.set(100)
	_ = m.to(Done)
	return &Result{Messages: merged, Partial: partial, FetchedNew: len(fetched)}, nil
}

// resolveWindowed serves the two date-window shapes by walking the
// history backward from the newest message until it crosses the window
// start. trimEarly cuts a batch at the first message older than the
// window (specific-date behavior); otherwise the whole final batch is
// kept and merged (recent-days behavior).
func (c *Coordinator) resolveWindowed(ctx context.Context, m *machine, rep *reporter, log *zap.Logger, owner string, chatID int64, w filter.Window, cached []store.Message, trimEarly bool) (*Result, error) {
	_ = m.to(NeedsRemote)

	var fetched []store.Message
	var offsetID int64
	partial := false
	batches := 0
	for {
		if ctx.Err() != nil {
			_ = m.to(Cancelled)
			merged := filterWindow(mergeDesc(cached, fetched), w)
			return &Result{Messages: merged, Partial: true, FetchedNew: len(fetched)}, ErrCancelled
		}
		_ = m.to(FetchingBatch)

		batch, err := c.source.Fetch(ctx, chatID, c.batchSize, offsetID)
		if err != nil {
			if ferr := c.remoteFailure(m, log, err, cached, fetched); ferr != nil {
				return nil, ferr
			}
			partial = true
			break
		}
		if len(batch) == 0 {
			break
		}
		batches++
		offsetID = batch[len(batch)-1].MsgID

		crossed := batch[len(batch)-1].Timestamp.Before(w.Start)
		if trimEarly && crossed {
			// Keep only up to (and including the first message before)
			// the window start; the rest of the page is older history.
			cut := len(batch)
			for i, msg := range batch {
				if msg.Timestamp.Before(w.Start) {
					cut = i + 1
					break
				}
			}
			batch = batch[:cut]
		}

		if err := c.persistBatch(m, owner, chatID, batch); err != nil {
			return nil, err
		}
		fetched = append(fetched, batch...)
		// Unknown total: approach the 90% cap batch by batch.
		rep.set(90 * batches / (batches + 1))

		if crossed {
			break
		}
	}
	log.Info("window fetch finished", zap.Int("batches", batches), zap.Int("fetched", len(fetched)), zap.Bool("partial", partial))

	_ = m.to(Merging)
	merged := filterWindow(mergeDesc(cached, fetched), w)
	_ = m.to(Persisting)
	rep.set(100)
	_ = m.to(Done)
	return &Result{Messages: merged, Partial: partial, FetchedNew: len(fetched)}, nil
}

// remoteFailure applies the partial-result policy: a failure on the
// very first remote call with an empty cache fails the resolve; any
// later failure downgrades the run to a partial result, keeping every
// batch already persisted. A nil return means "continue as partial".
func (c *Coordinator) remoteFailure(m *machine, log *zap.Logger, err error, cached, fetched []store.Message) error {
	if len(cached) == 0 && len(fetched) == 0 {
		_ = m.to(Failed)
		return fmt.Errorf("remote fetch: %w", err)
	}
	log.Warn("remote gave up mid-sync, returning partial result", zap.Error(err))
	return nil
}

// persistBatch writes one fetched batch; a storage failure rolls the
// batch back in full and fails the resolve, previously committed
// batches stand.
func (c *Coordinator) persistBatch(m *machine, owner string, chatID int64, batch []store.Message) error {
	for i := range batch {
		batch[i].Owner = owner
	}
	if _, err := c.db.InsertMessages(owner, chatID, batch); err != nil {
		_ = m.to(Failed)
		return fmt.Errorf("persist batch: %w", err)
	}
	return nil
}

// mergeDesc deduplicates two already chat-scoped message sets by remote
// id, preferring the first occurrence, and re-sorts newest first with
// higher ids winning timestamp ties.
func mergeDesc(a, b []store.Message) []store.Message {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]store.Message, 0, len(a)+len(b))
	for _, set := range [][]store.Message{a, b} {
		for _, msg := range set {
			if _, dup := seen[msg.MsgID]; dup {
				continue
			}
			seen[msg.MsgID] = struct{}{}
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].MsgID > out[j].MsgID
	})
	return out
}

func filterWindow(msgs []store.Message, w filter.Window) []store.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if w.Contains(m.Timestamp) {
			out = append(out, m)
		}
	}
	return out
}
