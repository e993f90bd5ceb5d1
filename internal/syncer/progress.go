package syncer

import (
	"time"

	"github.com/mfadaei/tgsum/internal/bus"
)

// Progress receives a monotonically non-decreasing completion
// percentage. It is invoked from a dedicated goroutine and is
// best-effort: a slow or panicking callback never stalls or aborts
// the sync.
type Progress func(percent int)

// ProgressUpdate is the payload of "sync.progress" bus events.
type ProgressUpdate struct {
	RunID   string
	ChatID  int64
	Percent int
}

// reporter fans progress out to the optional callback and the bus.
// set is only called from the resolve goroutine, so monotonicity is a
// simple high-water mark.
type reporter struct {
	fn     Progress
	bus    *bus.Bus
	runID  string
	chatID int64
	last   int
	ch     chan int
	done   chan struct{}
}

func newReporter(fn Progress, b *bus.Bus, runID string, chatID int64) *reporter {
	r := &reporter{
		fn:     fn,
		bus:    b,
		runID:  runID,
		chatID: chatID,
		last:   -1,
		ch:     make(chan int, 32),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *reporter) loop() {
	defer close(r.done)
	for pct := range r.ch {
		if r.fn != nil {
			r.invoke(pct)
		}
	}
}

func (r *reporter) invoke(pct int) {
	defer func() { _ = recover() }()
	r.fn(pct)
}

// set advances the reported percentage. Lower or equal values are
// ignored; delivery is non-blocking and may drop under backpressure.
func (r *reporter) set(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct <= r.last {
		return
	}
	r.last = pct

	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind: "sync.progress",
			At:   time.Now(),
			Payload: ProgressUpdate{
				RunID:   r.runID,
				ChatID:  r.chatID,
				Percent: pct,
			},
		})
	}
	select {
	case r.ch <- pct:
	default:
	}
}

// close stops the callback goroutine after draining what it already has.
func (r *reporter) close() {
	close(r.ch)
	select {
	case <-r.done:
	case <-time.After(time.Second):
	}
}
