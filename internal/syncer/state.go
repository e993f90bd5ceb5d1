package syncer

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mfadaei/tgsum/internal/bus"
)

// State is one step of a single resolve invocation.
type State string

const (
	Idle          State = "IDLE"
	ReadingCache  State = "READING_CACHE"
	Satisfied     State = "SATISFIED"
	NeedsRemote   State = "NEEDS_REMOTE"
	FetchingBatch State = "FETCHING_BATCH"
	Merging       State = "MERGING"
	Persisting    State = "PERSISTING"
	Done          State = "DONE"
	Cancelled     State = "CANCELLED"
	Failed        State = "FAILED"
)

// validTransitions defines allowed state transitions. FetchingBatch
// loops on itself once per remote page; rate-limit backoff happens
// inside that state and is never visible here.
var validTransitions = map[State][]State{
	Idle:          {ReadingCache, Failed},
	ReadingCache:  {Satisfied, NeedsRemote, Failed},
	Satisfied:     {Done},
	NeedsRemote:   {FetchingBatch, Merging, Cancelled, Failed},
	FetchingBatch: {FetchingBatch, Merging, Cancelled, Failed},
	Merging:       {Persisting, Failed},
	Persisting:    {Done, Failed},
}

// StateChange is the payload of "sync.state" bus events.
type StateChange struct {
	RunID  string
	ChatID int64
	From   State
	To     State
}

// machine tracks one resolve invocation's progress through the sync
// lifecycle and publishes every transition.
type machine struct {
	mu      sync.Mutex
	current State
	runID   string
	chatID  int64
	bus     *bus.Bus
}

func newMachine(runID string, chatID int64, b *bus.Bus) *machine {
	return &machine{current: Idle, runID: runID, chatID: chatID, bus: b}
}

func (m *machine) state() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// to moves the machine to a new state. An invalid transition is a
// programming error in the coordinator, reported but not fatal.
func (m *machine) to(next State) error {
	m.mu.Lock()
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, next) {
		current := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid sync transition %s -> %s", current, next)
	}
	from := m.current
	m.current = next
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind: "sync.state",
			At:   time.Now(),
			Payload: StateChange{
				RunID:  m.runID,
				ChatID: m.chatID,
				From:   from,
				To:     next,
			},
		})
	}
	return nil
}
