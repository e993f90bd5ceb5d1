// Package bus is a small in-process pub/sub used to decouple the sync
// engine from whatever renders its progress. Publishing never blocks:
// a slow subscriber loses events instead of stalling a fetch loop.
package bus

import (
	"strings"
	"sync"
	"time"
)

// Event is one published occurrence. Kind uses dotted namespaces
// ("sync.progress", "sync.state"); subscribers filter by prefix.
type Event struct {
	Kind    string
	At      time.Time
	Payload any
}

// Subscription is a live event feed. Receive from C; call Cancel when done.
type Subscription struct {
	C      <-chan Event
	Cancel func()
}

// Bus fan-outs events to prefix-filtered subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers evt to every subscriber whose prefix matches
// evt.Kind. Full subscriber buffers drop the event.
func (b *Bus) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if strings.HasPrefix(evt.Kind, s.prefix) {
			select {
			case s.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers a feed for events whose Kind starts with prefix.
// buf bounds the feed's buffer; events beyond it are dropped, not queued.
func (b *Bus) Subscribe(prefix string, buf int) Subscription {
	ch := make(chan Event, buf)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscriber{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return Subscription{
		C: ch,
		Cancel: func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		},
	}
}
