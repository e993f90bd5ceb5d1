package bus

import (
	"testing"
	"time"
)

func TestPublishReachesMatchingPrefix(t *testing.T) {
	b := New()
	sub := b.Subscribe("sync.", 4)
	defer sub.Cancel()
	other := b.Subscribe("chats.", 4)
	defer other.Cancel()

	b.Publish(Event{Kind: "sync.progress", Payload: 42})

	select {
	case evt := <-sub.C:
		if evt.Kind != "sync.progress" || evt.Payload != 42 {
			t.Errorf("got %+v", evt)
		}
		if evt.At.IsZero() {
			t.Error("At should be stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-other.C:
		t.Errorf("chats. subscriber received %+v", evt)
	default:
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := New()
	sub := b.Subscribe("sync.", 1)
	defer sub.Cancel()

	// Second publish must not block even though nobody is reading.
	done := make(chan struct{})
	go func() {
		b.Publish(Event{Kind: "sync.progress", Payload: 1})
		b.Publish(Event{Kind: "sync.progress", Payload: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	evt := <-sub.C
	if evt.Payload != 1 {
		t.Errorf("payload = %v, want 1 (second event dropped)", evt.Payload)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe("sync.", 4)
	sub.Cancel()

	b.Publish(Event{Kind: "sync.progress"})
	select {
	case evt := <-sub.C:
		t.Errorf("cancelled subscriber received %+v", evt)
	default:
	}
}
