package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindSessionUpdated, Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindSessionUpdated {
			t.Errorf("got kind %q, want %s", evt.Kind, KindSessionUpdated)
		}
		if evt.ID == "" {
			t.Error("event ID not assigned")
		}
		if evt.Timestamp.IsZero() {
			t.Error("event timestamp not assigned")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindSessionUpdated})
	b.Publish(Event{Kind: KindConnected})

	select {
	case evt := <-ch:
		if evt.Kind != KindConnected {
			t.Errorf("got kind %q, want %s", evt.Kind, KindConnected)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()

	b.Publish(Event{Kind: KindSessionUpdated})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 1)
	defer unsub()

	b.Publish(Event{Kind: KindMessageReceived, ID: "one"})
	// Buffer is full; this one is dropped.
	b.Publish(Event{Kind: KindMessageAck, ID: "two"})

	evt := <-ch
	if evt.ID != "one" {
		t.Errorf("got %q, want one", evt.ID)
	}
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe("", 1)
	other, unsubOther := b.Subscribe("", 1)
	defer unsubOther()

	unsub()
	unsub()

	b.Publish(Event{Kind: KindConnected})
	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber missed the event")
	}
}

func TestEmptyNamespaceReceivesAll(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Publish(Event{Kind: KindConnected})
	b.Publish(Event{Kind: KindMessageAck})

	for range 2 {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}
