package stream

import (
	"encoding/json"
	"testing"
)

func TestHubFanout(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	hub.Publish("alert", map[string]string{"id": "x"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Type != "alert" {
				t.Fatalf("expected alert event, got %q", ev.Type)
			}
			var body map[string]string
			if err := json.Unmarshal(ev.Data, &body); err != nil {
				t.Fatalf("bad event body: %v", err)
			}
			if body["id"] != "x" {
				t.Fatalf("unexpected body: %v", body)
			}
		default:
			t.Fatalf("subscriber did not receive the event")
		}
	}
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	if hub.Clients() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Clients())
	}
	cancel()
	cancel() // idempotent
	if hub.Clients() != 0 {
		t.Fatalf("expected 0 clients after cancel, got %d", hub.Clients())
	}
	// Publishing with no subscribers must not panic.
	hub.Publish("alert", map[string]string{"id": "y"})
}

func TestHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < 40; i++ {
		hub.Publish("alert", map[string]int{"n": i})
	}
	// Buffer holds 16; the rest were dropped without blocking Publish.
	if got := len(ch); got != 16 {
		t.Fatalf("expected full buffer of 16, got %d", got)
	}
}
