package stream

import (
	"encoding/json"
	"sync"

	"campus-resource-monitor/shared/metricsx"
)

// Event is one server-sent event: a type name and a JSON-encoded body.
type Event struct {
	Type string
	Data []byte
}

// Hub fans events out to connected SSE clients. Subscribers with full
// buffers miss events rather than block the publisher; clients recover by
// reading the alert snapshot on reconnect.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a client. The returned cancel func must be called when
// the client disconnects.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	metricsx.SetSSEClients(n)

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		n := len(h.subs)
		h.mu.Unlock()
		metricsx.SetSSEClients(n)
	}
	return ch, cancel
}

// Publish marshals v and delivers it to every subscriber.
func (h *Hub) Publish(eventType string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.PublishRaw(eventType, b)
}

// PublishRaw delivers pre-encoded JSON to every subscriber.
func (h *Hub) PublishRaw(eventType string, data []byte) {
	event := Event{Type: eventType, Data: data}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Clients returns the current subscriber count.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
