package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/c360/saltstreams/event"
	"github.com/c360/saltstreams/pkg/buffer"
)

type recordedEvent struct {
	Received time.Time       `json:"received"`
	Tag      string          `json:"tag"`
	Data     json.RawMessage `json:"data"`
}

// eventHistory keeps the most recent events for the /events endpoint
type eventHistory struct {
	ring *buffer.Ring[recordedEvent]
	now  func() time.Time
}

func newEventHistory(size int) *eventHistory {
	return &eventHistory{
		ring: buffer.NewRing[recordedEvent](size, nil),
		now:  time.Now,
	}
}

func (h *eventHistory) Notify(env event.Envelope) {
	h.ring.Write(recordedEvent{Received: h.now(), Tag: env.Tag, Data: env.Data})
}

func (h *eventHistory) StreamClosed(int, string) {}

// ServeHTTP returns the buffered events, newest last. The optional limit
// query parameter bounds the number returned.
func (h *eventHistory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := -1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	resp := struct {
		Events []recordedEvent `json:"events"`
		Stats  buffer.Stats    `json:"stats"`
	}{
		Events: h.ring.Last(limit),
		Stats:  h.ring.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
