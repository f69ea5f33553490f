package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Monitor holds the latest Status of each named component
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	now      func() time.Time
}

// NewMonitor creates an empty Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		now:      time.Now,
	}
}

// Update records status for name. Since is carried over while the status
// value stays the same and reset when it changes.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = m.now()
	}
	status.Since = status.Timestamp
	if prev, ok := m.statuses[name]; ok && prev.Status == status.Status {
		status.Since = prev.Since
	}
	m.statuses[name] = status
}

// Get returns the status recorded for name
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[name]
	return status, ok
}

// Snapshot returns every recorded status ordered by component name
func (m *Monitor) Snapshot() []Status {
	m.mu.RLock()
	out := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		out = append(out, status)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// AggregateHealth folds every recorded status into one for systemName
func (m *Monitor) AggregateHealth(systemName string) Status {
	return Aggregate(systemName, m.Snapshot())
}

// Handler serves the aggregate as JSON, or a single component when the
// request carries ?component=<name> (404 if unknown). Unhealthy answers
// 503, anything else 200.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var status Status
		if name := r.URL.Query().Get("component"); name != "" {
			var ok bool
			if status, ok = m.Get(name); !ok {
				http.Error(w, "unknown component", http.StatusNotFound)
				return
			}
		} else {
			status = m.AggregateHealth(systemName)
		}

		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
}
