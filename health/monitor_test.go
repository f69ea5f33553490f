package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_UpdateAndGet(t *testing.T) {
	m := NewMonitor()

	m.Update("event_stream", NewHealthy("", "open"))
	m.Update("nats", NewDegraded("", "reconnecting"))
	assert.Len(t, m.Snapshot(), 2)

	status, ok := m.Get("nats")
	require.True(t, ok)
	assert.True(t, status.IsDegraded())
	assert.Equal(t, "nats", status.Component)
	assert.False(t, status.Timestamp.IsZero())

	m.Update("nats", Status{Status: StatusHealthy, Healthy: true})
	status, _ = m.Get("nats")
	assert.Equal(t, "nats", status.Component)
	assert.False(t, status.Timestamp.IsZero())

	_, ok = m.Get("missing")
	assert.False(t, ok)

	m.Update("event_stream", NewUnhealthy("", "closed"))
	assert.True(t, m.AggregateHealth("saltevents").IsUnhealthy())
}

func TestMonitor_Since(t *testing.T) {
	m := NewMonitor()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	m.now = func() time.Time { return clock }

	m.Update("nats", Status{Status: StatusDegraded})
	clock = base.Add(time.Minute)
	m.Update("nats", Status{Status: StatusDegraded})

	status, _ := m.Get("nats")
	assert.Equal(t, base.Add(time.Minute), status.Timestamp)
	assert.Equal(t, base, status.Since, "same status keeps since")

	clock = base.Add(2 * time.Minute)
	m.Update("nats", Status{Status: StatusHealthy, Healthy: true})
	status, _ = m.Get("nats")
	assert.Equal(t, base.Add(2*time.Minute), status.Since, "transition resets since")
}

func TestMonitor_Snapshot(t *testing.T) {
	m := NewMonitor()
	m.Update("nats", NewHealthy("", ""))
	m.Update("event_stream", NewHealthy("", ""))

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "event_stream", snap[0].Component)
	assert.Equal(t, "nats", snap[1].Component)
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor()
	m.Update("event_stream", NewHealthy("", "open"))

	get := func(target string) (*http.Response, []byte) {
		rec := httptest.NewRecorder()
		m.Handler("saltevents").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec.Result(), rec.Body.Bytes()
	}
	decodeStatus := func(body []byte) Status {
		var status Status
		require.NoError(t, json.Unmarshal(body, &status))
		return status
	}

	resp, body := get("/health")
	status := decodeStatus(body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "saltevents", status.Component)
	assert.True(t, status.Healthy)
	require.Len(t, status.SubStatuses, 1)

	m.Update("nats", NewDegraded("", "reconnecting"))
	resp, body = get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusDegraded, decodeStatus(body).Status)

	m.Update("event_stream", NewUnhealthy("", "closed"))
	resp, _ = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	t.Run("single component", func(t *testing.T) {
		resp, body := get("/health?component=nats")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		status := decodeStatus(body)
		assert.Equal(t, "nats", status.Component)
		assert.Empty(t, status.SubStatuses)

		resp, _ = get("/health?component=event_stream")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("unknown component", func(t *testing.T) {
		resp, _ := get("/health?component=minions")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Update("event_stream", NewHealthy("", "open"))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.AggregateHealth("saltevents")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, m.Snapshot(), 1)
}
