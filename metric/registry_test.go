package metric

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/saltstreams/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.Same(t, registry.Metrics, registry.CoreMetrics())
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "c"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cv", Help: "cv"}, []string{"l"})

	require.NoError(t, registry.Register("svc", "counter", counter))
	require.NoError(t, registry.Register("svc", "gauge", gauge))
	require.NoError(t, registry.Register("svc", "cv", counterVec))
	assert.Equal(t, 1, registry.Services())

	counter.Inc()
	counterVec.WithLabelValues("a").Add(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(counterVec.WithLabelValues("a")))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["test_counter"])
	assert.True(t, names["go_goroutines"], "runtime collector registered")
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "d"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "d"})

	require.NoError(t, registry.Register("svc", "dup", first))

	err := registry.Register("svc", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "already registered")

	err = registry.Register("other", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err), "prometheus name conflict should be invalid")
	assert.Equal(t, 1, registry.Services(), "failed registration leaves no service behind")
}

func TestMetricsRegistry_UnregisterService(t *testing.T) {
	registry := NewMetricsRegistry()

	a := prometheus.NewCounter(prometheus.CounterOpts{Name: "unreg_a", Help: "u"})
	b := prometheus.NewGauge(prometheus.GaugeOpts{Name: "unreg_b", Help: "u"})
	require.NoError(t, registry.Register("svc", "a", a))
	require.NoError(t, registry.Register("svc", "b", b))

	assert.Equal(t, 2, registry.UnregisterService("svc"))
	assert.Zero(t, registry.UnregisterService("svc"))
	assert.Zero(t, registry.Services())

	require.NoError(t, registry.Register("svc", "a", a), "collector can be registered again")
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", i),
				Help: "c",
			})
			service := fmt.Sprintf("svc%d", i%4)
			assert.NoError(t, registry.Register(service, fmt.Sprintf("c%d", i), counter))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, registry.Services())
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordStreamStatus("s1", 1)
	core.RecordEventReceived("s1", "job")
	core.RecordEventReceived("s1", "job")
	core.RecordEventReceived("s1", "")
	core.RecordStreamClose("s1", 1009)
	core.RecordEventPublished("bridge")
	core.RecordError("bridge", "publish")
	core.RecordNATSStatus(true)

	assert.Equal(t, float64(1), testutil.ToFloat64(core.StreamStatus.WithLabelValues("s1")))
	assert.Equal(t, float64(2), testutil.ToFloat64(core.EventsReceived.WithLabelValues("s1", "job")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.EventsReceived.WithLabelValues("s1", "other")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.StreamCloses.WithLabelValues("s1", "1009")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.EventsPublished.WithLabelValues("bridge")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("bridge", "publish")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.NATSConnected))

	core.RecordNATSStatus(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(core.NATSConnected))
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordEventReceived("s1", "minion")

	server := NewServer(0, "", registry)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	family, ok := families["saltstreams_events_received_total"]
	require.True(t, ok)
	assert.Equal(t, dto.MetricType_COUNTER, family.GetType())
	require.Len(t, family.GetMetric(), 1)
	assert.Equal(t, 1.0, family.GetMetric()[0].GetCounter().GetValue())

	labels := make(map[string]string)
	for _, pair := range family.GetMetric()[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, map[string]string{"stream": "s1", "category": "minion"}, labels)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StartStop(t *testing.T) {
	server := NewServer(0, "/metrics", NewMetricsRegistry())

	require.NoError(t, server.Start())
	assert.Error(t, server.Start(), "second start should fail")

	resp, err := http.Get(server.Address())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop(context.Background()))
	require.NoError(t, server.Stop(context.Background()))

	assert.Error(t, NewServer(0, "", nil).Start())
}

func TestServer_HealthHandler(t *testing.T) {
	server := NewServer(0, "/metrics", NewMetricsRegistry())
	server.SetHealthHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Handle(t *testing.T) {
	server := NewServer(0, "/metrics", NewMetricsRegistry())
	server.Handle("/events", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "[]", string(body))
}
