package stream

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/saltstreams/metric"
)

// Metrics holds the per-stream Prometheus collectors
type Metrics struct {
	framesReceived   prometheus.Counter
	messagesReceived prometheus.Counter
	keepAlives       prometheus.Counter
	oversize         prometheus.Counter
	parseErrors      prometheus.Counter
	listeners        prometheus.Gauge
	closes           *prometheus.CounterVec

	registry *metric.MetricsRegistry
	service  string
}

// newMetrics creates and registers stream metrics
func newMetrics(registry *metric.MetricsRegistry, streamID string) *Metrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"stream_id": streamID}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "saltstreams",
			Subsystem:   "event_stream",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &Metrics{
		framesReceived:   counter("frames_received_total", "Websocket fragments received"),
		messagesReceived: counter("messages_received_total", "Complete messages assembled"),
		keepAlives:       counter("keepalives_total", "Keep-alive messages swallowed"),
		oversize:         counter("oversize_total", "Messages rejected for exceeding the size limit"),
		parseErrors:      counter("parse_errors_total", "Messages that failed to parse as events"),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "saltstreams",
			Subsystem:   "event_stream",
			Name:        "listeners",
			Help:        "Registered listeners",
			ConstLabels: labels,
		}),
		closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "saltstreams",
			Subsystem:   "event_stream",
			Name:        "closes_total",
			Help:        "Stream terminations by close code",
			ConstLabels: labels,
		}, []string{"code"}),
		registry: registry,
		service:  "event_stream_" + streamID,
	}

	// Registration errors are ignored; a stream works without metrics.
	collectors := map[string]prometheus.Collector{
		"frames_received":   m.framesReceived,
		"messages_received": m.messagesReceived,
		"keepalives":        m.keepAlives,
		"oversize":          m.oversize,
		"parse_errors":      m.parseErrors,
		"listeners":         m.listeners,
		"closes":            m.closes,
	}
	for name, c := range collectors {
		_ = registry.Register(m.service, name, c)
	}

	return m
}

func (m *Metrics) frame() {
	if m != nil {
		m.framesReceived.Inc()
	}
}

func (m *Metrics) message() {
	if m != nil {
		m.messagesReceived.Inc()
	}
}

func (m *Metrics) keepAlive() {
	if m != nil {
		m.keepAlives.Inc()
	}
}

func (m *Metrics) tooBig() {
	if m != nil {
		m.oversize.Inc()
	}
}

func (m *Metrics) parseError() {
	if m != nil {
		m.parseErrors.Inc()
	}
}

func (m *Metrics) setListeners(n int) {
	if m != nil {
		m.listeners.Set(float64(n))
	}
}

func (m *Metrics) closed(code int) {
	if m != nil {
		m.closes.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}

// unregister removes the stream's collectors once it has closed
func (m *Metrics) unregister() {
	if m != nil {
		m.registry.UnregisterService(m.service)
	}
}
