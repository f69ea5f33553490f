package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the process-wide metrics shared by all event streams and bridges
type Metrics struct {
	// Event stream metrics
	StreamStatus   *prometheus.GaugeVec
	EventsReceived *prometheus.CounterVec
	StreamCloses   *prometheus.CounterVec

	// Bridge metrics
	EventsPublished *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	NATSConnected   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StreamStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "saltstreams",
				Subsystem: "stream",
				Name:      "status",
				Help:      "Event stream state (0=connecting, 1=open, 2=closed)",
			},
			[]string{"stream"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "saltstreams",
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of events received, by tag category",
			},
			[]string{"stream", "category"},
		),

		StreamCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "saltstreams",
				Subsystem: "stream",
				Name:      "closes_total",
				Help:      "Total number of event stream closures, by close code",
			},
			[]string{"stream", "code"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "saltstreams",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of events republished by a bridge",
			},
			[]string{"service"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "saltstreams",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "saltstreams",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordStreamStatus updates the state gauge of a stream
func (c *Metrics) RecordStreamStatus(stream string, state int) {
	c.StreamStatus.WithLabelValues(stream).Set(float64(state))
}

// RecordEventReceived increments the received event counter
func (c *Metrics) RecordEventReceived(stream, category string) {
	if category == "" {
		category = "other"
	}
	c.EventsReceived.WithLabelValues(stream, category).Inc()
}

// RecordStreamClose increments the close counter for a close code
func (c *Metrics) RecordStreamClose(stream string, code int) {
	c.StreamCloses.WithLabelValues(stream, strconv.Itoa(code)).Inc()
}

// RecordEventPublished increments the published event counter
func (c *Metrics) RecordEventPublished(service string) {
	c.EventsPublished.WithLabelValues(service).Inc()
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}
