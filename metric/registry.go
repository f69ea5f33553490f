package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/saltstreams/errors"
)

// MetricsRegistrar registers collectors grouped by the service that owns them
type MetricsRegistrar interface {
	Register(service, name string, collector prometheus.Collector) error
	UnregisterService(service string) int
}

// MetricsRegistry owns the Prometheus registry, the core metrics and the
// collectors registered by each service.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics

	mu       sync.Mutex
	services map[string]map[string]prometheus.Collector
}

var _ MetricsRegistrar = (*MetricsRegistry)(nil)

// NewMetricsRegistry creates a registry with the core metrics and the Go
// runtime and process collectors already registered.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
		services:           make(map[string]map[string]prometheus.Collector),
	}

	r.prometheusRegistry.MustRegister(
		r.Metrics.StreamStatus,
		r.Metrics.EventsReceived,
		r.Metrics.StreamCloses,
		r.Metrics.EventsPublished,
		r.Metrics.ErrorsTotal,
		r.Metrics.NATSConnected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core metrics
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.Metrics
}

// Register adds collector under service/name. A name already taken by the
// service, or a descriptor clash inside Prometheus, is an invalid-class
// error.
func (r *MetricsRegistry) Register(service, name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.services[service]
	if _, exists := owned[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for service %s", name, service),
			"MetricsRegistry", "Register", "check duplicate")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register",
				fmt.Sprintf("register %s.%s", service, name))
		}
		return errors.WrapFatal(err, "MetricsRegistry", "Register", "register collector")
	}

	if owned == nil {
		owned = make(map[string]prometheus.Collector)
		r.services[service] = owned
	}
	owned[name] = collector
	return nil
}

// UnregisterService removes every collector registered by service and
// returns how many were removed.
func (r *MetricsRegistry) UnregisterService(service string) int {
	r.mu.Lock()
	owned := r.services[service]
	delete(r.services, service)
	r.mu.Unlock()

	removed := 0
	for _, collector := range owned {
		if r.prometheusRegistry.Unregister(collector) {
			removed++
		}
	}
	return removed
}

// Services returns the number of services with registered collectors
func (r *MetricsRegistry) Services() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}
