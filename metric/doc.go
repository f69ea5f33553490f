// Package metric provides Prometheus-based metrics collection and an HTTP
// server for saltstreams.
//
// The registry holds two kinds of metrics:
//
//  1. Core metrics registered automatically (Metrics type): stream state,
//     events received per tag category, close codes, bridge publishes.
//  2. Service metrics registered through the MetricsRegistrar interface,
//     such as the per-stream frame and listener metrics of package stream.
//     A service's collectors are removed together with UnregisterService.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(context.Background())
//
// Components receive the registry at construction time and register their
// collectors under their own name:
//
//	registry.Register("event_stream_"+id, "frames_received", framesCounter)
//	...
//	registry.UnregisterService("event_stream_" + id)
//
// Registering the same service/metric pair twice returns an invalid-class
// error; callers that create several components with the same name may
// ignore it and keep using the unregistered collector.
//
// # Thread Safety
//
// MetricsRegistry is safe for concurrent use. Prometheus collectors are
// themselves goroutine-safe.
package metric
