// Package health tracks the health of the event stream and the NATS bridge.
//
// A Monitor holds one Status per component. FromStream and FromNATS map
// component states to statuses, and Monitor.Handler serves the aggregate:
//
//	monitor := health.NewMonitor()
//	monitor.Update("event_stream", health.FromStream("event_stream", es.State(), 0, ""))
//	server.SetHealthHandler(monitor.Handler("saltevents"))
//
// Aggregation takes the worst component status: any unhealthy component
// makes the system unhealthy (HTTP 503), otherwise any degraded component
// makes it degraded. GET /health?component=nats serves one component.
// Since records when a component entered its current status.
//
// FromStream strips URLs, addresses and credentials from close reasons.
package health
