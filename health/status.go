package health

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/c360/saltstreams/natsbridge"
	"github.com/c360/saltstreams/stream"
)

// Pre-compiled regexes for message sanitization
var (
	urlRegex        = regexp.MustCompile(`(?:https?|wss?|nats)://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status represents the health state of a component or the whole process
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Since       time.Time `json:"since,omitzero"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// WithSubStatus adds a sub-status and returns a copy
func (s Status) WithSubStatus(subStatus Status) Status {
	newSubStatuses := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(newSubStatuses, s.SubStatuses)
	s.SubStatuses = append(newSubStatuses, subStatus)
	return s
}

// sanitizeMessage removes URLs, paths, addresses and credentials from
// messages served on the unauthenticated health endpoint.
func sanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := urlRegex.ReplaceAllString(msg, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "key") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "credential") {
		sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
	}

	return sanitized
}

// FromStream converts an event stream state to a Status. A stream the
// caller closed with CloseGoingAway or CloseNormal is reported degraded,
// any other closure unhealthy.
func FromStream(name string, state stream.State, code int, reason string) Status {
	switch state {
	case stream.StateOpen:
		return NewHealthy(name, "Event stream open")
	case stream.StateConnecting:
		return NewDegraded(name, "Event stream connecting")
	}

	msg := fmt.Sprintf("Event stream closed (%d)", code)
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, sanitizeMessage(reason))
	}
	if code == stream.CloseGoingAway || code == stream.CloseNormal {
		return NewDegraded(name, msg)
	}
	return NewUnhealthy(name, msg)
}

// FromNATS converts a NATS connection status to a Status
func FromNATS(name string, status natsbridge.ConnectionStatus) Status {
	switch status {
	case natsbridge.StatusConnected:
		return NewHealthy(name, "Connected to NATS")
	case natsbridge.StatusConnecting, natsbridge.StatusReconnecting:
		return NewDegraded(name, "NATS "+status.String())
	default:
		return NewUnhealthy(name, "NATS "+status.String())
	}
}
