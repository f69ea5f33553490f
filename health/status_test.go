package health

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/saltstreams/natsbridge"
	"github.com/c360/saltstreams/stream"
)

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		absent   []string
	}{
		{
			name:     "websocket url with token",
			input:    "dial wss://salt.example.com:8000/ws/0123abcd failed",
			contains: []string{"[URL]"},
			absent:   []string{"salt.example.com", "0123abcd"},
		},
		{
			name:     "nats url",
			input:    "nats: no servers available for connection nats://10.0.0.5:4222",
			contains: []string{"[URL]"},
			absent:   []string{"10.0.0.5"},
		},
		{
			name:     "ip and port",
			input:    "read tcp 192.168.1.10:53422: connection reset",
			contains: []string{"[IP]", "[PORT]"},
			absent:   []string{"192.168.1.10", "53422"},
		},
		{
			name:     "credentials",
			input:    "auth failed token=s3cr3t",
			contains: []string{"[REDACTED]"},
			absent:   []string{"s3cr3t"},
		},
		{
			name:     "plain",
			input:    "Message too big",
			contains: []string{"Message too big"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeMessage(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.absent {
				assert.False(t, strings.Contains(got, s), "%q still contains %q", got, s)
			}
		})
	}

	assert.Empty(t, sanitizeMessage(""))
}

func TestFromStream(t *testing.T) {
	tests := []struct {
		name   string
		state  stream.State
		code   int
		reason string
		want   string
	}{
		{name: "open", state: stream.StateOpen, want: StatusHealthy},
		{name: "connecting", state: stream.StateConnecting, want: StatusDegraded},
		{name: "going away", state: stream.StateClosed, code: stream.CloseGoingAway, reason: stream.ReasonGoingAway, want: StatusDegraded},
		{name: "normal", state: stream.StateClosed, code: stream.CloseNormal, want: StatusDegraded},
		{name: "too big", state: stream.StateClosed, code: stream.CloseMessageTooBig, reason: stream.ReasonTooBig, want: StatusUnhealthy},
		{name: "abnormal", state: stream.StateClosed, code: stream.CloseAbnormal, reason: "unexpected EOF", want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromStream("event_stream", tt.state, tt.code, tt.reason)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, "event_stream", got.Component)
			assert.Equal(t, tt.want == StatusHealthy, got.Healthy)
			if tt.reason != "" {
				assert.Contains(t, got.Message, tt.reason)
			}
		})
	}

	got := FromStream("event_stream", stream.StateClosed, stream.CloseAbnormal, "dial ws://salt:8000/ws/tok: refused")
	assert.NotContains(t, got.Message, "tok")
}

func TestFromNATS(t *testing.T) {
	assert.True(t, FromNATS("nats", natsbridge.StatusConnected).IsHealthy())
	assert.True(t, FromNATS("nats", natsbridge.StatusReconnecting).IsDegraded())
	assert.True(t, FromNATS("nats", natsbridge.StatusConnecting).IsDegraded())
	assert.True(t, FromNATS("nats", natsbridge.StatusDisconnected).IsUnhealthy())
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{name: "empty", want: StatusHealthy},
		{name: "all healthy", subs: []Status{NewHealthy("a", ""), NewHealthy("b", "")}, want: StatusHealthy},
		{name: "degraded", subs: []Status{NewHealthy("a", ""), NewDegraded("b", "")}, want: StatusDegraded},
		{name: "unhealthy wins", subs: []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("saltevents", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}

	got := Aggregate("saltevents", []Status{NewHealthy("z", ""), NewHealthy("a", "")})
	assert.Equal(t, "a", got.SubStatuses[0].Component)
	assert.Equal(t, "2 of 2 components healthy", got.Message)

	got = Aggregate("saltevents", []Status{NewUnhealthy("a", ""), NewDegraded("b", ""), NewUnhealthy("c", "")})
	assert.Equal(t, "2 of 3 components unhealthy", got.Message)

	got = Aggregate("saltevents", []Status{NewHealthy("a", ""), {Component: "b", Status: "bogus"}})
	assert.True(t, got.IsUnhealthy(), "unknown status ranks as unhealthy")
}

func TestStatus_WithSubStatus(t *testing.T) {
	base := NewHealthy("root", "")
	first := base.WithSubStatus(NewHealthy("a", ""))
	second := first.WithSubStatus(NewDegraded("b", ""))

	assert.Empty(t, base.SubStatuses)
	assert.Len(t, first.SubStatuses, 1)
	assert.Len(t, second.SubStatuses, 2)
}
