package natsbridge

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/event"
	"github.com/c360/saltstreams/metric"
)

// DefaultPrefix is the subject prefix used when none is configured
const DefaultPrefix = "salt"

const serviceName = "natsbridge"

// Publisher publishes raw messages. *nats.Conn and *Client satisfy it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type flusher interface {
	Flush() error
}

// Option configures a Listener
type Option func(*Listener)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records published events and failures in the core metrics
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(l *Listener) {
		if registry != nil {
			l.metrics = registry.CoreMetrics()
		}
	}
}

// WithEncoding sets the wire format of published envelopes
func WithEncoding(enc Encoding) Option {
	return func(l *Listener) {
		if enc != "" {
			l.encoding = enc
		}
	}
}

// Listener forwards salt events to NATS.
//
// Each envelope is published as JSON (or msgpack) on <prefix>.<tag tokens>, so
// salt/job/123/ret/minion1 becomes salt.job.123.ret.minion1. Publish
// failures are logged and counted; they never close the event stream.
type Listener struct {
	publisher Publisher
	prefix    string
	encoding  Encoding
	logger    *slog.Logger
	metrics   *metric.Metrics

	published atomic.Int64
	failed    atomic.Int64

	// failures are logged for the first few events, then at most once
	// per interval while NATS stays unreachable
	failureLog rate.Sometimes
}

// NewListener creates a Listener publishing through p under prefix.
// An empty prefix uses DefaultPrefix.
func NewListener(p Publisher, prefix string, opts ...Option) (*Listener, error) {
	if p == nil {
		return nil, errors.WrapInvalid(errors.ErrPublisherMissing, "Listener", "NewListener", "check publisher")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if err := validatePrefix(prefix); err != nil {
		return nil, errors.WrapInvalid(err, "Listener", "NewListener", "validate prefix")
	}

	l := &Listener{
		publisher: p,
		prefix:    prefix,
		encoding:  EncodingJSON,
		logger:    slog.Default(),

		failureLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	if _, err := ParseEncoding(string(l.encoding)); err != nil {
		return nil, errors.WrapInvalid(err, "Listener", "NewListener", "validate encoding")
	}
	l.logger = l.logger.With("component", serviceName)
	return l, nil
}

func validatePrefix(prefix string) error {
	for _, token := range strings.Split(prefix, ".") {
		if token == "" || token != sanitizeToken(token) {
			return fmt.Errorf("%w: invalid subject prefix %q", errors.ErrInvalidConfig, prefix)
		}
	}
	return nil
}

// Subject maps an event tag to a NATS subject under the listener's prefix
func (l *Listener) Subject(tag string) string {
	return Subject(l.prefix, tag)
}

// Subject maps an event tag to a NATS subject under prefix.
// Tag segments become subject tokens; characters NATS reserves inside a
// token are replaced with '_', as are empty segments.
func Subject(prefix, tag string) string {
	segments := strings.Split(tag, "/")
	tokens := make([]string, 0, len(segments)+1)
	tokens = append(tokens, prefix)
	for _, segment := range segments {
		tokens = append(tokens, sanitizeToken(segment))
	}
	return strings.Join(tokens, ".")
}

func sanitizeToken(token string) string {
	if token == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '*' || r == '>' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, token)
}

// Notify publishes env
func (l *Listener) Notify(env event.Envelope) {
	subject := l.Subject(env.Tag)

	data, err := l.encoding.marshal(env)
	if err != nil {
		l.recordFailure(subject, "marshal", err)
		return
	}

	if err := l.publisher.Publish(subject, data); err != nil {
		l.recordFailure(subject, "publish", err)
		return
	}

	l.published.Add(1)
	if l.metrics != nil {
		l.metrics.RecordEventPublished(serviceName)
	}
}

func (l *Listener) recordFailure(subject, kind string, err error) {
	l.failed.Add(1)
	if l.metrics != nil {
		l.metrics.RecordError(serviceName, kind)
	}
	l.failureLog.Do(func() {
		l.logger.Warn("Failed to forward event",
			"subject", subject, "stage", kind, "error", err, "failed_total", l.failed.Load())
	})
}

// StreamClosed flushes the publisher if it supports flushing
func (l *Listener) StreamClosed(code int, reason string) {
	l.logger.Info("Event stream closed, flushing",
		"code", code, "reason", reason,
		"published", l.published.Load(), "failed", l.failed.Load())

	if f, ok := l.publisher.(flusher); ok {
		if err := f.Flush(); err != nil {
			l.logger.Warn("Flush failed", "error", err)
		}
	}
}

// Published returns the number of events published
func (l *Listener) Published() int64 {
	return l.published.Load()
}

// Failed returns the number of events that could not be published
func (l *Listener) Failed() int64 {
	return l.failed.Load()
}
