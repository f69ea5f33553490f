package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/event"
	"github.com/c360/saltstreams/metric"
	"github.com/c360/saltstreams/pkg/tlsutil"
)

// State is the lifecycle state of an EventStream
type State int32

const (
	// StateConnecting is the state while the websocket handshake runs
	StateConnecting State = iota
	// StateOpen is the state while events are being delivered
	StateOpen
	// StateClosed is terminal
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures an EventStream
type Option func(*EventStream)

// WithLogger sets the logger. The stream adds a stream_id attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(s *EventStream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics registers stream metrics with registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *EventStream) {
		s.metricsRegistry = registry
	}
}

// WithListeners registers listeners before the stream opens, so they
// observe every event and handshake failures.
func WithListeners(listeners ...Listener) Option {
	return func(s *EventStream) {
		s.initial = append(s.initial, listeners...)
	}
}

// WithDialer replaces the websocket dialer used by Connect
func WithDialer(dialer *websocket.Dialer) Option {
	return func(s *EventStream) {
		s.dialer = dialer
	}
}

// EventStream delivers salt-api events from a websocket to listeners.
//
// A single reader goroutine assembles fragments, parses envelopes and calls
// the listeners. Listener management and Close are safe from any goroutine,
// including from inside a listener callback.
type EventStream struct {
	id     string
	cfg    Config
	logger *slog.Logger

	metricsRegistry *metric.MetricsRegistry
	metrics         *Metrics
	dialer          *websocket.Dialer
	initial         []Listener

	registry  *Registry
	assembler *FrameAssembler
	conn      Conn

	state   atomic.Int32
	closing atomic.Bool
	done    chan struct{}

	mu          sync.Mutex
	closeCode   int
	closeReason string
}

func newEventStream(cfg Config, opts []Option) (*EventStream, error) {
	s := &EventStream{
		id:     uuid.New().String(),
		cfg:    cfg,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("stream_id", s.id)
	s.metrics = newMetrics(s.metricsRegistry, s.id)
	s.registry = NewRegistry(s.logger)
	s.assembler = NewFrameAssembler(cfg.MaxMessageLength)
	s.assembler.OnKeepAlive = s.metrics.keepAlive

	for _, l := range s.initial {
		if err := s.registry.Add(l); err != nil {
			s.metrics.unregister()
			return nil, errors.Wrap(err, "EventStream", "newEventStream", "register initial listener")
		}
	}
	s.initial = nil
	s.metrics.setListeners(s.registry.Count())
	s.setState(StateConnecting)
	return s, nil
}

// Connect dials the salt-api event stream described by cfg and starts
// delivering events. A failed handshake closes the stream with CloseAbnormal
// before the error is returned.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*EventStream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	s, err := newEventStream(cfg, opts)
	if err != nil {
		return nil, err
	}

	dialer := s.dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		}
		if !cfg.TLS.IsZero() {
			tlsConfig, err := tlsutil.LoadClientConfig(cfg.TLS)
			if err != nil {
				s.shutdown(CloseAbnormal, err.Error())
				return nil, err
			}
			dialer.TLSClientConfig = tlsConfig
		}
	}

	s.logger.Debug("Connecting to event stream", "url", cfg.URL)
	wsConn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w: %s: %w", errors.ErrHandshakeFailed, resp.Status, err)
		} else {
			err = fmt.Errorf("%w: %w", errors.ErrHandshakeFailed, err)
		}
		s.shutdown(CloseAbnormal, err.Error())
		return nil, errors.WrapTransient(err, "EventStream", "Connect", "dial websocket")
	}

	if err := s.open(NewWebsocketConn(wsConn, cfg.chunkSize(), s.logger)); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs an EventStream over an already established connection.
func Start(conn Conn, cfg Config, opts ...Option) (*EventStream, error) {
	if conn == nil {
		return nil, errors.WrapInvalid(errors.ErrNotConnected, "EventStream", "Start", "validate connection")
	}
	if cfg.MaxMessageLength < 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: max_message_length must not be negative", errors.ErrInvalidConfig),
			"EventStream", "Start", "validate config")
	}

	s, err := newEventStream(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := s.open(conn); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EventStream) open(conn Conn) error {
	s.conn = conn
	s.setState(StateOpen)
	s.logger.Info("Event stream open")

	if err := conn.WriteText(ReadyMessage); err != nil {
		s.shutdown(CloseAbnormal, err.Error())
		return errors.WrapTransient(err, "EventStream", "open", "send ready message")
	}

	go s.readLoop()
	return nil
}

func (s *EventStream) readLoop() {
	for {
		fragment, final, err := s.conn.ReadFragment()
		if err != nil {
			s.handleReadError(err)
			return
		}
		if s.IsClosed() {
			return
		}
		s.metrics.frame()

		message, ok, err := s.assembler.Push(fragment, final)
		if err != nil {
			s.metrics.tooBig()
			s.logger.Warn("Event message exceeds size limit", "limit", s.cfg.MaxMessageLength, "error", err)
			s.shutdown(CloseMessageTooBig, ReasonTooBig)
			return
		}
		if !ok {
			continue
		}
		s.metrics.message()

		env, err := event.ParseMessage(message)
		if err != nil {
			s.metrics.parseError()
			s.logger.Warn("Failed to parse event", "error", err)
			s.shutdown(CloseAbnormal, err.Error())
			return
		}

		if s.IsClosed() {
			return
		}
		if s.metricsRegistry != nil {
			s.metricsRegistry.CoreMetrics().RecordEventReceived(s.id, env.Category())
		}
		s.registry.NotifyAll(env)
	}
}

func (s *EventStream) handleReadError(err error) {
	if s.IsClosed() {
		return
	}

	var closeErr *CloseError
	if stderrors.As(err, &closeErr) {
		s.logger.Info("Event stream closed by peer", "code", closeErr.Code, "reason", closeErr.Text)
		s.shutdown(closeErr.Code, closeErr.Text)
		return
	}

	s.logger.Warn("Event stream read failed", "error", err)
	s.shutdown(CloseAbnormal, err.Error())
}

// shutdown moves the stream to StateClosed exactly once and notifies every
// listener. It reports whether this call performed the transition. A
// listener may call Close from StreamClosed; that call returns at once.
func (s *EventStream) shutdown(code int, reason string) bool {
	if !s.closing.CompareAndSwap(false, true) {
		return false
	}

	s.mu.Lock()
	s.closeCode = code
	s.closeReason = reason
	s.mu.Unlock()
	s.setState(StateClosed)

	if s.conn != nil {
		if err := s.conn.Close(code, reason); err != nil {
			s.logger.Debug("Error closing connection", "error", err)
		}
	}

	s.metrics.closed(code)
	if s.metricsRegistry != nil {
		s.metricsRegistry.CoreMetrics().RecordStreamClose(s.id, code)
	}
	s.logger.Info("Event stream closed", "code", code, "reason", reason)

	s.registry.CloseAll(code, reason)
	s.metrics.setListeners(0)
	s.metrics.unregister()
	close(s.done)
	return true
}

func (s *EventStream) setState(state State) {
	s.state.Store(int32(state))
	if s.metricsRegistry != nil {
		s.metricsRegistry.CoreMetrics().RecordStreamStatus(s.id, int(state))
	}
}

// ID returns the stream's unique identifier
func (s *EventStream) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *EventStream) State() State {
	return State(s.state.Load())
}

// IsClosed reports whether the stream has reached StateClosed
func (s *EventStream) IsClosed() bool {
	return s.State() == StateClosed
}

// Close closes the stream with CloseGoingAway. Closing a closed stream is a no-op.
func (s *EventStream) Close() error {
	return s.CloseWith(CloseGoingAway, ReasonGoingAway)
}

// CloseWith closes the stream with the given code and reason.
// Closing a closed stream is a no-op. Connection errors during close are
// logged, not returned, so the error is always nil; the signature matches
// io.Closer-style callers.
func (s *EventStream) CloseWith(code int, reason string) error {
	if s.IsClosed() {
		return nil
	}
	s.shutdown(code, reason)
	return nil
}

// AddListener registers l. It fails with errors.ErrStreamClosed once the
// stream is closed; a listener accepted while the stream closes still
// receives StreamClosed.
func (s *EventStream) AddListener(l Listener) error {
	if s.IsClosed() {
		return errors.WrapInvalid(errors.ErrStreamClosed, "EventStream", "AddListener", "check state")
	}
	if err := s.registry.Add(l); err != nil {
		return err
	}
	if s.IsClosed() && s.registry.Remove(l) {
		return errors.WrapInvalid(errors.ErrStreamClosed, "EventStream", "AddListener", "check state")
	}
	s.metrics.setListeners(s.registry.Count())
	return nil
}

// RemoveListener unregisters l and reports whether it was registered
func (s *EventStream) RemoveListener(l Listener) bool {
	removed := s.registry.Remove(l)
	if removed {
		s.metrics.setListeners(s.registry.Count())
	}
	return removed
}

// ListenerCount returns the number of registered listeners
func (s *EventStream) ListenerCount() int {
	return s.registry.Count()
}

// Done is closed once the stream has closed and all listeners were notified
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the stream closes or ctx is done
func (s *EventStream) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseStatus returns the close code and reason once the stream is closed
func (s *EventStream) CloseStatus() (code int, reason string, ok bool) {
	if !s.IsClosed() {
		return 0, "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeReason, true
}
