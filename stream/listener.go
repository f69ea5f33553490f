package stream

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/event"
)

// Listener receives events from an EventStream.
//
// Notify is called from the stream's reader goroutine, one event at a time.
// StreamClosed is called exactly once when the stream terminates. Listeners
// may add or remove listeners, including themselves, from either callback.
type Listener interface {
	Notify(env event.Envelope)
	StreamClosed(code int, reason string)
}

// ListenerFuncs adapts a pair of functions to Listener. Register it by
// pointer so it can be removed again.
type ListenerFuncs struct {
	OnEvent func(env event.Envelope)
	OnClose func(code int, reason string)
}

// Notify calls OnEvent if set.
func (f *ListenerFuncs) Notify(env event.Envelope) {
	if f.OnEvent != nil {
		f.OnEvent(env)
	}
}

// StreamClosed calls OnClose if set.
func (f *ListenerFuncs) StreamClosed(code int, reason string) {
	if f.OnClose != nil {
		f.OnClose(code, reason)
	}
}

// Registry is a copy-on-write set of listeners.
//
// Readers load an immutable snapshot without locking. Writers serialize on a
// mutex and publish a new slice, so a NotifyAll pass is never affected by
// registrations made while it runs. A CloseAll during a pass ends that pass:
// no listener is notified after its StreamClosed.
type Registry struct {
	mu        sync.Mutex
	listeners atomic.Pointer[[]Listener]
	closes    atomic.Uint64
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger means slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	r.listeners.Store(&[]Listener{})
	return r
}

func (r *Registry) snapshot() []Listener {
	return *r.listeners.Load()
}

// Add registers l. Listeners must be comparable, typically pointers.
// Adding a listener twice registers it twice.
func (r *Registry) Add(l Listener) error {
	if l == nil {
		return errors.WrapInvalid(errors.ErrNilListener, "Registry", "Add", "validate listener")
	}
	if t := reflect.TypeOf(l); !t.Comparable() {
		return errors.WrapInvalid(
			fmt.Errorf("listener type %s is not comparable", t),
			"Registry", "Add", "validate listener")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snapshot()
	next := make([]Listener, len(current), len(current)+1)
	copy(next, current)
	next = append(next, l)
	r.listeners.Store(&next)
	return nil
}

// Remove unregisters the first registration of l and reports whether it was found.
func (r *Registry) Remove(l Listener) bool {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snapshot()
	for i, existing := range current {
		if existing == l {
			next := make([]Listener, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			r.listeners.Store(&next)
			return true
		}
	}
	return false
}

// Count returns the number of registered listeners.
func (r *Registry) Count() int {
	return len(r.snapshot())
}

// NotifyAll delivers env to every listener registered when the call started
// and returns how many were notified. A panicking listener is logged and
// skipped. The pass stops early if CloseAll runs before it finishes.
func (r *Registry) NotifyAll(env event.Envelope) int {
	epoch := r.closes.Load()
	listeners := r.snapshot()
	notified := 0
	for _, l := range listeners {
		if r.closes.Load() != epoch {
			break
		}
		r.safeNotify(l, env)
		notified++
	}
	return notified
}

// CloseAll empties the registry and calls StreamClosed once on every listener
// that was registered. Listeners added afterwards stay registered but are
// only notified by a later CloseAll.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.Lock()
	listeners := r.snapshot()
	r.listeners.Store(&[]Listener{})
	r.closes.Add(1)
	r.mu.Unlock()

	for _, l := range listeners {
		r.safeClose(l, code, reason)
	}
}

func (r *Registry) safeNotify(l Listener, env event.Envelope) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Listener panicked in Notify", "tag", env.Tag, "panic", p)
		}
	}()
	l.Notify(env)
}

func (r *Registry) safeClose(l Listener, code int, reason string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Listener panicked in StreamClosed", "code", code, "panic", p)
		}
	}()
	l.StreamClosed(code, reason)
}
