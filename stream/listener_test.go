package stream

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/saltstreams/event"
)

type countingListener struct {
	events atomic.Int32
	closes atomic.Int32
	code   atomic.Int32
}

func (l *countingListener) Notify(event.Envelope) { l.events.Add(1) }

func (l *countingListener) StreamClosed(code int, _ string) {
	l.closes.Add(1)
	l.code.Store(int32(code))
}

type funcListener func(event.Envelope)

func (f funcListener) Notify(env event.Envelope) { f(env) }
func (f funcListener) StreamClosed(int, string) {}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry(nil)
	a, b := &countingListener{}, &countingListener{}

	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	assert.Equal(t, 2, r.Count())

	assert.True(t, r.Remove(a))
	assert.False(t, r.Remove(a))
	assert.Equal(t, 1, r.Count())

	assert.Equal(t, 1, r.NotifyAll(event.Envelope{Tag: "t"}))
	assert.Zero(t, a.events.Load())
	assert.Equal(t, int32(1), b.events.Load())
}

func TestRegistry_AddInvalid(t *testing.T) {
	r := NewRegistry(nil)

	assert.Error(t, r.Add(nil))
	assert.Error(t, r.Add(funcListener(func(event.Envelope) {})))
	assert.False(t, r.Remove(nil))
	assert.Zero(t, r.Count())
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry(nil)
	l := &countingListener{}

	require.NoError(t, r.Add(l))
	require.NoError(t, r.Add(l))
	r.NotifyAll(event.Envelope{Tag: "t"})
	assert.Equal(t, int32(2), l.events.Load())

	assert.True(t, r.Remove(l))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry(nil)
	late := &countingListener{}
	var self *ListenerFuncs
	self = &ListenerFuncs{
		OnEvent: func(event.Envelope) {
			// Changes made during a pass only affect the next pass.
			r.Remove(self)
			_ = r.Add(late)
		},
	}
	require.NoError(t, r.Add(self))

	notified := r.NotifyAll(event.Envelope{Tag: "first"})
	assert.Equal(t, 1, notified)
	assert.Zero(t, late.events.Load())

	notified = r.NotifyAll(event.Envelope{Tag: "second"})
	assert.Equal(t, 1, notified)
	assert.Equal(t, int32(1), late.events.Load())
}

func TestRegistry_CloseAllOnce(t *testing.T) {
	r := NewRegistry(nil)
	listeners := []*countingListener{{}, {}, {}}
	for _, l := range listeners {
		require.NoError(t, r.Add(l))
	}

	r.CloseAll(CloseGoingAway, ReasonGoingAway)
	r.CloseAll(CloseAbnormal, "again")

	for _, l := range listeners {
		assert.Equal(t, int32(1), l.closes.Load())
		assert.Equal(t, int32(CloseGoingAway), l.code.Load())
	}
	assert.Zero(t, r.Count())
}

func TestRegistry_RemoveDuringNotify(t *testing.T) {
	r := NewRegistry(nil)
	b := &countingListener{}
	a := &ListenerFuncs{OnEvent: func(event.Envelope) { r.Remove(b) }}
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))

	assert.Equal(t, 2, r.NotifyAll(event.Envelope{Tag: "first"}))
	assert.Equal(t, int32(1), b.events.Load(), "removal applies to the next pass")

	assert.Equal(t, 1, r.NotifyAll(event.Envelope{Tag: "second"}))
	assert.Equal(t, int32(1), b.events.Load())
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_CloseAllDuringNotify(t *testing.T) {
	r := NewRegistry(nil)
	b := &countingListener{}
	a := &ListenerFuncs{OnEvent: func(event.Envelope) { r.CloseAll(CloseGoingAway, ReasonGoingAway) }}
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))

	assert.Equal(t, 1, r.NotifyAll(event.Envelope{Tag: "t"}))
	assert.Zero(t, b.events.Load())
	assert.Equal(t, int32(1), b.closes.Load())

	late := &countingListener{}
	require.NoError(t, r.Add(late))
	assert.Equal(t, 1, r.NotifyAll(event.Envelope{Tag: "t"}), "later passes run normally")
	assert.Equal(t, int32(1), late.events.Load())
}

func TestRegistry_PanickingListener(t *testing.T) {
	r := NewRegistry(nil)
	after := &countingListener{}
	require.NoError(t, r.Add(&ListenerFuncs{
		OnEvent: func(event.Envelope) { panic("boom") },
		OnClose: func(int, string) { panic("boom") },
	}))
	require.NoError(t, r.Add(after))

	assert.NotPanics(t, func() {
		r.NotifyAll(event.Envelope{Tag: "t"})
		r.CloseAll(CloseNormal, "")
	})
	assert.Equal(t, int32(1), after.events.Load())
	assert.Equal(t, int32(1), after.closes.Load())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(nil)
	stable := &countingListener{}
	require.NoError(t, r.Add(stable))

	const workers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				l := &countingListener{}
				_ = r.Add(l)
				r.Remove(l)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			r.NotifyAll(event.Envelope{Tag: "t"})
		}
	}()

	wg.Wait()
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, int32(rounds), stable.events.Load())
}
