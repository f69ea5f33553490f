package stream

import (
	"fmt"
	"strings"

	"github.com/c360/saltstreams/errors"
)

const (
	// ReadyMessage is sent once the websocket handshake completes.
	ReadyMessage = "websocket client ready"

	// KeepAliveMessage acknowledges ReadyMessage and carries no event.
	KeepAliveMessage = "server received message"
)

// FrameAssembler joins text fragments into complete messages.
//
// It is Idle until a non-final fragment arrives, Accumulating until the final
// fragment arrives, and Idle again after emitting the message. It is not safe
// for concurrent use; the stream's reader goroutine is its only caller.
type FrameAssembler struct {
	maxSize      int
	buf          strings.Builder
	accumulating bool

	// OnKeepAlive, if set, is called for every swallowed KeepAliveMessage.
	OnKeepAlive func()
}

// NewFrameAssembler creates an assembler. maxSize <= 0 means unbounded.
func NewFrameAssembler(maxSize int) *FrameAssembler {
	return &FrameAssembler{maxSize: maxSize}
}

// Push adds a fragment. It returns the complete message and true when final
// is set, unless the message is KeepAliveMessage. A fragment that would grow
// the message past the maximum resets the assembler and fails with
// errors.ErrMessageTooBig.
func (a *FrameAssembler) Push(fragment string, final bool) (string, bool, error) {
	if a.maxSize > 0 && len(fragment) > a.maxSize-a.buf.Len() {
		size := a.buf.Len() + len(fragment)
		a.Reset()
		return "", false, errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes exceeds limit of %d", errors.ErrMessageTooBig, size, a.maxSize),
			"FrameAssembler", "Push", "append fragment")
	}

	if !final {
		a.buf.WriteString(fragment)
		a.accumulating = true
		return "", false, nil
	}

	message := fragment
	if a.accumulating {
		a.buf.WriteString(fragment)
		message = a.buf.String()
	}
	a.Reset()

	if message == KeepAliveMessage {
		if a.OnKeepAlive != nil {
			a.OnKeepAlive()
		}
		return "", false, nil
	}
	return message, true, nil
}

// Reset discards any partial message.
func (a *FrameAssembler) Reset() {
	a.buf.Reset()
	a.accumulating = false
}

// Accumulating reports whether a partial message is buffered.
func (a *FrameAssembler) Accumulating() bool {
	return a.accumulating
}

// Buffered returns the size of the partial message in bytes.
func (a *FrameAssembler) Buffered() int {
	return a.buf.Len()
}
