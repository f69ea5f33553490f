// Package salterror defines the closed set of errors a minion can report in
// place of a typed return value, and the heuristics that recognise them.
//
// Salt does not version its error strings. The patterns below match what
// salt-api returns today and are a best-effort classification, not a protocol
// guarantee. Anything unrecognised falls back to Generic (or ParsingError for
// remote-shell envelopes) with the raw payload attached, so nothing is lost.
package salterror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// TracebackSentinel is the first line salt emits when a minion function raised.
const TracebackSentinel = "The minion function caused an exception: Traceback (most recent call last):"

var (
	functionNotAvailablePattern = regexp.MustCompile(`'([^']+)' is not available\.`)
	moduleNotSupportedPattern   = regexp.MustCompile(`'([^']+)' __virtual__ returned False`)
)

// SaltError is implemented only by the variants in this package.
type SaltError interface {
	error
	saltError()
}

// FunctionNotAvailable reports that the called function does not exist on the minion.
type FunctionNotAvailable struct {
	Name string
}

func (e FunctionNotAvailable) Error() string {
	return fmt.Sprintf("function '%s' is not available", e.Name)
}

// ModuleNotSupported reports that the execution module refused to load.
type ModuleNotSupported struct {
	Name string
}

func (e ModuleNotSupported) Error() string {
	return fmt.Sprintf("module '%s' is not supported", e.Name)
}

// StackTrace carries a python traceback raised by the minion function.
type StackTrace struct {
	Text string
}

func (e StackTrace) Error() string {
	return "minion function raised: " + lastLine(e.Text)
}

// Generic is the catch-all: the raw value that could not be decoded or classified.
type Generic struct {
	Raw json.RawMessage
}

func (e Generic) Error() string {
	return "unexpected return value: " + truncate(string(e.Raw), 200)
}

// RemoteExecError is a non-zero exit from the remote-shell transport that
// matched no known stderr pattern.
type RemoteExecError struct {
	Code   int
	Stderr string
}

func (e RemoteExecError) Error() string {
	return fmt.Sprintf("remote execution exited with code %d: %s", e.Code, truncate(e.Stderr, 200))
}

// ParsingError is a remote-shell envelope that could not be decoded at all.
type ParsingError struct {
	Raw   json.RawMessage
	Cause error
}

func (e ParsingError) Error() string {
	if e.Cause == nil {
		return "parsing remote result failed"
	}
	return "parsing remote result failed: " + e.Cause.Error()
}

func (e ParsingError) Unwrap() error {
	return e.Cause
}

func (FunctionNotAvailable) saltError() {}
func (ModuleNotSupported) saltError()   {}
func (StackTrace) saltError()           {}
func (Generic) saltError()              {}
func (RemoteExecError) saltError()      {}
func (ParsingError) saltError()         {}

// Classify assigns the most specific variant to a raw value that failed to
// decode. Checks run in a fixed order and the first match wins:
// FunctionNotAvailable, ModuleNotSupported, StackTrace, Generic.
// Only JSON strings can match the textual patterns. Classify never fails.
func Classify(raw json.RawMessage) SaltError {
	text, ok := asString(raw)
	if !ok {
		return Generic{Raw: cloneRaw(raw)}
	}
	if e, ok := matchText(text); ok {
		return e
	}
	if e, ok := matchTraceback(text); ok {
		return e
	}
	return Generic{Raw: cloneRaw(raw)}
}

// ClassifyStderr classifies the captured stderr of a failed remote-shell call.
// Only the function and module patterns apply; anything else becomes a
// RemoteExecError with the exit code.
func ClassifyStderr(code int, stderr string) SaltError {
	if e, ok := matchText(stderr); ok {
		return e
	}
	return RemoteExecError{Code: code, Stderr: stderr}
}

func matchText(text string) (SaltError, bool) {
	if m := functionNotAvailablePattern.FindStringSubmatch(text); m != nil {
		return FunctionNotAvailable{Name: m[1]}, true
	}
	if m := moduleNotSupportedPattern.FindStringSubmatch(text); m != nil {
		return ModuleNotSupported{Name: m[1]}, true
	}
	return nil, false
}

func matchTraceback(text string) (SaltError, bool) {
	lines := strings.Split(text, "\n")
	if strings.TrimRight(lines[0], "\r") != TracebackSentinel {
		return nil, false
	}
	return StackTrace{Text: strings.Join(lines[1:], "\n")}, true
}

func asString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func lastLine(text string) string {
	text = strings.TrimRight(text, "\n")
	if i := strings.LastIndex(text, "\n"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
