// Package errors provides standardized error handling patterns for saltstreams.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping across the decoders and the event stream.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors, typically transport failures
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

var classNames = [...]string{
	ErrorTransient: "transient",
	ErrorInvalid:   "invalid",
	ErrorFatal:     "fatal",
}

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	if ec < 0 || int(ec) >= len(classNames) {
		return "unknown"
	}
	return classNames[ec]
}

// Event stream lifecycle errors
var (
	ErrStreamClosed     = errors.New("event stream closed")
	ErrNotConnected     = errors.New("event stream not connected")
	ErrHandshakeFailed  = errors.New("websocket handshake failed")
	ErrConnectionLost   = errors.New("connection lost")
	ErrMessageTooBig    = errors.New("message too big")
	ErrInvalidEnvelope  = errors.New("invalid event envelope")
	ErrNilListener      = errors.New("nil listener")
	ErrPublisherMissing = errors.New("publisher not configured")
)

// Decoding errors
var (
	ErrInvalidData    = errors.New("invalid data format")
	ErrParsingFailed  = errors.New("parsing failed")
	ErrNullValue      = errors.New("null value for non-nullable shape")
	ErrMissingReturn  = errors.New("zero exit code without return payload")
	ErrSchemaMismatch = errors.New("value does not satisfy schema")
)

// Configuration errors
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")
)

// sentinelClasses maps well-known errors to their class when they reach a
// caller unclassified. Order matters: the first match wins.
var sentinelClasses = []struct {
	err   error
	class ErrorClass
}{
	{ErrConnectionLost, ErrorTransient},
	{ErrHandshakeFailed, ErrorTransient},
	{context.DeadlineExceeded, ErrorTransient},
	{context.Canceled, ErrorTransient},

	{ErrInvalidConfig, ErrorFatal},
	{ErrMissingConfig, ErrorFatal},
	{ErrStreamClosed, ErrorFatal},

	{ErrInvalidData, ErrorInvalid},
	{ErrParsingFailed, ErrorInvalid},
	{ErrInvalidEnvelope, ErrorInvalid},
	{ErrMessageTooBig, ErrorInvalid},
	{ErrNullValue, ErrorInvalid},
	{ErrMissingReturn, ErrorInvalid},
	{ErrSchemaMismatch, ErrorInvalid},
}

// Substrings of error text from dependencies that expose no sentinel
// (net, gorilla/websocket, nats.go).
var (
	transientHints = []string{"timeout", "connection", "network", "temporary", "unavailable", "broken pipe"}
	fatalHints     = []string{"fatal", "panic", "invalid config", "missing config"}
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// ClassOf reports the class of err and whether it could be determined.
// An explicit ClassifiedError wins over sentinels, sentinels win over
// text hints.
func ClassOf(err error) (ErrorClass, bool) {
	if err == nil {
		return ErrorTransient, false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}

	for _, s := range sentinelClasses {
		if errors.Is(err, s.err) {
			return s.class, true
		}
	}

	text := strings.ToLower(err.Error())
	if containsAny(text, transientHints) {
		return ErrorTransient, true
	}
	if containsAny(text, fatalHints) {
		return ErrorFatal, true
	}
	return ErrorTransient, false
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func is(err error, class ErrorClass) bool {
	c, ok := ClassOf(err)
	return ok && c == class
}

// IsTransient checks if an error is transient
func IsTransient(err error) bool { return is(err, ErrorTransient) }

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool { return is(err, ErrorFatal) }

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool { return is(err, ErrorInvalid) }

// Classify returns the error class for an error. Unknown errors are
// treated as transient.
func Classify(err error) ErrorClass {
	c, _ := ClassOf(err)
	return c
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}
