// Package errors provides standardized error handling patterns for saltstreams.
//
// # Overview
//
// The package implements a three-class error classification system: Transient
// (transport hiccups such as a dropped socket), Invalid (bad input such as an
// unparsable event envelope or an oversize message) and Fatal (unrecoverable
// states such as invalid configuration).
//
// Errors raised by the remote minions are not Go errors at all: they are the
// error branch of a result.Result and live in package salterror. This package
// only covers the failures of the client layer itself.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "EventStream", "Connect", "dial")
//	errors.WrapInvalid(err, "FrameAssembler", "Push", "append fragment")
//	errors.WrapFatal(err, "Config", "Validate", "check url")
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Integration with errors.As/Is
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    slog.Warn("classified failure", "component", ce.Component, "class", ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrMessageTooBig) {
//	    // the stream was closed with code 1009
//	}
//
// # Thread Safety
//
// Error variables are immutable and the ClassifiedError type is safe to share
// across goroutines after creation.
package errors
