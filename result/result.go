// Package result provides a two-branch value that holds either an error value
// of type E or a success value of type R.
//
// Decoders in this module never return Go errors for remote failures. They
// return a Result whose error branch carries a classified salterror.SaltError,
// so callers are forced to handle the absence of a typed value.
//
// Go methods cannot introduce type parameters, so the transforming operations
// (Map, FlatMap, Fold) are package functions:
//
//	doubled := result.Map(r, func(n int) int { return n * 2 })
//	msg := result.Fold(doubled,
//	    func(e salterror.SaltError) string { return e.Error() },
//	    func(n int) string { return strconv.Itoa(n) },
//	)
package result

import "fmt"

// Result is either Err(E) or Ok(R). The zero value is an Err holding the zero E.
type Result[E, R any] struct {
	err E
	val R
	ok  bool
}

// Ok returns a success result.
func Ok[E, R any](value R) Result[E, R] {
	return Result[E, R]{val: value, ok: true}
}

// Err returns an error result.
func Err[E, R any](err E) Result[E, R] {
	return Result[E, R]{err: err}
}

// IsOk reports whether r holds a success value.
func (r Result[E, R]) IsOk() bool {
	return r.ok
}

// IsErr reports whether r holds an error value.
func (r Result[E, R]) IsErr() bool {
	return !r.ok
}

// Value returns the success value and true, or the zero R and false.
func (r Result[E, R]) Value() (R, bool) {
	if !r.ok {
		var zero R
		return zero, false
	}
	return r.val, true
}

// Err returns the error value and true, or the zero E and false.
func (r Result[E, R]) Err() (E, bool) {
	if r.ok {
		var zero E
		return zero, false
	}
	return r.err, true
}

// ValueOr returns the success value or fallback.
func (r Result[E, R]) ValueOr(fallback R) R {
	if r.ok {
		return r.val
	}
	return fallback
}

// Consume runs onErr or onOk depending on the branch. A nil callback is skipped.
func (r Result[E, R]) Consume(onErr func(E), onOk func(R)) {
	if r.ok {
		if onOk != nil {
			onOk(r.val)
		}
		return
	}
	if onErr != nil {
		onErr(r.err)
	}
}

// String implements fmt.Stringer.
func (r Result[E, R]) String() string {
	if r.ok {
		return fmt.Sprintf("Ok(%v)", r.val)
	}
	return fmt.Sprintf("Err(%v)", r.err)
}

// Map applies f to the success value. The error branch passes through unchanged.
func Map[E, R, R2 any](r Result[E, R], f func(R) R2) Result[E, R2] {
	if !r.ok {
		return Err[E, R2](r.err)
	}
	return Ok[E](f(r.val))
}

// FlatMap applies f to the success value and returns its result.
func FlatMap[E, R, R2 any](r Result[E, R], f func(R) Result[E, R2]) Result[E, R2] {
	if !r.ok {
		return Err[E, R2](r.err)
	}
	return f(r.val)
}

// MapErr applies f to the error value. The success branch passes through unchanged.
func MapErr[E, E2, R any](r Result[E, R], f func(E) E2) Result[E2, R] {
	if r.ok {
		return Ok[E2](r.val)
	}
	return Err[E2, R](f(r.err))
}

// Fold collapses both branches into a single value.
func Fold[E, R, T any](r Result[E, R], onErr func(E) T, onOk func(R) T) T {
	if r.ok {
		return onOk(r.val)
	}
	return onErr(r.err)
}
