// Package decode turns raw Salt API return values into typed results.
//
// Every decode first attempts a strict structural decode into the shape the
// caller declared. A value that does not fit is never reported as a Go error:
// it becomes the error branch of a result.Result, classified by salterror.
//
//	r := decode.Decode(raw, decode.JSON[map[string]string]())
//	r.Consume(
//	    func(e salterror.SaltError) { slog.Warn("minion failed", "error", e) },
//	    func(grains map[string]string) { use(grains) },
//	)
//
// All functions are pure and safe for concurrent use.
package decode

import (
	"encoding/json"

	"github.com/c360/saltstreams/result"
	"github.com/c360/saltstreams/salterror"
)

// Outcome is the result of decoding one minion's return value.
type Outcome[R any] = result.Result[salterror.SaltError, R]

// Decode attempts shape.Decode(raw). On failure the raw value is classified
// with salterror.Classify. A nil shape means JSON[R]().
func Decode[R any](raw json.RawMessage, shape Shape[R]) Outcome[R] {
	if shape == nil {
		shape = JSON[R]()
	}
	value, err := shape.Decode(raw)
	if err == nil {
		return result.Ok[salterror.SaltError](value)
	}
	return result.Err[salterror.SaltError, R](salterror.Classify(raw))
}
