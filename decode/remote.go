package decode

import (
	"bytes"
	"encoding/json"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/result"
	"github.com/c360/saltstreams/salterror"
)

// RemoteExecResult is the per-minion envelope returned by the salt-ssh client.
type RemoteExecResult[R any] struct {
	Function  string
	Args      []any
	ID        string
	JobID     string
	RetCode   int
	Return    R
	HasReturn bool
	Stdout    *string
	Stderr    *string
}

// StderrText returns the captured stderr or "".
func (r RemoteExecResult[R]) StderrText() string {
	if r.Stderr == nil {
		return ""
	}
	return *r.Stderr
}

// StdoutText returns the captured stdout or "".
func (r RemoteExecResult[R]) StdoutText() string {
	if r.Stdout == nil {
		return ""
	}
	return *r.Stdout
}

type remoteEnvelope struct {
	Function string          `json:"fun"`
	Args     []any           `json:"fun_args"`
	ID       string          `json:"id"`
	JobID    string          `json:"jid"`
	RetCode  int             `json:"retcode"`
	Return   json.RawMessage `json:"return"`
	Stdout   *string         `json:"stdout"`
	Stderr   *string         `json:"stderr"`
}

// DecodeRemote decodes a salt-ssh envelope with a typed return payload.
//
// The typed attempt succeeds only if the envelope and payload decode and the
// payload is present or the exit code is non-zero. Otherwise the envelope is
// decoded again with an opaque payload so the exit code and stderr survive a
// malformed payload: a non-zero exit is classified from stderr, anything else
// becomes a ParsingError carrying the typed attempt's error.
func DecodeRemote[R any](raw json.RawMessage, shape Shape[R]) Outcome[RemoteExecResult[R]] {
	if shape == nil {
		shape = JSON[R]()
	}

	typed, err := decodeRemote(raw, shape)
	if err == nil {
		if typed.HasReturn || typed.RetCode != 0 {
			return result.Ok[salterror.SaltError](typed)
		}
		err = errors.WrapInvalid(errors.ErrMissingReturn, "decode", "DecodeRemote", "check return payload")
	}

	opaque, envErr := decodeRemote[json.RawMessage](raw, JSON[json.RawMessage]())
	if envErr == nil && opaque.RetCode != 0 {
		return result.Err[salterror.SaltError, RemoteExecResult[R]](
			salterror.ClassifyStderr(opaque.RetCode, opaque.StderrText()))
	}

	return result.Err[salterror.SaltError, RemoteExecResult[R]](salterror.ParsingError{
		Raw:   append(json.RawMessage(nil), raw...),
		Cause: err,
	})
}

func decodeRemote[R any](raw json.RawMessage, shape Shape[R]) (RemoteExecResult[R], error) {
	var out RemoteExecResult[R]

	env, err := JSON[*remoteEnvelope]().Decode(raw)
	if err != nil {
		return out, err
	}
	if env == nil {
		return out, errors.WrapInvalid(errors.ErrNullValue, "decode", "decodeRemote", "read envelope")
	}

	out = RemoteExecResult[R]{
		Function: env.Function,
		Args:     env.Args,
		ID:       env.ID,
		JobID:    env.JobID,
		RetCode:  env.RetCode,
		Stdout:   env.Stdout,
		Stderr:   env.Stderr,
	}

	if present(env.Return) {
		value, err := shape.Decode(env.Return)
		if err != nil {
			return RemoteExecResult[R]{}, errors.Wrap(err, "decode", "decodeRemote", "decode return payload")
		}
		out.Return = value
		out.HasReturn = true
	}

	return out, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
