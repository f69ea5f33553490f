package decode

import (
	"encoding/json"
	"fmt"

	"github.com/c360/saltstreams/errors"
)

// Strategy selects how each per-target value in a response body is decoded.
type Strategy int

const (
	// StrategyPlain decodes strictly; any mismatch fails the whole body.
	StrategyPlain Strategy = iota
	// StrategySum decodes into an Outcome per target.
	StrategySum
	// StrategyRemote decodes salt-ssh envelopes into an Outcome per target.
	StrategyRemote
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyPlain:
		return "plain"
	case StrategySum:
		return "sum"
	case StrategyRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Returns holds a decoded response body. Only the slice matching Strategy is set.
// Each slice element corresponds to one entry of the body's "return" list.
type Returns[R any] struct {
	Strategy Strategy
	Plain    []map[string]R
	Sum      []map[string]Outcome[R]
	Remote   []map[string]Outcome[RemoteExecResult[R]]
}

// Len returns the number of return entries.
func (r Returns[R]) Len() int {
	switch r.Strategy {
	case StrategyPlain:
		return len(r.Plain)
	case StrategySum:
		return len(r.Sum)
	case StrategyRemote:
		return len(r.Remote)
	default:
		return 0
	}
}

type responseBody struct {
	Return []json.RawMessage `json:"return"`
}

// DecodeTargets decodes a salt-api body of the form
// {"return": [{"<target>": <value>, ...}, ...]} using strategy.
//
// The body itself must be well formed. Per-target values never produce an
// error except under StrategyPlain.
func DecodeTargets[R any](body []byte, shape Shape[R], strategy Strategy) (Returns[R], error) {
	out := Returns[R]{Strategy: strategy}
	if shape == nil {
		shape = JSON[R]()
	}

	entries, err := returnEntries(body)
	if err != nil {
		return out, err
	}

	for i, entry := range entries {
		targets, err := Strict[map[string]json.RawMessage]().Decode(entry)
		if err != nil || targets == nil {
			return Returns[R]{Strategy: strategy}, errors.WrapInvalid(
				fmt.Errorf("%w: return entry %d is not a target map", errors.ErrParsingFailed, i),
				"decode", "DecodeTargets", "read targets")
		}

		switch strategy {
		case StrategyPlain:
			decoded := make(map[string]R, len(targets))
			for target, raw := range targets {
				value, err := shape.Decode(raw)
				if err != nil {
					return Returns[R]{Strategy: strategy}, errors.WrapInvalid(
						fmt.Errorf("%w: target %s: %w", errors.ErrParsingFailed, target, err),
						"decode", "DecodeTargets", "decode plain value")
				}
				decoded[target] = value
			}
			out.Plain = append(out.Plain, decoded)
		case StrategySum:
			decoded := make(map[string]Outcome[R], len(targets))
			for target, raw := range targets {
				decoded[target] = Decode(raw, shape)
			}
			out.Sum = append(out.Sum, decoded)
		case StrategyRemote:
			decoded := make(map[string]Outcome[RemoteExecResult[R]], len(targets))
			for target, raw := range targets {
				decoded[target] = DecodeRemote(raw, shape)
			}
			out.Remote = append(out.Remote, decoded)
		default:
			return Returns[R]{Strategy: strategy}, errors.WrapInvalid(
				fmt.Errorf("unknown strategy %d", int(strategy)),
				"decode", "DecodeTargets", "select strategy")
		}
	}

	return out, nil
}

// DecodeValues decodes a body whose return entries are single values, as
// produced by the runner and wheel clients.
func DecodeValues[R any](body []byte, shape Shape[R]) ([]Outcome[R], error) {
	if shape == nil {
		shape = JSON[R]()
	}

	entries, err := returnEntries(body)
	if err != nil {
		return nil, err
	}

	out := make([]Outcome[R], 0, len(entries))
	for _, entry := range entries {
		out = append(out, Decode(entry, shape))
	}
	return out, nil
}

func returnEntries(body []byte) ([]json.RawMessage, error) {
	parsed, err := JSON[*responseBody]().Decode(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode", "returnEntries", "read response body")
	}
	if parsed == nil || parsed.Return == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: missing return list", errors.ErrParsingFailed),
			"decode", "returnEntries", "read response body")
	}
	return parsed.Return, nil
}
