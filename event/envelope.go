// Package event models salt-api push notifications.
//
// Every notification is an Envelope: a routing tag plus an opaque payload.
// The payload is decoded lazily and may be projected any number of times
// into different shapes, so several listeners can read the same Envelope.
//
// Typed matchers (ParseJobReturn, ParseMinionStart, ...) recognise the stable
// tag formats salt publishes and project the payload into typed events.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360/saltstreams/decode"
	"github.com/c360/saltstreams/errors"
)

// DataPrefix is prepended by salt-api to every event sent over the websocket.
const DataPrefix = "data: "

// Envelope is the always-present shape of a push notification.
type Envelope struct {
	Tag  string          `json:"tag"`
	Data json.RawMessage `json:"data"`
}

// ParseMessage parses one complete websocket message into an Envelope.
// The salt-api "data: " prefix is optional.
func ParseMessage(message string) (Envelope, error) {
	body := strings.TrimPrefix(message, DataPrefix)

	parsed, err := decode.JSON[*Envelope]().Decode(json.RawMessage(body))
	if err != nil {
		return Envelope{}, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrInvalidEnvelope, err),
			"event", "ParseMessage", "unmarshal envelope")
	}
	if parsed == nil || parsed.Tag == "" {
		return Envelope{}, errors.WrapInvalid(
			fmt.Errorf("%w: missing tag", errors.ErrInvalidEnvelope),
			"event", "ParseMessage", "validate envelope")
	}

	return *parsed, nil
}

// Project decodes the payload into R. It does not modify e and can be called
// repeatedly with different shapes. A nil shape means decode.JSON[R]().
func Project[R any](e Envelope, shape decode.Shape[R]) (R, error) {
	if shape == nil {
		shape = decode.JSON[R]()
	}
	data := e.Data
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("null")
	}
	value, err := shape.Decode(data)
	if err != nil {
		var zero R
		return zero, errors.Wrap(err, "event", "Project", "decode payload for "+e.Tag)
	}
	return value, nil
}

// DataMap projects the payload into a generic map.
func (e Envelope) DataMap() (map[string]any, error) {
	return Project(e, decode.JSON[map[string]any]())
}

// Category returns the second tag segment ("job" for salt/job/...), or "".
func (e Envelope) Category() string {
	parts := strings.SplitN(e.Tag, "/", 3)
	if len(parts) < 2 || parts[0] != "salt" {
		return ""
	}
	return parts[1]
}
