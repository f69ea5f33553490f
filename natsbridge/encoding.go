package natsbridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/event"
)

// Encoding selects the wire format of forwarded envelopes
type Encoding string

// Supported encodings
const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding parses an encoding name. An empty name is EncodingJSON.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(strings.ToLower(name)) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("%w: unknown encoding %q", errors.ErrInvalidConfig, name)
	}
}

// wireEnvelope is the msgpack form of an envelope. Data is decoded from
// JSON so subscribers receive native msgpack maps and arrays.
type wireEnvelope struct {
	Tag  string `msgpack:"tag"`
	Data any    `msgpack:"data"`
}

func (e Encoding) marshal(env event.Envelope) ([]byte, error) {
	if e != EncodingMsgpack {
		return json.Marshal(env)
	}

	var data any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
	}
	return msgpack.Marshal(wireEnvelope{Tag: env.Tag, Data: data})
}

// DecodeMsgpack decodes a payload published with EncodingMsgpack back
// into an envelope.
func DecodeMsgpack(payload []byte) (event.Envelope, error) {
	var wire wireEnvelope
	if err := msgpack.Unmarshal(payload, &wire); err != nil {
		return event.Envelope{}, errors.WrapInvalid(err, "natsbridge", "DecodeMsgpack", "decode envelope")
	}
	data, err := json.Marshal(wire.Data)
	if err != nil {
		return event.Envelope{}, errors.WrapInvalid(err, "natsbridge", "DecodeMsgpack", "re-encode data")
	}
	return event.Envelope{Tag: wire.Tag, Data: data}, nil
}
