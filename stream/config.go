package stream

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/pkg/tlsutil"
)

// Config holds configuration for an EventStream
type Config struct {
	// URL is the salt-api base URL (http, https, ws or wss)
	URL string `json:"url" yaml:"url"`

	// Token is the salt-api session token appended as /ws/<token>
	Token string `json:"token" yaml:"token"`

	// MaxMessageLength bounds an assembled message in bytes (0 = unbounded)
	MaxMessageLength int `json:"max_message_length" yaml:"max_message_length"`

	// HandshakeTimeout bounds the websocket opening handshake
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`

	// ReadChunkSize is the fragment size handed to the assembler
	ReadChunkSize int `json:"read_chunk_size" yaml:"read_chunk_size"`

	// TLS configures verification of wss endpoints
	TLS tlsutil.ClientConfig `json:"tls" yaml:"tls"`
}

// DefaultConfig returns the default configuration for an EventStream
func DefaultConfig() Config {
	return Config{
		URL:              "http://localhost:8000",
		MaxMessageLength: 0,
		HandshakeTimeout: 45 * time.Second,
		ReadChunkSize:    4096,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "check url")
	}
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	if c.MaxMessageLength < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: max_message_length must not be negative", errors.ErrInvalidConfig),
			"Config", "Validate", "check max_message_length")
	}
	if c.ReadChunkSize < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: read_chunk_size must not be negative", errors.ErrInvalidConfig),
			"Config", "Validate", "check read_chunk_size")
	}
	return c.TLS.Validate()
}

// Endpoint returns the websocket URL of the event stream
func (c Config) Endpoint() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", errors.WrapInvalid(err, "Config", "Endpoint", "parse url")
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: unsupported scheme %q", errors.ErrInvalidConfig, u.Scheme),
			"Config", "Endpoint", "check scheme")
	}
	if u.Host == "" {
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: missing host", errors.ErrInvalidConfig),
			"Config", "Endpoint", "check host")
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + url.PathEscape(c.Token)
	u.RawPath = ""
	return u.String(), nil
}

func (c Config) chunkSize() int {
	if c.ReadChunkSize <= 0 {
		return DefaultConfig().ReadChunkSize
	}
	return c.ReadChunkSize
}
