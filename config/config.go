package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/saltstreams/errors"
	"github.com/c360/saltstreams/natsbridge"
	"github.com/c360/saltstreams/pkg/tlsutil"
	"github.com/c360/saltstreams/stream"
)

const redacted = "[REDACTED]"

// Config is the complete saltevents configuration
type Config struct {
	Salt    SaltConfig    `yaml:"salt"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// SaltConfig describes the salt-api event stream
type SaltConfig struct {
	URL              string               `yaml:"url"`
	Token            string               `yaml:"token"`
	MaxMessageLength int                  `yaml:"max_message_length"`
	HandshakeTimeout time.Duration        `yaml:"handshake_timeout"`
	ReadChunkSize    int                  `yaml:"read_chunk_size"`
	TLS              tlsutil.ClientConfig `yaml:"tls"`
}

// NATSConfig describes the optional NATS bridge
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Encoding      string        `yaml:"encoding"`
	Name          string        `yaml:"name"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Token         string        `yaml:"token"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	ConnectBackoff natsbridge.Backoff `yaml:"connect_backoff"`
}

// MetricsConfig describes the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`

	// EventHistory is the number of recent events served on /events.
	// Zero disables the endpoint.
	EventHistory int `yaml:"event_history"`
}

// LogConfig describes logging output
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration
func Default() *Config {
	sc := stream.DefaultConfig()
	return &Config{
		Salt: SaltConfig{
			URL:              sc.URL,
			MaxMessageLength: sc.MaxMessageLength,
			HandshakeTimeout: sc.HandshakeTimeout,
			ReadChunkSize:    sc.ReadChunkSize,
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			SubjectPrefix: natsbridge.DefaultPrefix,
			Encoding:      string(natsbridge.EncodingJSON),
			Name:          "saltevents",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,

			ConnectBackoff: natsbridge.DefaultBackoff(),
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",

			EventHistory: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Stream returns the event stream configuration
func (c *Config) Stream() stream.Config {
	return stream.Config{
		URL:                c.Salt.URL,
		Token:              c.Salt.Token,
		MaxMessageLength:   c.Salt.MaxMessageLength,
		HandshakeTimeout:   c.Salt.HandshakeTimeout,
		ReadChunkSize:      c.Salt.ReadChunkSize,
		TLS:                c.Salt.TLS,
	}
}

// NATSOptions returns client options for the NATS bridge
func (c *Config) NATSOptions() []natsbridge.ClientOption {
	opts := []natsbridge.ClientOption{
		natsbridge.WithMaxReconnects(c.NATS.MaxReconnects),
		natsbridge.WithReconnectWait(c.NATS.ReconnectWait),
	}
	if c.NATS.Name != "" {
		opts = append(opts, natsbridge.WithName(c.NATS.Name))
	}
	if c.NATS.Username != "" {
		opts = append(opts, natsbridge.WithUserInfo(c.NATS.Username, c.NATS.Password))
	}
	if c.NATS.Token != "" {
		opts = append(opts, natsbridge.WithToken(c.NATS.Token))
	}
	return opts
}

// BridgeOptions returns listener options for the NATS bridge
func (c *Config) BridgeOptions() []natsbridge.Option {
	return []natsbridge.Option{
		natsbridge.WithEncoding(natsbridge.Encoding(strings.ToLower(c.NATS.Encoding))),
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := c.Stream().Validate(); err != nil {
		return errors.Wrap(err, "Config", "Validate", "validate salt config")
	}
	if c.Salt.Token == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: salt.token", errors.ErrMissingConfig),
			"Config", "Validate", "check salt token")
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errors.WrapInvalid(
				fmt.Errorf("%w: nats.url", errors.ErrMissingConfig),
				"Config", "Validate", "check nats url")
		}
		if c.NATS.ReconnectWait < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: nats.reconnect_wait must not be negative", errors.ErrInvalidConfig),
				"Config", "Validate", "check nats reconnect wait")
		}
		if err := c.NATS.ConnectBackoff.Validate(); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "check nats connect backoff")
		}
		if _, err := natsbridge.NewListener(noopPublisher{}, c.NATS.SubjectPrefix, c.BridgeOptions()...); err != nil {
			return errors.Wrap(err, "Config", "Validate", "check nats bridge")
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: metrics.port %d out of range", errors.ErrInvalidConfig, c.Metrics.Port),
				"Config", "Validate", "check metrics port")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapInvalid(
				fmt.Errorf("%w: metrics.path must start with /", errors.ErrInvalidConfig),
				"Config", "Validate", "check metrics path")
		}
		if c.Metrics.EventHistory < 0 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: metrics.event_history must not be negative", errors.ErrInvalidConfig),
				"Config", "Validate", "check event history")
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: log.level %q", errors.ErrInvalidConfig, c.Log.Level),
			"Config", "Validate", "check log level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: log.format %q", errors.ErrInvalidConfig, c.Log.Format),
			"Config", "Validate", "check log format")
	}

	return nil
}

// String returns the configuration as YAML with secrets redacted
func (c *Config) String() string {
	safe := *c
	if safe.Salt.Token != "" {
		safe.Salt.Token = redacted
	}
	if safe.NATS.Password != "" {
		safe.NATS.Password = redacted
	}
	if safe.NATS.Token != "" {
		safe.NATS.Token = redacted
	}
	data, err := yaml.Marshal(&safe)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, []byte) error { return nil }
